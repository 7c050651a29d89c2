package storage

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket   = []byte("config")    // schema version, timestamps - unencrypted
	EnvelopeBucket = []byte("envelopes") // owner id -> envelope blob
	OwnersBucket   = []byte("owners")    // owner id -> OwnerInfo JSON - unencrypted
)

// Config keys
var (
	ConfigVersion = []byte("version")
	ConfigCreated = []byte("created")
)

const schemaVersion = "1"

// BoltStore is a BlobStore backed by a BBolt database file.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

// OpenBolt opens or creates a vault database and ensures its buckets exist.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	s := &BoltStore{db: db, now: time.Now}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *BoltStore) Path() string {
	return s.db.Path()
}

// initialize creates the bucket structure for a new database
func (s *BoltStore) initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{ConfigBucket, EnvelopeBucket, OwnersBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return errors.Wrapf(err, "failed to create bucket %s", bucket)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if config.Get(ConfigVersion) != nil {
			return nil
		}
		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}

		created, _ := s.now().MarshalBinary()
		return config.Put(ConfigCreated, created)
	})
}

// Get returns the blob stored for ownerID, or nil if there is none.
func (s *BoltStore) Get(ctx context.Context, ownerID string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}

	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(EnvelopeBucket).Get([]byte(ownerID))
		if data == nil {
			return nil
		}
		// Make a copy since the slice is only valid during the transaction
		blob = append([]byte(nil), data...)
		return nil
	})
	return blob, err
}

// Set replaces the blob for ownerID and updates its bookkeeping in the same
// transaction.
func (s *BoltStore) Set(ctx context.Context, ownerID string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateOwnerID(ownerID); err != nil {
		return err
	}
	if len(blob) == 0 {
		return errors.Errorf("refusing to store empty blob for %s", ownerID)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(EnvelopeBucket).Put([]byte(ownerID), blob); err != nil {
			return err
		}

		owners := tx.Bucket(OwnersBucket)
		var info *OwnerInfo
		if data := owners.Get([]byte(ownerID)); data != nil {
			info = &OwnerInfo{}
			if err := json.Unmarshal(data, info); err != nil {
				return errors.Wrapf(err, "corrupt owner entry %s", ownerID)
			}
		}

		data, err := json.Marshal(touch(info, ownerID, len(blob), s.now()))
		if err != nil {
			return err
		}
		return owners.Put([]byte(ownerID), data)
	})
}

// Info returns bookkeeping for one owner, or nil if the owner is unknown.
func (s *BoltStore) Info(ownerID string) (*OwnerInfo, error) {
	var info *OwnerInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(OwnersBucket).Get([]byte(ownerID))
		if data == nil {
			return nil
		}
		info = &OwnerInfo{}
		return json.Unmarshal(data, info)
	})
	return info, err
}

// Owners returns bookkeeping for every owner, sorted by id.
func (s *BoltStore) Owners() ([]OwnerInfo, error) {
	var owners []OwnerInfo
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(OwnersBucket).ForEach(func(k, v []byte) error {
			var info OwnerInfo
			if err := json.Unmarshal(v, &info); err != nil {
				return err
			}
			owners = append(owners, info)
			return nil
		})
	})
	sort.Slice(owners, func(i, j int) bool { return owners[i].OwnerID < owners[j].OwnerID })
	return owners, err
}

// Created returns the database creation time.
func (s *BoltStore) Created() (time.Time, error) {
	var created time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(ConfigBucket).Get(ConfigCreated)
		if data == nil {
			return errors.New("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	return created, err
}

// Compact creates a compacted copy of the database, removing unused space.
// Every envelope rewrite leaves free pages behind, so this is worth running
// after password changes.
func (s *BoltStore) Compact() error {
	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create compact database")
	}

	// Copy all buckets
	err = s.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to copy data")
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close compact database")
	}

	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Wrap(err, "failed to close source database")
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return errors.Wrap(err, "failed to backup original")
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return errors.Wrap(err, "failed to replace database")
	}
	os.Remove(backupPath)

	// Reopen database
	s.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return errors.Wrap(err, "failed to reopen database")
	}

	return nil
}
