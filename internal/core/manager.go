package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/git"
	"github.com/illarion/keepvault/internal/keyring"
	"github.com/illarion/keepvault/internal/storage"
	"github.com/illarion/keepvault/internal/vault"
)

var (
	ErrNotInitialized   = errors.New("vault not initialized")
	ErrAlreadyExists    = errors.New("vault already exists for this owner")
	ErrNotUnlocked      = errors.New("vault is not unlocked")
	ErrRecordNotFound   = errors.New("record not found")
	ErrOwnerMismatch    = errors.New("envelope belongs to a different owner")
	ErrInvalidBlob      = errors.New("not a valid vault export")
	ErrPasswordRequired = errors.New("password required")
)

// Manager drives one owner's vault inside one vault file.
type Manager struct {
	path  string
	owner string
	store *storage.BoltStore
	svc   *vault.Service
	log   *zap.SugaredLogger

	mu   sync.Mutex
	sess *vault.Session
}

// OpenExisting is Open for a vault file that must already exist. A missing
// file yields ErrNotInitialized and is not created.
func OpenExisting(path, owner string, log *zap.SugaredLogger) (*Manager, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, errors.Wrap(err, "failed to stat vault file")
	}
	return Open(path, owner, log)
}

// Open opens (or creates) the vault file at path for owner.
func Open(path, owner string, log *zap.SugaredLogger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if err := storage.ValidateOwnerID(owner); err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get absolute path")
	}

	store, err := storage.OpenBolt(absPath)
	if err != nil {
		return nil, err
	}

	return &Manager{
		path:  absPath,
		owner: owner,
		store: store,
		svc:   vault.NewService(vault.WithLogger(log.Named("vault"))),
		log:   log,
	}, nil
}

// Close locks any open session and closes the vault file.
func (m *Manager) Close() error {
	m.Lock()
	return m.store.Close()
}

// Path returns the absolute vault file path.
func (m *Manager) Path() string {
	return m.path
}

// Owner returns the owner this manager operates on.
func (m *Manager) Owner() string {
	return m.owner
}

// KeyringAccount returns the OS keyring account for this vault and owner.
func (m *Manager) KeyringAccount() string {
	return keyring.Account(m.path, m.owner)
}

// State reports the lifecycle state of the owner's vault.
func (m *Manager) State(ctx context.Context) (vault.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess != nil {
		if st := m.sess.State(); st != vault.StateLocked {
			return st, nil
		}
	}

	blob, err := m.store.Get(ctx, m.owner)
	if err != nil {
		return vault.StateUninitialized, err
	}
	if blob == nil {
		return vault.StateUninitialized, nil
	}
	return vault.StateLocked, nil
}

// Init creates the owner's vault. The recovery code is returned once and
// never stored.
func (m *Manager) Init(ctx context.Context, password []byte) (vault.RecoveryCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, err := m.store.Get(ctx, m.owner)
	if err != nil {
		return "", err
	}
	if blob != nil {
		return "", ErrAlreadyExists
	}

	sess, env, code, err := m.svc.Create(ctx, m.owner, password, nil)
	if err != nil {
		return "", err
	}

	if err := m.persist(ctx, env); err != nil {
		sess.Lock()
		return "", err
	}

	m.replaceSession(sess)
	m.log.Infow("vault initialized", "owner", m.owner)
	return code, nil
}

// Unlock opens the vault with the owner's password.
func (m *Manager) Unlock(ctx context.Context, password []byte) error {
	if password == nil {
		return ErrPasswordRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := m.load(ctx)
	if err != nil {
		return err
	}

	sess, err := m.svc.UnlockWithPassword(ctx, env, password)
	if err != nil {
		return err
	}

	m.replaceSession(sess)
	return nil
}

// VerifyPassword checks the password without keeping a session.
func (m *Manager) VerifyPassword(ctx context.Context, password []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := m.load(ctx)
	if err != nil {
		return err
	}

	sess, err := m.svc.UnlockWithPassword(ctx, env, password)
	if err != nil {
		return err
	}
	sess.Lock()
	return nil
}

// Recover opens the vault with the recovery code. The session must complete
// a reset with CompleteReset before it can write.
func (m *Manager) Recover(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := m.load(ctx)
	if err != nil {
		return err
	}

	sess, err := m.svc.UnlockWithRecoveryCode(ctx, env, vault.RecoveryCode(code))
	if err != nil {
		return err
	}

	m.replaceSession(sess)
	return nil
}

// CompleteReset sets a new password on a session opened by Recover.
func (m *Manager) CompleteReset(ctx context.Context, newPassword []byte) error {
	return m.commit(ctx, func(sess *vault.Session) (*vault.Envelope, error) {
		return sess.CompleteReset(newPassword)
	})
}

// ResetPassword recovers with code and sets newPassword in one step.
func (m *Manager) ResetPassword(ctx context.Context, code string, newPassword []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, err := m.load(ctx)
	if err != nil {
		return err
	}

	sess, next, err := m.svc.ResetPassword(ctx, env, vault.RecoveryCode(code), newPassword)
	if err != nil {
		return err
	}

	if err := m.persist(ctx, next); err != nil {
		sess.Lock()
		return err
	}

	m.replaceSession(sess)
	return nil
}

// ChangePassword replaces the password of an unlocked vault.
func (m *Manager) ChangePassword(ctx context.Context, newPassword []byte) error {
	return m.commit(ctx, func(sess *vault.Session) (*vault.Envelope, error) {
		return sess.ChangePassword(newPassword)
	})
}

// RotateRecoveryCode issues a new recovery code, invalidating the old one.
func (m *Manager) RotateRecoveryCode(ctx context.Context) (vault.RecoveryCode, error) {
	var code vault.RecoveryCode
	err := m.commit(ctx, func(sess *vault.Session) (*vault.Envelope, error) {
		env, c, err := sess.RotateRecoveryCode()
		code = c
		return env, err
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Records returns the decrypted records of the open session.
func (m *Manager) Records() ([]vault.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		return nil, ErrNotUnlocked
	}
	return m.sess.Records()
}

// Record returns one record by id.
func (m *Manager) Record(id string) (vault.Record, error) {
	records, err := m.Records()
	if err != nil {
		return vault.Record{}, err
	}
	i := vault.FindRecord(records, id)
	if i < 0 {
		return vault.Record{}, errors.Wrapf(ErrRecordNotFound, "id %s", id)
	}
	return records[i], nil
}

// AddRecord appends rec and persists the vault. Missing id and timestamps
// are filled in.
func (m *Manager) AddRecord(ctx context.Context, rec vault.Record) (vault.Record, error) {
	if rec.ID == "" || rec.CreatedAt.IsZero() {
		fresh := vault.NewRecord(rec.Kind, rec.Name)
		if rec.ID == "" {
			rec.ID = fresh.ID
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt, rec.UpdatedAt = fresh.CreatedAt, fresh.UpdatedAt
		}
	}

	err := m.update(ctx, func(records []vault.Record) ([]vault.Record, error) {
		return append(records, rec), nil
	})
	if err != nil {
		return vault.Record{}, err
	}

	m.log.Debugw("record added", "owner", m.owner, "kind", rec.Kind)
	return rec, nil
}

// UpdateRecord applies edit to the record with id and persists the vault.
// It returns the record before and after the edit.
func (m *Manager) UpdateRecord(ctx context.Context, id string, edit func(*vault.Record)) (before, after vault.Record, err error) {
	err = m.update(ctx, func(records []vault.Record) ([]vault.Record, error) {
		i := vault.FindRecord(records, id)
		if i < 0 {
			return nil, errors.Wrapf(ErrRecordNotFound, "id %s", id)
		}

		before = records[i]
		edit(&records[i])
		records[i].ID = before.ID
		records[i].CreatedAt = before.CreatedAt
		records[i].Touch()
		after = records[i]
		return records, nil
	})
	return before, after, err
}

// RemoveRecord deletes the record with id and persists the vault.
func (m *Manager) RemoveRecord(ctx context.Context, id string) error {
	return m.update(ctx, func(records []vault.Record) ([]vault.Record, error) {
		i := vault.FindRecord(records, id)
		if i < 0 {
			return nil, errors.Wrapf(ErrRecordNotFound, "id %s", id)
		}
		return append(records[:i], records[i+1:]...), nil
	})
}

// Lock discards the resident master key.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.replaceSession(nil)
}

// Export writes the owner's envelope blob to path unchanged. If path is a
// directory the blob goes to <owner>.json inside it.
func (m *Manager) Export(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	blob, err := m.store.Get(ctx, m.owner)
	if err != nil {
		return err
	}
	if blob == nil {
		return ErrNotInitialized
	}

	if isDir(path) {
		dir, err := storage.NewFileStore(path)
		if err != nil {
			return err
		}
		return dir.Set(ctx, m.owner, blob)
	}
	return storage.WriteBlobFile(path, blob)
}

// Import replaces the owner's envelope with the blob at path, or with
// <owner>.json when path is a directory. The blob must decode and belong to
// this owner. Any open session is locked.
func (m *Manager) Import(ctx context.Context, path string, overwrite bool) error {
	blob, err := m.readImport(ctx, path)
	if err != nil {
		return err
	}

	// The user supplied no secret here, so a bad blob must not read as an
	// unlock failure.
	env, err := vault.DecodeEnvelope(blob)
	if err != nil {
		return errors.Wrapf(ErrInvalidBlob, "%s: %v", path, err)
	}
	if env.OwnerID != m.owner {
		return errors.Wrapf(ErrOwnerMismatch, "owner %s", env.OwnerID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	existing, err := m.store.Get(ctx, m.owner)
	if err != nil {
		return err
	}
	if existing != nil && !overwrite {
		return ErrAlreadyExists
	}

	m.replaceSession(nil)
	return m.persist(ctx, env)
}

func (m *Manager) readImport(ctx context.Context, path string) ([]byte, error) {
	if !isDir(path) {
		return storage.ReadBlobFile(path)
	}

	dir, err := storage.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	blob, err := dir.Get(ctx, m.owner)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, errors.Errorf("no export for %s in %s", m.owner, path)
	}
	return blob, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// Compact compacts the vault file to reclaim unused space.
func (m *Manager) Compact() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.Compact()
}

// StatusInfo contains status information
type StatusInfo struct {
	Path      string
	Size      int64
	Created   time.Time
	Owners    []storage.OwnerInfo
	Owner     *storage.OwnerInfo
	Algorithm string
	KDF       string
	GitStatus *git.GitStatus
}

// Status returns the current status (no password required)
func (m *Manager) Status() (*StatusInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	owners, err := m.store.Owners()
	if err != nil {
		return nil, err
	}
	info, err := m.store.Info(m.owner)
	if err != nil {
		return nil, err
	}
	created, err := m.store.Created()
	if err != nil {
		return nil, err
	}

	status := &StatusInfo{
		Path:      m.path,
		Created:   created,
		Owners:    owners,
		Owner:     info,
		Algorithm: "AES-256-GCM",
		KDF:       fmt.Sprintf("PBKDF2-HMAC-SHA256, %d iterations", crypto.DefaultIters),
	}
	if fi, err := os.Stat(m.path); err == nil {
		status.Size = fi.Size()
	}

	dir := filepath.Dir(m.path)
	status.GitStatus = git.CheckVaultFiles(dir, []string{filepath.Base(m.path)})
	return status, nil
}

// update runs fn against the session records and persists the result.
func (m *Manager) update(ctx context.Context, fn vault.UpdateFunc) error {
	return m.commit(ctx, func(sess *vault.Session) (*vault.Envelope, error) {
		return sess.Update(fn)
	})
}

// commit runs one session write and persists the envelope it returns while
// holding the manager lock. If persisting fails the session is dropped, so
// the stored envelope stays the only source of truth.
func (m *Manager) commit(ctx context.Context, op func(*vault.Session) (*vault.Envelope, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		return ErrNotUnlocked
	}

	env, err := op(m.sess)
	if err != nil {
		return err
	}

	if err := m.persist(ctx, env); err != nil {
		m.log.Errorw("failed to persist vault, session locked", "owner", m.owner, "error", err)
		m.replaceSession(nil)
		return err
	}
	return nil
}

func (m *Manager) load(ctx context.Context) (*vault.Envelope, error) {
	blob, err := m.store.Get(ctx, m.owner)
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return nil, ErrNotInitialized
	}
	return vault.DecodeEnvelope(blob)
}

func (m *Manager) persist(ctx context.Context, env *vault.Envelope) error {
	blob, err := env.Encode()
	if err != nil {
		return err
	}
	// Persisting is not cancellable once the envelope is complete.
	return m.store.Set(context.WithoutCancel(ctx), m.owner, blob)
}

func (m *Manager) replaceSession(sess *vault.Session) {
	if m.sess != nil && m.sess != sess {
		m.sess.Lock()
	}
	m.sess = sess
}
