package storage

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalidOwner is returned for owner ids that cannot be used as keys.
var ErrInvalidOwner = errors.New("invalid owner id")

// BlobStore is the persistence adapter contract: one opaque blob per owner.
// Get returns (nil, nil) when the owner has no blob.
type BlobStore interface {
	Get(ctx context.Context, ownerID string) ([]byte, error)
	Set(ctx context.Context, ownerID string, blob []byte) error
}

// OwnerInfo is the unencrypted bookkeeping kept next to a blob.
type OwnerInfo struct {
	OwnerID  string    `json:"ownerId"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
	Size     int       `json:"size"`
}

func touch(info *OwnerInfo, ownerID string, size int, now time.Time) *OwnerInfo {
	if info == nil {
		info = &OwnerInfo{OwnerID: ownerID, Created: now}
	}
	info.Modified = now
	info.Size = size
	return info
}

// ValidateOwnerID rejects owner ids that are empty or would escape a
// directory when used as a file name.
func ValidateOwnerID(ownerID string) error {
	if ownerID == "" {
		return errors.Wrap(ErrInvalidOwner, "empty")
	}
	if len(ownerID) > 255 {
		return errors.Wrap(ErrInvalidOwner, "too long")
	}
	if ownerID == "." || ownerID == ".." || strings.ContainsAny(ownerID, `/\`+"\x00") {
		return errors.Wrapf(ErrInvalidOwner, "%q", ownerID)
	}
	return nil
}
