// Package keyring caches vault passwords in the OS keyring, keyed by vault
// file and owner.
package keyring

import (
	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const serviceName = "keepvault"

// ErrNotFound is returned when no password is stored for the account.
var ErrNotFound = keyring.ErrNotFound

// Account builds the keyring account name for an owner of a vault file.
func Account(vaultID, ownerID string) string {
	return vaultID + "/" + ownerID
}

// SavePassword stores a password in the OS keyring
func SavePassword(account string, password string) error {
	return keyring.Set(serviceName, account, password)
}

// GetPassword retrieves a password from the OS keyring
func GetPassword(account string) (string, error) {
	return keyring.Get(serviceName, account)
}

// DeletePassword removes a password from the OS keyring. Deleting a missing
// entry is not an error.
func DeletePassword(account string) error {
	err := keyring.Delete(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// HasPassword checks if a password is stored in the keyring
func HasPassword(account string) bool {
	_, err := keyring.Get(serviceName, account)
	return err == nil
}
