package vault

import (
	"crypto/rand"
	"io"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

// MasterKeySize is the size of the vault master key in bytes.
const MasterKeySize = crypto.KeySize

// WrapRole names the slot a wrapped key belongs to. It is bound to the
// ciphertext as associated data, so a wrap cannot be moved between slots.
type WrapRole string

const (
	RolePassword WrapRole = "keepvault/password"
	RoleRecovery WrapRole = "keepvault/recovery"
)

// WrappedKey is the master key encrypted under a key derived from one secret.
type WrappedKey struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// Clone returns a deep copy.
func (w WrappedKey) Clone() WrappedKey {
	return WrappedKey{
		Salt:       append([]byte(nil), w.Salt...),
		Nonce:      append([]byte(nil), w.Nonce...),
		Ciphertext: append([]byte(nil), w.Ciphertext...),
	}
}

func (w WrappedKey) wellFormed() bool {
	return len(w.Salt) == crypto.SaltSize &&
		len(w.Nonce) == crypto.NonceSize &&
		len(w.Ciphertext) == MasterKeySize+crypto.TagSize
}

// WrapKey encrypts masterKey under a key derived from secret with a fresh
// random salt and nonce.
func WrapKey(masterKey, secret []byte, role WrapRole) (WrappedKey, error) {
	return wrapKey(rand.Reader, masterKey, secret, role)
}

func wrapKey(r io.Reader, masterKey, secret []byte, role WrapRole) (WrappedKey, error) {
	if len(masterKey) != MasterKeySize {
		return WrappedKey{}, errors.Wrap(crypto.ErrInvalidKey, "master key")
	}

	kdf, err := crypto.NewKDFFrom(r)
	if err != nil {
		return WrappedKey{}, err
	}

	wrappingKey, err := kdf.DeriveKey(secret)
	if err != nil {
		return WrappedKey{}, err
	}

	enc, err := crypto.NewEncryptorWithRand(wrappingKey, r)
	if err != nil {
		crypto.ClearBytes(wrappingKey)
		return WrappedKey{}, err
	}
	defer enc.Destroy()

	nonce, ciphertext, err := enc.Seal(masterKey, []byte(role))
	if err != nil {
		return WrappedKey{}, errors.Wrap(err, "failed to wrap master key")
	}

	return WrappedKey{
		Salt:       kdf.Salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// UnwrapKey recovers the master key from w using secret. A wrong secret and a
// damaged record both fail with ErrWrongSecret; the two are indistinguishable.
func UnwrapKey(w WrappedKey, secret []byte, role WrapRole) ([]byte, error) {
	if !w.wellFormed() {
		return nil, ErrWrongSecret
	}

	wrappingKey, err := crypto.DeriveKey(secret, w.Salt)
	if err != nil {
		return nil, ErrWrongSecret
	}

	enc, err := crypto.NewEncryptor(wrappingKey)
	if err != nil {
		crypto.ClearBytes(wrappingKey)
		return nil, ErrWrongSecret
	}
	defer enc.Destroy()

	masterKey, err := enc.Open(w.Nonce, w.Ciphertext, []byte(role))
	if err != nil || len(masterKey) != MasterKeySize {
		crypto.ClearBytes(masterKey)
		return nil, ErrWrongSecret
	}

	return masterKey, nil
}
