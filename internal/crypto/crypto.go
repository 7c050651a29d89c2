package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 16     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 310000 // PBKDF2 iterations, never below 300k
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrInvalidSalt       = errors.New("invalid salt size")
	ErrInvalidKey        = errors.New("invalid key size")
	ErrInvalidNonce      = errors.New("invalid nonce size")

	// ErrUnavailable means the platform could not provide secure randomness
	// or the cipher itself. It is never retried.
	ErrUnavailable = errors.New("cryptographic primitive unavailable")
)

// KDF handles key derivation from passwords and recovery codes
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a new KDF with a random salt
func NewKDF() (*KDF, error) {
	return NewKDFFrom(rand.Reader)
}

// NewKDFFrom creates a new KDF reading its salt from r.
func NewKDFFrom(r io.Reader) (*KDF, error) {
	salt, err := ReadRandom(r, SaltSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate salt")
	}

	return &KDF{
		Salt:       salt,
		Iterations: DefaultIters,
	}, nil
}

// DeriveKey derives an encryption key from a secret
func (k *KDF) DeriveKey(secret []byte) ([]byte, error) {
	if len(k.Salt) != SaltSize {
		return nil, errors.Wrapf(ErrInvalidSalt, "got %d bytes, want %d", len(k.Salt), SaltSize)
	}

	iters := k.Iterations
	if iters < DefaultIters {
		iters = DefaultIters
	}

	return pbkdf2.Key(secret, k.Salt, iters, KeySize, sha256.New), nil
}

// DeriveKey derives a wrapping key from secret and a 16-byte salt using the
// default iteration count.
func DeriveKey(secret, salt []byte) ([]byte, error) {
	kdf := &KDF{Salt: salt, Iterations: DefaultIters}
	return kdf.DeriveKey(secret)
}

// Encryptor provides authenticated encryption
type Encryptor struct {
	key  []byte
	rand io.Reader
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) (*Encryptor, error) {
	return NewEncryptorWithRand(key, rand.Reader)
}

// NewEncryptorWithRand creates an encryptor that draws nonces from r.
func NewEncryptorWithRand(key []byte, r io.Reader) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, errors.Wrapf(ErrInvalidKey, "got %d bytes", len(key))
	}

	return &Encryptor{
		key:  key,
		rand: r,
	}, nil
}

func (e *Encryptor) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(ErrUnavailable, err.Error())
	}

	return gcm, nil
}

// Seal encrypts plaintext using AES-256-GCM under a freshly generated nonce.
// The nonce is returned separately from the ciphertext.
func (e *Encryptor) Seal(plaintext, additionalData []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := e.aead()
	if err != nil {
		return nil, nil, err
	}

	nonce, err = ReadRandom(e.rand, NonceSize)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to generate nonce")
	}

	return nonce, gcm.Seal(nil, nonce, plaintext, additionalData), nil
}

// Open decrypts and authenticates ciphertext produced by Seal.
func (e *Encryptor) Open(nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrInvalidNonce
	}
	if len(ciphertext) < TagSize {
		return nil, ErrInvalidCiphertext
	}

	gcm, err := e.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// ReadRandom reads exactly n bytes from r. Any failure is reported as
// ErrUnavailable.
func ReadRandom(r io.Reader, n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "failed to read %d random bytes: %v", n, err)
	}
	return b, nil
}
