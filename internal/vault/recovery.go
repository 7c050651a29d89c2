package vault

import (
	"crypto/rand"
	"encoding/base32"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

const (
	recoveryEntropy   = 20 // bytes, 160 bits
	recoveryGroupSize = 4
)

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// RecoveryCode is the alternate secret shown to the user once at creation.
// It is never stored.
type RecoveryCode string

// String returns the code in grouped display form.
func (c RecoveryCode) String() string {
	return string(c)
}

// Bytes returns the normalized secret used for key derivation.
func (c RecoveryCode) Bytes() []byte {
	return []byte(NormalizeRecoveryCode(string(c)))
}

// GenerateRecoveryCode returns a new code like ABCD-EFGH-... (8 groups of 4).
func GenerateRecoveryCode() (RecoveryCode, error) {
	return generateRecoveryCode(rand.Reader)
}

func generateRecoveryCode(r io.Reader) (RecoveryCode, error) {
	raw, err := crypto.ReadRandom(r, recoveryEntropy)
	if err != nil {
		return "", errors.Wrap(err, "failed to generate recovery code")
	}
	defer crypto.ClearBytes(raw)

	encoded := recoveryEncoding.EncodeToString(raw)

	var b strings.Builder
	for i := 0; i < len(encoded); i += recoveryGroupSize {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(encoded[i : i+recoveryGroupSize])
	}
	return RecoveryCode(b.String()), nil
}

// NormalizeRecoveryCode strips separators and whitespace and upper-cases the
// code, so users may type it loosely.
func NormalizeRecoveryCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return r
	}, code)
}
