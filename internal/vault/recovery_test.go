package vault

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateRecoveryCodeFormat(t *testing.T) {
	code, err := GenerateRecoveryCode()
	require.NoError(t, err)

	groups := strings.Split(code.String(), "-")
	require.Len(t, groups, 8)
	for _, g := range groups {
		require.Len(t, g, recoveryGroupSize)
	}
	require.Len(t, code.Bytes(), 32)

	other, err := GenerateRecoveryCode()
	require.NoError(t, err)
	require.NotEqual(t, code, other)
}

func TestGenerateRecoveryCodeDeterministicSource(t *testing.T) {
	code, err := generateRecoveryCode(bytes.NewReader(make([]byte, recoveryEntropy)))
	require.NoError(t, err)
	require.Equal(t, "AAAA-AAAA-AAAA-AAAA-AAAA-AAAA-AAAA-AAAA", code.String())
}

func TestNormalizeRecoveryCode(t *testing.T) {
	require.Equal(t, "ABCDEFGH", NormalizeRecoveryCode(" abcd-EFGH\n"))
	require.Equal(t, RecoveryCode("abcd efgh").Bytes(), RecoveryCode("ABCD-EFGH").Bytes())
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, ValidatePassword([]byte("NewPass1!")))
	require.ErrorIs(t, ValidatePassword([]byte("short")), ErrValidation)
	require.ErrorIs(t, ValidatePassword([]byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb, 0xfa, 0xf9, 0xf8}), ErrValidation)
	require.ErrorIs(t, ValidatePassword(bytes.Repeat([]byte("a"), MaxPasswordBytes+1)), ErrValidation)
	// eight runes, more than eight bytes
	require.NoError(t, ValidatePassword([]byte("пароль12")))
}
