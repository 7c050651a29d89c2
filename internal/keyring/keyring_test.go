package keyring

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	account := Account("/tmp/x/.keepvault", "u1")
	require.Equal(t, "/tmp/x/.keepvault/u1", account)
	require.False(t, HasPassword(account))

	require.NoError(t, SavePassword(account, "CorrectHorseBatteryStaple"))
	require.True(t, HasPassword(account))

	got, err := GetPassword(account)
	require.NoError(t, err)
	require.Equal(t, "CorrectHorseBatteryStaple", got)

	require.NoError(t, DeletePassword(account))
	require.False(t, HasPassword(account))
	require.NoError(t, DeletePassword(account))

	_, err = GetPassword(account)
	require.ErrorIs(t, err, ErrNotFound)
}
