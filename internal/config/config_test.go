package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := load(func(string) string { return "" })
	require.Equal(t, DefaultVaultFile, cfg.VaultPath)
	require.Equal(t, "warn", cfg.LogLevel)
	require.NotEmpty(t, cfg.Owner)
}

func TestLoadEnvironment(t *testing.T) {
	env := map[string]string{
		EnvPath:     "/tmp/v.db",
		EnvOwner:    "u1",
		EnvLogLevel: "debug",
	}
	cfg := load(func(k string) string { return env[k] })
	require.Equal(t, Config{VaultPath: "/tmp/v.db", Owner: "u1", LogLevel: "debug"}, cfg)
}

func TestPasswordFromEnv(t *testing.T) {
	t.Setenv(EnvPassword, "")
	require.Nil(t, PasswordFromEnv())

	t.Setenv(EnvPassword, "CorrectHorseBatteryStaple")
	require.Equal(t, []byte("CorrectHorseBatteryStaple"), PasswordFromEnv())
}

func TestOwnerFromUsername(t *testing.T) {
	require.Equal(t, "alice", ownerFromUsername(`CORP\alice`))
	require.Equal(t, "alice", ownerFromUsername("alice"))
	require.Equal(t, "", ownerFromUsername(""))
	require.Equal(t, "", ownerFromUsername(`CORP\`))
}
