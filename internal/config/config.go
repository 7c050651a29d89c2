// Package config resolves keepvault settings from defaults and the
// environment. Command-line flags are applied on top by the cmd package.
package config

import (
	"os"
	"os/user"
	"strings"
)

// Environment variables
const (
	EnvPath     = "KEEPVAULT_PATH"
	EnvOwner    = "KEEPVAULT_OWNER"
	EnvPassword = "KEEPVAULT_PASSWORD"
	EnvLogLevel = "KEEPVAULT_LOG_LEVEL"
)

// DefaultVaultFile is the vault database created in the working directory.
const DefaultVaultFile = ".keepvault"

// Config holds resolved settings.
type Config struct {
	VaultPath string
	Owner     string
	LogLevel  string
}

// Load returns defaults overridden by environment variables.
func Load() Config {
	return load(os.Getenv)
}

func load(getenv func(string) string) Config {
	cfg := Config{
		VaultPath: DefaultVaultFile,
		Owner:     defaultOwner(getenv),
		LogLevel:  "warn",
	}

	if v := getenv(EnvPath); v != "" {
		cfg.VaultPath = v
	}
	if v := getenv(EnvOwner); v != "" {
		cfg.Owner = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	return cfg
}

func defaultOwner(getenv func(string) string) string {
	if u, err := user.Current(); err == nil {
		if name := ownerFromUsername(u.Username); name != "" {
			return name
		}
	}
	if v := ownerFromUsername(getenv("USER")); v != "" {
		return v
	}
	return "default"
}

// ownerFromUsername drops a Windows DOMAIN\ prefix, since owner ids may not
// contain path separators.
func ownerFromUsername(name string) string {
	if i := strings.LastIndexAny(name, `\/`); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// PasswordFromEnv reads the password from KEEPVAULT_PASSWORD. The caller
// owns the returned slice and should clear it.
func PasswordFromEnv() []byte {
	password := os.Getenv(EnvPassword)
	if password == "" {
		return nil
	}
	// Return a copy to avoid issues when clearing the bytes
	result := make([]byte, len(password))
	copy(result, password)
	return result
}
