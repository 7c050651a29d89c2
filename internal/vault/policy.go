package vault

import "unicode/utf8"

const (
	MinPasswordLength = 8    // characters
	MaxPasswordBytes  = 1024 // bytes
)

// ValidatePassword applies the password policy for new passwords.
func ValidatePassword(password []byte) error {
	if len(password) > MaxPasswordBytes {
		return invalid("password", "longer than %d bytes", MaxPasswordBytes)
	}
	if !utf8.Valid(password) {
		return invalid("password", "not valid UTF-8")
	}
	if n := utf8.RuneCount(password); n < MinPasswordLength {
		return invalid("password", "must be at least %d characters", MinPasswordLength)
	}
	return nil
}

func validateOwner(ownerID string) error {
	if ownerID == "" {
		return invalid("owner id", "must not be empty")
	}
	return nil
}

func requireSecret(field string, secret []byte) error {
	if len(secret) == 0 {
		return invalid(field, "must not be empty")
	}
	return nil
}
