package vault

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/crypto"
)

// Unlock and decode errors. ErrWrongSecret and ErrCorruptData must be shown
// to users as a single "incorrect password or code" message, see
// IsUnlockFailure.
var (
	// ErrWrongSecret indicates the password or recovery code failed to unwrap
	// the master key.
	ErrWrongSecret = errors.New("wrong password or recovery code")

	// ErrCorruptData indicates the record payload failed authentication or did
	// not parse after a successful unwrap.
	ErrCorruptData = errors.New("vault data is corrupt")
)

// ErrPrimitiveUnavailable indicates the platform lacks secure randomness or a
// required cipher. It is fatal for the call and never retried.
var ErrPrimitiveUnavailable = crypto.ErrUnavailable

// Session state errors.
var (
	// ErrLocked indicates the session was locked and its master key discarded.
	ErrLocked = errors.New("vault is locked")

	// ErrResetRequired indicates a recovery session tried to write before
	// choosing a new password.
	ErrResetRequired = errors.New("password reset required after recovery")

	// ErrInvalidState indicates an operation not permitted in the session's
	// current state.
	ErrInvalidState = errors.New("operation not permitted in current vault state")
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("validation failed")

// ValidationError describes malformed input rejected before any
// cryptographic work.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) true for validation errors.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsUnlockFailure reports whether err should be surfaced as the generic
// "incorrect password or code" message.
func IsUnlockFailure(err error) bool {
	return errors.Is(err, ErrWrongSecret) || errors.Is(err, ErrCorruptData)
}
