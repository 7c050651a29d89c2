package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/illarion/keepvault/internal/config"
	"github.com/illarion/keepvault/internal/core"
	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/keyring"
	"github.com/illarion/keepvault/internal/storage"
	"github.com/illarion/keepvault/internal/vault"
)

// Exit codes
const (
	exitError       = 1
	exitUnavailable = 2
)

// readPassword and friends are variables so tests can replace the terminal.
var (
	readPassword        = core.ReadPassword
	readPasswordConfirm = core.ReadPasswordConfirm
	readRecoveryCode    = core.ReadRecoveryCode
)

// openManager opens an existing vault file. Only init and import create one.
func openManager() (*core.Manager, error) {
	return core.OpenExisting(flags.vaultPath, flags.owner, moduleLogger("core"))
}

func createManager() (*core.Manager, error) {
	return core.Open(flags.vaultPath, flags.owner, moduleLogger("core"))
}

// unlockManager unlocks m with the keyring password, then KEEPVAULT_PASSWORD,
// then a prompt. A stale keyring entry falls through to the next source.
func unlockManager(ctx context.Context, m *core.Manager, w io.Writer) error {
	log := moduleLogger("cmd")

	if cached, err := keyring.GetPassword(m.KeyringAccount()); err == nil {
		password := []byte(cached)
		err := unlockWithSpinner(ctx, m, password)
		crypto.ClearBytes(password)
		if err == nil {
			return nil
		}
		if !vault.IsUnlockFailure(err) {
			return err
		}
		log.Infow("keyring password rejected, falling back", "owner", m.Owner())
		printWarning(w, "Password in keyring is out of date")
	}

	password, err := getPassword("Enter password: ")
	if err != nil {
		return err
	}
	defer crypto.ClearBytes(password)

	return unlockWithSpinner(ctx, m, password)
}

func unlockWithSpinner(ctx context.Context, m *core.Manager, password []byte) error {
	stop := startSpinner("Unlocking vault...")
	defer stop()
	return m.Unlock(ctx, password)
}

// getPassword retrieves the password from the environment or prompts.
// The caller is responsible for calling crypto.ClearBytes on the result.
func getPassword(prompt string) ([]byte, error) {
	if password := config.PasswordFromEnv(); password != nil {
		return password, nil
	}
	return readPassword(prompt)
}

// getNewPassword is getPassword with confirmation on the prompt path.
func getNewPassword(prompt string) ([]byte, error) {
	if password := config.PasswordFromEnv(); password != nil {
		return password, nil
	}
	return readPasswordConfirm(prompt)
}

// openUnlocked opens the vault and unlocks it. The caller must Close the
// returned manager.
func openUnlocked(ctx context.Context, w io.Writer) (*core.Manager, error) {
	m, err := openManager()
	if err != nil {
		return nil, err
	}
	if err := unlockManager(ctx, m, w); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func printRecoveryCode(w io.Writer, code vault.RecoveryCode) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recovery code (shown once, store it offline):")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "    %s\n", codeText.Sprint(code.String()))
	fmt.Fprintln(w)
	printHint(w, "It is the only way back in if you forget your password")
}

// HandleError prints err for the user and returns the exit code.
func HandleError(w io.Writer, err error) int {
	errorText.Fprint(w, "✗ ")

	var verr *vault.ValidationError
	switch {
	case errors.Is(err, core.ErrInvalidBlob):
		fmt.Fprintln(w, err)
	case vault.IsUnlockFailure(err):
		fmt.Fprintln(w, "Incorrect password or recovery code")
	case errors.Is(err, vault.ErrPrimitiveUnavailable):
		fmt.Fprintf(w, "Secure random source or cipher unavailable: %s\n", err)
		return exitUnavailable
	case errors.As(err, &verr):
		fmt.Fprintf(w, "Invalid %s: %s\n", verr.Field, verr.Reason)
	case errors.Is(err, core.ErrNotInitialized):
		fmt.Fprintf(w, "No vault for owner %q in %s\n", flags.owner, flags.vaultPath)
		printHint(w, "Run %s first", codeText.Sprint("keepvault init"))
	case errors.Is(err, core.ErrAlreadyExists):
		fmt.Fprintf(w, "A vault for owner %q already exists in %s\n", flags.owner, flags.vaultPath)
		printHint(w, "Use %s to see current state", codeText.Sprint("keepvault status"))
	case errors.Is(err, vault.ErrResetRequired):
		fmt.Fprintln(w, "A new password must be set before the vault can be changed")
	case errors.Is(err, core.ErrRecordNotFound):
		fmt.Fprintln(w, err)
		printHint(w, "Use %s to list record ids", codeText.Sprint("keepvault ls"))
	case errors.Is(err, storage.ErrInvalidOwner):
		fmt.Fprintln(w, err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted")
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
	return exitError
}
