// Package cmd implements the keepvault command line.
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/illarion/keepvault/internal/config"
	"github.com/illarion/keepvault/internal/logging"
)

type globalFlags struct {
	vaultPath string
	owner     string
	logLevel  string
}

var (
	flags  globalFlags
	logger *zap.Logger
)

// NewRootCmd builds the keepvault command tree. Defaults come from the
// environment and are overridden by flags.
func NewRootCmd() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:   "keepvault",
		Short: "Encrypted vault for credentials, cards and notes",
		Long: `keepvault keeps credentials, payment cards and secure notes in an encrypted
local vault. A random master key encrypts the records and is itself wrapped
twice: once under your password and once under a recovery code that is shown
only when the vault is created.

Environment:
  KEEPVAULT_PATH       vault file (default .keepvault)
  KEEPVAULT_OWNER      owner id (default current user)
  KEEPVAULT_PASSWORD   password, skips the prompt
  KEEPVAULT_LOG_LEVEL  debug, info, warn or error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.ParseLevel(flags.logLevel), cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&flags.vaultPath, "vault", cfg.VaultPath, "path to the vault file")
	root.PersistentFlags().StringVar(&flags.owner, "owner", cfg.Owner, "owner id of the vault")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitCmd(),
		newLsCmd(),
		newShowCmd(),
		newAddCmd(),
		newEditCmd(),
		newRmCmd(),
		newPasswdCmd(),
		newRecoverCmd(),
		newRotateRecoveryCmd(),
		newStatusCmd(),
		newKeyringCmd(),
		newExportCmd(),
		newImportCmd(),
		newCompactCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		return HandleError(root.ErrOrStderr(), err)
	}
	return 0
}

func moduleLogger(name string) *zap.SugaredLogger {
	if logger == nil {
		return logging.Nop()
	}
	return logging.Module(logger, name)
}
