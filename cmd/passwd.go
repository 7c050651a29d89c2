package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/keyring"
)

func newPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd",
		Short: "Change the vault password",
		Long: `Changes the vault password. The current password is required; the recovery
code and the records are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			newPassword, err := readPasswordConfirm("Enter new password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(newPassword)

			stop := startSpinner("Re-wrapping master key...")
			err = m.ChangePassword(cmd.Context(), newPassword)
			stop()
			if err != nil {
				return err
			}

			account := m.KeyringAccount()
			if keyring.HasPassword(account) {
				if err := keyring.SavePassword(account, string(newPassword)); err == nil {
					printHint(out, "Keyring updated with new password")
				}
			}

			// Every password change leaves the old envelope in free pages.
			if err := m.Compact(); err != nil {
				printWarning(cmd.ErrOrStderr(), "compaction failed: %s", err)
			}

			printSuccess(out, "Password changed")
			return nil
		},
	}
}
