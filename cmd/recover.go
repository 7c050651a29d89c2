package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/crypto"
	"github.com/illarion/keepvault/internal/keyring"
)

func newRecoverCmd() *cobra.Command {
	var code string

	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Reset a forgotten password with the recovery code",
		Long: `Opens the vault with the recovery code and sets a new password.

The recovery code stays valid after the reset. Use rotate-recovery to replace
it if it may have been exposed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			if code == "" {
				code, err = readRecoveryCode("Enter recovery code: ")
				if err != nil {
					return err
				}
			}

			stop := startSpinner("Checking recovery code...")
			err = m.Recover(cmd.Context(), code)
			stop()
			if err != nil {
				return err
			}
			printSuccess(out, "Recovery code accepted")

			newPassword, err := getNewPassword("Enter new password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(newPassword)

			stop = startSpinner("Re-wrapping master key...")
			err = m.CompleteReset(cmd.Context(), newPassword)
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

			printSuccess(out, "Password reset")
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "code", "", "recovery code (prompted if omitted)")
	return cmd
}
