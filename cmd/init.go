package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/crypto"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new vault for the owner",
		Long: `Creates an empty vault for the owner and prints its recovery code.

The recovery code is displayed exactly once. Write it down: it is the only
way to reset a forgotten password.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := createManager()
			if err != nil {
				return err
			}
			defer m.Close()

			password, err := getNewPassword("Enter new password: ")
			if err != nil {
				return err
			}
			defer crypto.ClearBytes(password)

			stop := startSpinner("Deriving keys...")
			code, err := m.Init(cmd.Context(), password)
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Vault created for %s in %s", m.Owner(), m.Path())
			printRecoveryCode(out, code)
			return nil
		},
	}
}
