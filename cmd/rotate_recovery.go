package cmd

import (
	"github.com/spf13/cobra"
)

func newRotateRecoveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rotate-recovery",
		Short: "Replace the recovery code",
		Long:  `Issues a new recovery code. The previous code stops working immediately.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			stop := startSpinner("Wrapping master key...")
			code, err := m.RotateRecoveryCode(cmd.Context())
			stop()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Recovery code replaced")
			printRecoveryCode(out, code)
			return nil
		},
	}
}
