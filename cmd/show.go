package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/core"
)

func newShowCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record",
		Long:  `Prints the fields of one record. Passwords, card numbers, CVVs and PINs are masked unless --reveal is given.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			rec, err := m.Record(args[0])
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), core.FormatRecord(rec, reveal))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "print secret fields in clear")
	return cmd
}
