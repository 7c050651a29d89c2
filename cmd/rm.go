package cmd

import (
	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"remove"},
		Short:   "Remove records from the vault",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			out := cmd.OutOrStdout()
			for _, id := range args {
				rec, err := m.Record(id)
				if err != nil {
					return err
				}
				if err := m.RemoveRecord(cmd.Context(), id); err != nil {
					return err
				}
				printSuccess(out, "Removed %s %s", rec.Kind, rec.Name)
			}
			return nil
		},
	}
}
