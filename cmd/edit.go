package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/core"
	"github.com/illarion/keepvault/internal/vault"
)

func newEditCmd() *cobra.Command {
	var (
		f      recordFlags
		reveal bool
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a record",
		Long: `Changes the given fields of a record and prints what changed.

Only flags that are passed are applied; pass an empty value to clear a field.
Secret fields are masked in the diff unless --reveal is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			current, err := m.Record(args[0])
			if err != nil {
				return err
			}

			// Prompts run before the update so the vault lock is not held
			// while waiting on the terminal.
			edited := current
			f.apply(cmd, &edited)
			if err := f.prompt(&edited); err != nil {
				return err
			}

			before, after, err := m.UpdateRecord(cmd.Context(), current.ID, func(r *vault.Record) {
				kind := r.Kind
				*r = edited
				r.Kind = kind
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			diff := core.RecordDiff(before, after, reveal)
			if diff == "" {
				fmt.Fprintln(out, mutedText.Sprint("(no changes)"))
				return nil
			}
			fmt.Fprint(out, diff)
			printSuccess(out, "Updated %s", after.ID)
			return nil
		},
	}

	f.register(cmd, "")
	cmd.Flags().BoolVarP(&reveal, "reveal", "r", false, "show secret fields in the diff")
	return cmd
}
