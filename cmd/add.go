package cmd

import (
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/vault"
)

func newAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a record to the vault",
	}

	cmd.AddCommand(
		newAddKindCmd("credential", vault.KindCredential, "Add a login credential"),
		newAddKindCmd("note", vault.KindNote, "Add a secure note"),
		newAddKindCmd("card", vault.KindPaymentCard, "Add a payment card"),
	)
	return cmd
}

func newAddKindCmd(use string, kind vault.Kind, short string) *cobra.Command {
	var f recordFlags

	cmd := &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := vault.Record{Kind: kind, Name: args[0]}
			f.apply(cmd, &rec)
			if err := f.prompt(&rec); err != nil {
				return err
			}

			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			added, err := m.AddRecord(cmd.Context(), rec)
			if err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Added %s %s (%s)", added.Kind, added.Name, added.ID)
			return nil
		},
	}

	f.register(cmd, kind)
	return cmd
}
