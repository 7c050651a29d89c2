package cmd

import (
	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the encrypted vault blob to a file",
		Long: `Copies the owner's encrypted envelope to a JSON file. The file stays
encrypted and can only be opened with the password or the recovery code.
If <file> is a directory the blob is written to <owner>.json inside it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Export(cmd.Context(), args[0]); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Exported vault of %s to %s", m.Owner(), args[0])
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load an encrypted vault blob from a file",
		Long: `Stores an envelope previously written by export. The blob must belong to the
same owner. If <file> is a directory, <owner>.json inside it is read. An
existing vault is only replaced with --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := createManager()
			if err != nil {
				return err
			}
			defer m.Close()

			if err := m.Import(cmd.Context(), args[0], force); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Imported vault of %s from %s", m.Owner(), args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing vault")
	return cmd
}
