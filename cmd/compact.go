package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

func newCompactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim unused space in the vault file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			before := fileSize(m.Path())
			if err := m.Compact(); err != nil {
				return err
			}

			printSuccess(cmd.OutOrStdout(), "Compacted %s (%d -> %d bytes)", m.Path(), before, fileSize(m.Path()))
			return nil
		},
	}
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
