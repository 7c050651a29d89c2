package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/git"
	"github.com/illarion/keepvault/internal/keyring"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show vault state without unlocking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if _, err := os.Stat(flags.vaultPath); os.IsNotExist(err) {
				fmt.Fprintf(out, "No vault file at %s\n", flags.vaultPath)
				printHint(out, "Run %s to create one", codeText.Sprint("keepvault init"))
				return nil
			}

			m, err := openManager()
			if err != nil {
				return err
			}
			defer m.Close()

			state, err := m.State(cmd.Context())
			if err != nil {
				return err
			}
			status, err := m.Status()
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Vault:      %s (%d bytes)\n", status.Path, status.Size)
			if !status.Created.IsZero() {
				fmt.Fprintf(out, "Created:    %s\n", status.Created.Format(time.RFC3339))
			}
			fmt.Fprintf(out, "Cipher:     %s\n", status.Algorithm)
			fmt.Fprintf(out, "KDF:        %s\n", status.KDF)
			fmt.Fprintf(out, "Owner:      %s (%s)\n", m.Owner(), state)
			if status.Owner != nil {
				fmt.Fprintf(out, "Modified:   %s\n", status.Owner.Modified.Format(time.RFC3339))
			}
			if keyring.HasPassword(m.KeyringAccount()) {
				fmt.Fprintln(out, "Keyring:    password stored")
			} else {
				fmt.Fprintln(out, "Keyring:    not stored")
			}

			fmt.Fprintln(out, "\nOwners:")
			if len(status.Owners) == 0 {
				fmt.Fprintln(out, "  "+mutedText.Sprint("(none)"))
			}
			for _, o := range status.Owners {
				fmt.Fprintf(out, "  %-20s modified %s, %d bytes\n", o.OwnerID, o.Modified.Format(time.RFC3339), o.Size)
			}

			fmt.Fprint(out, git.FormatGitStatus(status.GitStatus))
			return nil
		},
	}
}
