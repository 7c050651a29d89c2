package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/illarion/keepvault/internal/vault"
)

func newLsCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List records in the vault",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != "" && !vault.Kind(kind).Valid() {
				return errors.Errorf("unknown kind %q (want one of %s)", kind, kindNames())
			}

			m, err := openUnlocked(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer m.Close()

			records, err := m.Records()
			if err != nil {
				return err
			}

			sort.SliceStable(records, func(i, j int) bool {
				return records[i].Name < records[j].Name
			})

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			n := 0
			for _, r := range records {
				if kind != "" && r.Kind != vault.Kind(kind) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Kind, r.Name)
				n++
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if n == 0 {
				fmt.Fprintln(out, mutedText.Sprint("(no records)"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only list records of this kind ("+kindNames()+")")
	return cmd
}

func kindNames() string {
	names := make([]string, len(vault.Kinds))
	for i, k := range vault.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
