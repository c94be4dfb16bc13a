package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/stockpile/internal/catalog"
)

func listCmd(opts *globalOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the catalog with selection and install state",
		Long: `Print the catalog tree. Each line shows the selection state
([x] checked, [~] partly checked, [ ] unchecked), the size and markers for
installed components and available updates.

Filter directives: name:, desc:, size:>100MB, required:, installed:,
update:, kind:category|component. Bare words match id or title.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRun(cmd.Context(), opts, nil)
			if err != nil {
				return err
			}
			defer r.close()

			s := r.session
			tree := s.Tree()
			sel := s.Selection()

			for _, h := range s.Filter(filter) {
				n := tree.Node(h)
				mark := "[ ]"
				switch sel.State(h) {
				case catalog.Checked:
					mark = "[x]"
				case catalog.Partial:
					mark = "[~]"
				}

				var flags []string
				if n.Required {
					flags = append(flags, "required")
				}
				if n.IsComponent() && s.Tracker().Exists(n.ID) {
					flags = append(flags, paint("32", "installed"))
				}
				if s.HasUpdate(n.ID) {
					flags = append(flags, paint("33", "update"))
				}
				if s.NeedsReinstall(n.ID) {
					flags = append(flags, paint("31", "reinstall"))
				}

				line := fmt.Sprintf("%s%s %s %s", strings.Repeat("  ", tree.Depth(h)), mark, n.ID, catalog.FormatBytes(catalog.CategorySize(tree, h)))
				if len(flags) > 0 {
					line += " (" + strings.Join(flags, ", ") + ")"
				}
				fmt.Println(line)
			}
			fmt.Printf("\nSelected: %s\n", catalog.FormatBytes(sel.Total()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter, "filter", "f", "", "filter query")

	return cmd
}
