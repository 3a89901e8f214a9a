package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/example/go-translit/internal/rules"
	"github.com/example/go-translit/internal/symtab"
	"github.com/example/go-translit/internal/translit"
	"github.com/spf13/cobra"
)

func newTableCmd() *cobra.Command {
	var asJSON bool
	var listRules bool

	cmd := &cobra.Command{
		Use:   "table",
		Short: "Print the configured symbol table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if listRules {
				for _, name := range rules.Available() {
					if _, err := fmt.Fprintln(out, name); err != nil {
						return err
					}
				}
				return nil
			}

			t, err := translit.LoadTable(cfg.Translit)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				enc.SetEscapeHTML(false)
				return enc.Encode(struct {
					Name       string         `json:"name"`
					Policy     string         `json:"policy"`
					StressMark string         `json:"stress_mark"`
					Entries    []symtab.Entry `json:"entries"`
				}{t.Name(), t.Policy().String(), t.StressMark(), t.Entries()})
			}

			fmt.Fprintf(out, "# table: %s  on_unknown: %s  presets: %v\n", t.Name(), t.Policy(), symtab.Presets())
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, e := range t.Entries() {
				fmt.Fprintf(tw, "%s\t%s\t%U\n", e.Key, e.Glyph, []rune(e.Glyph))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the table as JSON")
	cmd.Flags().BoolVar(&listRules, "list-rules", false, "List the built-in rule names instead")

	return cmd
}
