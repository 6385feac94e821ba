package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/xraph/resthook/catalog"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the event configuration and print the derived index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cat := catalog.New(cfg.Events, catalog.WithSchemas(cfg.Schemas))
		index, err := cat.Index()
		if err != nil {
			return err
		}

		keys := make([]string, 0, len(index))
		for k := range index {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := cmd.OutOrStdout()
		for _, k := range keys {
			res := index[k]
			scope := "owner"
			if res.AllOwners {
				scope = "all owners"
			}
			fmt.Fprintf(out, "%-40s -> %s (%s)\n", k, res.Event, scope)
		}
		for _, name := range cat.Names() {
			if cfg.Events[name] == "" {
				fmt.Fprintf(out, "%-40s -> %s (raw only)\n", "-", name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
