package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/wayfarer-cli/internal/config"
	"github.com/xkilldash9x/wayfarer-cli/internal/observability"
	"github.com/xkilldash9x/wayfarer-cli/internal/store"
)

// newResultsCmd creates the `results` command for inspecting persisted
// extraction payloads.
func newResultsCmd() *cobra.Command {
	var key string

	resultsCmd := &cobra.Command{
		Use:   "results",
		Short: "Lists persisted extraction results, or prints one by key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if err := viper.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}

			fs, err := store.NewFileStore(cfg.Store.Dir, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to open result store: %w", err)
			}

			if key != "" {
				entry, err := fs.Get(key)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(entry, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			entries, err := fs.List()
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].SavedAt.Before(entries[j].SavedAt)
			})
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results stored.")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s\n",
					e.Key, e.SavedAt.Format("2006-01-02 15:04:05"), e.Task)
			}
			return nil
		},
	}

	resultsCmd.Flags().StringVarP(&key, "key", "k", "", "Print the full entry stored under this key.")
	return resultsCmd
}

func init() {
	rootCmd.AddCommand(newResultsCmd())
}
