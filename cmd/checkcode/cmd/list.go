package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/checkcode/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered codes",
	Long: `List the public codes of the registry in registration order. With --all,
private codes are listed too.

Examples:
  checkcode list
  checkcode list --all --format json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var searchCmd = &cobra.Command{
	Use:   "search [QUERY]",
	Short: "Search public codes",
	Long: `Search public codes by name, author or content. Matching is a substring match
under Unicode case folding. An empty query lists every public code.

Examples:
  checkcode search bakery
  checkcode search "jane doe" --field author`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)

	listCmd.Flags().Bool("all", false, "include private codes")
	listCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")

	searchCmd.Flags().String("field", string(registry.FieldAll), "field to match (all, name, author, content)")
	searchCmd.Flags().StringP("format", "f", outputFormatText, "output format (text, json, yaml)")
}

func runList(cmd *cobra.Command, _ []string) error {
	all, _ := cmd.Flags().GetBool("all")
	return runRegistryQuery(cmd, func(reg registry.Registry) ([]registry.Record, error) {
		if all {
			return reg.List(cmd.Context())
		}
		return reg.ListPublic(cmd.Context())
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	fieldFlag, _ := cmd.Flags().GetString("field")
	field, err := registry.ParseField(fieldFlag)
	if err != nil {
		return err
	}
	q := registry.Query{Field: field}
	if len(args) == 1 {
		q.Text = args[0]
	}
	return runRegistryQuery(cmd, func(reg registry.Registry) ([]registry.Record, error) {
		return reg.Search(cmd.Context(), q)
	})
}

func runRegistryQuery(cmd *cobra.Command, query func(registry.Registry) ([]registry.Record, error)) error {
	cfg := GetConfig()
	format, err := outputFormat(cmd, cfg, outputFormatText, outputFormatJSON, outputFormatYAML)
	if err != nil {
		return err
	}

	svc, closeFn, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer closeQuietly(closeFn)

	recs, err := query(svc.Registry())
	if err != nil {
		return fmt.Errorf("registry query failed: %w", err)
	}
	return writeRecords(cmd.OutOrStdout(), format, recs)
}
