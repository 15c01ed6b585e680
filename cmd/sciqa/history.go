// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/archive"
)

var historyCmd = &cobra.Command{
	Use:   "history [query]",
	Short: "Search the answer archive",
	Long: `History searches previously answered questions in the SQLite archive.
The optional query matches question text or answer content. Results are
newest first. Use --export to dump the matching entries as YAML.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	opts := archive.QueryOptions{}
	if len(args) == 1 {
		opts.Query = args[0]
	}
	opts.Domain, _ = cmd.Flags().GetString("domain")
	opts.MinConfidence, _ = cmd.Flags().GetFloat64("min-confidence")
	opts.MaxResults, _ = cmd.Flags().GetInt("limit")

	// The archive may have been filled by a server with a different
	// configuration, so open it whether or not archiving is enabled here.
	store, err := archive.NewStore(cfg.Archive)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if export, _ := cmd.Flags().GetBool("export"); export {
		return store.ExportYAML(ctx, os.Stdout, opts)
	}

	entries, err := store.Search(ctx, opts)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printEntries(os.Stdout, entries)
	return nil
}

// printEntries writes a one-line summary per archived answer.
func printEntries(w io.Writer, entries []archive.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No archived answers found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-19s  %s  %4s  %s\n", "ID", "CREATED", runewidth.FillRight("DOMAIN", 12), "CONF", "QUESTION")
	for _, e := range entries {
		domain := e.Query.Domain
		if domain == "" {
			domain = "-"
		}
		fmt.Fprintf(w, "%-36s  %-19s  %s  %.2f  %s\n",
			e.ID,
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			runewidth.FillRight(truncate(domain, 12), 12),
			e.Answer.Confidence,
			truncate(e.Query.Question, 60))
	}
	fmt.Fprintf(w, "\n%d answer(s)\n", len(entries))
}

// truncate collapses whitespace in s and shortens it to n terminal cells,
// marking the cut with "...".
func truncate(s string, n int) string {
	return runewidth.Truncate(strings.Join(strings.Fields(s), " "), n, "...")
}

func init() {
	historyCmd.Flags().String("domain", "", "filter by domain (case-insensitive)")
	historyCmd.Flags().Float64("min-confidence", 0, "minimum answer confidence")
	historyCmd.Flags().Int("limit", 0, "maximum number of results (default archive.max_results)")
	historyCmd.Flags().Bool("json", false, "output results as JSON")
	historyCmd.Flags().Bool("export", false, "export matching entries as YAML")

	rootCmd.AddCommand(historyCmd)
}
