// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/citation"
	"github.com/pdiddy/sciqa/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one scientific question",
	Long: `Ask sends one question through the answering pipeline and prints the
recovered answer. Use --format json for the raw answer object or
--format csl for a CSL-YAML bibliography of its citations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	domain, _ := cmd.Flags().GetString("domain")
	qctx, _ := cmd.Flags().GetString("context")
	format, _ := cmd.Flags().GetString("format")

	switch format {
	case "text", "json", "csl":
	default:
		return fmt.Errorf("unsupported format %q: use text, json, or csl", format)
	}

	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	a, err := newApp(cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	q := types.Query{
		Question: strings.Join(args, " "),
		Domain:   domain,
		Context:  qctx,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.RequestTimeout)
	defer cancel()

	res, err := a.service.Answer(ctx, q)
	if err != nil {
		return err
	}
	return writeAnswer(os.Stdout, res.Answer, format)
}

// writeAnswer prints ans in the requested format.
func writeAnswer(w io.Writer, ans types.Answer, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	case "csl":
		return citation.WriteCSL(w, ans.Citations)
	}

	section := func(title, body string) {
		fmt.Fprintf(w, "\n----- %s -----\n%s\n", title, body)
	}
	section("BACKGROUND", ans.Background)
	section("REASONING", ans.Reasoning)
	section("ANSWER", ans.Answer)
	fmt.Fprintf(w, "\n----- CONFIDENCE: %.2f -----\n", ans.Confidence)

	fmt.Fprintln(w, "\n----- CITATIONS -----")
	if len(ans.Citations) == 0 {
		fmt.Fprintln(w, "No citations available.")
	}
	for _, c := range ans.Citations {
		fmt.Fprintf(w, "- %s\n", citation.Format(c))
	}

	fmt.Fprintln(w, "\n----- FURTHER READING -----")
	if len(ans.FurtherReading) == 0 {
		fmt.Fprintln(w, "No further reading suggestions available.")
	}
	for _, r := range ans.FurtherReading {
		fmt.Fprintf(w, "- %s\n", r)
	}
	return nil
}

func init() {
	askCmd.Flags().String("domain", "", "scientific domain (e.g. Physics, Biology)")
	askCmd.Flags().String("context", "", "additional context for the question")
	askCmd.Flags().String("format", "text", "output format: text, json, or csl")

	rootCmd.AddCommand(askCmd)
}
