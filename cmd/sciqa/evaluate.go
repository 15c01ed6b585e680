// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/training"
	"github.com/pdiddy/sciqa/pkg/types"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score the trained program against a test set",
	Long: `Evaluate answers every question in a test set with the trained program
and reports exact-match accuracy and the mean reward (answer overlap,
citation coverage, and reasoning overlap). The test set is either a list
of items or a dataset whose validation split is used.`,
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	programPath := cfg.Training.ProgramPath
	if v, _ := cmd.Flags().GetString("program"); v != "" {
		programPath = v
	}
	dataPath := cfg.Training.DataPath
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		dataPath = v
	}

	program, err := training.LoadProgram(programPath)
	if err != nil {
		return err
	}
	items, err := training.LoadTestSet(dataPath)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return fmt.Errorf("no test items in %s", dataPath)
	}

	// Cached answers would hide regressions in the program under test.
	cfg.Cache.Enabled = false
	a, err := newApp(cfg, &program)
	if err != nil {
		return err
	}
	defer a.Close()

	answer := func(ctx context.Context, q types.Query) (types.Answer, error) {
		ctx, cancel := context.WithTimeout(ctx, cfg.Server.RequestTimeout)
		defer cancel()
		res, err := a.service.Answer(ctx, q)
		return res.Answer, err
	}

	fmt.Fprintf(os.Stdout, "Evaluating %s (%d examples) on %d items\n", programPath, len(program.Examples), len(items))
	m, err := training.Evaluate(cmd.Context(), answer, items, os.Stdout)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	}
	fmt.Fprintf(os.Stdout, "\nitems: %d, correct: %d, failed: %d\naccuracy: %.3f, mean reward: %.3f\n",
		m.Count, m.Correct, m.Failed, m.Accuracy, m.MeanReward)
	return nil
}

func init() {
	evaluateCmd.Flags().String("program", "", "trained program file (overrides training.program_path)")
	evaluateCmd.Flags().String("data", "", "test set file (overrides training.data_path)")
	evaluateCmd.Flags().Bool("json", false, "output metrics as JSON")

	rootCmd.AddCommand(evaluateCmd)
}
