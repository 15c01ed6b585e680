// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build the few-shot example set from a dataset",
	Long: `Train reads a dataset with train and validation splits, keeps the first
--max-examples training items as few-shot examples, and saves them as the
QA program used by ask, serve, and evaluate.`,
	RunE: runTrain,
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	dataPath := cfg.Training.DataPath
	if v, _ := cmd.Flags().GetString("data"); v != "" {
		dataPath = v
	}
	output := cfg.Training.ProgramPath
	if v, _ := cmd.Flags().GetString("output"); v != "" {
		output = v
	}
	maxExamples := cfg.Training.MaxExamples
	if cmd.Flags().Changed("max-examples") {
		maxExamples, _ = cmd.Flags().GetInt("max-examples")
	}

	ds, err := training.LoadDataset(dataPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Loaded %d training and %d validation items from %s\n",
		len(ds.Train), len(ds.Validation), dataPath)

	program := training.Train(ds, maxExamples)
	if err := training.SaveProgram(output, program); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Program saved to %s with %d examples\n", output, len(program.Examples))
	return nil
}

func init() {
	trainCmd.Flags().String("data", "", "dataset file (overrides training.data_path)")
	trainCmd.Flags().String("output", "", "program output file (overrides training.program_path)")
	trainCmd.Flags().Int("max-examples", 10, "maximum few-shot examples to keep")

	rootCmd.AddCommand(trainCmd)
}
