// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the sciqa CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/sciqa/internal/secrets"
	"github.com/pdiddy/sciqa/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the sciqa CLI.
var rootCmd = &cobra.Command{
	Use:   "sciqa",
	Short: "Scientific question answering over large language models",
	Long: `sciqa answers scientific questions with a language model and recovers
a structured answer (background, reasoning, answer, confidence, citations,
further reading) from whatever the model returns.

Use serve to run the HTTP API, ask for a one-off question, train and
evaluate to maintain the few-shot example set, and history to browse
archived answers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./sciqa.yaml or ~/.config/sciqa/sciqa.yaml)")
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: reading .env: %v\n", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if err := configureViper(viper.GetViper(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		return
	}
	if used := viper.ConfigFileUsed(); used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

// configureViper registers defaults and environment bindings on v and
// reads the config file, if any. A missing default config file is not an
// error; a missing explicit one is.
func configureViper(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sciqa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "sciqa"))
		}
	}

	v.SetEnvPrefix("SCIQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, types.DefaultConfig())

	// Conventional provider variables, as read by the vendors' own SDKs.
	v.BindEnv("model.openai.api_key", "SCIQA_MODEL_OPENAI_API_KEY", "OPENAI_API_KEY")
	v.BindEnv("model.anthropic.api_key", "SCIQA_MODEL_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	v.BindEnv("model.gemini.api_key", "SCIQA_MODEL_GEMINI_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it even when
// no config file mentions it.
func setDefaults(v *viper.Viper, d types.Config) {
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.allow_origin", d.Server.AllowOrigin)
	v.SetDefault("server.rate_limit_rps", d.Server.RateLimitRPS)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)
	v.SetDefault("server.max_question_len", d.Server.MaxQuestionLen)

	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.fallback", d.Model.Fallback)
	v.SetDefault("model.temperature", d.Model.Temperature)
	v.SetDefault("model.max_tokens", d.Model.MaxTokens)
	for name, p := range map[string]types.ProviderConfig{
		types.ProviderOpenAI:    d.Model.OpenAI,
		types.ProviderAnthropic: d.Model.Anthropic,
		types.ProviderGemini:    d.Model.Gemini,
	} {
		prefix := "model." + name + "."
		v.SetDefault(prefix+"model", p.Model)
		v.SetDefault(prefix+"api_key", p.APIKey)
		v.SetDefault(prefix+"max_retries", p.MaxRetries)
		v.SetDefault(prefix+"base_url", p.BaseURL)
	}

	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)

	v.SetDefault("archive.enabled", d.Archive.Enabled)
	v.SetDefault("archive.path", d.Archive.Path)
	v.SetDefault("archive.max_results", d.Archive.MaxResults)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("training.program_path", d.Training.ProgramPath)
	v.SetDefault("training.data_path", d.Training.DataPath)
	v.SetDefault("training.max_examples", d.Training.MaxExamples)
}

// loadConfig decodes v into a Config and fills empty credentials from the
// secrets directory.
func loadConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if applied := secrets.Apply(&cfg, loadedSecrets); len(applied) > 0 {
		fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", applied)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
