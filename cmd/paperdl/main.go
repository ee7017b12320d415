// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperdl CLI, which downloads the
// PDFs linked from a Markdown paper listing into
// <out>/<category>/<year>/<title>.pdf.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperdl/internal/acquire"
	"github.com/pdiddy/paperdl/internal/logging"
	"github.com/pdiddy/paperdl/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// errInterrupted is returned by commands stopped by SIGINT or SIGTERM.
var errInterrupted = errors.New("interrupted by user")

const catalogFile = ".paperdl.db"

// logger is built from the log flags before any subcommand runs.
var logger = zap.NewNop()

// rootCmd is the base command for the paperdl CLI.
var rootCmd = &cobra.Command{
	Use:   "paperdl",
	Short: "Download the papers linked from a Markdown listing",
	Long: `paperdl reads a Markdown listing where "## " headers name categories and
entry lines look like

  - [2025] Some Paper Title [[paper](https://arxiv.org/pdf/2502.08645)]

and downloads every linked PDF to <out>/<Category>/<Year>/<Title>.pdf.
Files that already exist are skipped, so re-running is cheap.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(types.LogConfig{
			Level:  viper.GetString("log_level"),
			Format: viper.GetString("log_format"),
		})
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./paperdl.yaml or ~/.config/paperdl/config.yaml)")
	pf.String("out", acquire.DefaultOutDir, "root folder for downloaded PDFs")
	pf.String("catalog", "", "catalog database (default: <out>/"+catalogFile+")")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", logging.FormatConsole, "log format: console or json")

	for key, flag := range map[string]string{
		"out":        "out",
		"catalog":    "catalog",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		if err := viper.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperdl")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperdl"))
		}
	}

	viper.SetEnvPrefix("PAPERDL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// catalogPath resolves the catalog location from config, defaulting to a
// file inside the output root.
func catalogPath() string {
	if p := viper.GetString("catalog"); p != "" {
		return p
	}
	return filepath.Join(viper.GetString("out"), catalogFile)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if code := exitCode(os.Stderr, err); code != 0 {
		os.Exit(code)
	}
}

// exitCode reports err on w and returns the process exit status.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errInterrupted):
		fmt.Fprintln(w, "Interrupted by user")
		return 130
	default:
		fmt.Fprintln(w, "Error:", err)
		return 1
	}
}
