// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperdl/internal/acquire"
	"github.com/pdiddy/paperdl/internal/listing"
	"github.com/pdiddy/paperdl/pkg/types"
)

var parseCmd = &cobra.Command{
	Use:   "parse <listing>",
	Short: "Print the entries found in a listing as YAML",
	Long: `Parse shows how the listing is read: each recognized entry with its
category, year, title, URL, line number, and target path. Use it to check
that a listing's link syntax is recognized before fetching.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

type parsedEntry struct {
	types.Entry `yaml:",inline"`
	Path        string `yaml:"path"`
}

func runParse(cmd *cobra.Command, args []string) error {
	f, err := listing.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := listing.Collect(f)
	if err != nil {
		return err
	}

	root := viper.GetString("out")
	parsed := make([]parsedEntry, 0, len(entries))
	for _, e := range entries {
		parsed = append(parsed, parsedEntry{Entry: e, Path: acquire.TargetPath(root, e)})
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(parsed); err != nil {
		return err
	}
	return enc.Close()
}
