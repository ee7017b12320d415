// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperdl/internal/acquire"
	"github.com/pdiddy/paperdl/internal/catalog"
	"github.com/pdiddy/paperdl/internal/httputil"
	"github.com/pdiddy/paperdl/internal/listing"
	"github.com/pdiddy/paperdl/internal/report"
	"github.com/pdiddy/paperdl/pkg/types"
)

const defaultUserAgent = "paperdl/0.1"

var fetchCmd = &cobra.Command{
	Use:   "fetch <listing>",
	Short: "Download every PDF linked from a listing",
	Long: `Fetch parses the listing and downloads each linked PDF, one at a time,
into <out>/<Category>/<Year>/<Title>.pdf. Existing files are skipped without
any network access. A failed download is reported and the run continues;
every failure is listed again at the end.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.Duration("timeout", httputil.DefaultTimeout, "longest wait for the response or the next body bytes")
	f.Int("chunk-size", acquire.DefaultChunkSize, "streaming buffer size in bytes")
	f.String("user-agent", defaultUserAgent, "User-Agent header")
	f.String("report", "", "write a YAML run report to this file")
	f.Bool("no-catalog", false, "do not record outcomes in the catalog")
	f.Bool("progress", false, "show download progress")
	f.Bool("dry-run", false, "print target paths without downloading")

	for key, flag := range map[string]string{
		"timeout":    "timeout",
		"chunk_size": "chunk-size",
		"user_agent": "user-agent",
		"report":     "report",
		"no_catalog": "no-catalog",
		"progress":   "progress",
	} {
		if err := viper.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(fetchCmd)
}

func fetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   viper.GetDuration("timeout"),
			UserAgent: viper.GetString("user_agent"),
		},
		OutDir:    viper.GetString("out"),
		ChunkSize: viper.GetInt("chunk_size"),
	}
}

func runFetch(cmd *cobra.Command, args []string) error {
	listingPath := args[0]
	f, err := listing.Open(listingPath)
	if err != nil {
		return err
	}
	defer f.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	cfg := fetchConfig()

	if dryRun, _ := cmd.Flags().GetBool("dry-run"); dryRun {
		return planFetch(out, acquire.New(nil, cfg), f)
	}

	runID := uuid.NewString()
	observers := []acquire.Observer{acquire.NewTextObserver(out, cfg.OutDir, viper.GetBool("progress"))}

	var store *catalog.Store
	if !viper.GetBool("no_catalog") {
		store, err = catalog.Open(types.CatalogConfig{Path: catalogPath()})
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.BeginRun(ctx, runID, listingPath, time.Now()); err != nil {
			return interrupted(err)
		}
		observers = append(observers, store.Recorder(runID, logger))
	}

	m := acquire.New(
		httputil.NewClient(cfg.HTTPConfig),
		cfg,
		acquire.WithObserver(acquire.Observers(observers...)),
		acquire.WithLogger(logger.With(zap.String("run", runID))),
	)

	started := time.Now()
	summary, runErr := m.Run(ctx, listing.Entries(f))
	finished := time.Now()

	acquire.PrintSummary(out, summary)

	if store != nil {
		counts := catalog.RunCounts{Succeeded: summary.Succeeded, Skipped: summary.Skipped, Failed: summary.Failed}
		if err := store.EndRun(context.WithoutCancel(ctx), runID, counts, finished); err != nil {
			logger.Warn("catalog run update failed", zap.Error(err))
		}
	}

	if reportPath := viper.GetString("report"); reportPath != "" {
		r := report.Build(runID, listingPath, cfg.OutDir, summary, started, finished)
		if err := report.Write(reportPath, r); err != nil {
			logger.Error("writing report failed", zap.String("path", reportPath), zap.Error(err))
		} else {
			fmt.Fprintf(out, "Report written to %s\n", reportPath)
		}
	}

	return interrupted(runErr)
}

// interrupted maps a cancelled context to errInterrupted so every abort path
// exits the same way.
func interrupted(err error) error {
	if errors.Is(err, context.Canceled) {
		return errInterrupted
	}
	return err
}

// planFetch lists what fetch would do without touching the network.
func planFetch(w io.Writer, m *acquire.Materializer, r io.Reader) error {
	var pending, existing int
	for e, err := range listing.Entries(r) {
		if err != nil {
			return err
		}
		path, exists := m.Plan(e)
		status := "new"
		if exists {
			status = "exists"
			existing++
		} else {
			pending++
		}
		fmt.Fprintf(w, "%-6s  %s  <- %s\n", status, path, e.URL)
	}
	fmt.Fprintf(w, "\n%d to download, %d already present\n", pending, existing)
	return nil
}
