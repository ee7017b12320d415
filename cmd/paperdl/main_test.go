// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paperdl/internal/listing"
	"github.com/pdiddy/paperdl/internal/report"
)

// execute runs the root command with args after resetting every flag to its
// default, since cobra keeps flag values between executions.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeContext(t, context.Background(), args...)
}

func executeContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.PersistentFlags().VisitAll(reset)
	cmd.Flags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func newPDFServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if strings.HasPrefix(r.URL.Path, "/pdf/") {
			fmt.Fprint(w, "%PDF-1.4 "+r.URL.Path)
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeListing(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "papers.md")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestFetch_EndToEnd(t *testing.T) {
	var hits int32
	ts := newPDFServer(t, &hits)
	dir := t.TempDir()
	out := filepath.Join(dir, "downloads")
	reportPath := filepath.Join(dir, "report.yaml")

	listingPath := writeListing(t, dir, strings.Join([]string{
		"## Sim-to-Real Transfer",
		"- [2025] RE3SIM: Generating High-Fidelity Simulation Data [[paper]](" + ts.URL + "/pdf/re3sim.pdf)",
		"- [2024] Gone Paper [[paper](" + ts.URL + "/gone.pdf)]",
	}, "\n"))

	stdout, err := execute(t, "fetch", listingPath, "--out", out, "--report", reportPath)
	require.NoError(t, err, "failed downloads must not fail the run")

	assert.FileExists(t, filepath.Join(out, "Sim_to_Real_Transfer", "2025", "RE3SIM_Generating_High_Fidelity_Simulation_Data.pdf"))
	assert.NoFileExists(t, filepath.Join(out, "Sim_to_Real_Transfer", "2024", "Gone_Paper.pdf"))
	assert.Contains(t, stdout, "Summary: 1 downloaded, 0 skipped, 1 failed (total: 2)")
	assert.Contains(t, stdout, "Gone Paper")
	assert.Contains(t, stdout, ts.URL+"/gone.pdf")

	r, err := report.Read(reportPath)
	require.NoError(t, err)
	require.Len(t, r.Failures, 1)
	assert.Equal(t, "Gone Paper", r.Failures[0].Title)
	assert.Equal(t, ts.URL+"/gone.pdf", r.Failures[0].URL)

	assert.FileExists(t, filepath.Join(out, catalogFile))
	catalogOut, err := execute(t, "catalog", "--out", out, "--outcome", "failed")
	require.NoError(t, err)
	assert.Contains(t, catalogOut, "Gone Paper")
	assert.NotContains(t, catalogOut, "RE3SIM")

	atomic.StoreInt32(&hits, 0)
	stdout, err = execute(t, "fetch", listingPath, "--out", out, "--no-catalog")
	require.NoError(t, err)
	assert.Contains(t, stdout, "skipped:")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "only the failed entry is retried")
}

func TestFetch_MissingInput(t *testing.T) {
	_, err := execute(t, "fetch", filepath.Join(t.TempDir(), "missing.md"))
	require.Error(t, err)
	assert.ErrorIs(t, err, listing.ErrInputNotFound)
}

func TestFetch_InterruptedMidDownload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("%PDF"))
		w.(http.Flusher).Flush()
		cancel()
		<-r.Context().Done()
	}))
	defer ts.Close()

	dir := t.TempDir()
	out := filepath.Join(dir, "downloads")
	listingPath := writeListing(t, dir, strings.Join([]string{
		"## A",
		"- [2021] Halted Paper [[paper](" + ts.URL + "/1)]",
		"- [2022] Never Started [[paper](" + ts.URL + "/2)]",
	}, "\n"))

	stdout, err := executeContext(t, ctx, "fetch", listingPath, "--out", out)
	require.ErrorIs(t, err, errInterrupted)
	assert.NotContains(t, stdout, "failed:")
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits), "no entry starts after the interrupt")

	targetDir := filepath.Join(out, "A", "2021")
	assert.NoFileExists(t, filepath.Join(targetDir, "Halted_Paper.pdf"))
	parts, err := filepath.Glob(filepath.Join(targetDir, ".paperdl-*.part"))
	require.NoError(t, err)
	assert.Empty(t, parts, "temp file left behind")

	catalogOut, err := execute(t, "catalog", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, catalogOut, "No entries recorded.")
}

func TestFetch_InterruptedBeforeCatalog(t *testing.T) {
	var hits int32
	ts := newPDFServer(t, &hits)
	dir := t.TempDir()
	listingPath := writeListing(t, dir, "## A\n- [2021] One [[paper]("+ts.URL+"/pdf/1)]\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := executeContext(t, ctx, "fetch", listingPath, "--out", filepath.Join(dir, "downloads"))
	require.ErrorIs(t, err, errInterrupted)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"success", nil, 0, ""},
		{"interrupted", errInterrupted, 130, "Interrupted by user\n"},
		{"wrapped interrupt", fmt.Errorf("fetch: %w", errInterrupted), 130, "Interrupted by user\n"},
		{"other", errors.New("boom"), 1, "Error: boom\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w bytes.Buffer
			assert.Equal(t, tt.code, exitCode(&w, tt.err))
			assert.Equal(t, tt.msg, w.String())
		})
	}
}

func TestInterrupted(t *testing.T) {
	assert.ErrorIs(t, interrupted(fmt.Errorf("begin run: %w", context.Canceled)), errInterrupted)
	assert.NoError(t, interrupted(nil))
	boom := errors.New("boom")
	assert.Equal(t, boom, interrupted(boom))
}

func TestFetch_DryRun(t *testing.T) {
	var hits int32
	ts := newPDFServer(t, &hits)
	dir := t.TempDir()
	out := filepath.Join(dir, "downloads")
	listingPath := writeListing(t, dir, "## A\n- [2021] One [[paper]("+ts.URL+"/pdf/1)]\n")

	stdout, err := execute(t, "fetch", listingPath, "--out", out, "--dry-run")
	require.NoError(t, err)

	assert.Contains(t, stdout, filepath.Join(out, "A", "2021", "One.pdf"))
	assert.Contains(t, stdout, "1 to download, 0 already present")
	assert.Zero(t, atomic.LoadInt32(&hits))
	assert.NoDirExists(t, out)
}

func TestParse(t *testing.T) {
	dir := t.TempDir()
	listingPath := writeListing(t, dir, strings.Join([]string{
		"## Sim-to-Real Transfer",
		"- [2025] RE3SIM [[paper](https://example.org/re3sim.pdf)]",
		"- [2025] Single Bracket [paper](https://example.org/single.pdf)",
	}, "\n"))

	stdout, err := execute(t, "parse", listingPath, "--out", "downloads")
	require.NoError(t, err)
	assert.Contains(t, stdout, "category: Sim_to_Real_Transfer")
	assert.Contains(t, stdout, "title: RE3SIM")
	assert.Contains(t, stdout, "path: "+filepath.Join("downloads", "Sim_to_Real_Transfer", "2025", "RE3SIM.pdf"))
	assert.NotContains(t, stdout, "Single Bracket")
}

func TestCatalog_BadOutcome(t *testing.T) {
	_, err := execute(t, "catalog", "--out", t.TempDir(), "--outcome", "pending")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown outcome")
}

func TestVersion(t *testing.T) {
	stdout, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "paperdl dev\n", stdout)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
