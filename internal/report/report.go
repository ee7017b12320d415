// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report writes the end-of-run failure report as YAML so failed
// downloads can be reviewed or retried by hand after the run scrolls away.
package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paperdl/internal/acquire"
)

// Report is the on-disk form of a run summary.
type Report struct {
	RunID    string    `yaml:"run_id"`
	Listing  string    `yaml:"listing"`
	OutDir   string    `yaml:"out_dir"`
	Started  time.Time `yaml:"started"`
	Finished time.Time `yaml:"finished"`
	Counts   Counts    `yaml:"counts"`
	Failures []Failure `yaml:"failures"`
}

// Counts mirrors the summary tallies.
type Counts struct {
	Succeeded int `yaml:"succeeded"`
	Skipped   int `yaml:"skipped"`
	Failed    int `yaml:"failed"`
	Total     int `yaml:"total"`
}

// Failure is one failed entry with its error rendered as text.
type Failure struct {
	Line     int    `yaml:"line"`
	Category string `yaml:"category"`
	Year     string `yaml:"year"`
	Title    string `yaml:"title"`
	URL      string `yaml:"url"`
	Path     string `yaml:"path"`
	Error    string `yaml:"error"`
}

// Build converts a run summary into a Report.
func Build(runID, listing, outDir string, s acquire.Summary, started, finished time.Time) Report {
	r := Report{
		RunID:    runID,
		Listing:  listing,
		OutDir:   outDir,
		Started:  started,
		Finished: finished,
		Counts: Counts{
			Succeeded: s.Succeeded,
			Skipped:   s.Skipped,
			Failed:    s.Failed,
			Total:     s.Total(),
		},
		Failures: make([]Failure, 0, len(s.Failures)),
	}
	for _, f := range s.Failures {
		errText := ""
		if f.Err != nil {
			errText = f.Err.Error()
		}
		r.Failures = append(r.Failures, Failure{
			Line:     f.Entry.Line,
			Category: f.Entry.Category,
			Year:     f.Entry.Year,
			Title:    f.Entry.Title,
			URL:      f.Entry.URL,
			Path:     f.Path,
			Error:    errText,
		})
	}
	return r
}

// Write saves r to path as YAML.
func Write(path string, r Report) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads a previously written report.
func Read(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r Report
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &r, nil
}
