// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listing parses Markdown paper listings into entries.
//
// A listing groups entries under "## " headers:
//
//	## Sim-to-Real Transfer
//	- [2025] RE3SIM: Generating High-Fidelity Simulation Data [[paper](https://arxiv.org/pdf/2502.08645)]
//
// Each header sets the category for the entries that follow it. Lines that
// are neither headers nor entries are ignored, as are entries that appear
// before the first header.
package listing

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/pdiddy/paperdl/pkg/types"
)

const maxLineSize = 1 << 20

// ErrInputNotFound is returned by Open when the listing file does not exist.
var ErrInputNotFound = errors.New("input file not found")

var (
	headerPattern = regexp.MustCompile(`^##\s+(.*)`)

	// entryPattern accepts both doubled-bracket spellings of the link:
	// "[[paper](url)]" and "[[paper]](url)". A single-bracket
	// "[paper](url)" does not match.
	entryPattern = regexp.MustCompile(
		`(?i)^\s*-\s*\[(\d{4})\]\s*(.+?)\s*\[\[(?:paper|documentation)\](?:\((https?://[^)]+)\)\]|\]\((https?://[^)]+)\))`)
)

// Open opens the listing at path. A missing file yields an error wrapping
// ErrInputNotFound.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s does not exist", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("opening listing: %w", err)
	}
	return f, nil
}

// Entries returns a lazy sequence of the entries in r. The active category
// is held by the iterator itself, so independent iterations never share
// state. A read error is yielded once with a zero Entry and ends the
// sequence.
func Entries(r io.Reader) iter.Seq2[types.Entry, error] {
	return func(yield func(types.Entry, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		category := ""
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()

			if m := headerPattern.FindStringSubmatch(line); m != nil {
				category = Slug(m[1])
				continue
			}

			e, ok := parseEntry(line)
			if !ok || category == "" {
				continue
			}
			e.Category = category
			e.Line = lineNo
			if !yield(e, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(types.Entry{}, fmt.Errorf("reading listing at line %d: %w", lineNo+1, err))
		}
	}
}

// Collect reads every entry in r into a slice.
func Collect(r io.Reader) ([]types.Entry, error) {
	var entries []types.Entry
	for e, err := range Entries(r) {
		if err != nil {
			return entries, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// parseEntry matches one entry line. Category and Line are left unset.
func parseEntry(line string) (types.Entry, bool) {
	m := entryPattern.FindStringSubmatch(line)
	if m == nil {
		return types.Entry{}, false
	}
	url := m[3]
	if url == "" {
		url = m[4]
	}
	return types.Entry{
		Year:  m[1],
		Title: strings.TrimSpace(m[2]),
		URL:   url,
	}, true
}
