// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/pdiddy/paperdl/pkg/types"
)

// Observer receives the state transitions of each entry. Started is called
// only for entries that go to the network. Progress is called after each
// chunk is written; total is -1 when the server sent no Content-Length.
// Finished is called once per entry that reaches a terminal outcome; an
// entry cut short by cancellation gets no Finished call.
type Observer interface {
	Started(e types.Entry, path string)
	Progress(e types.Entry, written, total int64)
	Finished(r types.Result)
}

type nopObserver struct{}

func (nopObserver) Started(types.Entry, string)        {}
func (nopObserver) Progress(types.Entry, int64, int64) {}
func (nopObserver) Finished(types.Result)              {}

type multiObserver []Observer

func (mo multiObserver) Started(e types.Entry, path string) {
	for _, o := range mo {
		o.Started(e, path)
	}
}

func (mo multiObserver) Progress(e types.Entry, written, total int64) {
	for _, o := range mo {
		o.Progress(e, written, total)
	}
}

func (mo multiObserver) Finished(r types.Result) {
	for _, o := range mo {
		o.Finished(r)
	}
}

// Observers combines observers into one, dropping nils.
func Observers(obs ...Observer) Observer {
	var mo multiObserver
	for _, o := range obs {
		if o != nil {
			mo = append(mo, o)
		}
	}
	switch len(mo) {
	case 0:
		return nopObserver{}
	case 1:
		return mo[0]
	}
	return mo
}

// TextObserver prints one status line per entry, with paths shown relative
// to the output root. With progress enabled it also redraws a percentage
// while a body streams.
type TextObserver struct {
	w        io.Writer
	root     string
	progress bool

	lastPct int
	drawing bool
}

// NewTextObserver returns a TextObserver writing to w.
func NewTextObserver(w io.Writer, root string, progress bool) *TextObserver {
	return &TextObserver{w: w, root: root, progress: progress, lastPct: -1}
}

func (t *TextObserver) Started(e types.Entry, path string) {
	fmt.Fprintf(t.w, "download: %s -> %s\n", e.Title, t.rel(path))
}

func (t *TextObserver) Progress(_ types.Entry, written, total int64) {
	if !t.progress {
		return
	}
	if total <= 0 {
		fmt.Fprintf(t.w, "\r  %s", formatBytes(written))
		t.drawing = true
		return
	}
	pct := int(written * 100 / total)
	if pct == t.lastPct {
		return
	}
	t.lastPct = pct
	t.drawing = true
	fmt.Fprintf(t.w, "\r  %3d%% of %s", pct, formatBytes(total))
}

func (t *TextObserver) Finished(r types.Result) {
	if t.drawing {
		fmt.Fprintln(t.w)
		t.drawing = false
	}
	t.lastPct = -1

	switch r.Outcome {
	case types.OutcomeSkipped:
		fmt.Fprintf(t.w, "skipped:  %s (already downloaded)\n", t.rel(r.Path))
	case types.OutcomeFailed:
		fmt.Fprintf(t.w, "failed:   line %d: %s (%v)\n", r.Entry.Line, r.Entry.URL, r.Err)
	}
}

func (t *TextObserver) rel(path string) string {
	if rel, err := filepath.Rel(t.root, path); err == nil {
		return rel
	}
	return path
}

// PrintSummary writes the batch counts followed by every failure, so none
// is lost in the scroll of per-entry lines.
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\nSummary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		s.Succeeded, s.Skipped, s.Failed, s.Total())
	if !s.HasFailures() {
		return
	}
	fmt.Fprintf(w, "\nFailed downloads:\n")
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  [%s/%s] %s\n    url:   %s\n    error: %v\n",
			f.Entry.Category, f.Entry.Year, f.Entry.Title, f.Entry.URL, f.Err)
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
