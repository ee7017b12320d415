// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Outcome is the terminal state of one Entry after materialization.
// Every Entry moves from pending to exactly one Outcome; there are no
// intermediate states and no retries.
type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Entry is one paper or documentation reference parsed from a listing.
type Entry struct {
	// Category is the slug of the most recent "## " header.
	Category string `json:"category" yaml:"category"`

	// Year is the four-digit publication year.
	Year string `json:"year" yaml:"year"`

	// Title is the raw title text, trimmed.
	Title string `json:"title" yaml:"title"`

	// URL is the link target. It is not validated beyond an http(s) prefix.
	URL string `json:"url" yaml:"url"`

	// Line is the 1-based line number of the entry in its listing.
	Line int `json:"line" yaml:"line"`
}

// Result is what the materializer reports for a single Entry.
type Result struct {
	Entry   Entry
	Path    string
	Outcome Outcome

	// Bytes is the number of bytes written. Zero for skipped and failed entries.
	Bytes int64

	// Err is set only when Outcome is OutcomeFailed.
	Err error
}

// Failure retains a failed Entry and its cause for the end-of-run report.
type Failure struct {
	Entry Entry
	Path  string
	Err   error
}
