// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds HTTP settings for fetching listing URLs.
type HTTPConfig struct {
	// Timeout bounds connecting and waiting for response headers. It does
	// not bound streaming the body.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with each request. Empty
	// leaves the Go default in place.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the fetch stage.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutDir is the root of the <category>/<year>/<title>.pdf tree.
	OutDir string `json:"out_dir" yaml:"out_dir"`

	// ChunkSize is the copy buffer size used while streaming a body.
	ChunkSize int `json:"chunk_size" yaml:"chunk_size"`
}

// CatalogConfig holds settings for the SQLite download catalog.
type CatalogConfig struct {
	// Path is the database file. Empty disables the catalog.
	Path string `json:"path" yaml:"path"`

	// MaxResults is the default row limit for catalog queries (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error (default info).
	Level string `json:"level" yaml:"level"`

	// Format is "console" or "json" (default console).
	Format string `json:"format" yaml:"format"`
}
