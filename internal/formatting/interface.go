// Package formatting renders catalog targets and sweep summaries for the
// command line in table, JSON or YAML form.
package formatting

import (
	"fmt"
	"io"
	"strings"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use table, json or yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Color  bool // Enable colored output
}

// TargetRow is one catalog target as shown by the CLI.
type TargetRow struct {
	RelationshipID           string `json:"relationshipId" yaml:"relationshipId"`
	Name                     string `json:"name" yaml:"name"`
	ElementType              string `json:"elementType" yaml:"elementType"`
	ElementID                string `json:"elementId" yaml:"elementId"`
	VersionStamp             string `json:"versionStamp" yaml:"versionStamp"`
	PermittedSynchronization string `json:"permittedSynchronization,omitempty" yaml:"permittedSynchronization,omitempty"`

	// Populated for targets held by a connector.
	Kind    string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Started *bool  `json:"started,omitempty" yaml:"started,omitempty"`
	Events  *bool  `json:"events,omitempty" yaml:"events,omitempty"`
}

// SweepSummary is the outcome of one reconciliation sweep.
type SweepSummary struct {
	Processed  int    `json:"processed" yaml:"processed"`
	Created    int    `json:"created" yaml:"created"`
	Updated    int    `json:"updated" yaml:"updated"`
	Unchanged  int    `json:"unchanged" yaml:"unchanged"`
	Removed    int    `json:"removed" yaml:"removed"`
	Failed     int    `json:"failed" yaml:"failed"`
	Duplicates int    `json:"duplicates" yaml:"duplicates"`
	Refreshed  int    `json:"refreshed" yaml:"refreshed"`
	Duration   string `json:"duration" yaml:"duration"`
}

// Formatter writes CLI output.
type Formatter interface {
	FormatTargets(rows []TargetRow) error
	FormatSweep(summary SweepSummary, rows []TargetRow) error
}

// New creates the formatter for options writing to w.
func New(options Options, w io.Writer) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options, w)
	case FormatYAML:
		return NewYAMLFormatter(options, w)
	default:
		return NewTableFormatter(options, w)
	}
}
