package formatting

import (
	"encoding/json"
	"io"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
	out     io.Writer
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options, out io.Writer) Formatter {
	return &JSONFormatter{options: options, out: out}
}

func (f *JSONFormatter) FormatTargets(rows []TargetRow) error {
	if rows == nil {
		rows = []TargetRow{}
	}
	return f.encode(struct {
		Targets []TargetRow `json:"targets"`
		Count   int         `json:"count"`
	}{rows, len(rows)})
}

func (f *JSONFormatter) FormatSweep(summary SweepSummary, rows []TargetRow) error {
	if rows == nil {
		rows = []TargetRow{}
	}
	return f.encode(struct {
		Sweep   SweepSummary `json:"sweep"`
		Targets []TargetRow  `json:"targets"`
	}{summary, rows})
}

// encode writes v as two-space indented JSON. Element ids often carry
// characters like '<' and '&', so HTML escaping is off.
func (f *JSONFormatter) encode(v any) error {
	enc := json.NewEncoder(f.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
