package formatting

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
	out     io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options, out io.Writer) Formatter {
	return &YAMLFormatter{options: options, out: out}
}

func (f *YAMLFormatter) FormatTargets(rows []TargetRow) error {
	if rows == nil {
		rows = []TargetRow{}
	}
	return f.encode(struct {
		Targets []TargetRow `yaml:"targets"`
		Count   int         `yaml:"count"`
	}{rows, len(rows)})
}

func (f *YAMLFormatter) FormatSweep(summary SweepSummary, rows []TargetRow) error {
	if rows == nil {
		rows = []TargetRow{}
	}
	return f.encode(struct {
		Sweep   SweepSummary `yaml:"sweep"`
		Targets []TargetRow  `yaml:"targets"`
	}{summary, rows})
}

func (f *YAMLFormatter) encode(v any) error {
	enc := yaml.NewEncoder(f.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
