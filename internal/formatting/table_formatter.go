package formatting

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	pkgstrings "targetsync/pkg/strings"
)

// sha256 and uuid stamps stay recognisable from their ends.
const stampMaxLen = 16

// TableFormatter provides rich table output formatting
type TableFormatter struct {
	options Options
	out     io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(options Options, out io.Writer) Formatter {
	return &TableFormatter{options: options, out: out}
}

// FormatTargets renders one row per target.
func (f *TableFormatter) FormatTargets(rows []TargetRow) error {
	if len(rows) == 0 {
		f.formatEmptyMessage("No catalog targets found")
		return nil
	}

	withState := false
	for _, r := range rows {
		if r.Started != nil {
			withState = true
			break
		}
	}

	t := f.createTable()
	header := table.Row{"RELATIONSHIP", "NAME", "ELEMENT TYPE", "ELEMENT", "VERSION", "SYNC"}
	if withState {
		header = append(header, "KIND", "STARTED", "EVENTS")
	}
	t.AppendHeader(f.colorRow(header))

	for _, r := range rows {
		row := table.Row{
			r.RelationshipID,
			pkgstrings.Truncate(r.Name, pkgstrings.DefaultCellMaxLen),
			r.ElementType,
			pkgstrings.Truncate(r.ElementID, pkgstrings.DefaultCellMaxLen),
			pkgstrings.Middle(r.VersionStamp, stampMaxLen),
			r.PermittedSynchronization,
		}
		if withState {
			row = append(row, r.Kind, f.formatBool(r.Started), f.formatBool(r.Events))
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{"TOTAL", len(rows)})

	t.Render()
	return nil
}

// FormatSweep renders the sweep counts followed by the targets.
func (f *TableFormatter) FormatSweep(summary SweepSummary, rows []TargetRow) error {
	t := f.createTable()
	t.AppendHeader(f.colorRow(table.Row{"PROCESSED", "CREATED", "UPDATED", "UNCHANGED", "REMOVED", "FAILED", "DUPLICATES", "REFRESHED", "DURATION"}))
	t.AppendRow(table.Row{
		summary.Processed, summary.Created, summary.Updated, summary.Unchanged,
		summary.Removed, f.formatFailed(summary.Failed), summary.Duplicates, summary.Refreshed, summary.Duration,
	})
	t.Render()

	fmt.Fprintln(f.out)
	return f.FormatTargets(rows)
}

// createTable creates a new table with standard styling
func (f *TableFormatter) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetStyle(table.StyleRounded)
	return t
}

func (f *TableFormatter) colorRow(row table.Row) table.Row {
	if !f.options.Color {
		return row
	}
	colored := make(table.Row, len(row))
	for i, v := range row {
		colored[i] = text.FgHiCyan.Sprint(v)
	}
	return colored
}

func (f *TableFormatter) formatBool(b *bool) string {
	if b == nil {
		return "-"
	}
	s := strconv.FormatBool(*b)
	if !f.options.Color {
		return s
	}
	if *b {
		return text.FgGreen.Sprint(s)
	}
	return text.FgRed.Sprint(s)
}

func (f *TableFormatter) formatFailed(n int) string {
	s := strconv.Itoa(n)
	if f.options.Color && n > 0 {
		return text.FgRed.Sprint(s)
	}
	return s
}

// formatEmptyMessage formats empty result messages
func (f *TableFormatter) formatEmptyMessage(message string) {
	if f.options.Color {
		message = text.FgYellow.Sprint(message)
	}
	fmt.Fprintln(f.out, message)
}
