// Package render turns execution results into compact, voice-friendly text.
// Small result sets get a column-aligned table; large ones get a count and
// a sample instead of a full dump.
package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/mcpclient"
)

const defaultSampleRows = 5

// Formatter renders outcomes for the interactive surface.
type Formatter struct {
	// Threshold is the row count above which results are summarized.
	Threshold int
	// SampleRows is how many rows a summary shows.
	SampleRows int
}

// New returns a Formatter with the given display threshold.
func New(threshold int) Formatter {
	if threshold < 1 {
		threshold = 50
	}
	return Formatter{Threshold: threshold, SampleRows: defaultSampleRows}
}

// Outcome renders one turn's outcome, whatever its status.
func (f Formatter) Outcome(o agent.Outcome) string {
	switch o.Status {
	case agent.StatusSucceeded:
		text := f.Result(o.Result)
		if o.Attempts > 1 {
			text += fmt.Sprintf("\n(took %d attempts)", o.Attempts)
		}
		return text
	case agent.StatusExhausted:
		return fmt.Sprintf(
			"I couldn't answer that: no working query after %d attempts. Last error: %s",
			o.Attempts, o.Err)
	default:
		return "Error: " + o.Err
	}
}

// Result renders a successful result set.
func (f Formatter) Result(r *mcpclient.Result) string {
	if r == nil || len(r.Rows) == 0 {
		return "No rows matched."
	}

	// Single scalar answers read better as a sentence than a 1x1 table.
	if len(r.Rows) == 1 && len(r.Columns) == 1 {
		return fmt.Sprintf("%s: %s", r.Columns[0], cell(r.Rows[0][0]))
	}

	if len(r.Rows) <= f.Threshold {
		return fmt.Sprintf("%s%s", table(r.Columns, r.Rows), rowCount(len(r.Rows)))
	}

	sample := f.SampleRows
	if sample < 1 {
		sample = defaultSampleRows
	}
	if sample > len(r.Rows) {
		sample = len(r.Rows)
	}
	return fmt.Sprintf("%d rows. Showing the first %d:\n%s... and %d more rows",
		len(r.Rows), sample, table(r.Columns, r.Rows[:sample]), len(r.Rows)-sample)
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return fmt.Sprintf("%d rows", n)
}

func table(columns []string, rows [][]any) string {
	var b strings.Builder
	tw := tablewriter.NewWriter(&b)
	tw.SetHeader(columns)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = cell(v)
		}
		tw.Append(cells)
	}
	tw.Render()
	return b.String()
}

// cell renders one scalar value for display.
func cell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", val), "0"), ".")
	default:
		return fmt.Sprintf("%v", val)
	}
}
