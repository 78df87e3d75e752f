package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/agent"
	"github.com/askdb/askdb/internal/mcpclient"
)

func manyRows(n int) *mcpclient.Result {
	res := &mcpclient.Result{Columns: []string{"id", "name"}}
	for i := 1; i <= n; i++ {
		res.Rows = append(res.Rows, []any{json.Number("1"), "x"})
	}
	return res
}

func TestResultEmpty(t *testing.T) {
	f := New(50)
	if got := f.Result(nil); got != "No rows matched." {
		t.Errorf("nil result = %q", got)
	}
	if got := f.Result(&mcpclient.Result{Columns: []string{"id"}}); got != "No rows matched." {
		t.Errorf("empty result = %q", got)
	}
}

func TestResultScalar(t *testing.T) {
	f := New(50)
	res := &mcpclient.Result{
		Columns: []string{"count"},
		Rows:    [][]any{{json.Number("42")}},
	}
	if got := f.Result(res); got != "count: 42" {
		t.Errorf("scalar = %q", got)
	}
}

func TestResultSmallTable(t *testing.T) {
	f := New(50)
	res := &mcpclient.Result{
		Columns: []string{"first_name", "email"},
		Rows: [][]any{
			{"Ada", "ada@example.edu"},
			{"Grace", nil},
		},
	}

	got := f.Result(res)
	for _, want := range []string{"first_name", "email", "Ada", "Grace", "NULL", "2 rows"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Showing the first") {
		t.Errorf("small result should not be summarized:\n%s", got)
	}
}

func TestResultSummarizesLargeSets(t *testing.T) {
	f := New(50)
	got := f.Result(manyRows(120))

	if !strings.Contains(got, "120 rows. Showing the first 5:") {
		t.Errorf("missing summary line:\n%s", got)
	}
	if !strings.Contains(got, "... and 115 more rows") {
		t.Errorf("missing remainder count:\n%s", got)
	}
	// Only the sample makes it into the table.
	if n := strings.Count(got, "| x"); n != 5 {
		t.Errorf("sample rendered %d rows, want 5", n)
	}
}

func TestResultThresholdBoundary(t *testing.T) {
	f := New(50)
	if got := f.Result(manyRows(50)); strings.Contains(got, "Showing the first") {
		t.Errorf("exactly threshold rows must print in full:\n%s", got)
	}
	if got := f.Result(manyRows(51)); !strings.Contains(got, "Showing the first") {
		t.Errorf("threshold+1 rows must be summarized:\n%s", got)
	}
}

func TestOutcome(t *testing.T) {
	f := New(50)

	tests := []struct {
		name    string
		outcome agent.Outcome
		want    []string
		not     []string
	}{
		{
			"first try success",
			agent.Outcome{
				Status:   agent.StatusSucceeded,
				Attempts: 1,
				Result:   &mcpclient.Result{Columns: []string{"n"}, Rows: [][]any{{json.Number("3")}}},
			},
			[]string{"n: 3"},
			[]string{"attempts"},
		},
		{
			"retried success",
			agent.Outcome{
				Status:   agent.StatusSucceeded,
				Attempts: 2,
				Result:   &mcpclient.Result{Columns: []string{"n"}, Rows: [][]any{{json.Number("3")}}},
			},
			[]string{"n: 3", "(took 2 attempts)"},
			nil,
		},
		{
			"exhausted",
			agent.Outcome{Status: agent.StatusExhausted, Attempts: 3, Err: "syntax error"},
			[]string{"couldn't answer", "3 attempts", "syntax error"},
			nil,
		},
		{
			"fatal",
			agent.Outcome{Status: agent.StatusFatal, Attempts: 1, Err: "language model unreachable"},
			[]string{"Error: language model unreachable"},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := f.Outcome(tt.outcome)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("missing %q:\n%s", want, got)
				}
			}
			for _, not := range tt.not {
				if strings.Contains(got, not) {
					t.Errorf("unexpected %q:\n%s", not, got)
				}
			}
		})
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "NULL"},
		{"text", "text"},
		{json.Number("3.14"), "3.14"},
		{true, "true"},
		{false, "false"},
		{float64(2.5), "2.5"},
		{float64(3), "3"},
		{7, "7"},
	}
	for _, tt := range tests {
		if got := cell(tt.in); got != tt.want {
			t.Errorf("cell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewDefaults(t *testing.T) {
	f := New(0)
	if f.Threshold != 50 {
		t.Errorf("Threshold = %d, want 50", f.Threshold)
	}
	if f.SampleRows != defaultSampleRows {
		t.Errorf("SampleRows = %d", f.SampleRows)
	}
}
