package prompt

import (
	"strings"
	"testing"

	"github.com/askdb/askdb/internal/schema"
)

func testDescriptor(t *testing.T) *schema.Descriptor {
	t.Helper()
	desc, err := schema.New([]schema.Table{
		{
			Name: "students",
			Columns: []schema.Column{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "first_name", Type: "text"},
			},
		},
		{
			Name: "enrollments",
			Columns: []schema.Column{
				{Name: "id", Type: "integer", PrimaryKey: true},
				{Name: "student_id", Type: "integer", References: "students.id"},
			},
		},
	}, []string{"join students via enrollments.student_id"})
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	return desc
}

func TestBuildFirstAttempt(t *testing.T) {
	desc := testDescriptor(t)

	ctx := Build(desc, "list all students", nil, 1, Options{MaxRows: 20})
	text := ctx.Text()

	for _, want := range []string{
		"Table: students",
		"Table: enrollments",
		"FOREIGN KEY -> students.id",
		"join students via enrollments.student_id",
		"User Question: list all students",
		"SELECT or WITH",
		"Limit results to 20 rows",
		"SQL Query:",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("prompt missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "previous attempt") {
		t.Errorf("first attempt must not carry corrective feedback")
	}
	if ctx.Attempt != 1 || ctx.Prior != nil {
		t.Errorf("Context = attempt %d prior %v, want attempt 1, nil prior", ctx.Attempt, ctx.Prior)
	}
}

func TestBuildRetryQuotesFailure(t *testing.T) {
	desc := testDescriptor(t)

	prior := &Feedback{
		SQL:     "SELECT nme FROM students",
		Message: `column "nme" does not exist`,
	}
	text := Build(desc, "list all students", prior, 2, Options{}).Text()

	for _, want := range []string{
		"previous attempt failed",
		"SELECT nme FROM students",
		`column "nme" does not exist`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("retry prompt missing %q", want)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	desc := testDescriptor(t)

	a := Build(desc, "count students", nil, 1, Options{MaxRows: 50})
	b := Build(desc, "count students", nil, 1, Options{MaxRows: 50})
	if a.Text() != b.Text() {
		t.Errorf("identical inputs produced different prompts")
	}
}

func TestBuildDefaultRowCap(t *testing.T) {
	text := Build(testDescriptor(t), "q", nil, 1, Options{}).Text()
	if !strings.Contains(text, "Limit results to 200 rows") {
		t.Errorf("zero MaxRows should fall back to 200:\n%s", text)
	}
}
