// Package schema holds the static descriptor of the database the agent
// queries. The descriptor is built once at startup and injected into every
// model prompt; it is never refreshed mid-session.
package schema

import (
	"fmt"
	"strings"
)

// Column describes a single column within a table.
type Column struct {
	Name       string `yaml:"name" json:"name"`
	Type       string `yaml:"type" json:"type"`
	Nullable   bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	PrimaryKey bool   `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`
	// References names the foreign-key target as "table.column".
	References string `yaml:"references,omitempty" json:"references,omitempty"`
}

// Table describes the structure of a single table.
type Table struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []Column `yaml:"columns" json:"columns"`
}

// Descriptor is the immutable schema summary the agent grounds its prompts
// on. Construct it with New and treat it as read-only afterwards; it is safe
// to share across goroutines.
type Descriptor struct {
	tables []Table
	notes  []string
}

// New builds a Descriptor from tables plus free-form guidance notes (join
// rules, naming pitfalls). The inputs are copied so later mutation of the
// caller's slices cannot leak in.
func New(tables []Table, notes []string) (*Descriptor, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("schema descriptor needs at least one table")
	}
	d := &Descriptor{
		tables: make([]Table, len(tables)),
		notes:  append([]string(nil), notes...),
	}
	for i, t := range tables {
		if strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("table %d has no name", i)
		}
		if err := validIdentifier(t.Name); err != nil {
			return nil, fmt.Errorf("table %d: %w", i, err)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("table %q has no columns", t.Name)
		}
		for _, c := range t.Columns {
			if err := validIdentifier(c.Name); err != nil {
				return nil, fmt.Errorf("table %q: %w", t.Name, err)
			}
		}
		d.tables[i] = Table{
			Name:    t.Name,
			Columns: append([]Column(nil), t.Columns...),
		}
	}
	return d, nil
}

// Tables returns a copy of the table list.
func (d *Descriptor) Tables() []Table {
	out := make([]Table, len(d.tables))
	for i, t := range d.tables {
		out[i] = Table{Name: t.Name, Columns: append([]Column(nil), t.Columns...)}
	}
	return out
}

// TableNames returns the table names in declaration order.
func (d *Descriptor) TableNames() []string {
	names := make([]string, len(d.tables))
	for i, t := range d.tables {
		names[i] = t.Name
	}
	return names
}

// Render produces the human-readable schema block included in every prompt.
func (d *Descriptor) Render() string {
	var b strings.Builder
	b.WriteString("Database Schema:\n")
	for _, t := range d.tables {
		fmt.Fprintf(&b, "\nTable: %s\n", t.Name)
		b.WriteString("  Columns:\n")
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "    - %s: %s", c.Name, c.Type)
			if c.PrimaryKey {
				b.WriteString(" (PRIMARY KEY)")
			}
			if c.References != "" {
				fmt.Fprintf(&b, " (FOREIGN KEY -> %s)", c.References)
			}
			if c.Nullable {
				b.WriteString(" NULL")
			}
			b.WriteString("\n")
		}
	}
	if len(d.notes) > 0 {
		b.WriteString("\nRules and hints:\n")
		for _, n := range d.notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	return b.String()
}
