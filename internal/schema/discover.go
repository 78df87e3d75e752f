package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// ToolCaller is the slice of the tool-protocol client that discovery needs:
// invoke a named tool and get its text payload back.
type ToolCaller interface {
	Call(ctx context.Context, tool string, args map[string]any) (string, error)
}

// discoveredTable matches the row shape of a list_tables result. Servers
// disagree on field names, so both spellings are accepted.
type discoveredTable struct {
	TableName string `json:"table_name"`
	Name      string `json:"name"`
}

func (t discoveredTable) name() string {
	if t.TableName != "" {
		return t.TableName
	}
	return t.Name
}

type discoveredColumn struct {
	ColumnName string `json:"column_name"`
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Type       string `json:"type"`
	IsNullable string `json:"is_nullable"`
}

func (c discoveredColumn) column() Column {
	name := c.ColumnName
	if name == "" {
		name = c.Name
	}
	typ := c.DataType
	if typ == "" {
		typ = c.Type
	}
	return Column{
		Name:     name,
		Type:     typ,
		Nullable: c.IsNullable == "YES",
	}
}

// Discover builds a Descriptor from the tool server's list_tables and
// describe_table tools. Tables whose describe call fails are skipped; if
// nothing usable comes back the caller should fall back to the static
// descriptor from configuration.
func Discover(ctx context.Context, tc ToolCaller, notes []string, logger *slog.Logger) (*Descriptor, error) {
	text, err := tc.Call(ctx, "list_tables", map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var listed []discoveredTable
	if err := json.Unmarshal([]byte(text), &listed); err != nil {
		return nil, fmt.Errorf("decode table list: %w", err)
	}

	var tables []Table
	for _, lt := range listed {
		name := lt.name()
		if name == "" {
			continue
		}
		// The name round-trips into a describe_table call and then into every
		// prompt, so a server handing back junk gets its table dropped.
		if err := validIdentifier(name); err != nil {
			logger.Warn("skipping table with unusable name", "table", name, "error", err)
			continue
		}
		descText, err := tc.Call(ctx, "describe_table", map[string]any{"table_name": name})
		if err != nil {
			logger.Warn("describe_table failed, skipping table", "table", name, "error", err)
			continue
		}
		var cols []discoveredColumn
		if err := json.Unmarshal([]byte(descText), &cols); err != nil {
			logger.Warn("unreadable describe_table payload, skipping table", "table", name, "error", err)
			continue
		}
		t := Table{Name: name}
		for _, dc := range cols {
			col := dc.column()
			if col.Name == "" {
				continue
			}
			if err := validIdentifier(col.Name); err != nil {
				logger.Warn("skipping column with unusable name",
					"table", name, "column", col.Name, "error", err)
				continue
			}
			t.Columns = append(t.Columns, col)
		}
		if len(t.Columns) > 0 {
			tables = append(tables, t)
		}
	}

	if len(tables) == 0 {
		return nil, fmt.Errorf("schema discovery returned no usable tables")
	}
	return New(tables, notes)
}
