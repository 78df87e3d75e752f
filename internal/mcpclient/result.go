package mcpclient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResult turns a query tool's text payload into a Result. The common
// shape is a JSON array of row objects; a single object, a bare scalar, and
// non-JSON text are all tolerated. Column order follows the key order of
// the JSON itself (a token-level decode), not Go map iteration order.
func parseResult(text string) (*Result, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Result{}, nil
	}

	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		// Plain text payload; present it as a single cell.
		return &Result{Columns: []string{"result"}, Rows: [][]any{{trimmed}}}, nil
	}

	delim, isDelim := tok.(json.Delim)
	if !isDelim {
		return &Result{Columns: []string{"result"}, Rows: [][]any{{tok}}}, nil
	}

	cols := newColumnSet()
	var rows []map[string]any

	switch delim {
	case '{':
		row, err := decodeObject(dec, cols)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	case '[':
		for dec.More() {
			elemTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("read array element: %w", err)
			}
			if d, ok := elemTok.(json.Delim); ok && d == '{' {
				row, err := decodeObject(dec, cols)
				if err != nil {
					return nil, err
				}
				rows = append(rows, row)
				continue
			}
			// Array of scalars.
			cols.add("result")
			rows = append(rows, map[string]any{"result": elemTok})
		}
	default:
		return nil, fmt.Errorf("unexpected JSON delimiter %v", delim)
	}

	result := &Result{Columns: cols.names}
	for _, row := range rows {
		out := make([]any, len(cols.names))
		for i, name := range cols.names {
			out[i] = row[name]
		}
		result.Rows = append(result.Rows, out)
	}
	return result, nil
}

// decodeObject reads one JSON object (the opening brace already consumed),
// registering keys in encounter order.
func decodeObject(dec *json.Decoder, cols *columnSet) (map[string]any, error) {
	row := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key token %v", keyTok)
		}
		cols.add(key)

		var val any
		if err := dec.Decode(&val); err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		row[key] = val
	}
	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	return row, nil
}

// columnSet tracks column names in first-seen order.
type columnSet struct {
	names []string
	seen  map[string]bool
}

func newColumnSet() *columnSet {
	return &columnSet{seen: make(map[string]bool)}
}

func (c *columnSet) add(name string) {
	if c.seen[name] {
		return
	}
	c.seen[name] = true
	c.names = append(c.names, name)
}
