// Package query extracts a single SQL statement from a model's free-form
// response and classifies it against a conservative read-only allow-list.
// This is a shape check, not a SQL parser: syntax errors are the database's
// job to report, and they come back through the retry loop.
package query

import (
	"regexp"
	"strings"
)

// Kind classifies a candidate statement.
type Kind int

const (
	// KindUnparseable means no SQL statement could be located in the text.
	KindUnparseable Kind = iota
	// KindDisallowed means a statement was found but is outside the
	// read-only allow-list, or more than one statement was stacked.
	KindDisallowed
	// KindSelect means a single SELECT/WITH statement was extracted.
	KindSelect
)

func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "select"
	case KindDisallowed:
		return "disallowed"
	default:
		return "unparseable"
	}
}

// Statement is the extracted SQL text plus its classification. Only a
// KindSelect statement may be executed.
type Statement struct {
	SQL    string
	Kind   Kind
	reason string
}

// Reason describes why a statement was rejected, phrased as feedback the
// model can act on. Empty for KindSelect.
func (s Statement) Reason() string {
	return s.reason
}

// sqlVerbs are leading keywords that identify the start of a SQL statement.
// Anything here that is not SELECT or WITH is rejected outright.
var sqlVerbs = map[string]bool{
	"SELECT": true, "WITH": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "DROP": true,
	"CREATE": true, "ALTER": true, "TRUNCATE": true, "GRANT": true,
	"REVOKE": true, "COPY": true, "VACUUM": true, "ANALYZE": true,
	"BEGIN": true, "COMMIT": true, "ROLLBACK": true, "SET": true,
	"SHOW": true, "EXPLAIN": true, "CALL": true, "DO": true,
	"MERGE": true, "COMMENT": true, "LOCK": true,
}

var (
	fenceRe = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")
	labelRe = regexp.MustCompile(`(?i)^\s*(?:sql query|sql|query|answer|here(?:'s| is)[^:\n]*):\s*`)
	// embeddedRe locates a statement inside prose. A bare SELECT/WITH keyword
	// is not enough: "I cannot help with that." contains the word "with", so
	// the match must look statement-shaped (SELECT ... FROM, or a CTE head).
	embeddedRe = regexp.MustCompile(`(?is)\b(?:SELECT\s+.*?\bFROM\s+\w+|WITH\s+\w+\s+AS\s*\().*`)
	wordRe     = regexp.MustCompile(`^[A-Za-z]+`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// Extract isolates the first SQL statement in raw model output and
// classifies it. It strips markdown fences and lead-in labels, inspects the
// leading keyword against the allow-list, and rejects stacked statements.
func Extract(raw string) Statement {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Statement{Kind: KindUnparseable, reason: "the response was empty; return a single SELECT statement"}
	}

	// Prefer the content of a fenced code block when one is present.
	if m := fenceRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		text = strings.TrimSpace(m[1])
	} else {
		text = strings.ReplaceAll(text, "```", "")
		text = strings.TrimSpace(text)
	}

	// Drop "SQL Query:" style lead-ins, repeatedly, since models stack them.
	for {
		stripped := labelRe.ReplaceAllString(text, "")
		if stripped == text {
			break
		}
		text = strings.TrimSpace(stripped)
	}

	first := strings.ToUpper(wordRe.FindString(text))
	switch {
	case first == "SELECT" || first == "WITH":
		// Statement starts immediately.
	case sqlVerbs[first]:
		stmt := normalize(cutStatement(text))
		return Statement{
			SQL:  stmt,
			Kind: KindDisallowed,
			reason: "only read queries are allowed; the statement must start with SELECT or WITH, got " +
				first,
		}
	default:
		// Prose lead-in; look for an embedded statement.
		m := embeddedRe.FindString(text)
		if m == "" {
			return Statement{Kind: KindUnparseable, reason: "no SQL statement found in the response; return a single SELECT statement and nothing else"}
		}
		text = m
	}

	stmt, rest := splitStatement(text)
	restWord := strings.ToUpper(wordRe.FindString(strings.TrimSpace(rest)))
	if sqlVerbs[restWord] {
		return Statement{
			SQL:    normalize(stmt),
			Kind:   KindDisallowed,
			reason: "multiple statements detected; return exactly one SELECT statement with no trailing statements",
		}
	}

	return Statement{SQL: normalize(stmt), Kind: KindSelect}
}

// cutStatement returns text up to (not including) the first top-level
// statement separator.
func cutStatement(text string) string {
	stmt, _ := splitStatement(text)
	return stmt
}

// splitStatement splits at the first semicolon that is not inside a quoted
// string or dollar-quoted block.
func splitStatement(text string) (stmt, rest string) {
	var inSingle, inDouble bool
	var dollarTag string

	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case dollarTag != "":
			if ch == '$' && strings.HasPrefix(text[i:], dollarTag) {
				i += len(dollarTag) - 1
				dollarTag = ""
			}
		case inSingle:
			if ch == '\'' {
				// Doubled quote is an escaped quote, stay inside.
				if i+1 < len(text) && text[i+1] == '\'' {
					i++
				} else {
					inSingle = false
				}
			}
		case inDouble:
			if ch == '"' {
				inDouble = false
			}
		default:
			switch ch {
			case '\'':
				inSingle = true
			case '"':
				inDouble = true
			case '$':
				if tag := dollarQuoteTag(text[i:]); tag != "" {
					dollarTag = tag
					i += len(tag) - 1
				}
			case ';':
				return text[:i], text[i+1:]
			}
		}
	}
	return text, ""
}

// dollarQuoteTag returns the opening tag ("$$", "$fn$") at the start of s,
// or "" if s does not open a dollar quote.
func dollarQuoteTag(s string) string {
	if len(s) < 2 || s[0] != '$' {
		return ""
	}
	for i := 1; i < len(s); i++ {
		ch := s[i]
		if ch == '$' {
			return s[:i+1]
		}
		if !isTagChar(ch) {
			return ""
		}
	}
	return ""
}

func isTagChar(ch byte) bool {
	return ch == '_' ||
		(ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
		(ch >= '0' && ch <= '9')
}

// normalize collapses whitespace runs so statements compare and log cleanly.
func normalize(stmt string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(stmt, " "))
}
