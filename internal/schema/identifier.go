package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// identRe matches plain SQL identifiers: a letter or underscore followed by
// alphanumerics or underscores. Quoted identifiers are out of scope; a name
// that needs quoting also confuses the model, so we reject it up front.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// reservedWords are SQL keywords that cannot double as table or column
// names. Names come from the config file or from a tool server we do not
// control, and a reserved word smuggled into the prompt or a describe_table
// call changes the meaning of the statement around it.
var reservedWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true, "DELETE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "TRUNCATE": true,
	"EXEC": true, "EXECUTE": true, "UNION": true, "INTO": true,
	"FROM": true, "WHERE": true, "TABLE": true, "DATABASE": true,
	"GRANT": true, "REVOKE": true, "INDEX": true, "VIEW": true,
	"PROCEDURE": true, "FUNCTION": true, "TRIGGER": true, "SCHEMA": true,
}

// validIdentifier checks one table or column name.
func validIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("identifier too long (max 128 chars): %q", name)
	}
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	if reservedWords[strings.ToUpper(name)] {
		return fmt.Errorf("identifier %q is a SQL reserved word", name)
	}
	return nil
}
