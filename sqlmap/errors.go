package sqlmap

import (
	"errors"
	"fmt"
)

// ErrSQLMapNotFound is returned when the store has no definition for a template id.
// This is a caller bug (unknown id), not a malformed template.
type ErrSQLMapNotFound struct {
	ID string
}

func (e ErrSQLMapNotFound) Error() string {
	return fmt.Sprintf("no such sql map: %s", e.ID)
}

// ErrInvalidStatementKind is returned when the template SQL does not start with
// INSERT, SELECT, UPDATE, DELETE, CREATE TABLE or TRUNCATE.
type ErrInvalidStatementKind struct {
	ID  string
	SQL string
}

func (e ErrInvalidStatementKind) Error() string {
	return fmt.Sprintf("sql map %s: statement must be one of INSERT|SELECT|UPDATE|DELETE|CREATE TABLE|TRUNCATE, got %q",
		e.ID, truncateSQL(e.SQL, 40))
}

// ErrUnsupportedSQLVerb is returned when the first keyword has no table extraction rule.
type ErrUnsupportedSQLVerb struct {
	ID   string
	Verb string
}

func (e ErrUnsupportedSQLVerb) Error() string {
	return fmt.Sprintf("sql map %s: can not find table name for verb %q", e.ID, e.Verb)
}

// ErrTableNameNotFound is returned when the anchor keyword is missing or the
// token after it is empty once qualifiers and quotes are stripped.
type ErrTableNameNotFound struct {
	ID     string
	SQL    string
	Reason string
}

func (e ErrTableNameNotFound) Error() string {
	return fmt.Sprintf("sql map %s: can not find table name (%s) in %q", e.ID, e.Reason, truncateSQL(e.SQL, 60))
}

// IsNotFound reports whether err is an unknown template id.
func IsNotFound(err error) bool {
	var nf ErrSQLMapNotFound
	return errors.As(err, &nf)
}

// IsConfigDefect reports whether err comes from a malformed template definition.
func IsConfigDefect(err error) bool {
	var kind ErrInvalidStatementKind
	var verb ErrUnsupportedSQLVerb
	var table ErrTableNameNotFound
	return errors.As(err, &kind) || errors.As(err, &verb) || errors.As(err, &table)
}

// truncateSQL returns first n chars of SQL for logging and error messages
func truncateSQL(sql string, n int) string {
	if len(sql) <= n {
		return sql
	}
	return sql[:n] + "..."
}
