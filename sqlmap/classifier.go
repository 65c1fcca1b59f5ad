package sqlmap

import (
	"regexp"
	"strings"
)

var (
	// Leading verb, ordered as INSERT|SELECT|UPDATE|DELETE|CREATE TABLE|TRUNCATE
	statementKindPattern = regexp.MustCompile(`(?is)^\s*(INSERT|SELECT|UPDATE|DELETE|CREATE\s+TABLE|TRUNCATE)\b`)

	// SHOW counts as a read even though it is not a statement kind
	readModePattern = regexp.MustCompile(`(?i)^\s*(?:SELECT|SHOW)\b`)

	whitespaceRun = regexp.MustCompile(`\s+`)
)

var kindByVerb = map[string]StatementKind{
	"INSERT":       KindInsert,
	"SELECT":       KindSelect,
	"UPDATE":       KindUpdate,
	"DELETE":       KindDelete,
	"CREATE TABLE": KindCreateTable,
	"TRUNCATE":     KindTruncate,
}

// Classify returns the statement kind and read/write mode of a template's SQL.
// The error is always ErrInvalidStatementKind.
func Classify(sql string) (StatementKind, Mode, error) {
	mode := ModeWrite
	if readModePattern.MatchString(sql) {
		mode = ModeRead
	}

	matches := statementKindPattern.FindStringSubmatch(sql)
	if len(matches) < 2 {
		return KindUnknown, mode, ErrInvalidStatementKind{SQL: sql}
	}

	verb := strings.ToUpper(whitespaceRun.ReplaceAllString(matches[1], " "))
	return kindByVerb[verb], mode, nil
}
