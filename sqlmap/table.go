package sqlmap

import (
	"regexp"
	"strings"
)

// TableExtractor finds the target table of a definition and applies the shard
// rewrite. Implementations must leave a definition with a non-empty Table untouched.
type TableExtractor interface {
	ExtractAndRewrite(def *Definition) error
}

// tableToken is a table reference: no whitespace, parentheses, commas or semicolons.
const tableToken = `([^\s(),;]*)`

// Each pattern captures the anchor (group 1) and the raw table token (group 2).
// Optional clauses such as IF NOT EXISTS belong to the anchor, so the token is
// always a single word.
var tableRules = map[string]*regexp.Regexp{
	"INSERT":   regexp.MustCompile(`(?i)(\sINTO\s+)` + tableToken),
	"SELECT":   regexp.MustCompile(`(?i)(\sFROM\s+)` + tableToken),
	"DELETE":   regexp.MustCompile(`(?i)(\sFROM\s+)` + tableToken),
	"UPDATE":   regexp.MustCompile(`(?i)^(UPDATE\s+)` + tableToken),
	"REPLACE":  regexp.MustCompile(`(?i)^(REPLACE\s+(?:INTO\s+)?)` + tableToken),
	"CREATE":   regexp.MustCompile(`(?i)(\bTABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?)` + tableToken),
	"TRUNCATE": regexp.MustCompile(`(?i)^(TRUNCATE\s+(?:TABLE\s+)?)` + tableToken),
}

// identifierQuotes are stripped from both ends of a table name.
const identifierQuotes = "`\"[]"

// RegexExtractor locates the table with one regular expression per leading verb.
//
// SQL is treated as hand-authored template text, not parsed. Only the first
// token after the anchor is considered: a subquery or join right after FROM
// yields that first token and nothing else.
type RegexExtractor struct {
	rules map[string]*regexp.Regexp
}

// NewRegexExtractor returns an extractor over the standard verb rules.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{rules: tableRules}
}

// ExtractAndRewrite sets def.Table to the unsharded table name and, when
// def.Shard is set, rewrites def.SQL so the anchor-bound reference names the shard.
func (x *RegexExtractor) ExtractAndRewrite(def *Definition) error {
	if def.Table != "" {
		return nil
	}

	sql := strings.TrimSpace(def.SQL)
	verb := firstKeyword(sql)
	pattern, ok := x.rules[verb]
	if !ok {
		return ErrUnsupportedSQLVerb{ID: def.ID, Verb: verb}
	}

	loc := pattern.FindStringSubmatchIndex(sql)
	if loc == nil {
		return ErrTableNameNotFound{ID: def.ID, SQL: sql, Reason: "anchor keyword missing"}
	}
	tokenStart, tokenEnd := loc[4], loc[5]
	token := sql[tokenStart:tokenEnd]

	table := stripTableName(token)
	if table == "" {
		return ErrTableNameNotFound{ID: def.ID, SQL: sql, Reason: "empty table token"}
	}

	if def.Shard != "" {
		sql = sql[:tokenStart] + shardToken(token, table, def.Shard) + sql[tokenEnd:]
	}

	def.Table = table
	def.SQL = sql
	return nil
}

// firstKeyword returns the uppercased text before the first whitespace.
func firstKeyword(sql string) string {
	if idx := strings.IndexFunc(sql, isSpace); idx >= 0 {
		sql = sql[:idx]
	}
	return strings.ToUpper(sql)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

// stripTableName drops a schema qualifier and identifier quotes:
// `db`.`orders` -> orders
func stripTableName(token string) string {
	table := token
	if idx := strings.LastIndex(table, "."); idx >= 0 {
		table = table[idx+1:]
	}
	return strings.Trim(table, identifierQuotes)
}

// shardToken swaps the base table name inside the raw token, keeping any
// qualifier and quoting. The base name is always the token's last occurrence.
func shardToken(token, table, shard string) string {
	idx := strings.LastIndex(token, table)
	if idx < 0 {
		return token
	}
	return token[:idx] + shard + token[idx+len(table):]
}
