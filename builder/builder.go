// Package builder turns a resolved template into SQL with positional args.
//
// Templates use :name placeholders for bind values plus three expansion tokens:
//
//	#INSERT#  (a, b) VALUES (:a, :b)   over every data key
//	#DATA#    a = :a, b = :b           over data keys not referenced explicitly
//	#LIMIT#   LIMIT n / LIMIT off, n   from the limit and offset options
//
// Placeholders inside quoted strings, quoted identifiers, -- line comments and
// /* */ block comments are left alone, as are PostgreSQL style :: casts.
// Columns expanded by #INSERT# and #DATA# must hold scalar values.
package builder

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maxpert/sqlmap/sqlmap"
	"github.com/maxpert/sqlmap/telemetry"
)

const (
	tokenInsert = "#INSERT#"
	tokenData   = "#DATA#"
	tokenLimit  = "#LIMIT#"

	OptionLimit  = "limit"
	OptionOffset = "offset"
)

var columnPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Builder is the default sqlmap.Builder.
type Builder struct{}

// New creates a Builder.
func New() *Builder {
	return &Builder{}
}

// Build implements sqlmap.Builder.
func (b *Builder) Build(def *sqlmap.Definition, data sqlmap.Data, opts sqlmap.Options) (*sqlmap.Statement, error) {
	stmt, err := b.build(def, data, opts)
	if err != nil {
		telemetry.BuildsTotal.With("failed").Inc()
		return nil, err
	}
	telemetry.BuildsTotal.With("ok").Inc()
	return stmt, nil
}

func (b *Builder) build(def *sqlmap.Definition, data sqlmap.Data, opts sqlmap.Options) (*sqlmap.Statement, error) {
	for _, name := range def.Require {
		if _, ok := data[name]; !ok {
			return nil, ErrMissingRequired{ID: def.ID, Name: name}
		}
	}

	sql, err := expandTokens(def, data, opts)
	if err != nil {
		return nil, err
	}

	var out strings.Builder
	args := make([]any, 0, len(data))
	err = scan(sql, &out, func(name string) error {
		value, ok := data[name]
		if !ok {
			return ErrMissingParam{ID: def.ID, Name: name}
		}
		n, items := expand(value)
		if n == 0 {
			return ErrEmptyList{ID: def.ID, Name: name}
		}
		out.WriteString(placeholders(n))
		args = append(args, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &sqlmap.Statement{
		Definition: def,
		SQL:        out.String(),
		Args:       args,
	}, nil
}

// expandTokens rewrites #INSERT#, #DATA# and #LIMIT# into plain placeholder SQL.
func expandTokens(def *sqlmap.Definition, data sqlmap.Data, opts sqlmap.Options) (string, error) {
	sql := def.SQL

	if strings.Contains(sql, tokenInsert) {
		cols, err := columns(def.ID, data, nil)
		if err != nil {
			return "", err
		}
		if len(cols) == 0 {
			return "", ErrNoColumns{ID: def.ID, Token: tokenInsert}
		}
		sql = strings.Replace(sql, tokenInsert, insertClause(cols), 1)
	}

	if strings.Contains(sql, tokenData) {
		cols, err := columns(def.ID, data, referenced(sql))
		if err != nil {
			return "", err
		}
		if len(cols) == 0 {
			return "", ErrNoColumns{ID: def.ID, Token: tokenData}
		}
		sql = strings.Replace(sql, tokenData, setClause(cols), 1)
	}

	if strings.Contains(sql, tokenLimit) {
		clause, err := limitClause(def.ID, opts)
		if err != nil {
			return "", err
		}
		sql = strings.Replace(sql, tokenLimit, clause, 1)
	}

	return sql, nil
}

// columns returns the sorted data keys minus skip, validated as identifiers
// bound to scalar values.
func columns(id string, data sqlmap.Data, skip map[string]struct{}) ([]string, error) {
	cols := make([]string, 0, len(data))
	for k := range data {
		if _, ok := skip[k]; ok {
			continue
		}
		if !columnPattern.MatchString(k) {
			return nil, ErrInvalidColumn{ID: id, Column: k}
		}
		if isList(data[k]) {
			return nil, ErrListColumn{ID: id, Column: k}
		}
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols, nil
}

func insertClause(cols []string) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = ":" + c
	}
	return "(" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(names, ", ") + ")"
}

func setClause(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = c + " = :" + c
	}
	return strings.Join(parts, ", ")
}

func limitClause(id string, opts sqlmap.Options) (string, error) {
	raw, ok := opts[OptionLimit]
	if !ok {
		return "", nil
	}
	limit, ok := toInt(raw)
	if !ok || limit < 0 {
		return "", ErrInvalidOption{ID: id, Name: OptionLimit, Value: raw}
	}

	raw, ok = opts[OptionOffset]
	if !ok {
		return "LIMIT " + strconv.Itoa(limit), nil
	}
	offset, ok := toInt(raw)
	if !ok || offset < 0 {
		return "", ErrInvalidOption{ID: id, Name: OptionOffset, Value: raw}
	}
	return fmt.Sprintf("LIMIT %d, %d", offset, limit), nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		if n > math.MaxInt || n < math.MinInt {
			return 0, false
		}
		return int(n), true
	case uint:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint32:
		if uint64(n) > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case uint64:
		if n > math.MaxInt {
			return 0, false
		}
		return int(n), true
	case float64:
		// 2^63 itself is not representable as int64
		if math.IsNaN(n) || n < math.MinInt64 || n >= math.MaxInt64 || n != math.Trunc(n) {
			return 0, false
		}
		i := int64(n)
		if i > math.MaxInt || i < math.MinInt {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

// referenced returns the placeholder names that appear in sql.
func referenced(sql string) map[string]struct{} {
	names := make(map[string]struct{})
	var discard strings.Builder
	_ = scan(sql, &discard, func(name string) error {
		names[name] = struct{}{}
		return nil
	})
	return names
}

// isList reports whether value expands to an IN list.
func isList(value any) bool {
	if value == nil {
		return false
	}
	if _, ok := value.([]byte); ok {
		return false
	}
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

// expand flattens slices (but not []byte) for IN lists.
func expand(value any) (int, []any) {
	if !isList(value) {
		return 1, []any{value}
	}
	rv := reflect.ValueOf(value)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return len(items), items
}

func placeholders(n int) string {
	if n == 1 {
		return "?"
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// Placeholderize returns sql with tokens and named placeholders replaced by
// neutral syntax, suitable for feeding a SQL parser.
func Placeholderize(sql string) string {
	sql = strings.ReplaceAll(sql, tokenInsert, "(c) VALUES (?)")
	sql = strings.ReplaceAll(sql, tokenData, "c = ?")
	sql = strings.ReplaceAll(sql, tokenLimit, "")

	var out strings.Builder
	_ = scan(sql, &out, func(string) error {
		out.WriteString("?")
		return nil
	})
	return out.String()
}
