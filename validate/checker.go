// Package validate lints templates with a real SQL parser and cross-checks the
// table name picked by the regex extractor against the parsed AST.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maxpert/sqlmap/builder"
	"github.com/maxpert/sqlmap/cfg"
	"github.com/maxpert/sqlmap/sqlmap"
	"github.com/maxpert/sqlmap/telemetry"
	rqlitesql "github.com/rqlite/sql"
	"github.com/rs/zerolog/log"
	"vitess.io/vitess/go/vt/sqlparser"
)

// Report is the outcome of checking one template.
type Report struct {
	ID       string `json:"id" msgpack:"id"`
	Table    string `json:"table,omitempty" msgpack:"table,omitempty"`
	ASTTable string `json:"ast_table,omitempty" msgpack:"ast_table,omitempty"`
	Mismatch bool   `json:"mismatch,omitempty" msgpack:"mismatch,omitempty"`
	Err      error  `json:"-" msgpack:"-"`
	Error    string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Failed reports whether the template is broken. A table mismatch only counts
// when strict is set.
func (r Report) Failed(strict bool) bool {
	return r.Err != nil || (strict && r.Mismatch)
}

func (r Report) outcome() string {
	switch {
	case r.Err != nil:
		return "error"
	case r.Mismatch:
		return "mismatch"
	default:
		return "ok"
	}
}

// IDLister is implemented by stores that can enumerate their template ids.
type IDLister interface {
	IDs() []string
}

// Checker parses templates in one SQL dialect.
type Checker struct {
	dialect cfg.Dialect
	mysql   *sqlparser.Parser
}

// NewChecker creates a checker for dialect.
func NewChecker(dialect cfg.Dialect) (*Checker, error) {
	c := &Checker{dialect: dialect}
	switch dialect {
	case cfg.DialectMySQL:
		p, err := sqlparser.New(sqlparser.Options{})
		if err != nil {
			return nil, fmt.Errorf("failed to create mysql parser: %w", err)
		}
		c.mysql = p
	case cfg.DialectSQLite, cfg.DialectNone:
	default:
		return nil, fmt.Errorf("unknown dialect: %s", dialect)
	}
	return c, nil
}

// Check parses a resolved definition. Unresolved (table metadata) definitions
// always pass.
func (c *Checker) Check(def *sqlmap.Definition) Report {
	r := Report{ID: def.ID, Table: def.Table}
	if !def.Resolved {
		return r
	}

	sql := builder.Placeholderize(def.SQL)
	var err error
	switch c.dialect {
	case cfg.DialectMySQL:
		r.ASTTable, err = c.mysqlTable(sql)
	case cfg.DialectSQLite:
		if def.Kind == sqlmap.KindTruncate {
			// SQLite has no TRUNCATE
			return r
		}
		r.ASTTable, err = sqliteTable(sql)
	default:
		return r
	}

	if err != nil {
		r.Err = fmt.Errorf("%s parse error: %w", c.dialect, err)
		r.Error = r.Err.Error()
		return r
	}

	r.Mismatch = r.ASTTable != "" && !strings.EqualFold(r.ASTTable, def.Table)
	return r
}

// CheckAll resolves and checks every id in the store, sorted by id.
// Table metadata ids are skipped.
func (c *Checker) CheckAll(store IDLister, resolver sqlmap.Resolver) []Report {
	ids := store.IDs()
	sort.Strings(ids)

	reports := make([]Report, 0, len(ids))
	for _, id := range ids {
		if strings.HasSuffix(id, "."+sqlmap.TableKey) || id == sqlmap.TableKey {
			continue
		}

		var r Report
		def, err := resolver.Resolve(id, "")
		if err != nil {
			r = Report{ID: id, Err: err, Error: err.Error()}
		} else {
			r = c.Check(def)
		}

		telemetry.CheckReportsTotal.With(r.outcome()).Inc()
		if r.Mismatch {
			log.Warn().
				Str("id", id).
				Str("table", r.Table).
				Str("ast_table", r.ASTTable).
				Msg("Regex and parser disagree on table name")
		}
		reports = append(reports, r)
	}
	return reports
}

// CountFailed returns how many reports failed.
func CountFailed(reports []Report, strict bool) int {
	n := 0
	for _, r := range reports {
		if r.Failed(strict) {
			n++
		}
	}
	return n
}

// mysqlTable parses sql with vitess and returns the statement's target table.
func (c *Checker) mysqlTable(sql string) (string, error) {
	stmt, err := c.mysql.Parse(sql)
	if err != nil {
		return "", err
	}

	switch s := stmt.(type) {
	case *sqlparser.Insert:
		return sqlparser.GetTableName(s.Table.Expr).String(), nil
	case *sqlparser.Select:
		return firstTable(s.From), nil
	case *sqlparser.Update:
		return firstTable(s.TableExprs), nil
	case *sqlparser.Delete:
		return firstTable(s.TableExprs), nil
	case *sqlparser.CreateTable:
		return s.Table.Name.String(), nil
	case *sqlparser.TruncateTable:
		return s.Table.Name.String(), nil
	}
	return "", nil
}

// firstTable returns the leftmost plain table of a FROM list, or "" for derived tables.
func firstTable(exprs sqlparser.TableExprs) string {
	for _, expr := range exprs {
		switch e := expr.(type) {
		case *sqlparser.AliasedTableExpr:
			return sqlparser.GetTableName(e.Expr).String()
		case *sqlparser.JoinTableExpr:
			return firstTable(sqlparser.TableExprs{e.LeftExpr})
		}
	}
	return ""
}

// sqliteTable parses sql with rqlite/sql and returns the statement's target table.
func sqliteTable(sql string) (string, error) {
	parser := rqlitesql.NewParser(strings.NewReader(sql))
	stmt, err := parser.ParseStatement()
	if err != nil {
		return "", err
	}

	switch s := stmt.(type) {
	case *rqlitesql.InsertStatement:
		return rqlitesql.IdentName(s.Table), nil
	case *rqlitesql.UpdateStatement:
		if s.Table != nil {
			return s.Table.TableName(), nil
		}
	case *rqlitesql.DeleteStatement:
		if s.Table != nil {
			return s.Table.TableName(), nil
		}
	case *rqlitesql.SelectStatement:
		return sourceTable(s.Source), nil
	case *rqlitesql.CreateTableStatement:
		return rqlitesql.IdentName(s.Name), nil
	}
	return "", nil
}

func sourceTable(src rqlitesql.Source) string {
	switch s := src.(type) {
	case *rqlitesql.QualifiedTableName:
		return s.TableName()
	case *rqlitesql.JoinClause:
		return sourceTable(s.X)
	}
	return ""
}
