package validate

import (
	"testing"

	"github.com/maxpert/sqlmap/cfg"
	"github.com/maxpert/sqlmap/sqlmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStore map[string]map[string]any

func (s fixedStore) Get(id string) map[string]any {
	return s[id]
}

func (s fixedStore) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

func resolved(t *testing.T, id, sql string) *sqlmap.Definition {
	t.Helper()
	r := sqlmap.NewTemplateResolver(fixedStore{id: {"sql": sql}})
	def, err := r.Resolve(id, "")
	require.NoError(t, err)
	return def
}

func TestChecker_MySQL(t *testing.T) {
	c, err := NewChecker(cfg.DialectMySQL)
	require.NoError(t, err)

	tests := []struct {
		sql   string
		table string
	}{
		{"INSERT INTO users #INSERT#", "users"},
		{"SELECT * FROM users WHERE id IN (:ids) #LIMIT#", "users"},
		{"SELECT u.id FROM users u JOIN orders o ON o.user_id = u.id", "users"},
		{"UPDATE users SET #DATA# WHERE id = :id", "users"},
		{"DELETE FROM `shop`.`orders` WHERE id = :id", "orders"},
		{"CREATE TABLE audit (id INT PRIMARY KEY)", "audit"},
		{"TRUNCATE TABLE logs", "logs"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			r := c.Check(resolved(t, "t.op", tt.sql))
			require.NoError(t, r.Err)
			assert.Equal(t, tt.table, r.ASTTable)
			assert.False(t, r.Mismatch)
			assert.False(t, r.Failed(true))
		})
	}
}

func TestChecker_MySQLSyntaxError(t *testing.T) {
	c, err := NewChecker(cfg.DialectMySQL)
	require.NoError(t, err)

	r := c.Check(resolved(t, "t.broken", "SELECT * FROM users WHERE"))
	assert.Error(t, r.Err)
	assert.NotEmpty(t, r.Error)
	assert.True(t, r.Failed(false))
}

func TestChecker_SQLite(t *testing.T) {
	c, err := NewChecker(cfg.DialectSQLite)
	require.NoError(t, err)

	r := c.Check(resolved(t, "t.insert", "INSERT INTO users #INSERT#"))
	require.NoError(t, r.Err)
	assert.Equal(t, "users", r.ASTTable)

	r = c.Check(resolved(t, "t.update", "UPDATE users SET #DATA# WHERE id = :id"))
	require.NoError(t, r.Err)
	assert.Equal(t, "users", r.ASTTable)

	r = c.Check(resolved(t, "t.row", "SELECT * FROM users WHERE id = :id"))
	require.NoError(t, r.Err)
	assert.Equal(t, "users", r.ASTTable)

	r = c.Check(resolved(t, "t.clear", "TRUNCATE TABLE logs"))
	assert.NoError(t, r.Err)
	assert.Empty(t, r.ASTTable)
}

func TestChecker_MismatchIsOnlyFatalWhenStrict(t *testing.T) {
	c, err := NewChecker(cfg.DialectMySQL)
	require.NoError(t, err)

	def := resolved(t, "t.row", "SELECT * FROM users WHERE id = :id")
	def.Table = "people"

	r := c.Check(def)
	require.NoError(t, r.Err)
	assert.True(t, r.Mismatch)
	assert.False(t, r.Failed(false))
	assert.True(t, r.Failed(true))
}

func TestChecker_UnknownDialect(t *testing.T) {
	_, err := NewChecker(cfg.Dialect("oracle"))
	assert.Error(t, err)
}

func TestCheckAll(t *testing.T) {
	store := fixedStore{
		"user.table":  {"table": "users"},
		"user.row":    {"sql": "SELECT * FROM users WHERE id = :id"},
		"user.insert": {"sql": "INSERT INTO users #INSERT#"},
		"bad.verb":    {"sql": "DROP TABLE users"},
		"bad.syntax":  {"sql": "SELECT * FROM users WHERE"},
	}
	resolver := sqlmap.NewTemplateResolver(store)

	c, err := NewChecker(cfg.DialectMySQL)
	require.NoError(t, err)

	reports := c.CheckAll(store, resolver)
	require.Len(t, reports, 4)

	ids := make([]string, len(reports))
	for i, r := range reports {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"bad.syntax", "bad.verb", "user.insert", "user.row"}, ids)
	assert.True(t, sqlmap.IsConfigDefect(reports[1].Err))
	assert.Equal(t, 2, CountFailed(reports, true))

	none, err := NewChecker(cfg.DialectNone)
	require.NoError(t, err)
	assert.Equal(t, 1, CountFailed(none.CheckAll(store, resolver), false))
}
