package sqlmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegexExtractor_TableNames(t *testing.T) {
	tests := []struct {
		sql   string
		table string
	}{
		{"INSERT INTO users (a) VALUES (1)", "users"},
		{"INSERT INTO users(a) VALUES (1)", "users"},
		{"SELECT * FROM `schema`.`orders` WHERE id=1", "orders"},
		{"SELECT * FROM orders;", "orders"},
		{"SELECT a,b\nFROM\tevents e WHERE 1", "events"},
		{"DELETE FROM \"sessions\" WHERE id = :id", "sessions"},
		{"UPDATE users SET a = :a", "users"},
		{"update [dbo].[users] set a = 1", "users"},
		{"REPLACE INTO kv VALUES (1, 2)", "kv"},
		{"REPLACE kv VALUES (1, 2)", "kv"},
		{"CREATE TABLE IF NOT EXISTS audit (id INT)", "audit"},
		{"CREATE TABLE audit(id INT)", "audit"},
		{"TRUNCATE TABLE logs", "logs"},
		{"TRUNCATE logs", "logs"},
	}

	x := NewRegexExtractor()
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			def := &Definition{ID: "t.op", SQL: tt.sql}
			require.NoError(t, x.ExtractAndRewrite(def))
			assert.Equal(t, tt.table, def.Table)
			assert.Equal(t, tt.sql, def.SQL)
		})
	}
}

func TestRegexExtractor_ShardRewrite(t *testing.T) {
	x := NewRegexExtractor()

	def := &Definition{ID: "order.row", SQL: "SELECT * FROM orders WHERE id=1", Shard: "orders_202401"}
	require.NoError(t, x.ExtractAndRewrite(def))
	assert.Equal(t, "orders", def.Table)
	assert.Contains(t, def.SQL, "FROM orders_202401")
	assert.Equal(t, "SELECT * FROM orders_202401 WHERE id=1", def.SQL)

	// Table is set, so running again with no shard changes nothing.
	def.Shard = ""
	require.NoError(t, x.ExtractAndRewrite(def))
	assert.Equal(t, "orders", def.Table)
	assert.Equal(t, "SELECT * FROM orders_202401 WHERE id=1", def.SQL)
}

func TestRegexExtractor_ShardKeepsQualifierAndQuotes(t *testing.T) {
	x := NewRegexExtractor()

	def := &Definition{ID: "order.insert", SQL: "INSERT INTO `shop`.`orders` (a) VALUES (1)", Shard: "orders_7"}
	require.NoError(t, x.ExtractAndRewrite(def))
	assert.Equal(t, "orders", def.Table)
	assert.Equal(t, "INSERT INTO `shop`.`orders_7` (a) VALUES (1)", def.SQL)
}

func TestRegexExtractor_ShardOnlyTouchesAnchorReference(t *testing.T) {
	x := NewRegexExtractor()

	def := &Definition{
		ID:    "order.join",
		SQL:   "SELECT orders.id FROM orders JOIN items ON items.order_id = orders.id",
		Shard: "orders_2",
	}
	require.NoError(t, x.ExtractAndRewrite(def))
	assert.Equal(t, "SELECT orders.id FROM orders_2 JOIN items ON items.order_id = orders.id", def.SQL)
}

func TestRegexExtractor_PresetTableIsUntouched(t *testing.T) {
	def := &Definition{ID: "t.op", SQL: "SELECT * FROM other", Table: "fixed", Shard: "s1"}
	require.NoError(t, NewRegexExtractor().ExtractAndRewrite(def))
	assert.Equal(t, "fixed", def.Table)
	assert.Equal(t, "SELECT * FROM other", def.SQL)
}

func TestRegexExtractor_Errors(t *testing.T) {
	x := NewRegexExtractor()

	err := x.ExtractAndRewrite(&Definition{ID: "t.op", SQL: "DROP TABLE users"})
	var verb ErrUnsupportedSQLVerb
	require.True(t, errors.As(err, &verb))
	assert.Equal(t, "DROP", verb.Verb)

	err = x.ExtractAndRewrite(&Definition{ID: "t.op", SQL: "SELECT 1"})
	var notFound ErrTableNameNotFound
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "anchor keyword missing", notFound.Reason)

	err = x.ExtractAndRewrite(&Definition{ID: "t.op", SQL: "SELECT * FROM `` WHERE 1"})
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "empty table token", notFound.Reason)
	assert.True(t, IsConfigDefect(err))
}

func TestStripTableName(t *testing.T) {
	assert.Equal(t, "orders", stripTableName("`db`.`orders`"))
	assert.Equal(t, "orders", stripTableName("db.orders"))
	assert.Equal(t, "orders", stripTableName("[orders]"))
	assert.Equal(t, "", stripTableName("``"))
}
