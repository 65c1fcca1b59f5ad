package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetReturnsCopy(t *testing.T) {
	m := NewMemoryFrom(map[string]map[string]any{
		"user.insert": {"sql": "INSERT INTO users #INSERT#"},
	})

	raw := m.Get("user.insert")
	require.NotNil(t, raw)
	raw["sql"] = "mutated"

	assert.Equal(t, "INSERT INTO users #INSERT#", m.Get("user.insert")["sql"])
	assert.Nil(t, m.Get("user.missing"))
}

func TestMemory_VersionTracksChanges(t *testing.T) {
	m := NewMemory()
	v0 := m.Version()

	m.Put("user.row", map[string]any{"sql": "SELECT * FROM users WHERE id = :id"})
	v1 := m.Version()
	assert.NotEqual(t, v0, v1)

	m.Delete("user.row")
	assert.NotEqual(t, v1, m.Version())
	assert.Equal(t, 0, m.Len())

	m.Replace(map[string]map[string]any{"a.b": {"sql": "SELECT 1 FROM t"}}, 777)
	assert.Equal(t, uint64(777), m.Version())
	assert.Equal(t, 1, m.Len())
}

func TestMemory_ReplaceDropsMissingIDs(t *testing.T) {
	m := NewMemoryFrom(map[string]map[string]any{
		"user.insert": {"sql": "INSERT INTO users #INSERT#"},
		"user.row":    {"sql": "SELECT * FROM users WHERE id = :id"},
	})

	m.Replace(map[string]map[string]any{
		"order.row": {"sql": "SELECT * FROM orders WHERE id = :id"},
	}, 2)

	assert.Equal(t, []string{"order.row"}, m.IDs())
	assert.Nil(t, m.Get("user.insert"))
}

func TestMemory_IDsSorted(t *testing.T) {
	m := NewMemoryFrom(map[string]map[string]any{
		"z.last":  {"sql": "SELECT 1 FROM z"},
		"a.first": {"sql": "SELECT 1 FROM a"},
		"m.mid":   {"sql": "SELECT 1 FROM m"},
	})
	assert.Equal(t, []string{"a.first", "m.mid", "z.last"}, m.IDs())
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m.Put("user.row", map[string]any{"sql": "SELECT * FROM users"})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = m.Get("user.row")
				_ = m.IDs()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.Len())
}
