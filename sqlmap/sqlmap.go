// Package sqlmap resolves named SQL templates ("user.insert") into classified,
// table-aware definitions and hands them to a Builder for parameter binding.
//
// Resolution never touches a database. The flow is one-way:
// Store -> Resolver (Classify, TableExtractor, ShapeTable) -> Builder -> Statement.
package sqlmap

import (
	"fmt"
	"reflect"
)

// Builder merges caller data into a resolved definition.
type Builder interface {
	Build(def *Definition, data Data, opts Options) (*Statement, error)
}

// SQLMap is the caller-facing entry point.
type SQLMap struct {
	resolver Resolver
	builder  Builder
}

// New creates a SQLMap. resolver may be a TemplateResolver or a CachingResolver.
func New(resolver Resolver, builder Builder) *SQLMap {
	return &SQLMap{resolver: resolver, builder: builder}
}

// Resolver returns the underlying resolver.
func (m *SQLMap) Resolver() Resolver {
	return m.resolver
}

// GetSQL resolves id and builds the final statement from data and opts.
//
// data["sharding"], when present, selects the shard table and is never
// forwarded as a bind value; the caller's map is not modified. Table-metadata
// ids ("user.table") come back unresolved with empty SQL and skip the builder.
func (m *SQLMap) GetSQL(id string, data Data, opts Options) (*Statement, error) {
	shard, data := popSharding(data)

	def, err := m.resolver.Resolve(id, shard)
	if err != nil {
		return nil, err
	}

	if !def.Resolved {
		return &Statement{Definition: def}, nil
	}

	return m.builder.Build(def, data, opts)
}

// popSharding returns the shard key and a copy of data without it. Falsy
// values (nil, false, zero, "") are popped but select no shard.
func popSharding(data Data) (string, Data) {
	raw, ok := data[ShardingKey]
	if !ok {
		return "", data
	}

	rest := make(Data, len(data)-1)
	for k, v := range data {
		if k != ShardingKey {
			rest[k] = v
		}
	}

	switch v := raw.(type) {
	case nil:
		return "", rest
	case string:
		return v, rest
	case bool:
		if !v {
			return "", rest
		}
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			if rv.IsZero() {
				return "", rest
			}
		}
	}
	return fmt.Sprint(raw), rest
}
