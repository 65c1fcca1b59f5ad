package sqlmap

import "strings"

// Mode tells the execution layer whether a statement reads or writes.
type Mode int

const (
	ModeWrite Mode = iota
	ModeRead
)

func (m Mode) String() string {
	if m == ModeRead {
		return "r"
	}
	return "w"
}

// StatementKind is the leading verb of a template statement.
type StatementKind int

const (
	KindUnknown StatementKind = iota // 0 - means not yet classified
	KindInsert
	KindSelect
	KindUpdate
	KindDelete
	KindCreateTable
	KindTruncate
)

// String returns the lowercase form used as the default result key.
func (k StatementKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindSelect:
		return "select"
	case KindUpdate:
		return "update"
	case KindDelete:
		return "delete"
	case KindCreateTable:
		return "create_table"
	case KindTruncate:
		return "truncate"
	default:
		return "unknown"
	}
}

// Raw definition keys read from the store.
const (
	FieldSQL     = "sql"
	FieldRequire = "require"
	FieldLimit   = "limit"
	FieldSQLType = "sql_type"
	FieldTable   = "table"
)

// TableKey is the operation key that marks a table-metadata entry rather than a statement.
const TableKey = "table"

// Data holds caller bind values. The "sharding" key is reserved for the resolver.
type Data = map[string]any

// Options holds free-form builder options.
type Options = map[string]any

// ShardingKey is the reserved data entry carrying the shard table name.
const ShardingKey = "sharding"

// Definition is a single named SQL operation loaded from the store and enriched
// by classification and table extraction.
type Definition struct {
	ID      string   `json:"id" msgpack:"id"`
	SQL     string   `json:"sql" msgpack:"sql"`
	Require []string `json:"require,omitempty" msgpack:"require,omitempty"`
	Limit   []string `json:"limit,omitempty" msgpack:"limit,omitempty"`

	// ResultKey overrides the logical result type (config key "sql_type").
	// Empty means the statement kind decides.
	ResultKey string `json:"sql_type,omitempty" msgpack:"sql_type,omitempty"`

	Mode  Mode          `json:"mode" msgpack:"mode"`
	Kind  StatementKind `json:"kind" msgpack:"kind"`
	Shape ResultShape   `json:"result_type" msgpack:"result_type"`
	Table string        `json:"table,omitempty" msgpack:"table,omitempty"`
	Shard string        `json:"sharding,omitempty" msgpack:"sharding,omitempty"`

	// Extra keeps raw keys this package does not interpret.
	Extra map[string]any `json:"extra,omitempty" msgpack:"extra,omitempty"`

	// Resolved is false for table-metadata entries, which skip classification.
	Resolved bool `json:"resolved" msgpack:"resolved"`
}

// Operation returns the last dotted segment of the id.
func (d *Definition) Operation() string {
	return operationKey(d.ID)
}

// IsTableMeta reports whether the id denotes a table-metadata lookup.
func (d *Definition) IsTableMeta() bool {
	return d.Operation() == TableKey
}

// Clone returns a deep copy so cached definitions are never shared with callers.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := *d
	if d.Require != nil {
		c.Require = append([]string(nil), d.Require...)
	}
	if d.Limit != nil {
		c.Limit = append([]string(nil), d.Limit...)
	}
	if d.Extra != nil {
		c.Extra = copyMap(d.Extra)
	}
	return &c
}

// copyValue deep-copies the container shapes the TOML and YAML decoders produce.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(t))
		for i, item := range t {
			out[i] = copyMap(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

// Statement is the builder's output: final SQL with positional args.
type Statement struct {
	Definition *Definition `json:"definition" msgpack:"definition"`
	SQL        string      `json:"sql" msgpack:"sql"`
	Args       []any       `json:"args" msgpack:"args"`
}

func operationKey(id string) string {
	if idx := strings.LastIndex(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}

// newDefinition converts a raw store entry into a Definition. Unknown keys
// go to Extra; non-string sql is left empty and rejected by the classifier.
func newDefinition(id string, raw map[string]any) *Definition {
	def := &Definition{ID: id}
	for k, v := range raw {
		switch k {
		case FieldSQL:
			def.SQL, _ = v.(string)
		case FieldRequire:
			def.Require = toStrings(v)
		case FieldLimit:
			def.Limit = toStrings(v)
		case FieldSQLType:
			def.ResultKey, _ = v.(string)
		case FieldTable:
			def.Table, _ = v.(string)
		default:
			if def.Extra == nil {
				def.Extra = make(map[string]any)
			}
			def.Extra[k] = copyValue(v)
		}
	}
	return def
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	}
	return nil
}
