package sqlmap

import (
	"encoding/binary"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/maxpert/sqlmap/telemetry"
	"github.com/rs/zerolog/log"
)

// Store is the read-only configuration store of raw definitions.
// A nil or empty map means the id does not exist.
type Store interface {
	Get(id string) map[string]any
}

// Versioned is implemented by stores whose content can change at runtime.
// The version must change whenever any definition changes.
type Versioned interface {
	Version() uint64
}

// Resolver turns a template id (and optional shard) into a resolved Definition.
type Resolver interface {
	Resolve(id, shard string) (*Definition, error)
}

type storeHolder struct {
	store Store
}

// TemplateResolver loads a definition, classifies it, extracts its table and
// maps its result shape. It holds no per-call state; every Resolve builds a
// fresh Definition.
type TemplateResolver struct {
	store      atomic.Pointer[storeHolder]
	generation atomic.Uint64
	extractor  TableExtractor
	shapes     ShapeTable
}

// ResolverOption customizes a TemplateResolver.
type ResolverOption func(*TemplateResolver)

// WithExtractor replaces the regex table extractor.
func WithExtractor(x TableExtractor) ResolverOption {
	return func(r *TemplateResolver) {
		r.extractor = x
	}
}

// WithShapes replaces the result shape table.
func WithShapes(t ShapeTable) ResolverOption {
	return func(r *TemplateResolver) {
		r.shapes = t
	}
}

// NewTemplateResolver creates a resolver reading from store.
func NewTemplateResolver(store Store, opts ...ResolverOption) *TemplateResolver {
	r := &TemplateResolver{
		extractor: NewRegexExtractor(),
		shapes:    DefaultShapeTable(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.SetStore(store)
	return r
}

// SetStore swaps the backing store. Calls already in flight finish against the old one.
func (r *TemplateResolver) SetStore(store Store) {
	r.store.Store(&storeHolder{store: store})
	r.generation.Add(1)
}

// Store returns the current backing store.
func (r *TemplateResolver) Store() Store {
	return r.store.Load().store
}

// StoreVersion changes whenever the store is swapped or a versioned store reloads.
func (r *TemplateResolver) StoreVersion() uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], r.generation.Load())
	if v, ok := r.Store().(Versioned); ok {
		binary.LittleEndian.PutUint64(buf[8:], v.Version())
	}
	return xxhash.Sum64(buf[:])
}

// Resolve implements Resolver.
func (r *TemplateResolver) Resolve(id, shard string) (*Definition, error) {
	start := time.Now()
	def, err := r.resolve(id, shard)
	telemetry.ResolutionSeconds.Observe(time.Since(start).Seconds())
	telemetry.ResolutionsTotal.With(resolutionResult(err)).Inc()
	if err != nil {
		log.Debug().Err(err).Str("id", id).Str("shard", shard).Msg("SQLMAP: resolution failed")
		return nil, err
	}
	return def, nil
}

func (r *TemplateResolver) resolve(id, shard string) (*Definition, error) {
	store := r.Store()
	if store == nil {
		return nil, ErrSQLMapNotFound{ID: id}
	}
	raw := store.Get(id)
	if len(raw) == 0 {
		return nil, ErrSQLMapNotFound{ID: id}
	}

	def := newDefinition(id, raw)
	def.Shard = shard

	if def.IsTableMeta() {
		return def, nil
	}

	def.SQL = strings.TrimSpace(def.SQL)
	kind, mode, err := Classify(def.SQL)
	if err != nil {
		return nil, ErrInvalidStatementKind{ID: id, SQL: def.SQL}
	}
	def.Kind = kind
	def.Mode = mode

	if err := r.extractor.ExtractAndRewrite(def); err != nil {
		return nil, err
	}

	def.Shape = r.shapes.Lookup(resultKey(def))
	def.Resolved = true

	log.Debug().
		Str("id", id).
		Str("kind", def.Kind.String()).
		Str("table", def.Table).
		Str("shard", shard).
		Str("result_type", def.Shape.String()).
		Msg("SQLMAP: resolved")
	return def, nil
}

func resolutionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case IsNotFound(err):
		return "not_found"
	default:
		return "invalid"
	}
}
