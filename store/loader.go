package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cespare/xxhash/v2"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// tableKey is the operation key that holds table metadata instead of a statement.
const tableKey = "table"

// Loader reads template files from one or more directories.
//
// Every *.toml, *.yaml or *.yml file is a namespace named after its path
// relative to the dir ("billing/order.toml" -> "billing.order"). Each
// top-level table in the file is one operation:
//
//	[insert]
//	sql = "INSERT INTO orders #INSERT#"
//	require = ["user_id"]
//
// resolves as "billing.order.insert". A top-level string "table" is shorthand
// for a table-metadata entry.
type Loader struct {
	dirs    []string
	include []glob.Glob
	exclude []glob.Glob
}

// NewLoader compiles include/exclude patterns. Empty include matches every file.
func NewLoader(dirs, include, exclude []string) (*Loader, error) {
	l := &Loader{dirs: dirs}

	for _, pattern := range include {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", pattern, err)
		}
		l.include = append(l.include, g)
	}
	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
		l.exclude = append(l.exclude, g)
	}

	return l, nil
}

// Dirs returns the configured directories.
func (l *Loader) Dirs() []string {
	return l.dirs
}

// Load reads every matching file and returns the definitions plus a content
// fingerprint. Any unreadable or malformed file fails the whole load.
func (l *Loader) Load() (map[string]map[string]any, uint64, error) {
	defs := make(map[string]map[string]any)
	digest := xxhash.New()

	for _, dir := range l.dirs {
		files, err := l.collect(dir)
		if err != nil {
			return nil, 0, err
		}

		for _, rel := range files {
			data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
			if err != nil {
				return nil, 0, fmt.Errorf("failed to read %s: %w", rel, err)
			}
			_, _ = digest.WriteString(rel)
			_, _ = digest.Write(data)

			doc, err := decode(rel, data)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to parse %s: %w", rel, err)
			}

			namespace := strings.ReplaceAll(strings.TrimSuffix(rel, filepath.Ext(rel)), "/", ".")
			for op, value := range doc {
				raw, ok := toDefinition(op, value)
				if !ok {
					log.Debug().Str("file", rel).Str("key", op).Msg("Skipping non-table template entry")
					continue
				}

				id := namespace + "." + op
				if _, dup := defs[id]; dup {
					log.Warn().Str("id", id).Str("dir", dir).Msg("Duplicate template id, later dir wins")
				}
				defs[id] = raw
			}
		}
	}

	return defs, digest.Sum64(), nil
}

// LoadInto loads and atomically replaces the content of m.
func (l *Loader) LoadInto(m *Memory) error {
	defs, version, err := l.Load()
	if err != nil {
		return err
	}
	m.Replace(defs, version)
	return nil
}

// collect returns the sorted slash-separated relative paths of template files under dir.
func (l *Loader) collect(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTemplateFile(path) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if l.matches(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	sort.Strings(files)
	return files, nil
}

func (l *Loader) matches(rel string) bool {
	for _, g := range l.exclude {
		if g.Match(rel) {
			return false
		}
	}
	if len(l.include) == 0 {
		return true
	}
	for _, g := range l.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func isTemplateFile(path string) bool {
	switch filepath.Ext(path) {
	case ".toml", ".yaml", ".yml":
		return true
	}
	return false
}

func decode(rel string, data []byte) (map[string]any, error) {
	doc := make(map[string]any)
	if filepath.Ext(rel) == ".toml" {
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func toDefinition(op string, value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case string:
		if op == tableKey {
			return map[string]any{tableKey: v}, true
		}
	}
	return nil, false
}
