package books

import (
	"bytes"
	"embed"
	"sync"

	"github.com/scrinium/bibrange/core/mapfile"
)

//go:embed data/canonical.txt data/codes.txt data/aliases.txt
var defaultTables embed.FS

var (
	defaultOnce    sync.Once
	defaultMappers *Mappers
)

// DefaultMappers returns the mappers built from the embedded tables. The
// embedded data is fixed at compile time, so a parse failure here is a
// defect and panics.
func DefaultMappers() *Mappers {
	defaultOnce.Do(func() {
		defaultMappers = &Mappers{
			Canonical: NewCanonicalNameMapper(mustParseEmbedded("data/canonical.txt")),
			Codes:     NewCodeMapper(mustParseEmbedded("data/codes.txt")),
			Aliases:   NewAliasMapper(mustParseEmbedded("data/aliases.txt")),
		}
	})
	return defaultMappers
}

// LoadMappers builds the mapper bundle from explicit file paths. Empty paths
// fall back to the embedded default table for that mapper.
func LoadMappers(canonicalPath, codesPath, aliasPath string) (*Mappers, error) {
	m := &Mappers{}
	if canonicalPath == "" {
		m.Canonical = DefaultMappers().Canonical
	} else {
		var err error
		if m.Canonical, err = LoadCanonicalNameMapper(canonicalPath); err != nil {
			return nil, err
		}
	}
	if codesPath == "" {
		m.Codes = DefaultMappers().Codes
	} else {
		var err error
		if m.Codes, err = LoadCodeMapper(codesPath); err != nil {
			return nil, err
		}
	}
	if aliasPath == "" {
		m.Aliases = DefaultMappers().Aliases
	} else {
		var err error
		if m.Aliases, err = LoadAliasMapper(aliasPath); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func mustParseEmbedded(name string) map[string]string {
	data, err := defaultTables.ReadFile(name)
	if err != nil {
		panic("books: missing embedded table " + name)
	}
	m, err := mapfile.Parse(bytes.NewReader(data), "embedded "+name)
	if err != nil {
		panic("books: broken embedded table: " + err.Error())
	}
	return m
}
