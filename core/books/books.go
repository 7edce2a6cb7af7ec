// Package books resolves book names, short codes and historical aliases for
// bible citations. All three mappers are plain lookups over tables loaded
// once at construction; they never mutate their maps afterwards and are safe
// for concurrent readers.
package books

import (
	"strconv"
	"strings"

	"github.com/scrinium/bibrange/core/mapfile"
	"github.com/scrinium/bibrange/core/rangecode"
)

// BookCodeWidth is the number of characters in a bible book code.
const BookCodeWidth = 2

// normalizeToken lower-cases s and strips spaces and tabs, the same
// normalization the query splitter applies to book candidates. Map keys are
// stored in this form.
func normalizeToken(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "\t", "")
}

// CanonicalNameMapper maps non-canonical book spellings to their canonical
// token. Unknown tokens pass through unchanged, which makes Canonise
// idempotent: canonical tokens are never themselves map keys.
type CanonicalNameMapper struct {
	m map[string]string
}

// NewCanonicalNameMapper wraps an already parsed table.
func NewCanonicalNameMapper(m map[string]string) *CanonicalNameMapper {
	return &CanonicalNameMapper{m: m}
}

// LoadCanonicalNameMapper reads the table from a map file.
func LoadCanonicalNameMapper(path string) (*CanonicalNameMapper, error) {
	m, err := mapfile.Load(path)
	if err != nil {
		return nil, err
	}
	return NewCanonicalNameMapper(m), nil
}

// Canonise maps token to its canonical form. The lookup key is normalized
// (lower-cased, spaces stripped); tokens without a mapping are returned
// unchanged. Canonical tokens never appear as keys themselves, so applying
// Canonise twice equals applying it once.
func (c *CanonicalNameMapper) Canonise(token string) string {
	if canonical, ok := c.m[normalizeToken(token)]; ok {
		return canonical
	}
	return token
}

// Len returns the number of mappings.
func (c *CanonicalNameMapper) Len() int {
	return len(c.m)
}

// CodeMapper maps canonical book tokens to their two-character sort code.
type CodeMapper struct {
	m map[string]string
}

// NewCodeMapper wraps an already parsed table.
func NewCodeMapper(m map[string]string) *CodeMapper {
	return &CodeMapper{m: m}
}

// LoadCodeMapper reads the table from a map file.
func LoadCodeMapper(path string) (*CodeMapper, error) {
	m, err := mapfile.Load(path)
	if err != nil {
		return nil, err
	}
	return NewCodeMapper(m), nil
}

// CodeFor returns the code for a canonical book token, or "" when the book
// is unknown.
func (c *CodeMapper) CodeFor(canonical string) string {
	return c.m[normalizeToken(canonical)]
}

// Len returns the number of mappings.
func (c *CodeMapper) Len() int {
	return len(c.m)
}

// aliasRule rewrites one family of historical citation spellings. Rules run
// in order before the generic alias table; the first matching rule wins.
type aliasRule struct {
	prefixes []string
	rewrite  func(rest string) (string, bool)
}

// The 5/6 Esra spellings predate the convention that chapters 1-2 and 15-16
// of 4 Esra circulated as separate books. 6 Esra counts chapters from 15,
// so its chapter numbers shift by 14; 5 Esra chapters map through unchanged.
var aliasRules = []aliasRule{
	{
		prefixes: []string{"6esra", "6ezra", "6ezr", "6esr", "6esd"},
		rewrite: func(rest string) (string, bool) {
			if rest == "" {
				return "4esra15-16", true
			}
			i := 0
			for i < len(rest) && rangecode.IsDigit(rest[i]) {
				i++
			}
			if i == 0 {
				return "", false
			}
			chapter, err := strconv.Atoi(rest[:i])
			if err != nil {
				return "", false
			}
			return "4esra" + strconv.Itoa(chapter+14) + rest[i:], true
		},
	},
	{
		prefixes: []string{"5esra", "5ezra", "5ezr", "5esr", "5esd"},
		rewrite: func(rest string) (string, bool) {
			if rest == "" {
				return "4esra1-2", true
			}
			return "4esra" + rest, true
		},
	},
}

// AliasMapper maps alias phrases (pericope names, historical spellings) to
// canonical reference fragments.
type AliasMapper struct {
	m map[string]string
}

// NewAliasMapper wraps an already parsed table.
func NewAliasMapper(m map[string]string) *AliasMapper {
	return &AliasMapper{m: m}
}

// LoadAliasMapper reads the table from a map file.
func LoadAliasMapper(path string) (*AliasMapper, error) {
	m, err := mapfile.Load(path)
	if err != nil {
		return nil, err
	}
	return NewAliasMapper(m), nil
}

// Map rewrites a reference candidate to its canonical form. The candidate is
// normalized (lower-cased, spaces stripped) for matching; the rewrite rules
// run first, then the alias table. Candidates matching neither are returned
// unchanged.
func (a *AliasMapper) Map(candidate string) string {
	normalized := normalizeToken(candidate)

	for _, rule := range aliasRules {
		for _, prefix := range rule.prefixes {
			if !strings.HasPrefix(normalized, prefix) {
				continue
			}
			if rewritten, ok := rule.rewrite(normalized[len(prefix):]); ok {
				return rewritten
			}
		}
	}
	if mapped, ok := a.m[normalized]; ok {
		return mapped
	}
	return candidate
}

// Len returns the number of mappings.
func (a *AliasMapper) Len() int {
	return len(a.m)
}

// Mappers bundles the three lookup tables one run needs.
type Mappers struct {
	Canonical *CanonicalNameMapper
	Codes     *CodeMapper
	Aliases   *AliasMapper
}

// Resolve canonises a raw book name and looks up its code. code is "" when
// the book is unknown.
func (m *Mappers) Resolve(rawBook string) (canonical, code string) {
	canonical = m.Canonical.Canonise(rawBook)
	code = m.Codes.CodeFor(canonical)
	return canonical, code
}
