// Package fulltext retrieves canonical hexagram reference text from
// independent public web sources, with priority ordering, retry/backoff
// and a local filesystem cache.
package fulltext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neoluxis/gua4destiny/internal/gua"
)

// Query carries the identifying inputs of one resolution request.
// Zero values mean "not provided"; a valid Index is 1..64.
type Query struct {
	Name   string
	Index  int
	Pinyin string
}

// Candidate is one concrete URL eligible to be fetched, together with the
// source key that produced it. The key may be a variant of the producing
// source's key (e.g. the traditional-script endpoint).
type Candidate struct {
	SourceKey string
	URL       string
}

// Source is one external provider of reference text. Endpoints builds
// zero or more candidates from the query; builders that cannot serve the
// given inputs return nil rather than an error. Extract turns raw markup
// into cleaned plain text and never fails: worst case it returns the
// noisy full-page text, which the orchestrator validates.
type Source interface {
	Key() string
	Priority() int
	Endpoints(q Query) []Candidate
	Extract(markup string, q Query, url string) string
}

// Registry holds the registered sources. It is populated once at startup
// and read-only afterwards; Active applies the per-service allow-list.
type Registry struct {
	sources []Source
	keys    map[string]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{keys: make(map[string]struct{})}
}

// NewBuiltinRegistry returns a registry with the built-in sources
// registered: the wikisource encyclopedia family (priority 10) and the
// ctext classical corpus (priority 20).
func NewBuiltinRegistry(tables *gua.Category) (*Registry, error) {
	if tables == nil {
		tables = gua.DefaultCategory()
	}
	r := NewRegistry()
	for _, s := range []Source{
		newWikisourceSource(tables),
		newCTextSource(tables),
	} {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a source. Keys are trimmed and compared case-insensitively;
// a duplicate key fails with ErrDuplicateSource.
func (r *Registry) Register(s Source) error {
	key := normalizeKey(s.Key())
	if key == "" {
		return fmt.Errorf("fulltext: source key must not be empty")
	}
	if _, exists := r.keys[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateSource, key)
	}
	r.keys[key] = struct{}{}
	r.sources = append(r.sources, s)
	return nil
}

// Active returns the registered sources sorted ascending by priority,
// preserving registration order on ties. When allow is non-empty the
// result is filtered to those keys (case-insensitive).
func (r *Registry) Active(allow []string) []Source {
	var allowed map[string]struct{}
	if len(allow) > 0 {
		allowed = make(map[string]struct{}, len(allow))
		for _, key := range allow {
			allowed[normalizeKey(key)] = struct{}{}
		}
	}

	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		if allowed != nil {
			if _, ok := allowed[normalizeKey(s.Key())]; !ok {
				continue
			}
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority() < out[j].Priority()
	})
	return out
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
