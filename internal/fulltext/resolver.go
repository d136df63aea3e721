package fulltext

import "github.com/neoluxis/gua4destiny/internal/gua"

// ResolveIndex returns the King Wen index for the query, deriving it from
// the name when not given directly. Zero means unresolved.
func ResolveIndex(q Query, tables *gua.Category) int {
	if q.Index != 0 {
		return q.Index
	}
	if q.Name == "" {
		return 0
	}
	if idx, ok := tables.IndexByName(q.Name); ok {
		return idx
	}
	return 0
}

// ResolvePinyin returns the romanization for the query, deriving it from
// the resolved index when not given directly. Empty means unresolved.
func ResolvePinyin(q Query, tables *gua.Category) string {
	if q.Pinyin != "" {
		return q.Pinyin
	}
	idx := ResolveIndex(q, tables)
	if idx == 0 {
		return ""
	}
	if p, ok := tables.PinyinByIndex(idx); ok {
		return p
	}
	return ""
}

// Normalize fills the derivable fields of a query: the name from the
// index and the romanization from either. The returned query is what the
// resolver and extractor operate on.
func Normalize(q Query, tables *gua.Category) Query {
	if q.Name == "" && q.Index != 0 {
		if name, ok := tables.NameByIndex(q.Index); ok {
			q.Name = name
		}
	}
	q.Pinyin = ResolvePinyin(q, tables)
	return q
}

// Resolve asks each source, in priority order, for candidate endpoints
// and concatenates them, deduplicating by exact URL with the first
// occurrence winning. Every source contributes; later ones are simply
// tried later. An empty combined list fails with ErrNoSourceResolved.
func Resolve(q Query, sources []Source) ([]Candidate, error) {
	jobs, err := resolveJobs(q, sources)
	if err != nil {
		return nil, err
	}
	out := make([]Candidate, len(jobs))
	for i, j := range jobs {
		out[i] = j.Candidate
	}
	return out, nil
}

// job pairs a candidate with the source whose extractor handles it.
type job struct {
	Candidate
	source Source
}

func resolveJobs(q Query, sources []Source) ([]job, error) {
	var jobs []job
	seen := make(map[string]struct{})
	for _, s := range sources {
		for _, c := range s.Endpoints(q) {
			if _, dup := seen[c.URL]; dup {
				continue
			}
			seen[c.URL] = struct{}{}
			jobs = append(jobs, job{Candidate: c, source: s})
		}
	}
	if len(jobs) == 0 {
		return nil, ErrNoSourceResolved
	}
	return jobs, nil
}
