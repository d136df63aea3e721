package fulltext

import (
	"fmt"

	"github.com/neoluxis/gua4destiny/internal/gua"
)

// Built-in source keys and priorities. Lower priority is tried earlier.
const (
	SourceKeyWikisource     = "wikisource"
	SourceKeyWikisourceTrad = "wikisource_trad"
	SourceKeyCTextZHS       = "ctext_zhs"

	priorityWikisource = 10
	priorityCTextZHS   = 20
)

// wikisourceSource serves the encyclopedia-style family. It needs a
// hexagram name and additionally offers the traditional-script page when
// the transliteration differs.
type wikisourceSource struct {
	tables *gua.Category
}

func newWikisourceSource(tables *gua.Category) *wikisourceSource {
	return &wikisourceSource{tables: tables}
}

func (s *wikisourceSource) Key() string   { return SourceKeyWikisource }
func (s *wikisourceSource) Priority() int { return priorityWikisource }

func (s *wikisourceSource) Endpoints(q Query) []Candidate {
	if q.Name == "" {
		return nil
	}
	candidates := []Candidate{{
		SourceKey: SourceKeyWikisource,
		URL:       fmt.Sprintf("https://zh.wikisource.org/wiki/周易/%s", q.Name),
	}}
	if trad := s.tables.ToTraditional(q.Name); trad != q.Name {
		candidates = append(candidates, Candidate{
			SourceKey: SourceKeyWikisourceTrad,
			URL:       fmt.Sprintf("https://zh.wikisource.org/wiki/周易/%s", trad),
		})
	}
	return candidates
}

func (s *wikisourceSource) Extract(markup string, q Query, url string) string {
	hints := wikisourceTitleHints(url, q.Name)
	return extractWikisource(markupLines(markup), hints)
}

// ctextSource serves the classical corpus. It requires a romanization,
// derived from the index or name when not provided directly.
type ctextSource struct {
	tables *gua.Category
}

func newCTextSource(tables *gua.Category) *ctextSource {
	return &ctextSource{tables: tables}
}

func (s *ctextSource) Key() string   { return SourceKeyCTextZHS }
func (s *ctextSource) Priority() int { return priorityCTextZHS }

func (s *ctextSource) Endpoints(q Query) []Candidate {
	pinyin := ResolvePinyin(q, s.tables)
	if pinyin == "" {
		return nil
	}
	return []Candidate{{
		SourceKey: SourceKeyCTextZHS,
		URL:       fmt.Sprintf("https://ctext.org/book-of-changes/%s/zhs", pinyin),
	}}
}

func (s *ctextSource) Extract(markup string, q Query, url string) string {
	pinyin := ctextPinyinFromURL(url)
	if pinyin == "" {
		pinyin = ResolvePinyin(q, s.tables)
	}
	return extractCText(markupLines(markup), pinyin)
}
