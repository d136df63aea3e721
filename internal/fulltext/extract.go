package fulltext

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Offsets of the two extraction heuristics. These are tuned empirically
// against page layouts observed at authoring time; they are not a
// contract of the upstream sites.
const (
	// scriptureLookback bounds the search for the true title line above
	// the scripture marker.
	scriptureLookback = 6
	// scriptureFallbackOffset is used when no non-blank line precedes the
	// marker within the lookback window.
	scriptureFallbackOffset = 2
	// wikiFooterTrimLines is the number of chrome lines discarded before
	// the wikisource footer marker.
	wikiFooterTrimLines = 17
	// ctextHeaderSkipLines is the boilerplate line count after the ctext
	// site banner.
	ctextHeaderSkipLines = 8
)

// Boundary marker literals, in both script variants where the sites vary.
const (
	scriptureMarkerTrad = "易經："
	scriptureMarkerSimp = "易经："
	wikiFooterSimp      = "隐私政策"
	wikiFooterTrad      = "隱私政策"
	ctextBanner         = "中国哲学书电子化计划"
	ctextURNPrefix      = "URN: ctp:book-of-changes/"
	wikiPathMarker      = "/wiki/周易/"
)

// ctextBoilerplate substrings are stripped from extracted corpus text.
var ctextBoilerplate = []string{
	"打开字典显示相似段落",
	"打开字典",
	"相关讨论",
}

var ctextPinyinPattern = regexp.MustCompile(`book-of-changes/([^/]+)/zhs`)

// markupLines renders markup to plain text and splits it into lines.
// Malformed input degrades to the raw text, never an error.
func markupLines(markup string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return strings.Split(markup, "\n")
	}
	return strings.Split(doc.Text(), "\n")
}

// extractWikisource applies the line-window heuristic: the window starts
// at the first title-hint line (or just above the scripture marker when
// present) and ends a fixed distance before the site footer. When either
// boundary is missing the whole document passes through.
func extractWikisource(lines []string, titleHints []string) string {
	start := findFirstMatchingLine(lines, titleHints)
	scripture := findScriptureMarker(lines)
	end := findLineIndex(lines, wikiFooterSimp)
	if end < 0 {
		end = findLineIndex(lines, wikiFooterTrad)
	}

	if scripture >= 0 {
		if prev := findPreviousNonBlank(lines, scripture, scriptureLookback); prev >= 0 {
			start = prev
		} else {
			start = scripture - scriptureFallbackOffset
			if start < 0 {
				start = 0
			}
		}
	}

	var text string
	if start >= 0 && end > start {
		hi := end - wikiFooterTrimLines
		if hi < start+1 {
			hi = start + 1
		}
		text = strings.Join(lines[start:hi], "\n")
	} else {
		text = strings.Join(lines, "\n")
	}

	text = strings.TrimSpace(strings.ReplaceAll(text, "\n\n", "\n"))
	return cleanTextBlock(text)
}

// extractCText applies the marker-pair heuristic: the window sits between
// the site banner (skipping its boilerplate lines) and the URN footer that
// embeds the romanization. Known UI chrome labels are stripped anywhere.
func extractCText(lines []string, pinyin string) string {
	start := findLineIndex(lines, ctextBanner)
	end := findLineIndex(lines, ctextURNPrefix+pinyin)

	var text string
	if start >= 0 && end > start {
		lo := start + ctextHeaderSkipLines
		if lo > end {
			lo = end
		}
		text = strings.TrimSpace(strings.Join(lines[lo:end], "\n"))
	} else {
		text = strings.Join(lines, "\n")
	}

	for _, chrome := range ctextBoilerplate {
		text = strings.ReplaceAll(text, chrome, "")
	}
	return cleanTextBlock(text)
}

// wikisourceTitleHints builds the title candidates for the line-window
// start boundary: the requested name plus the URL-decoded trailing path
// segment.
func wikisourceTitleHints(rawURL, fallbackTitle string) []string {
	var hints []string
	if fallbackTitle != "" {
		hints = append(hints, fallbackTitle)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return hints
	}
	path, err := url.PathUnescape(u.EscapedPath())
	if err != nil {
		path = u.Path
	}
	if _, after, found := strings.Cut(path, wikiPathMarker); found {
		title := strings.TrimSpace(after)
		if title != "" && !containsString(hints, title) {
			hints = append(hints, title)
		}
	}
	return hints
}

// ctextPinyinFromURL recovers the romanization slug embedded in a
// classical-corpus URL.
func ctextPinyinFromURL(rawURL string) string {
	m := ctextPinyinPattern.FindStringSubmatch(rawURL)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}

// findFirstMatchingLine prefers an exact (trimmed) hint match anywhere in
// the document, then falls back to the first line containing a hint.
func findFirstMatchingLine(lines []string, titleHints []string) int {
	for _, hint := range titleHints {
		if idx := findLineIndex(lines, hint); idx >= 0 {
			return idx
		}
	}
	for _, hint := range titleHints {
		if hint == "" {
			continue
		}
		for idx, line := range lines {
			if strings.Contains(strings.TrimSpace(line), hint) {
				return idx
			}
		}
	}
	return -1
}

func findScriptureMarker(lines []string) int {
	for idx, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == scriptureMarkerTrad || trimmed == scriptureMarkerSimp {
			return idx
		}
	}
	return -1
}

func findPreviousNonBlank(lines []string, index, lookback int) int {
	lowest := index - lookback
	if lowest < 0 {
		lowest = 0
	}
	for idx := index - 1; idx >= lowest; idx-- {
		if strings.TrimSpace(lines[idx]) != "" {
			return idx
		}
	}
	return -1
}

func findLineIndex(lines []string, target string) int {
	for idx, line := range lines {
		if strings.TrimSpace(line) == target {
			return idx
		}
	}
	return -1
}

// cleanTextBlock trims trailing whitespace per line, drops outer blank
// lines and collapses runs of blank lines to a single paragraph break.
func cleanTextBlock(text string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	out := make([]string, 0, len(lines))
	lastBlank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !lastBlank {
				out = append(out, "")
			}
			lastBlank = true
			continue
		}
		out = append(out, line)
		lastBlank = false
	}
	return strings.Join(out, "\n")
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
