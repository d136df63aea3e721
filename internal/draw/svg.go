// Package draw renders hexagrams as SVG images.
package draw

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/neoluxis/gua4destiny/internal/gua"
)

// Layout controls the SVG geometry and colors.
type Layout struct {
	Width         int
	Height        int
	LineThickness int
	LineSpacing   int
	Margin        int
	SplitGap      int
	Foreground    string
	Background    string
	// Title overrides the hexagram name as the caption; HideTitle drops
	// the caption entirely.
	Title     string
	HideTitle bool
}

// DefaultLayout mirrors the reference rendering proportions.
func DefaultLayout() Layout {
	return Layout{
		Width:         240,
		Height:        360,
		LineThickness: 16,
		LineSpacing:   44,
		Margin:        24,
		SplitGap:      28,
		Foreground:    "#111111",
		Background:    "#FFFFFF",
	}
}

func (l Layout) validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("draw: width and height must be positive")
	}
	if l.LineThickness <= 0 || l.LineSpacing <= 0 {
		return fmt.Errorf("draw: line thickness and spacing must be positive")
	}
	if l.Margin < 0 || l.SplitGap < 0 {
		return fmt.Errorf("draw: margin and split gap must not be negative")
	}
	return nil
}

// SVG renders the hexagram. Lines are drawn bottom-up: solid bars for
// yang, split bars for yin.
func SVG(h gua.Hexagram, layout Layout) (string, error) {
	if err := layout.validate(); err != nil {
		return "", err
	}
	if len(h.Lines) != 6 {
		return "", fmt.Errorf("draw: hexagram must have 6 lines, got %d", len(h.Lines))
	}

	label := layout.Title
	if label == "" && !layout.HideTitle {
		label = h.Name
	}

	var rects []string
	for i, line := range h.Lines {
		p, err := line.Polarity()
		if err != nil {
			return "", err
		}
		y := layout.Height - layout.Margin - i*layout.LineSpacing - layout.LineThickness/2
		if p == gua.Yang {
			rects = append(rects, rect(layout.Margin, y, layout.Width-2*layout.Margin, layout.LineThickness, layout.Foreground))
		} else {
			half := (layout.Width - 2*layout.Margin - layout.SplitGap) / 2
			rects = append(rects, rect(layout.Margin, y, half, layout.LineThickness, layout.Foreground))
			rects = append(rects, rect(layout.Margin+half+layout.SplitGap, y, half, layout.LineThickness, layout.Foreground))
		}
	}

	var caption string
	if label != "" {
		caption = fmt.Sprintf(
			`<text x="%g" y="%d" text-anchor="middle" font-size="16" fill="%s">%s</text>`,
			float64(layout.Width)/2, layout.Margin/2+8, layout.Foreground, label,
		)
	}

	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" role="img" aria-label="%s">`+"\n"+
			`  <rect x="0" y="0" width="%d" height="%d" fill="%s"/>`+"\n"+
			`  %s`+"\n"+
			`  %s`+"\n"+
			`</svg>`,
		layout.Width, layout.Height, layout.Width, layout.Height, label,
		layout.Width, layout.Height, layout.Background,
		caption,
		strings.Join(rects, "\n    "),
	)
	return svg, nil
}

// DataURI renders the hexagram as an inline image URI.
func DataURI(h gua.Hexagram, layout Layout) (string, error) {
	svg, err := SVG(h, layout)
	if err != nil {
		return "", err
	}
	return "data:image/svg+xml;utf8," + url.PathEscape(svg), nil
}

// Save writes the rendered SVG to path, creating parent directories.
func Save(h gua.Hexagram, layout Layout, path string) error {
	svg, err := SVG(h, layout)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("draw: create output dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(svg), 0o600); err != nil {
		return fmt.Errorf("draw: write %s: %w", path, err)
	}
	return nil
}

func rect(x, y, width, height int, fill string) string {
	return fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" rx="2"/>`, x, y, width, height, fill)
}
