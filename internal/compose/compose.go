// Package compose replaces translated text on a page. For every unit with
// a non-empty translation the original glyphs are erased through a
// redaction mark and the translation is drawn back into the unit's box,
// shrunk and finally truncated until it fits. Units without a translation
// keep their original glyphs untouched.
package compose

import (
	"strings"

	"pdf-translator/internal/document"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// ladderSizes are the explicit point sizes tried after automatic fitting
// fails, filtered to those below the unit's own size.
var ladderSizes = []float64{14, 12, 11, 10, 9, 8, 7, 6}

// truncateKeepMin is the smallest number of runes truncation keeps before
// the ellipsis.
const truncateKeepMin = 50

// Stats counts what ComposePage did to one page.
type Stats struct {
	Drawn     int // units whose translation was rendered
	Skipped   int // units left untouched because the translation was empty
	Truncated int // units rendered shortened at the floor size
}

// Compositor draws translated units back onto pages. Construct with New.
type Compositor struct {
	minFontSize float64
}

// New returns a Compositor with the given floor font size in points.
// Sizes at or below zero fall back to the document minimum.
func New(minFontSize float64) *Compositor {
	if minFontSize <= 0 {
		minFontSize = document.MinFontSize
	}
	return &Compositor{minFontSize: minFontSize}
}

// ComposePage erases the original glyphs of every unit that has a
// translation and draws the translated text in its place. All redaction
// marks are added first and applied in one pass, then the replacement
// text is drawn. A unit whose translation is empty after trimming gets no
// redaction mark at all.
func (c *Compositor) ComposePage(page document.Page, plan types.PageRenderPlan) (Stats, error) {
	var stats Stats
	if len(plan.Texts) != len(plan.Units) {
		return stats, types.NewAppError(types.ErrInvalidInput, "render plan texts do not match units", nil)
	}

	marked := false
	for i, unit := range plan.Units {
		if strings.TrimSpace(plan.Texts[i]) == "" {
			stats.Skipped++
			continue
		}
		page.AddRedaction(unit.BBox)
		marked = true
	}
	if !marked {
		return stats, nil
	}
	if err := page.ApplyRedactions(); err != nil {
		return stats, err
	}

	for i, unit := range plan.Units {
		text := strings.TrimSpace(plan.Texts[i])
		if text == "" {
			continue
		}
		truncated, err := c.drawUnit(page, unit, text)
		if err != nil {
			logger.Warn("failed to draw translated text",
				logger.Int("page", unit.PageIndex),
				logger.Int("unit", i),
				logger.Err(err))
			continue
		}
		stats.Drawn++
		if truncated {
			stats.Truncated++
		}
	}

	return stats, nil
}

// drawUnit renders text inside the unit's box: automatic fitting capped
// at the unit's own size first, then the explicit size ladder from that
// size down, finally truncated at the floor size. Text is never drawn at
// a size the backend reports as overflowing. Reports whether the text was
// truncated.
func (c *Compositor) drawUnit(page document.Page, unit types.TextUnit, text string) (bool, error) {
	variant := document.VariantFor(unit.Bold, unit.Italic)
	box := unit.BBox

	if size, ok := document.FitFontSizeWithHint(text, unit.FontSizeHint, box.Width(), box.Height()); ok {
		overflowed, err := page.DrawFittedText(box, text, size, variant, unit.Color)
		if err != nil || !overflowed {
			return false, err
		}
	}

	for _, size := range c.ladder(unit.FontSizeHint) {
		overflowed, err := page.DrawFittedText(box, text, size, variant, unit.Color)
		if err != nil || !overflowed {
			return false, err
		}
	}

	// The glyphs are already erased, so when even the shortest text
	// overflows the unit loses its text but never overlaps a neighbor.
	short := truncate(text)
	for {
		overflowed, err := page.DrawFittedText(box, short, c.minFontSize, variant, unit.Color)
		if err != nil {
			return true, err
		}
		if !overflowed {
			return true, nil
		}
		next := shorten(short)
		if next == short {
			logger.Warn("translated text does not fit its region even truncated at the minimum size",
				logger.Int("page", unit.PageIndex),
				logger.Float64("width", box.Width()),
				logger.Float64("height", box.Height()))
			return true, nil
		}
		short = next
	}
}

// ladder returns the sizes to try after automatic fitting: the unit's own
// size (or the document default when unknown), the standard steps below
// it, and the floor.
func (c *Compositor) ladder(hint float64) []float64 {
	start := hint
	if start <= 0 {
		start = document.DefaultFontSize
	}
	if start < c.minFontSize {
		start = c.minFontSize
	}

	sizes := []float64{start}
	for _, s := range ladderSizes {
		if s < start && s > c.minFontSize {
			sizes = append(sizes, s)
		}
	}
	if c.minFontSize < start {
		sizes = append(sizes, c.minFontSize)
	}
	return sizes
}

// truncate keeps a quarter of the text, at least truncateKeepMin runes,
// and marks the cut with an ellipsis.
func truncate(text string) string {
	runes := []rune(text)
	keep := len(runes) / 4
	if keep < truncateKeepMin {
		keep = truncateKeepMin
	}
	if keep >= len(runes) {
		return text
	}
	return strings.TrimRight(string(runes[:keep]), " \t\n") + " …"
}

// shorten halves an already truncated text. Returns the input unchanged
// once nothing meaningful is left to cut.
func shorten(text string) string {
	trimmed := strings.TrimSuffix(text, " …")
	runes := []rune(trimmed)
	if len(runes) <= 1 {
		return text
	}
	return strings.TrimRight(string(runes[:len(runes)/2]), " \t\n") + " …"
}
