// Package extract turns a page's raw styled text runs into ordered,
// translatable text units. Grouping granularity is configurable: one unit
// per styled run (span), per visual line (line, the default), or per
// paragraph block (block). Units that fail the translatability filters
// are dropped so their glyphs stay untouched downstream.
package extract

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"pdf-translator/internal/document"
	"pdf-translator/internal/types"
)

const (
	// lineTolerance is the vertical distance in points within which runs
	// count as the same visual line.
	lineTolerance = 5.0

	// spanJoinGap is the horizontal gap in points above which adjacent
	// spans on a line are joined with a space. Smaller gaps are style
	// changes inside a word and concatenate directly.
	spanJoinGap = 2.0

	// wrapMargin is the inward padding in points applied to unit boxes so
	// redrawn text keeps a small wrap margin inside the original region.
	wrapMargin = 2.0

	// blockLeading is the largest top-to-top line distance, as a multiple
	// of the font size, at which two lines still belong to one paragraph.
	blockLeading = 1.8

	// blockSizeStep is the largest font size difference in points between
	// lines of one block. Headings stay separate from body text.
	blockSizeStep = 1.5
)

// Extractor groups page text runs into units at a fixed granularity.
type Extractor struct {
	granularity types.Granularity
}

// New returns an Extractor for the given granularity.
func New(granularity types.Granularity) *Extractor {
	return &Extractor{granularity: granularity}
}

// Units reads the page's text runs and returns translatable units in
// reading order, top to bottom and left to right within a line. A page
// with no extractable text returns an empty result, not an error.
func (e *Extractor) Units(page document.Page) ([]types.TextUnit, error) {
	runs, err := page.Runs()
	if err != nil {
		return nil, err
	}

	var kept []document.TextRun
	for _, run := range runs {
		if strings.TrimSpace(run.Text) == "" || isPostScriptCode(run.Text) {
			continue
		}
		kept = append(kept, run)
	}
	if len(kept) == 0 {
		return nil, nil
	}

	pageIndex := page.Index()
	var units []types.TextUnit

	switch e.granularity {
	case types.GranularitySpan:
		for _, run := range kept {
			ln := assembleLine([]document.TextRun{run})
			if u, ok := ln.toUnit(pageIndex); ok {
				units = append(units, u)
			}
		}
	case types.GranularityBlock:
		lines := assembleLines(groupLines(kept))
		for _, blk := range mergeBlocks(lines) {
			if u, ok := blk.toUnit(pageIndex); ok {
				units = append(units, u)
			}
		}
	default:
		for _, group := range groupLines(kept) {
			ln := assembleLine(group)
			if u, ok := ln.toUnit(pageIndex); ok {
				units = append(units, u)
			}
		}
	}

	sortReadingOrder(units)
	return units, nil
}

// line is a partially assembled unit: one visual line's text with the
// style tallies still available for block merging.
type line struct {
	text        string
	bbox        types.Rect
	sizeHint    float64
	color       types.RGB
	boldRunes   int
	italicRunes int
	totalRunes  int
}

// groupLines clusters consecutive runs whose vertical positions fall
// within lineTolerance of each other. Runs arrive in paint order, so a
// new line starts whenever the position jumps; lines from different
// columns never merge because their runs are not adjacent.
func groupLines(runs []document.TextRun) [][]document.TextRun {
	var (
		groups [][]document.TextRun
		anchor float64
	)
	for _, run := range runs {
		if len(groups) == 0 || math.Abs(run.BBox.Y0-anchor) >= lineTolerance {
			groups = append(groups, []document.TextRun{run})
			anchor = run.BBox.Y0
		} else {
			groups[len(groups)-1] = append(groups[len(groups)-1], run)
		}
	}
	return groups
}

func assembleLines(groups [][]document.TextRun) []line {
	lines := make([]line, 0, len(groups))
	for _, group := range groups {
		lines = append(lines, assembleLine(group))
	}
	return lines
}

// assembleLine joins the runs of one visual line left to right. Spans
// separated by a real horizontal gap get a space between them; touching
// spans are style changes inside a word and concatenate directly.
func assembleLine(runs []document.TextRun) line {
	sorted := make([]document.TextRun, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.X0 < sorted[j].BBox.X0
	})

	var (
		b    strings.Builder
		ln   line
		endX float64
	)
	for i, run := range sorted {
		if i == 0 {
			ln.bbox = run.BBox
			ln.color = run.Color
		} else {
			if run.BBox.X0 > endX+spanJoinGap && b.Len() > 0 &&
				!strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(run.Text, " ") {
				b.WriteByte(' ')
			}
			ln.bbox = ln.bbox.Union(run.BBox)
		}
		b.WriteString(run.Text)
		if run.BBox.X1 > endX {
			endX = run.BBox.X1
		}

		n := utf8.RuneCountInString(run.Text)
		ln.totalRunes += n
		if run.Bold {
			ln.boldRunes += n
		}
		if run.Italic {
			ln.italicRunes += n
		}
		if run.FontSize > ln.sizeHint {
			ln.sizeHint = run.FontSize
		}
	}
	ln.text = b.String()
	return ln
}

// mergeBlocks merges consecutive lines into paragraph blocks. Line texts
// are joined with newlines so the original line structure survives into
// the line-level translation fallback.
func mergeBlocks(lines []line) []line {
	var (
		blocks []line
		prev   line
	)
	for i, ln := range lines {
		if i > 0 && sameBlock(prev, ln) {
			last := &blocks[len(blocks)-1]
			last.text += "\n" + ln.text
			last.bbox = last.bbox.Union(ln.bbox)
			last.boldRunes += ln.boldRunes
			last.italicRunes += ln.italicRunes
			last.totalRunes += ln.totalRunes
			if ln.sizeHint > last.sizeHint {
				last.sizeHint = ln.sizeHint
			}
		} else {
			blocks = append(blocks, ln)
		}
		prev = ln
	}
	return blocks
}

// sameBlock reports whether next continues the paragraph prev belongs
// to: directly below within normal leading, same font size, and
// horizontally overlapping. Column neighbors and headings stay separate.
func sameBlock(prev, next line) bool {
	size := prev.sizeHint
	if next.sizeHint > size {
		size = next.sizeHint
	}
	if size <= 0 {
		size = document.DefaultFontSize
	}

	dy := prev.bbox.Y1 - next.bbox.Y1
	if dy <= 0 || dy > blockLeading*size {
		return false
	}
	if math.Abs(prev.sizeHint-next.sizeHint) > blockSizeStep {
		return false
	}
	return math.Min(prev.bbox.X1, next.bbox.X1) > math.Max(prev.bbox.X0, next.bbox.X0)
}

// toUnit applies the translatability filters and converts the line to a
// unit with the inward wrap margin applied. A box too narrow to take the
// margin keeps its original extent.
func (ln line) toUnit(pageIndex int) (types.TextUnit, bool) {
	text := strings.TrimSpace(ln.text)
	if text == "" || !translatable(text) {
		return types.TextUnit{}, false
	}

	bbox := ln.bbox
	if inset := bbox.Inset(wrapMargin, 0); inset.Valid() {
		bbox = inset
	}

	unit := types.TextUnit{
		PageIndex:    pageIndex,
		BBox:         bbox,
		Text:         text,
		FontSizeHint: ln.sizeHint,
		Color:        ln.color,
		Bold:         ln.boldRunes*2 > ln.totalRunes,
		Italic:       ln.italicRunes*2 > ln.totalRunes,
	}
	if !unit.Valid() {
		return types.TextUnit{}, false
	}
	return unit, true
}

// sortReadingOrder orders units top to bottom, with units at the same
// height ordered left to right.
func sortReadingOrder(units []types.TextUnit) {
	sort.SliceStable(units, func(i, j int) bool {
		if math.Abs(units[i].BBox.Y0-units[j].BBox.Y0) < lineTolerance {
			return units[i].BBox.X0 < units[j].BBox.X0
		}
		return units[i].BBox.Y0 > units[j].BBox.Y0
	})
}
