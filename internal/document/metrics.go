package document

import "strings"

// Font sizing bounds shared by both backends and by the compositor's
// size ladder.
const (
	MinFontSize     = 6.0  // smallest readable size in points
	MaxFontSize     = 72.0 // upper bound for automatic fitting
	DefaultFontSize = 12.0 // used when a unit carries no size hint

	lineHeightRatio = 1.2 // line height as a ratio of font size
)

// isCJK reports whether the rune renders full width. Width estimation
// treats these as one em; everything else is treated as half an em, which
// tracks the built-in faces closely enough for fitting decisions.
func isCJK(r rune) bool {
	// CJK Unified Ideographs
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		// CJK Unified Ideographs Extension A
		(r >= 0x3400 && r <= 0x4DBF) ||
		// CJK Unified Ideographs Extension B
		(r >= 0x20000 && r <= 0x2A6DF) ||
		// CJK Compatibility Ideographs
		(r >= 0xF900 && r <= 0xFAFF) ||
		// CJK Symbols and Punctuation
		(r >= 0x3000 && r <= 0x303F) ||
		// Hiragana and Katakana
		(r >= 0x3040 && r <= 0x30FF) ||
		// Hangul Syllables
		(r >= 0xAC00 && r <= 0xD7AF) ||
		// Halfwidth and Fullwidth Forms
		(r >= 0xFF00 && r <= 0xFFEF)
}

func runeWidth(r rune, fontSize float64) float64 {
	switch {
	case isCJK(r):
		return 1.0 * fontSize
	case r == ' ' || r == '\t':
		return 0.25 * fontSize
	default:
		return 0.5 * fontSize
	}
}

// StringWidth estimates the rendered width of text at the given font size.
func StringWidth(text string, fontSize float64) float64 {
	width := 0.0
	for _, r := range text {
		width += runeWidth(r, fontSize)
	}
	return width
}

// LineHeight returns the vertical advance for one line at the given size.
func LineHeight(fontSize float64) float64 {
	return fontSize * lineHeightRatio
}

// TextFits reports whether text fits within maxWidth and maxHeight at the
// given font size. The check measures the exact output of WrapText, so a
// positive answer guarantees the drawn text stays inside the region; an
// unbreakable word wider than the region fails the per-line width check.
func TextFits(text string, fontSize, maxWidth, maxHeight float64) bool {
	if fontSize <= 0 || maxWidth <= 0 || maxHeight <= 0 {
		return false
	}

	lines := strings.Split(WrapText(text, fontSize, maxWidth), "\n")
	for _, line := range lines {
		if StringWidth(line, fontSize) > maxWidth {
			return false
		}
	}
	return float64(len(lines))*LineHeight(fontSize) <= maxHeight
}

// FitFontSize binary-searches the largest font size in
// [MinFontSize, MaxFontSize] at which text fits the given region. ok is
// false when the text overflows even at MinFontSize.
func FitFontSize(text string, maxWidth, maxHeight float64) (size float64, ok bool) {
	if text == "" || maxWidth <= 0 || maxHeight <= 0 {
		return MinFontSize, false
	}

	lowSize := MinFontSize
	highSize := MaxFontSize
	optimalSize := MinFontSize

	for lowSize <= highSize {
		midSize := (lowSize + highSize) / 2

		if TextFits(text, midSize, maxWidth, maxHeight) {
			optimalSize = midSize
			lowSize = midSize + 0.5
		} else {
			highSize = midSize - 0.5
		}

		// Precision threshold
		if highSize-lowSize < 0.5 {
			break
		}
	}

	return optimalSize, TextFits(text, optimalSize, maxWidth, maxHeight)
}

// FitFontSizeWithHint fits like FitFontSize but never exceeds the source
// text's size hint, so replacement text does not shout over its page.
func FitFontSizeWithHint(text string, hint, maxWidth, maxHeight float64) (size float64, ok bool) {
	optimal, ok := FitFontSize(text, maxWidth, maxHeight)
	if !ok {
		return optimal, false
	}
	if hint > 0 && optimal > hint {
		optimal = hint
		if optimal < MinFontSize {
			optimal = MinFontSize
		}
		ok = TextFits(text, optimal, maxWidth, maxHeight)
	}
	return optimal, ok
}

// WrapText inserts newlines so text fits maxWidth at the given font size.
// Latin words move to the next line whole; CJK runs break anywhere. A
// single word wider than the region is left unbroken and overflows.
func WrapText(text string, fontSize, maxWidth float64) string {
	if maxWidth <= 0 || fontSize <= 0 || text == "" {
		return text
	}

	var result strings.Builder
	currentLineWidth := 0.0
	var currentWord strings.Builder

	flushWord := func() {
		if currentWord.Len() == 0 {
			return
		}

		word := currentWord.String()
		wordWidth := StringWidth(word, fontSize)

		if currentLineWidth+wordWidth > maxWidth && currentLineWidth > 0 {
			result.WriteRune('\n')
			currentLineWidth = 0
		}

		result.WriteString(word)
		currentLineWidth += wordWidth
		currentWord.Reset()
	}

	for _, r := range text {
		switch {
		case r == '\n':
			flushWord()
			result.WriteRune('\n')
			currentLineWidth = 0

		case r == ' ' || r == '\t':
			flushWord()
			// Add space if not at start of line
			if currentLineWidth > 0 {
				spaceWidth := 0.25 * fontSize
				if currentLineWidth+spaceWidth <= maxWidth {
					result.WriteRune(' ')
					currentLineWidth += spaceWidth
				}
			}

		case isCJK(r):
			flushWord()
			charWidth := 1.0 * fontSize
			if currentLineWidth+charWidth > maxWidth && currentLineWidth > 0 {
				result.WriteRune('\n')
				currentLineWidth = 0
			}
			result.WriteRune(r)
			currentLineWidth += charWidth

		default:
			currentWord.WriteRune(r)
		}
	}

	flushWord()

	return result.String()
}
