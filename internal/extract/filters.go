package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// translatable reports whether text is worth sending to a translation
// provider. Operator garbage, mostly-unprintable text, formulas, and text
// without any letters are left on the page untouched.
func translatable(text string) bool {
	if isPostScriptCode(text) {
		return false
	}
	if hasExcessiveNonPrintable(text) {
		return false
	}
	if isMathFormula(text) {
		return false
	}
	return hasLetters(text)
}

// psOperators are fused operator names that do not occur in prose.
// Ambiguous operators such as "fill" and "stroke" are real English words
// and are deliberately not matched on their own.
var psOperators = []string{
	"currentpoint", "gsave", "grestore", "newpath", "closepath",
	"setrgbcolor", "setgray", "setlinewidth", "showpage",
	"moveto", "lineto", "curveto",
}

// isPostScriptCode reports whether text looks like PostScript or PDF
// operator code. Some generators leak operator streams into the visible
// text layer; translating them would paint garbage back onto the page.
func isPostScriptCode(text string) bool {
	if text == "" {
		return false
	}
	lower := strings.ToLower(text)

	// Procedure definitions such as "/name { ... } def"
	if (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) &&
		strings.Contains(text, "/") {
		return true
	}
	if strings.Contains(lower, "null def") {
		return true
	}

	// Marker tokens from leaked hyperlink code
	if strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	if strings.Contains(lower, "/burl") || strings.Contains(lower, "burl@") {
		return true
	}

	for _, op := range psOperators {
		if strings.Contains(lower, op) {
			return true
		}
	}

	// Several /Name tokens are operator code, unless the text is a URL
	// whose path segments just look similar.
	if !strings.Contains(text, "://") && !strings.Contains(lower, "http") {
		names := 0
		for _, word := range strings.Fields(text) {
			if isPSName(word) {
				names++
			}
		}
		if names >= 3 {
			return true
		}
	}

	return false
}

// isPSName reports whether word has the shape of a PostScript name
// literal such as /Font or /page_1.
func isPSName(word string) bool {
	if len(word) < 2 || word[0] != '/' {
		return false
	}
	for _, c := range word[1:] {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '@':
		default:
			return false
		}
	}
	return true
}

// hasExcessiveNonPrintable reports whether more than a tenth of the text
// is control characters. Such blocks are encoding damage, not prose.
func hasExcessiveNonPrintable(text string) bool {
	if text == "" {
		return false
	}
	bad := 0
	for _, r := range text {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			bad++
		}
		if r >= 0x7F && r <= 0x9F {
			bad++
		}
	}
	return float64(bad)/float64(utf8.RuneCountInString(text)) > 0.1
}

// mathSymbols are runes that mark mathematical notation. Greek letters
// count because formulas use them far more often than prose does.
const mathSymbols = "∫∑∏√∂∇±×÷≤≥≠≈∞∈∉⊂⊃∪∩∧∨¬∀∃αβγδεζηθικλμνξοπρστυφχψω"

// isMathFormula reports whether text is mostly mathematical notation.
// Formulas must stay verbatim; translation providers mangle them.
func isMathFormula(text string) bool {
	if text == "" {
		return false
	}

	symbols, total := 0, 0
	for _, r := range text {
		total++
		switch r {
		case '+', '-', '*', '/', '=', '<', '>', '^', '_', '~':
			symbols++
		case '(', ')', '[', ']', '{', '}':
			symbols++
		default:
			if strings.ContainsRune(mathSymbols, r) {
				symbols++
			}
		}
	}
	if total > 0 && float64(symbols)/float64(total) > 0.3 {
		return true
	}

	// Short equations such as "x = y + z" or "f(x) = 0"
	if strings.Contains(text, "=") &&
		(strings.Contains(text, "(") || strings.Contains(text, "+") || strings.Contains(text, "-")) {
		if len(strings.Fields(text)) <= 5 && len(text) < 100 {
			return true
		}
	}

	if strings.ContainsAny(text, "∫∑∏√∂∇") {
		return true
	}

	// Dense subscript and superscript markers
	if strings.Count(text, "_")+strings.Count(text, "^") > 2 && len(text) < 100 {
		return true
	}

	return false
}

// hasLetters reports whether text contains at least one letter in any
// script. Bare numbers, page markers, and rule art have none.
func hasLetters(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
