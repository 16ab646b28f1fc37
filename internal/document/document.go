// Package document is the boundary to the underlying PDF library. It
// exposes pages as sequences of styled text runs and lets callers redact
// regions and draw replacement text into them.
//
// Two backends satisfy the interfaces. The default backend is pure Go:
// ledongthuc/pdf for extraction and pdfcpu for writing, where the original
// glyphs are covered by the replacement stamp's opaque background rather
// than removed. Building with -tags mupdf swaps in native MuPDF bindings
// with structured text extraction and true redaction annotations.
//
// All coordinates use PDF points with the origin at the bottom-left corner
// of the page.
package document

import (
	"os"
	"strings"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// TextRun is a contiguous piece of page text with uniform styling, the
// rawest unit a backend reports. Grouping runs into translatable units is
// the extractor's job, not the backend's.
type TextRun struct {
	Text     string
	BBox     types.Rect
	FontSize float64
	FontName string
	Bold     bool
	Italic   bool
	Color    types.RGB
}

// FontVariant names one of the four built-in faces used for drawing.
// The values are standard font names understood by both backends.
type FontVariant string

const (
	FontRegular    FontVariant = "Helvetica"
	FontBold       FontVariant = "Helvetica-Bold"
	FontItalic     FontVariant = "Helvetica-Oblique"
	FontBoldItalic FontVariant = "Helvetica-BoldOblique"
)

// VariantFor selects the face matching the given style flags.
func VariantFor(bold, italic bool) FontVariant {
	switch {
	case bold && italic:
		return FontBoldItalic
	case bold:
		return FontBold
	case italic:
		return FontItalic
	default:
		return FontRegular
	}
}

// styleFromFontName derives style flags from a PDF font name. Subset
// prefixes and foundry suffixes vary, but bold and italic faces carry the
// style in the name itself ("Arial-BoldMT", "Times-Italic", "CMTI10" is
// the exception we accept missing).
func styleFromFontName(name string) (bold, italic bool) {
	lower := strings.ToLower(name)
	bold = strings.Contains(lower, "bold")
	italic = strings.Contains(lower, "italic") || strings.Contains(lower, "oblique")
	return bold, italic
}

// Page is one page of an open document. Pages are not safe for concurrent
// use; the pipeline mutates a page from a single goroutine only.
type Page interface {
	// Index returns the zero-based page number.
	Index() int

	// Bounds returns the page rectangle in PDF points.
	Bounds() types.Rect

	// Runs returns the page's styled text runs in document paint order.
	Runs() ([]TextRun, error)

	// AddRedaction marks a region whose original glyphs are to be erased.
	// Marks take effect on ApplyRedactions.
	AddRedaction(rect types.Rect)

	// ApplyRedactions erases the glyphs under all pending marks without
	// filling the regions, leaving background art intact.
	ApplyRedactions() error

	// DrawFittedText renders text inside rect at the given size, wrapped
	// to the rect width. A fontSize of zero or less requests automatic
	// fitting. When the text cannot fit at the requested size the method
	// draws nothing and reports overflowed true.
	DrawFittedText(rect types.Rect, text string, fontSize float64, variant FontVariant, color types.RGB) (overflowed bool, err error)
}

// Document is an open PDF. Close releases it; Save writes the mutated
// document to a new path, leaving the source file untouched.
type Document interface {
	Path() string
	PageCount() int
	Page(index int) (Page, error)
	Save(path string) error
	Close() error
}

// Open opens the PDF at path, preferring the native backend when it is
// compiled in and falling back to the pure Go backend otherwise.
func Open(path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, types.NewAppError(types.ErrFileNotFound, "document file not found", err)
	}
	if mupdfAvailable() {
		doc, err := openMuPDF(path)
		if err == nil {
			return doc, nil
		}
		logger.Warn("native PDF engine failed to open document, falling back to pure Go reader",
			logger.String("path", path),
			logger.Err(err))
	}
	return openPDFCPU(path)
}
