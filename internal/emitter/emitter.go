// Package emitter implements the text-only companion workflow: extract
// the plain text of every page, translate it as a single body, and
// typeset the result into a fresh A4 document.
//
// Nothing here preserves layout. The emitter produces a clean reading
// copy, which also makes it the only consumer of the OCR fallback for
// image-only pages; the layout pipeline leaves such pages untouched.
package emitter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/encoding/charmap"

	"pdf-translator/internal/chunker"
	"pdf-translator/internal/document"
	"pdf-translator/internal/extract"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/ocr"
	"pdf-translator/internal/schedule"
	"pdf-translator/internal/types"
)

// Typesetting constants for Convert, in PDF points. The margin
// approximates the common 15 mm page margin.
const (
	convertFont       = "Arial"
	convertFontSize   = 12.0
	convertLineHeight = 18.0
	convertMargin     = 42.5
)

// Options configures the emitter.
type Options struct {
	// MaxChunkChars caps the chunk size for Translate. Zero means the
	// chunker default.
	MaxChunkChars int

	// OCRFallback sends image-only pages through text recognition
	// during Extract. Requires OCR support compiled in; off by default.
	OCRFallback bool

	// OCRLanguage is the BCP 47 code of the expected page language,
	// passed to the recognition engine. "auto" or empty keeps the
	// engine default.
	OCRLanguage string
}

// Emitter runs the extract, translate and convert operations.
type Emitter struct {
	translate schedule.TranslateFunc
	chunks    *chunker.Chunker
	opts      Options

	// Seams for tests; production code keeps the package defaults.
	open      func(string) (document.Document, error)
	recognize func(string, int) (string, error)
}

// New returns an Emitter that translates through translate. When OCR
// fallback is requested but not compiled in it is disabled with a
// warning rather than failing every image-only page later.
func New(translate schedule.TranslateFunc, opts Options) *Emitter {
	if opts.OCRFallback && !ocr.Available() {
		logger.Warn("OCR fallback requested but not compiled in, image-only pages will be marked instead")
		opts.OCRFallback = false
	}
	e := &Emitter{
		translate: translate,
		chunks:    chunker.New(opts.MaxChunkChars),
		opts:      opts,
		open:      document.Open,
	}
	e.recognize = func(path string, index int) (string, error) {
		return ocr.RecognizePage(path, index, opts.OCRLanguage)
	}
	return e
}

// Extract returns the plain text of all pages joined by blank lines.
// A page with no extractable text contributes a marker line so page
// boundaries stay visible in the output; with OCR fallback enabled such
// pages go through recognition first.
func (e *Emitter) Extract(path string) (string, error) {
	doc, err := e.open(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	ex := extract.New(types.GranularityLine)
	parts := make([]string, 0, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		page, err := doc.Page(i)
		if err != nil {
			return "", err
		}
		units, err := ex.Units(page)
		if err != nil {
			return "", err
		}
		text := joinUnits(units)
		if text == "" {
			text = e.recognizePage(path, i)
		}
		if text == "" {
			text = fmt.Sprintf("[Page %d: No extractable text]", i+1)
		}
		parts = append(parts, text)
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n")), nil
}

func joinUnits(units []types.TextUnit) string {
	if len(units) == 0 {
		return ""
	}
	lines := make([]string, len(units))
	for i, u := range units {
		lines[i] = u.Text
	}
	return strings.Join(lines, "\n")
}

// recognizePage OCRs one page, returning "" when the fallback is off or
// recognition fails. Failures are logged and the page falls back to the
// marker.
func (e *Emitter) recognizePage(path string, index int) string {
	if !e.opts.OCRFallback {
		return ""
	}
	text, err := e.recognize(path, index)
	if err != nil {
		logger.Warn("OCR failed for page",
			logger.Int("page", index+1),
			logger.Err(err))
		return ""
	}
	return strings.TrimSpace(text)
}

// Translate runs text through the translation chain chunk by chunk and
// reassembles the result in source order. A chunk that still fails
// after the chain's retries fails the whole call.
func (e *Emitter) Translate(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	chunks := e.chunks.Split(0, text)
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		translated, err := e.translate(ctx, ch.Text)
		if err != nil {
			return "", types.NewAppErrorWithDetails(types.ErrChunkFailed, "text translation failed",
				fmt.Sprintf("chunk %d of %d", i+1, len(chunks)), err)
		}
		out[i] = translated
	}
	return chunker.Reassemble(chunks, out), nil
}

// Convert typesets text into a fresh portrait A4 document at outputPath.
// The built-in fonts cover cp1252 only; characters outside it are
// replaced with '?'.
func (e *Emitter) Convert(text, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return types.NewAppError(types.ErrInvalidInput, "no text to convert", nil)
	}

	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(convertMargin, convertMargin, convertMargin)
	pdf.SetAutoPageBreak(true, convertMargin)
	pdf.AddPage()
	pdf.SetFont(convertFont, "", convertFontSize)
	pdf.MultiCell(0, convertLineHeight, toWinAnsi(text), "", "L", false)
	if err := pdf.Error(); err != nil {
		return types.NewAppError(types.ErrDocumentSave, "text document assembly failed", err)
	}

	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.NewAppError(types.ErrDocumentSave, "failed to create output directory", err)
		}
	}
	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return types.NewAppError(types.ErrDocumentSave, "failed to write text document", err)
	}
	logger.Info("text document written",
		logger.String("path", outputPath),
		logger.Int("pages", pdf.PageCount()))
	return nil
}

// toWinAnsi converts UTF-8 text to the cp1252 byte encoding the
// built-in core fonts expect. The result is not valid UTF-8.
func toWinAnsi(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if b, ok := charmap.Windows1252.EncodeRune(r); ok {
			sb.WriteByte(b)
		} else {
			sb.WriteByte('?')
		}
	}
	return sb.String()
}
