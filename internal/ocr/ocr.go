//go:build ocr && cgo

// Package ocr recognizes text on image-only pages for the text-only
// emitter path. Pages are rasterized with go-fitz and recognized with
// tesseract through gosseract.
//
// Build with: go build -tags ocr
//
// Requires the MuPDF and tesseract/leptonica native libraries.
package ocr

import (
	"bytes"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"golang.org/x/text/language"

	"pdf-translator/internal/types"
)

// renderDPI is the rasterization resolution. 300 is the resolution
// tesseract is trained at.
const renderDPI = 300

// Available reports whether OCR support is compiled in.
func Available() bool { return true }

// RecognizePage rasterizes the zero-based page of the document at path
// and runs it through the recognition engine. lang is a BCP 47 code;
// "auto" or empty keeps the engine default.
func RecognizePage(path string, index int, lang string) (string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", types.NewAppError(types.ErrDocumentOpen, "failed to open document for OCR", err)
	}
	defer doc.Close()

	img, err := doc.ImageDPI(index, renderDPI)
	if err != nil {
		return "", types.NewAppError(types.ErrDocumentParse, "failed to rasterize page", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to encode page image", err)
	}

	client := gosseract.NewClient()
	defer client.Close()
	if tl := tesseractLang(lang); tl != "" {
		if err := client.SetLanguage(tl); err != nil {
			return "", types.NewAppError(types.ErrInternal, "failed to set OCR language", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", types.NewAppError(types.ErrInternal, "failed to load page image into OCR engine", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", types.NewAppError(types.ErrInternal, "text recognition failed", err)
	}
	return text, nil
}

// tesseractLang maps a BCP 47 code to the ISO 639-3 code tesseract
// expects. "auto" and unparseable codes map to "", the engine default.
func tesseractLang(code string) string {
	if code == "" || strings.EqualFold(code, "auto") {
		return ""
	}
	tag, err := language.Parse(code)
	if err != nil {
		return ""
	}
	base, conf := tag.Base()
	if conf == language.No {
		return ""
	}
	return base.ISO3()
}
