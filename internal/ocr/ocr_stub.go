//go:build !ocr || !cgo

// Stub for builds without OCR support. Build with -tags ocr to enable
// recognition of image-only pages in the emitter path.

package ocr

import "pdf-translator/internal/types"

// Available reports whether OCR support is compiled in.
func Available() bool { return false }

// RecognizePage always fails in builds without OCR support.
func RecognizePage(string, int, string) (string, error) {
	return "", types.NewAppError(types.ErrInternal, "OCR support not compiled in", nil)
}
