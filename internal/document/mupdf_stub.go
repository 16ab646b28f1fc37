//go:build !mupdf || !cgo

// Stub for builds without the MuPDF backend. Open always takes the pure
// Go path. Build with -tags mupdf to enable native redaction.

package document

import "pdf-translator/internal/types"

func mupdfAvailable() bool { return false }

func openMuPDF(string) (Document, error) {
	return nil, types.NewAppError(types.ErrInternal, "native PDF engine not compiled in", nil)
}
