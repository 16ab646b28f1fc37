package emitter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-translator/internal/document"
	"pdf-translator/internal/schedule"
	"pdf-translator/internal/types"
)

type stubPage struct {
	index int
	runs  []document.TextRun
}

func (p *stubPage) Index() int                        { return p.index }
func (p *stubPage) Bounds() types.Rect                { return types.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792} }
func (p *stubPage) Runs() ([]document.TextRun, error) { return p.runs, nil }
func (p *stubPage) AddRedaction(types.Rect)           {}
func (p *stubPage) ApplyRedactions() error            { return nil }
func (p *stubPage) DrawFittedText(types.Rect, string, float64, document.FontVariant, types.RGB) (bool, error) {
	return false, nil
}

type stubDoc struct {
	path  string
	pages []*stubPage
}

func (d *stubDoc) Path() string   { return d.path }
func (d *stubDoc) PageCount() int { return len(d.pages) }
func (d *stubDoc) Page(i int) (document.Page, error) {
	if i < 0 || i >= len(d.pages) {
		return nil, types.NewAppError(types.ErrDocumentParse, "page out of range", nil)
	}
	return d.pages[i], nil
}
func (d *stubDoc) Save(string) error { return nil }
func (d *stubDoc) Close() error      { return nil }

func lineRun(text string, y float64) document.TextRun {
	return document.TextRun{
		Text:     text,
		BBox:     types.Rect{X0: 72, Y0: y, X1: 300, Y1: y + 12},
		FontSize: 12,
	}
}

func newTestEmitter(doc document.Document, translate schedule.TranslateFunc) *Emitter {
	e := New(translate, Options{})
	e.open = func(string) (document.Document, error) { return doc, nil }
	return e
}

func TestExtract_JoinsPagesWithMarkers(t *testing.T) {
	doc := &stubDoc{path: "in.pdf", pages: []*stubPage{
		{index: 0, runs: []document.TextRun{
			lineRun("First line of prose", 710),
			lineRun("Second line of prose", 690),
		}},
		{index: 1},
		{index: 2, runs: []document.TextRun{
			lineRun("Third page text", 710),
		}},
	}}
	e := newTestEmitter(doc, nil)

	text, err := e.Extract("in.pdf")
	require.NoError(t, err)

	want := "First line of prose\nSecond line of prose" +
		"\n\n[Page 2: No extractable text]\n\n" +
		"Third page text"
	assert.Equal(t, want, text)
}

func TestExtract_FilteredPageGetsMarker(t *testing.T) {
	doc := &stubDoc{path: "in.pdf", pages: []*stubPage{
		{index: 0, runs: []document.TextRun{
			lineRun("/a2x null def /b4y null def", 710),
		}},
	}}
	e := newTestEmitter(doc, nil)

	text, err := e.Extract("in.pdf")
	require.NoError(t, err)
	assert.Equal(t, "[Page 1: No extractable text]", text)
}

func TestExtract_OCRFallbackFillsImagePages(t *testing.T) {
	doc := &stubDoc{path: "scan.pdf", pages: []*stubPage{{index: 0}}}
	e := newTestEmitter(doc, nil)
	e.opts.OCRFallback = true

	var gotPath string
	var gotIndex int
	e.recognize = func(path string, index int) (string, error) {
		gotPath, gotIndex = path, index
		return "Recognized page text\n", nil
	}

	text, err := e.Extract("scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Recognized page text", text)
	assert.Equal(t, "scan.pdf", gotPath)
	assert.Equal(t, 0, gotIndex)
}

func TestExtract_OCRFailureFallsBackToMarker(t *testing.T) {
	doc := &stubDoc{path: "scan.pdf", pages: []*stubPage{{index: 0}}}
	e := newTestEmitter(doc, nil)
	e.opts.OCRFallback = true
	e.recognize = func(string, int) (string, error) {
		return "", types.NewAppError(types.ErrInternal, "engine unavailable", nil)
	}

	text, err := e.Extract("scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "[Page 1: No extractable text]", text)
}

func TestExtract_OpenErrorSurfaces(t *testing.T) {
	e := New(nil, Options{})
	openErr := types.NewAppError(types.ErrFileNotFound, "document file not found", nil)
	e.open = func(string) (document.Document, error) { return nil, openErr }

	_, err := e.Extract("missing.pdf")
	assert.ErrorIs(t, err, openErr)
}

func TestTranslate_ChunksAndReassembles(t *testing.T) {
	var got []string
	upper := func(_ context.Context, text string) (string, error) {
		got = append(got, text)
		return strings.ToUpper(text), nil
	}
	e := New(upper, Options{MaxChunkChars: 20})

	out, err := e.Translate(context.Background(), "Hello world.\n\nGood morning.")
	require.NoError(t, err)
	assert.Equal(t, "HELLO WORLD.\n\nGOOD MORNING.", out)
	assert.Equal(t, []string{"Hello world.", "Good morning."}, got)
}

func TestTranslate_EmptyTextShortCircuits(t *testing.T) {
	calls := 0
	e := New(func(context.Context, string) (string, error) {
		calls++
		return "", nil
	}, Options{})

	out, err := e.Translate(context.Background(), "  \n\t")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, calls)
}

func TestTranslate_ChunkFailureFailsCall(t *testing.T) {
	failing := func(_ context.Context, text string) (string, error) {
		if strings.Contains(text, "morning") {
			return "", types.NewAppError(types.ErrNetwork, "request failed", nil)
		}
		return strings.ToUpper(text), nil
	}
	e := New(failing, Options{MaxChunkChars: 20})

	_, err := e.Translate(context.Background(), "Hello world.\n\nGood morning.")
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrChunkFailed, appErr.Code)
	assert.Equal(t, "chunk 2 of 2", appErr.Details)
}

func TestConvert_WritesDocument(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.pdf")
	e := New(nil, Options{})

	err := e.Convert("Habari dunia.\nMstari wa pili.", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
}

func TestConvert_CreatesOutputDirectory(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "dir", "out.pdf")
	e := New(nil, Options{})

	require.NoError(t, e.Convert("Habari dunia.", out))

	_, err := os.Stat(out)
	assert.NoError(t, err)
}

func TestConvert_EmptyTextRejected(t *testing.T) {
	e := New(nil, Options{})
	err := e.Convert("   ", filepath.Join(t.TempDir(), "out.pdf"))
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrInvalidInput, appErr.Code)
}

func TestToWinAnsi(t *testing.T) {
	assert.Equal(t, "plain ascii", toWinAnsi("plain ascii"))
	assert.Equal(t, string([]byte{'c', 'a', 'f', 0xE9}), toWinAnsi("café"))
	assert.Equal(t, "? x", toWinAnsi("∑ x"))
}
