package compose

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-translator/internal/document"
	"pdf-translator/internal/types"
)

type drawCall struct {
	rect    types.Rect
	text    string
	size    float64
	variant document.FontVariant
}

// fakePage records redactions and draw attempts. fits decides whether an
// attempt fits; nil accepts everything.
type fakePage struct {
	redactions []types.Rect
	applied    int
	attempts   []drawCall
	draws      []drawCall
	fits       func(rect types.Rect, text string, size float64) bool
	applyErr   error
	drawErr    error
}

func (p *fakePage) Index() int         { return 0 }
func (p *fakePage) Bounds() types.Rect { return types.Rect{X1: 612, Y1: 792} }
func (p *fakePage) Runs() ([]document.TextRun, error) {
	return nil, nil
}
func (p *fakePage) AddRedaction(rect types.Rect) {
	p.redactions = append(p.redactions, rect)
}
func (p *fakePage) ApplyRedactions() error {
	p.applied++
	return p.applyErr
}
func (p *fakePage) DrawFittedText(rect types.Rect, text string, size float64, variant document.FontVariant, _ types.RGB) (bool, error) {
	if p.drawErr != nil {
		return false, p.drawErr
	}
	call := drawCall{rect: rect, text: text, size: size, variant: variant}
	p.attempts = append(p.attempts, call)
	if p.fits != nil && !p.fits(rect, text, size) {
		return true, nil
	}
	p.draws = append(p.draws, call)
	return false, nil
}

func unitAt(text string, x0, y0, x1, y1 float64) types.TextUnit {
	return types.TextUnit{
		BBox:         types.Rect{X0: x0, Y0: y0, X1: x1, Y1: y1},
		Text:         text,
		FontSizeHint: 12,
	}
}

func TestComposePage_SkipsEmptyTranslations(t *testing.T) {
	page := &fakePage{}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{
			unitAt("Hello world", 72, 700, 200, 712),
			unitAt("Second line", 72, 680, 200, 692),
		},
		Texts: []string{"  \t ", "Mstari wa pili"},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.Drawn)

	// The skipped unit must get no redaction mark at all
	require.Len(t, page.redactions, 1)
	assert.Equal(t, types.Rect{X0: 72, Y0: 680, X1: 200, Y1: 692}, page.redactions[0])
	assert.Equal(t, 1, page.applied)
}

func TestComposePage_AllEmptyLeavesPageUntouched(t *testing.T) {
	page := &fakePage{}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 200, 712)},
		Texts: []string{""},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Zero(t, page.applied)
	assert.Empty(t, page.attempts)
}

func TestComposePage_AutoFitDrawsOnce(t *testing.T) {
	page := &fakePage{}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 200, 712)},
		Texts: []string{"Habari"},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Drawn)
	assert.Zero(t, stats.Truncated)
	require.Len(t, page.attempts, 1)
	require.Len(t, page.draws, 1)
	assert.Equal(t, "Habari", page.draws[0].text)
	assert.Positive(t, page.draws[0].size)
	assert.LessOrEqual(t, page.draws[0].size, 12.0, "fitted size never exceeds the unit's own size")
}

func TestComposePage_DescendsLadderUntilFit(t *testing.T) {
	page := &fakePage{
		fits: func(_ types.Rect, _ string, size float64) bool {
			return size <= 8
		},
	}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 200, 712)},
		Texts: []string{"Habari sana"},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Drawn)
	assert.Zero(t, stats.Truncated)

	// The capped fit attempt is rejected, then the ladder descends
	// 12 11 10 9 and stops at the first fitting size 8.
	require.NotEmpty(t, page.attempts)
	assert.Positive(t, page.attempts[0].size)
	assert.LessOrEqual(t, page.attempts[0].size, 12.0)

	var sizes []float64
	for _, call := range page.attempts[1:] {
		sizes = append(sizes, call.size)
	}
	assert.Equal(t, []float64{12, 11, 10, 9, 8}, sizes)

	require.Len(t, page.draws, 1)
	assert.Equal(t, 8.0, page.draws[0].size)
}

func TestComposePage_TruncatesAtFloor(t *testing.T) {
	long := strings.Repeat("a", 200)
	page := &fakePage{
		fits: func(_ types.Rect, text string, size float64) bool {
			return size == 6 && utf8.RuneCountInString(text) <= 53
		},
	}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 200, 712)},
		Texts: []string{long},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Drawn)
	assert.Equal(t, 1, stats.Truncated)

	require.Len(t, page.draws, 1)
	drawn := page.draws[0]
	assert.Equal(t, 6.0, drawn.size)
	assert.True(t, strings.HasSuffix(drawn.text, " …"))
	assert.Equal(t, 52, utf8.RuneCountInString(drawn.text))
}

func TestComposePage_NeverDrawsWhileOverflowing(t *testing.T) {
	page := &fakePage{
		fits: func(types.Rect, string, float64) bool { return false },
	}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 80, 704)},
		Texts: []string{strings.Repeat("habari ", 40)},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)

	// The unit's glyphs were erased and its text could not be placed;
	// nothing may be drawn at an overflowing size.
	assert.Empty(t, page.draws)
	assert.Equal(t, 1, stats.Truncated)
}

func TestComposePage_MismatchedPlanRejected(t *testing.T) {
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("a", 0, 0, 10, 10), unitAt("b", 0, 20, 10, 30)},
		Texts: []string{"only one"},
	}

	_, err := New(0).ComposePage(&fakePage{}, plan)
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrInvalidInput, appErr.Code)
}

func TestComposePage_ApplyRedactionsErrorSurfaces(t *testing.T) {
	applyErr := types.NewAppError(types.ErrInternal, "redaction failed", nil)
	page := &fakePage{applyErr: applyErr}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unitAt("Hello", 72, 700, 200, 712)},
		Texts: []string{"Habari"},
	}

	_, err := New(0).ComposePage(page, plan)
	assert.ErrorIs(t, err, applyErr)
	assert.Empty(t, page.draws)
}

func TestComposePage_DrawErrorDoesNotAbortSiblings(t *testing.T) {
	page := &fakePage{drawErr: errors.New("engine failure")}
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{
			unitAt("one", 72, 700, 200, 712),
			unitAt("two", 72, 680, 200, 692),
		},
		Texts: []string{"moja", "mbili"},
	}

	stats, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)
	assert.Zero(t, stats.Drawn)
}

func TestComposePage_StyleSelectsFontVariant(t *testing.T) {
	page := &fakePage{}
	unit := unitAt("Hello", 72, 700, 200, 712)
	unit.Bold = true
	unit.Italic = true
	plan := types.PageRenderPlan{
		Units: []types.TextUnit{unit},
		Texts: []string{"Habari"},
	}

	_, err := New(0).ComposePage(page, plan)
	require.NoError(t, err)
	require.Len(t, page.draws, 1)
	assert.Equal(t, document.FontBoldItalic, page.draws[0].variant)
}

func TestLadder(t *testing.T) {
	tests := []struct {
		name  string
		floor float64
		hint  float64
		want  []float64
	}{
		{"default hint", 0, 0, []float64{12, 11, 10, 9, 8, 7, 6}},
		{"hint above steps", 0, 36, []float64{36, 14, 12, 11, 10, 9, 8, 7, 6}},
		{"hint between steps", 0, 10, []float64{10, 9, 8, 7, 6}},
		{"hint below floor", 0, 4, []float64{6}},
		{"raised floor", 8, 12, []float64{12, 11, 10, 9, 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.floor).ladder(tt.hint))
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "already short"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("x", 200)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, " …"))
	assert.Equal(t, 52, utf8.RuneCountInString(got))

	// A quarter of very long text is kept, not just the minimum
	longer := strings.Repeat("y", 400)
	got = truncate(longer)
	assert.Equal(t, 102, utf8.RuneCountInString(got))
}

func TestShorten(t *testing.T) {
	assert.Equal(t, "abcd …", shorten("abcdefgh …"))

	// Nothing meaningful left to cut
	assert.Equal(t, "a …", shorten("a …"))
}
