package document

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// Default page size when a page carries no MediaBox (US letter).
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// gapTolerance is the horizontal slack, in points, between two fragments
// that still reads as continuous text. Wider gaps get a space inserted.
const gapTolerance = 2.0

// stamp is one pending text draw, applied to the output file at Save.
type stamp struct {
	pageNo   int // 1-based, pdfcpu page selection
	text     string
	x, y     float64 // bottom-left corner of the drawn text block
	fontSize float64
	variant  FontVariant
	color    types.RGB
}

// desc renders the stamp as a pdfcpu watermark description. The white
// background box is what covers the original glyphs in this backend.
func (st stamp) desc() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pos:bl, off:%.1f %.1f, points:%.1f", st.x, st.y, st.fontSize)
	fmt.Fprintf(&b, ", fontname:%s", st.variant)
	fmt.Fprintf(&b, ", fillc:#%02x%02x%02x", colorByte(st.color.R), colorByte(st.color.G), colorByte(st.color.B))
	b.WriteString(", bgcol:white, op:1.0, rot:0, al:l")
	return b.String()
}

func colorByte(c float64) int {
	v := int(math.Round(c * 255))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

type pdfcpuDocument struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	stamps []stamp
}

func openPDFCPU(path string) (Document, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrDocumentOpen, "cannot open PDF file", err)
	}
	return &pdfcpuDocument{path: path, file: f, reader: r}, nil
}

func (d *pdfcpuDocument) Path() string { return d.path }

func (d *pdfcpuDocument) PageCount() int { return d.reader.NumPage() }

func (d *pdfcpuDocument) Page(index int) (Page, error) {
	if index < 0 || index >= d.reader.NumPage() {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "page index out of range",
			fmt.Sprintf("index %d of %d pages", index, d.reader.NumPage()), nil)
	}
	page := d.reader.Page(index + 1)
	if page.V.IsNull() {
		return nil, types.NewAppErrorWithDetails(types.ErrDocumentParse, "page has no content",
			fmt.Sprintf("page %d", index+1), nil)
	}
	return &pdfcpuPage{doc: d, index: index, page: page, bounds: pageBounds(page)}, nil
}

// Save copies the source file and stamps the queued text draws onto the
// copy, one watermark per stamp restricted to its page. The finished copy
// moves into place with a rename, so path never holds a half-written file.
func (d *pdfcpuDocument) Save(path string) error {
	tmp := path + ".tmp"
	if err := copyFile(d.path, tmp); err != nil {
		return types.NewAppError(types.ErrDocumentSave, "cannot stage output file", err)
	}

	for _, st := range d.stamps {
		wm, err := api.TextWatermark(st.text, st.desc(), true, false, pdftypes.POINTS)
		if err != nil {
			logger.Warn("skipping malformed text stamp",
				logger.Int("page", st.pageNo),
				logger.Err(err))
			continue
		}
		if err := api.AddWatermarksFile(tmp, "", []string{strconv.Itoa(st.pageNo)}, wm, nil); err != nil {
			logger.Warn("failed to stamp translated text",
				logger.Int("page", st.pageNo),
				logger.Err(err))
		}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return types.NewAppError(types.ErrDocumentSave, "cannot move output into place", err)
	}
	return nil
}

func (d *pdfcpuDocument) Close() error {
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

type pdfcpuPage struct {
	doc    *pdfcpuDocument
	index  int
	page   pdf.Page
	bounds types.Rect
}

func (p *pdfcpuPage) Index() int { return p.index }

func (p *pdfcpuPage) Bounds() types.Rect { return p.bounds }

func (p *pdfcpuPage) Runs() ([]TextRun, error) {
	rows, err := p.page.GetTextByRow()
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrDocumentParse, "cannot read page text",
			fmt.Sprintf("page %d", p.index+1), err)
	}

	var runs []TextRun
	for _, row := range rows {
		runs = append(runs, runsFromRow(row.Content)...)
	}
	return runs, nil
}

// AddRedaction is bookkeeping only in this backend: the content stream is
// never rewritten, and the replacement stamp's background box is what hides
// the original glyphs. Skipped units therefore keep their text visible, as
// required.
func (p *pdfcpuPage) AddRedaction(types.Rect) {}

func (p *pdfcpuPage) ApplyRedactions() error { return nil }

func (p *pdfcpuPage) DrawFittedText(rect types.Rect, text string, fontSize float64, variant FontVariant, color types.RGB) (bool, error) {
	if !rect.Valid() || text == "" {
		return true, nil
	}

	size := fontSize
	if size <= 0 {
		fitted, ok := FitFontSize(text, rect.Width(), rect.Height())
		if !ok {
			return true, nil
		}
		size = fitted
	} else if !TextFits(text, size, rect.Width(), rect.Height()) {
		return true, nil
	}

	wrapped := WrapText(text, size, rect.Width())
	height := float64(strings.Count(wrapped, "\n")+1) * LineHeight(size)

	// Anchor the first line at the top of the region.
	offY := rect.Y1 - height
	if offY < rect.Y0 {
		offY = rect.Y0
	}

	p.doc.stamps = append(p.doc.stamps, stamp{
		pageNo:   p.index + 1,
		text:     wrapped,
		x:        rect.X0,
		y:        offY,
		fontSize: size,
		variant:  variant,
		color:    color,
	})
	return false, nil
}

// pageBounds reads the page MediaBox, falling back to US letter when a
// page omits it.
func pageBounds(page pdf.Page) types.Rect {
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.Kind() == pdf.Array && mediaBox.Len() >= 4 {
		r := types.Rect{
			X0: mediaBox.Index(0).Float64(),
			Y0: mediaBox.Index(1).Float64(),
			X1: mediaBox.Index(2).Float64(),
			Y1: mediaBox.Index(3).Float64(),
		}
		if r.Valid() {
			return r
		}
	}
	return types.Rect{X1: defaultPageWidth, Y1: defaultPageHeight}
}

// runsFromRow merges a row's raw fragments into style-uniform runs.
// Fragments sharing font and size continue the current run; a horizontal
// gap wider than gapTolerance reads as a missing space and inserts one.
// Fragment widths come from estimated metrics since the reader reports
// only the pen origin of each fragment.
func runsFromRow(content []pdf.Text) []TextRun {
	var runs []TextRun

	var (
		text     strings.Builder
		startX   float64
		endX     float64
		baseline float64
		size     float64
		fontName string
	)

	flush := func() {
		if text.Len() == 0 {
			return
		}
		bold, italic := styleFromFontName(fontName)
		runs = append(runs, TextRun{
			Text: text.String(),
			BBox: types.Rect{
				X0: startX,
				Y0: baseline - 0.2*size,
				X1: endX,
				Y1: baseline + size,
			},
			FontSize: size,
			FontName: fontName,
			Bold:     bold,
			Italic:   italic,
		})
		text.Reset()
	}

	for _, t := range content {
		if t.S == "" {
			continue
		}

		fragSize := t.FontSize
		if fragSize <= 0 {
			fragSize = 10.0
		}

		if text.Len() > 0 && (t.Font != fontName || math.Abs(fragSize-size) > 0.1) {
			flush()
		}

		width := StringWidth(t.S, fragSize)
		if text.Len() == 0 {
			startX = t.X
			endX = t.X + width
			baseline = t.Y
			size = fragSize
			fontName = t.Font
		} else {
			if t.X > endX+gapTolerance {
				text.WriteByte(' ')
			}
			if t.X+width > endX {
				endX = t.X + width
			}
		}

		text.WriteString(t.S)
	}
	flush()

	return runs
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// PageCount reports the number of pages in the PDF at path without
// keeping the file open.
func PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, types.NewAppError(types.ErrDocumentOpen, "cannot open PDF file", err)
	}
	defer f.Close()

	return r.NumPage(), nil
}
