//go:build mupdf && cgo

// MuPDF backend. Structured text runs come from the fitz side of the
// library; redaction annotations and replacement text go through the pdf
// side, so the document is opened twice like any other dual reader/writer.
//
// Build with: go build -tags mupdf
//
// Requires MuPDF development libraries to be installed.

package document

/*
#cgo CFLAGS: -I/usr/local/include
#cgo LDFLAGS: -L/usr/local/lib -lmupdf -lmupdf-third -lm

#include <stdlib.h>
#include <string.h>
#include <math.h>
#include <mupdf/fitz.h>
#include <mupdf/pdf.h>

// Helper function to create context with document handlers registered
static fz_context* new_context() {
    fz_context *ctx = fz_new_context(NULL, NULL, FZ_STORE_DEFAULT);
    if (ctx) {
        fz_try(ctx) {
            fz_register_document_handlers(ctx);
        }
        fz_catch(ctx) {
            // Ignore registration errors
        }
    }
    return ctx;
}

// Helper function to open document for reading
static fz_document* open_document(fz_context *ctx, const char *filename) {
    fz_document *doc = NULL;
    fz_try(ctx) {
        doc = fz_open_document(ctx, filename);
    }
    fz_catch(ctx) {
        return NULL;
    }
    return doc;
}

// Helper function to open PDF document for writing
static pdf_document* open_pdf_document(fz_context *ctx, const char *filename) {
    pdf_document *doc = NULL;
    fz_try(ctx) {
        doc = pdf_open_document(ctx, filename);
    }
    fz_catch(ctx) {
        return NULL;
    }
    return doc;
}

// Helper function to get page count
static int get_page_count(fz_context *ctx, fz_document *doc) {
    int count = 0;
    fz_try(ctx) {
        count = fz_count_pages(ctx, doc);
    }
    fz_catch(ctx) {
        return -1;
    }
    return count;
}

// Helper function to get page bounds
static fz_rect get_page_bounds(fz_context *ctx, fz_document *doc, int page_num) {
    fz_rect bounds = fz_empty_rect;
    fz_try(ctx) {
        fz_page *page = fz_load_page(ctx, doc, page_num);
        bounds = fz_bound_page(ctx, page);
        fz_drop_page(ctx, page);
    }
    fz_catch(ctx) {
        // Return empty rect on error
    }
    return bounds;
}

// Text run with position, reported in fitz coordinates (origin top-left)
typedef struct {
    char *text;
    float x0, y0, x1, y1;
    float size;
    char *font;
} text_run_info;

static void finish_run(fz_context *ctx, fz_buffer *buf, text_run_info *run,
                       fz_rect rect, float size, fz_font *font) {
    unsigned char *data = NULL;
    size_t len = fz_buffer_extract(ctx, buf, &data);
    run->text = (char*)malloc(len + 1);
    if (run->text) {
        memcpy(run->text, data, len);
        run->text[len] = '\0';
    }
    fz_free(ctx, data);
    run->x0 = rect.x0;
    run->y0 = rect.y0;
    run->x1 = rect.x1;
    run->y1 = rect.y1;
    run->size = size > 0 ? size : 10.0f;
    run->font = strdup(font ? fz_font_name(ctx, font) : "");
}

// Helper to extract style-uniform text runs from a page. A run is a
// sequence of characters on one line sharing font and size. Two passes:
// count first, then fill.
static int extract_text_runs(fz_context *ctx, fz_document *doc, int page_num,
                             text_run_info **runs_out, int *count_out) {
    *runs_out = NULL;
    *count_out = 0;

    fz_try(ctx) {
        fz_page *page = fz_load_page(ctx, doc, page_num);
        fz_stext_page *stext = fz_new_stext_page_from_page(ctx, page, NULL);

        // Count runs first
        int run_count = 0;
        fz_stext_block *block;
        for (block = stext->first_block; block; block = block->next) {
            if (block->type != FZ_STEXT_BLOCK_TEXT) {
                continue;
            }
            fz_stext_line *line;
            for (line = block->u.t.first_line; line; line = line->next) {
                fz_font *cur_font = NULL;
                float cur_size = -1;
                fz_stext_char *ch;
                for (ch = line->first_char; ch; ch = ch->next) {
                    if (!cur_font || ch->font != cur_font || fabsf(ch->size - cur_size) > 0.1f) {
                        run_count++;
                        cur_font = ch->font;
                        cur_size = ch->size;
                    }
                }
            }
        }

        if (run_count > 0) {
            text_run_info *runs = (text_run_info*)calloc(run_count, sizeof(text_run_info));
            if (!runs) {
                fz_drop_stext_page(ctx, stext);
                fz_drop_page(ctx, page);
                fz_throw(ctx, FZ_ERROR_GENERIC, "cannot allocate run array");
            }

            fz_buffer *buf = fz_new_buffer(ctx, 256);
            fz_rect run_rect = fz_empty_rect;
            fz_font *run_font = NULL;
            float run_size = -1;
            int have_run = 0;
            int i = 0;

            for (block = stext->first_block; block; block = block->next) {
                if (block->type != FZ_STEXT_BLOCK_TEXT) {
                    continue;
                }
                fz_stext_line *line;
                for (line = block->u.t.first_line; line; line = line->next) {
                    fz_stext_char *ch;
                    for (ch = line->first_char; ch; ch = ch->next) {
                        if (!have_run || ch->font != run_font || fabsf(ch->size - run_size) > 0.1f) {
                            if (have_run && i < run_count) {
                                finish_run(ctx, buf, &runs[i], run_rect, run_size, run_font);
                                i++;
                            }
                            have_run = 1;
                            run_font = ch->font;
                            run_size = ch->size;
                            run_rect = fz_rect_from_quad(ch->quad);
                        } else {
                            run_rect = fz_union_rect(run_rect, fz_rect_from_quad(ch->quad));
                        }
                        char utf8[8];
                        int len = fz_runetochar(utf8, ch->c);
                        fz_append_data(ctx, buf, utf8, len);
                    }
                    // Runs never span lines
                    if (have_run && i < run_count) {
                        finish_run(ctx, buf, &runs[i], run_rect, run_size, run_font);
                        i++;
                    }
                    have_run = 0;
                }
            }

            *runs_out = runs;
            *count_out = i;
            fz_drop_buffer(ctx, buf);
        }

        fz_drop_stext_page(ctx, stext);
        fz_drop_page(ctx, page);
    }
    fz_catch(ctx) {
        return -1;
    }
    return 0;
}

// Helper to free text runs
static void free_text_runs(text_run_info *runs, int count) {
    if (runs) {
        for (int i = 0; i < count; i++) {
            if (runs[i].text) {
                free(runs[i].text);
            }
            if (runs[i].font) {
                free(runs[i].font);
            }
        }
        free(runs);
    }
}

// Helper to mark a region for redaction. Takes fitz coordinates.
static int add_redact_annotation(fz_context *ctx, pdf_document *doc, int page_num,
                                 float x0, float y0, float x1, float y1) {
    fz_try(ctx) {
        pdf_page *page = pdf_load_page(ctx, doc, page_num);
        pdf_annot *annot = pdf_create_annot(ctx, page, PDF_ANNOT_REDACT);
        pdf_set_annot_rect(ctx, annot, fz_make_rect(x0, y0, x1, y1));
        pdf_drop_annot(ctx, annot);
        fz_drop_page(ctx, (fz_page*)page);
    }
    fz_catch(ctx) {
        return -1;
    }
    return 0;
}

// Helper to apply all pending redaction marks on a page. No box fill and
// images untouched, so background art under the text survives.
static int apply_page_redactions(fz_context *ctx, pdf_document *doc, int page_num) {
    fz_try(ctx) {
        pdf_page *page = pdf_load_page(ctx, doc, page_num);
        pdf_redact_options opts;
        memset(&opts, 0, sizeof(opts));
        opts.black_boxes = 0;
        opts.image_method = PDF_REDACT_IMAGE_NONE;
        pdf_redact_page(ctx, doc, page, &opts);
        fz_drop_page(ctx, (fz_page*)page);
    }
    fz_catch(ctx) {
        return -1;
    }
    return 0;
}

// Helper to draw one line of text. Latin text arrives pre-escaped and is
// drawn with a Base14 font; with use_cjk set the text arrives as raw UTF-8
// and is drawn with the built-in CJK font as UTF-16 hex codes.
static int add_text_line(fz_context *ctx, pdf_document *doc, int page_num,
                         const char *text, float x, float y, float font_size,
                         const char *res_name, const char *font_name, int use_cjk,
                         float r, float g, float b) {
    fz_try(ctx) {
        pdf_page *page = pdf_load_page(ctx, doc, page_num);

        fz_font *font = NULL;
        pdf_obj *font_obj = NULL;

        if (use_cjk) {
            int size = 0, index = 0;
            const unsigned char *data = fz_lookup_cjk_font(ctx, FZ_ADOBE_GB, &size, &index);
            if (data) {
                font = fz_new_font_from_memory(ctx, NULL, data, size, index, 0);
                font_obj = pdf_add_cjk_font(ctx, doc, font, FZ_ADOBE_GB, 0, 1);
            }
        }
        if (!font_obj) {
            use_cjk = 0;
            font = fz_new_base14_font(ctx, font_name);
            font_obj = pdf_add_simple_font(ctx, doc, font, PDF_SIMPLE_ENCODING_LATIN);
        }

        // Create content stream for text
        fz_buffer *buf = fz_new_buffer(ctx, 1024);
        fz_append_printf(ctx, buf, "q\nBT\n");
        fz_append_printf(ctx, buf, "%g %g %g rg\n", r, g, b);
        fz_append_printf(ctx, buf, "/%s %g Tf\n", res_name, font_size);
        fz_append_printf(ctx, buf, "%g %g Td\n", x, y);

        if (use_cjk) {
            fz_append_string(ctx, buf, "<");
            const unsigned char *p = (const unsigned char *)text;
            while (*p) {
                // Get UTF-8 codepoint
                int c = 0;
                if ((*p & 0x80) == 0) {
                    c = *p++;
                } else if ((*p & 0xE0) == 0xC0) {
                    c = (*p++ & 0x1F) << 6;
                    c |= (*p++ & 0x3F);
                } else if ((*p & 0xF0) == 0xE0) {
                    c = (*p++ & 0x0F) << 12;
                    c |= (*p++ & 0x3F) << 6;
                    c |= (*p++ & 0x3F);
                } else if ((*p & 0xF8) == 0xF0) {
                    c = (*p++ & 0x07) << 18;
                    c |= (*p++ & 0x3F) << 12;
                    c |= (*p++ & 0x3F) << 6;
                    c |= (*p++ & 0x3F);
                } else {
                    p++;
                    continue;
                }
                // Encode as 4-digit hex (UTF-16 code unit, BMP only)
                fz_append_printf(ctx, buf, "%04x", c);
            }
            fz_append_string(ctx, buf, "> Tj\n");
        } else {
            fz_append_printf(ctx, buf, "(%s) Tj\n", text);
        }

        fz_append_printf(ctx, buf, "ET\nQ\n");

        // Register the font under res_name in the page resources
        pdf_obj *resources = pdf_dict_get(ctx, page->obj, PDF_NAME(Resources));
        if (!resources) {
            resources = pdf_new_dict(ctx, doc, 1);
            pdf_dict_put(ctx, page->obj, PDF_NAME(Resources), resources);
        }

        pdf_obj *fonts = pdf_dict_get(ctx, resources, PDF_NAME(Font));
        if (!fonts) {
            fonts = pdf_new_dict(ctx, doc, 1);
            pdf_dict_put(ctx, resources, PDF_NAME(Font), fonts);
        }

        pdf_dict_puts(ctx, fonts, res_name, font_obj);

        // Append the stream to the page contents
        pdf_obj *contents = pdf_add_stream(ctx, doc, buf, NULL, 0);

        pdf_obj *old_contents = pdf_dict_get(ctx, page->obj, PDF_NAME(Contents));
        if (old_contents) {
            pdf_obj *arr = pdf_new_array(ctx, doc, 2);
            if (pdf_is_array(ctx, old_contents)) {
                int n = pdf_array_len(ctx, old_contents);
                for (int i = 0; i < n; i++) {
                    pdf_array_push(ctx, arr, pdf_array_get(ctx, old_contents, i));
                }
            } else {
                pdf_array_push(ctx, arr, old_contents);
            }
            pdf_array_push(ctx, arr, contents);
            pdf_dict_put(ctx, page->obj, PDF_NAME(Contents), arr);
        } else {
            pdf_dict_put(ctx, page->obj, PDF_NAME(Contents), contents);
        }

        fz_drop_buffer(ctx, buf);
        if (font) fz_drop_font(ctx, font);
        fz_drop_page(ctx, (fz_page*)page);
    }
    fz_catch(ctx) {
        return -1;
    }
    return 0;
}

// Helper to save PDF document
static int save_pdf_document(fz_context *ctx, pdf_document *doc, const char *filename) {
    fz_try(ctx) {
        pdf_save_document(ctx, doc, filename, NULL);
    }
    fz_catch(ctx) {
        return -1;
    }
    return 0;
}
*/
import "C"

import (
	"fmt"
	"os"
	"strings"
	"unsafe"

	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

func mupdfAvailable() bool { return true }

type muDocument struct {
	path  string
	ctx   *C.fz_context
	fdoc  *C.fz_document  // read side: text runs, bounds
	pdoc  *C.pdf_document // write side: redactions, text, save
	count int
}

func openMuPDF(path string) (Document, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	ctx := C.new_context()
	if ctx == nil {
		return nil, types.NewAppError(types.ErrDocumentOpen, "cannot initialize PDF engine", nil)
	}

	fdoc := C.open_document(ctx, cPath)
	if fdoc == nil {
		C.fz_drop_context(ctx)
		return nil, types.NewAppError(types.ErrDocumentOpen, "cannot open PDF file", nil)
	}

	pdoc := C.open_pdf_document(ctx, cPath)
	if pdoc == nil {
		C.fz_drop_document(ctx, fdoc)
		C.fz_drop_context(ctx)
		return nil, types.NewAppError(types.ErrDocumentOpen, "cannot open PDF file for writing", nil)
	}

	count := int(C.get_page_count(ctx, fdoc))
	if count < 0 {
		C.pdf_drop_document(ctx, pdoc)
		C.fz_drop_document(ctx, fdoc)
		C.fz_drop_context(ctx)
		return nil, types.NewAppError(types.ErrDocumentParse, "cannot determine page count", nil)
	}

	return &muDocument{path: path, ctx: ctx, fdoc: fdoc, pdoc: pdoc, count: count}, nil
}

func (d *muDocument) Path() string { return d.path }

func (d *muDocument) PageCount() int { return d.count }

func (d *muDocument) Page(index int) (Page, error) {
	if index < 0 || index >= d.count {
		return nil, types.NewAppErrorWithDetails(types.ErrInvalidInput, "page index out of range",
			fmt.Sprintf("index %d of %d pages", index, d.count), nil)
	}

	b := C.get_page_bounds(d.ctx, d.fdoc, C.int(index))
	width := float64(b.x1 - b.x0)
	height := float64(b.y1 - b.y0)
	if width <= 0 || height <= 0 {
		width, height = defaultPageWidth, defaultPageHeight
	}

	// Page space is normalized to a bottom-left origin.
	return &muPage{
		doc:    d,
		index:  index,
		bounds: types.Rect{X1: width, Y1: height},
	}, nil
}

func (d *muDocument) Save(path string) error {
	tmp := path + ".tmp"
	cTmp := C.CString(tmp)
	defer C.free(unsafe.Pointer(cTmp))

	if C.save_pdf_document(d.ctx, d.pdoc, cTmp) != 0 {
		os.Remove(tmp)
		return types.NewAppError(types.ErrDocumentSave, "cannot write output file", nil)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return types.NewAppError(types.ErrDocumentSave, "cannot move output into place", err)
	}
	return nil
}

func (d *muDocument) Close() error {
	if d.pdoc != nil {
		C.pdf_drop_document(d.ctx, d.pdoc)
		d.pdoc = nil
	}
	if d.fdoc != nil {
		C.fz_drop_document(d.ctx, d.fdoc)
		d.fdoc = nil
	}
	if d.ctx != nil {
		C.fz_drop_context(d.ctx)
		d.ctx = nil
	}
	return nil
}

type muPage struct {
	doc    *muDocument
	index  int
	bounds types.Rect
}

func (p *muPage) Index() int { return p.index }

func (p *muPage) Bounds() types.Rect { return p.bounds }

func (p *muPage) Runs() ([]TextRun, error) {
	var runsPtr *C.text_run_info
	var count C.int

	if C.extract_text_runs(p.doc.ctx, p.doc.fdoc, C.int(p.index), &runsPtr, &count) != 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrDocumentParse, "cannot read page text",
			fmt.Sprintf("page %d", p.index+1), nil)
	}
	if count == 0 || runsPtr == nil {
		return nil, nil
	}
	defer C.free_text_runs(runsPtr, count)

	pageH := p.bounds.Height()
	runs := make([]TextRun, 0, int(count))
	runSize := unsafe.Sizeof(C.text_run_info{})

	for i := 0; i < int(count); i++ {
		r := (*C.text_run_info)(unsafe.Pointer(uintptr(unsafe.Pointer(runsPtr)) + uintptr(i)*runSize))
		fontName := C.GoString(r.font)
		bold, italic := styleFromFontName(fontName)

		// Structured text reports a top-left origin; flip to PDF space.
		runs = append(runs, TextRun{
			Text: C.GoString(r.text),
			BBox: types.Rect{
				X0: float64(r.x0),
				Y0: pageH - float64(r.y1),
				X1: float64(r.x1),
				Y1: pageH - float64(r.y0),
			},
			FontSize: float64(r.size),
			FontName: fontName,
			Bold:     bold,
			Italic:   italic,
		})
	}

	return runs, nil
}

func (p *muPage) AddRedaction(rect types.Rect) {
	pageH := p.bounds.Height()
	rc := C.add_redact_annotation(p.doc.ctx, p.doc.pdoc, C.int(p.index),
		C.float(rect.X0), C.float(pageH-rect.Y1),
		C.float(rect.X1), C.float(pageH-rect.Y0))
	if rc != 0 {
		logger.Warn("failed to add redaction mark",
			logger.Int("page", p.index+1))
	}
}

func (p *muPage) ApplyRedactions() error {
	if C.apply_page_redactions(p.doc.ctx, p.doc.pdoc, C.int(p.index)) != 0 {
		return types.NewAppErrorWithDetails(types.ErrInternal, "failed to apply page redactions",
			fmt.Sprintf("page %d", p.index+1), nil)
	}
	return nil
}

func (p *muPage) DrawFittedText(rect types.Rect, text string, fontSize float64, variant FontVariant, color types.RGB) (bool, error) {
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
	useCJK := containsCJK(wrapped)
	resName, faceName := fontResource(variant, useCJK)

	cRes := C.CString(resName)
	defer C.free(unsafe.Pointer(cRes))
	cFace := C.CString(faceName)
	defer C.free(unsafe.Pointer(cFace))

	cjkFlag := C.int(0)
	if useCJK {
		cjkFlag = 1
	}

	for i, line := range strings.Split(wrapped, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		payload := line
		if !useCJK {
			payload = encodeSimpleText(line)
		}
		baseY := rect.Y1 - size - float64(i)*LineHeight(size)

		cText := C.CString(payload)
		rc := C.add_text_line(p.doc.ctx, p.doc.pdoc, C.int(p.index),
			cText, C.float(rect.X0), C.float(baseY), C.float(size),
			cRes, cFace, cjkFlag,
			C.float(color.R), C.float(color.G), C.float(color.B))
		C.free(unsafe.Pointer(cText))

		if rc != 0 {
			return false, types.NewAppErrorWithDetails(types.ErrInternal, "failed to draw page text",
				fmt.Sprintf("page %d", p.index+1), nil)
		}
	}

	return false, nil
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}

// fontResource maps a variant to its page resource name and Base14 face.
// CJK text shares one embedded font regardless of variant.
func fontResource(variant FontVariant, cjk bool) (resName, faceName string) {
	if cjk {
		return "FCJK", string(FontRegular)
	}
	switch variant {
	case FontBold:
		return "FHvB", string(variant)
	case FontItalic:
		return "FHvI", string(variant)
	case FontBoldItalic:
		return "FHvBI", string(variant)
	default:
		return "FHv", string(FontRegular)
	}
}

// encodeSimpleText maps text to the body of a Latin-1 PDF string literal.
// Runes outside Latin-1 degrade to '?'; the CJK path never comes here.
func encodeSimpleText(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '\t' {
			r = ' '
		}
		if r > 0xFF {
			r = '?'
		}
		switch r {
		case '\\', '(', ')':
			b.WriteByte('\\')
		}
		b.WriteByte(byte(r))
	}
	return b.String()
}
