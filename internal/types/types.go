// Package types defines core data types and enums for the PDF translator.
package types

import "strings"

// Rect is an axis-aligned rectangle in page coordinates. Units are PDF
// points with the origin at the bottom-left corner of the page.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the rectangle.
func (r Rect) Width() float64 {
	return r.X1 - r.X0
}

// Height returns the vertical extent of the rectangle.
func (r Rect) Height() float64 {
	return r.Y1 - r.Y0
}

// Valid reports whether the rectangle has positive area.
func (r Rect) Valid() bool {
	return r.X1 > r.X0 && r.Y1 > r.Y0
}

// Inset returns a copy of the rectangle shrunk by dx on the left and right
// and dy on the top and bottom. Callers must check Valid on the result; a
// small rectangle can collapse.
func (r Rect) Inset(dx, dy float64) Rect {
	return Rect{X0: r.X0 + dx, Y0: r.Y0 + dy, X1: r.X1 - dx, Y1: r.Y1 - dy}
}

// Union returns the smallest rectangle containing both r and o.
func (r Rect) Union(o Rect) Rect {
	u := r
	if o.X0 < u.X0 {
		u.X0 = o.X0
	}
	if o.Y0 < u.Y0 {
		u.Y0 = o.Y0
	}
	if o.X1 > u.X1 {
		u.X1 = o.X1
	}
	if o.Y1 > u.Y1 {
		u.Y1 = o.Y1
	}
	return u
}

// RGB is a text color with components in [0, 1]. The zero value is black.
type RGB struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// TextUnit is a positioned piece of styled text extracted from a page.
// Units are immutable once emitted by the extractor; translations are
// tracked separately, keyed by the unit's index on its page.
type TextUnit struct {
	PageIndex    int     `json:"page_index"` // zero-based
	BBox         Rect    `json:"bbox"`
	Text         string  `json:"text"`
	FontSizeHint float64 `json:"font_size_hint"` // dominant font size in points, 0 if unknown
	Color        RGB     `json:"color"`
	Bold         bool    `json:"bold"`
	Italic       bool    `json:"italic"`
}

// Valid reports whether the unit satisfies the extractor contract:
// non-empty text after trimming and a bounding box with positive area.
func (u TextUnit) Valid() bool {
	return strings.TrimSpace(u.Text) != "" && u.BBox.Valid()
}

// Chunk is a translatable slice of one unit's text. Reassembling the
// chunks of a unit in ordinal order, each prefixed by its Join separator,
// reproduces the unit's text exactly.
type Chunk struct {
	UnitIndex int    `json:"unit_index"` // index into the page's unit list
	Ordinal   int    `json:"ordinal"`    // position within the unit, from 0
	Text      string `json:"text"`
	Join      string `json:"join"` // separator that preceded this chunk in the source
}

// TranslationJob pairs a chunk with its retry bookkeeping.
type TranslationJob struct {
	ID       string `json:"id"`
	Chunk    Chunk  `json:"chunk"`
	Attempts int    `json:"attempts"`
}

// PageRenderPlan collects, for one page, the extracted units and the
// translated text to draw in their place. Texts is aligned with Units;
// an empty string means the unit is left untouched.
type PageRenderPlan struct {
	PageIndex int        `json:"page_index"`
	Units     []TextUnit `json:"units"`
	Texts     []string   `json:"texts"`
}

// PagePhase enumerates the pipeline states of a single page.
type PagePhase string

const (
	PageExtracted   PagePhase = "extracted"
	PageSkipped     PagePhase = "skipped"
	PageTranslating PagePhase = "translating"
	PageCompositing PagePhase = "compositing"
	PageDone        PagePhase = "done"
)

// PageStatus reports the pipeline state of a single page. It is passed to
// progress callbacks as each page moves through its phases.
type PageStatus struct {
	PageIndex int       `json:"page_index"`
	Phase     PagePhase `json:"phase"`
	Units     int       `json:"units"`
	Message   string    `json:"message,omitempty"`
}

// Result summarizes a completed translation run.
type Result struct {
	InputPath      string `json:"input_path"`
	OutputPath     string `json:"output_path"`
	Pages          int    `json:"pages"`
	PagesSkipped   int    `json:"pages_skipped"`
	Units          int    `json:"units"`
	UnitsFailed    int    `json:"units_failed"`    // kept original text after all providers failed
	UnitsTruncated int    `json:"units_truncated"` // drawn shortened at the minimum font size
	DurationMS     int64  `json:"duration_ms"`
}

// Granularity selects how the extractor groups raw text into units.
type Granularity string

const (
	GranularityBlock Granularity = "block"
	GranularityLine  Granularity = "line"
	GranularitySpan  Granularity = "span"
)

// ParseGranularity converts a granularity name to a Granularity.
// Unknown names fall back to GranularityLine.
func ParseGranularity(s string) Granularity {
	switch Granularity(strings.ToLower(strings.TrimSpace(s))) {
	case GranularityBlock:
		return GranularityBlock
	case GranularitySpan:
		return GranularitySpan
	default:
		return GranularityLine
	}
}

// Config holds the application configuration.
type Config struct {
	SourceLang    string  `json:"source_lang"`     // BCP-47 tag of the input text, "auto" to detect
	TargetLang    string  `json:"target_lang"`     // BCP-47 tag to translate into
	Granularity   string  `json:"granularity"`     // block, line, or span
	Concurrency   int     `json:"concurrency"`     // units translated in parallel
	MaxRetries    int     `json:"max_retries"`     // attempts per provider before moving on
	BackoffBaseMS int     `json:"backoff_base_ms"` // first retry delay in milliseconds
	MaxChunkChars int     `json:"max_chunk_chars"` // chunker bin size
	MinFontSize   float64 `json:"min_font_size"`   // compositor floor in points
	OpenAIAPIKey  string  `json:"openai_api_key"`
	OpenAIBaseURL string  `json:"openai_base_url"`
	OpenAIModel   string  `json:"openai_model"`
	SelfHostedURL string  `json:"self_hosted_url"` // LibreTranslate-compatible endpoint
	EnableOCR     bool    `json:"enable_ocr"`
	LogFile       string  `json:"log_file"`
	LogLevel      string  `json:"log_level"`
}

// ErrorCode classifies application errors.
type ErrorCode string

const (
	ErrNetwork         ErrorCode = "NETWORK_ERROR"
	ErrAPICall         ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit    ErrorCode = "API_RATE_LIMIT"
	ErrDegenerate      ErrorCode = "DEGENERATE_TRANSLATION"
	ErrChunkFailed     ErrorCode = "CHUNK_TRANSLATION_FAILED"
	ErrExtractionEmpty ErrorCode = "EXTRACTION_EMPTY"
	ErrOverflow        ErrorCode = "COMPOSITION_OVERFLOW"
	ErrDocumentOpen    ErrorCode = "DOCUMENT_OPEN_ERROR"
	ErrDocumentParse   ErrorCode = "DOCUMENT_PARSE_ERROR"
	ErrDocumentSave    ErrorCode = "DOCUMENT_SAVE_ERROR"
	ErrFileNotFound    ErrorCode = "FILE_NOT_FOUND"
	ErrInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrConfig          ErrorCode = "CONFIG_ERROR"
	ErrInternal        ErrorCode = "INTERNAL_ERROR"
)

// AppError is the application error type carrying a code for classification.
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}
