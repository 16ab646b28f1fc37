// Package pipeline drives a whole translation run: open the document,
// move every page through extraction, translation, and composition, then
// save the result in one atomic write. Pages fail independently; the only
// errors a run surfaces are opening, parsing, and saving the document
// itself.
package pipeline

import (
	"context"
	"time"

	"pdf-translator/internal/compose"
	"pdf-translator/internal/document"
	"pdf-translator/internal/extract"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/schedule"
	"pdf-translator/internal/types"
)

// PageCountThreshold flags a saved document whose page count shrank by
// more than this fraction of the input.
const PageCountThreshold = 0.15

// ProgressFunc receives page status updates as pages move through their
// phases. It is called from the orchestrating goroutine only.
type ProgressFunc func(types.PageStatus)

// Options configures a Pipeline.
type Options struct {
	Granularity   types.Granularity
	Concurrency   int
	MaxChunkChars int
	MinFontSize   float64
	Progress      ProgressFunc
}

// Pipeline owns the run-wide collaborators. One Pipeline can run several
// documents in sequence; a single run is not concurrent with itself.
type Pipeline struct {
	translate schedule.TranslateFunc
	opts      Options

	// Seams for tests; production code keeps the document package defaults.
	open      func(path string) (document.Document, error)
	pageCount func(path string) (int, error)
}

// New builds a Pipeline around the given translate function.
func New(translate schedule.TranslateFunc, opts Options) *Pipeline {
	return &Pipeline{
		translate: translate,
		opts:      opts,
		open:      document.Open,
		pageCount: document.PageCount,
	}
}

// Run translates the document at inputPath and writes the result to
// outputPath. Translation failures degrade per unit and never abort the
// run.
func (p *Pipeline) Run(ctx context.Context, inputPath, outputPath string) (*types.Result, error) {
	start := time.Now()

	doc, err := p.open(inputPath)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	extractor := extract.New(p.opts.Granularity)
	scheduler := schedule.New(p.translate, schedule.Options{
		Concurrency:   p.opts.Concurrency,
		MaxChunkChars: p.opts.MaxChunkChars,
	})
	compositor := compose.New(p.opts.MinFontSize)

	result := &types.Result{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Pages:      doc.PageCount(),
	}

	logger.Info("translation run started",
		logger.String("input", inputPath),
		logger.String("output", outputPath),
		logger.Int("pages", result.Pages),
		logger.String("granularity", string(p.opts.Granularity)))

	for i := 0; i < result.Pages; i++ {
		p.processPage(ctx, doc, i, extractor, scheduler, compositor, result)
	}

	if err := doc.Save(outputPath); err != nil {
		return nil, err
	}

	p.checkPageCount(result)

	result.DurationMS = time.Since(start).Milliseconds()
	logger.Info("translation run finished",
		logger.String("output", outputPath),
		logger.Int("pages", result.Pages),
		logger.Int("pages_skipped", result.PagesSkipped),
		logger.Int("units", result.Units),
		logger.Int("units_failed", result.UnitsFailed),
		logger.Int("units_truncated", result.UnitsTruncated),
		logger.Int64("duration_ms", result.DurationMS))
	return result, nil
}

// processPage moves one page through its phases. Every exit is a terminal
// page state; nothing here propagates an error to the run.
func (p *Pipeline) processPage(ctx context.Context, doc document.Document, index int,
	extractor *extract.Extractor, scheduler *schedule.Scheduler, compositor *compose.Compositor,
	result *types.Result) {

	page, err := doc.Page(index)
	if err != nil {
		logger.Warn("failed to load page", logger.Int("page", index), logger.Err(err))
		result.PagesSkipped++
		p.report(types.PageStatus{PageIndex: index, Phase: types.PageSkipped, Message: "page failed to load"})
		return
	}

	units, err := extractor.Units(page)
	if err != nil {
		logger.Warn("failed to extract page text", logger.Int("page", index), logger.Err(err))
		result.PagesSkipped++
		p.report(types.PageStatus{PageIndex: index, Phase: types.PageSkipped, Message: "extraction failed"})
		return
	}
	p.report(types.PageStatus{PageIndex: index, Phase: types.PageExtracted, Units: len(units)})

	if len(units) == 0 {
		// Image-only page, left untouched
		result.PagesSkipped++
		p.report(types.PageStatus{PageIndex: index, Phase: types.PageSkipped, Message: "no extractable text"})
		return
	}

	p.report(types.PageStatus{PageIndex: index, Phase: types.PageTranslating, Units: len(units)})
	texts, stats := scheduler.TranslateUnits(ctx, units)
	result.Units += stats.Units
	result.UnitsFailed += stats.Failed

	p.report(types.PageStatus{PageIndex: index, Phase: types.PageCompositing, Units: len(units)})
	cstats, err := compositor.ComposePage(page, types.PageRenderPlan{
		PageIndex: index,
		Units:     units,
		Texts:     texts,
	})
	result.UnitsTruncated += cstats.Truncated
	if err != nil {
		logger.Warn("page composition failed", logger.Int("page", index), logger.Err(err))
		result.PagesSkipped++
		p.report(types.PageStatus{PageIndex: index, Phase: types.PageSkipped, Message: "composition failed"})
		return
	}

	p.report(types.PageStatus{PageIndex: index, Phase: types.PageDone, Units: len(units)})
}

func (p *Pipeline) report(status types.PageStatus) {
	if p.opts.Progress != nil {
		p.opts.Progress(status)
	}
}

// checkPageCount warns when the saved document lost pages against the
// input. Stamping engines have been seen dropping damaged pages silently.
func (p *Pipeline) checkPageCount(result *types.Result) {
	if result.Pages == 0 {
		return
	}
	outPages, err := p.pageCount(result.OutputPath)
	if err != nil {
		logger.Warn("failed to count output pages",
			logger.String("path", result.OutputPath), logger.Err(err))
		return
	}
	report := comparePageCounts(result.Pages, outPages)
	if report.IsSuspicious {
		logger.Warn("page count shrank suspiciously after translation",
			logger.Int("input_pages", report.InputPages),
			logger.Int("output_pages", report.OutputPages),
			logger.Float64("deficit_percent", report.DiffPercent*100))
	}
}

// PageCountResult reports the page count difference between a
// translation input and its output.
type PageCountResult struct {
	InputPages   int
	OutputPages  int
	Difference   int
	DiffPercent  float64
	IsSuspicious bool
}

// ComparePageCounts reads the page counts of both files and reports how
// many pages the output lost against the input.
func ComparePageCounts(inputPath, outputPath string) (*PageCountResult, error) {
	inPages, err := document.PageCount(inputPath)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrDocumentOpen,
			"cannot count input pages", inputPath, err)
	}
	outPages, err := document.PageCount(outputPath)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(types.ErrDocumentOpen,
			"cannot count output pages", outputPath, err)
	}
	return comparePageCounts(inPages, outPages), nil
}

func comparePageCounts(inPages, outPages int) *PageCountResult {
	result := &PageCountResult{
		InputPages:  inPages,
		OutputPages: outPages,
		Difference:  inPages - outPages,
	}
	if inPages > 0 {
		result.DiffPercent = float64(result.Difference) / float64(inPages)
	}
	result.IsSuspicious = result.DiffPercent > PageCountThreshold
	return result
}
