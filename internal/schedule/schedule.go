// Package schedule fans unit translation out over a bounded worker pool.
//
// Each text unit is split into chunks, every chunk becomes a job, and jobs
// run concurrently with results written into index-keyed slots so output
// order always matches input order. A failed chunk degrades to sequential
// line-by-line translation, and a line that still fails keeps its source
// text, so no unit can take down its neighbours.
package schedule

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pdf-translator/internal/chunker"
	"pdf-translator/internal/logger"
	"pdf-translator/internal/types"
)

// DefaultConcurrency is the worker pool size when none is configured.
// Public endpoints throttle aggressively, so the default stays small.
const DefaultConcurrency = 2

// TranslateFunc translates a single piece of text.
type TranslateFunc func(ctx context.Context, text string) (string, error)

// Options configures a Scheduler.
type Options struct {
	// Concurrency bounds the worker pool. Non-positive selects the default.
	Concurrency int
	// MaxChunkChars is the chunking budget passed through to the chunker.
	MaxChunkChars int
}

// Stats summarizes a TranslateUnits run.
type Stats struct {
	// Units is the number of input units.
	Units int
	// Chunks is the number of jobs dispatched.
	Chunks int
	// Failed counts units where some source text survived untranslated.
	Failed int
}

// Scheduler translates batches of text units concurrently.
type Scheduler struct {
	translate   TranslateFunc
	chunker     *chunker.Chunker
	concurrency int
}

// New creates a Scheduler that calls translate for every chunk.
func New(translate TranslateFunc, opts Options) *Scheduler {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scheduler{
		translate:   translate,
		chunker:     chunker.New(opts.MaxChunkChars),
		concurrency: concurrency,
	}
}

type chunkResult struct {
	text       string
	keptSource bool
}

// TranslateUnits translates units and returns one text per unit, in input
// order. Units whose translation failed entirely keep their source text;
// the stats report how many units kept any source text.
func (s *Scheduler) TranslateUnits(ctx context.Context, units []types.TextUnit) ([]string, Stats) {
	texts := make([]string, len(units))
	stats := Stats{Units: len(units)}

	chunksPerUnit := make([][]types.Chunk, len(units))
	resultsPerUnit := make([][]chunkResult, len(units))

	var jobs []*types.TranslationJob
	for i, u := range units {
		chunks := s.chunker.Split(i, u.Text)
		chunksPerUnit[i] = chunks
		resultsPerUnit[i] = make([]chunkResult, len(chunks))
		for j := range chunks {
			jobs = append(jobs, &types.TranslationJob{ID: uuid.NewString(), Chunk: chunks[j]})
		}
	}
	stats.Chunks = len(jobs)

	logger.Debug("dispatching translation jobs",
		logger.Int("units", len(units)),
		logger.Int("jobs", len(jobs)),
		logger.Int("concurrency", s.concurrency))

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job *types.TranslationJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// Each job writes its own slot, so no locking is needed.
			resultsPerUnit[job.Chunk.UnitIndex][job.Chunk.Ordinal] = s.runJob(ctx, job)
		}(job)
	}
	wg.Wait()

	for i := range units {
		chunks := chunksPerUnit[i]
		if len(chunks) == 0 {
			texts[i] = units[i].Text
			continue
		}

		outs := make([]string, len(chunks))
		kept := false
		for j, r := range resultsPerUnit[i] {
			outs[j] = r.text
			if r.keptSource {
				kept = true
			}
		}
		texts[i] = chunker.Reassemble(chunks, outs)
		if kept {
			stats.Failed++
		}
	}

	return texts, stats
}

// runJob translates one chunk, degrading to line mode on failure.
func (s *Scheduler) runJob(ctx context.Context, job *types.TranslationJob) chunkResult {
	job.Attempts++
	out, err := s.translate(ctx, job.Chunk.Text)
	if err == nil {
		return chunkResult{text: out}
	}

	logger.Warn("chunk translation failed, retrying line by line",
		logger.String("job", job.ID),
		logger.Int("unit", job.Chunk.UnitIndex),
		logger.Int("ordinal", job.Chunk.Ordinal),
		logger.Err(err))
	return s.translateLines(ctx, job)
}

// translateLines retries a failed chunk one line at a time so a single bad
// line cannot sink the rest. Lines that still fail keep their source text.
func (s *Scheduler) translateLines(ctx context.Context, job *types.TranslationJob) chunkResult {
	lines := strings.Split(job.Chunk.Text, "\n")
	outs := make([]string, len(lines))
	kept := false

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			outs[i] = line
			continue
		}
		job.Attempts++
		out, err := s.translate(ctx, line)
		if err != nil {
			logger.Debug("line translation failed, keeping source line",
				logger.String("job", job.ID),
				logger.Int("line", i),
				logger.Err(err))
			outs[i] = line
			kept = true
			continue
		}
		outs[i] = out
	}

	merged := strings.Join(outs, "\n")
	if strings.TrimSpace(merged) == "" {
		return chunkResult{text: job.Chunk.Text, keptSource: true}
	}
	return chunkResult{text: merged, keptSource: kept}
}
