package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/pagetoc/internal/metrics"
	"github.com/dgallion1/pagetoc/internal/page"
)

// Worker processes the pages of a batch job.
type Worker struct {
	builder *page.Builder
	stats   *metrics.BuildStats
	log     *slog.Logger

	maxConcurrentPages int
}

func NewWorker(builder *page.Builder, stats *metrics.BuildStats, log *slog.Logger, maxPages int) *Worker {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Worker{
		builder:            builder,
		stats:              stats,
		log:                log,
		maxConcurrentPages: maxPages,
	}
}

// Process runs the TOC builder over every page of a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	inputs := job.Inputs()
	log := w.log.With("job_id", job.ID, "pages", len(inputs))

	job.SetStatus(StatusProcessing, "building")
	start := time.Now()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	sem := make(chan struct{}, w.maxConcurrentPages)
	for i, in := range inputs {
		if !acquire(ctx, sem) {
			break
		}
		wg.Add(1)
		go func(i int, in PageInput) {
			defer wg.Done()
			defer func() { <-sem }()

			res, out, err := w.processPage(in)
			if err != nil {
				log.Warn("page failed", "filename", in.Filename, "error", err)
				job.AddError(fmt.Sprintf("%s: %s", in.Filename, err))
				res.Error = err.Error()
				mu.Lock()
				failed++
				mu.Unlock()
			}
			job.SetResult(i, res, out)
		}(i, in)
	}
	wg.Wait()
	job.ReleaseInputs()

	if ctx.Err() != nil {
		log.Warn("job cancelled", "error", ctx.Err())
		job.AddError("cancelled: " + ctx.Err().Error())
		job.SetStatus(StatusFailed, "cancelled")
		return
	}

	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted, "done")
	case failed == len(inputs):
		job.SetStatus(StatusFailed, "done")
	default:
		job.SetStatus(StatusPartial, "done")
	}

	log.Info("job finished",
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// acquire takes a slot in sem, giving up when ctx is cancelled first.
func acquire(ctx context.Context, sem chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case <-ctx.Done():
		return false
	case sem <- struct{}{}:
		return true
	}
}

// processPage parses one page, adds its TOC and renders it back out.
func (w *Worker) processPage(in PageInput) (PageResult, []byte, error) {
	res := PageResult{
		Filename:    in.Filename,
		ContentHash: ContentHashHex(in.Data),
	}

	p, err := page.Parse(bytes.NewReader(in.Data))
	if err != nil {
		return res, nil, err
	}

	start := time.Now()
	built := w.builder.Build(p)
	if w.stats != nil {
		w.stats.Record(time.Since(start), string(built.Status))
	}
	res.Status = built.Status
	res.Links = built.Links

	var buf bytes.Buffer
	if err := p.Render(&buf); err != nil {
		return res, nil, fmt.Errorf("render: %w", err)
	}
	return res, buf.Bytes(), nil
}
