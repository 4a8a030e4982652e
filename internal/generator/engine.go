// Package generator drives per-chunk question generation and aggregates
// the results into a single dataset.
package generator

import (
	"context"
	"errors"
	"sync"

	"github.com/abhisek/findata/internal/dataset"
	"github.com/abhisek/findata/internal/llm"
	"github.com/abhisek/findata/internal/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options configures an Engine.
type Options struct {
	// Concurrency bounds in-flight chunk calls. Values below 2 run
	// strictly sequentially.
	Concurrency int

	// SkipZeroQuota avoids calling the backend for chunks whose share of
	// the quota is zero (more chunks than requested items). By default
	// they are still sent.
	SkipZeroQuota bool

	Pacer      Pacer
	OnProgress func(Progress)
	Log        logrus.FieldLogger
}

// Progress is reported after every chunk is handled.
type Progress struct {
	Chunk     int // index of the chunk just handled
	Chunks    int
	Requested int // quota asked of this chunk
	Received  int // items the chunk returned
	Generated int // items accumulated so far, capped at Target
	Target    int
	Skipped   bool
	Err       error
}

// Report describes a finished run.
type Report struct {
	Dataset      *dataset.Dataset
	Calls        int
	FailedChunks int
	Skipped      int
	// Cancelled is set when context cancellation or a pacer refusal cut
	// the run short.
	Cancelled bool
}

// Engine turns chunks into a dataset of at most maxItems items.
type Engine struct {
	backend Backend
	opts    Options
	log     logrus.FieldLogger
}

// NewEngine creates an Engine. A nil Pacer never waits; a nil Log discards.
func NewEngine(backend Backend, opts Options) *Engine {
	if opts.Pacer == nil {
		opts.Pacer = NoPacer{}
	}
	log := opts.Log
	if log == nil {
		log = logger.Discard()
	}
	return &Engine{backend: backend, opts: opts, log: log}
}

// Quotas splits maxItems across n chunks: the first maxItems%n chunks get
// one item more than the rest.
func Quotas(n, maxItems int) []int {
	if n <= 0 {
		return nil
	}
	base, rem := maxItems/n, maxItems%n
	q := make([]int, n)
	for i := range q {
		q[i] = base
		if i < rem {
			q[i]++
		}
	}
	return q
}

// Generate runs the chunks and returns at most maxItems items. Chunk
// failures are logged and skipped; cancellation returns what was gathered
// so far. Only invalid input is an error.
func (e *Engine) Generate(ctx context.Context, chunks []string, maxItems int) (*dataset.Dataset, error) {
	rep, err := e.GenerateReport(ctx, chunks, maxItems)
	if err != nil {
		return nil, err
	}
	return rep.Dataset, nil
}

// GenerateReport is Generate with run statistics.
func (e *Engine) GenerateReport(ctx context.Context, chunks []string, maxItems int) (*Report, error) {
	if len(chunks) == 0 {
		return nil, invalidInput("no chunks to generate from")
	}
	if maxItems < 1 {
		return nil, invalidInput("max items must be at least 1, got %d", maxItems)
	}

	r := &run{
		Engine: e,
		chunks: chunks,
		quotas: Quotas(len(chunks), maxItems),
		target: maxItems,
		slots:  make([][]dataset.Item, len(chunks)),
		rep:    &Report{},
	}
	if e.opts.Concurrency > 1 {
		r.parallel(ctx)
	} else {
		r.sequential(ctx)
	}

	ds := dataset.New(maxItems)
	for _, items := range r.slots {
		ds.Append(items...)
	}
	ds.Truncate(maxItems)

	r.rep.Dataset = ds
	if ctx.Err() != nil {
		r.rep.Cancelled = true
	}
	e.log.WithFields(logrus.Fields{
		"chunks":    len(chunks),
		"calls":     r.rep.Calls,
		"failed":    r.rep.FailedChunks,
		"items":     ds.Len(),
		"requested": maxItems,
	}).Info("generation finished")
	return r.rep, nil
}

// run holds the state of one GenerateReport call.
type run struct {
	*Engine
	chunks []string
	quotas []int
	target int

	mu        sync.Mutex
	slots     [][]dataset.Item
	generated int
	rep       *Report
}

func (r *run) sequential(ctx context.Context) {
	for i := range r.chunks {
		if ctx.Err() != nil || r.done() {
			return
		}
		if r.skip(i) {
			continue
		}
		if !r.call(ctx, i) {
			return
		}
	}
}

func (r *run) parallel(ctx context.Context) {
	var g errgroup.Group
	slots := make(chan struct{}, r.opts.Concurrency)

	for i := range r.chunks {
		if r.skip(i) {
			continue
		}
		// The slot is taken here rather than through g.SetLimit so the
		// quota check runs after the wait and sees every chunk that finished
		// meanwhile. Launched chunks stay a prefix of the input.
		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil || r.done() {
			break
		}
		g.Go(func() error {
			defer func() { <-slots }()
			r.call(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
}

// done reports whether completed chunks already cover the target or an
// earlier call stopped the run.
func (r *run) done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generated >= r.target || r.rep.Cancelled
}

func (r *run) skip(i int) bool {
	if r.quotas[i] > 0 || !r.opts.SkipZeroQuota {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Skipped++
	r.report(Progress{Chunk: i, Skipped: true})
	return true
}

// call runs chunk i. It returns false when pacing was interrupted and no
// further chunks should start.
func (r *run) call(ctx context.Context, i int) bool {
	fields := logrus.Fields{"chunk": i, "quota": r.quotas[i]}

	if err := r.opts.Pacer.Wait(ctx); err != nil {
		r.log.WithFields(fields).WithError(err).Debug("pacing interrupted")
		r.mu.Lock()
		r.rep.Cancelled = true
		r.mu.Unlock()
		return false
	}

	items, err := r.backend.GenerateBatch(ctx, BatchRequest{Index: i, Chunk: r.chunks[i], Count: r.quotas[i]})

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rep.Calls++

	if err != nil {
		if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			r.log.WithFields(fields).Debug("chunk cancelled")
			return false
		}
		r.rep.FailedChunks++
		r.log.WithFields(fields).WithError(err).WithField("transient", llm.Transient(err)).
			Warn("chunk generation failed, skipping")
		r.report(Progress{Chunk: i, Err: err})
		return true
	}

	r.slots[i] = items
	r.generated += len(items)
	r.log.WithFields(fields).WithField("items", len(items)).Debug("chunk generated")
	r.report(Progress{Chunk: i, Received: len(items)})
	return true
}

// report fills the shared fields and invokes OnProgress. Callers hold mu,
// so callbacks never run concurrently.
func (r *run) report(p Progress) {
	if r.opts.OnProgress == nil {
		return
	}
	p.Chunks = len(r.chunks)
	p.Requested = r.quotas[p.Chunk]
	p.Generated = min(r.generated, r.target)
	p.Target = r.target
	r.opts.OnProgress(p)
}
