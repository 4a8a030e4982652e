package generator

import (
	"context"
	"fmt"

	"github.com/abhisek/findata/internal/chunker"
	"github.com/abhisek/findata/internal/dataset"
	"github.com/abhisek/findata/internal/llm"
	"github.com/abhisek/findata/internal/logger"
	"github.com/abhisek/findata/internal/source"
	"github.com/abhisek/findata/internal/store"
	"github.com/sirupsen/logrus"
)

// Source labels recorded with each run.
const (
	SourceText = "text"
	SourcePDF  = "pdf"
	Source10K  = "10-K"
	Source10Q  = "10-Q"
)

// Pipeline goes from a document reference to a dataset: fetch, clean,
// split, generate. PDF, EDGAR and Runs are optional; the matching entry
// points fail without them.
type Pipeline struct {
	Engine *Engine

	// TextSplitter defaults to chunker.ForText, FilingSplitter to
	// chunker.ForFiling.
	TextSplitter   chunker.Splitter
	FilingSplitter chunker.Splitter

	PDF   *source.PDFSource
	EDGAR *source.EDGAR

	// Runs records a summary of every run when set.
	Runs  store.RunRepo
	Model string
	Log   logrus.FieldLogger
}

// FromTexts splits each text with the free-text splitter and generates up
// to maxItems items. Texts are not cleaned.
func (p *Pipeline) FromTexts(ctx context.Context, texts []string, maxItems int) (*dataset.Dataset, error) {
	if maxItems < 1 {
		return nil, invalidInput("max items must be at least 1, got %d", maxItems)
	}
	chunks := chunker.SplitAll(p.textSplitter(), texts)
	return p.run(ctx, SourceText, fmt.Sprintf("%d texts", len(texts)), chunks, maxItems)
}

// FromPDF extracts, cleans and splits the PDF at ref (URL, s3:// or path).
func (p *Pipeline) FromPDF(ctx context.Context, ref string, maxItems int) (*dataset.Dataset, error) {
	if maxItems < 1 {
		return nil, invalidInput("max items must be at least 1, got %d", maxItems)
	}
	if p.PDF == nil {
		return nil, invalidInput("PDF source is not configured")
	}
	text, err := p.PDF.Text(ctx, ref)
	if err != nil {
		return nil, err
	}
	chunks := chunker.SplitAll(p.textSplitter(), source.CleanAll([]string{text}, 0))
	return p.run(ctx, SourcePDF, ref, chunks, maxItems)
}

// From10K generates from the items of a company's 10-K for year.
func (p *Pipeline) From10K(ctx context.Context, ticker string, year, maxItems int, items ...string) (*dataset.Dataset, error) {
	if maxItems < 1 {
		return nil, invalidInput("max items must be at least 1, got %d", maxItems)
	}
	if p.EDGAR == nil {
		return nil, invalidInput("EDGAR source is not configured")
	}
	sections, err := p.EDGAR.TenK(ctx, ticker, year, items...)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, Source10K, fmt.Sprintf("%s %d", ticker, year), p.splitSections(sections), maxItems)
}

// From10Q generates from the items of the 10-Q filed in year/quarter.
func (p *Pipeline) From10Q(ctx context.Context, ticker string, year, quarter, maxItems int, items ...string) (*dataset.Dataset, error) {
	if maxItems < 1 {
		return nil, invalidInput("max items must be at least 1, got %d", maxItems)
	}
	if p.EDGAR == nil {
		return nil, invalidInput("EDGAR source is not configured")
	}
	sections, err := p.EDGAR.TenQ(ctx, ticker, year, quarter, items...)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, Source10Q, fmt.Sprintf("%s %d Q%d", ticker, year, quarter), p.splitSections(sections), maxItems)
}

func (p *Pipeline) splitSections(sections []source.Section) []string {
	splitter := p.FilingSplitter
	if splitter == nil {
		splitter = chunker.ForFiling()
	}
	var chunks []string
	for _, s := range sections {
		chunks = append(chunks, splitter.Split(s.Text)...)
	}
	return chunks
}

func (p *Pipeline) textSplitter() chunker.Splitter {
	if p.TextSplitter != nil {
		return p.TextSplitter
	}
	return chunker.ForText()
}

func (p *Pipeline) run(ctx context.Context, kind, ref string, chunks []string, maxItems int) (*dataset.Dataset, error) {
	log := p.Log
	if log == nil {
		log = logger.Discard()
	}
	log = log.WithFields(logrus.Fields{"source": kind, "ref": ref})

	if len(chunks) == 0 {
		return nil, invalidInput("%s %s produced no text", kind, ref)
	}
	log.WithFields(logrus.Fields{"chunks": len(chunks), "requested": maxItems}).Info("starting generation")

	var runID string
	if p.Runs != nil {
		id, err := p.Runs.Start(ctx, store.RunStart{
			Source:    kind,
			SourceRef: ref,
			Model:     p.Model,
			Chunks:    len(chunks),
			Requested: maxItems,
		})
		if err != nil {
			log.WithError(err).Warn("failed to record run start")
		} else {
			runID = id
			ctx = llm.WithRunID(ctx, id)
			log = log.WithField("run", id)
		}
	}

	rep, err := p.Engine.GenerateReport(ctx, chunks, maxItems)

	if runID != "" {
		res := store.RunResult{Status: store.RunCompleted}
		switch {
		case err != nil:
			res.Status = store.RunFailed
			res.ErrorMessage = err.Error()
		case rep.Cancelled:
			res.Status = store.RunCancelled
		}
		if rep != nil {
			res.Generated = rep.Dataset.Len()
			res.FailedChunks = rep.FailedChunks
		}
		if ferr := p.Runs.Finish(context.WithoutCancel(ctx), runID, res); ferr != nil {
			log.WithError(ferr).Warn("failed to record run result")
		}
	}

	if err != nil {
		return nil, err
	}
	return rep.Dataset, nil
}
