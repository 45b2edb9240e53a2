package importer

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/pixport/internal/events"
	"github.com/vmunix/pixport/internal/model"
)

// CandidateResult is the outcome of importing one candidate.
type CandidateResult struct {
	Candidate model.ImportTarget
	Format    string
	Pixels    []*model.PixelsRecord
	Err       error
}

// Summary renders the one-line outcome used in reports.
func (r CandidateResult) Summary() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: failed: %v", r.Candidate.Path, r.Err)
	}
	return fmt.Sprintf("%s: imported with %d pixel sets", r.Candidate.Path, len(r.Pixels))
}

// BatchResult summarises one ImportCandidates call.
type BatchResult struct {
	ID        string
	Started   time.Time
	Finished  time.Time
	Results   []CandidateResult
	Imported  int
	Aborted   bool // stopped after a failure with continueOnError unset
	Cancelled bool // stopped because the context was cancelled
}

// Failed returns the number of candidates that did not import.
func (b *BatchResult) Failed() int {
	return len(b.Results) - b.Imported
}

// ImportCandidates imports candidates sequentially in list order. With
// continueOnError unset the first failure stops the batch. Cancellation of
// ctx is honoured only between files. The configured Reporter is always
// called before returning.
func (c *Coordinator) ImportCandidates(ctx context.Context, continueOnError bool, candidates []model.ImportTarget) *BatchResult {
	batch := &BatchResult{
		ID:      uuid.NewString(),
		Started: time.Now(),
	}
	log := c.log.With("batch_id", batch.ID)
	log.Info("batch started", "candidates", len(candidates), "continue_on_error", continueOnError)

	defer func() {
		batch.Finished = time.Now()
		if err := c.reporter.Report(context.WithoutCancel(ctx), batch); err != nil {
			log.Error("report batch", "error", err)
		}
	}()

	for i, cand := range candidates {
		if err := ctx.Err(); err != nil {
			log.Info("batch cancelled", "remaining", len(candidates)-i)
			batch.Cancelled = true
			return batch
		}

		res := CandidateResult{Candidate: cand}
		target, err := c.store.ResolveTarget(ctx, cand.Target)
		if err != nil {
			res.Err = fmt.Errorf("resolve target for %s: %w", filepath.Base(cand.Path), err)
			c.bus.Publish(c, &events.InternalException{
				BaseEvent: events.NewBaseEvent(events.EventInternalException, cand.Path),
				Failure:   events.NewFailure([]string{cand.Path}, "", res.Err),
			})
		} else {
			res.Pixels, res.Err = c.importRecovered(ctx, ImageRequest{
				File:            cand.Path,
				Index:           i,
				NumDone:         i,
				Total:           len(candidates),
				Name:            cand.Name,
				Description:     cand.Description,
				Archive:         cand.Archive,
				UseMetadataFile: true,
				PixelSizes:      cand.PixelSizes,
				Target:          target,
			})
			res.Format = c.current.format
		}
		batch.Results = append(batch.Results, res)

		if res.Err == nil {
			batch.Imported++
			continue
		}
		if !continueOnError {
			log.Error("exiting on error", "file", cand.Path, "error", res.Err)
			batch.Aborted = true
			return batch
		}
		log.Warn("continuing after error", "file", cand.Path, "error", res.Err)
	}

	log.Info("batch finished", "imported", batch.Imported, "failed", batch.Failed())
	return batch
}

// importRecovered runs ImportImage and turns a panic into an error so the
// batch policy applies to it. ImportImage has already published the failure.
func (c *Coordinator) importRecovered(ctx context.Context, req ImageRequest) (pixels []*model.PixelsRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			pixels, err = nil, fmt.Errorf("panic during import: %v", r)
		}
	}()
	return c.ImportImage(ctx, req)
}
