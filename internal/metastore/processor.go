package metastore

import (
	"context"
	"crypto"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/pixport/internal/model"
)

// Processing job statuses.
const (
	JobQueued   = "queued"
	JobRunning  = "running"
	JobVerified = "verified"
	JobFailed   = "failed"
)

// ErrDigestMismatch indicates stored planes no longer hash to the recorded digest.
var ErrDigestMismatch = errors.New("digest mismatch")

// Job is one post-import processing run.
type Job struct {
	ID         int64
	PixelsID   int64
	Status     string
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// Processor re-reads stored planes after import and checks them against
// the recorded digest.
type Processor struct {
	db      *sql.DB
	planes  PlaneSource
	digest  crypto.Hash
	workers int
	log     *slog.Logger

	mu sync.Mutex
	g  *errgroup.Group
}

// NewProcessor creates a processor running at most workers jobs at once.
func NewProcessor(db *sql.DB, planes PlaneSource, digest crypto.Hash, workers int, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	p := &Processor{db: db, planes: planes, digest: digest, workers: workers, log: log}
	p.g = p.newGroup()
	return p
}

func (p *Processor) newGroup() *errgroup.Group {
	g := &errgroup.Group{}
	g.SetLimit(p.workers)
	return g
}

// LaunchProcessing queues verification of the pixel sets saved for the
// current file. It returns without waiting for the jobs to finish.
func (s *Store) LaunchProcessing(ctx context.Context) {
	if s.opts.SkipProcessing {
		return
	}
	s.proc.Launch(ctx, s.state.pixels)
}

// Launch queues one job per pixel set. Jobs outlive cancellation of ctx.
// Launch blocks while the worker limit is reached.
func (p *Processor) Launch(ctx context.Context, pixels []*model.PixelsRecord) {
	ctx = context.WithoutCancel(ctx)
	for _, px := range pixels {
		jobID, err := insert(ctx, p.db,
			`INSERT INTO processing_jobs (pixels_id, status) VALUES (?, ?)`, px.ID, JobQueued)
		if err != nil {
			p.log.Error("queue processing job", "pixels_id", px.ID, "error", err)
			continue
		}
		pixelsID := px.ID

		p.mu.Lock()
		g := p.g
		p.mu.Unlock()
		g.Go(func() error {
			return p.run(ctx, jobID, pixelsID)
		})
	}
}

// Wait blocks until every launched job has finished and returns the first
// job error. The processor can be reused afterwards.
func (p *Processor) Wait() error {
	p.mu.Lock()
	g := p.g
	p.g = p.newGroup()
	p.mu.Unlock()
	return g.Wait()
}

func (p *Processor) run(ctx context.Context, jobID, pixelsID int64) error {
	if err := p.setStatus(ctx, jobID, JobRunning, ""); err != nil {
		return err
	}
	verr := p.verify(ctx, pixelsID)
	if verr != nil {
		p.log.Warn("processing failed", "pixels_id", pixelsID, "error", verr)
		if err := p.setStatus(ctx, jobID, JobFailed, verr.Error()); err != nil {
			return errors.Join(verr, err)
		}
		return fmt.Errorf("pixels %d: %w", pixelsID, verr)
	}
	p.log.Debug("processing verified", "pixels_id", pixelsID)
	return p.setStatus(ctx, jobID, JobVerified, "")
}

func (p *Processor) verify(ctx context.Context, pixelsID int64) error {
	px, err := getPixels(ctx, p.db, pixelsID)
	if err != nil {
		return err
	}
	if px.Digest == "" {
		return fmt.Errorf("%w: no digest recorded", ErrDigestMismatch)
	}
	if !p.digest.Available() {
		return fmt.Errorf("digest %v not linked into binary", p.digest)
	}

	h := p.digest.New()
	for t := 0; t < px.SizeT; t++ {
		for c := 0; c < px.SizeC; c++ {
			for z := 0; z < px.SizeZ; z++ {
				plane, err := p.planes.GetPlane(ctx, pixelsID, z, c, t)
				if err != nil {
					return fmt.Errorf("read plane z=%d c=%d t=%d: %w", z, c, t, err)
				}
				h.Write(plane)
			}
		}
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != px.Digest {
		return fmt.Errorf("%w: recorded %s, stored planes hash to %s", ErrDigestMismatch, px.Digest, got)
	}
	return nil
}

func (p *Processor) setStatus(ctx context.Context, jobID int64, status, msg string) error {
	var finished any
	if status == JobVerified || status == JobFailed {
		finished = time.Now()
	}
	if _, err := p.db.ExecContext(ctx,
		`UPDATE processing_jobs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		status, msg, finished, jobID); err != nil {
		return fmt.Errorf("update processing job %d: %w", jobID, mapSQLiteError(err))
	}
	return nil
}

// Jobs lists the processing jobs of a pixel set, oldest first.
func (p *Processor) Jobs(ctx context.Context, pixelsID int64) ([]*Job, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, pixels_id, status, error, created_at, finished_at
		FROM processing_jobs WHERE pixels_id = ? ORDER BY id`, pixelsID)
	if err != nil {
		return nil, fmt.Errorf("list processing jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j := &Job{}
		var finished sql.NullTime
		if err := rows.Scan(&j.ID, &j.PixelsID, &j.Status, &j.Error, &j.CreatedAt, &finished); err != nil {
			return nil, fmt.Errorf("scan processing job: %w", err)
		}
		if finished.Valid {
			j.FinishedAt = &finished.Time
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
