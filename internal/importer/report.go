package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Reporter receives the outcome of every batch.
type Reporter interface {
	Report(ctx context.Context, batch *BatchResult) error
}

// LogReporter logs one line per candidate.
type LogReporter struct {
	log *slog.Logger
}

func NewLogReporter(log *slog.Logger) *LogReporter {
	if log == nil {
		log = slog.Default()
	}
	return &LogReporter{log: log}
}

func (r *LogReporter) Report(_ context.Context, batch *BatchResult) error {
	for _, res := range batch.Results {
		if res.Err != nil {
			r.log.Error(res.Summary(), "batch_id", batch.ID)
			continue
		}
		r.log.Info(res.Summary(), "batch_id", batch.ID)
	}
	return nil
}

// WriterReporter prints the per-candidate summary lines to w.
type WriterReporter struct {
	w io.Writer
}

func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{w: w}
}

func (r *WriterReporter) Report(_ context.Context, batch *BatchResult) error {
	for _, res := range batch.Results {
		if _, err := fmt.Fprintln(r.w, res.Summary()); err != nil {
			return err
		}
	}
	return nil
}

// HistoryReporter records each candidate in the import history.
type HistoryReporter struct {
	history *HistoryStore
}

func NewHistoryReporter(history *HistoryStore) *HistoryReporter {
	return &HistoryReporter{history: history}
}

func (r *HistoryReporter) Report(ctx context.Context, batch *BatchResult) error {
	for _, res := range batch.Results {
		h := &HistoryEntry{
			BatchID: batch.ID,
			Path:    res.Candidate.Path,
			Format:  res.Format,
			Status:  StatusImported,
			Pixels:  len(res.Pixels),
		}
		if res.Err != nil {
			h.Status = StatusFailed
			h.Error = res.Err.Error()
		} else {
			ids := make([]int64, len(res.Pixels))
			for i, p := range res.Pixels {
				ids[i] = p.ID
			}
			data, err := json.Marshal(map[string]any{"pixels_ids": ids})
			if err != nil {
				return fmt.Errorf("marshal history data: %w", err)
			}
			h.Data = string(data)
		}
		if err := r.history.Add(ctx, h); err != nil {
			return err
		}
	}
	return nil
}

// MultiReporter fans a batch out to several reporters and joins their errors.
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, batch *BatchResult) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
