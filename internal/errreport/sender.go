package errreport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vmunix/pixport/internal/events"
)

// Sender posts pending records as JSON to an error-report endpoint.
type Sender struct {
	url        string
	httpClient *http.Client
	collector  *Collector
	bus        *events.Bus
	log        *slog.Logger
}

// Option configures a Sender.
type Option func(*Sender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *Sender) {
		s.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Sender) {
		s.log = log
	}
}

// NewSender creates a sender for the records of c. bus receives
// ErrorsComplete after each Send and may be nil.
func NewSender(url string, c *Collector, bus *events.Bus, opts ...Option) *Sender {
	s := &Sender{
		url: url,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		collector: c,
		bus:       bus,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send submits every pending record once. Records that fail move to
// StatusFailed and are not retried. The returned error joins the
// individual failures.
func (s *Sender) Send(ctx context.Context) error {
	var errs []error
	sent, unsent := 0, 0
	for _, r := range s.collector.pending() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			unsent++
			continue
		}
		s.collector.setStatus(r, StatusSending, "")
		reply, err := s.post(ctx, r)
		if err != nil {
			s.collector.setStatus(r, StatusFailed, "")
			s.log.Error("send error report", "file", r.File, "id", r.ID, "error", err)
			errs = append(errs, fmt.Errorf("report %s: %w", r.ID, err))
			unsent++
			continue
		}
		s.collector.setStatus(r, StatusSent, reply)
		sent++
	}

	s.bus.Publish(s, &events.ErrorsComplete{
		BaseEvent: events.NewBaseEvent(events.EventErrorsComplete, ""),
		Sent:      sent,
		Unsent:    unsent,
	})
	return errors.Join(errs...)
}

func (s *Sender) post(ctx context.Context, r *Record) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("error report endpoint: %s", resp.Status)
	}
	return string(bytes.TrimSpace(reply)), nil
}
