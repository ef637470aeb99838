package monitor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/probe"
	"github.com/hamed0406/apimonitor/internal/repo"
)

// ErrInvalidPage is returned when page or page size is out of bounds.
var ErrInvalidPage = errors.New("invalid page request")

// PageRequest selects one page of results. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
	Filter   repo.Filter
}

// Service probes URLs and reads back stored results.
type Service struct {
	Logger  *zap.Logger
	Store   repo.ResultStore
	Checker probe.Checker
}

func NewService(l *zap.Logger, store repo.ResultStore, c probe.Checker) *Service {
	return &Service{Logger: l, Store: store, Checker: c}
}

// Record probes url once and stores the outcome. An unreachable target is
// still a stored, unhealthy result; only store errors are returned.
func (s *Service) Record(ctx context.Context, url string) (*domain.ProbeResult, error) {
	// The probe timeout is the only bound; a caller hanging up does not
	// abort the probe or lose the row.
	ctx = context.WithoutCancel(ctx)

	out := s.Checker.Check(ctx, url)
	r := newResult(url, out)

	if err := s.Store.Insert(ctx, r); err != nil {
		return nil, fmt.Errorf("record %s: %w", url, err)
	}

	fields := []zap.Field{
		zap.Int64("id", r.ID),
		zap.String("url", url),
		zap.Bool("healthy", r.IsHealthy),
	}
	switch o := out.(type) {
	case probe.Success:
		fields = append(fields, zap.Int("status", o.StatusCode), zap.Float64("latency_ms", o.LatencyMS()))
	case probe.Failure:
		fields = append(fields, zap.String("error", o.Message))
	}
	s.Logger.Info("probe_recorded", fields...)
	return r, nil
}

func newResult(url string, out probe.Outcome) *domain.ProbeResult {
	r := &domain.ProbeResult{URL: url, IsHealthy: out.Healthy()}
	switch o := out.(type) {
	case probe.Success:
		code, ms := o.StatusCode, o.LatencyMS()
		r.StatusCode, r.ResponseTimeMS = &code, &ms
	case probe.Failure:
		msg := o.Message
		r.ErrorMessage = &msg
	}
	return r
}

// GetPage returns one page of results, newest first.
func (s *Service) GetPage(ctx context.Context, req PageRequest) (*domain.Page, error) {
	if !domain.ValidPage(req.Page, req.PageSize) {
		return nil, fmt.Errorf("%w: page=%d page_size=%d", ErrInvalidPage, req.Page, req.PageSize)
	}

	total, err := s.Store.Count(ctx, req.Filter)
	if err != nil {
		return nil, err
	}
	results := []domain.ProbeResult{}
	// a page past the end never reaches the store
	if offset := domain.Offset(req.Page, req.PageSize); offset < total {
		results, err = s.Store.GetPage(ctx, req.Filter, offset, req.PageSize)
		if err != nil {
			return nil, err
		}
		if results == nil {
			results = []domain.ProbeResult{}
		}
	}
	return &domain.Page{
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalPages: domain.TotalPages(total, req.PageSize),
		Results:    results,
	}, nil
}

// GetByID returns repo.ErrNotFound when id was never assigned.
func (s *Service) GetByID(ctx context.Context, id int64) (*domain.ProbeResult, error) {
	return s.Store.GetByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (domain.Stats, error) {
	a, err := s.Store.Aggregates(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.NewStats(a), nil
}
