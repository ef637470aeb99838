package monitor

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/probe"
	"github.com/hamed0406/apimonitor/internal/repo"
	"github.com/hamed0406/apimonitor/internal/repo/memory"
)

type fakeChecker struct {
	out   probe.Outcome
	calls int
}

func (f *fakeChecker) Check(_ context.Context, _ string) probe.Outcome {
	f.calls++
	return f.out
}

// countingStore wraps the memory store and can be told to fail.
type countingStore struct {
	*memory.Store
	calls int
	err   error
}

func (c *countingStore) Insert(ctx context.Context, r *domain.ProbeResult) error {
	c.calls++
	if c.err != nil {
		return c.err
	}
	return c.Store.Insert(ctx, r)
}

func (c *countingStore) Count(ctx context.Context, f repo.Filter) (int, error) {
	c.calls++
	if c.err != nil {
		return 0, c.err
	}
	return c.Store.Count(ctx, f)
}

func (c *countingStore) GetPage(ctx context.Context, f repo.Filter, offset, limit int) ([]domain.ProbeResult, error) {
	c.calls++
	return c.Store.GetPage(ctx, f, offset, limit)
}

func newService(out probe.Outcome) (*Service, *countingStore) {
	st := &countingStore{Store: memory.New()}
	return NewService(zap.NewNop(), st, &fakeChecker{out: out}), st
}

func TestRecord_Success(t *testing.T) {
	svc, _ := newService(probe.Success{StatusCode: 301, Latency: 1500 * time.Microsecond})

	r, err := svc.Record(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
	assert.True(t, r.IsHealthy)
	require.NotNil(t, r.StatusCode)
	assert.Equal(t, 301, *r.StatusCode)
	require.NotNil(t, r.ResponseTimeMS)
	assert.Equal(t, 1.5, *r.ResponseTimeMS)
	assert.Nil(t, r.ErrorMessage)
}

func TestRecord_ServerErrorIsUnhealthy(t *testing.T) {
	svc, _ := newService(probe.Success{StatusCode: 503, Latency: time.Millisecond})
	r, err := svc.Record(context.Background(), "https://example.com")
	require.NoError(t, err)
	assert.False(t, r.IsHealthy)
	assert.Equal(t, 503, *r.StatusCode)
}

func TestRecord_FailureIsStoredAsData(t *testing.T) {
	svc, st := newService(probe.Failure{Message: "request error: dial tcp: connection refused"})

	r, err := svc.Record(context.Background(), "http://127.0.0.1:1")
	require.NoError(t, err)
	assert.False(t, r.IsHealthy)
	assert.Nil(t, r.StatusCode)
	assert.Nil(t, r.ResponseTimeMS)
	require.NotNil(t, r.ErrorMessage)
	assert.NotEmpty(t, *r.ErrorMessage)

	stored, err := st.GetByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, *r, *stored)
}

func TestRecord_UnreachableHostWithRealChecker(t *testing.T) {
	s := httptest.NewServer(http.NotFoundHandler())
	url := s.URL
	s.Close()

	st := memory.New()
	svc := NewService(zap.NewNop(), st, probe.NewHTTPChecker(2*time.Second))
	r, err := svc.Record(context.Background(), url)
	require.NoError(t, err)
	assert.False(t, r.IsHealthy)
	assert.Nil(t, r.StatusCode)
	require.NotNil(t, r.ErrorMessage)
	assert.NotEmpty(t, *r.ErrorMessage)
}

func TestRecord_SurvivesCallerCancellation(t *testing.T) {
	svc, _ := newService(probe.Success{StatusCode: 200, Latency: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := svc.Record(ctx, "https://example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)
}

func TestRecord_StoreErrorIsReturned(t *testing.T) {
	svc, st := newService(probe.Success{StatusCode: 200})
	boom := errors.New("disk full")
	st.err = boom

	_, err := svc.Record(context.Background(), "https://example.com")
	assert.ErrorIs(t, err, boom)
}

func TestRecord_IDsIncreaseAndPageIsNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(probe.Success{StatusCode: 200, Latency: time.Millisecond})

	var prev *domain.ProbeResult
	for i := 0; i < 5; i++ {
		r, err := svc.Record(ctx, "https://example.com")
		require.NoError(t, err)
		if prev != nil {
			assert.Greater(t, r.ID, prev.ID)
			assert.False(t, r.CreatedAt.Before(prev.CreatedAt))
		}
		prev = r
	}

	page, err := svc.GetPage(ctx, PageRequest{Page: domain.DefaultPage, PageSize: domain.DefaultPageSize})
	require.NoError(t, err)
	require.Len(t, page.Results, 5)
	for i, r := range page.Results {
		assert.Equal(t, int64(5-i), r.ID)
	}
}

func TestGetPage_TotalPages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(probe.Success{StatusCode: 200})
	for i := 0; i < 25; i++ {
		_, err := svc.Record(ctx, "https://example.com")
		require.NoError(t, err)
	}

	page, err := svc.GetPage(ctx, PageRequest{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Results, 5)
	assert.Equal(t, int64(5), page.Results[0].ID)
}

func TestGetPage_EmptyStore(t *testing.T) {
	svc, _ := newService(probe.Success{StatusCode: 200})
	for _, p := range []int{1, 2, 50} {
		page, err := svc.GetPage(context.Background(), PageRequest{Page: p, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 0, page.Total)
		assert.Equal(t, 0, page.TotalPages)
		assert.NotNil(t, page.Results)
		assert.Empty(t, page.Results)
	}
}

func TestGetPage_PastTheEndIsEmpty(t *testing.T) {
	ctx := context.Background()
	svc, st := newService(probe.Success{StatusCode: 200})
	for i := 0; i < 3; i++ {
		_, err := svc.Record(ctx, "https://example.com")
		require.NoError(t, err)
	}

	for _, p := range []int{2, 922337203685477582, math.MaxInt} {
		st.calls = 0
		page, err := svc.GetPage(ctx, PageRequest{Page: p, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Equal(t, p, page.Page)
		assert.NotNil(t, page.Results)
		assert.Empty(t, page.Results, "page %d", p)
		assert.Equal(t, 1, st.calls, "only the count runs for page %d", p)
	}
}

func TestGetPage_RejectsOutOfRangeWithoutTouchingStore(t *testing.T) {
	svc, st := newService(probe.Success{StatusCode: 200})
	for _, req := range []PageRequest{
		{Page: 1, PageSize: 0},
		{Page: 1, PageSize: 101},
		{Page: 0, PageSize: 10},
	} {
		_, err := svc.GetPage(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidPage, "%+v", req)
	}
	assert.Zero(t, st.calls)
}

func TestGetByID_NotFound(t *testing.T) {
	svc, _ := newService(probe.Success{StatusCode: 200})
	_, err := svc.GetByID(context.Background(), 999999)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(probe.Success{StatusCode: 200, Latency: 10 * time.Millisecond})
	_, err := svc.Record(ctx, "https://a.example")
	require.NoError(t, err)

	svc.Checker = &fakeChecker{out: probe.Failure{Message: "request timeout (> 10s)"}}
	_, err = svc.Record(ctx, "https://b.example")
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChecks)
	assert.Equal(t, 1, stats.HealthyCount)
	assert.Equal(t, 50.0, stats.UptimePercentage)
	require.NotNil(t, stats.AverageResponseTimeMS)
	assert.Equal(t, 10.0, *stats.AverageResponseTimeMS)
}
