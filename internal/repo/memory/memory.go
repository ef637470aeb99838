package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/repo"
)

// Store keeps results in process memory. Used by tests and STORE=memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	results []domain.ProbeResult // ascending id
	now     func() time.Time
}

func New() *Store {
	return &Store{
		nextID:  1,
		results: make([]domain.ProbeResult, 0, 128),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (m *Store) Insert(ctx context.Context, r *domain.ProbeResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r.ID = m.nextID
	m.nextID++
	r.CreatedAt = m.now()
	if n := len(m.results); n > 0 && r.CreatedAt.Before(m.results[n-1].CreatedAt) {
		r.CreatedAt = m.results[n-1].CreatedAt
	}
	m.results = append(m.results, *r)
	return nil
}

func (m *Store) GetByID(ctx context.Context, id int64) (*domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// ids are dense and start at 1
	if id < 1 || id > int64(len(m.results)) {
		return nil, repo.ErrNotFound
	}
	r := m.results[id-1]
	return &r, nil
}

func (m *Store) GetPage(ctx context.Context, f repo.Filter, offset, limit int) ([]domain.ProbeResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.ProbeResult, 0, limit)
	skipped := 0
	for i := len(m.results) - 1; i >= 0 && len(out) < limit; i-- {
		r := m.results[i]
		if !matches(f, r) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Store) Count(ctx context.Context, f repo.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.results {
		if matches(f, r) {
			n++
		}
	}
	return n, nil
}

func (m *Store) Aggregates(ctx context.Context) (domain.Aggregates, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var a domain.Aggregates
	var sum float64
	var timed int
	counts := make(map[string]int)
	var order []string // URLs by first appearance, i.e. by MIN(id)
	for _, r := range m.results {
		a.Total++
		if r.IsHealthy {
			a.Healthy++
		}
		if r.ResponseTimeMS != nil {
			v := *r.ResponseTimeMS
			sum += v
			timed++
			if a.MinMS == nil || v < *a.MinMS {
				a.MinMS = &v
			}
			if a.MaxMS == nil || v > *a.MaxMS {
				a.MaxMS = &v
			}
		}
		if counts[r.URL] == 0 {
			order = append(order, r.URL)
		}
		counts[r.URL]++
	}
	// highest count wins; ties go to the URL seen first
	best := 0
	for _, u := range order {
		if counts[u] > best {
			best = counts[u]
			top := u
			a.TopURL = &top
		}
	}
	if timed > 0 {
		avg := sum / float64(timed)
		a.AvgMS = &avg
	}
	return a, nil
}

func (m *Store) Close() error { return nil }

func matches(f repo.Filter, r domain.ProbeResult) bool {
	if f.Healthy != nil && r.IsHealthy != *f.Healthy {
		return false
	}
	if f.URLContains != "" && !strings.Contains(r.URL, f.URLContains) {
		return false
	}
	return true
}
