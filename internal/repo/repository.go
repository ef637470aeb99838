package repo

import (
	"context"
	"errors"

	"github.com/hamed0406/apimonitor/internal/domain"
)

// ErrNotFound is returned by GetByID when no row has the requested id.
var ErrNotFound = errors.New("result not found")

// Filter narrows GetPage and Count. The zero value matches every row.
type Filter struct {
	Healthy     *bool  // only rows with this health flag
	URLContains string // substring match on url
}

// ResultStore is the persistence port for probe results. Adapters assign ID
// and CreatedAt on Insert; rows are never updated or deleted.
type ResultStore interface {
	Insert(ctx context.Context, r *domain.ProbeResult) error
	GetByID(ctx context.Context, id int64) (*domain.ProbeResult, error)
	// GetPage returns rows newest first (id descending).
	GetPage(ctx context.Context, f Filter, offset, limit int) ([]domain.ProbeResult, error)
	Count(ctx context.Context, f Filter) (int, error)
	Aggregates(ctx context.Context) (domain.Aggregates, error)
	Close() error
}
