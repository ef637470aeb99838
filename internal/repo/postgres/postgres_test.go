package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/apimonitor/internal/domain"
	"github.com/hamed0406/apimonitor/internal/repo"
)

func TestPostgresStore_Insert_Get_Page_Aggregates(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn, zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	// Unique URL per run so filters only see this test's rows.
	uniqueURL := fmt.Sprintf("https://example.com/test-%d", time.Now().UTC().UnixNano())

	code, ms := 200, 42.5
	ok := &domain.ProbeResult{URL: uniqueURL, StatusCode: &code, ResponseTimeMS: &ms, IsHealthy: true}
	require.NoError(t, store.Insert(ctx, ok))
	require.NotZero(t, ok.ID)

	msg := "request error: connection refused"
	bad := &domain.ProbeResult{URL: uniqueURL, ErrorMessage: &msg}
	require.NoError(t, store.Insert(ctx, bad))
	assert.Greater(t, bad.ID, ok.ID)
	assert.False(t, bad.CreatedAt.Before(ok.CreatedAt))

	got, err := store.GetByID(ctx, ok.ID)
	require.NoError(t, err)
	assert.Equal(t, *ok, *got)

	_, err = store.GetByID(ctx, -1)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	f := repo.Filter{URLContains: uniqueURL}
	n, err := store.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := store.GetPage(ctx, f, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, bad.ID, rows[0].ID)
	assert.Nil(t, rows[0].StatusCode)

	healthy := true
	n, err = store.Count(ctx, repo.Filter{URLContains: uniqueURL, Healthy: &healthy})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	a, err := store.Aggregates(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, a.Total, 2)
	assert.NotNil(t, a.TopURL)
}
