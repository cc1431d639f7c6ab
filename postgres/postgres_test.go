package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dialog/internal/storetest"
)

// Set DIALOG_TEST_DATABASE_URL to run against a scratch database. The
// dialog tables are dropped first.
func TestPGStore(t *testing.T) {
	url := os.Getenv("DIALOG_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DIALOG_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := New(pool)
	require.NoError(t, s.DropSchema(ctx))
	storetest.Run(t, s)
}
