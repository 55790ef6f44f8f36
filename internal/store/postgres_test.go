package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rshade/jobcarbon/internal/store"
)

// TestPostgres needs a scratch database whose torque_logs table may be
// dropped, e.g. JOBCARBON_TEST_DATABASE_URL=postgres://localhost/jobcarbon_test.
func TestPostgres(t *testing.T) {
	dsn := os.Getenv("JOBCARBON_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOBCARBON_TEST_DATABASE_URL not set")
	}
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	dropTable(t, dsn)

	s, err := store.Open(ctx, dsn, true)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	t.Cleanup(func() { dropTable(t, dsn) })

	storeContract(t, s)
}

func dropTable(t *testing.T, dsn string) {
	t.Helper()
	s, err := store.OpenPostgres(context.Background(), dsn)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	require.NoError(t, s.DropTable(context.Background()))
}
