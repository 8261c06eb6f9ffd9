package bunstore

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/reps/store/storetest"
)

func TestStoreContract(t *testing.T) {
	dsn := os.Getenv("REPS_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REPS_POSTGRES_DSN not set")
	}

	s := Open(dsn)
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	storetest.Run(t, s)
}
