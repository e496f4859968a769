package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentSubmissionsProduceIndependentRecords(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	const n = 10

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- db.CreateBooking(ctx, newBooking(fmt.Sprintf("Customer %d", i)))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	list, err := db.ListBookings(ctx)
	require.NoError(t, err)
	assert.Len(t, list, n)

	seen := make(map[string]bool)
	for _, b := range list {
		assert.False(t, seen[b.ID], "duplicate id %s", b.ID)
		seen[b.ID] = true
	}
}

func TestConcurrentStatusUpdatesLastWriteWins(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := newBooking("Race")
	require.NoError(t, db.CreateBooking(ctx, b))

	var wg sync.WaitGroup
	for _, st := range []string{"confirmed", "cancelled", "completed"} {
		wg.Add(1)
		go func(st string) {
			defer wg.Done()
			assert.NoError(t, db.UpdateBookingStatus(ctx, b.ID, st))
		}(st)
	}
	wg.Wait()

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Contains(t, []string{"confirmed", "cancelled", "completed"}, got.Status)
}
