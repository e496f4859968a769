package database

import (
	"context"
	"io"
	"testing"

	"barbershop/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	assert.NoError(t, err)
	db.Close()

	ctx := context.Background()

	t.Run("CreateBooking", func(t *testing.T) {
		assert.Error(t, db.CreateBooking(ctx, &models.Booking{}))
	})

	t.Run("GetBooking", func(t *testing.T) {
		_, err := db.GetBooking(ctx, "x")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("ListBookings", func(t *testing.T) {
		_, err := db.ListBookings(ctx)
		assert.Error(t, err)
	})

	t.Run("UpdateBookingStatus", func(t *testing.T) {
		assert.Error(t, db.UpdateBookingStatus(ctx, "x", models.StatusConfirmed))
	})

	t.Run("SetPaymentSession", func(t *testing.T) {
		assert.Error(t, db.SetPaymentSession(ctx, "x", "cs"))
	})

	t.Run("HasRole", func(t *testing.T) {
		_, err := db.HasRole(ctx, "u", models.RoleAdmin)
		assert.Error(t, err)
	})

	t.Run("SyncQueue", func(t *testing.T) {
		assert.Error(t, db.CreateSyncTask(ctx, &models.SyncTask{}))
		_, err := db.GetPendingSyncTasks(ctx, 1)
		assert.Error(t, err)
		assert.Error(t, db.UpdateSyncTaskStatus(ctx, 1, "completed", "", nil))
	})
}
