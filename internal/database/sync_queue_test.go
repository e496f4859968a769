package database

import (
	"context"
	"testing"
	"time"

	"barbershop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := &models.SyncTask{
		TaskType:  "upsert",
		BookingID: "b-100",
		Payload:   `{"test": true}`,
		Status:    "pending",
	}

	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.NotZero(t, task.ID)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "b-100", tasks[0].BookingID)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, "completed", "", nil))

	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, tasks, 0)

	done, err := db.GetSyncTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", done.Status)
	assert.NotNil(t, done.ProcessedAt)

	t.Run("Failed", func(t *testing.T) {
		errMsg := "some error"
		require.NoError(t, db.CreateSyncTask(ctx, &models.SyncTask{TaskType: "test", BookingID: "b-101", Payload: "{}", Status: "failed", LastError: &errMsg}))
		failed, err := db.GetFailedSyncTasks(ctx)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "some error", *failed[0].LastError)
	})

	t.Run("RetrySchedule", func(t *testing.T) {
		task2 := &models.SyncTask{TaskType: "retry_test", BookingID: "b-102", Payload: "{}", Status: "pending"}
		require.NoError(t, db.CreateSyncTask(ctx, task2))

		nextRetry := time.Now().Add(time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task2.ID, "retry", "temporary error", &nextRetry))

		tasks, err := db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		for _, tk := range tasks {
			assert.NotEqual(t, task2.ID, tk.ID, "task with future retry should not be pending")
		}

		pastRetry := time.Now().Add(-time.Hour)
		require.NoError(t, db.UpdateSyncTaskStatus(ctx, task2.ID, "retry", "temporary error", &pastRetry))

		tasks, err = db.GetPendingSyncTasks(ctx, 10)
		require.NoError(t, err)
		found := false
		for _, tk := range tasks {
			if tk.ID == task2.ID {
				found = true
				assert.Equal(t, 2, tk.RetryCount)
			}
		}
		assert.True(t, found)
	})

	t.Run("MissingTask", func(t *testing.T) {
		_, err := db.GetSyncTask(ctx, 9999)
		assert.ErrorIs(t, err, ErrSyncTaskMissing)
	})
}
