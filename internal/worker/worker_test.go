package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"barbershop/internal/config"
	"barbershop/internal/database"
	"barbershop/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:            id,
		Name:          "John Smith",
		Phone:         "+27123456789",
		Email:         "john@example.com",
		Service:       "Classic Haircut - R250",
		PreferredDate: "2025-06-01",
		PreferredTime: "10:00",
		Status:        models.StatusPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)

	booking := testBooking("b-1")
	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, TaskUpsert, booking.ID, booking, ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	stored := loadTask(t, db, task.ID)
	if stored.Status != "completed" {
		t.Fatalf("expected status=completed, got %s", stored.Status)
	}
	if stored.RetryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", stored.RetryCount)
	}
	if stored.NextRetryAt != nil {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if sheets.upsertCalls != 1 || sheets.lastBookingID != "b-1" {
		t.Fatalf("expected one upsert for b-1, got %d (%s)", sheets.upsertCalls, sheets.lastBookingID)
	}

	// A duplicate delivery of a finished task is ignored.
	worker.processTask(ctx, &task)
	if sheets.upsertCalls != 1 {
		t.Fatalf("completed task processed twice")
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("boom")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, nil)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, TaskUpsert, "b-2", testBooking("b-2"), ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := worker.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	worker.processTask(ctx, &task)

	stored := loadTask(t, db, task.ID)
	if stored.Status != "retry" {
		t.Fatalf("expected status=retry, got %s", stored.Status)
	}
	if stored.RetryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", stored.RetryCount)
	}
	if stored.NextRetryAt == nil || stored.NextRetryAt.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", stored.NextRetryAt)
	}
	if stored.LastError == nil || *stored.LastError != "boom" {
		t.Fatalf("expected last_error=boom, got %v", stored.LastError)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("fatal")}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{MaxRetries: 1}, nil)

	ctx := context.Background()
	if err := worker.EnqueueTask(ctx, TaskUpsert, "b-3", testBooking("b-3"), ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	task, _ := worker.tryLocalQueue()
	worker.processTask(ctx, &task)

	if stored := loadTask(t, db, task.ID); stored.Status != "failed" {
		t.Fatalf("expected status=failed, got %s", stored.Status)
	}
}

func TestProcessTaskBadPayload(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{MaxRetries: 5}, nil)

	ctx := context.Background()
	task := models.SyncTask{TaskType: TaskUpsert, BookingID: "b-4", Payload: "{", Status: "pending", CreatedAt: time.Now()}
	if err := db.CreateSyncTask(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	worker.processTask(ctx, &task)

	if stored := loadTask(t, db, task.ID); stored.Status != "failed" {
		t.Fatalf("expected undecodable task to fail without retry, got %s", stored.Status)
	}
}

func TestSheetsWorker_HandleSheetTask(t *testing.T) {
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(nil, sheets, nil, RetryPolicy{MaxRetries: 3}, nil)
	ctx := context.Background()

	t.Run("Upsert", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, TaskUpsert, sheetTaskPayload{Booking: testBooking("b-1")}); err != nil {
			t.Fatalf("handle: %v", err)
		}
		if sheets.upsertCalls != 1 {
			t.Fatalf("expected 1 upsert call, got %d", sheets.upsertCalls)
		}
	})

	t.Run("UpsertWithoutBooking", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, TaskUpsert, sheetTaskPayload{BookingID: "b-1"}); err == nil {
			t.Fatalf("expected error for missing booking")
		}
	})

	t.Run("UpdateStatus", func(t *testing.T) {
		err := worker.handleSheetTask(ctx, TaskUpdateStatus, sheetTaskPayload{BookingID: "b-123", Status: "confirmed"})
		if err != nil {
			t.Fatalf("handle: %v", err)
		}
		if sheets.statusCalls != 1 || sheets.lastStatus != "confirmed" {
			t.Fatalf("expected 1 status call with confirmed, got %d (%s)", sheets.statusCalls, sheets.lastStatus)
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		if err := worker.handleSheetTask(ctx, "delete", sheetTaskPayload{BookingID: "b-1"}); err == nil {
			t.Fatalf("expected error for unknown task type")
		}
	})
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.SyncConfig{MaxRetries: 4, InitialDelaySeconds: 3, MaxDelaySeconds: 30, BackoffFactor: 1.5})
	if p.MaxRetries != 4 || p.InitialDelay != 3*time.Second || p.MaxDelay != 30*time.Second || p.BackoffFactor != 1.5 {
		t.Fatalf("unexpected policy: %+v", p)
	}
}

func TestSheetsWorker_EnqueueTask(t *testing.T) {
	db := newTestDB(t)
	worker := NewSheetsWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()
	booking := testBooking("b-1")

	t.Run("ValidTask", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, TaskUpsert, "", booking, ""); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		task, ok := worker.tryLocalQueue()
		if !ok || task.BookingID != "b-1" {
			t.Fatalf("expected booking id taken from booking, got %+v", task)
		}
	})

	t.Run("InvalidTaskType", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, "", "b-1", booking, ""); err == nil {
			t.Fatalf("expected error for empty task type")
		}
	})

	t.Run("InvalidBookingID", func(t *testing.T) {
		if err := worker.EnqueueTask(ctx, TaskUpsert, "", nil, ""); err == nil {
			t.Fatalf("expected error for missing booking id")
		}
	})
}

func TestSheetsWorker_RedisQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	db := newTestDB(t)
	sheets := &fakeSheets{err: errors.New("sheet gone")}
	worker := NewSheetsWorker(db, sheets, client, RetryPolicy{MaxRetries: 1}, nil)
	ctx := context.Background()

	if err := worker.EnqueueTask(ctx, TaskUpdateStatus, "b-9", nil, "cancelled"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := worker.tryLocalQueue(); ok {
		t.Fatalf("task should go to redis, not the local queue")
	}

	task, ok := worker.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task from redis")
	}
	if task.TaskType != TaskUpdateStatus || task.BookingID != "b-9" {
		t.Fatalf("unexpected task: %+v", task)
	}

	worker.processTask(ctx, &task)

	dead, err := mr.List("sheets:deadletter")
	if err != nil || len(dead) != 1 {
		t.Fatalf("expected one dead letter, got %v (%v)", dead, err)
	}
	var deadTask models.SyncTask
	if err := json.Unmarshal([]byte(dead[0]), &deadTask); err != nil || deadTask.ID != task.ID {
		t.Fatalf("unexpected dead letter %q", dead[0])
	}
}

func TestSheetsWorker_StartDrainsAndStops(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	worker := NewSheetsWorker(db, sheets, nil, RetryPolicy{}, nil)
	worker.pollInterval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := worker.EnqueueTask(ctx, TaskUpsert, "b-1", testBooking("b-1"), ""); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		tasks, err := db.GetPendingSyncTasks(context.Background(), 10)
		if err != nil {
			t.Fatalf("pending: %v", err)
		}
		if len(tasks) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task was not processed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestSheetsWorker_DecodePayload(t *testing.T) {
	worker := NewSheetsWorker(nil, nil, nil, RetryPolicy{}, nil)

	t.Run("ValidPayload", func(t *testing.T) {
		decoded, err := worker.decodePayload(`{"booking_id":"b-123","status":"confirmed"}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.BookingID != "b-123" || decoded.Status != "confirmed" {
			t.Fatalf("unexpected decoded payload: %+v", decoded)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		if _, err := worker.decodePayload(`invalid json`); err == nil {
			t.Fatalf("expected error for invalid json")
		}
	})
}

// Helpers

type fakeSheets struct {
	err           error
	upsertCalls   int
	statusCalls   int
	lastBookingID string
	lastStatus    string
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, b *models.Booking) error {
	f.upsertCalls++
	f.lastBookingID = b.ID
	return f.err
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, id, status string) error {
	f.statusCalls++
	f.lastBookingID = id
	f.lastStatus = status
	return f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	db, err := database.NewDB(path, &logger)
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTask(t *testing.T, db *database.DB, id int64) *models.SyncTask {
	t.Helper()
	task, err := db.GetSyncTask(context.Background(), id)
	if err != nil {
		t.Fatalf("load task: %v", err)
	}
	return task
}
