package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

func queuePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "notification_queue.json")
}

func readDoc(t *testing.T, path string) examupdates.QueueDocument {
	t.Helper()
	byts, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc examupdates.QueueDocument
	require.NoError(t, json.Unmarshal(byts, &doc))
	return doc
}

func TestQueue_DeliversAndMarksSent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := queuePath(t)
	q, err := NewQueue(path, NewWebhook(srv.URL, "s"), Config{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	id, err := q.Enqueue(examupdates.CategoryGATE, examupdates.FormattedRecord{Title: "GATE Admit Card", Source: "IIT GATE"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.Eventually(t, func() bool {
		doc := readDoc(t, path)
		return len(doc.Queue) == 1 && doc.Queue[0].Status == examupdates.StatusSent
	}, 5*time.Second, 20*time.Millisecond)

	doc := readDoc(t, path)
	assert.Equal(t, id, doc.Queue[0].ID)
	assert.Equal(t, examupdates.CategoryGATE, doc.Queue[0].ExamType)
	assert.Equal(t, 1, doc.Queue[0].Attempts)
	assert.Empty(t, doc.Queue[0].ErrorMessage)
	assert.NotNil(t, doc.Queue[0].LastAttempt)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_RetryExhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	path := queuePath(t)
	q, err := NewQueue(path, NewWebhook(srv.URL, "s"), Config{MaxAttempts: 3})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(ctx)

	_, err = q.Enqueue("", examupdates.FormattedRecord{Title: "doomed"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		doc := readDoc(t, path)
		return len(doc.Queue) == 1 && doc.Queue[0].Status == examupdates.StatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	doc := readDoc(t, path)
	assert.Equal(t, 3, doc.Queue[0].Attempts)
	assert.Contains(t, doc.Queue[0].ErrorMessage, "500")

	// Terminal means terminal: no further attempts after landing in failed.
	attempts := calls.Load()
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, attempts, calls.Load())
}

func TestQueue_CrashRecovery(t *testing.T) {
	path := queuePath(t)
	doc := examupdates.QueueDocument{
		Queue: []examupdates.QueuedNotification{
			{ID: "a-ntf", Status: examupdates.StatusPending, MaxAttempts: 3, CreatedAt: time.Now()},
			{ID: "b-ntf", Status: examupdates.StatusSent, MaxAttempts: 3, CreatedAt: time.Now()},
		},
		LastUpdated: time.Now(),
		TotalItems:  2,
	}
	byts, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, byts, 0o644))

	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	// Only the pending item re-enters the live queue; the sent one is
	// retained for inspection only.
	assert.Equal(t, 1, q.depth())

	status := q.Status()
	assert.Equal(t, 1, status.StatusCounts[examupdates.StatusPending])
	assert.Equal(t, 1, status.StatusCounts[examupdates.StatusSent])
}

func TestQueue_InterruptedSendingBecomesPending(t *testing.T) {
	path := queuePath(t)
	doc := examupdates.QueueDocument{
		Queue: []examupdates.QueuedNotification{
			{ID: "stranded-ntf", Status: examupdates.StatusSending, Attempts: 1, MaxAttempts: 3, CreatedAt: time.Now()},
		},
		LastUpdated: time.Now(),
		TotalItems:  1,
	}
	byts, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, byts, 0o644))

	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	assert.Equal(t, 1, q.depth())
	q.mu.Lock()
	assert.Equal(t, examupdates.StatusPending, q.items["stranded-ntf"].Status)
	q.mu.Unlock()
}

func TestQueue_EnqueueBatchPreservesOrder(t *testing.T) {
	path := queuePath(t)
	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	ids, err := q.EnqueueBatch(examupdates.CategoryUPSC, []examupdates.FormattedRecord{
		{Title: "one"}, {Title: "two"}, {Title: "three"},
	})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	doc := readDoc(t, path)
	require.Len(t, doc.Queue, 3)
	for i, title := range []string{"one", "two", "three"} {
		assert.Equal(t, ids[i], doc.Queue[i].ID)
		assert.Equal(t, title, doc.Queue[i].Payload.Title)
		assert.Equal(t, examupdates.CategoryUPSC, doc.Queue[i].ExamType)
		assert.Equal(t, examupdates.StatusPending, doc.Queue[i].Status)
	}
	assert.Equal(t, 3, doc.TotalItems)
}

func TestQueue_Clear(t *testing.T) {
	path := queuePath(t)
	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	_, err = q.Enqueue("", examupdates.FormattedRecord{Title: "gone"})
	require.NoError(t, err)

	require.NoError(t, q.Clear())

	assert.Equal(t, 0, q.depth())
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	status := q.Status()
	assert.Equal(t, 0, status.QueueSize)
	assert.Equal(t, 0, status.StatusCounts[examupdates.StatusPending])
}

func TestQueue_ReloadLargeBacklog(t *testing.T) {
	path := queuePath(t)
	doc := examupdates.QueueDocument{LastUpdated: time.Now()}
	for i := 0; i < 5000; i++ {
		doc.Queue = append(doc.Queue, examupdates.QueuedNotification{
			ID:          fmt.Sprintf("%d-ntf", i),
			Status:      examupdates.StatusPending,
			MaxAttempts: 3,
			CreatedAt:   time.Now(),
		})
	}
	doc.TotalItems = len(doc.Queue)
	byts, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, byts, 0o644))

	// Reloading must never block on backlog size, processor running or not.
	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)
	assert.Equal(t, 5000, q.depth())
}

func TestQueue_ConcurrentEnqueuePersistsEveryItem(t *testing.T) {
	path := queuePath(t)
	q, err := NewQueue(path, NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := q.Enqueue("", examupdates.FormattedRecord{
					Title: fmt.Sprintf("item %d-%d", i, j),
				})
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	// The last writer wins the rename, so the final document must hold
	// every enqueued item.
	doc := readDoc(t, path)
	assert.Len(t, doc.Queue, 80)
	assert.Equal(t, 80, doc.TotalItems)
	assert.Equal(t, 80, q.depth())
}

func TestQueue_StatusWhenCold(t *testing.T) {
	q, err := NewQueue(queuePath(t), NewWebhook("http://localhost:0", "s"), Config{})
	require.NoError(t, err)

	status := q.Status()
	assert.Equal(t, 0, status.QueueSize)
	assert.False(t, status.Processing)
	for _, s := range []examupdates.NotificationStatus{
		examupdates.StatusPending, examupdates.StatusSending, examupdates.StatusSent,
		examupdates.StatusFailed, examupdates.StatusRetry,
	} {
		assert.Contains(t, status.StatusCounts, s)
	}
}
