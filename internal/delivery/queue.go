// Package delivery implements the at-least-once webhook notification queue
// with bounded retries and durable crash recovery.
package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hemantkumar8006/update-data-scraper/internal/examupdates"
)

const notificationNamespace = "-ntf"

// Config tunes the queue. The zero value gets sensible defaults.
type Config struct {
	// MaxAttempts bounds deliveries per item. Defaults to
	// [examupdates.DefaultMaxAttempts].
	MaxAttempts int
	// RetryBackoff is the base delay before a retry re-enters the queue,
	// doubled per attempt. Zero re-enqueues immediately.
	RetryBackoff time.Duration
}

// Queue is the delivery work queue. Items move pending → sending → one of
// sent, retry, or failed; retry re-enters the queue at the back until the
// attempt budget is spent. State is persisted to a JSON document after every
// transition, so a crash loses at most the in-flight item's last transition.
type Queue struct {
	webhook *Webhook
	path    string
	cfg     Config

	mu         sync.Mutex
	order      []string
	items      map[string]*examupdates.QueuedNotification
	ready      []string
	processing bool

	// wake signals Run that ready grew. Capacity 1: a pending wakeup
	// already covers any number of queued items.
	wake chan struct{}

	// persistMu serializes whole persist calls so a slow writer cannot
	// land its document over a newer one.
	persistMu sync.Mutex
}

// NewQueue reloads any persisted non-terminal items into the live queue.
// Items found mid-send on disk were interrupted by a crash and are re-queued
// as pending.
func NewQueue(path string, webhook *Webhook, cfg Config) (*Queue, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = examupdates.DefaultMaxAttempts
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("error creating queue directory: %w", err)
	}

	q := &Queue{
		webhook: webhook,
		path:    path,
		cfg:     cfg,
		items:   make(map[string]*examupdates.QueuedNotification),
		wake:    make(chan struct{}, 1),
	}
	if err := q.reload(); err != nil {
		return nil, err
	}

	return q, nil
}

func (q *Queue) reload() error {
	byts, err := os.ReadFile(q.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error reading queue document: %w", err)
	}

	var doc examupdates.QueueDocument
	if err := json.Unmarshal(byts, &doc); err != nil {
		slog.Warn("queue document corrupt, starting empty", "error", err)
		return nil
	}

	requeued := 0
	for i := range doc.Queue {
		item := doc.Queue[i]
		if item.Status == examupdates.StatusSending {
			item.Status = examupdates.StatusPending
		}

		q.order = append(q.order, item.ID)
		q.items[item.ID] = &item

		if item.Status == examupdates.StatusPending || item.Status == examupdates.StatusRetry {
			q.push(item.ID)
			requeued++
		}
	}

	slog.Info("reloaded notification queue", "items", len(q.items), "requeued", requeued)

	return nil
}

// push appends an id to the back of the live queue and wakes the processor.
// Never blocks, whatever the backlog.
func (q *Queue) push(id string) {
	q.mu.Lock()
	q.ready = append(q.ready, id)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop takes the front of the live queue, reporting false when it is empty.
func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ready) == 0 {
		return "", false
	}
	id := q.ready[0]
	q.ready = q.ready[1:]

	return id, true
}

func (q *Queue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.ready)
}

// Enqueue wraps a delta record in a pending notification, persists the queue
// state, and returns the assigned id. The category travels with the item so
// delivery can name the exam even when the record's source does not.
func (q *Queue) Enqueue(cat examupdates.Category, record examupdates.FormattedRecord) (string, error) {
	item := &examupdates.QueuedNotification{
		ID:          fmt.Sprintf("%s%s", uuid.NewString(), notificationNamespace),
		ExamType:    cat,
		Payload:     record,
		Status:      examupdates.StatusPending,
		MaxAttempts: q.cfg.MaxAttempts,
		CreatedAt:   time.Now(),
	}

	q.mu.Lock()
	q.order = append(q.order, item.ID)
	q.items[item.ID] = item
	q.mu.Unlock()

	if err := q.persist(); err != nil {
		return "", err
	}

	q.push(item.ID)
	slog.Info("enqueued notification", "id", item.ID, "title", record.Title)

	return item.ID, nil
}

// EnqueueBatch enqueues records in order and returns the ids in the same
// order.
func (q *Queue) EnqueueBatch(cat examupdates.Category, records []examupdates.FormattedRecord) ([]string, error) {
	ids := make([]string, 0, len(records))
	for _, record := range records {
		id, err := q.Enqueue(cat, record)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Run drains the queue until the context is canceled. The current item is
// always finished before the loop exits.
func (q *Queue) Run(ctx context.Context) error {
	q.mu.Lock()
	q.processing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.processing = false
		q.mu.Unlock()
	}()

	slog.Info("notification queue processor started")

	for {
		if id, ok := q.pop(); ok {
			q.process(ctx, id)

			select {
			case <-ctx.Done():
				slog.Info("notification queue processor stopped")
				return nil
			default:
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("notification queue processor stopped")
			return nil
		case <-q.wake:
		}
	}
}

func (q *Queue) process(ctx context.Context, id string) {
	q.mu.Lock()
	item, ok := q.items[id]
	if !ok || item.Status.Terminal() {
		q.mu.Unlock()
		return
	}

	now := time.Now()
	item.Status = examupdates.StatusSending
	item.Attempts++
	item.LastAttempt = &now
	attempt := item.Attempts
	cat := item.ExamType
	payload := item.Payload
	q.mu.Unlock()

	if err := q.persist(); err != nil {
		slog.Error("error persisting queue", "error", err)
	}

	slog.Info("delivering notification", "id", id, "attempt", attempt)
	err := q.webhook.Send(ctx, cat, payload)

	retrying := false
	q.mu.Lock()
	if err == nil {
		item.Status = examupdates.StatusSent
		item.ErrorMessage = ""
		slog.Info("notification delivered", "id", id)
	} else {
		item.ErrorMessage = err.Error()
		if item.Attempts < item.MaxAttempts {
			item.Status = examupdates.StatusRetry
			retrying = true
			slog.Warn("notification delivery failed, will retry",
				"id", id, "attempt", item.Attempts, "max_attempts", item.MaxAttempts, "error", err)
		} else {
			item.Status = examupdates.StatusFailed
			slog.Error("notification delivery failed permanently",
				"id", id, "attempts", item.Attempts, "error", err)
		}
	}
	q.mu.Unlock()

	if retrying {
		q.requeue(id, attempt)
	}

	if err := q.persist(); err != nil {
		slog.Error("error persisting queue", "error", err)
	}
}

// Retried items go to the back of the queue after an exponential delay, so
// delivery order across retries is not preserved relative to fresh enqueues.
func (q *Queue) requeue(id string, attempts int) {
	if q.cfg.RetryBackoff <= 0 {
		q.push(id)
		return
	}

	delay := q.cfg.RetryBackoff << (attempts - 1)
	time.AfterFunc(delay, func() {
		q.push(id)
	})
}

// Status summarizes the queue by scanning the persisted document rather than
// draining the live queue. It always returns a well-formed structure.
func (q *Queue) Status() examupdates.QueueStatus {
	status := examupdates.QueueStatus{
		StatusCounts: map[examupdates.NotificationStatus]int{
			examupdates.StatusPending: 0,
			examupdates.StatusSending: 0,
			examupdates.StatusSent:    0,
			examupdates.StatusFailed:  0,
			examupdates.StatusRetry:   0,
		},
		LastUpdated: time.Now(),
	}

	q.mu.Lock()
	status.Processing = q.processing
	status.QueueSize = len(q.ready)
	q.mu.Unlock()

	byts, err := os.ReadFile(q.path)
	if err != nil {
		return status
	}
	var doc examupdates.QueueDocument
	if err := json.Unmarshal(byts, &doc); err != nil {
		return status
	}

	for _, item := range doc.Queue {
		status.StatusCounts[item.Status]++
	}
	status.LastUpdated = doc.LastUpdated

	return status
}

// Clear discards all in-memory and on-disk queue state. Unconditional and
// irreversible; confirmation lives at the boundary layer.
func (q *Queue) Clear() error {
	q.mu.Lock()
	q.order = nil
	q.ready = nil
	q.items = make(map[string]*examupdates.QueuedNotification)
	q.mu.Unlock()

	if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error clearing queue document: %w", err)
	}

	slog.Info("notification queue cleared")

	return nil
}

func (q *Queue) persist() error {
	q.persistMu.Lock()
	defer q.persistMu.Unlock()

	q.mu.Lock()
	doc := examupdates.QueueDocument{
		Queue:       make([]examupdates.QueuedNotification, 0, len(q.order)),
		LastUpdated: time.Now(),
	}
	for _, id := range q.order {
		if item, ok := q.items[id]; ok {
			doc.Queue = append(doc.Queue, *item)
		}
	}
	doc.TotalItems = len(doc.Queue)
	q.mu.Unlock()

	byts, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding queue document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(q.path), filepath.Base(q.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(byts); err != nil {
		tmp.Close()
		return fmt.Errorf("error writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}

	return os.Rename(tmp.Name(), q.path)
}
