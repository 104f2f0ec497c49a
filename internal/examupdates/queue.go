package examupdates

import "time"

// NotificationStatus tracks a queued notification through its lifecycle.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusSending NotificationStatus = "sending"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
	StatusRetry   NotificationStatus = "retry"
)

// Terminal reports whether the status will never change again.
func (s NotificationStatus) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

// DefaultMaxAttempts bounds webhook delivery retries per item.
const DefaultMaxAttempts = 3

// QueuedNotification is a delivery work item wrapping one delta record.
// ExamType carries the category the record was filed under, since the
// formatted payload itself does not name one.
type QueuedNotification struct {
	ID           string             `json:"id"`
	ExamType     Category           `json:"exam_type,omitempty"`
	Payload      FormattedRecord    `json:"payload"`
	Status       NotificationStatus `json:"status"`
	Attempts     int                `json:"attempts"`
	MaxAttempts  int                `json:"max_attempts"`
	CreatedAt    time.Time          `json:"created_at"`
	LastAttempt  *time.Time         `json:"last_attempt,omitempty"`
	ErrorMessage string             `json:"error_message,omitempty"`
}

// QueueDocument is the persisted form of the delivery queue. It must allow
// full reconstruction of all non-terminal items after a restart.
type QueueDocument struct {
	Queue       []QueuedNotification `json:"queue"`
	LastUpdated time.Time            `json:"last_updated"`
	TotalItems  int                  `json:"total_items"`
}

// QueueStatus summarizes the persisted queue document.
type QueueStatus struct {
	QueueSize    int                        `json:"queue_size"`
	StatusCounts map[NotificationStatus]int `json:"status_counts"`
	Processing   bool                       `json:"processing"`
	LastUpdated  time.Time                  `json:"last_updated"`
}
