package history

import "time"

// Run statuses
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Run records one handler invocation for one webhook delivery
type Run struct {
	ID              int64     `json:"id"`
	DispatchID      string    `json:"dispatch_id"`
	DeliveryID      string    `json:"delivery_id"`
	Event           string    `json:"event"`
	Rule            string    `json:"rule"`
	Status          string    `json:"status"` // success, failed
	StartedAt       time.Time `json:"started_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	ErrorMessage    *string   `json:"error_message,omitempty"` // nullable
}
