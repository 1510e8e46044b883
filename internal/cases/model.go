package cases

import (
	"time"

	"github.com/google/uuid"
)

// Status of a clinical case in the staff workflow.
const (
	StatusOpen     = "open"
	StatusResolved = "resolved"
)

// Case is the downstream clinical-workflow record opened from a confirmed
// intake suggestion.
type Case struct {
	ID          uuid.UUID              `json:"id"`
	ThreadID    string                 `json:"thread_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Priority    string                 `json:"priority"`
	Status      string                 `json:"status"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}
