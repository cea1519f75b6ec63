package events

import "time"

const SafetyRecordLifecycleTopic = "safety.record.lifecycle.v1"

const (
	SafetyRecordCreated = "safety_record_created"
	SafetyRecordUpdated = "safety_record_updated"
	SafetyRecordDeleted = "safety_record_deleted"
)

type SafetyRecordEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id,omitempty"`
	RecordID    string    `json:"record_id"`
	ActorID     string    `json:"actor_id,omitempty"`
	Date        time.Time `json:"date"`
	Area        string    `json:"area"`
	Department  string    `json:"department"`
	Name        string    `json:"name"`
	IsDefaulter bool      `json:"is_defaulter"`
	OccurredAt  time.Time `json:"occurred_at"`
}
