package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SCRIBA/"
	// Export queue name - best-effort document merge after completion
	Export = st + "Export"
	// Inform queue name - owner notification after completion
	Inform = st + "Inform"
)

// JobMessage is sent when a transcription job record is created
type JobMessage struct {
	amessages.QueueMessage
	JobID   string `json:"jobID"`
	OwnerID string `json:"ownerID,omitempty"`
}

// NewJobMessage creates a message for a completed job
func NewJobMessage(ID, jobID, ownerID string) *JobMessage {
	return &JobMessage{QueueMessage: amessages.QueueMessage{ID: ID}, JobID: jobID, OwnerID: ownerID}
}
