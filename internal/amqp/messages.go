package amqp

import (
	"encoding/json"
	"time"
)

// Checkpoint reasons carried in sync messages.
const (
	ReasonUpload      = "upload"
	ReasonManualEntry = "manual_entry"
	ReasonPeriodic    = "periodic"
)

// CheckpointMessage asks the worker to mirror the current store snapshot to
// remote object storage. The snapshot itself is not carried; the worker reads
// the store directly, so a redelivered message is harmless.
type CheckpointMessage struct {
	BatchID   string    `json:"batch_id"`
	Reason    string    `json:"reason"`
	Records   int       `json:"records"`
	Timestamp time.Time `json:"timestamp"`
}

func NewCheckpointMessage(batchID, reason string, records int) *CheckpointMessage {
	return &CheckpointMessage{
		BatchID:   batchID,
		Reason:    reason,
		Records:   records,
		Timestamp: time.Now(),
	}
}

func (m *CheckpointMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func CheckpointMessageFromJSON(data []byte) (*CheckpointMessage, error) {
	var msg CheckpointMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
