package queue

import "encoding/json"

// MessageVersion is the current OrphanMessage layout.
const MessageVersion = 1

// OrphanMessage asks the sweeper to delete an object no record points at.
type OrphanMessage struct {
	Key        string `json:"key"`
	Reason     string `json:"reason"`
	RequestID  string `json:"requestId,omitempty"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg OrphanMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into an OrphanMessage.
func DecodeMessage(payload []byte) (OrphanMessage, error) {
	var msg OrphanMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return OrphanMessage{}, err
	}
	return msg, nil
}
