package amqp

import (
	"encoding/json"
	"time"
)

// ItemSyncMessage asks a worker to sync one linked item. It carries only
// identifiers; the worker reads item state from the database so a stale
// message can never overwrite newer data.
type ItemSyncMessage struct {
	ItemID    int64     `json:"item_id"`
	UserID    int64     `json:"user_id"`
	Reason    string    `json:"reason"` // initial, manual, scheduled
	Timestamp time.Time `json:"timestamp"`
}

func NewItemSyncMessage(itemID, userID int64, reason string) *ItemSyncMessage {
	return &ItemSyncMessage{
		ItemID:    itemID,
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *ItemSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ItemSyncMessageFromJSON(data []byte) (*ItemSyncMessage, error) {
	var msg ItemSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
