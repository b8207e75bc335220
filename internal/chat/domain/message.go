package domain

import "sort"

// Message represents one persisted chat message between two participants.
type Message struct {
	ID         string `bson:"_id" json:"id"`
	ChatRoomID string `bson:"chat_room_id" json:"chat_room_id"`
	SenderID   string `bson:"sender_id" json:"sender_id"`
	ReceiverID string `bson:"receiver_id" json:"receiver_id"`
	Content    string `bson:"content" json:"content"`
	Timestamp  int64  `bson:"timestamp" json:"timestamp"` // unix milliseconds
	ReadAt     *int64 `bson:"read_at,omitempty" json:"read_at,omitempty"`
}

// IsRead report whether the message has been read by its receiver.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}

// Before defines the display order inside a room: ascending timestamp,
// ties broken by id so every viewer resolves the same total order.
func (m *Message) Before(other *Message) bool {
	if m.Timestamp != other.Timestamp {
		return m.Timestamp < other.Timestamp
	}
	return m.ID < other.ID
}

// SortMessages sorts msgs in display order.
func SortMessages(msgs []Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].Before(&msgs[j])
	})
}

// RoomSummary is the per-room entry of a member's active room list.
type RoomSummary struct {
	ChatRoomID  string   `bson:"_id" json:"chat_room_id"`
	PeerID      string   `bson:"-" json:"peer_id"`
	LastMessage *Message `bson:"last_message" json:"last_message"`
	UnreadCount int      `bson:"unread_count" json:"unread_count"`
}
