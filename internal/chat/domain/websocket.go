package domain

// Action websocket request action
type Action string

const (
	// EnterRoom websocket action enter_room
	EnterRoom Action = "enter_room"
	// LeaveRoom websocket action leave_room
	LeaveRoom Action = "leave_room"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// Typing websocket action typing
	Typing Action = "typing"

	// ReadRoom websocket action read_room
	ReadRoom Action = "read_room"
	// ClearRoom websocket action clear_room
	ClearRoom Action = "clear_room"
	// GetRooms websocket action get_rooms
	GetRooms Action = "get_rooms"

	// NotifyMessage websocket push action notify_message
	NotifyMessage Action = "notify_message"
	// NotifyTyping websocket push action notify_typing
	NotifyTyping Action = "notify_typing"
)

// WSRequest websocket Request
type WSRequest struct {
	Action  string `json:"action"`
	RoomID  string `json:"room_id,omitempty"`
	PeerID  string `json:"peer_id,omitempty"`
	Content string `json:"content,omitempty"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// EventType kind of a room event
type EventType string

const (
	// EventMessage a stored message fanned out to the room
	EventMessage EventType = "message"
	// EventTyping an ephemeral typing notification
	EventTyping EventType = "typing"
)

// TypingNotice ephemeral typing payload, never persisted.
type TypingNotice struct {
	ChatRoomID  string `json:"chat_room_id"`
	FromID      string `json:"from_id"`
	DisplayName string `json:"display_name"`
}

// RoomEvent is what the room bus delivers to subscribers. Origin carries
// the publishing process id so a backplane echo is not delivered twice.
type RoomEvent struct {
	Type    EventType     `json:"type"`
	RoomID  string        `json:"room_id"`
	Message *Message      `json:"message,omitempty"`
	Typing  *TypingNotice `json:"typing,omitempty"`
	Origin  string        `json:"origin,omitempty"`
}
