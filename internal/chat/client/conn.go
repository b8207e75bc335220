package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/logger"

	"github.com/gorilla/websocket"
)

// BusConn is the client's connection to the room bus. The connection is
// an explicitly owned object: the component that creates it closes it.
type BusConn interface {
	// Join subscribes the connection to the room's push channel. The
	// returned error covers the transport write only: a server-side
	// rejection (caller not a participant) comes back as an async ack
	// frame, and the session detects it through the history fetch that
	// follows every join.
	Join(roomID string) error
	// Leave unsubscribes from one room.
	Leave(roomID string) error
	// Typing sends a best-effort typing notification.
	Typing(roomID string) error
	// Events delivers room pushes in arrival order. The channel closes
	// when the connection closes.
	Events() <-chan domain.RoomEvent
	// Close tears the connection down; the server drops every room
	// membership of this connection.
	Close() error
}

// wsBusConn is the gorilla/websocket implementation of BusConn.
type wsBusConn struct {
	mu     sync.Mutex
	conn   *websocket.Conn
	events chan domain.RoomEvent

	closeOnce sync.Once
}

// Dial connects to the chat service websocket endpoint. wsURL is the
// full ws:// or wss:// endpoint; the bearer credential goes into the
// "auth" query parameter because browsers cannot set headers on
// websocket upgrades and the server accepts both.
func Dial(wsURL, token string) (BusConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?auth="+token, nil)
	if err != nil {
		return nil, apperr.Transport(err)
	}

	c := &wsBusConn{
		conn:   conn,
		events: make(chan domain.RoomEvent, 64),
	}
	go c.readPump()
	return c, nil
}

func (c *wsBusConn) readPump() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var resp domain.WSResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			logger.Log.Errorf("bus frame decode error:", err)
			continue
		}

		ev, ok := eventFromResponse(resp)
		if !ok {
			// request acks are not room events; a rejected request is
			// at least worth a trace
			if !resp.Success && resp.Error != "" {
				logger.Log.Warnf("bus request rejected:", resp.Action+": "+resp.Error)
			}
			continue
		}

		select {
		case c.events <- ev:
		default:
			// a stalled consumer loses pushes, never blocks the pump
			logger.Log.Warn("bus event dropped, consumer too slow")
		}
	}
}

// eventFromResponse maps a push frame back to a RoomEvent.
func eventFromResponse(resp domain.WSResponse) (domain.RoomEvent, bool) {
	switch resp.Action {
	case string(domain.NotifyMessage):
		raw, err := json.Marshal(resp.Payload["message"])
		if err != nil {
			return domain.RoomEvent{}, false
		}
		var msg domain.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			return domain.RoomEvent{}, false
		}
		return domain.RoomEvent{
			Type:    domain.EventMessage,
			RoomID:  msg.ChatRoomID,
			Message: &msg,
		}, true

	case string(domain.NotifyTyping):
		roomID, _ := resp.Payload["chat_room_id"].(string)
		name, _ := resp.Payload["display_name"].(string)
		return domain.RoomEvent{
			Type:   domain.EventTyping,
			RoomID: roomID,
			Typing: &domain.TypingNotice{ChatRoomID: roomID, DisplayName: name},
		}, true
	}
	return domain.RoomEvent{}, false
}

func (c *wsBusConn) send(req domain.WSRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return apperr.Transport(err)
	}
	return nil
}

func (c *wsBusConn) Join(roomID string) error {
	return c.send(domain.WSRequest{Action: string(domain.EnterRoom), RoomID: roomID})
}

func (c *wsBusConn) Leave(roomID string) error {
	return c.send(domain.WSRequest{Action: string(domain.LeaveRoom), RoomID: roomID})
}

func (c *wsBusConn) Typing(roomID string) error {
	return c.send(domain.WSRequest{Action: string(domain.Typing), RoomID: roomID})
}

func (c *wsBusConn) Events() <-chan domain.RoomEvent {
	return c.events
}

func (c *wsBusConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		writeErr := c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.mu.Unlock()
		if writeErr != nil {
			err = fmt.Errorf("close frame: %w", writeErr)
		}
		c.conn.Close()
	})
	return err
}
