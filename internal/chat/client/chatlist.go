package client

import (
	"context"
	"sort"
	"sync"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/logger"

	"github.com/samber/lo"
)

// MaxActiveSessions is how many chat windows may be open at once. Opening
// one more evicts the least recently activated window.
const MaxActiveSessions = 3

// RoomStatus is the chat list's per-room line: peer, last message preview
// and unread count, kept live even while no window is open for the room.
type RoomStatus struct {
	ChatRoomID  string
	PeerID      string
	LastMessage *domain.Message
	UnreadCount int
}

// ChatListController owns the single bus connection and every open
// ChatSession. It routes pushes to the room's open window, or into the
// room's unread counter when no window is open.
type ChatListController struct {
	mu sync.Mutex

	selfID string
	conn   BusConn
	api    HistoryAPI

	sessions map[string]*ChatSession
	// order tracks activation recency, oldest first
	order []string

	rooms map[string]*RoomStatus

	done chan struct{}
}

// NewChatListController wires the controller with an already dialed bus
// connection. The controller owns conn from here on and closes it on
// Shutdown.
func NewChatListController(selfID string, conn BusConn, api HistoryAPI) *ChatListController {
	return &ChatListController{
		selfID:   selfID,
		conn:     conn,
		api:      api,
		sessions: make(map[string]*ChatSession),
		rooms:    make(map[string]*RoomStatus),
		done:     make(chan struct{}),
	}
}

// Start loads the member's active rooms, joins every one of them so
// closed-room pushes still update the list, and starts the event pump.
func (c *ChatListController) Start(ctx context.Context) error {
	summaries, err := c.api.ListActiveRooms(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for i := range summaries {
		s := summaries[i]
		c.rooms[s.ChatRoomID] = &RoomStatus{
			ChatRoomID:  s.ChatRoomID,
			PeerID:      s.PeerID,
			LastMessage: s.LastMessage,
			UnreadCount: s.UnreadCount,
		}
	}
	c.mu.Unlock()

	for roomID := range c.rooms {
		if err := c.conn.Join(roomID); err != nil {
			return err
		}
	}

	go c.pump()
	return nil
}

// pump drains the bus connection until it closes or the controller shuts
// down.
func (c *ChatListController) pump() {
	for {
		select {
		case <-c.done:
			return
		case ev, ok := <-c.conn.Events():
			if !ok {
				return
			}
			c.dispatch(ev)
		}
	}
}

func (c *ChatListController) dispatch(ev domain.RoomEvent) {
	switch ev.Type {
	case domain.EventMessage:
		c.onMessage(ev)
	case domain.EventTyping:
		c.onTyping(ev)
	default:
		logger.Log.Warnf("unknown room event type:", ev.Type)
	}
}

func (c *ChatListController) onMessage(ev domain.RoomEvent) {
	if ev.Message == nil {
		return
	}
	msg := ev.Message

	c.mu.Lock()
	status, ok := c.rooms[ev.RoomID]
	if !ok {
		// first message of a brand-new room
		peerID := msg.SenderID
		if peerID == c.selfID {
			peerID = msg.ReceiverID
		}
		status = &RoomStatus{ChatRoomID: ev.RoomID, PeerID: peerID}
		c.rooms[ev.RoomID] = status
	}
	status.LastMessage = msg

	sess := c.sessions[ev.RoomID]
	open := sess != nil && sess.State() != Disconnected
	if !open && msg.SenderID != c.selfID {
		status.UnreadCount++
	}
	c.mu.Unlock()

	if open {
		sess.HandlePush(msg)
	}
}

func (c *ChatListController) onTyping(ev domain.RoomEvent) {
	if ev.Typing == nil {
		return
	}

	c.mu.Lock()
	sess := c.sessions[ev.RoomID]
	c.mu.Unlock()

	if sess != nil {
		sess.HandleTyping(ev.Typing)
	}
}

// OpenChat opens (or re-activates) the window for the room with peerID
// and returns its session. At MaxActiveSessions the least recently
// activated window closes first.
func (c *ChatListController) OpenChat(ctx context.Context, peerID string) (*ChatSession, error) {
	roomID, err := domain.PrivateRoomID(c.selfID, peerID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if sess, ok := c.sessions[roomID]; ok {
		c.touch(roomID)
		sess.SetMinimized(false)
		c.mu.Unlock()
		return sess, nil
	}

	if len(c.sessions) >= MaxActiveSessions {
		evictID := c.order[0]
		c.order = c.order[1:]
		evicted := c.sessions[evictID]
		delete(c.sessions, evictID)
		evicted.Close()
	}

	sess, err := NewChatSession(c.selfID, peerID, c.conn, c.api)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.sessions[roomID] = sess
	c.order = append(c.order, roomID)
	c.mu.Unlock()

	if err := sess.Open(ctx); err != nil {
		c.mu.Lock()
		delete(c.sessions, roomID)
		c.order = lo.Without(c.order, roomID)
		c.mu.Unlock()
		return nil, err
	}

	// opening the window consumes the unread pile
	if _, err := sess.MarkRead(ctx); err != nil {
		logger.Log.Warnf("mark read failed:", err)
	}
	c.mu.Lock()
	if status, ok := c.rooms[roomID]; ok {
		status.UnreadCount = 0
	}
	c.mu.Unlock()

	return sess, nil
}

// CloseChat closes the room's window. The room stays joined on the bus
// so the list keeps counting unread messages.
func (c *ChatListController) CloseChat(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[roomID]
	if !ok {
		return
	}
	delete(c.sessions, roomID)
	c.order = lo.Without(c.order, roomID)
	sess.Close()
}

// ToggleMinimize flips the minimized flag of an open window. Minimizing
// also re-activates it for eviction purposes.
func (c *ChatListController) ToggleMinimize(roomID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[roomID]
	if !ok {
		return apperr.NotFound("no open chat for room " + roomID)
	}
	sess.SetMinimized(!sess.Minimized())
	c.touch(roomID)
	return nil
}

// Session returns the open session for roomID, or nil.
func (c *ChatListController) Session(roomID string) *ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[roomID]
}

// Rooms returns a snapshot of the chat list, most recent message first.
func (c *ChatListController) Rooms() []RoomStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := lo.MapToSlice(c.rooms, func(_ string, s *RoomStatus) RoomStatus {
		return *s
	})
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return b.Before(a)
	})
	return out
}

// OpenSessionIDs returns the open rooms oldest activation first. Test and
// UI introspection.
func (c *ChatListController) OpenSessionIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Shutdown closes every window and the bus connection.
func (c *ChatListController) Shutdown() error {
	c.mu.Lock()
	for _, sess := range c.sessions {
		sess.Close()
	}
	c.sessions = make(map[string]*ChatSession)
	c.order = nil
	c.mu.Unlock()

	close(c.done)
	return c.conn.Close()
}

// touch moves roomID to the most-recently-activated end of order.
func (c *ChatListController) touch(roomID string) {
	c.order = append(lo.Without(c.order, roomID), roomID)
}
