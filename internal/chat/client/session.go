package client

import (
	"context"
	"sync"
	"time"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// SessionState chat window connection state
type SessionState int

const (
	// Disconnected session not attached to the bus
	Disconnected SessionState = iota
	// Connecting join issued, history loading
	Connecting
	// Joined live, pushes are merged into the local view
	Joined
)

// typingVisible is how long a received typing notice stays visible.
const typingVisible = 3 * time.Second

// provisionalPrefix marks a locally synthesized pending message id.
const provisionalPrefix = "pending-"

// ChatSession is the state machine behind one open chat window. It keeps
// an ordered local view of the room, merges live pushes idempotently and
// handles the optimistic send round trip.
//
// The session shares the owning controller's bus connection; closing the
// session stops its merging but leaves the connection itself to its
// owner.
type ChatSession struct {
	mu sync.Mutex

	roomID string
	selfID string
	peerID string

	conn BusConn
	api  HistoryAPI

	state     SessionState
	messages  []domain.Message
	minimized bool

	typingName string
	typingAt   time.Time

	// ScrollToLatest, when set, fires after every merge that appended a
	// new message. UI hook only.
	ScrollToLatest func()
}

// NewChatSession builds the session for the room between selfID and
// peerID. It is created Disconnected; Open attaches it.
func NewChatSession(selfID, peerID string, conn BusConn, api HistoryAPI) (*ChatSession, error) {
	roomID, err := domain.PrivateRoomID(selfID, peerID)
	if err != nil {
		return nil, err
	}
	return &ChatSession{
		roomID: roomID,
		selfID: selfID,
		peerID: peerID,
		conn:   conn,
		api:    api,
		state:  Disconnected,
	}, nil
}

// RoomID returns the session's chat room id.
func (s *ChatSession) RoomID() string { return s.roomID }

// PeerID returns the counterparty id.
func (s *ChatSession) PeerID() string { return s.peerID }

// State returns the current connection state.
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open joins the room on the bus and seeds the local view from the
// store. History wins over anything merged while loading.
func (s *ChatSession) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Disconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = Connecting
	s.mu.Unlock()

	if err := s.conn.Join(s.roomID); err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return err
	}

	history, err := s.api.ListByRoom(ctx, s.roomID)
	if err != nil {
		s.mu.Lock()
		s.state = Disconnected
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	// pushes that raced the history load are merged on top of it
	merged := history
	for i := range s.messages {
		merged = mergeMessage(merged, s.messages[i])
	}
	s.messages = merged
	s.state = Joined
	s.mu.Unlock()
	return nil
}

// HandlePush merges one live push into the local view. A message whose
// id is already present is discarded: that is the sender's optimistic
// insert racing the bus echo, or a backplane duplicate.
func (s *ChatSession) HandlePush(msg *domain.Message) {
	s.mu.Lock()

	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}

	before := len(s.messages)
	s.messages = mergeMessage(s.messages, *msg)
	grew := len(s.messages) > before
	scroll := s.ScrollToLatest
	s.mu.Unlock()

	if grew && scroll != nil {
		scroll()
	}
}

// HandleTyping records a received typing notice.
func (s *ChatSession) HandleTyping(notice *domain.TypingNotice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disconnected {
		return
	}
	s.typingName = notice.DisplayName
	s.typingAt = time.Now()
}

// TypingIndicator returns the peer's display name while a typing notice
// is fresh, otherwise "".
func (s *ChatSession) TypingIndicator() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if time.Since(s.typingAt) > typingVisible {
		return ""
	}
	return s.typingName
}

// Send appends the message optimistically, persists it, then reconciles
// the provisional entry with the store-confirmed one. On a store failure
// the optimistic entry stays in place for the user to see and retry; no
// automatic retry happens.
func (s *ChatSession) Send(ctx context.Context, content string) (*domain.Message, error) {
	if content == "" {
		return nil, apperr.Validation("message content is empty")
	}

	provisional := domain.Message{
		ID:         provisionalPrefix + uuid.New().String(),
		ChatRoomID: s.roomID,
		SenderID:   s.selfID,
		ReceiverID: s.peerID,
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
	}

	s.mu.Lock()
	s.messages = mergeMessage(s.messages, provisional)
	s.mu.Unlock()

	stored, err := s.api.Append(ctx, s.peerID, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// swap the provisional entry for the confirmed record; the bus echo
	// of the same id then dedups against it
	s.messages = lo.Reject(s.messages, func(m domain.Message, _ int) bool {
		return m.ID == provisional.ID
	})
	s.messages = mergeMessage(s.messages, *stored)
	s.mu.Unlock()

	return stored, nil
}

// NotifyTyping tells the room the user is typing. Best-effort.
func (s *ChatSession) NotifyTyping() {
	_ = s.conn.Typing(s.roomID)
}

// MarkRead marks the room read for the user.
func (s *ChatSession) MarkRead(ctx context.Context) (int64, error) {
	return s.api.MarkRead(ctx, s.roomID)
}

// Clear deletes the whole room history, server side and local. No undo.
func (s *ChatSession) Clear(ctx context.Context) error {
	if _, err := s.api.ClearRoom(ctx, s.roomID); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
	return nil
}

// Close detaches the session: no further pushes are accepted. The shared
// bus connection stays with its owner.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Disconnected
}

// SetMinimized toggles the window's minimized flag. UI state only, the
// room subscription is unaffected.
func (s *ChatSession) SetMinimized(min bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.minimized = min
}

// Minimized returns the minimized flag.
func (s *ChatSession) Minimized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minimized
}

// Messages returns a copy of the ordered local view.
func (s *ChatSession) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// mergeMessage inserts msg into msgs preserving display order. If the id
// is already present the existing entry wins and msgs is unchanged.
func mergeMessage(msgs []domain.Message, msg domain.Message) []domain.Message {
	if lo.ContainsBy(msgs, func(m domain.Message) bool { return m.ID == msg.ID }) {
		return msgs
	}
	msgs = append(msgs, msg)
	domain.SortMessages(msgs)
	return msgs
}
