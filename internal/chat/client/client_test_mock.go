package client

import (
	"context"
	"fmt"
	"sync"

	"legal_marketplace_service/internal/chat/domain"
)

// fakeBusConn feeds scripted RoomEvents into the code under test and
// records every Join/Leave.
type fakeBusConn struct {
	mu     sync.Mutex
	joined []string
	left   []string
	events chan domain.RoomEvent
	closed bool

	joinErr error
}

func newFakeBusConn() *fakeBusConn {
	return &fakeBusConn{events: make(chan domain.RoomEvent, 16)}
}

func (f *fakeBusConn) Join(roomID string) error {
	if f.joinErr != nil {
		return f.joinErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, roomID)
	return nil
}

func (f *fakeBusConn) Leave(roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, roomID)
	return nil
}

func (f *fakeBusConn) Typing(roomID string) error { return nil }

func (f *fakeBusConn) Events() <-chan domain.RoomEvent { return f.events }

func (f *fakeBusConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeBusConn) push(ev domain.RoomEvent) { f.events <- ev }

func (f *fakeBusConn) joinedRooms() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.joined))
	copy(out, f.joined)
	return out
}

// fakeHistoryAPI is an in-memory message store standing in for the REST
// surface.
type fakeHistoryAPI struct {
	mu       sync.Mutex
	selfID   string
	seq      int
	byRoom   map[string][]domain.Message
	rooms    []domain.RoomSummary
	appendFn func() error // injected failure, checked before storing
}

func newFakeHistoryAPI(selfID string) *fakeHistoryAPI {
	return &fakeHistoryAPI{
		selfID: selfID,
		byRoom: make(map[string][]domain.Message),
	}
}

func (f *fakeHistoryAPI) Append(ctx context.Context, receiverID, content string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.appendFn != nil {
		if err := f.appendFn(); err != nil {
			return nil, err
		}
	}

	roomID, err := domain.PrivateRoomID(f.selfID, receiverID)
	if err != nil {
		return nil, err
	}

	f.seq++
	msg := domain.Message{
		ID:         fmt.Sprintf("srv-%d", f.seq),
		ChatRoomID: roomID,
		SenderID:   f.selfID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  int64(1000 + f.seq),
	}
	f.byRoom[roomID] = append(f.byRoom[roomID], msg)
	return &msg, nil
}

func (f *fakeHistoryAPI) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]domain.Message, len(f.byRoom[roomID]))
	copy(msgs, f.byRoom[roomID])
	domain.SortMessages(msgs)
	return msgs, nil
}

func (f *fakeHistoryAPI) MarkRead(ctx context.Context, roomID string) (int64, error) {
	return 0, nil
}

func (f *fakeHistoryAPI) ClearRoom(ctx context.Context, roomID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := int64(len(f.byRoom[roomID]))
	delete(f.byRoom, roomID)
	return n, nil
}

func (f *fakeHistoryAPI) ListActiveRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rooms, nil
}

func (f *fakeHistoryAPI) seed(msg domain.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byRoom[msg.ChatRoomID] = append(f.byRoom[msg.ChatRoomID], msg)
}
