package app

import (
	"context"
	"sync"
	"testing"

	"legal_marketplace_service/internal/chat/bus"
	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

type recordingSub struct {
	id string

	mu     sync.Mutex
	events []domain.RoomEvent
}

func (s *recordingSub) ID() string { return s.id }

func (s *recordingSub) Deliver(ev domain.RoomEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSub) received() []domain.RoomEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoomEvent, len(s.events))
	copy(out, s.events)
	return out
}

func TestMessageUseCase_Append(t *testing.T) {
	ctx := context.Background()
	senderID := uuid.New().String()
	receiverID := uuid.New().String()
	roomID, _ := domain.PrivateRoomID(senderID, receiverID)

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("InsertMessage", ctx, mock.Anything).Return(nil)

	roomBus := bus.NewRoomBus(ctx, nil)
	listener := &recordingSub{id: "listener"}
	roomBus.Join(roomID, listener)

	uc := NewMessageUseCase(mockMsgRepo, roomBus)
	msg, err := uc.Append(ctx, senderID, receiverID, "hello")

	assert.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, roomID, msg.ChatRoomID)
	assert.Equal(t, senderID, msg.SenderID)
	assert.Equal(t, receiverID, msg.ReceiverID)
	assert.Equal(t, "hello", msg.Content)
	assert.NotZero(t, msg.Timestamp)
	assert.Nil(t, msg.ReadAt)

	// the stored message was fanned out to the joined subscriber
	events := listener.received()
	assert.Len(t, events, 1)
	assert.Equal(t, msg.ID, events[0].Message.ID)

	mockMsgRepo.AssertExpectations(t)
}

func TestMessageUseCase_AppendValidation(t *testing.T) {
	ctx := context.Background()
	mockMsgRepo := new(MockMessageRepository)
	uc := NewMessageUseCase(mockMsgRepo, bus.NewRoomBus(ctx, nil))

	_, err := uc.Append(ctx, "sender", "receiver", "")
	assert.True(t, apperr.IsValidation(err))

	_, err = uc.Append(ctx, "", "receiver", "hi")
	assert.True(t, apperr.IsValidation(err))

	// nothing reached the store
	mockMsgRepo.AssertNotCalled(t, "InsertMessage", mock.Anything, mock.Anything)
}

func TestMessageUseCase_ListByRoom(t *testing.T) {
	ctx := context.Background()
	roomID, _ := domain.PrivateRoomID("member-a", "member-b")

	history := []domain.Message{
		{ID: "m1", ChatRoomID: roomID, Timestamp: 100},
		{ID: "m2", ChatRoomID: roomID, Timestamp: 200},
	}

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("FindByRoom", ctx, roomID).Return(history, nil)

	uc := NewMessageUseCase(mockMsgRepo, bus.NewRoomBus(ctx, nil))

	msgs, err := uc.ListByRoom(ctx, "member-a", roomID)
	assert.NoError(t, err)
	assert.Equal(t, history, msgs)

	// outsiders are rejected before the store is touched
	_, err = uc.ListByRoom(ctx, "outsider", roomID)
	assert.True(t, apperr.IsNotAuthorized(err))

	mockMsgRepo.AssertExpectations(t)
}

func TestMessageUseCase_MarkRead(t *testing.T) {
	ctx := context.Background()
	roomID, _ := domain.PrivateRoomID("member-a", "member-b")

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("MarkRead", ctx, roomID, "member-b", mock.Anything).
		Return(int64(3), nil).Once()
	mockMsgRepo.On("MarkRead", ctx, roomID, "member-b", mock.Anything).
		Return(int64(0), nil).Once()

	uc := NewMessageUseCase(mockMsgRepo, bus.NewRoomBus(ctx, nil))

	updated, err := uc.MarkRead(ctx, "member-b", roomID)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	// second pass is a no-op
	updated, err = uc.MarkRead(ctx, "member-b", roomID)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	_, err = uc.MarkRead(ctx, "outsider", roomID)
	assert.True(t, apperr.IsNotAuthorized(err))

	mockMsgRepo.AssertExpectations(t)
}

func TestMessageUseCase_ClearRoom(t *testing.T) {
	ctx := context.Background()
	roomID, _ := domain.PrivateRoomID("member-a", "member-b")

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("ClearRoom", ctx, roomID).Return(int64(5), nil)

	uc := NewMessageUseCase(mockMsgRepo, bus.NewRoomBus(ctx, nil))

	deleted, err := uc.ClearRoom(ctx, "member-a", roomID)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), deleted)

	_, err = uc.ClearRoom(ctx, "outsider", roomID)
	assert.True(t, apperr.IsNotAuthorized(err))

	mockMsgRepo.AssertExpectations(t)
}

func TestMessageUseCase_ListActiveRooms(t *testing.T) {
	ctx := context.Background()
	roomID, _ := domain.PrivateRoomID("member-a", "member-b")

	summaries := []domain.RoomSummary{
		{
			ChatRoomID:  roomID,
			LastMessage: &domain.Message{ID: "m9", Content: "latest"},
			UnreadCount: 2,
		},
	}

	mockMsgRepo := new(MockMessageRepository)
	mockMsgRepo.On("ListRoomSummaries", ctx, "member-a").Return(summaries, nil)

	uc := NewMessageUseCase(mockMsgRepo, bus.NewRoomBus(ctx, nil))

	rooms, err := uc.ListActiveRooms(ctx, "member-a")
	assert.NoError(t, err)
	assert.Len(t, rooms, 1)
	assert.Equal(t, "member-b", rooms[0].PeerID)
	assert.Equal(t, 2, rooms[0].UnreadCount)

	mockMsgRepo.AssertExpectations(t)
}

func TestMessageUseCase_Typing(t *testing.T) {
	ctx := context.Background()
	roomID, _ := domain.PrivateRoomID("member-a", "member-b")

	roomBus := bus.NewRoomBus(ctx, nil)
	listener := &recordingSub{id: "listener"}
	roomBus.Join(roomID, listener)

	uc := NewMessageUseCase(new(MockMessageRepository), roomBus)

	err := uc.Typing(ctx, "member-a", roomID, "Jane Advocate")
	assert.NoError(t, err)

	events := listener.received()
	assert.Len(t, events, 1)
	assert.Equal(t, domain.EventTyping, events[0].Type)
	assert.Equal(t, "Jane Advocate", events[0].Typing.DisplayName)

	err = uc.Typing(ctx, "outsider", roomID, "Nobody")
	assert.True(t, apperr.IsNotAuthorized(err))
}
