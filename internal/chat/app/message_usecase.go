package app

import (
	"context"
	"time"

	"legal_marketplace_service/internal/chat/bus"
	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/internal/chat/repository"
	"legal_marketplace_service/pkg/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// MessageUseCase owns every mutation of the message store and the fan-out
// that follows an append. All operations check that the caller is a
// participant of the target room before touching anything.
type MessageUseCase struct {
	msgRepo repository.MessageRepository
	roomBus *bus.RoomBus
}

// NewMessageUseCase init message use case
func NewMessageUseCase(msgRepo repository.MessageRepository, roomBus *bus.RoomBus) *MessageUseCase {
	return &MessageUseCase{
		msgRepo: msgRepo,
		roomBus: roomBus,
	}
}

// appendInput validated payload of Append
type appendInput struct {
	SenderID   string `validate:"required"`
	ReceiverID string `validate:"required"`
	Content    string `validate:"required"`
}

// Append persists a new message with a server-assigned id and timestamp,
// then publishes it to the room. The store write is the durable part; a
// failed publish is not an append failure.
func (uc *MessageUseCase) Append(ctx context.Context, senderID, receiverID, content string) (*domain.Message, error) {
	in := appendInput{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := validate.Struct(in); err != nil {
		return nil, apperr.Validation(err.Error())
	}

	roomID, err := domain.PrivateRoomID(senderID, receiverID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		ChatRoomID: roomID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
	}

	if err := uc.msgRepo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	uc.roomBus.Publish(ctx, roomID, msg)

	return msg, nil
}

// ListByRoom returns the room history in display order.
func (uc *MessageUseCase) ListByRoom(ctx context.Context, callerID, roomID string) ([]domain.Message, error) {
	if !domain.IsParticipant(roomID, callerID) {
		return nil, apperr.NotAuthorized("caller is not a participant of this room")
	}
	return uc.msgRepo.FindByRoom(ctx, roomID)
}

// MarkRead sets read_at on every unread message addressed to the caller
// in the room. Re-marking already read messages updates nothing.
func (uc *MessageUseCase) MarkRead(ctx context.Context, callerID, roomID string) (int64, error) {
	if !domain.IsParticipant(roomID, callerID) {
		return 0, apperr.NotAuthorized("caller is not a participant of this room")
	}
	return uc.msgRepo.MarkRead(ctx, roomID, callerID, time.Now().UnixMilli())
}

// ClearRoom deletes all messages of the room. Irreversible.
func (uc *MessageUseCase) ClearRoom(ctx context.Context, callerID, roomID string) (int64, error) {
	if !domain.IsParticipant(roomID, callerID) {
		return 0, apperr.NotAuthorized("caller is not a participant of this room")
	}
	return uc.msgRepo.ClearRoom(ctx, roomID)
}

// ListActiveRooms returns the caller's room summaries, newest last
// message first, with the peer id resolved for each room.
func (uc *MessageUseCase) ListActiveRooms(ctx context.Context, callerID string) ([]domain.RoomSummary, error) {
	if callerID == "" {
		return nil, apperr.Validation("caller id is required")
	}

	summaries, err := uc.msgRepo.ListRoomSummaries(ctx, callerID)
	if err != nil {
		return nil, err
	}

	for i := range summaries {
		peer, err := domain.PeerOf(summaries[i].ChatRoomID, callerID)
		if err != nil {
			continue
		}
		summaries[i].PeerID = peer
	}
	return summaries, nil
}

// Typing relays the ephemeral typing notification. Best-effort: a room
// with nobody joined simply drops it.
func (uc *MessageUseCase) Typing(ctx context.Context, callerID, roomID, displayName string) error {
	if !domain.IsParticipant(roomID, callerID) {
		return apperr.NotAuthorized("caller is not a participant of this room")
	}
	uc.roomBus.PublishTyping(ctx, roomID, &domain.TypingNotice{
		ChatRoomID:  roomID,
		FromID:      callerID,
		DisplayName: displayName,
	})
	return nil
}
