package app

import (
	"context"

	"legal_marketplace_service/internal/chat/domain"

	"github.com/stretchr/testify/mock"
	"github.com/valyala/fasthttp"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// InsertMessage mock insert message
func (m *MockMessageRepository) InsertMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindByRoom mock find room history
func (m *MockMessageRepository) FindByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead mock mark messages read
func (m *MockMessageRepository) MarkRead(ctx context.Context, roomID, viewerID string, readAt int64) (int64, error) {
	args := m.Called(ctx, roomID, viewerID, readAt)
	return args.Get(0).(int64), args.Error(1)
}

// ClearRoom mock clear room
func (m *MockMessageRepository) ClearRoom(ctx context.Context, roomID string) (int64, error) {
	args := m.Called(ctx, roomID)
	return args.Get(0).(int64), args.Error(1)
}

// ListRoomSummaries mock list room summaries
func (m *MockMessageRepository) ListRoomSummaries(ctx context.Context, memberID string) ([]domain.RoomSummary, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.RoomSummary), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockDisplayNamer Mock DisplayNamer
type MockDisplayNamer struct {
	mock.Mock
}

// DisplayName mock display name lookup
func (m *MockDisplayNamer) DisplayName(ctx context.Context, memberID string) (string, error) {
	args := m.Called(ctx, memberID)
	return args.String(0), args.Error(1)
}

// MockAnalysisDoer Mock the external analysis HTTP client
type MockAnalysisDoer struct {
	mock.Mock

	// Response fields applied to every call
	StatusCode int
	Body       []byte
	Err        error
}

// Do mock the fasthttp round trip
func (m *MockAnalysisDoer) Do(req *fasthttp.Request, resp *fasthttp.Response) error {
	m.Called(req, resp)
	if m.Err != nil {
		return m.Err
	}
	resp.SetStatusCode(m.StatusCode)
	resp.SetBody(m.Body)
	return nil
}
