package client

import (
	"context"
	"encoding/json"
	"fmt"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"

	"github.com/valyala/fasthttp"
)

// HistoryAPI is the client's view of the durable message store. The bus
// carries live pushes only; anything durable goes through here.
type HistoryAPI interface {
	Append(ctx context.Context, receiverID, content string) (*domain.Message, error)
	ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error)
	MarkRead(ctx context.Context, roomID string) (int64, error)
	ClearRoom(ctx context.Context, roomID string) (int64, error)
	ListActiveRooms(ctx context.Context) ([]domain.RoomSummary, error)
}

// RestHistoryAPI talks to the chat service REST surface with fasthttp.
type RestHistoryAPI struct {
	client  *fasthttp.Client
	baseURL string
	token   string
}

// NewRestHistoryAPI create RestHistoryAPI
func NewRestHistoryAPI(baseURL, token string) *RestHistoryAPI {
	return &RestHistoryAPI{
		client:  &fasthttp.Client{},
		baseURL: baseURL,
		token:   token,
	}
}

func (a *RestHistoryAPI) do(method, path string, body interface{}, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(a.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Authorization", "Bearer "+a.token)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	if err := a.client.Do(req, resp); err != nil {
		return apperr.Transport(err)
	}

	switch resp.StatusCode() {
	case fasthttp.StatusOK, fasthttp.StatusCreated:
	case fasthttp.StatusUnauthorized:
		return apperr.Auth("credential rejected")
	case fasthttp.StatusForbidden:
		return apperr.NotAuthorized("not a participant of this room")
	case fasthttp.StatusBadRequest:
		return apperr.Validation(string(resp.Body()))
	default:
		return fmt.Errorf("chat API returned status %d", resp.StatusCode())
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("chat API response decode: %w", err)
		}
	}
	return nil
}

// Append stores a new message addressed to receiverID and returns the
// server-confirmed record.
func (a *RestHistoryAPI) Append(ctx context.Context, receiverID, content string) (*domain.Message, error) {
	var out struct {
		Message domain.Message `json:"message"`
	}
	err := a.do(fasthttp.MethodPost, "/messages", map[string]string{
		"receiver_id": receiverID,
		"content":     content,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// ListByRoom fetches the room history in display order.
func (a *RestHistoryAPI) ListByRoom(ctx context.Context, roomID string) ([]domain.Message, error) {
	var out struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := a.do(fasthttp.MethodGet, "/rooms/"+roomID+"/messages", nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// MarkRead marks every unread message addressed to the caller as read.
func (a *RestHistoryAPI) MarkRead(ctx context.Context, roomID string) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	if err := a.do(fasthttp.MethodPost, "/rooms/"+roomID+"/read", nil, &out); err != nil {
		return 0, err
	}
	return out.Updated, nil
}

// ClearRoom deletes all messages of the room.
func (a *RestHistoryAPI) ClearRoom(ctx context.Context, roomID string) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := a.do(fasthttp.MethodDelete, "/rooms/"+roomID, nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// ListActiveRooms fetches the caller's room summaries.
func (a *RestHistoryAPI) ListActiveRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	var out struct {
		Rooms []domain.RoomSummary `json:"rooms"`
	}
	if err := a.do(fasthttp.MethodGet, "/rooms", nil, &out); err != nil {
		return nil, err
	}
	return out.Rooms, nil
}
