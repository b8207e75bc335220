package app

import (
	"context"
	"encoding/json"
	"fmt"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/internal/chat/repository"
	"legal_marketplace_service/internal/taskqueue"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/config"

	"github.com/valyala/fasthttp"
)

// analysisDoer is the slice of fasthttp.Client the use case needs.
type analysisDoer interface {
	Do(req *fasthttp.Request, resp *fasthttp.Response) error
}

// CaseAnalysisUseCase submits chat transcripts to the external case
// analysis API. The provider rate-limits aggressively, so every call in
// the process goes through one SerializedTaskQueue: at most one request
// in flight, strict submission order, one hung call bounded by the queue
// deadline.
type CaseAnalysisUseCase struct {
	msgRepo repository.MessageRepository
	queue   *taskqueue.SerializedTaskQueue
	client  analysisDoer

	endpoint string
	apiKey   string
}

// NewCaseAnalysisUseCase init case analysis use case
func NewCaseAnalysisUseCase(
	msgRepo repository.MessageRepository,
	queue *taskqueue.SerializedTaskQueue,
	client analysisDoer,
	cfg config.AnalysisConfig,
) *CaseAnalysisUseCase {
	return &CaseAnalysisUseCase{
		msgRepo:  msgRepo,
		queue:    queue,
		client:   client,
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
	}
}

// analysisRequest wire format of the external API
type analysisRequest struct {
	ChatRoomID string           `json:"chat_room_id"`
	Transcript []transcriptLine `json:"transcript"`
}

type transcriptLine struct {
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

type analysisResponse struct {
	Summary string `json:"summary"`
}

// Execute runs a case analysis over the room's transcript. The call is
// queued behind every earlier analysis submission; ctx cancellation stops
// the wait but not the queued work.
func (uc *CaseAnalysisUseCase) Execute(ctx context.Context, callerID, roomID string) (string, error) {
	if !domain.IsParticipant(roomID, callerID) {
		return "", apperr.NotAuthorized("caller is not a participant of this room")
	}

	msgs, err := uc.msgRepo.FindByRoom(ctx, roomID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", apperr.Validation("room has no messages to analyze")
	}

	payload := analysisRequest{ChatRoomID: roomID}
	for _, m := range msgs {
		payload.Transcript = append(payload.Transcript, transcriptLine{
			SenderID:  m.SenderID,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	resCh := uc.queue.Submit(func(taskCtx context.Context) (interface{}, error) {
		return uc.callAnalysisAPI(body)
	})

	select {
	case res := <-resCh:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Value.(string), nil
	case <-ctx.Done():
		return "", apperr.Transport(ctx.Err())
	}
}

func (uc *CaseAnalysisUseCase) callAnalysisAPI(body []byte) (string, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uc.endpoint)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+uc.apiKey)
	req.SetBody(body)

	if err := uc.client.Do(req, resp); err != nil {
		return "", apperr.Transport(err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return "", fmt.Errorf("analysis API returned status %d", resp.StatusCode())
	}

	var out analysisResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("analysis API response decode: %w", err)
	}
	return out.Summary, nil
}
