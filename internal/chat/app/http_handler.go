package app

import (
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/logger"
	"legal_marketplace_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ChatHTTPHandler serves the durable side of the chat: history, read
// state and room lists. Live pushes go over the websocket instead.
type ChatHTTPHandler struct {
	messageUC  *MessageUseCase
	analysisUC *CaseAnalysisUseCase
}

// NewChatHTTPHandler create ChatHTTPHandler
func NewChatHTTPHandler(messageUC *MessageUseCase, analysisUC *CaseAnalysisUseCase) *ChatHTTPHandler {
	return &ChatHTTPHandler{
		messageUC:  messageUC,
		analysisUC: analysisUC,
	}
}

// statusOf maps a use case error to its HTTP status.
func statusOf(err error) int {
	switch {
	case apperr.IsValidation(err):
		return fiber.StatusBadRequest
	case apperr.IsAuth(err):
		return fiber.StatusUnauthorized
	case apperr.IsNotAuthorized(err):
		return fiber.StatusForbidden
	case apperr.IsNotFound(err):
		return fiber.StatusNotFound
	}
	return fiber.StatusInternalServerError
}

func errJSON(c *fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

func callerID(c *fiber.Ctx) string {
	id, _ := c.Locals(middlewares.TokenMemberID).(string)
	return id
}

// AppendMessage stores a message and fans it out to the room.
func (h *ChatHTTPHandler) AppendMessage(c *fiber.Ctx) error {
	type request struct {
		ReceiverID string `json:"receiver_id"`
		Content    string `json:"content"`
	}

	var req request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request"})
	}

	msg, err := h.messageUC.Append(c.Context(), callerID(c), req.ReceiverID, req.Content)
	if err != nil {
		logger.Log.Error("AppendMessage", zap.String("err", err.Error()))
		return errJSON(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// ListMessages returns the room history in display order.
func (h *ChatHTTPHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.messageUC.ListByRoom(c.Context(), callerID(c), c.Params("room_id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs})
}

// MarkRead marks every unread message addressed to the caller as read.
func (h *ChatHTTPHandler) MarkRead(c *fiber.Ctx) error {
	updated, err := h.messageUC.MarkRead(c.Context(), callerID(c), c.Params("room_id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"updated": updated})
}

// ClearRoom deletes the whole room history. No undo.
func (h *ChatHTTPHandler) ClearRoom(c *fiber.Ctx) error {
	deleted, err := h.messageUC.ClearRoom(c.Context(), callerID(c), c.Params("room_id"))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// ListRooms returns the caller's room summaries, most recent first.
func (h *ChatHTTPHandler) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.messageUC.ListActiveRooms(c.Context(), callerID(c))
	if err != nil {
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

// Analyze runs the case analysis over the room transcript. The heavy
// call is serialized through the background task queue, so the request
// may take a while; the handler just waits for its slot.
func (h *ChatHTTPHandler) Analyze(c *fiber.Ctx) error {
	summary, err := h.analysisUC.Execute(c.Context(), callerID(c), c.Params("room_id"))
	if err != nil {
		logger.Log.Error("Analyze", zap.String("err", err.Error()))
		return errJSON(c, err)
	}
	return c.JSON(fiber.Map{"analysis": summary})
}
