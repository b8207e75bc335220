package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"legal_marketplace_service/internal/chat/bus"
	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/logger"
	"legal_marketplace_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DisplayNamer resolves a member id to the name shown in typing
// indicators. Backed by the member service.
type DisplayNamer interface {
	DisplayName(ctx context.Context, memberID string) (string, error)
}

// ChatWebsocketHandler is the websocket entry point of the chat service.
type ChatWebsocketHandler struct {
	messageUC *MessageUseCase
	roomBus   *bus.RoomBus
	members   DisplayNamer
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	messageUC *MessageUseCase,
	roomBus *bus.RoomBus,
	members DisplayNamer,
) *ChatWebsocketHandler {
	return &ChatWebsocketHandler{
		messageUC: messageUC,
		roomBus:   roomBus,
		members:   members,
	}
}

// wsSubscriber adapts one websocket connection to the room bus. Writes
// are serialized behind a mutex: the bus, the read loop and the ping
// ticker all write to the same socket.
type wsSubscriber struct {
	connID   string
	memberID string

	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSubscriber) ID() string { return s.connID }

// Deliver pushes a room event to the client. Failures are logged and
// dropped: durability comes from the message store.
func (s *wsSubscriber) Deliver(ev domain.RoomEvent) {
	resp := domain.WSResponse{Success: true, Payload: map[string]interface{}{}}

	switch ev.Type {
	case domain.EventMessage:
		resp.Action = string(domain.NotifyMessage)
		resp.Payload["message"] = ev.Message
	case domain.EventTyping:
		// the typist's own sessions do not need the indicator
		if ev.Typing.FromID == s.memberID {
			return
		}
		resp.Action = string(domain.NotifyTyping)
		resp.Payload["chat_room_id"] = ev.Typing.ChatRoomID
		resp.Payload["display_name"] = ev.Typing.DisplayName
	default:
		return
	}

	s.write(resp)
}

func (s *wsSubscriber) write(resp domain.WSResponse) {
	b, _ := json.Marshal(resp)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

// HandleConnection runs the read loop of one authenticated connection
// until the client disconnects. On return the connection has left every
// room it joined.
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	tokenMember := conn.Locals(middlewares.TokenMemberID)
	memberID, ok := tokenMember.(string)
	if !ok || memberID == "" {
		logger.Log.Warn("websocket connection without member identity")
		conn.Close()
		return
	}

	sub := &wsSubscriber{
		connID:   uuid.New().String(),
		memberID: memberID,
		conn:     conn,
	}
	logger.Log.Info("websocket connected",
		zap.String("memberID", memberID), zap.String("connID", sub.connID))

	ticker := time.NewTicker(10 * time.Minute)
	ctxClose, cancel := context.WithCancel(context.Background())

	defer func() {
		ticker.Stop()
		h.roomBus.Disconnect(sub.connID)
		logger.Log.Info("websocket close", zap.String("memberID", memberID))
		conn.Close()
		cancel()
	}()

	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	// keepalive ping
	go func() {
		for {
			select {
			case <-ticker.C:
				sub.mu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping"))
				sub.mu.Unlock()
				if err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		h.execWebsocketAction(ctx, sub, mt, message)
	}
}

func (h *ChatWebsocketHandler) execWebsocketAction(ctx context.Context, sub *wsSubscriber, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, sub, msg)
	default:
		h.sendError(sub, "unknown message type")
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, sub *wsSubscriber, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {

	// join the room channel and seed history
	case string(domain.EnterRoom):
		roomID := req.RoomID
		if roomID == "" && req.PeerID != "" {
			id, err := domain.PrivateRoomID(sub.memberID, req.PeerID)
			if err != nil {
				resp.Error = err.Error()
				break
			}
			roomID = id
		}

		msgs, err := h.messageUC.ListByRoom(ctx, sub.memberID, roomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}

		h.roomBus.Join(roomID, sub)
		resp.Success = true
		resp.Payload["room_id"] = roomID
		resp.Payload["messages"] = msgs

	case string(domain.LeaveRoom):
		h.roomBus.Leave(sub.connID, req.RoomID)
		resp.Success = true
		resp.Payload["room_id"] = req.RoomID

	// persist then fan out; the sender's other sessions get the echo too
	case string(domain.SendMessage):
		receiverID, err := domain.PeerOf(req.RoomID, sub.memberID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		stored, err := h.messageUC.Append(ctx, sub.memberID, receiverID, req.Content)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["message"] = stored

	case string(domain.Typing):
		name, err := h.members.DisplayName(ctx, sub.memberID)
		if err != nil {
			name = sub.memberID
		}
		if err := h.messageUC.Typing(ctx, sub.memberID, req.RoomID, name); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true

	case string(domain.ReadRoom):
		updated, err := h.messageUC.MarkRead(ctx, sub.memberID, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["updated"] = updated

	case string(domain.ClearRoom):
		deleted, err := h.messageUC.ClearRoom(ctx, sub.memberID, req.RoomID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["deleted"] = deleted

	case string(domain.GetRooms):
		rooms, err := h.messageUC.ListActiveRooms(ctx, sub.memberID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["rooms"] = rooms

	default:
		h.sendError(sub, "unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err ",
			zap.String("MemberID", sub.memberID),
			zap.String("Action", req.Action),
			zap.String("err", resp.Error))
	}
	sub.write(resp)
}

func (h *ChatWebsocketHandler) sendError(sub *wsSubscriber, errorMsg string) {
	sub.write(domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}
