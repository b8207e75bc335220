package router

import (
	"context"

	chatapp "legal_marketplace_service/internal/chat/app"
	memberapp "legal_marketplace_service/internal/member/app"
	"legal_marketplace_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes wires the chat service surface: account endpoints, the
// websocket push channel and the message history REST API.
func RegisterRoutes(r *fiber.App,
	memberHandler *memberapp.MemberHandler,
	chatHTTP *chatapp.ChatHTTPHandler,
	chatWebsocket *chatapp.ChatWebsocketHandler,
) {
	auth := r.Group("/auth")
	auth.Post("/register", memberHandler.Register)
	auth.Post("/login", memberHandler.Login)

	r.Use(middlewares.JWTMiddleware())

	auth.Post("/logout", memberHandler.Logout)

	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))

	r.Post("/messages", chatHTTP.AppendMessage)
	r.Get("/rooms", chatHTTP.ListRooms)
	r.Get("/rooms/:room_id/messages", chatHTTP.ListMessages)
	r.Post("/rooms/:room_id/read", chatHTTP.MarkRead)
	r.Delete("/rooms/:room_id", chatHTTP.ClearRoom)
	r.Post("/rooms/:room_id/analysis", chatHTTP.Analyze)
}
