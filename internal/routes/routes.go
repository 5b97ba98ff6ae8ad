package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/auth"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/handlers"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/middleware"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/ws"
)

func Register(app *fiber.App, h *handlers.ChatHandler, wsSrv *ws.Server, verifier *auth.Verifier, limiter *middleware.RateLimiter) {
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	authed := api.Group("", middleware.RequireAuth(verifier))

	sendLimit := limiter.MiddlewareByKey(func(c *fiber.Ctx) string { return middleware.UserID(c) })
	authed.Post("/messages", sendLimit, h.SendMessage)

	authed.Get("/conversations", h.ListConversations)
	authed.Post("/conversations", h.StartConversation)
	authed.Post("/conversations/group", h.StartGroup)
	authed.Get("/conversations/:id/messages", h.ListMessages)
	authed.Post("/conversations/:id/participants", h.AddParticipant)
	authed.Post("/conversations/:id/read", h.MarkAsRead)

	// realtime channel; token is validated during the handshake
	app.Use("/ws", wsSrv.Upgrade)
	app.Get("/ws", wsSrv.Handler())
}
