package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/apperr"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/chat"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/middleware"
)

type ChatHandler struct {
	svc *chat.Service
	log *zap.SugaredLogger
}

func NewChatHandler(svc *chat.Service, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

type sendMessageRequest struct {
	RecipientID    string `json:"recipientId"`
	ConversationID string `json:"conversationId"`
	Body           string `json:"body"`
}

// SendMessage handles POST /messages. The message is addressed either to a
// user (private find-or-create) or to an existing conversation.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	userID := middleware.UserID(c)

	var (
		msg any
		err error
	)
	switch {
	case req.ConversationID != "":
		msg, err = h.svc.SendToConversation(c.Context(), userID, req.ConversationID, req.Body)
	case req.RecipientID != "":
		msg, err = h.svc.SendMessage(c.Context(), userID, req.RecipientID, req.Body)
	default:
		return fail(c, fiber.StatusBadRequest, "recipientId or conversationId required")
	}
	if err != nil {
		return h.fromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": msg})
}

// ListConversations handles GET /conversations.
func (h *ChatHandler) ListConversations(c *fiber.Ctx) error {
	previews, err := h.svc.ListConversations(c.Context(), middleware.UserID(c))
	if err != nil {
		return h.fromError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": previews})
}

// ListMessages handles GET /conversations/:id/messages and marks the fetched
// conversation as read for the caller.
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.svc.ListMessages(c.Context(), c.Params("id"), middleware.UserID(c))
	if err != nil {
		return h.fromError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": msgs})
}

type startConversationRequest struct {
	UserID string `json:"userId"`
}

// StartConversation handles POST /conversations.
func (h *ChatHandler) StartConversation(c *fiber.Ctx) error {
	var req startConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	conv, err := h.svc.FindOrCreatePrivate(c.Context(), middleware.UserID(c), req.UserID)
	if err != nil {
		return h.fromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": conv})
}

type startGroupRequest struct {
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// StartGroup handles POST /conversations/group.
func (h *ChatHandler) StartGroup(c *fiber.Ctx) error {
	var req startGroupRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	conv, err := h.svc.StartGroup(c.Context(), middleware.UserID(c), req.Name, req.MemberIDs)
	if err != nil {
		return h.fromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": conv})
}

type addParticipantRequest struct {
	UserID string `json:"userId"`
}

// AddParticipant handles POST /conversations/:id/participants.
func (h *ChatHandler) AddParticipant(c *fiber.Ctx) error {
	var req addParticipantRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "invalid request body")
	}
	conv, err := h.svc.AddParticipant(c.Context(), c.Params("id"), middleware.UserID(c), req.UserID)
	if err != nil {
		return h.fromError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": conv})
}

// MarkAsRead handles POST /conversations/:id/read.
func (h *ChatHandler) MarkAsRead(c *fiber.Ctx) error {
	if err := h.svc.MarkAsRead(c.Context(), c.Params("id"), middleware.UserID(c)); err != nil {
		return h.fromError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *ChatHandler) fromError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return fail(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrUnauthenticated):
		return fail(c, fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, apperr.ErrForbidden):
		return fail(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, apperr.ErrNotFound):
		return fail(c, fiber.StatusNotFound, err.Error())
	default:
		h.log.Errorw("request failed", "path", c.Path(), "error", err)
		return fail(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"success": false, "message": msg})
}
