package ws

import (
	"context"
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/auth"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/config"
	"github.com/Ilias-Ahmed/FLSTK-Social-Media/internal/gateway"
)

// Server upgrades authenticated clients and wires their connection into the
// realtime gateway. Expected ws URL: /ws?token=<jwt>.
type Server struct {
	verifier *auth.Verifier
	gateway  *gateway.Gateway
	cfg      *config.Config
	log      *zap.SugaredLogger
}

func NewServer(verifier *auth.Verifier, gw *gateway.Gateway, cfg *config.Config, log *zap.SugaredLogger) *Server {
	return &Server{verifier: verifier, gateway: gw, cfg: cfg, log: log}
}

func (s *Server) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (s *Server) Handler() fiber.Handler {
	return websocket.New(s.serve)
}

// serve walks the connection through authenticating -> connected ->
// disconnected. A handshake that fails authentication never reaches the
// registry; the transport is closed immediately.
func (s *Server) serve(conn *websocket.Conn) {
	token := conn.Query("token")
	if token == "" {
		s.reject(conn, "missing token")
		return
	}
	claims, err := s.verifier.Verify(token)
	if err != nil {
		s.reject(conn, "invalid token")
		return
	}

	ctx := context.Background()
	client := newClient(conn, claims.UserID)
	s.gateway.Connected(ctx, claims.UserID, client)
	defer func() {
		s.gateway.Disconnected(ctx, claims.UserID, client)
		client.close()
	}()

	go client.writePump(s.cfg.PingInterval, s.cfg.WriteDeadline)

	conn.SetReadLimit(s.cfg.WS.MaxMessageSizeBytes)
	for {
		mt, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		if err := s.gateway.Dispatch(ctx, claims.UserID, raw); err != nil {
			s.log.Debugw("event dispatch failed", "user_id", claims.UserID, "error", err)
		}
	}
}

func (s *Server) reject(conn *websocket.Conn, reason string) {
	b, _ := json.Marshal(fiber.Map{"success": false, "message": reason})
	_ = conn.WriteMessage(websocket.TextMessage, b)
	_ = conn.Close()
}
