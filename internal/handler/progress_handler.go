package handler

import (
	"errors"
	"os"

	"ai-research-be/internal/pkg/logger"
	"ai-research-be/internal/service"
	internalWS "ai-research-be/internal/websocket"
	"ai-research-be/pkg/research/rerrors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
)

// ProgressHandler upgrades clients onto the live progress stream of one
// research session.
type ProgressHandler struct {
	service service.IResearchService
	hub     *internalWS.Hub
	logger  logger.ILogger
}

func NewProgressHandler(service service.IResearchService, hub *internalWS.Hub, log logger.ILogger) *ProgressHandler {
	return &ProgressHandler{
		service: service,
		hub:     hub,
		logger:  log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *ProgressHandler) ServeWs(c *fiber.Ctx) error {
	sessionID := c.Params("sessionId")

	// Same optional auth as the REST surface. Browsers cannot set headers
	// on the websocket handshake, so the token may also arrive as a query
	// param.
	if secret := os.Getenv("RESEARCH_API_SECRET"); secret != "" {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			authHeader := c.Get("Authorization")
			if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
				tokenStr = authHeader[7:]
			}
		}

		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fiber.ErrUnauthorized
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			h.logger.Warn("ProgressHandler", "Invalid Token in WS Handshake", map[string]interface{}{"error": err})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
		}
	}

	// Reject unknown sessions before hijacking the connection.
	if _, err := h.service.GetSession(c.UserContext(), sessionID); err != nil {
		if errors.Is(err, rerrors.ErrSessionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown research session"})
		}
		return err
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("ProgressHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(h.hub, conn, sessionID)
			h.logger.Info("ProgressHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// RegisterRoutes registers the websocket route. It sits outside /api because
// the upgrade handshake bypasses the JSON middleware stack.
func (h *ProgressHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/research/:sessionId", h.ServeWs)
}
