package api

import (
	"context"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/modules/session"
)

const localRemoteIP = "remote_ip"

// maxFrameBytes bounds inbound frames. It fits a full-length chat line with
// every rune JSON-escaped; larger frames close the connection.
const maxFrameBytes = 8 * validation.MaxMessageLength

// maxCloseReason is the control frame payload limit minus the status code.
const maxCloseReason = 123

// setupWebSocket mounts the /ws endpoint.
func (m *APIModule) setupWebSocket(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(localRemoteIP, c.IP())
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(m.handleWebSocket))
}

// handleWebSocket handles WebSocket connections at /ws?room=&name=&template=.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	ip, _ := c.Locals(localRemoteIP).(string)
	c.SetReadLimit(maxFrameBytes)

	s, err := m.sessions.Attach(context.Background(), session.AttachRequest{
		RoomID:   c.Query("room"),
		Name:     c.Query("name"),
		Template: c.Query("template"),
		RemoteIP: ip,
		Conn:     c,
	})
	if err != nil {
		m.logger.Warn("WebSocket connection rejected", "ip", ip, "error", err)
		m.closeWithError(c, err)
		return
	}

	// The connection is released when this handler returns, so the writer
	// must be gone first.
	defer func() {
		s.Detach()
		s.Wait()
	}()

	m.logger.Debug("WebSocket client connected", "room", s.RoomID(), "member", s.MemberID(), "ip", ip)

	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Warn("WebSocket read error", "room", s.RoomID(), "member", s.MemberID(), "error", err)
			}
			return
		}
		s.Handle(payload)
	}
}

// closeWithError sends a close frame carrying the rejection reason.
func (m *APIModule) closeWithError(c *websocket.Conn, err error) {
	code := websocket.CloseInternalServerErr
	if room.IsValidation(err) {
		code = websocket.ClosePolicyViolation
	}
	reason := err.Error()
	if len(reason) > maxCloseReason {
		reason = reason[:maxCloseReason]
	}
	_ = c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	_ = c.Close()
}
