package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
	"github.com/example/collab-template-demo/modules/session"
	"github.com/example/collab-template-demo/modules/storage"
	"github.com/example/collab-template-demo/modules/templates"
)

const maxListLimit = 1000

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes(app *fiber.App) {
	app.Get("/health", m.healthHandler)

	m.setupWebSocket(app)

	api := app.Group("/api")
	api.Get("/stats", m.statsHandler)
	api.Get("/rooms", m.listRooms)
	api.Get("/rooms/:id", m.getRoom)
	api.Get("/rooms/:id/logs", m.roomLogs)
	api.Get("/rooms/:id/messages", m.roomMessages)
	api.Delete("/rooms/:id/messages", m.clearMessages)
	api.Delete("/rooms/:id", m.deleteRoom)
	api.Get("/models", m.listModels)
	api.Get("/templates", m.listTemplates)
	api.Get("/templates/:filename", m.getTemplate)
	api.Post("/maintenance/purge", m.purgeMessages)
}

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: code, Message: message})
}

// queryLimit reads ?limit=, falling back to def for missing or out-of-range values.
func queryLimit(c *fiber.Ctx, def int) int {
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxListLimit {
			return parsed
		}
	}
	return def
}

// roomParam validates the :id route parameter.
func roomParam(c *fiber.Ctx) (string, error) {
	id := validation.SanitizeURLParam(c.Params("id"))
	if err := validation.ValidateRoomID(id); err != nil {
		return "", err
	}
	return id, nil
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	rooms := m.sessions.Rooms()
	resp := HealthResponse{
		Status:             "ok",
		ActiveRooms:        len(rooms),
		ActiveClients:      m.hub.ClientCount(),
		ActiveSessions:     m.sessions.ActiveSessions(),
		Model:              m.models.Model(),
		DefaultTemperature: m.opts.DefaultTemperature,
	}

	stats, err := m.store.Stats(c.UserContext())
	if err != nil {
		m.logger.Warn("Health check could not read database stats", "error", err)
		resp.Status = "degraded"
		resp.DatabaseError = err.Error()
	} else {
		resp.Database = &stats
	}
	if m.activity != nil {
		snap := m.activity.Snapshot()
		resp.Activity = &snap
	}
	return c.JSON(resp)
}

// statsHandler handles GET /api/stats.
func (m *APIModule) statsHandler(c *fiber.Ctx) error {
	stats, err := m.store.Stats(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to read database stats", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "stats_failed", "Failed to read database stats")
	}

	body := fiber.Map{"database": stats}
	if m.activity != nil {
		body["activity"] = m.activity.Snapshot()
	}
	return c.JSON(body)
}

// listRooms handles GET /api/rooms. Stored rooms are merged with the live registry.
func (m *APIModule) listRooms(c *fiber.Ctx) error {
	stored, err := m.store.ListRooms(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to list rooms", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "list_failed", "Failed to list rooms")
	}

	live := lo.KeyBy(m.sessions.Rooms(), func(info session.Info) string { return info.ID })

	response := RoomListResponse{Rooms: make([]RoomResponse, 0, len(stored))}
	for _, r := range stored {
		updated := r.UpdatedAt
		resp := RoomResponse{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: &updated}
		if info, ok := live[r.ID]; ok {
			resp.Live = true
			resp.Members = info.Members
			resp.Editing = info.Editing
			resp.TemplateFile = info.TemplateFile
			delete(live, r.ID)
		}
		response.Rooms = append(response.Rooms, resp)
	}
	// live rooms whose row was deleted behind their back
	for _, info := range live {
		response.Rooms = append(response.Rooms, RoomResponse{
			ID:           info.ID,
			CreatedAt:    info.CreatedAt,
			Live:         true,
			Members:      info.Members,
			Editing:      info.Editing,
			TemplateFile: info.TemplateFile,
		})
	}

	return c.JSON(response)
}

// getRoom handles GET /api/rooms/:id. The live document wins over the stored one.
func (m *APIModule) getRoom(c *fiber.Ctx) error {
	roomID, err := roomParam(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_room", err.Error())
	}

	resp := RoomDetailResponse{RoomResponse: RoomResponse{ID: roomID}, MemberList: []room.Member{}}
	rec, err := m.store.GetRoom(c.UserContext(), roomID)
	switch {
	case err == nil:
		resp.Stored = true
		resp.CreatedAt = rec.CreatedAt
		resp.UpdatedAt = &rec.UpdatedAt
		resp.Document = rec.Document
	case errors.Is(err, storage.ErrNotFound):
	default:
		m.logger.Error("Failed to read room", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "room_failed", "Failed to read room")
	}

	if detail, ok := m.sessions.Room(roomID); ok {
		resp.Live = true
		resp.Members = detail.Info.Members
		resp.Editing = detail.Info.Editing
		resp.TemplateFile = detail.Info.TemplateFile
		resp.Document = detail.Document
		resp.MemberList = detail.Members
		resp.Connections = m.hub.RoomClientCount(roomID)
		if !resp.Stored {
			resp.CreatedAt = detail.Info.CreatedAt
		}
	}

	if !resp.Stored && !resp.Live {
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Room not found")
	}
	return c.JSON(resp)
}

// roomLogs handles GET /api/rooms/:id/logs.
func (m *APIModule) roomLogs(c *fiber.Ctx) error {
	roomID, err := roomParam(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_room", err.Error())
	}

	logs, err := m.store.PresenceLog(c.UserContext(), roomID, queryLimit(c, storage.DefaultPresenceLimit))
	if err != nil {
		m.logger.Error("Failed to read presence log", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "logs_failed", "Failed to read presence log")
	}
	if logs == nil {
		logs = []room.PresenceEvent{}
	}
	return c.JSON(PresenceLogResponse{RoomID: roomID, Logs: logs})
}

// roomMessages handles GET /api/rooms/:id/messages.
func (m *APIModule) roomMessages(c *fiber.Ctx) error {
	roomID, err := roomParam(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_room", err.Error())
	}

	messages, err := m.store.RecentMessages(c.UserContext(), roomID, queryLimit(c, storage.DefaultHistoryLimit))
	if err != nil {
		m.logger.Error("Failed to read history", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "history_failed", "Failed to read history")
	}
	if messages == nil {
		messages = []room.Message{}
	}
	return c.JSON(HistoryResponse{RoomID: roomID, Messages: messages})
}

// clearMessages handles DELETE /api/rooms/:id/messages. Live members keep
// their in-memory view until they reconnect.
func (m *APIModule) clearMessages(c *fiber.Ctx) error {
	roomID, err := roomParam(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_room", err.Error())
	}

	deleted, err := m.store.ClearMessages(c.UserContext(), roomID)
	if err != nil {
		m.logger.Error("Failed to clear history", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "clear_failed", "Failed to clear history")
	}

	m.logger.Info("Room history cleared", "room", roomID, "deleted", deleted, "ip", c.IP())
	return c.JSON(ClearMessagesResponse{RoomID: roomID, Deleted: deleted})
}

// deleteRoom handles DELETE /api/rooms/:id. Rooms with connected members are refused.
func (m *APIModule) deleteRoom(c *fiber.Ctx) error {
	roomID, err := roomParam(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_room", err.Error())
	}

	evicted, err := m.sessions.Evict(roomID)
	if errors.Is(err, session.ErrRoomBusy) {
		return errorJSON(c, fiber.StatusConflict, "room_busy", "Room has connected members or an edit in progress")
	}
	if err != nil {
		m.logger.Error("Failed to evict room", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "delete_failed", "Failed to delete room")
	}

	if err := m.store.DeleteRoom(c.UserContext(), roomID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return errorJSON(c, fiber.StatusNotFound, "not_found", "Room not found")
		}
		m.logger.Error("Failed to delete room", "room", roomID, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "delete_failed", "Failed to delete room")
	}

	m.logger.Info("Room deleted", "room", roomID, "evicted", evicted, "ip", c.IP())
	return c.JSON(DeleteRoomResponse{RoomID: roomID, Deleted: true, Evicted: evicted})
}

// listModels handles GET /api/models.
func (m *APIModule) listModels(c *fiber.Ctx) error {
	models, err := m.models.Models(c.UserContext())
	if err != nil {
		m.logger.Error("Failed to fetch models", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "models_failed", "Failed to fetch models")
	}
	return c.JSON(models)
}

// listTemplates handles GET /api/templates.
func (m *APIModule) listTemplates(c *fiber.Ctx) error {
	list, err := m.templates.List()
	if err != nil {
		m.logger.Error("Failed to list templates", "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "templates_failed", "Failed to fetch templates")
	}
	return c.JSON(TemplateListResponse{Templates: list})
}

// getTemplate handles GET /api/templates/:filename.
func (m *APIModule) getTemplate(c *fiber.Ctx) error {
	filename := validation.SanitizeURLParam(c.Params("filename"))
	if err := validation.ValidateFilename(filename); err != nil {
		m.logger.Warn("Invalid filename attempt", "filename", filename, "ip", c.IP())
		return errorJSON(c, fiber.StatusBadRequest, "invalid_filename", "Invalid filename")
	}

	content, err := m.templates.Read(filename)
	switch {
	case err == nil:
		return c.JSON(TemplateResponse{Filename: filename, Content: content})
	case errors.Is(err, templates.ErrAccessDenied):
		m.logger.Error("Path traversal attempt detected", "filename", filename, "ip", c.IP())
		return errorJSON(c, fiber.StatusForbidden, "access_denied", "Access denied")
	case errors.Is(err, templates.ErrTemplateNotFound):
		return errorJSON(c, fiber.StatusNotFound, "not_found", "Template not found")
	case errors.Is(err, room.ErrInvalidTemplate):
		return errorJSON(c, fiber.StatusBadRequest, "invalid_filename", "Invalid filename")
	default:
		m.logger.Error("Failed to read template", "filename", filename, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "template_failed", "Internal server error")
	}
}

// purgeMessages handles POST /api/maintenance/purge?days=N.
func (m *APIModule) purgeMessages(c *fiber.Ctx) error {
	days := m.opts.RetentionDays
	if d := c.Query("days"); d != "" {
		parsed, err := strconv.Atoi(d)
		if err != nil || parsed <= 0 {
			return errorJSON(c, fiber.StatusBadRequest, "invalid_days", "days must be a positive integer")
		}
		days = parsed
	}
	if days <= 0 {
		return errorJSON(c, fiber.StatusBadRequest, "invalid_days", "days must be a positive integer")
	}

	deleted, err := m.store.PurgeMessages(c.UserContext(), days)
	if err != nil {
		m.logger.Error("Manual purge failed", "days", days, "error", err)
		return errorJSON(c, fiber.StatusInternalServerError, "purge_failed", "Failed to purge messages")
	}

	m.logger.Info("Manual purge completed", "days", days, "deleted", deleted, "ip", c.IP())
	return c.JSON(PurgeResponse{Days: days, Deleted: deleted})
}
