package api

import (
	"time"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/modules/activity"
	"github.com/example/collab-template-demo/modules/storage"
	"github.com/example/collab-template-demo/modules/templates"
)

// ErrorResponse is the API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the API health check response.
type HealthResponse struct {
	Status             string             `json:"status"`
	ActiveRooms        int                `json:"active_rooms"`
	ActiveClients      int                `json:"active_clients"`
	ActiveSessions     int                `json:"active_sessions"`
	Database           *storage.Stats     `json:"database,omitempty"`
	DatabaseError      string             `json:"database_error,omitempty"`
	Model              string             `json:"model"`
	DefaultTemperature float64            `json:"default_temperature"`
	Activity           *activity.Snapshot `json:"activity,omitempty"`
}

// RoomResponse merges a stored room with its live state.
type RoomResponse struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
	Live         bool       `json:"live"`
	Members      int        `json:"members"`
	Editing      bool       `json:"editing"`
	TemplateFile string     `json:"template_file,omitempty"`
}

// RoomDetailResponse is one room with its document and members.
type RoomDetailResponse struct {
	RoomResponse
	Stored      bool          `json:"stored"`
	Document    string        `json:"document"`
	MemberList  []room.Member `json:"member_list"`
	Connections int           `json:"connections"`
}

// RoomListResponse is the API response for listing rooms.
type RoomListResponse struct {
	Rooms []RoomResponse `json:"rooms"`
}

// PresenceLogResponse lists a room's audit entries, newest first.
type PresenceLogResponse struct {
	RoomID string               `json:"room_id"`
	Logs   []room.PresenceEvent `json:"logs"`
}

// HistoryResponse is the API response for message history.
type HistoryResponse struct {
	RoomID   string         `json:"room_id"`
	Messages []room.Message `json:"messages"`
}

// DeleteRoomResponse confirms a room deletion.
type DeleteRoomResponse struct {
	RoomID  string `json:"room_id"`
	Deleted bool   `json:"deleted"`
	Evicted bool   `json:"evicted"`
}

// ClearMessagesResponse reports a history wipe.
type ClearMessagesResponse struct {
	RoomID  string `json:"room_id"`
	Deleted int64  `json:"deleted"`
}

// TemplateListResponse lists catalog templates.
type TemplateListResponse struct {
	Templates []templates.Info `json:"templates"`
}

// TemplateResponse carries one template.
type TemplateResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// PurgeResponse reports a manual retention pass.
type PurgeResponse struct {
	Days    int   `json:"days"`
	Deleted int64 `json:"deleted"`
}
