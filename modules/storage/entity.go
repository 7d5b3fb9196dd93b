package storage

import (
	"time"

	"github.com/example/collab-template-demo/domain/room"
)

// RoomRow is a row of the rooms table. Template holds the room's current document.
type RoomRow struct {
	ID        string    `gorm:"primaryKey;size:50"`
	Template  string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (RoomRow) TableName() string { return "rooms" }

// MessageRow is a row of the append-only messages table.
type MessageRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RoomID    string    `gorm:"size:50;not null;index:idx_messages_room_id"`
	UserID    *string   `gorm:"size:64"`
	UserName  string    `gorm:"size:64;not null"`
	Text      string    `gorm:"type:text;not null"`
	Type      string    `gorm:"size:16;not null;default:user"`
	CreatedAt time.Time `gorm:"not null;index:idx_messages_created_at"`
}

// TableName returns the table name for GORM.
func (MessageRow) TableName() string { return "messages" }

// UserLogRow is a row of the presence audit table.
type UserLogRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	RoomID    string    `gorm:"size:50;not null;index:idx_users_log_room_id"`
	UserID    string    `gorm:"size:64;not null"`
	UserName  string    `gorm:"size:64;not null"`
	Action    string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM.
func (UserLogRow) TableName() string { return "users_log" }

// RoomSummary is a room listing entry without its document.
type RoomSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats holds table counts.
type Stats struct {
	Rooms    int64  `json:"rooms"`
	Messages int64  `json:"messages"`
	Logs     int64  `json:"logs"`
	DBPath   string `json:"db_path"`
}

func (r RoomRow) toRecord() room.Record {
	return room.Record{
		ID:        r.ID,
		Document:  r.Template,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func messageRowFrom(m room.Message) MessageRow {
	return MessageRow{
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		UserName:  m.UserName,
		Text:      m.Text,
		Type:      string(m.Kind),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

func (r MessageRow) toMessage() room.Message {
	return room.Message{
		ID:        r.ID,
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Text:      r.Text,
		Kind:      room.MessageKind(r.Type),
		CreatedAt: r.CreatedAt,
	}
}

func (r UserLogRow) toEvent() room.PresenceEvent {
	return room.PresenceEvent{
		RoomID:    r.RoomID,
		UserID:    r.UserID,
		UserName:  r.UserName,
		Action:    room.PresenceAction(r.Action),
		CreatedAt: r.CreatedAt,
	}
}
