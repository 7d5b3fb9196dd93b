package room

import "time"

// SystemName is the display name attached to system-generated messages.
const SystemName = "System"

// MessageKind distinguishes member chat from system notices.
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// PresenceAction is the audit action recorded for a member.
type PresenceAction string

const (
	ActionJoined  PresenceAction = "joined"
	ActionLeft    PresenceAction = "left"
	ActionRenamed PresenceAction = "renamed"
)

// Record is the durable view of a room.
type Record struct {
	ID        string    `json:"id"`
	Document  string    `json:"document"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Member is one connected participant.
type Member struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is an immutable chat or system line.
type Message struct {
	ID        uint        `json:"id,omitempty"`
	RoomID    string      `json:"room_id"`
	UserID    *string     `json:"user_id"`
	UserName  string      `json:"user_name"`
	Text      string      `json:"text"`
	Kind      MessageKind `json:"kind"`
	CreatedAt time.Time   `json:"created_at"`
}

// PresenceEvent is an immutable audit entry.
type PresenceEvent struct {
	RoomID    string         `json:"room_id"`
	UserID    string         `json:"user_id"`
	UserName  string         `json:"user_name"`
	Action    PresenceAction `json:"action"`
	CreatedAt time.Time      `json:"created_at"`
}

// PendingEdit describes the single AI edit in flight for a room.
type PendingEdit struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	Instruction string    `json:"instruction"`
	Temperature float64   `json:"temperature"`
	IssuedAt    time.Time `json:"issued_at"`
}

// NewUserMessage builds a message attributed to a member.
func NewUserMessage(roomID string, member Member, text string, at time.Time) Message {
	id := member.ID
	return Message{
		RoomID:    roomID,
		UserID:    &id,
		UserName:  member.Name,
		Text:      text,
		Kind:      KindUser,
		CreatedAt: at,
	}
}

// NewSystemMessage builds an unattributed system notice.
func NewSystemMessage(roomID, text string, at time.Time) Message {
	return Message{
		RoomID:    roomID,
		UserName:  SystemName,
		Text:      text,
		Kind:      KindSystem,
		CreatedAt: at,
	}
}
