package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// MemberJoinedEvent is emitted when a connection attaches to a room.
type MemberJoinedEvent struct {
	RoomID      string    `json:"room_id"`
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	MemberCount int       `json:"member_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// MemberLeftEvent is emitted when a connection detaches from a room.
type MemberLeftEvent struct {
	RoomID      string    `json:"room_id"`
	MemberID    string    `json:"member_id"`
	MemberName  string    `json:"member_name"`
	MemberCount int       `json:"member_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// MemberRenamedEvent is emitted when a member changes display name.
type MemberRenamedEvent struct {
	RoomID    string    `json:"room_id"`
	MemberID  string    `json:"member_id"`
	OldName   string    `json:"old_name"`
	NewName   string    `json:"new_name"`
	Timestamp time.Time `json:"timestamp"`
}

// DocumentUpdatedEvent is emitted when a room's document is replaced.
type DocumentUpdatedEvent struct {
	RoomID    string    `json:"room_id"`
	EditID    string    `json:"edit_id,omitempty"`
	Source    string    `json:"source"` // "ai" or "template"
	UpdatedBy string    `json:"updated_by"`
	Length    int       `json:"length"`
	Timestamp time.Time `json:"timestamp"`
}

// EditFailedEvent is emitted when an AI edit produced no document.
type EditFailedEvent struct {
	RoomID    string    `json:"room_id"`
	EditID    string    `json:"edit_id"`
	MemberID  string    `json:"member_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// RoomEvictedEvent is emitted when an idle room is dropped from memory.
type RoomEvictedEvent struct {
	RoomID    string    `json:"room_id"`
	IdleFor   string    `json:"idle_for"`
	Timestamp time.Time `json:"timestamp"`
}

// Document update sources.
const (
	SourceAI       = "ai"
	SourceTemplate = "template"
)

// Event definitions for the session domain.
var (
	MemberJoinedV1 = helper.EventDefinition[MemberJoinedEvent](
		"session",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberLeftEvent](
		"session",
		"MemberLeft",
		"v1",
	)

	MemberRenamedV1 = helper.EventDefinition[MemberRenamedEvent](
		"session",
		"MemberRenamed",
		"v1",
	)

	DocumentUpdatedV1 = helper.EventDefinition[DocumentUpdatedEvent](
		"session",
		"DocumentUpdated",
		"v1",
	)

	EditFailedV1 = helper.EventDefinition[EditFailedEvent](
		"session",
		"EditFailed",
		"v1",
	)

	RoomEvictedV1 = helper.EventDefinition[RoomEvictedEvent](
		"session",
		"RoomEvicted",
		"v1",
	)
)
