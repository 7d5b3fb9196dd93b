package session

import "github.com/example/collab-template-demo/domain/room"

// Outbound frame kinds.
const (
	KindInit           = "init"
	KindMemberJoined   = "member_joined"
	KindMemberLeft     = "member_left"
	KindMemberRenamed  = "member_renamed"
	KindNewMessage     = "new_message"
	KindDocumentUpdate = "document_update"
	KindError          = "error"
)

// Inbound frame kinds.
const (
	InboundMessage        = "message"
	InboundChangeTemplate = "change_template"
)

// InitFrame is the snapshot sent privately to a member right after attach.
type InitFrame struct {
	Kind         string         `json:"kind"`
	MemberID     string         `json:"member_id"`
	Name         string         `json:"name"`
	RoomID       string         `json:"room_id"`
	Document     string         `json:"document"`
	TemplateFile string         `json:"template_file"`
	Messages     []room.Message `json:"messages"`
	Members      []room.Member  `json:"members"`
}

// MemberJoinedFrame announces a new member to the others.
type MemberJoinedFrame struct {
	Kind    string        `json:"kind"`
	Member  room.Member   `json:"member"`
	Members []room.Member `json:"members"`
}

// MemberLeftFrame announces a departure.
type MemberLeftFrame struct {
	Kind     string        `json:"kind"`
	MemberID string        `json:"member_id"`
	Name     string        `json:"name"`
	Members  []room.Member `json:"members"`
}

// MemberRenamedFrame announces a display name change.
type MemberRenamedFrame struct {
	Kind     string        `json:"kind"`
	MemberID string        `json:"member_id"`
	OldName  string        `json:"old_name"`
	NewName  string        `json:"new_name"`
	Members  []room.Member `json:"members"`
}

// NewMessageFrame carries one chat or system message.
type NewMessageFrame struct {
	Kind    string       `json:"kind"`
	Message room.Message `json:"message"`
}

// DocumentUpdateFrame carries the replaced document.
type DocumentUpdateFrame struct {
	Kind        string `json:"kind"`
	Document    string `json:"document"`
	UpdatedBy   string `json:"updated_by"`
	UpdatedByID string `json:"updated_by_id"`
}

// ErrorFrame is a private rejection.
type ErrorFrame struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Settings are the optional per-message knobs.
type Settings struct {
	Temperature any `json:"temperature"`
}

// InboundFrame is a decoded client frame.
type InboundFrame struct {
	Kind     string    `json:"kind" validate:"required,oneof=message change_template"`
	Text     string    `json:"text" validate:"required_if=Kind message"`
	Filename string    `json:"filename" validate:"required_if=Kind change_template"`
	Settings *Settings `json:"settings"`
}
