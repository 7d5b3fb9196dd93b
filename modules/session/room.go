package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/example/collab-template-demo/domain/room"
)

// Room is the in-memory owner of one room's document and members.
// Every field below mu is guarded by it, and every broadcast for the room is
// issued while holding it.
type Room struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	document     string
	templateFile string
	members      []*room.Member // join order
	pending      *room.PendingEdit
	emptySince   time.Time

	// evicted is set under mu and may be read without it.
	evicted atomic.Bool
}

func newRoom(rec room.Record, templateFile string, now time.Time) *Room {
	return &Room{
		ID:           rec.ID,
		CreatedAt:    rec.CreatedAt,
		document:     rec.Document,
		templateFile: templateFile,
		emptySince:   now,
	}
}

// Info is a point-in-time view of a room.
type Info struct {
	ID           string    `json:"id"`
	Members      int       `json:"members"`
	Editing      bool      `json:"editing"`
	TemplateFile string    `json:"template_file"`
	CreatedAt    time.Time `json:"created_at"`
}

// Detail is Info together with the document and the member list.
type Detail struct {
	Info     Info
	Document string
	Members  []room.Member // join order
}

// Info returns a snapshot of the room.
func (r *Room) Info() Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.info()
}

// Detail returns a consistent snapshot of the room's state.
func (r *Room) Detail() Detail {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Detail{Info: r.info(), Document: r.document, Members: r.memberList()}
}

// info requires mu.
func (r *Room) info() Info {
	return Info{
		ID:           r.ID,
		Members:      len(r.members),
		Editing:      r.pending != nil,
		TemplateFile: r.templateFile,
		CreatedAt:    r.CreatedAt,
	}
}

// memberList requires mu.
func (r *Room) memberList() []room.Member {
	return lo.Map(r.members, func(m *room.Member, _ int) room.Member { return *m })
}

// removeMember requires mu.
func (r *Room) removeMember(id string) bool {
	before := len(r.members)
	r.members = lo.Reject(r.members, func(m *room.Member, _ int) bool { return m.ID == id })
	return len(r.members) != before
}

// evictable reports whether the room may be evicted at now. Requires mu.
func (r *Room) evictable(now time.Time, grace time.Duration) bool {
	return len(r.members) == 0 &&
		r.pending == nil &&
		!r.emptySince.IsZero() &&
		now.Sub(r.emptySince) >= grace
}
