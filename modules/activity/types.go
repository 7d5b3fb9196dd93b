package activity

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	MembersJoined    int64     `json:"members_joined"`
	MembersLeft      int64     `json:"members_left"`
	MembersRenamed   int64     `json:"members_renamed"`
	AIEdits          int64     `json:"ai_edits"`
	TemplateSwitches int64     `json:"template_switches"`
	EditsFailed      int64     `json:"edits_failed"`
	RoomsEvicted     int64     `json:"rooms_evicted"`
	PeakRoomMembers  int64     `json:"peak_room_members"`
	LastEventAt      time.Time `json:"last_event_at,omitempty"`
}

// Counters tracks room activity. Safe for concurrent use.
type Counters struct {
	joined    atomic.Int64
	left      atomic.Int64
	renamed   atomic.Int64
	aiEdits   atomic.Int64
	templates atomic.Int64
	failed    atomic.Int64
	evicted   atomic.Int64
	peak      atomic.Int64

	mu   sync.RWMutex
	last time.Time
}

// NewCounters creates zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) touch(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if at.After(c.last) {
		c.last = at
	}
}

// observePeak raises the peak member count to n if it is larger.
func (c *Counters) observePeak(n int64) {
	for {
		cur := c.peak.Load()
		if n <= cur || c.peak.CompareAndSwap(cur, n) {
			return
		}
	}
}

// Snapshot returns a copy of the counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.RLock()
	last := c.last
	c.mu.RUnlock()

	return Snapshot{
		MembersJoined:    c.joined.Load(),
		MembersLeft:      c.left.Load(),
		MembersRenamed:   c.renamed.Load(),
		AIEdits:          c.aiEdits.Load(),
		TemplateSwitches: c.templates.Load(),
		EditsFailed:      c.failed.Load(),
		RoomsEvicted:     c.evicted.Load(),
		PeakRoomMembers:  c.peak.Load(),
		LastEventAt:      last,
	}
}
