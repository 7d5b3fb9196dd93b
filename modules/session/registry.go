package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"

	"github.com/example/collab-template-demo/domain/room"
	"github.com/example/collab-template-demo/domain/validation"
)

// ErrRoomBusy is returned by Evict while a room still has members or an edit in flight.
var ErrRoomBusy = errors.New("room has connected members")

// Eviction is reported for every room dropped from memory.
type Eviction struct {
	RoomID  string
	IdleFor time.Duration
}

// Registry holds at most one Room per id.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
	group singleflight.Group

	store     Store
	templates Templates
	grace     time.Duration
	now       func() time.Time
	logger    types.Logger
}

// NewRegistry creates a registry that evicts rooms empty for longer than grace.
func NewRegistry(store Store, templates Templates, grace time.Duration, logger types.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		store:     store,
		templates: templates,
		grace:     grace,
		now:       time.Now,
		logger:    logger,
	}
}

// GetOrCreate returns the live Room for id, hydrating it from storage on first use.
// Concurrent first references share one load.
func (g *Registry) GetOrCreate(ctx context.Context, id, templateFile string) (*Room, error) {
	if err := validation.ValidateRoomID(id); err != nil {
		return nil, err
	}

	if r := g.lookup(id); r != nil {
		return r, nil
	}

	v, err, _ := g.group.Do(id, func() (any, error) {
		if r := g.lookup(id); r != nil {
			return r, nil
		}

		rec, created, err := g.store.GetOrCreateRoom(ctx, id, g.templates.Default())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", room.ErrRoomUnavailable, err)
		}

		r := newRoom(rec, templateFile, g.now())
		g.mu.Lock()
		g.rooms[id] = r
		g.mu.Unlock()

		g.logger.Info("Room loaded", "room", id, "created", created)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Room), nil
}

// Get returns the live Room for id without loading it.
func (g *Registry) Get(id string) (*Room, bool) {
	r := g.lookup(id)
	return r, r != nil
}

// lookup returns the live room for id. A room flagged as evicted but not yet
// removed is dropped so the caller loads a fresh one.
func (g *Registry) lookup(id string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := g.rooms[id]
	if r != nil && r.evicted.Load() {
		delete(g.rooms, id)
		return nil
	}
	return r
}

// forget removes r from the index unless id has already been reloaded.
func (g *Registry) forget(id string, r *Room) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rooms[id] == r {
		delete(g.rooms, id)
	}
}

func (g *Registry) all() map[string]*Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	rooms := make(map[string]*Room, len(g.rooms))
	for id, r := range g.rooms {
		rooms[id] = r
	}
	return rooms
}

// Len returns the number of live rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Snapshot lists live rooms ordered by id.
func (g *Registry) Snapshot() []Info {
	rooms := g.all()
	infos := make([]Info, 0, len(rooms))
	for _, r := range rooms {
		infos = append(infos, r.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Sweep evicts every room that has been empty and idle for the grace period.
// The index lock is never held while a room lock is taken, so a busy room
// does not stall lookups of other rooms.
func (g *Registry) Sweep() []Eviction {
	now := g.now()

	var evicted []Eviction
	for id, r := range g.all() {
		r.mu.Lock()
		ok := r.evictable(now, g.grace)
		if ok {
			r.evicted.Store(true)
			evicted = append(evicted, Eviction{RoomID: id, IdleFor: now.Sub(r.emptySince)})
		}
		r.mu.Unlock()
		if ok {
			g.forget(id, r)
		}
	}

	for _, ev := range evicted {
		g.logger.Info("Evicted idle room", "room", ev.RoomID, "idle_for", ev.IdleFor)
	}
	return evicted
}

// Evict drops an empty room from memory immediately. It reports whether the
// room was live.
func (g *Registry) Evict(id string) (bool, error) {
	r := g.lookup(id)
	if r == nil {
		return false, nil
	}

	r.mu.Lock()
	if len(r.members) > 0 || r.pending != nil {
		r.mu.Unlock()
		return true, ErrRoomBusy
	}
	r.evicted.Store(true)
	r.mu.Unlock()

	g.forget(id, r)
	return true, nil
}

// Run sweeps every interval until ctx ends. onEvict is called for each eviction.
func (g *Registry) Run(ctx context.Context, interval time.Duration, onEvict func(Eviction)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ev := range g.Sweep() {
				if onEvict != nil {
					onEvict(ev)
				}
			}
		}
	}
}
