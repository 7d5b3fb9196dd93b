package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/collab-template-demo/domain/room"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func withClock(f *fixture) *fakeClock {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.engine.now = clock.Now
	f.engine.registry.now = clock.Now
	return clock
}

func TestRegistry_ConcurrentFirstReferenceLoadsOnce(t *testing.T) {
	store := newFakeStore()
	reg := NewRegistry(store, &fakeTemplates{}, time.Minute, &mockLogger{})

	var wg sync.WaitGroup
	rooms := make([]*Room, 16)
	for i := range rooms {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := reg.GetOrCreate(context.Background(), "team", DefaultTemplateFile)
			assert.NoError(t, err)
			rooms[i] = r
		}(i)
	}
	wg.Wait()

	for _, r := range rooms {
		assert.Same(t, rooms[0], r)
	}
	assert.Equal(t, 1, reg.Len())

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.loads)
}

func TestRegistry_GetOrCreate_InvalidID(t *testing.T) {
	reg := NewRegistry(newFakeStore(), &fakeTemplates{}, time.Minute, &mockLogger{})

	_, err := reg.GetOrCreate(context.Background(), "no spaces", DefaultTemplateFile)
	assert.ErrorIs(t, err, room.ErrInvalidRoomID)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_GetOrCreate_HydratesStoredDocument(t *testing.T) {
	store := newFakeStore()
	store.rooms["team"] = room.Record{ID: "team", Document: "# Stored"}
	reg := NewRegistry(store, &fakeTemplates{}, time.Minute, &mockLogger{})

	r, err := reg.GetOrCreate(context.Background(), "team", "report.md")
	require.NoError(t, err)
	assert.Equal(t, "# Stored", r.Detail().Document)
	assert.Equal(t, "report.md", r.Info().TemplateFile)
}

func TestRegistry_Snapshot(t *testing.T) {
	f := newFixture(t, nil)

	f.attach(t, "zeta", "zed")
	f.attach(t, "alpha", "al")
	f.attach(t, "alpha", "bo")

	infos := f.engine.Registry().Snapshot()
	require.Len(t, infos, 2)
	assert.Equal(t, "alpha", infos[0].ID)
	assert.Equal(t, 2, infos[0].Members)
	assert.Equal(t, "zeta", infos[1].ID)
	assert.Equal(t, 1, infos[1].Members)
}

func TestSweep_EvictsAfterGrace(t *testing.T) {
	f := newFixture(t, nil)
	clock := withClock(f)
	reg := f.engine.Registry()

	s, _ := f.attach(t, "team", "alice")

	clock.Advance(10 * time.Minute)
	assert.Empty(t, reg.Sweep(), "occupied rooms stay")

	s.Detach()
	clock.Advance(59 * time.Second)
	assert.Empty(t, reg.Sweep(), "grace period not over")

	clock.Advance(time.Second)
	evicted := reg.Sweep()
	require.Len(t, evicted, 1)
	assert.Equal(t, "team", evicted[0].RoomID)
	assert.Equal(t, time.Minute, evicted[0].IdleFor)
	assert.Equal(t, 0, reg.Len())
}

func TestSweep_RejoinResetsGrace(t *testing.T) {
	f := newFixture(t, nil)
	clock := withClock(f)
	reg := f.engine.Registry()

	s, _ := f.attach(t, "team", "alice")
	s.Detach()
	clock.Advance(50 * time.Second)

	s2, _ := f.attach(t, "team", "bob")
	s2.Detach()
	clock.Advance(50 * time.Second)

	assert.Empty(t, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}

func TestSweep_KeepsRoomWhileEditing(t *testing.T) {
	f := newFixture(t, nil)
	f.generator.release = make(chan struct{})
	clock := withClock(f)
	reg := f.engine.Registry()

	s, _ := f.attach(t, "team", "alice")
	say(s, "@ai tidy up")
	require.Eventually(t, func() bool {
		calls, _ := f.generator.stats()
		return calls == 1
	}, 2*time.Second, 5*time.Millisecond)

	s.Detach()
	clock.Advance(10 * time.Minute)
	assert.Empty(t, reg.Sweep())

	_, err := reg.Evict("team")
	assert.ErrorIs(t, err, ErrRoomBusy)

	close(f.generator.release)
	require.Eventually(t, func() bool {
		return f.store.document("team") == "# Rewritten"
	}, 2*time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	assert.Len(t, reg.Sweep(), 1)
}

func TestSweep_UnusedRoomIsEvicted(t *testing.T) {
	f := newFixture(t, nil)
	clock := withClock(f)
	reg := f.engine.Registry()

	_, err := reg.GetOrCreate(context.Background(), "ghost", DefaultTemplateFile)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	assert.Len(t, reg.Sweep(), 1)
}

func TestEvict(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.engine.Registry()

	live, err := f.engine.Evict("nowhere")
	assert.NoError(t, err)
	assert.False(t, live)

	s, _ := f.attach(t, "team", "alice")
	live, err = f.engine.Evict("team")
	assert.True(t, live)
	assert.ErrorIs(t, err, ErrRoomBusy)

	s.Detach()
	live, err = f.engine.Evict("team")
	assert.True(t, live)
	assert.NoError(t, err)
	assert.Equal(t, 0, reg.Len())
}

func TestSweep_LockedRoomDoesNotStallOtherRooms(t *testing.T) {
	f := newFixture(t, nil)
	clock := withClock(f)
	reg := f.engine.Registry()

	slow, err := reg.GetOrCreate(context.Background(), "slow", DefaultTemplateFile)
	require.NoError(t, err)
	clock.Advance(time.Minute)

	slow.mu.Lock()
	swept := make(chan []Eviction, 1)
	go func() { swept <- reg.Sweep() }()

	// While the sweep waits on "slow", other rooms stay reachable.
	loaded := make(chan error, 1)
	go func() {
		_, err := reg.GetOrCreate(context.Background(), "other", DefaultTemplateFile)
		loaded <- err
	}()
	select {
	case err := <-loaded:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("GetOrCreate blocked behind a locked room")
	}
	_, ok := reg.Get("other")
	assert.True(t, ok)

	slow.mu.Unlock()
	select {
	case evictions := <-swept:
		ids := make([]string, 0, len(evictions))
		for _, e := range evictions {
			ids = append(ids, e.RoomID)
		}
		assert.Contains(t, ids, "slow")
	case <-time.After(2 * time.Second):
		t.Fatal("Sweep did not finish")
	}
	_, ok = reg.Get("slow")
	assert.False(t, ok)
}

func TestGet_DropsRoomFlaggedEvicted(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.engine.Registry()

	r, err := reg.GetOrCreate(context.Background(), "team", DefaultTemplateFile)
	require.NoError(t, err)
	r.evicted.Store(true)

	_, ok := reg.Get("team")
	assert.False(t, ok)

	fresh, err := reg.GetOrCreate(context.Background(), "team", DefaultTemplateFile)
	require.NoError(t, err)
	assert.NotSame(t, r, fresh)
}

func TestAttach_AfterEvictionLoadsFreshRoom(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.engine.Registry()

	s, _ := f.attach(t, "team", "alice")
	first, _ := reg.Get("team")
	s.Detach()

	_, err := f.engine.Evict("team")
	require.NoError(t, err)

	s2, _ := f.attach(t, "team", "bob")
	second, ok := reg.Get("team")
	require.True(t, ok)
	assert.NotSame(t, first, second)
	assert.Equal(t, "team", s2.RoomID())
}

func TestJoin_EvictedRoomIsRefused(t *testing.T) {
	f := newFixture(t, nil)
	reg := f.engine.Registry()

	r, err := reg.GetOrCreate(context.Background(), "team", DefaultTemplateFile)
	require.NoError(t, err)
	_, err = reg.Evict("team")
	require.NoError(t, err)

	_, ok := f.engine.join(r, "alice", &recordingConn{})
	assert.False(t, ok)
	assert.Equal(t, 0, f.hub.ClientCount())
}

func TestRun_PublishesEvictions(t *testing.T) {
	store := newFakeStore()
	reg := NewRegistry(store, &fakeTemplates{}, 0, &mockLogger{})

	_, err := reg.GetOrCreate(context.Background(), "team", DefaultTemplateFile)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evictions := make(chan Eviction, 1)
	go reg.Run(ctx, 5*time.Millisecond, func(ev Eviction) { evictions <- ev })

	select {
	case ev := <-evictions:
		assert.Equal(t, "team", ev.RoomID)
	case <-time.After(2 * time.Second):
		t.Fatal("room was not evicted")
	}
}
