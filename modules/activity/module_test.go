package activity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/collab-template-demo/events"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func TestActivityModule_CountsEvents(t *testing.T) {
	m := NewModule(&mockLogger{})
	ctx := context.Background()
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	_ = m.handleMemberJoined(ctx, events.MemberJoinedEvent{RoomID: "team", MemberCount: 1, Timestamp: t0}, nil)
	_ = m.handleMemberJoined(ctx, events.MemberJoinedEvent{RoomID: "team", MemberCount: 2, Timestamp: t0.Add(time.Second)}, nil)
	_ = m.handleMemberRenamed(ctx, events.MemberRenamedEvent{RoomID: "team", Timestamp: t0.Add(2 * time.Second)}, nil)
	_ = m.handleDocumentUpdated(ctx, events.DocumentUpdatedEvent{RoomID: "team", Source: events.SourceAI, Timestamp: t0.Add(3 * time.Second)}, nil)
	_ = m.handleDocumentUpdated(ctx, events.DocumentUpdatedEvent{RoomID: "team", Source: events.SourceTemplate, Timestamp: t0.Add(4 * time.Second)}, nil)
	_ = m.handleDocumentUpdated(ctx, events.DocumentUpdatedEvent{RoomID: "team", Source: events.SourceTemplate, Timestamp: t0.Add(5 * time.Second)}, nil)
	_ = m.handleEditFailed(ctx, events.EditFailedEvent{RoomID: "team", Reason: "timeout", Timestamp: t0.Add(6 * time.Second)}, nil)
	_ = m.handleMemberLeft(ctx, events.MemberLeftEvent{RoomID: "team", MemberCount: 1, Timestamp: t0.Add(7 * time.Second)}, nil)
	_ = m.handleRoomEvicted(ctx, events.RoomEvictedEvent{RoomID: "team", Timestamp: t0.Add(time.Minute)}, nil)

	got := m.Snapshot()
	want := Snapshot{
		MembersJoined:    2,
		MembersLeft:      1,
		MembersRenamed:   1,
		AIEdits:          1,
		TemplateSwitches: 2,
		EditsFailed:      1,
		RoomsEvicted:     1,
		PeakRoomMembers:  2,
		LastEventAt:      t0.Add(time.Minute),
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestActivityModule_UnknownSourceIgnored(t *testing.T) {
	m := NewModule(&mockLogger{})

	if err := m.handleDocumentUpdated(context.Background(), events.DocumentUpdatedEvent{Source: "manual"}, nil); err != nil {
		t.Fatalf("handleDocumentUpdated() error = %v", err)
	}

	got := m.Snapshot()
	if got.AIEdits != 0 || got.TemplateSwitches != 0 {
		t.Errorf("unknown source counted: %+v", got)
	}
}

func TestCounters_LastEventIsMonotonic(t *testing.T) {
	c := NewCounters()
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	c.touch(t0.Add(time.Hour))
	c.touch(t0)

	if got := c.Snapshot().LastEventAt; !got.Equal(t0.Add(time.Hour)) {
		t.Errorf("LastEventAt = %v, want %v", got, t0.Add(time.Hour))
	}
}

func TestCounters_ConcurrentPeak(t *testing.T) {
	c := NewCounters()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(n int64) {
			defer wg.Done()
			c.observePeak(n)
			c.joined.Add(1)
		}(int64(i))
	}
	wg.Wait()

	snap := c.Snapshot()
	if snap.PeakRoomMembers != 50 {
		t.Errorf("PeakRoomMembers = %d, want 50", snap.PeakRoomMembers)
	}
	if snap.MembersJoined != 50 {
		t.Errorf("MembersJoined = %d, want 50", snap.MembersJoined)
	}
}

func TestActivityModule_Lifecycle(t *testing.T) {
	m := NewModule(&mockLogger{})

	if m.Name() != "activity" {
		t.Errorf("Name() = %q, want %q", m.Name(), "activity")
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := m.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
