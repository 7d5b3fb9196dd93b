package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	writeErr error
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type event struct {
	Kind string `json:"kind"`
	N    int    `json:"n"`
}

func drain(c *Client) []event {
	var out []event
	for {
		select {
		case data := <-c.send:
			var ev event
			_ = json.Unmarshal(data, &ev)
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestHub_BroadcastExcludesSender(t *testing.T) {
	hub := NewHub(&mockLogger{})
	a := NewClient("a", "room1", &fakeConn{}, 8)
	b := NewClient("b", "room1", &fakeConn{}, 8)
	other := NewClient("c", "room2", &fakeConn{}, 8)
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)

	n := hub.Broadcast("room1", event{Kind: "hello"}, "a")
	assert.Equal(t, 1, n)
	assert.Empty(t, drain(a))
	assert.Equal(t, []event{{Kind: "hello"}}, drain(b))
	assert.Empty(t, drain(other))

	assert.Equal(t, 2, hub.Broadcast("room1", event{Kind: "all"}, ""))
}

func TestHub_PreservesOrder(t *testing.T) {
	hub := NewHub(&mockLogger{})
	c := NewClient("a", "room1", &fakeConn{}, 16)
	hub.Register(c)

	for i := 0; i < 10; i++ {
		hub.Broadcast("room1", event{Kind: "n", N: i}, "")
	}

	got := drain(c)
	require.Len(t, got, 10)
	for i, ev := range got {
		assert.Equal(t, i, ev.N)
	}
}

func TestHub_FullQueueClosesClient(t *testing.T) {
	hub := NewHub(&mockLogger{})
	conn := &fakeConn{}
	slow := NewClient("slow", "room1", conn, 1)
	hub.Register(slow)

	assert.Equal(t, 1, hub.Broadcast("room1", event{Kind: "one"}, ""))
	assert.Equal(t, 0, hub.Broadcast("room1", event{Kind: "two"}, ""))
	assert.True(t, slow.Closed())
	assert.True(t, conn.isClosed())

	// closed clients are skipped until unregistered
	assert.Equal(t, 0, hub.Broadcast("room1", event{Kind: "three"}, ""))
}

func TestHub_SendAndUnregister(t *testing.T) {
	hub := NewHub(&mockLogger{})
	c := NewClient("a", "room1", &fakeConn{}, 8)
	hub.Register(c)

	assert.True(t, hub.Send("a", event{Kind: "private"}))
	assert.False(t, hub.Send("missing", event{Kind: "private"}))
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, hub.RoomClientCount("room1"))

	hub.Unregister("a")
	hub.Unregister("a")
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomClientCount("room1"))
	assert.False(t, hub.Send("a", event{Kind: "private"}))
}

func TestHub_CloseAll(t *testing.T) {
	hub := NewHub(&mockLogger{})
	conns := []*fakeConn{{}, {}}
	hub.Register(NewClient("a", "r", conns[0], 8))
	hub.Register(NewClient("b", "r", conns[1], 8))

	assert.Equal(t, 2, hub.CloseAll())
	assert.Equal(t, 0, hub.ClientCount())
	for _, c := range conns {
		assert.True(t, c.isClosed())
	}
}

func TestClient_WritePump(t *testing.T) {
	conn := &fakeConn{}
	c := NewClient("a", "r", conn, 8)

	done := make(chan error, 1)
	go func() { done <- c.WritePump(context.Background()) }()

	for i := 0; i < 3; i++ {
		require.True(t, c.Enqueue([]byte(`{"kind":"x"}`)))
	}
	assert.Eventually(t, func() bool { return conn.count() == 3 }, time.Second, 5*time.Millisecond)

	c.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WritePump did not stop after Close")
	}
	assert.False(t, c.Enqueue([]byte("late")))
}

func TestClient_WritePumpStopsOnWriteError(t *testing.T) {
	conn := &fakeConn{writeErr: errors.New("broken pipe")}
	c := NewClient("a", "r", conn, 8)
	require.True(t, c.Enqueue([]byte("x")))

	err := c.WritePump(context.Background())
	assert.EqualError(t, err, "broken pipe")
	assert.True(t, c.Closed())
}

func TestClient_WritePumpStopsOnContext(t *testing.T) {
	c := NewClient("a", "r", &fakeConn{}, 8)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, c.WritePump(ctx), context.Canceled)
	assert.True(t, c.Closed())
}

func TestModule_StopClosesClients(t *testing.T) {
	m := NewModule(&mockLogger{})
	conn := &fakeConn{}
	m.Hub().Register(NewClient("a", "r", conn, 8))

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Health(context.Background()).Healthy)
	require.NoError(t, m.Stop(context.Background()))
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, m.Hub().ClientCount())
}
