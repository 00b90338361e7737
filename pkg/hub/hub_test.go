package hub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records writes and blocks reads until closed.
type fakeConn struct {
	mu     sync.Mutex
	writes []Message
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{closed: make(chan struct{})}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.closed
	return 0, nil, errors.New("closed")
}

func (f *fakeConn) WriteMessage(t int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	mt := JSONMessage
	switch t {
	case websocket.BinaryMessage:
		mt = BinaryMessage
	case websocket.TextMessage:
	default:
		return nil
	}
	f.writes = append(f.writes, Message{Type: mt, Data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.writes...)
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	require.Eventually(t, h.IsRunning, time.Second, time.Millisecond)
	t.Cleanup(cancel)
	return h, cancel
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)

	conns := []*fakeConn{newFakeConn(), newFakeConn()}
	for _, c := range conns {
		go NewClient(h, c).Run()
	}
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, time.Millisecond)

	require.NoError(t, h.BroadcastJSON(map[string]int{"seq": 1}))

	for _, c := range conns {
		require.Eventually(t, func() bool { return len(c.messages()) == 1 }, time.Second, time.Millisecond)
		assert.JSONEq(t, `{"seq":1}`, string(c.messages()[0].Data))
		assert.Equal(t, JSONMessage, c.messages()[0].Type)
	}
}

func TestHub_GreetingFirst(t *testing.T) {
	h, _ := startHub(t)

	c := newFakeConn()
	client := NewClient(h, c, NewJSONMessage([]byte(`"hello"`)))
	assert.NotEmpty(t, client.ID)
	go client.Run()

	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)
	h.Broadcast(NewBinaryMessage([]byte{1, 2}))

	require.Eventually(t, func() bool { return len(c.messages()) == 2 }, time.Second, time.Millisecond)
	msgs := c.messages()
	assert.Equal(t, `"hello"`, string(msgs[0].Data))
	assert.Equal(t, BinaryMessage, msgs[1].Type)
}

func TestHub_Disconnect(t *testing.T) {
	h, _ := startHub(t)

	c := newFakeConn()
	go NewClient(h, c).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	c.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	h, cancel := startHub(t)

	c := newFakeConn()
	go NewClient(h, c).Run()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, time.Millisecond)

	cancel()
	require.Eventually(t, func() bool { return !h.IsRunning() }, time.Second, time.Millisecond)
	assert.Equal(t, 0, h.ClientCount())

	// Registering after stop must not block.
	done := make(chan struct{})
	go func() {
		NewClient(h, newFakeConn())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NewClient blocked on a stopped hub")
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	h := New("idle") // not running
	for i := 0; i < 100; i++ {
		h.Broadcast(NewJSONMessage([]byte("{}")))
	}
	assert.Equal(t, uint64(100-16), h.Dropped())
}
