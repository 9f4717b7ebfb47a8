package relay

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport is an in-memory Transport. Inbound frames are fed through
// a channel; written frames are recorded.
type mockTransport struct {
	mu      sync.Mutex
	inbound chan []byte
	written [][]byte
	closed  bool
}

func newMockTransport(frames ...[]byte) *mockTransport {
	in := make(chan []byte, len(frames))
	for _, f := range frames {
		in <- f
	}
	close(in)
	return &mockTransport{inbound: in}
}

func (m *mockTransport) ReadMessage() (int, []byte, error) {
	if m.inbound == nil {
		return 0, nil, websocket.ErrCloseSent
	}
	frame, ok := <-m.inbound
	if !ok {
		// Abnormal termination: transport dropped without a close frame.
		return 0, nil, websocket.ErrCloseSent
	}
	return websocket.TextMessage, frame, nil
}

func (m *mockTransport) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return websocket.ErrCloseSent
	}
	if messageType == websocket.TextMessage {
		m.written = append(m.written, data)
	}
	return nil
}

func (m *mockTransport) SetReadLimit(int64)                {}
func (m *mockTransport) SetReadDeadline(time.Time) error   { return nil }
func (m *mockTransport) SetWriteDeadline(time.Time) error  { return nil }
func (m *mockTransport) SetPongHandler(func(string) error) {}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestReadPumpPublishesInboundFrames(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)

	conn := newMockTransport([]byte(`{"message":"hi","user_id":1}`))
	c := NewClient(r, conn, 1)
	require.NoError(t, r.Join(c, "general"))

	c.ReadPump() // returns once the inbound channel is exhausted

	persisted := store.byRoom("general")
	require.Len(t, persisted, 1)
	assert.Equal(t, "hi", persisted[0].Content)
	assert.Equal(t, uint(1), persisted[0].UserID)

	frames := drain(c)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"message":"hi","user_id":1,"username":"alice"}`, string(frames[0]))
}

func TestReadPumpLeavesOnAbnormalDisconnect(t *testing.T) {
	r := newTestRelay(&memStore{})

	conn := newMockTransport() // drops immediately, no close handshake
	c := NewClient(r, conn, 1)
	require.NoError(t, r.Join(c, "r1"))

	c.ReadPump()

	assert.Empty(t, r.Members("r1"), "members snapshot must not include a dropped connection")
	assert.True(t, conn.isClosed())
}

func TestReadPumpReportsInputErrorsToSenderOnly(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)

	conn := newMockTransport(
		[]byte(`{"message":"","user_id":1}`),
		[]byte(`not json`),
	)
	c := NewClient(r, conn, 1)
	other := newTestClient(r, 2)
	require.NoError(t, r.Join(c, "general"))
	require.NoError(t, r.Join(other, "general"))

	c.ReadPump()

	assert.Empty(t, store.msgs)
	assert.Empty(t, drain(other), "input errors are never broadcast")

	frames := drain(c)
	require.Len(t, frames, 2)
	for _, f := range frames {
		var ef ErrorFrame
		require.NoError(t, json.Unmarshal(f, &ef))
		assert.NotEmpty(t, ef.Error)
	}
}

func TestWritePumpFlushesSendBuffer(t *testing.T) {
	r := newTestRelay(&memStore{})
	conn := newMockTransport()
	c := NewClient(r, conn, 1)

	require.True(t, c.trySend([]byte(`{"message":"one"}`)))
	require.True(t, c.trySend([]byte(`{"message":"two"}`)))

	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	// Close once the buffer has drained onto the transport.
	assert.Eventually(t, func() bool {
		conn.mu.Lock()
		defer conn.mu.Unlock()
		return len(conn.written) == 2
	}, time.Second, 5*time.Millisecond)

	c.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not exit after close")
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, `{"message":"one"}`, string(conn.written[0]))
	assert.Equal(t, `{"message":"two"}`, string(conn.written[1]))
}

func TestTrySendAfterClose(t *testing.T) {
	r := newTestRelay(&memStore{})
	c := newTestClient(r, 1)
	c.Close()
	assert.False(t, c.trySend([]byte("late")))
}
