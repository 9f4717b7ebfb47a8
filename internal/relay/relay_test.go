package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory MessageStore recording creation order.
type memStore struct {
	mu     sync.Mutex
	msgs   []*Message
	nextID uint
	err    error
}

func (s *memStore) CreateMessage(_ context.Context, roomID string, userID uint, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.nextID++
	msg := &Message{
		ID:        s.nextID,
		RoomID:    roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memStore) byRoom(roomID string) []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Message
	for _, m := range s.msgs {
		if m.RoomID == roomID {
			out = append(out, m)
		}
	}
	return out
}

// staticUsers resolves usernames from a fixed map.
type staticUsers map[uint]string

func (u staticUsers) Username(_ context.Context, userID uint) (string, error) {
	name, ok := u[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

type recordingSink struct {
	mu    sync.Mutex
	msgs  []*Message
	names []string
	err   error
}

func (s *recordingSink) MessageCreated(_ context.Context, msg *Message, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	s.names = append(s.names, username)
	return s.err
}

func newTestRelay(store *memStore) *Relay {
	return New(store, staticUsers{1: "alice", 2: "bob", 3: "carol"}, nil, nil)
}

// newTestClient builds a client without running its pumps. Tests inspect
// the send buffer directly.
func newTestClient(r *Relay, userID uint) *Client {
	return NewClient(r, &mockTransport{}, userID)
}

// drain empties a client's send buffer and returns the raw frames.
func drain(c *Client) [][]byte {
	var frames [][]byte
	for {
		select {
		case f := <-c.send:
			frames = append(frames, f)
		default:
			return frames
		}
	}
}

func roomCount(r *Relay) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func TestJoinRegistersMembers(t *testing.T) {
	r := newTestRelay(&memStore{})
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)

	require.NoError(t, r.Join(a, "general"))
	require.NoError(t, r.Join(b, "general"))

	assert.Len(t, r.Members("general"), 2)
}

func TestJoinTwiceFails(t *testing.T) {
	r := newTestRelay(&memStore{})
	a := newTestClient(r, 1)

	require.NoError(t, r.Join(a, "general"))
	assert.ErrorIs(t, r.Join(a, "general"), ErrAlreadyJoined)
	assert.ErrorIs(t, r.Join(a, "other"), ErrAlreadyJoined)
	assert.Len(t, r.Members("general"), 1)
}

func TestLeavePrunesEmptyRoom(t *testing.T) {
	r := newTestRelay(&memStore{})
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)

	require.NoError(t, r.Join(a, "r1"))
	require.NoError(t, r.Join(b, "r1"))

	r.Leave(a)
	assert.Len(t, r.Members("r1"), 1)

	r.Leave(b)
	assert.Empty(t, r.Members("r1"))
	assert.Zero(t, roomCount(r), "registry must not hold empty rooms")

	// no-op on a connection that already left
	r.Leave(a)
}

func TestPublishFansOutToAllMembersIncludingSender(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)

	require.NoError(t, r.Join(a, "general"))
	require.NoError(t, r.Join(b, "general"))

	msg, err := r.Publish(context.Background(), a, "hi")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "general", msg.RoomID)
	assert.Equal(t, uint(1), msg.UserID)
	assert.False(t, msg.CreatedAt.IsZero())

	for _, c := range []*Client{a, b} {
		frames := drain(c)
		require.Len(t, frames, 1)
		assert.JSONEq(t, `{"message":"hi","user_id":1,"username":"alice"}`, string(frames[0]))
	}

	persisted := store.byRoom("general")
	require.Len(t, persisted, 1)
	assert.Equal(t, "hi", persisted[0].Content)
}

func TestPublishEmptyContent(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)
	a := newTestClient(r, 1)
	require.NoError(t, r.Join(a, "general"))

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := r.Publish(context.Background(), a, content)
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
	assert.Empty(t, store.msgs)
	assert.Empty(t, drain(a))
}

func TestPublishWithoutJoin(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)
	a := newTestClient(r, 1)

	_, err := r.Publish(context.Background(), a, "hi")
	assert.ErrorIs(t, err, ErrNotInRoom)
	assert.Empty(t, store.msgs)
}

func TestPublishAfterLeave(t *testing.T) {
	r := newTestRelay(&memStore{})
	a := newTestClient(r, 1)
	require.NoError(t, r.Join(a, "general"))
	r.Leave(a)

	_, err := r.Publish(context.Background(), a, "hi")
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestPublishStoreFailureAbortsBroadcast(t *testing.T) {
	store := &memStore{err: errors.New("connection refused")}
	r := newTestRelay(store)
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)
	require.NoError(t, r.Join(a, "general"))
	require.NoError(t, r.Join(b, "general"))

	_, err := r.Publish(context.Background(), a, "hi")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyContent)

	assert.Empty(t, drain(a), "no partial broadcast on store failure")
	assert.Empty(t, drain(b), "no partial broadcast on store failure")
	assert.Len(t, r.Members("general"), 2, "store failure must not evict members")
}

func TestPublishUnknownUserFallback(t *testing.T) {
	r := newTestRelay(&memStore{})
	c := newTestClient(r, 99) // not in the resolver map
	require.NoError(t, r.Join(c, "general"))

	_, err := r.Publish(context.Background(), c, "hello")
	require.NoError(t, err)

	frames := drain(c)
	require.Len(t, frames, 1)

	var out OutboundFrame
	require.NoError(t, json.Unmarshal(frames[0], &out))
	assert.Equal(t, "Unknown User", out.Username)
}

func TestSlowRecipientDropped(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)
	sender := newTestClient(r, 1)
	slow := newTestClient(r, 2)
	require.NoError(t, r.Join(sender, "general"))
	require.NoError(t, r.Join(slow, "general"))

	// Saturate the slow member's buffer so the next fan-out push fails.
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.trySend([]byte("x")))
	}

	_, err := r.Publish(context.Background(), sender, "hi")
	require.NoError(t, err, "one dead recipient must not fail the publish")

	members := r.Members("general")
	require.Len(t, members, 1)
	assert.Same(t, sender, members[0])

	select {
	case <-slow.done:
	default:
		t.Fatal("slow recipient was not closed")
	}

	require.Len(t, store.byRoom("general"), 1, "message persisted despite the drop")
}

func TestConcurrentPublishSameRoomOrdering(t *testing.T) {
	const perPublisher = 40

	store := &memStore{}
	r := newTestRelay(store)
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)
	observer := newTestClient(r, 3)
	require.NoError(t, r.Join(a, "general"))
	require.NoError(t, r.Join(b, "general"))
	require.NoError(t, r.Join(observer, "general"))

	var wg sync.WaitGroup
	for _, c := range []*Client{a, b} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				_, err := r.Publish(context.Background(), c, fmt.Sprintf("u%d-%d", c.userID, i))
				assert.NoError(t, err)
				drain(c) // keep own buffer from filling
			}
		}(c)
	}
	wg.Wait()

	persisted := store.byRoom("general")
	require.Len(t, persisted, 2*perPublisher)

	var got []string
	for _, f := range drain(observer) {
		var out OutboundFrame
		require.NoError(t, json.Unmarshal(f, &out))
		got = append(got, out.Message)
	}
	require.Len(t, got, 2*perPublisher)

	// Broadcast order observed by a member equals persisted order.
	for i, m := range persisted {
		assert.Equal(t, m.Content, got[i])
	}
}

func TestConcurrentPublishDifferentRooms(t *testing.T) {
	const perRoom = 50

	store := &memStore{}
	r := newTestRelay(store)
	a := newTestClient(r, 1)
	b := newTestClient(r, 2)
	require.NoError(t, r.Join(a, "r1"))
	require.NoError(t, r.Join(b, "r2"))

	var wg sync.WaitGroup
	for _, c := range []*Client{a, b} {
		wg.Add(1)
		go func(c *Client) {
			defer wg.Done()
			for i := 0; i < perRoom; i++ {
				_, err := r.Publish(context.Background(), c, fmt.Sprintf("m%d", i))
				assert.NoError(t, err)
				drain(c)
			}
		}(c)
	}
	wg.Wait()

	assert.Len(t, store.byRoom("r1"), perRoom)
	assert.Len(t, store.byRoom("r2"), perRoom)
}

func TestPublishToWithoutLiveMembers(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)

	msg, err := r.PublishTo(context.Background(), "42", 1, "archived hello")
	require.NoError(t, err)
	assert.Equal(t, "42", msg.RoomID)
	require.Len(t, store.byRoom("42"), 1)
	assert.Zero(t, roomCount(r), "publish alone must not materialize a room")
}

func TestPublishToFansOutToLiveMembers(t *testing.T) {
	store := &memStore{}
	r := newTestRelay(store)
	b := newTestClient(r, 2)
	require.NoError(t, r.Join(b, "general"))

	_, err := r.PublishTo(context.Background(), "general", 1, "via rest")
	require.NoError(t, err)

	frames := drain(b)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"message":"via rest","user_id":1,"username":"alice"}`, string(frames[0]))
}

func TestEventSinkBestEffort(t *testing.T) {
	store := &memStore{}
	sink := &recordingSink{}
	r := New(store, staticUsers{1: "alice"}, sink, nil)
	a := newTestClient(r, 1)
	require.NoError(t, r.Join(a, "general"))

	_, err := r.Publish(context.Background(), a, "hi")
	require.NoError(t, err)
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, "alice", sink.names[0])

	// A failing sink must not surface to the publisher.
	sink.err = errors.New("broker down")
	_, err = r.Publish(context.Background(), a, "hi again")
	assert.NoError(t, err)
	assert.Len(t, store.byRoom("general"), 2)
}

func TestShutdownRejectsJoins(t *testing.T) {
	r := newTestRelay(&memStore{})
	a := newTestClient(r, 1)
	require.NoError(t, r.Join(a, "general"))

	r.Shutdown()

	b := newTestClient(r, 2)
	assert.ErrorIs(t, r.Join(b, "general"), ErrRoomUnavailable)

	select {
	case <-a.done:
	default:
		t.Fatal("shutdown did not close live connections")
	}
}

func TestConcurrentJoinLeaveChurn(t *testing.T) {
	r := newTestRelay(&memStore{})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			room := fmt.Sprintf("r%d", n%3)
			for j := 0; j < 50; j++ {
				c := newTestClient(r, uint(n))
				assert.NoError(t, r.Join(c, room))
				r.Leave(c)
			}
		}(i)
	}
	wg.Wait()

	assert.Zero(t, roomCount(r), "all rooms pruned after the churn settles")
}
