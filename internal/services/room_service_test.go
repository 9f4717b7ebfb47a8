package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"north-backend/internal/models"
	"north-backend/internal/relay"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRoomRepo struct {
	rooms  map[uint]*models.ChatRoom
	nextID uint
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rooms: map[uint]*models.ChatRoom{}}
}

func (f *fakeRoomRepo) Create(ctx context.Context, room *models.ChatRoom) error {
	f.nextID++
	room.ID = f.nextID
	f.rooms[room.ID] = room
	return nil
}

func (f *fakeRoomRepo) FindByID(ctx context.Context, id uint) (*models.ChatRoom, error) {
	room, ok := f.rooms[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return room, nil
}

func (f *fakeRoomRepo) ListByParticipant(ctx context.Context, userID uint) ([]*models.ChatRoom, error) {
	var out []*models.ChatRoom
	for _, room := range f.rooms {
		for i := range room.Participants {
			if room.Participants[i].ID == userID {
				out = append(out, room)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return false, nil
	}
	for i := range room.Participants {
		if room.Participants[i].ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoomRepo) AddParticipant(ctx context.Context, roomID, userID uint) error {
	room, ok := f.rooms[roomID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	room.Participants = append(room.Participants, models.User{ID: userID})
	return nil
}

func newRoomServiceUnderTest(t *testing.T) (*RoomService, *fakeRoomRepo, *fakeMessageRepo) {
	t.Helper()

	users := &fakeUserRepo{users: map[uint]*models.User{
		1: {ID: 1, Email: "alice@example.com", Username: "alice@example.com"},
		2: {ID: 2, Email: "bob@example.com", Username: "bob@example.com"},
	}}
	rooms := newFakeRoomRepo()
	messages := &fakeMessageRepo{}

	store := NewChatStore(messages, users)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := relay.New(store, store, nil, logger)

	return NewRoomService(rooms, messages, users, r), rooms, messages
}

func TestCreateRoomAlwaysIncludesCreator(t *testing.T) {
	svc, repo, _ := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "general",
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)

	stored := repo.rooms[room.ID]
	require.NotNil(t, stored)

	ids := participantIDs(stored)
	assert.ElementsMatch(t, []uint{1, 2}, ids)
}

func TestCreateRoomSkipsUnknownAndDuplicateParticipants(t *testing.T) {
	svc, _, _ := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "general",
		ParticipantIDs: []uint{1, 2, 2, 99},
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{1, 2}, participantIDs(room))
}

func TestGetRoomRejectsNonParticipant(t *testing.T) {
	svc, _, _ := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "private",
		ParticipantIDs: []uint{},
	})
	require.NoError(t, err)

	_, err = svc.GetRoom(context.Background(), room.ID, 2)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.GetRoom(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSendMessagePersistsForParticipant(t *testing.T) {
	svc, _, messages := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "general",
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)

	resp, err := svc.SendMessage(context.Background(), room.ID, 1, "hello")
	require.NoError(t, err)

	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, uint(1), resp.User.ID)

	require.Len(t, messages.created, 1)
	assert.Equal(t, room.ID, messages.created[0].RoomID)
}

func TestSendMessageRejectsNonParticipantAndEmptyContent(t *testing.T) {
	svc, _, messages := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "general",
		ParticipantIDs: []uint{},
	})
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), room.ID, 2, "hello")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.SendMessage(context.Background(), room.ID, 1, "   ")
	assert.ErrorIs(t, err, relay.ErrEmptyContent)

	assert.Empty(t, messages.created)
}

func TestListMessagesReturnsRoomHistoryInOrder(t *testing.T) {
	svc, _, _ := newRoomServiceUnderTest(t)

	room, err := svc.CreateRoom(context.Background(), 1, models.CreateRoomRequest{
		Name:           "general",
		ParticipantIDs: []uint{2},
	})
	require.NoError(t, err)

	for _, content := range []string{"first", "second", "third"} {
		_, err := svc.SendMessage(context.Background(), room.ID, 1, content)
		require.NoError(t, err)
	}

	history, err := svc.ListMessages(context.Background(), room.ID, 2)
	require.NoError(t, err)

	require.Len(t, history, 3)
	assert.Equal(t, "first", history[0].Content)
	assert.Equal(t, "second", history[1].Content)
	assert.Equal(t, "third", history[2].Content)
}

func TestListUsersExcludesCaller(t *testing.T) {
	svc, _, _ := newRoomServiceUnderTest(t)

	users, err := svc.ListUsers(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.Equal(t, uint(2), users[0].ID)
}

func participantIDs(room *models.ChatRoom) []uint {
	ids := make([]uint, 0, len(room.Participants))
	for i := range room.Participants {
		ids = append(ids, room.Participants[i].ID)
	}
	return ids
}
