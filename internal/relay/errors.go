package relay

import "errors"

var (
	// ErrAlreadyJoined is returned when a live connection issues a second
	// join before leaving its current room.
	ErrAlreadyJoined = errors.New("connection already joined to a room")

	// ErrNotInRoom is returned when a connection publishes without having
	// completed a join.
	ErrNotInRoom = errors.New("connection not joined to any room")

	// ErrEmptyContent is returned when a publish carries no text.
	ErrEmptyContent = errors.New("message content is empty")

	// ErrRoomUnavailable is returned when the relay has been shut down and
	// no longer accepts joins.
	ErrRoomUnavailable = errors.New("room unavailable")
)
