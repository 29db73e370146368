package database

import "errors"

var (
	// ErrNotFound is returned when a referenced account, room or
	// conversation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateRoom is returned when a room with the same name
	// already exists. Uniqueness is enforced by the database, so two
	// racing creates resolve to exactly one success.
	ErrDuplicateRoom = errors.New("room already exists")
	// ErrInvalidRoomName is returned for empty or whitespace-only
	// room names.
	ErrInvalidRoomName = errors.New("invalid room name")
	// ErrReservedRoomName is returned for room names that would
	// collide with the direct-conversation namespace.
	ErrReservedRoomName = errors.New("room name uses a reserved prefix")
)
