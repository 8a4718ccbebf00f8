package domain

import "errors"

var (
	// ErrDuplicateMember is returned when adding a user already in the member set.
	ErrDuplicateMember = errors.New("user is already a member of this room")
	// ErrRoomFull is returned when the member set reached settings.maxMembers.
	ErrRoomFull = errors.New("room is full")
	// ErrRoomClosed is returned for mutations on a closed room.
	ErrRoomClosed = errors.New("room is closed")
	// ErrInvalidStateTransition is returned for illegal room status transitions.
	ErrInvalidStateTransition = errors.New("invalid room state transition")
	// ErrNotAParticipant is returned when a user is not in the session's participant set.
	ErrNotAParticipant = errors.New("user is not a participant in this quiz")
)
