package model

import "errors"

// Domain errors shared by services and repositories. Services wrap these
// with fmt.Errorf("%w: ...") to attach ids; handlers match with errors.Is.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrFriendshipNotFound = errors.New("friendship not found")
	ErrRoomNotFound       = errors.New("chat room not found")
	ErrMessageNotFound    = errors.New("message not found")

	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state for this operation")
	ErrSelfReference    = errors.New("cannot target yourself")

	ErrAlreadyFriends   = errors.New("already friends")
	ErrDuplicateRequest = errors.New("friend request already pending")
	ErrNotFriends       = errors.New("not friends")
	ErrNotBlocked       = errors.New("user is not blocked")
	ErrBlocked          = errors.New("relationship is blocked")

	ErrAlreadyMember       = errors.New("already a member of this room")
	ErrNotMember           = errors.New("not a member of this room")
	ErrRoomFull            = errors.New("chat room is full")
	ErrPrivateRoom         = errors.New("cannot join a private room")
	ErrCannotLeavePrivate  = errors.New("cannot leave a private chat")
	ErrCannotKickOwner     = errors.New("cannot kick the room creator")
	ErrCannotDeletePrivate = errors.New("cannot delete a private chat")
	ErrMuted               = errors.New("you are muted in this room")

	ErrRecallExpired = errors.New("message is too old to recall")
)
