package app

import (
	"errors"
	"net/http"

	"chatapp/internal/model"
	"chatapp/internal/util"

	"github.com/gin-gonic/gin"
)

// statusFromError maps service errors to HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrFriendshipNotFound),
		errors.Is(err, model.ErrRoomNotFound),
		errors.Is(err, model.ErrMessageNotFound),
		errors.Is(err, model.ErrNotMember),
		errors.Is(err, model.ErrNotBlocked),
		errors.Is(err, model.ErrNotFriends):
		return http.StatusNotFound
	case errors.Is(err, model.ErrPermissionDenied),
		errors.Is(err, model.ErrBlocked),
		errors.Is(err, model.ErrMuted),
		errors.Is(err, model.ErrCannotKickOwner),
		errors.Is(err, model.ErrCannotLeavePrivate),
		errors.Is(err, model.ErrCannotDeletePrivate):
		return http.StatusForbidden
	case errors.Is(err, model.ErrAlreadyFriends),
		errors.Is(err, model.ErrDuplicateRequest),
		errors.Is(err, model.ErrAlreadyMember),
		errors.Is(err, model.ErrRoomFull),
		errors.Is(err, model.ErrPrivateRoom):
		return http.StatusConflict
	case errors.Is(err, model.ErrSelfReference),
		errors.Is(err, model.ErrInvalidState),
		errors.Is(err, model.ErrRecallExpired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the error response with the mapped status
func handleServiceError(c *gin.Context, err error) {
	util.ErrorResponse(c, statusFromError(err), err.Error(), nil)
}
