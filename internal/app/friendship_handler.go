package app

import (
	"net/http"

	"chatapp/internal/service"
	"chatapp/internal/util"

	"github.com/gin-gonic/gin"
)

type FriendshipHandler struct {
	friendshipService service.FriendshipService
}

func NewFriendshipHandler(friendshipService service.FriendshipService) *FriendshipHandler {
	return &FriendshipHandler{friendshipService: friendshipService}
}

type sendFriendRequestBody struct {
	ReceiverID string `json:"receiver_id" binding:"required,uuid"`
}

type setAliasBody struct {
	Alias *string `json:"alias" binding:"omitempty,max=100"`
}

// SendRequest handles sending a friend request
// POST /api/v1/friends/requests
func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req sendFriendRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	friendship, outcome, err := h.friendshipService.SendFriendRequest(userID.(string), req.ReceiverID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	status := http.StatusCreated
	message := "Friend request sent"
	if outcome == service.RequestOutcomeAutoAccepted {
		status = http.StatusOK
		message = "Friend request accepted"
	}

	util.SuccessResponse(c, status, message, gin.H{
		"friendship": friendship,
		"outcome":    outcome,
	})
}

// AcceptRequest handles accepting a pending request from a user
// POST /api/v1/friends/requests/:userId/accept
func (h *FriendshipHandler) AcceptRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requesterID := c.Param("userId")
	if requesterID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	friendship, err := h.friendshipService.AcceptFriendRequest(userID.(string), requesterID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request accepted", gin.H{"friendship": friendship})
}

// DeclineRequest handles declining a pending request from a user
// POST /api/v1/friends/requests/:userId/decline
func (h *FriendshipHandler) DeclineRequest(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requesterID := c.Param("userId")
	if requesterID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	if err := h.friendshipService.DeclineFriendRequest(userID.(string), requesterID); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend request declined", nil)
}

// RemoveFriend handles removing an accepted friend
// DELETE /api/v1/friends/:userId
func (h *FriendshipHandler) RemoveFriend(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendID := c.Param("userId")
	if friendID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	if err := h.friendshipService.RemoveFriend(userID.(string), friendID); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend removed", nil)
}

// BlockUser handles blocking another user
// POST /api/v1/friends/:userId/block
func (h *FriendshipHandler) BlockUser(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	targetID := c.Param("userId")
	if targetID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	friendship, err := h.friendshipService.BlockUser(userID.(string), targetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "User blocked", gin.H{"friendship": friendship})
}

// UnblockUser handles lifting a block
// DELETE /api/v1/friends/:userId/block
func (h *FriendshipHandler) UnblockUser(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	targetID := c.Param("userId")
	if targetID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	if err := h.friendshipService.UnblockUser(userID.(string), targetID); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "User unblocked", nil)
}

// SetAlias handles setting a display alias for a friend
// PUT /api/v1/friends/:userId/alias
func (h *FriendshipHandler) SetAlias(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendID := c.Param("userId")
	if friendID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	var req setAliasBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	if err := h.friendshipService.SetFriendAlias(userID.(string), friendID, req.Alias); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Alias updated", nil)
}

// TogglePin handles pinning or unpinning a friend
// PUT /api/v1/friends/:userId/pin
func (h *FriendshipHandler) TogglePin(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friendID := c.Param("userId")
	if friendID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	pinned, err := h.friendshipService.TogglePinFriend(userID.(string), friendID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pin status updated", gin.H{"pinned": pinned})
}

// GetFriends handles listing accepted friends
// GET /api/v1/friends
func (h *FriendshipHandler) GetFriends(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friends, err := h.friendshipService.GetFriends(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friends retrieved successfully", gin.H{
		"friends": friends,
		"total":   len(friends),
	})
}

// GetPinnedFriends handles listing pinned friends
// GET /api/v1/friends/pinned
func (h *FriendshipHandler) GetPinnedFriends(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	friends, err := h.friendshipService.GetPinnedFriends(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pinned friends retrieved successfully", gin.H{"friends": friends})
}

// GetPendingRequests handles listing requests waiting on the caller
// GET /api/v1/friends/requests
func (h *FriendshipHandler) GetPendingRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requests, err := h.friendshipService.GetPendingRequests(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Pending requests retrieved successfully", gin.H{"requests": requests})
}

// GetSentRequests handles listing requests the caller has sent
// GET /api/v1/friends/requests/sent
func (h *FriendshipHandler) GetSentRequests(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	requests, err := h.friendshipService.GetSentRequests(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Sent requests retrieved successfully", gin.H{"requests": requests})
}

// GetBlockedUsers handles listing users the caller has blocked
// GET /api/v1/friends/blocked
func (h *FriendshipHandler) GetBlockedUsers(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	users, err := h.friendshipService.GetBlockedUsers(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Blocked users retrieved successfully", gin.H{"users": users})
}

// SearchFriends handles searching the caller's friends
// GET /api/v1/friends/search
func (h *FriendshipHandler) SearchFriends(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	keyword := c.Query("q")
	friends, err := h.friendshipService.SearchFriends(userID.(string), keyword)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Search results retrieved successfully", gin.H{"friends": friends})
}

// GetFriendCount handles counting accepted friends
// GET /api/v1/friends/count
func (h *FriendshipHandler) GetFriendCount(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	count, err := h.friendshipService.GetFriendCount(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friend count retrieved successfully", gin.H{"count": count})
}

// GetStatus handles checking the relationship with another user
// GET /api/v1/friends/:userId/status
func (h *FriendshipHandler) GetStatus(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	otherID := c.Param("userId")
	if otherID == "" {
		util.BadRequest(c, "User ID is required")
		return
	}

	status, err := h.friendshipService.GetFriendshipStatus(userID.(string), otherID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Friendship status retrieved successfully", gin.H{"status": status})
}
