package app

import (
	"net/http"
	"strconv"

	"chatapp/internal/service"
	"chatapp/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatRoomHandler struct {
	chatRoomService service.ChatRoomService
}

func NewChatRoomHandler(chatRoomService service.ChatRoomService) *ChatRoomHandler {
	return &ChatRoomHandler{chatRoomService: chatRoomService}
}

type createPrivateChatBody struct {
	FriendID string `json:"friend_id" binding:"required,uuid"`
}

type createGroupChatBody struct {
	Name        string   `json:"name" binding:"required,min=1,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=500"`
	MemberIDs   []string `json:"member_ids" binding:"omitempty,dive,uuid"`
}

type setNicknameBody struct {
	Nickname *string `json:"nickname" binding:"omitempty,max=100"`
}

// CreatePrivateChat handles creating (or reusing) a one-on-one room
// POST /api/v1/rooms/private
func (h *ChatRoomHandler) CreatePrivateChat(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req createPrivateChatBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	room, err := h.chatRoomService.CreatePrivateChat(userID.(string), req.FriendID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Private chat ready", gin.H{"room": room})
}

// CreateGroupChat handles creating a group room
// POST /api/v1/rooms/group
func (h *ChatRoomHandler) CreateGroupChat(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	var req createGroupChatBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	room, err := h.chatRoomService.CreateGroupChat(userID.(string), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Group chat created successfully", gin.H{"room": room})
}

// JoinRoom handles joining a group room
// POST /api/v1/rooms/:id/join
func (h *ChatRoomHandler) JoinRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	member, err := h.chatRoomService.JoinChatRoom(roomID, userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Joined room successfully", gin.H{"member": member})
}

// LeaveRoom handles leaving a group room
// POST /api/v1/rooms/:id/leave
func (h *ChatRoomHandler) LeaveRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	if err := h.chatRoomService.LeaveChatRoom(roomID, userID.(string)); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Left room successfully", nil)
}

// UpdateRoom handles editing room metadata
// PUT /api/v1/rooms/:id
func (h *ChatRoomHandler) UpdateRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	var req service.UpdateChatRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	room, err := h.chatRoomService.UpdateChatRoom(roomID, userID.(string), req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Room updated successfully", gin.H{"room": room})
}

// ToggleAdmin handles promoting or demoting a member
// PUT /api/v1/rooms/:id/members/:userId/admin
func (h *ChatRoomHandler) ToggleAdmin(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	targetID := c.Param("userId")
	if roomID == "" || targetID == "" {
		util.BadRequest(c, "Room ID and user ID are required")
		return
	}

	isAdmin, err := h.chatRoomService.ToggleAdmin(roomID, userID.(string), targetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Admin status updated", gin.H{"is_admin": isAdmin})
}

// KickMember handles removing a member from a room
// DELETE /api/v1/rooms/:id/members/:userId
func (h *ChatRoomHandler) KickMember(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	targetID := c.Param("userId")
	if roomID == "" || targetID == "" {
		util.BadRequest(c, "Room ID and user ID are required")
		return
	}

	if err := h.chatRoomService.KickMember(roomID, userID.(string), targetID); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Member removed", nil)
}

// ToggleMute handles muting or unmuting a member
// PUT /api/v1/rooms/:id/members/:userId/mute
func (h *ChatRoomHandler) ToggleMute(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	targetID := c.Param("userId")
	if roomID == "" || targetID == "" {
		util.BadRequest(c, "Room ID and user ID are required")
		return
	}

	isMuted, err := h.chatRoomService.ToggleMuteStatus(roomID, userID.(string), targetID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Mute status updated", gin.H{"is_muted": isMuted})
}

// DeleteRoom handles deleting a group room
// DELETE /api/v1/rooms/:id
func (h *ChatRoomHandler) DeleteRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	if err := h.chatRoomService.DeleteChatRoom(roomID, userID.(string)); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Room deleted successfully", nil)
}

// SetNickname handles setting the caller's nickname in a room
// PUT /api/v1/rooms/:id/nickname
func (h *ChatRoomHandler) SetNickname(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	var req setNicknameBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	if err := h.chatRoomService.SetMemberNickname(roomID, userID.(string), req.Nickname); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Nickname updated", nil)
}

// GetRoom handles fetching room details
// GET /api/v1/rooms/:id
func (h *ChatRoomHandler) GetRoom(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	room, err := h.chatRoomService.GetChatRoomDetails(roomID, userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Room retrieved successfully", gin.H{"room": room})
}

// GetUserRooms handles listing the caller's rooms
// GET /api/v1/rooms
func (h *ChatRoomHandler) GetUserRooms(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	limit, offset := parsePagination(c, 20)

	rooms, total, err := h.chatRoomService.GetUserChatRooms(userID.(string), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Rooms retrieved successfully", gin.H{
		"rooms":  rooms,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// GetMembers handles listing room members
// GET /api/v1/rooms/:id/members
func (h *ChatRoomHandler) GetMembers(c *gin.Context) {
	roomID := c.Param("id")
	if roomID == "" {
		util.BadRequest(c, "Room ID is required")
		return
	}

	members, err := h.chatRoomService.GetChatRoomMembers(roomID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Members retrieved successfully", gin.H{
		"members": members,
		"total":   len(members),
	})
}

// SearchRooms handles searching public rooms by name
// GET /api/v1/rooms/search
func (h *ChatRoomHandler) SearchRooms(c *gin.Context) {
	keyword := c.Query("q")
	limit, offset := parsePagination(c, 20)

	rooms, total, err := h.chatRoomService.SearchPublicRooms(keyword, limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Search results retrieved successfully", gin.H{
		"rooms":  rooms,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// parsePagination reads limit/offset query params with sane bounds
func parsePagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}

	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
