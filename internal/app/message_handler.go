package app

import (
	"net/http"

	"chatapp/internal/model"
	"chatapp/internal/service"
	"chatapp/internal/util"

	"github.com/gin-gonic/gin"
)

type MessageHandler struct {
	messageService service.MessageService
}

func NewMessageHandler(messageService service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService}
}

type sendMessageBody struct {
	Content     string `json:"content" binding:"required,max=4000"`
	MessageType string `json:"message_type" binding:"omitempty,oneof=text image file system"`
	ReplyToID   string `json:"reply_to_id" binding:"omitempty,uuid"`
}

// SendMessage handles posting a message to a room
// POST /api/v1/rooms/:id/messages
func (h *MessageHandler) SendMessage(c *gin.Context) {
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

	var req sendMessageBody
	if err := c.ShouldBindJSON(&req); err != nil {
		util.BadRequest(c, err.Error())
		return
	}

	messageType := req.MessageType
	if messageType == "" {
		messageType = model.MessageTypeText
	}

	var message *model.Message
	var err error
	if req.ReplyToID != "" {
		message, err = h.messageService.ReplyToMessage(userID.(string), roomID, req.ReplyToID, req.Content, messageType)
	} else {
		message, err = h.messageService.SendMessage(userID.(string), roomID, req.Content, messageType)
	}
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusCreated, "Message sent", gin.H{"message": message})
}

// GetMessages handles listing a room's message history
// GET /api/v1/rooms/:id/messages
func (h *MessageHandler) GetMessages(c *gin.Context) {
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

	limit, offset := parsePagination(c, 50)

	messages, err := h.messageService.GetRoomMessages(roomID, userID.(string), limit, offset)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Messages retrieved successfully", gin.H{
		"messages": messages,
		"limit":    limit,
		"offset":   offset,
	})
}

// RecallMessage handles recalling a recently sent message
// POST /api/v1/messages/:id/recall
func (h *MessageHandler) RecallMessage(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	messageID := c.Param("id")
	if messageID == "" {
		util.BadRequest(c, "Message ID is required")
		return
	}

	if err := h.messageService.RecallMessage(messageID, userID.(string)); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Message recalled", nil)
}

// MarkRead handles marking a room as read up to its latest message
// POST /api/v1/rooms/:id/read
func (h *MessageHandler) MarkRead(c *gin.Context) {
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

	if err := h.messageService.MarkRoomAsRead(roomID, userID.(string)); err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Room marked as read", nil)
}

// GetUnreadCounts handles returning per-room unread counters
// GET /api/v1/messages/unread-counts
func (h *MessageHandler) GetUnreadCounts(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		util.Unauthorized(c, "User not authenticated")
		return
	}

	counts, err := h.messageService.GetUnreadCounts(userID.(string))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	util.SuccessResponse(c, http.StatusOK, "Unread counts retrieved successfully", gin.H{"counts": counts})
}
