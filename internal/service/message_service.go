package service

import (
	"fmt"
	"time"

	"chatapp/internal/model"
	"chatapp/internal/repository"
)

type MessageService interface {
	SendMessage(senderID, roomID, content, messageType string) (*model.Message, error)
	ReplyToMessage(senderID, roomID, replyToID, content, messageType string) (*model.Message, error)
	GetRoomMessages(roomID, userID string, limit, offset int) ([]*model.Message, error)
	RecallMessage(messageID, userID string) error
	MarkRoomAsRead(roomID, userID string) error
	GetUnreadCounts(userID string) (map[string]int, error)
}

type messageService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.ChatRoomRepository
	userRepo    repository.UserRepository
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	roomRepo repository.ChatRoomRepository,
	userRepo repository.UserRepository,
) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
	}
}

// SendMessage creates a message after the membership and mute gates
func (s *messageService) SendMessage(senderID, roomID, content, messageType string) (*model.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content cannot be empty", model.ErrInvalidState)
	}
	if messageType == "" {
		messageType = model.MessageTypeText
	}

	if _, err := s.userRepo.FindByID(senderID); err != nil {
		return nil, fmt.Errorf("%w: sender %s", model.ErrUserNotFound, senderID)
	}
	if _, err := s.roomRepo.FindRoomByID(roomID); err != nil {
		return nil, fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	if err := s.requireCanSend(roomID, senderID); err != nil {
		return nil, err
	}

	message := &model.Message{
		ChatRoomID:  roomID,
		SenderID:    senderID,
		Content:     content,
		MessageType: messageType,
		Status:      model.MessageStatusSent,
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if err := s.roomRepo.IncrementUnreadExcept(roomID, senderID); err != nil {
		return nil, fmt.Errorf("failed to update unread counters: %w", err)
	}

	return s.messageRepo.FindByID(message.ID)
}

// ReplyToMessage sends a message referencing an earlier one in the same room
func (s *messageService) ReplyToMessage(senderID, roomID, replyToID, content, messageType string) (*model.Message, error) {
	replyTo, err := s.messageRepo.FindByID(replyToID)
	if err != nil {
		return nil, fmt.Errorf("%w: reply target %s", model.ErrMessageNotFound, replyToID)
	}
	if replyTo.ChatRoomID != roomID {
		return nil, fmt.Errorf("%w: reply target is in another room", model.ErrInvalidState)
	}

	message, err := s.SendMessage(senderID, roomID, content, messageType)
	if err != nil {
		return nil, err
	}

	message.ReplyToID = &replyTo.ID
	if err := s.messageRepo.Update(message); err != nil {
		return nil, fmt.Errorf("failed to link reply: %w", err)
	}
	return message, nil
}

// GetRoomMessages lists room history for members
func (s *messageService) GetRoomMessages(roomID, userID string, limit, offset int) ([]*model.Message, error) {
	isMember, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !isMember {
		return nil, fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, userID, roomID)
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	return s.messageRepo.FindByRoomID(roomID, limit, offset)
}

// RecallMessage lets a sender withdraw a recent message. The row stays so
// the history shows something was recalled.
func (s *messageService) RecallMessage(messageID, userID string) error {
	message, err := s.messageRepo.FindByID(messageID)
	if err != nil {
		return fmt.Errorf("%w: message %s", model.ErrMessageNotFound, messageID)
	}

	if message.SenderID != userID {
		return fmt.Errorf("%w: user %s did not send message %s", model.ErrPermissionDenied, userID, messageID)
	}

	if time.Since(message.CreatedAt) > model.RecallWindow {
		return fmt.Errorf("%w: message %s", model.ErrRecallExpired, messageID)
	}

	message.Status = model.MessageStatusRecalled
	message.Content = model.RecalledContent
	if err := s.messageRepo.Update(message); err != nil {
		return fmt.Errorf("failed to recall message: %w", err)
	}
	return nil
}

// MarkRoomAsRead stamps the latest message as read and clears the counter
func (s *messageService) MarkRoomAsRead(roomID, userID string) error {
	latest, err := s.messageRepo.LatestInRoom(roomID)
	if err != nil {
		// An empty room still clears the counter.
		return s.roomRepo.MarkRead(roomID, userID, "")
	}
	return s.roomRepo.MarkRead(roomID, userID, latest.ID)
}

// GetUnreadCounts returns per-room unread counts for a user
func (s *messageService) GetUnreadCounts(userID string) (map[string]int, error) {
	return s.roomRepo.UnreadCountsByUserID(userID)
}

// requireCanSend rejects non-members and muted members before any message
// record is created.
func (s *messageService) requireCanSend(roomID, senderID string) error {
	isMember, err := s.roomRepo.IsMember(roomID, senderID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, senderID, roomID)
	}

	isMuted, err := s.roomRepo.IsMuted(roomID, senderID)
	if err != nil {
		return err
	}
	if isMuted {
		return fmt.Errorf("%w: user %s in room %s", model.ErrMuted, senderID, roomID)
	}
	return nil
}
