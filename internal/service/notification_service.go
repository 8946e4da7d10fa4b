package service

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"chatapp/internal/model"
	"chatapp/internal/repository"
	"chatapp/internal/util"
)

type NotificationService interface {
	SendFriendRequestNotification(receiverID, senderID, senderName, friendshipID string) error
	SendFriendAcceptedNotification(receiverID, senderID, senderName, friendshipID string) error
	SendRoomKickedNotification(targetUserID, operatorID, roomID, roomName string) error
	GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error)
	GetUnreadNotifications(userID string) ([]*model.Notification, error)
	GetUnreadCount(userID string) (int64, error)
	MarkAsRead(notificationID, userID string) error
	MarkAllAsRead(userID string) error
	DeleteNotification(notificationID, userID string) error
	SetWSHub(hub interface {
		BroadcastToUser(string, map[string]interface{})
	})
}

type notificationService struct {
	notifRepo repository.NotificationRepository
	rabbitMQ  *util.RabbitMQClient
	wsHub     interface {
		BroadcastToUser(string, map[string]interface{})
	}
}

// NotificationMessage is the payload published to RabbitMQ
type NotificationMessage struct {
	UserID    string                 `json:"user_id"`
	Type      string                 `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

const (
	NotificationQueueName  = "notification_queue"
	NotificationExchange   = "notification_exchange"
	NotificationRoutingKey = "notification"
)

func NewNotificationService(notifRepo repository.NotificationRepository, rabbitMQ *util.RabbitMQClient) NotificationService {
	return &notificationService{
		notifRepo: notifRepo,
		rabbitMQ:  rabbitMQ,
	}
}

// SetWSHub sets the WebSocket hub for realtime pushes
func (s *notificationService) SetWSHub(hub interface {
	BroadcastToUser(string, map[string]interface{})
}) {
	s.wsHub = hub
}

// sendNotification persists the notification, then fans it out over
// RabbitMQ (durable path) and the WebSocket hub (realtime path).
func (s *notificationService) sendNotification(userID, notifType, title, message string, data map[string]interface{}) error {
	notification := &model.Notification{
		UserID:  userID,
		Type:    notifType,
		Title:   title,
		Message: message,
	}

	if data != nil {
		if senderID, ok := data["sender_id"].(string); ok {
			notification.SenderID = &senderID
		}
		if targetID, ok := data["target_id"].(string); ok {
			notification.TargetID = &targetID
		}
		if dataJSON, err := json.Marshal(data); err == nil {
			notification.Data = string(dataJSON)
		}
	}

	if err := s.notifRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.rabbitMQ != nil {
		msg := NotificationMessage{
			UserID:    userID,
			Type:      notifType,
			Title:     title,
			Message:   message,
			Data:      data,
			Timestamp: time.Now(),
		}
		if body, err := json.Marshal(msg); err == nil {
			if err := s.rabbitMQ.Publish(NotificationExchange, NotificationRoutingKey, body); err != nil {
				log.Printf("Failed to publish notification: %v", err)
			}
		}
	}

	if s.wsHub != nil {
		s.wsHub.BroadcastToUser(userID, map[string]interface{}{
			"type":    "notification",
			"subtype": notifType,
			"title":   title,
			"message": message,
			"data":    data,
		})
	}

	return nil
}

func (s *notificationService) SendFriendRequestNotification(receiverID, senderID, senderName, friendshipID string) error {
	return s.sendNotification(
		receiverID,
		model.NotificationTypeFriendRequest,
		"New friend request",
		fmt.Sprintf("%s sent you a friend request", senderName),
		map[string]interface{}{
			"sender_id": senderID,
			"target_id": friendshipID,
		},
	)
}

func (s *notificationService) SendFriendAcceptedNotification(receiverID, senderID, senderName, friendshipID string) error {
	return s.sendNotification(
		receiverID,
		model.NotificationTypeFriendAccepted,
		"Friend request accepted",
		fmt.Sprintf("%s accepted your friend request", senderName),
		map[string]interface{}{
			"sender_id": senderID,
			"target_id": friendshipID,
		},
	)
}

func (s *notificationService) SendRoomKickedNotification(targetUserID, operatorID, roomID, roomName string) error {
	return s.sendNotification(
		targetUserID,
		model.NotificationTypeRoomKicked,
		"Removed from chat room",
		fmt.Sprintf("You were removed from %s", roomName),
		map[string]interface{}{
			"sender_id": operatorID,
			"target_id": roomID,
		},
	)
}

func (s *notificationService) GetNotificationsByUserID(userID string, limit, offset int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.notifRepo.FindByUserID(userID, limit, offset)
}

func (s *notificationService) GetUnreadNotifications(userID string) ([]*model.Notification, error) {
	return s.notifRepo.FindUnreadByUserID(userID)
}

func (s *notificationService) GetUnreadCount(userID string) (int64, error) {
	return s.notifRepo.CountUnreadByUserID(userID)
}

func (s *notificationService) MarkAsRead(notificationID, userID string) error {
	return s.notifRepo.MarkAsRead(notificationID, userID)
}

func (s *notificationService) MarkAllAsRead(userID string) error {
	return s.notifRepo.MarkAllAsRead(userID)
}

func (s *notificationService) DeleteNotification(notificationID, userID string) error {
	return s.notifRepo.Delete(notificationID, userID)
}
