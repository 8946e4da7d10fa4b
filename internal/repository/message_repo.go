package repository

import (
	"errors"

	"chatapp/internal/model"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *model.Message) error
	FindByID(id string) (*model.Message, error)
	FindByRoomID(roomID string, limit, offset int) ([]*model.Message, error)
	Update(message *model.Message) error
	LatestInRoom(roomID string) (*model.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *model.Message) error {
	return r.db.Create(message).Error
}

func (r *messageRepository) FindByID(id string) (*model.Message, error) {
	var message model.Message
	err := r.db.Preload("Sender").
		Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// FindByRoomID lists room messages, newest first
func (r *messageRepository) FindByRoomID(roomID string, limit, offset int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.Preload("Sender").
		Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) Update(message *model.Message) error {
	return r.db.Save(message).Error
}

// LatestInRoom returns the most recent message of a room, if any
func (r *messageRepository) LatestInRoom(roomID string) (*model.Message, error) {
	var message model.Message
	err := r.db.Where("chat_room_id = ?", roomID).
		Order("created_at DESC").
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}
