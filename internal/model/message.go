package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a chat-room message. Recall keeps the row but blanks content.
type Message struct {
	ID          string         `gorm:"type:uuid;primary_key" json:"id"`
	ChatRoomID  string         `gorm:"type:uuid;not null;index" json:"chat_room_id"`
	SenderID    string         `gorm:"type:uuid;not null;index" json:"sender_id"`
	Content     string         `gorm:"type:text;not null" json:"content"`
	MessageType string         `gorm:"type:varchar(20);default:'text';not null" json:"message_type"` // text, image, file, system
	Status      string         `gorm:"type:varchar(20);default:'sent';not null" json:"status"`       // sent, recalled
	ReplyToID   *string        `gorm:"type:uuid" json:"reply_to_id,omitempty"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Sender   User     `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	ChatRoom ChatRoom `gorm:"foreignKey:ChatRoomID;references:ID" json:"chat_room,omitempty"`
	ReplyTo  *Message `gorm:"foreignKey:ReplyToID;references:ID" json:"reply_to,omitempty"`
}

// BeforeCreate hook to generate UUID
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Message) TableName() string {
	return "messages"
}

// Message type constants
const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"
)

// Message status constants
const (
	MessageStatusSent     = "sent"
	MessageStatusRecalled = "recalled"
)

// RecalledContent replaces the body of a recalled message.
const RecalledContent = "[message recalled]"

// RecallWindow is how long a sender may recall their own message.
const RecallWindow = 2 * time.Minute
