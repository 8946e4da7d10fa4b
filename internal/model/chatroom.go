package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRoom struct {
	ID          string  `gorm:"type:uuid;primary_key" json:"id"`
	Name        string  `gorm:"type:varchar(100);not null" json:"name"`
	Description *string `gorm:"type:text" json:"description,omitempty"`
	RoomType    string  `gorm:"type:varchar(20);not null;index" json:"room_type"` // private, group, channel, public
	AvatarURL   *string `gorm:"type:text" json:"avatar_url,omitempty"`
	CreatedBy   string  `gorm:"type:uuid;not null;index" json:"created_by"`
	IsPrivate   bool    `gorm:"default:false" json:"is_private"`
	IsActive    bool    `gorm:"default:true" json:"is_active"`
	MaxMembers  int     `gorm:"default:500" json:"max_members"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relationships
	Creator User `gorm:"foreignKey:CreatedBy;references:ID" json:"creator,omitempty"`

	// Populated by the repository, not mapped
	MemberCount int64 `gorm:"-" json:"member_count"`
}

// BeforeCreate hook to generate UUID
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// Room type constants
const (
	RoomTypePrivate = "private"
	RoomTypeGroup   = "group"
	RoomTypeChannel = "channel"
	RoomTypePublic  = "public"
)

// Default member capacities
const (
	PrivateRoomMaxMembers = 2
	GroupRoomMaxMembers   = 500
)

// ChatRoomMember links a user to a room. Unique per (user, room) pair.
type ChatRoomMember struct {
	ID         string  `gorm:"type:uuid;primary_key" json:"id"`
	UserID     string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_room_members_pair" json:"user_id"`
	ChatRoomID string  `gorm:"type:uuid;not null;index;uniqueIndex:idx_room_members_pair" json:"chat_room_id"`
	Role       string  `gorm:"type:varchar(20);default:'member';not null" json:"role"` // owner, admin, moderator, member
	IsAdmin    bool    `gorm:"default:false" json:"is_admin"`
	IsMuted    bool    `gorm:"default:false" json:"is_muted"`
	Nickname   *string `gorm:"type:varchar(100)" json:"nickname,omitempty"`

	LastReadMessageID *string `gorm:"type:uuid" json:"last_read_message_id,omitempty"`
	UnreadCount       int     `gorm:"default:0" json:"unread_count"`

	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`

	// Relationships
	User     User     `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
	ChatRoom ChatRoom `gorm:"foreignKey:ChatRoomID;references:ID" json:"chat_room,omitempty"`
}

// BeforeCreate hook to generate UUID
func (m *ChatRoomMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (ChatRoomMember) TableName() string {
	return "chat_room_members"
}

// Member role constants
const (
	MemberRoleOwner     = "owner"
	MemberRoleAdmin     = "admin"
	MemberRoleModerator = "moderator"
	MemberRoleMember    = "member"
)
