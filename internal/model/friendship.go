package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Friendship is a directed edge: the sender requested, the receiver decides.
// Lookups are always symmetric; the stored direction is kept for audit and
// to resolve who may accept or decline.
type Friendship struct {
	ID         string `gorm:"type:uuid;primary_key" json:"id"`
	SenderID   string `gorm:"type:uuid;not null;index;uniqueIndex:idx_friendships_pair" json:"sender_id"`
	ReceiverID string `gorm:"type:uuid;not null;index;uniqueIndex:idx_friendships_pair" json:"receiver_id"`
	Status     string `gorm:"type:varchar(20);default:'pending';not null" json:"status"` // pending, accepted, declined, blocked
	IsBlocked  bool   `gorm:"default:false" json:"is_blocked"`
	IsPinned   bool   `gorm:"default:false" json:"is_pinned"`

	// Aliases are observer-scoped: each side keeps its own name for the
	// other, stored on the side of the row it owns.
	AliasBySender   *string `gorm:"type:varchar(100)" json:"alias_by_sender,omitempty"`
	AliasByReceiver *string `gorm:"type:varchar(100)" json:"alias_by_receiver,omitempty"`

	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	AcceptedAt *time.Time `gorm:"type:timestamp" json:"accepted_at,omitempty"`

	// Relationships
	Sender   User `gorm:"foreignKey:SenderID;references:ID" json:"sender,omitempty"`
	Receiver User `gorm:"foreignKey:ReceiverID;references:ID" json:"receiver,omitempty"`
}

// BeforeCreate hook to generate UUID
func (f *Friendship) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name
func (Friendship) TableName() string {
	return "friendships"
}

// Friendship status constants
const (
	FriendshipStatusPending  = "pending"
	FriendshipStatusAccepted = "accepted"
	FriendshipStatusDeclined = "declined"
	FriendshipStatusBlocked  = "blocked"
)

// IsMutual reports whether the relationship is an active friendship.
func (f *Friendship) IsMutual() bool {
	return f.Status == FriendshipStatusAccepted && !f.IsBlocked
}

// OtherUserID returns the party opposite to userID on this edge.
func (f *Friendship) OtherUserID(userID string) string {
	if f.SenderID == userID {
		return f.ReceiverID
	}
	return f.SenderID
}

// OtherUser returns the preloaded User opposite to userID.
func (f *Friendship) OtherUser(userID string) User {
	if f.SenderID == userID {
		return f.Receiver
	}
	return f.Sender
}

// AliasFor returns the alias userID has set for the other party, if any.
func (f *Friendship) AliasFor(userID string) *string {
	if f.SenderID == userID {
		return f.AliasBySender
	}
	return f.AliasByReceiver
}

// SetAliasFor records userID's alias for the other party.
func (f *Friendship) SetAliasFor(userID string, alias *string) {
	if f.SenderID == userID {
		f.AliasBySender = alias
		return
	}
	f.AliasByReceiver = alias
}
