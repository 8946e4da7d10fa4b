package repository

import (
	"encoding/json"
	"errors"
	"time"

	"chatapp/internal/model"
	"chatapp/internal/util"

	"gorm.io/gorm"
)

type ChatRoomRepository interface {
	// Rooms
	CreateRoomWithMembers(room *model.ChatRoom, members []*model.ChatRoomMember) error
	FindRoomByID(id string) (*model.ChatRoom, error)
	FindPrivateRoomBetween(userID, otherID string) (*model.ChatRoom, error)
	FindRoomsByUserID(userID string, limit, offset int) ([]model.ChatRoom, int64, error)
	SearchPublicRooms(keyword string, limit, offset int) ([]model.ChatRoom, int64, error)
	UpdateRoom(room *model.ChatRoom) error
	DeleteRoomCascade(roomID string) error

	// Members
	AddMember(member *model.ChatRoomMember, maxMembers int) error
	RemoveMember(roomID, userID string) error
	GetMember(roomID, userID string) (*model.ChatRoomMember, error)
	GetMembers(roomID string) ([]model.ChatRoomMember, error)
	UpdateMember(member *model.ChatRoomMember) error
	CountMembers(roomID string) (int64, error)
	IsMember(roomID, userID string) (bool, error)
	IsAdmin(roomID, userID string) (bool, error)
	IsMuted(roomID, userID string) (bool, error)

	// Read tracking
	IncrementUnreadExcept(roomID, exceptUserID string) error
	MarkRead(roomID, userID, messageID string) error
	UnreadCountsByUserID(userID string) (map[string]int, error)
}

type chatRoomRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	roomCachePrefix     = "chatroom:"
	roomCacheExpiration = 10 * time.Minute
)

func NewChatRoomRepository(db *gorm.DB, redis *util.RedisClient) ChatRoomRepository {
	return &chatRoomRepository{db: db, redis: redis}
}

// CreateRoomWithMembers creates a room and its initial members in one
// transaction so a half-created room is never visible.
func (r *chatRoomRepository) CreateRoomWithMembers(room *model.ChatRoom, members []*model.ChatRoomMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, m := range members {
			m.ChatRoomID = room.ID
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindRoomByID finds a room and fills its member count
func (r *chatRoomRepository) FindRoomByID(id string) (*model.ChatRoom, error) {
	if cached := r.getRoomFromCache(roomCachePrefix + id); cached != nil {
		return cached, nil
	}

	var room model.ChatRoom
	err := r.db.Preload("Creator").Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	count, err := r.CountMembers(id)
	if err != nil {
		return nil, err
	}
	room.MemberCount = count

	r.cacheRoom(&room)
	return &room, nil
}

// FindPrivateRoomBetween finds the private room holding exactly this pair
func (r *chatRoomRepository) FindPrivateRoomBetween(userID, otherID string) (*model.ChatRoom, error) {
	memberRooms := func(uid string) *gorm.DB {
		return r.db.Model(&model.ChatRoomMember{}).
			Select("chat_room_id").
			Where("user_id = ?", uid)
	}

	var room model.ChatRoom
	err := r.db.Where("room_type = ?", model.RoomTypePrivate).
		Where("id IN (?)", memberRooms(userID)).
		Where("id IN (?)", memberRooms(otherID)).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	room.MemberCount, err = r.CountMembers(room.ID)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindRoomsByUserID lists rooms a user belongs to
func (r *chatRoomRepository) FindRoomsByUserID(userID string, limit, offset int) ([]model.ChatRoom, int64, error) {
	subQuery := r.db.Model(&model.ChatRoomMember{}).
		Select("chat_room_id").
		Where("user_id = ?", userID)

	var total int64
	if err := r.db.Model(&model.ChatRoom{}).
		Where("id IN (?) AND is_active = ?", subQuery, true).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []model.ChatRoom
	err := r.db.Preload("Creator").
		Where("id IN (?) AND is_active = ?", subQuery, true).
		Order("updated_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}

	for i := range rooms {
		count, err := r.CountMembers(rooms[i].ID)
		if err != nil {
			return nil, 0, err
		}
		rooms[i].MemberCount = count
	}
	return rooms, total, nil
}

// SearchPublicRooms searches non-private rooms by name or description
func (r *chatRoomRepository) SearchPublicRooms(keyword string, limit, offset int) ([]model.ChatRoom, int64, error) {
	pattern := "%" + keyword + "%"
	base := r.db.Model(&model.ChatRoom{}).
		Where("is_active = ? AND is_private = ?", true, false).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rooms []model.ChatRoom
	err := r.db.Preload("Creator").
		Where("is_active = ? AND is_private = ?", true, false).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rooms).Error
	if err != nil {
		return nil, 0, err
	}
	return rooms, total, nil
}

// UpdateRoom updates a room
func (r *chatRoomRepository) UpdateRoom(room *model.ChatRoom) error {
	if err := r.db.Save(room).Error; err != nil {
		return err
	}
	r.invalidateRoomCache(room.ID)
	return nil
}

// DeleteRoomCascade removes the room, its memberships and its messages in
// one transaction so no orphans survive.
func (r *chatRoomRepository) DeleteRoomCascade(roomID string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("chat_room_id = ?", roomID).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_room_id = ?", roomID).Delete(&model.ChatRoomMember{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", roomID).Delete(&model.ChatRoom{}).Error
	})
	if err != nil {
		return err
	}
	r.invalidateRoomCache(roomID)
	return nil
}

// AddMember inserts a membership row. The capacity check and the insert run
// in one transaction so concurrent joins cannot overshoot maxMembers.
func (r *chatRoomRepository) AddMember(member *model.ChatRoomMember, maxMembers int) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.ChatRoomMember{}).
			Where("chat_room_id = ?", member.ChatRoomID).
			Count(&count).Error; err != nil {
			return err
		}
		if maxMembers > 0 && count >= int64(maxMembers) {
			return model.ErrRoomFull
		}
		if err := tx.Create(member).Error; err != nil {
			if isDuplicateKeyError(err) {
				return model.ErrAlreadyMember
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.invalidateRoomCache(member.ChatRoomID)
	return nil
}

// RemoveMember deletes a membership row; a second removal of the same
// member reports ErrNotMember rather than succeeding silently.
func (r *chatRoomRepository) RemoveMember(roomID, userID string) error {
	result := r.db.Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Delete(&model.ChatRoomMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotMember
	}
	r.invalidateRoomCache(roomID)
	return nil
}

// GetMember gets a specific member of a room
func (r *chatRoomRepository) GetMember(roomID, userID string) (*model.ChatRoomMember, error) {
	var member model.ChatRoomMember
	err := r.db.Preload("User").
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotMember
		}
		return nil, err
	}
	return &member, nil
}

// GetMembers lists all members of a room
func (r *chatRoomRepository) GetMembers(roomID string) ([]model.ChatRoomMember, error) {
	var members []model.ChatRoomMember
	err := r.db.Preload("User").
		Where("chat_room_id = ?", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// UpdateMember saves a membership row
func (r *chatRoomRepository) UpdateMember(member *model.ChatRoomMember) error {
	return r.db.Save(member).Error
}

// CountMembers counts members of a room
func (r *chatRoomRepository) CountMembers(roomID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// IsMember checks room membership
func (r *chatRoomRepository) IsMember(roomID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin checks whether a member holds admin rights
func (r *chatRoomRepository) IsAdmin(roomID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id = ? AND is_admin = ?", roomID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// IsMuted checks whether a member is muted
func (r *chatRoomRepository) IsMuted(roomID, userID string) (bool, error) {
	var count int64
	err := r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id = ? AND is_muted = ?", roomID, userID, true).
		Count(&count).Error
	return count > 0, err
}

// IncrementUnreadExcept bumps unread counters for every member but the sender
func (r *chatRoomRepository) IncrementUnreadExcept(roomID, exceptUserID string) error {
	return r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id <> ?", roomID, exceptUserID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

// MarkRead stamps the last read message and clears the unread counter.
// An empty messageID only resets the counter.
func (r *chatRoomRepository) MarkRead(roomID, userID, messageID string) error {
	updates := map[string]interface{}{"unread_count": 0}
	if messageID != "" {
		updates["last_read_message_id"] = messageID
	}

	result := r.db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ? AND user_id = ?", roomID, userID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotMember
	}
	return nil
}

// UnreadCountsByUserID returns per-room unread counts for a user
func (r *chatRoomRepository) UnreadCountsByUserID(userID string) (map[string]int, error) {
	var members []model.ChatRoomMember
	err := r.db.Select("chat_room_id", "unread_count").
		Where("user_id = ? AND unread_count > 0", userID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(members))
	for _, m := range members {
		counts[m.ChatRoomID] = m.UnreadCount
	}
	return counts, nil
}

// Cache helpers

func (r *chatRoomRepository) cacheRoom(room *model.ChatRoom) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(room)
	if err != nil {
		return
	}
	r.redis.Set(roomCachePrefix+room.ID, string(data), roomCacheExpiration)
}

func (r *chatRoomRepository) getRoomFromCache(key string) *model.ChatRoom {
	if r.redis == nil {
		return nil
	}
	cached, err := r.redis.Get(key)
	if err != nil {
		return nil
	}
	var room model.ChatRoom
	if err := json.Unmarshal([]byte(cached), &room); err != nil {
		return nil
	}
	return &room
}

func (r *chatRoomRepository) invalidateRoomCache(roomID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(roomCachePrefix + roomID)
}
