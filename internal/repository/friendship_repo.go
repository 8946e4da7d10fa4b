package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chatapp/internal/model"
	"chatapp/internal/util"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendshipRepository interface {
	Create(friendship *model.Friendship) error
	FindByID(id string) (*model.Friendship, error)
	FindBetween(userID, otherID string) (*model.Friendship, error)
	FindAcceptedByUserID(userID string) ([]*model.Friendship, error)
	FindPendingByReceiverID(receiverID string) ([]*model.Friendship, error)
	FindPendingBySenderID(senderID string) ([]*model.Friendship, error)
	FindPinnedByUserID(userID string) ([]*model.Friendship, error)
	FindBlockedByUserID(userID string) ([]*model.Friendship, error)
	Update(friendship *model.Friendship) error
	Delete(id string) error
	CountFriendsByUserID(userID string) (int64, error)
}

type friendshipRepository struct {
	db    *gorm.DB
	redis *util.RedisClient
}

const (
	friendsCachePrefix        = "friendship:friends:"
	friendsCountCachePrefix   = "friendship:count:"
	friendshipCacheExpiration = 15 * time.Minute
)

func NewFriendshipRepository(db *gorm.DB, redis *util.RedisClient) FriendshipRepository {
	return &friendshipRepository{
		db:    db,
		redis: redis,
	}
}

// Create inserts a friendship row. The composite unique index on
// (sender_id, receiver_id) makes concurrent duplicate inserts fail closed;
// that case surfaces as ErrDuplicateRequest.
func (r *friendshipRepository) Create(friendship *model.Friendship) error {
	if err := r.db.Create(friendship).Error; err != nil {
		if isDuplicateKeyError(err) {
			return model.ErrDuplicateRequest
		}
		return err
	}

	r.invalidateUserCache(friendship.SenderID)
	r.invalidateUserCache(friendship.ReceiverID)
	return nil
}

// FindByID finds a friendship by ID
func (r *friendshipRepository) FindByID(id string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("id = ?", id).First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrFriendshipNotFound
		}
		return nil, err
	}
	return &friendship, nil
}

// FindBetween finds the relationship between two users regardless of
// which side sent the original request.
func (r *friendshipRepository) FindBetween(userID, otherID string) (*model.Friendship, error) {
	var friendship model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherID, otherID, userID).
		First(&friendship).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrFriendshipNotFound
		}
		return nil, err
	}
	return &friendship, nil
}

// FindAcceptedByUserID finds active friendships for a user
func (r *friendshipRepository) FindAcceptedByUserID(userID string) ([]*model.Friendship, error) {
	if cached, err := r.getListFromCache(friendsCachePrefix + userID); err == nil && cached != nil {
		return cached, nil
	}

	var friendships []*model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ? AND is_blocked = ?",
			userID, userID, model.FriendshipStatusAccepted, false).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}

	r.cacheList(friendsCachePrefix+userID, friendships)
	return friendships, nil
}

// FindPendingByReceiverID finds incoming pending requests
func (r *friendshipRepository) FindPendingByReceiverID(receiverID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("receiver_id = ? AND status = ? AND is_blocked = ?",
			receiverID, model.FriendshipStatusPending, false).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// FindPendingBySenderID finds outgoing pending requests
func (r *friendshipRepository) FindPendingBySenderID(senderID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("sender_id = ? AND status = ? AND is_blocked = ?",
			senderID, model.FriendshipStatusPending, false).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// FindPinnedByUserID finds pinned active friendships
func (r *friendshipRepository) FindPinnedByUserID(userID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? OR receiver_id = ?) AND status = ? AND is_blocked = ? AND is_pinned = ?",
			userID, userID, model.FriendshipStatusAccepted, false, true).
		Order("created_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// FindBlockedByUserID finds blocked relationships involving a user
func (r *friendshipRepository) FindBlockedByUserID(userID string) ([]*model.Friendship, error) {
	var friendships []*model.Friendship
	err := r.db.Preload("Sender").Preload("Receiver").
		Where("(sender_id = ? OR receiver_id = ?) AND is_blocked = ?", userID, userID, true).
		Order("updated_at DESC").
		Find(&friendships).Error
	if err != nil {
		return nil, err
	}
	return friendships, nil
}

// Update updates a friendship. Associations are omitted so that preloaded
// Sender/Receiver structs cannot overwrite a changed edge direction.
func (r *friendshipRepository) Update(friendship *model.Friendship) error {
	if err := r.db.Omit(clause.Associations).Save(friendship).Error; err != nil {
		return err
	}

	r.invalidateUserCache(friendship.SenderID)
	r.invalidateUserCache(friendship.ReceiverID)
	return nil
}

// Delete hard-deletes a friendship
func (r *friendshipRepository) Delete(id string) error {
	var friendship model.Friendship
	if err := r.db.Where("id = ?", id).First(&friendship).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ErrFriendshipNotFound
		}
		return err
	}

	if err := r.db.Unscoped().Delete(&friendship).Error; err != nil {
		return err
	}

	r.invalidateUserCache(friendship.SenderID)
	r.invalidateUserCache(friendship.ReceiverID)
	return nil
}

// CountFriendsByUserID counts active friendships
func (r *friendshipRepository) CountFriendsByUserID(userID string) (int64, error) {
	if r.redis != nil {
		if cached, err := r.redis.Get(friendsCountCachePrefix + userID); err == nil {
			var count int64
			if _, err := fmt.Sscanf(cached, "%d", &count); err == nil {
				return count, nil
			}
		}
	}

	var count int64
	err := r.db.Model(&model.Friendship{}).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ? AND is_blocked = ?",
			userID, userID, model.FriendshipStatusAccepted, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	if r.redis != nil {
		r.redis.Set(friendsCountCachePrefix+userID, fmt.Sprintf("%d", count), friendshipCacheExpiration)
	}
	return count, nil
}

// Cache helpers

func (r *friendshipRepository) cacheList(key string, friendships []*model.Friendship) {
	if r.redis == nil {
		return
	}

	data, err := json.Marshal(friendships)
	if err != nil {
		return
	}
	r.redis.Set(key, string(data), friendshipCacheExpiration)
}

func (r *friendshipRepository) getListFromCache(key string) ([]*model.Friendship, error) {
	if r.redis == nil {
		return nil, fmt.Errorf("redis not available")
	}

	cached, err := r.redis.Get(key)
	if err != nil {
		return nil, err
	}

	var friendships []*model.Friendship
	if err := json.Unmarshal([]byte(cached), &friendships); err != nil {
		return nil, err
	}
	return friendships, nil
}

func (r *friendshipRepository) invalidateUserCache(userID string) {
	if r.redis == nil {
		return
	}
	r.redis.Delete(friendsCachePrefix + userID)
	r.redis.Delete(friendsCountCachePrefix + userID)
}

// isDuplicateKeyError detects unique-constraint violations across drivers
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
