package service

import (
	"fmt"
	"log"
	"strings"

	"chatapp/internal/model"
	"chatapp/internal/repository"
)

type UpdateChatRoomRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	AvatarURL   *string `json:"avatar_url"`
}

type ChatRoomService interface {
	CreatePrivateChat(userID, friendID string) (*model.ChatRoom, error)
	CreateGroupChat(creatorID, name string, description *string, memberIDs []string) (*model.ChatRoom, error)
	JoinChatRoom(roomID, userID string) (*model.ChatRoomMember, error)
	LeaveChatRoom(roomID, userID string) error
	UpdateChatRoom(roomID, userID string, req UpdateChatRoomRequest) (*model.ChatRoom, error)
	ToggleAdmin(roomID, operatorID, targetUserID string) (isAdmin bool, err error)
	KickMember(roomID, operatorID, targetUserID string) error
	ToggleMuteStatus(roomID, operatorID, targetUserID string) (isMuted bool, err error)
	DeleteChatRoom(roomID, userID string) error
	SetMemberNickname(roomID, userID string, nickname *string) error

	GetChatRoomDetails(roomID, userID string) (*model.ChatRoom, error)
	GetUserChatRooms(userID string, limit, offset int) ([]model.ChatRoom, int64, error)
	GetChatRoomMembers(roomID string) ([]model.ChatRoomMember, error)
	SearchPublicRooms(keyword string, limit, offset int) ([]model.ChatRoom, int64, error)

	IsMember(roomID, userID string) (bool, error)
	IsAdmin(roomID, userID string) (bool, error)
	IsMuted(roomID, userID string) (bool, error)
}

type chatRoomService struct {
	roomRepo     repository.ChatRoomRepository
	userRepo     repository.UserRepository
	notifService NotificationService
}

func NewChatRoomService(
	roomRepo repository.ChatRoomRepository,
	userRepo repository.UserRepository,
	notifService NotificationService,
) ChatRoomService {
	return &chatRoomService{
		roomRepo:     roomRepo,
		userRepo:     userRepo,
		notifService: notifService,
	}
}

// CreatePrivateChat returns the existing private room for the pair, or
// creates one with exactly both users as members.
func (s *chatRoomService) CreatePrivateChat(userID, friendID string) (*model.ChatRoom, error) {
	if userID == friendID {
		return nil, fmt.Errorf("%w: user %s", model.ErrSelfReference, userID)
	}

	if existing, err := s.roomRepo.FindPrivateRoomBetween(userID, friendID); err == nil {
		return existing, nil
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", model.ErrUserNotFound, userID)
	}
	friend, err := s.userRepo.FindByID(friendID)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s", model.ErrUserNotFound, friendID)
	}

	room := &model.ChatRoom{
		Name:       user.DisplayName + " & " + friend.DisplayName,
		RoomType:   model.RoomTypePrivate,
		CreatedBy:  userID,
		IsPrivate:  true,
		IsActive:   true,
		MaxMembers: model.PrivateRoomMaxMembers,
	}

	members := []*model.ChatRoomMember{
		{UserID: userID, Role: model.MemberRoleMember},
		{UserID: friendID, Role: model.MemberRoleMember},
	}

	if err := s.roomRepo.CreateRoomWithMembers(room, members); err != nil {
		return nil, fmt.Errorf("failed to create private chat: %w", err)
	}

	return s.roomRepo.FindRoomByID(room.ID)
}

// CreateGroupChat creates a group room with the creator as admin.
// Duplicate member ids collapse to a single membership row.
func (s *chatRoomService) CreateGroupChat(creatorID, name string, description *string, memberIDs []string) (*model.ChatRoom, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: group name is required", model.ErrInvalidState)
	}

	if _, err := s.userRepo.FindByID(creatorID); err != nil {
		return nil, fmt.Errorf("%w: creator %s", model.ErrUserNotFound, creatorID)
	}

	room := &model.ChatRoom{
		Name:        strings.TrimSpace(name),
		Description: description,
		RoomType:    model.RoomTypeGroup,
		CreatedBy:   creatorID,
		IsPrivate:   false,
		IsActive:    true,
		MaxMembers:  model.GroupRoomMaxMembers,
	}

	members := []*model.ChatRoomMember{
		{UserID: creatorID, Role: model.MemberRoleAdmin, IsAdmin: true},
	}

	seen := map[string]bool{creatorID: true}
	for _, memberID := range memberIDs {
		if seen[memberID] {
			continue
		}
		seen[memberID] = true
		if _, err := s.userRepo.FindByID(memberID); err != nil {
			return nil, fmt.Errorf("%w: member %s", model.ErrUserNotFound, memberID)
		}
		members = append(members, &model.ChatRoomMember{UserID: memberID, Role: model.MemberRoleMember})
	}

	if err := s.roomRepo.CreateRoomWithMembers(room, members); err != nil {
		return nil, fmt.Errorf("failed to create group chat: %w", err)
	}

	return s.roomRepo.FindRoomByID(room.ID)
}

// JoinChatRoom adds a user to a non-private room with free capacity
func (s *chatRoomService) JoinChatRoom(roomID, userID string) (*model.ChatRoomMember, error) {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	isMember, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, fmt.Errorf("%w: user %s in room %s", model.ErrAlreadyMember, userID, roomID)
	}

	if room.IsPrivate {
		return nil, fmt.Errorf("%w: room %s", model.ErrPrivateRoom, roomID)
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		return nil, fmt.Errorf("%w: user %s", model.ErrUserNotFound, userID)
	}

	member := &model.ChatRoomMember{
		UserID:     userID,
		ChatRoomID: roomID,
		Role:       model.MemberRoleMember,
	}

	// Capacity is re-checked inside the repository transaction; concurrent
	// joins at the limit cannot overshoot it.
	if err := s.roomRepo.AddMember(member, room.MaxMembers); err != nil {
		return nil, err
	}

	return member, nil
}

// LeaveChatRoom removes the caller's own membership. Private chats have a
// fixed pair of members and cannot be left.
func (s *chatRoomService) LeaveChatRoom(roomID, userID string) error {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	isMember, err := s.roomRepo.IsMember(roomID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, userID, roomID)
	}

	if room.RoomType == model.RoomTypePrivate {
		return fmt.Errorf("%w: room %s", model.ErrCannotLeavePrivate, roomID)
	}

	return s.roomRepo.RemoveMember(roomID, userID)
}

// UpdateChatRoom updates room metadata; admins only
func (s *chatRoomService) UpdateChatRoom(roomID, userID string, req UpdateChatRoomRequest) (*model.ChatRoom, error) {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	if err := s.requireAdmin(roomID, userID); err != nil {
		return nil, err
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		room.Description = req.Description
	}
	if req.AvatarURL != nil {
		room.AvatarURL = req.AvatarURL
	}

	if err := s.roomRepo.UpdateRoom(room); err != nil {
		return nil, fmt.Errorf("failed to update room: %w", err)
	}

	return s.roomRepo.FindRoomByID(roomID)
}

// ToggleAdmin flips a member's admin rights. The room creator keeps the
// owner role; member <-> admin is the only transition exposed.
func (s *chatRoomService) ToggleAdmin(roomID, operatorID, targetUserID string) (bool, error) {
	if err := s.requireAdmin(roomID, operatorID); err != nil {
		return false, err
	}

	member, err := s.roomRepo.GetMember(roomID, targetUserID)
	if err != nil {
		return false, fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, targetUserID, roomID)
	}

	member.IsAdmin = !member.IsAdmin
	if member.IsAdmin {
		member.Role = model.MemberRoleAdmin
	} else {
		member.Role = model.MemberRoleMember
	}

	if err := s.roomRepo.UpdateMember(member); err != nil {
		return false, fmt.Errorf("failed to toggle admin: %w", err)
	}
	return member.IsAdmin, nil
}

// KickMember removes a member; admins only, and never the room creator
func (s *chatRoomService) KickMember(roomID, operatorID, targetUserID string) error {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	if err := s.requireAdmin(roomID, operatorID); err != nil {
		return err
	}

	if room.CreatedBy == targetUserID {
		return fmt.Errorf("%w: room %s", model.ErrCannotKickOwner, roomID)
	}

	if err := s.roomRepo.RemoveMember(roomID, targetUserID); err != nil {
		return err
	}

	if s.notifService != nil {
		go func() {
			if err := s.notifService.SendRoomKickedNotification(targetUserID, operatorID, roomID, room.Name); err != nil {
				log.Printf("Failed to send room kicked notification: %v", err)
			}
		}()
	}

	return nil
}

// ToggleMuteStatus flips a member's mute flag; admins only
func (s *chatRoomService) ToggleMuteStatus(roomID, operatorID, targetUserID string) (bool, error) {
	if err := s.requireAdmin(roomID, operatorID); err != nil {
		return false, err
	}

	member, err := s.roomRepo.GetMember(roomID, targetUserID)
	if err != nil {
		return false, fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, targetUserID, roomID)
	}

	member.IsMuted = !member.IsMuted
	if err := s.roomRepo.UpdateMember(member); err != nil {
		return false, fmt.Errorf("failed to toggle mute: %w", err)
	}
	return member.IsMuted, nil
}

// DeleteChatRoom removes a room with its memberships and messages.
// Creator only; private chats are never deleted.
func (s *chatRoomService) DeleteChatRoom(roomID, userID string) error {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	if room.CreatedBy != userID {
		return fmt.Errorf("%w: only the creator can delete room %s", model.ErrPermissionDenied, roomID)
	}

	if room.RoomType == model.RoomTypePrivate {
		return fmt.Errorf("%w: room %s", model.ErrCannotDeletePrivate, roomID)
	}

	return s.roomRepo.DeleteRoomCascade(roomID)
}

// SetMemberNickname updates the caller's display name inside a room
func (s *chatRoomService) SetMemberNickname(roomID, userID string, nickname *string) error {
	member, err := s.roomRepo.GetMember(roomID, userID)
	if err != nil {
		return fmt.Errorf("%w: user %s in room %s", model.ErrNotMember, userID, roomID)
	}

	member.Nickname = nickname
	if err := s.roomRepo.UpdateMember(member); err != nil {
		return fmt.Errorf("failed to set nickname: %w", err)
	}
	return nil
}

// GetChatRoomDetails returns a room; private rooms only to their members
func (s *chatRoomService) GetChatRoomDetails(roomID, userID string) (*model.ChatRoom, error) {
	room, err := s.roomRepo.FindRoomByID(roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: room %s", model.ErrRoomNotFound, roomID)
	}

	if room.IsPrivate {
		isMember, err := s.roomRepo.IsMember(roomID, userID)
		if err != nil {
			return nil, err
		}
		if !isMember {
			return nil, fmt.Errorf("%w: user %s cannot view room %s", model.ErrPermissionDenied, userID, roomID)
		}
	}

	return room, nil
}

func (s *chatRoomService) GetUserChatRooms(userID string, limit, offset int) ([]model.ChatRoom, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.roomRepo.FindRoomsByUserID(userID, limit, offset)
}

func (s *chatRoomService) GetChatRoomMembers(roomID string) ([]model.ChatRoomMember, error) {
	return s.roomRepo.GetMembers(roomID)
}

func (s *chatRoomService) SearchPublicRooms(keyword string, limit, offset int) ([]model.ChatRoom, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.roomRepo.SearchPublicRooms(keyword, limit, offset)
}

func (s *chatRoomService) IsMember(roomID, userID string) (bool, error) {
	return s.roomRepo.IsMember(roomID, userID)
}

func (s *chatRoomService) IsAdmin(roomID, userID string) (bool, error) {
	return s.roomRepo.IsAdmin(roomID, userID)
}

func (s *chatRoomService) IsMuted(roomID, userID string) (bool, error) {
	return s.roomRepo.IsMuted(roomID, userID)
}

// requireAdmin gates room-management operations
func (s *chatRoomService) requireAdmin(roomID, userID string) error {
	isAdmin, err := s.roomRepo.IsAdmin(roomID, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return fmt.Errorf("%w: user %s is not an admin of room %s", model.ErrPermissionDenied, userID, roomID)
	}
	return nil
}
