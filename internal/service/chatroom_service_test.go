package service

import (
	"testing"

	"chatapp/internal/model"
	"chatapp/internal/repository"
	"chatapp/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupChatRoomService(t *testing.T) (ChatRoomService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	roomRepo := repository.NewChatRoomRepository(db, nil)
	userRepo := repository.NewUserRepository(db)
	return NewChatRoomService(roomRepo, userRepo, nil), db
}

func TestCreatePrivateChat(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomTypePrivate, room.RoomType)
	assert.True(t, room.IsPrivate)
	assert.Equal(t, model.PrivateRoomMaxMembers, room.MaxMembers)
	assert.Equal(t, int64(2), room.MemberCount)

	members, err := svc.GetChatRoomMembers(room.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestCreatePrivateChatIdempotent(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room1, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	// The same room comes back regardless of who asks
	room2, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, room1.ID, room2.ID)

	room3, err := svc.CreatePrivateChat(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, room1.ID, room3.ID)

	var count int64
	require.NoError(t, db.Model(&model.ChatRoom{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreatePrivateChatWithSelf(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")

	_, err := svc.CreatePrivateChat(alice.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrSelfReference)
}

func TestCreateGroupChat(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	desc := "a room"
	room, err := svc.CreateGroupChat(alice.ID, "team", &desc, []string{bob.ID, carol.ID, bob.ID})
	require.NoError(t, err)
	assert.Equal(t, model.RoomTypeGroup, room.RoomType)
	assert.Equal(t, "team", room.Name)
	// Duplicate bob collapses to one membership
	assert.Equal(t, int64(3), room.MemberCount)

	isAdmin, err := svc.IsAdmin(room.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.IsAdmin(room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestCreateGroupChatEmptyName(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")

	_, err := svc.CreateGroupChat(alice.ID, "   ", nil, nil)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestJoinChatRoom(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, nil)
	require.NoError(t, err)

	member, err := svc.JoinChatRoom(room.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberRoleMember, member.Role)

	isMember, err := svc.IsMember(room.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isMember)

	// Joining twice fails
	_, err = svc.JoinChatRoom(room.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrAlreadyMember)
}

func TestJoinPrivateRoomDenied(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	room, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.JoinChatRoom(room.ID, carol.ID)
	assert.ErrorIs(t, err, model.ErrPrivateRoom)
}

func TestJoinChatRoomAtCapacity(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")
	dave := testutil.CreateTestUser(t, db, "dave")

	room, err := svc.CreateGroupChat(alice.ID, "tiny", nil, nil)
	require.NoError(t, err)

	// Shrink the room so the limit is reachable
	require.NoError(t, db.Model(&model.ChatRoom{}).
		Where("id = ?", room.ID).
		Update("max_members", 3).Error)

	_, err = svc.JoinChatRoom(room.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.JoinChatRoom(room.ID, carol.ID)
	require.NoError(t, err)

	_, err = svc.JoinChatRoom(room.ID, dave.ID)
	assert.ErrorIs(t, err, model.ErrRoomFull)
}

func TestLeaveChatRoom(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	require.NoError(t, svc.LeaveChatRoom(room.ID, bob.ID))

	isMember, err := svc.IsMember(room.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isMember)

	err = svc.LeaveChatRoom(room.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrNotMember)
}

func TestLeavePrivateRoomDenied(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	err = svc.LeaveChatRoom(room.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrCannotLeavePrivate)
}

func TestUpdateChatRoomRequiresAdmin(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	newName := "renamed"
	_, err = svc.UpdateChatRoom(room.ID, bob.ID, UpdateChatRoomRequest{Name: &newName})
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	updated, err := svc.UpdateChatRoom(room.ID, alice.ID, UpdateChatRoomRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)
}

func TestToggleAdmin(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID, carol.ID})
	require.NoError(t, err)

	// Plain members cannot grant admin
	_, err = svc.ToggleAdmin(room.ID, bob.ID, carol.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	isAdmin, err := svc.ToggleAdmin(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// The promoted admin can now manage others
	isAdmin, err = svc.ToggleAdmin(room.ID, bob.ID, carol.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Demotion works the same way
	isAdmin, err = svc.ToggleAdmin(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestKickMember(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID, carol.ID})
	require.NoError(t, err)

	err = svc.KickMember(room.ID, bob.ID, carol.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	require.NoError(t, svc.KickMember(room.ID, alice.ID, carol.ID))

	isMember, err := svc.IsMember(room.ID, carol.ID)
	require.NoError(t, err)
	assert.False(t, isMember)
}

func TestKickOwnerDenied(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	// Even another admin cannot kick the creator
	_, err = svc.ToggleAdmin(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)

	err = svc.KickMember(room.ID, bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrCannotKickOwner)
}

func TestToggleMuteStatus(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	muted, err := svc.ToggleMuteStatus(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, muted)

	isMuted, err := svc.IsMuted(room.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, isMuted)

	muted, err = svc.ToggleMuteStatus(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, muted)
}

func TestDeleteChatRoom(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	// Only the creator may delete, even if others are admins
	_, err = svc.ToggleAdmin(room.ID, alice.ID, bob.ID)
	require.NoError(t, err)
	err = svc.DeleteChatRoom(room.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	require.NoError(t, svc.DeleteChatRoom(room.ID, alice.ID))

	_, err = svc.GetChatRoomDetails(room.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrRoomNotFound)

	// Memberships are gone with the room
	var memberCount int64
	require.NoError(t, db.Model(&model.ChatRoomMember{}).
		Where("chat_room_id = ?", room.ID).
		Count(&memberCount).Error)
	assert.Equal(t, int64(0), memberCount)
}

func TestDeletePrivateRoomDenied(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	room, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	err = svc.DeleteChatRoom(room.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrCannotDeletePrivate)
}

func TestGetChatRoomDetailsPrivateMembersOnly(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	room, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.GetChatRoomDetails(room.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.GetChatRoomDetails(room.ID, carol.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestSetMemberNickname(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	room, err := svc.CreateGroupChat(alice.ID, "team", nil, []string{bob.ID})
	require.NoError(t, err)

	nickname := "bobby"
	require.NoError(t, svc.SetMemberNickname(room.ID, bob.ID, &nickname))

	members, err := svc.GetChatRoomMembers(room.ID)
	require.NoError(t, err)
	found := false
	for _, m := range members {
		if m.UserID == bob.ID {
			found = true
			require.NotNil(t, m.Nickname)
			assert.Equal(t, "bobby", *m.Nickname)
		}
	}
	assert.True(t, found)

	err = svc.SetMemberNickname(room.ID, carol.ID, &nickname)
	assert.ErrorIs(t, err, model.ErrNotMember)
}

func TestGetUserChatRooms(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.CreateGroupChat(alice.ID, "team", nil, nil)
	require.NoError(t, err)

	rooms, total, err := svc.GetUserChatRooms(alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, rooms, 2)

	rooms, total, err = svc.GetUserChatRooms(bob.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rooms, 1)
}

func TestSearchPublicRooms(t *testing.T) {
	svc, db := setupChatRoomService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := svc.CreateGroupChat(alice.ID, "Gopher Hangout", nil, nil)
	require.NoError(t, err)
	_, err = svc.CreateGroupChat(alice.ID, "Random", nil, nil)
	require.NoError(t, err)
	// Private chats never show up in search
	_, err = svc.CreatePrivateChat(alice.ID, bob.ID)
	require.NoError(t, err)

	rooms, total, err := svc.SearchPublicRooms("gopher", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, rooms, 1)
	assert.Equal(t, "Gopher Hangout", rooms[0].Name)
}
