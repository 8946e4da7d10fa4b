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

func setupFriendshipService(t *testing.T) (FriendshipService, *gorm.DB) {
	db := testutil.SetupTestDB(t)
	friendshipRepo := repository.NewFriendshipRepository(db, nil)
	userRepo := repository.NewUserRepository(db)
	return NewFriendshipService(friendshipRepo, userRepo, nil), db
}

func TestSendFriendRequest(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	friendship, outcome, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestOutcomeCreated, outcome)
	assert.Equal(t, model.FriendshipStatusPending, friendship.Status)
	assert.Equal(t, alice.ID, friendship.SenderID)
	assert.Equal(t, bob.ID, friendship.ReceiverID)

	pending, err := svc.GetPendingRequests(bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, alice.ID, pending[0].SenderID)

	sent, err := svc.GetSentRequests(alice.ID)
	require.NoError(t, err)
	require.Len(t, sent, 1)
}

func TestSendFriendRequestToSelf(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")

	_, _, err := svc.SendFriendRequest(alice.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrSelfReference)
}

func TestSendFriendRequestUnknownReceiver(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")

	_, _, err := svc.SendFriendRequest(alice.ID, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestSendFriendRequestDuplicate(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = svc.SendFriendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrDuplicateRequest)
}

func TestMutualRequestsAutoAccept(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	friendship, outcome, err := svc.SendFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestOutcomeAutoAccepted, outcome)
	assert.Equal(t, model.FriendshipStatusAccepted, friendship.Status)
	assert.NotNil(t, friendship.AcceptedAt)

	// Exactly one edge exists for the pair
	var count int64
	require.NoError(t, db.Model(&model.Friendship{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.AreFriends(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcceptFriendRequest(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	friendship, err := svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusAccepted, friendship.Status)
	assert.NotNil(t, friendship.AcceptedAt)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := svc.GetFriendCount(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAcceptFriendRequestOnlyReceiverMay(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	// The sender cannot accept their own request
	_, err = svc.AcceptFriendRequest(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
}

func TestAcceptFriendRequestNoRequest(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := svc.AcceptFriendRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrFriendshipNotFound)
}

func TestDeclineThenReRequest(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.DeclineFriendRequest(bob.ID, alice.ID))

	status, err := svc.GetFriendshipStatus(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusDeclined, status)

	// Declining is not final: either side may ask again, reusing the row
	friendship, outcome, err := svc.SendFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, RequestOutcomeCreated, outcome)
	assert.Equal(t, model.FriendshipStatusPending, friendship.Status)
	assert.Equal(t, bob.ID, friendship.SenderID)
	assert.Equal(t, alice.ID, friendship.ReceiverID)

	// The stored row must carry the flipped direction, not just the
	// returned struct
	var stored model.Friendship
	require.NoError(t, db.First(&stored, "id = ?", friendship.ID).Error)
	assert.Equal(t, bob.ID, stored.SenderID)
	assert.Equal(t, alice.ID, stored.ReceiverID)

	var count int64
	require.NoError(t, db.Model(&model.Friendship{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestReRequestFlipsAcceptPermission(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, svc.DeclineFriendRequest(bob.ID, alice.ID))

	_, _, err = svc.SendFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	// Bob is now the requester and cannot accept his own request
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	friendship, err := svc.AcceptFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusAccepted, friendship.Status)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReRequestKeepsAliasesObserverScoped(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	alias := "bobby"
	require.NoError(t, svc.SetFriendAlias(alice.ID, bob.ID, &alias))
	_, err = svc.TogglePinFriend(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.BlockUser(alice.ID, bob.ID)
	require.NoError(t, err)
	require.NoError(t, svc.UnblockUser(alice.ID, bob.ID))

	// Bob re-requests, flipping the stored direction; alice's alias must
	// stay alice's and not surface on bob's side
	_, _, err = svc.SendFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	friends, err := svc.GetFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.NotNil(t, friends[0].Alias)
	assert.Equal(t, "bobby", *friends[0].Alias)
	assert.False(t, friends[0].IsPinned)

	friends, err = svc.GetFriends(bob.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Nil(t, friends[0].Alias)
}

func TestDeclineNonPending(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	err = svc.DeclineFriendRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrInvalidState)
}

func TestRemoveFriend(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveFriend(alice.ID, bob.ID))

	status, err := svc.GetFriendshipStatus(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "none", status)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveFriendNotFriends(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	err := svc.RemoveFriend(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrNotFriends)

	// A pending request is not a friendship either
	_, _, err = svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	err = svc.RemoveFriend(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrNotFriends)
}

func TestBlockUser(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	// Blocking with no prior relationship creates a blocked record
	friendship, err := svc.BlockUser(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, friendship.IsBlocked)
	assert.Equal(t, model.FriendshipStatusBlocked, friendship.Status)

	blocked, err := svc.GetBlockedUsers(alice.ID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, bob.ID, blocked[0].ID)

	// A blocked pair cannot exchange requests
	_, _, err = svc.SendFriendRequest(bob.ID, alice.ID)
	assert.ErrorIs(t, err, model.ErrBlocked)
}

func TestBlockEndsFriendship(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, _, err := svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	_, err = svc.BlockUser(alice.ID, bob.ID)
	require.NoError(t, err)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	friends, err := svc.GetFriends(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestUnblockUser(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := svc.BlockUser(alice.ID, bob.ID)
	require.NoError(t, err)

	require.NoError(t, svc.UnblockUser(alice.ID, bob.ID))

	// Unblocking does not restore friendship; the pair must re-request
	status, err := svc.GetFriendshipStatus(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusDeclined, status)

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	err = svc.UnblockUser(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrNotBlocked)
}

func TestSetFriendAlias(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	alias := "bobby"
	err := svc.SetFriendAlias(alice.ID, bob.ID, &alias)
	assert.ErrorIs(t, err, model.ErrNotFriends)

	_, _, err = svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	require.NoError(t, svc.SetFriendAlias(alice.ID, bob.ID, &alias))

	friends, err := svc.GetFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	require.NotNil(t, friends[0].Alias)
	assert.Equal(t, "bobby", *friends[0].Alias)

	// The alias is one-sided; bob sees none for alice
	friends, err = svc.GetFriends(bob.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Nil(t, friends[0].Alias)
}

func TestTogglePinFriend(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	_, err := svc.TogglePinFriend(alice.ID, bob.ID)
	assert.ErrorIs(t, err, model.ErrNotFriends)

	_, _, err = svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.AcceptFriendRequest(bob.ID, alice.ID)
	require.NoError(t, err)

	pinned, err := svc.TogglePinFriend(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	views, err := svc.GetPinnedFriends(alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, bob.ID, views[0].User.ID)

	pinned, err = svc.TogglePinFriend(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	views, err = svc.GetPinnedFriends(alice.ID)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestSearchFriends(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")
	carol := testutil.CreateTestUser(t, db, "carol")

	for _, friend := range []string{bob.ID, carol.ID} {
		_, _, err := svc.SendFriendRequest(alice.ID, friend)
		require.NoError(t, err)
		_, err = svc.AcceptFriendRequest(friend, alice.ID)
		require.NoError(t, err)
	}

	results, err := svc.SearchFriends(alice.ID, "BOB")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, bob.ID, results[0].User.ID)

	// Aliases are searchable too
	alias := "workmate"
	require.NoError(t, svc.SetFriendAlias(alice.ID, carol.ID, &alias))

	results, err = svc.SearchFriends(alice.ID, "workmate")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, carol.ID, results[0].User.ID)

	results, err = svc.SearchFriends(alice.ID, "nomatch")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetFriendshipStatus(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	status, err := svc.GetFriendshipStatus(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "none", status)

	_, _, err = svc.SendFriendRequest(alice.ID, bob.ID)
	require.NoError(t, err)

	status, err = svc.GetFriendshipStatus(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FriendshipStatusPending, status)
}

func TestAreFriendsPropagatesStorageErrors(t *testing.T) {
	svc, db := setupFriendshipService(t)
	alice := testutil.CreateTestUser(t, db, "alice")
	bob := testutil.CreateTestUser(t, db, "bob")

	ok, err := svc.AreFriends(alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// A storage failure must not masquerade as "not friends"
	require.NoError(t, db.Migrator().DropTable(&model.Friendship{}))

	_, err = svc.AreFriends(alice.ID, bob.ID)
	assert.Error(t, err)

	_, err = svc.GetFriendshipStatus(alice.ID, bob.ID)
	assert.Error(t, err)
}
