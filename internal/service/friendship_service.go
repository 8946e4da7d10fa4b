package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chatapp/internal/model"
	"chatapp/internal/repository"
)

// RequestOutcome distinguishes a freshly created request from a mutual
// request that resolved into an accepted friendship.
type RequestOutcome string

const (
	RequestOutcomeCreated      RequestOutcome = "created"
	RequestOutcomeAutoAccepted RequestOutcome = "auto_accepted"
)

// FriendView is a friend as seen by one user: the other party plus the
// caller's own alias and pin state for them.
type FriendView struct {
	User     model.User `json:"user"`
	Alias    *string    `json:"alias,omitempty"`
	IsPinned bool       `json:"is_pinned"`
}

type FriendshipService interface {
	SendFriendRequest(senderID, receiverID string) (*model.Friendship, RequestOutcome, error)
	AcceptFriendRequest(accepterID, requesterID string) (*model.Friendship, error)
	DeclineFriendRequest(declinerID, requesterID string) error
	RemoveFriend(userID, friendID string) error
	BlockUser(userID, targetID string) (*model.Friendship, error)
	UnblockUser(userID, targetID string) error
	SetFriendAlias(userID, friendID string, alias *string) error
	TogglePinFriend(userID, friendID string) (pinned bool, err error)

	GetFriends(userID string) ([]FriendView, error)
	GetPendingRequests(userID string) ([]*model.Friendship, error)
	GetSentRequests(userID string) ([]*model.Friendship, error)
	GetPinnedFriends(userID string) ([]FriendView, error)
	GetBlockedUsers(userID string) ([]model.User, error)
	SearchFriends(userID, keyword string) ([]FriendView, error)
	AreFriends(userID, otherID string) (bool, error)
	GetFriendCount(userID string) (int64, error)
	GetFriendshipStatus(userID, otherID string) (string, error)
}

type friendshipService struct {
	friendshipRepo repository.FriendshipRepository
	userRepo       repository.UserRepository
	notifService   NotificationService
}

func NewFriendshipService(
	friendshipRepo repository.FriendshipRepository,
	userRepo repository.UserRepository,
	notifService NotificationService,
) FriendshipService {
	return &friendshipService{
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		notifService:   notifService,
	}
}

// SendFriendRequest creates a pending request from sender to receiver.
// When the receiver already has a pending request aimed at the sender the
// two requests collapse into a single accepted friendship instead of two
// opposing pending edges.
func (s *friendshipService) SendFriendRequest(senderID, receiverID string) (*model.Friendship, RequestOutcome, error) {
	if senderID == receiverID {
		return nil, "", fmt.Errorf("%w: user %s", model.ErrSelfReference, senderID)
	}

	sender, err := s.userRepo.FindByID(senderID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: sender %s", model.ErrUserNotFound, senderID)
	}
	if _, err := s.userRepo.FindByID(receiverID); err != nil {
		return nil, "", fmt.Errorf("%w: receiver %s", model.ErrUserNotFound, receiverID)
	}

	existing, err := s.friendshipRepo.FindBetween(senderID, receiverID)
	if err == nil && existing != nil {
		switch {
		case existing.IsBlocked:
			return nil, "", fmt.Errorf("%w: users %s and %s", model.ErrBlocked, senderID, receiverID)
		case existing.Status == model.FriendshipStatusAccepted:
			return nil, "", fmt.Errorf("%w: users %s and %s", model.ErrAlreadyFriends, senderID, receiverID)
		case existing.Status == model.FriendshipStatusPending:
			if existing.SenderID == senderID {
				return nil, "", fmt.Errorf("%w: to %s", model.ErrDuplicateRequest, receiverID)
			}
			// The other party already asked; accept their request instead
			// of creating a second edge.
			friendship, err := s.AcceptFriendRequest(senderID, receiverID)
			if err != nil {
				return nil, "", err
			}
			return friendship, RequestOutcomeAutoAccepted, nil
		case existing.Status == model.FriendshipStatusDeclined:
			// A declined relationship can be re-requested; reuse the row to
			// keep the pair unique. When the direction flips, the
			// observer-scoped alias pair flips with it.
			if existing.SenderID != senderID {
				existing.AliasBySender, existing.AliasByReceiver = existing.AliasByReceiver, existing.AliasBySender
				existing.SenderID = senderID
				existing.ReceiverID = receiverID
			}
			existing.IsPinned = false
			existing.Status = model.FriendshipStatusPending
			existing.AcceptedAt = nil
			if err := s.friendshipRepo.Update(existing); err != nil {
				return nil, "", fmt.Errorf("failed to renew friend request: %w", err)
			}
			s.notifyFriendRequest(existing, sender)
			renewed, err := s.friendshipRepo.FindByID(existing.ID)
			if err != nil {
				return nil, "", err
			}
			return renewed, RequestOutcomeCreated, nil
		}
	}

	friendship := &model.Friendship{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     model.FriendshipStatusPending,
	}

	// A concurrent mutual request races here; the unique pair index makes
	// the loser fail closed with ErrDuplicateRequest.
	if err := s.friendshipRepo.Create(friendship); err != nil {
		return nil, "", fmt.Errorf("failed to create friend request: %w", err)
	}

	s.notifyFriendRequest(friendship, sender)

	created, err := s.friendshipRepo.FindByID(friendship.ID)
	if err != nil {
		return nil, "", err
	}
	return created, RequestOutcomeCreated, nil
}

// AcceptFriendRequest accepts the pending request requesterID sent to accepterID
func (s *friendshipService) AcceptFriendRequest(accepterID, requesterID string) (*model.Friendship, error) {
	friendship, err := s.friendshipRepo.FindBetween(accepterID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("%w: between %s and %s", model.ErrFriendshipNotFound, accepterID, requesterID)
	}

	if friendship.Status != model.FriendshipStatusPending {
		return nil, fmt.Errorf("%w: cannot accept a %s request", model.ErrInvalidState, friendship.Status)
	}

	// Only the receiver of this specific edge may accept it.
	if friendship.ReceiverID != accepterID {
		return nil, fmt.Errorf("%w: user %s is not the recipient", model.ErrPermissionDenied, accepterID)
	}

	now := time.Now()
	friendship.Status = model.FriendshipStatusAccepted
	friendship.AcceptedAt = &now
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}

	if s.notifService != nil {
		go func() {
			accepter, _ := s.userRepo.FindByID(accepterID)
			if accepter != nil {
				s.notifService.SendFriendAcceptedNotification(friendship.SenderID, accepterID, accepter.DisplayName, friendship.ID)
			}
		}()
	}

	return s.friendshipRepo.FindByID(friendship.ID)
}

// DeclineFriendRequest declines the pending request requesterID sent to declinerID
func (s *friendshipService) DeclineFriendRequest(declinerID, requesterID string) error {
	friendship, err := s.friendshipRepo.FindBetween(declinerID, requesterID)
	if err != nil {
		return fmt.Errorf("%w: between %s and %s", model.ErrFriendshipNotFound, declinerID, requesterID)
	}

	if friendship.Status != model.FriendshipStatusPending {
		return fmt.Errorf("%w: cannot decline a %s request", model.ErrInvalidState, friendship.Status)
	}

	if friendship.ReceiverID != declinerID {
		return fmt.Errorf("%w: user %s is not the recipient", model.ErrPermissionDenied, declinerID)
	}

	friendship.Status = model.FriendshipStatusDeclined
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return fmt.Errorf("failed to decline friend request: %w", err)
	}

	return nil
}

// RemoveFriend deletes an accepted friendship entirely
func (s *friendshipService) RemoveFriend(userID, friendID string) error {
	friendship, err := s.friendshipRepo.FindBetween(userID, friendID)
	if err != nil {
		return fmt.Errorf("%w: between %s and %s", model.ErrNotFriends, userID, friendID)
	}

	if !friendship.IsMutual() {
		return fmt.Errorf("%w: between %s and %s", model.ErrNotFriends, userID, friendID)
	}

	if err := s.friendshipRepo.Delete(friendship.ID); err != nil {
		return fmt.Errorf("failed to remove friend: %w", err)
	}

	return nil
}

// BlockUser blocks targetID. Idempotent: with no prior relationship a
// blocked record is created; otherwise the existing record is overwritten,
// ending any friendship without deleting its history.
func (s *friendshipService) BlockUser(userID, targetID string) (*model.Friendship, error) {
	if userID == targetID {
		return nil, fmt.Errorf("%w: user %s", model.ErrSelfReference, userID)
	}

	friendship, err := s.friendshipRepo.FindBetween(userID, targetID)
	if err != nil {
		if _, err := s.userRepo.FindByID(userID); err != nil {
			return nil, fmt.Errorf("%w: user %s", model.ErrUserNotFound, userID)
		}
		if _, err := s.userRepo.FindByID(targetID); err != nil {
			return nil, fmt.Errorf("%w: target %s", model.ErrUserNotFound, targetID)
		}

		friendship = &model.Friendship{
			SenderID:   userID,
			ReceiverID: targetID,
			Status:     model.FriendshipStatusBlocked,
			IsBlocked:  true,
		}
		if err := s.friendshipRepo.Create(friendship); err != nil {
			return nil, fmt.Errorf("failed to block user: %w", err)
		}
		return friendship, nil
	}

	friendship.Status = model.FriendshipStatusBlocked
	friendship.IsBlocked = true
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return nil, fmt.Errorf("failed to block user: %w", err)
	}
	return friendship, nil
}

// UnblockUser clears the block. The friendship is not restored; the status
// drops to declined and must be re-requested.
func (s *friendshipService) UnblockUser(userID, targetID string) error {
	friendship, err := s.friendshipRepo.FindBetween(userID, targetID)
	if err != nil {
		return fmt.Errorf("%w: between %s and %s", model.ErrNotBlocked, userID, targetID)
	}

	if !friendship.IsBlocked {
		return fmt.Errorf("%w: between %s and %s", model.ErrNotBlocked, userID, targetID)
	}

	friendship.IsBlocked = false
	friendship.Status = model.FriendshipStatusDeclined
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}

	return nil
}

// SetFriendAlias records the caller's alias for a friend
func (s *friendshipService) SetFriendAlias(userID, friendID string, alias *string) error {
	friendship, err := s.mutualFriendship(userID, friendID)
	if err != nil {
		return err
	}

	friendship.SetAliasFor(userID, alias)
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return fmt.Errorf("failed to set alias: %w", err)
	}
	return nil
}

// TogglePinFriend flips the pinned flag on an active friendship
func (s *friendshipService) TogglePinFriend(userID, friendID string) (bool, error) {
	friendship, err := s.mutualFriendship(userID, friendID)
	if err != nil {
		return false, err
	}

	friendship.IsPinned = !friendship.IsPinned
	if err := s.friendshipRepo.Update(friendship); err != nil {
		return false, fmt.Errorf("failed to toggle pin: %w", err)
	}
	return friendship.IsPinned, nil
}

// GetFriends lists the caller's friends with their aliases and pin state
func (s *friendshipService) GetFriends(userID string) ([]FriendView, error) {
	friendships, err := s.friendshipRepo.FindAcceptedByUserID(userID)
	if err != nil {
		return nil, err
	}
	return friendViews(friendships, userID), nil
}

// GetPendingRequests lists incoming pending requests
func (s *friendshipService) GetPendingRequests(userID string) ([]*model.Friendship, error) {
	return s.friendshipRepo.FindPendingByReceiverID(userID)
}

// GetSentRequests lists outgoing pending requests
func (s *friendshipService) GetSentRequests(userID string) ([]*model.Friendship, error) {
	return s.friendshipRepo.FindPendingBySenderID(userID)
}

// GetPinnedFriends lists pinned friends
func (s *friendshipService) GetPinnedFriends(userID string) ([]FriendView, error) {
	friendships, err := s.friendshipRepo.FindPinnedByUserID(userID)
	if err != nil {
		return nil, err
	}
	return friendViews(friendships, userID), nil
}

// GetBlockedUsers lists the other party of every blocked relationship
func (s *friendshipService) GetBlockedUsers(userID string) ([]model.User, error) {
	friendships, err := s.friendshipRepo.FindBlockedByUserID(userID)
	if err != nil {
		return nil, err
	}

	users := make([]model.User, 0, len(friendships))
	for _, f := range friendships {
		users = append(users, f.OtherUser(userID))
	}
	return users, nil
}

// SearchFriends matches the keyword against each friend's display name,
// username and the caller's alias for them, case-insensitively.
func (s *friendshipService) SearchFriends(userID, keyword string) ([]FriendView, error) {
	friendships, err := s.friendshipRepo.FindAcceptedByUserID(userID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(keyword))
	results := make([]FriendView, 0)
	for _, f := range friendships {
		view := FriendView{
			User:     f.OtherUser(userID),
			Alias:    f.AliasFor(userID),
			IsPinned: f.IsPinned,
		}

		if strings.Contains(strings.ToLower(view.User.DisplayName), needle) ||
			strings.Contains(strings.ToLower(view.User.Username), needle) ||
			(view.Alias != nil && strings.Contains(strings.ToLower(*view.Alias), needle)) {
			results = append(results, view)
		}
	}
	return results, nil
}

// AreFriends reports whether an accepted, non-blocked relationship exists
func (s *friendshipService) AreFriends(userID, otherID string) (bool, error) {
	friendship, err := s.friendshipRepo.FindBetween(userID, otherID)
	if err != nil {
		if errors.Is(err, model.ErrFriendshipNotFound) {
			return false, nil
		}
		return false, err
	}
	return friendship.IsMutual(), nil
}

// GetFriendCount counts active friendships
func (s *friendshipService) GetFriendCount(userID string) (int64, error) {
	return s.friendshipRepo.CountFriendsByUserID(userID)
}

// GetFriendshipStatus reports the stored status between two users, or "none"
func (s *friendshipService) GetFriendshipStatus(userID, otherID string) (string, error) {
	friendship, err := s.friendshipRepo.FindBetween(userID, otherID)
	if err != nil {
		if errors.Is(err, model.ErrFriendshipNotFound) {
			return "none", nil
		}
		return "", err
	}
	return friendship.Status, nil
}

// mutualFriendship loads the relationship and requires it to be an active
// friendship; alias and pin operations only make sense on those.
func (s *friendshipService) mutualFriendship(userID, friendID string) (*model.Friendship, error) {
	friendship, err := s.friendshipRepo.FindBetween(userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("%w: between %s and %s", model.ErrNotFriends, userID, friendID)
	}
	if !friendship.IsMutual() {
		return nil, fmt.Errorf("%w: between %s and %s", model.ErrNotFriends, userID, friendID)
	}
	return friendship, nil
}

func (s *friendshipService) notifyFriendRequest(friendship *model.Friendship, sender *model.User) {
	if s.notifService == nil {
		return
	}
	go s.notifService.SendFriendRequestNotification(
		friendship.ReceiverID,
		friendship.SenderID,
		sender.DisplayName,
		friendship.ID,
	)
}

// friendViews maps relationship rows to the caller's perspective
func friendViews(friendships []*model.Friendship, userID string) []FriendView {
	views := make([]FriendView, 0, len(friendships))
	for _, f := range friendships {
		views = append(views, FriendView{
			User:     f.OtherUser(userID),
			Alias:    f.AliasFor(userID),
			IsPinned: f.IsPinned,
		})
	}
	return views
}
