package service

import (
	"context"

	"go.uber.org/zap"

	"blogchat/internal/hub"
	"blogchat/internal/model"
	"blogchat/internal/repo"
)

type UserService interface {
	OnlineUsers() []model.OnlineUser
	// Presence reports whether a known user is online. For offline users lastSeen comes
	// from the last-seen mirror and is nil when they were never seen.
	Presence(ctx context.Context, userID string) (model.PresenceStatus, error)
}

type userService struct {
	repo     repo.UserRepository
	presence *hub.PresenceRegistry
	lastSeen repo.LastSeenRepository
	logger   *zap.Logger
}

func NewUserService(repo repo.UserRepository, presence *hub.PresenceRegistry, lastSeen repo.LastSeenRepository, logger *zap.Logger) UserService {
	return &userService{
		repo:     repo,
		presence: presence,
		lastSeen: lastSeen,
		logger:   logger,
	}
}

func (s *userService) OnlineUsers() []model.OnlineUser {
	return s.presence.Snapshot()
}

func (s *userService) Presence(ctx context.Context, userID string) (model.PresenceStatus, error) {
	if user, ok := s.presence.Get(userID); ok {
		seen := user.LastSeen
		return model.PresenceStatus{
			UserID:   userID,
			Online:   true,
			Status:   user.Status,
			LastSeen: &seen,
		}, nil
	}

	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return model.PresenceStatus{}, err
	}

	status := model.PresenceStatus{UserID: userID}
	seen, err := s.lastSeen.Get(ctx, userID)
	if err != nil {
		// the mirror is best effort; an offline answer without lastSeen is still correct
		s.logger.Warn("failed to read last seen", zap.String("user_id", userID), zap.Error(err))
		return status, nil
	}
	status.LastSeen = seen
	return status, nil
}
