package service

import (
	"context"
	"strings"

	"blogchat/internal/model"
	"blogchat/internal/repo"
)

// HistoryQuery selects a conversation of the viewer: the direct conversation with UserID
// when set, otherwise Room, otherwise the global room.
type HistoryQuery struct {
	UserID string
	Room   string
	Limit  int64
	Skip   int64
}

type MessageService interface {
	History(ctx context.Context, viewerID string, q HistoryQuery) ([]model.Message, error)
}

type messageService struct {
	messageRepo  repo.MessageRepository
	defaultLimit int64
	maxLimit     int64
}

// NewMessageService falls back to the repository page limits when a limit is not positive.
func NewMessageService(messageRepo repo.MessageRepository, defaultLimit, maxLimit int64) MessageService {
	if defaultLimit <= 0 {
		defaultLimit = repo.DefaultPageLimit
	}
	if maxLimit <= 0 {
		maxLimit = repo.MaxPageLimit
	}
	return &messageService{
		messageRepo:  messageRepo,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *messageService) History(ctx context.Context, viewerID string, q HistoryQuery) ([]model.Message, error) {
	page := repo.Page{Limit: q.Limit, Skip: q.Skip}
	if page.Limit <= 0 {
		page.Limit = s.defaultLimit
	}
	page.Limit = min(page.Limit, s.maxLimit)

	if other := strings.TrimSpace(q.UserID); other != "" {
		return s.messageRepo.Query(ctx, model.Between{UserA: viewerID, UserB: other}, page)
	}

	room := strings.TrimSpace(q.Room)
	if room == "" {
		room = model.GlobalRoom
	}
	return s.messageRepo.Query(ctx, model.RoomScope{Room: room}, page)
}
