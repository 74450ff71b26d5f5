package hub

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/event"
	"blogchat/internal/model"
	"blogchat/internal/repo"
)

// Router persists messages and fans them out to live connections.
type Router struct {
	store    repo.MessageRepository
	presence *PresenceRegistry
	rooms    *Rooms
	logger   *zap.Logger
	now      func() time.Time
}

func NewRouter(store repo.MessageRepository, presence *PresenceRegistry, rooms *Rooms, logger *zap.Logger) *Router {
	return &Router{
		store:    store,
		presence: presence,
		rooms:    rooms,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RouteMessage validates, persists and delivers one message. A direct message goes to the
// recipient when online and always back to origin; a room message goes to every member of
// the room. Nothing is persisted or delivered when an error is returned.
func (r *Router) RouteMessage(ctx context.Context, sender model.Identity, origin Conn, content, room, recipient string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}

	msg := &model.Message{
		Content: content,
		Sender:  sender.Ref(),
		Scope:   model.NewScope(room, recipient),
	}

	saved, err := r.store.Save(ctx, msg)
	if err != nil {
		r.logger.Error("failed to persist message",
			zap.String("sender", sender.ID),
			zap.Error(err))
		return nil, err
	}

	delivered := r.deliver(saved, sender.ID, origin, event.EventNewMessage)
	r.logger.Debug("message routed",
		zap.String("message_id", saved.ID),
		zap.String("sender", sender.ID),
		zap.Int("delivered", delivered))
	return saved, nil
}

// EditMessage replaces the content of a message the actor sent.
func (r *Router) EditMessage(ctx context.Context, actor model.Identity, origin Conn, messageID, content string) (*model.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: content is required", apperr.ErrValidation)
	}
	return r.mutate(ctx, actor, origin, messageID, func(ctx context.Context) (*model.Message, error) {
		return r.store.Edit(ctx, messageID, actor.ID, content)
	})
}

func (r *Router) AddReaction(ctx context.Context, actor model.Identity, origin Conn, messageID, emoji string) (*model.Message, error) {
	return r.mutate(ctx, actor, origin, messageID, func(ctx context.Context) (*model.Message, error) {
		return r.store.AddReaction(ctx, messageID, model.Reaction{
			User:      actor.ID,
			Emoji:     emoji,
			CreatedAt: r.now(),
		})
	})
}

// MarkRead appends a read receipt once per user.
func (r *Router) MarkRead(ctx context.Context, actor model.Identity, origin Conn, messageID string) (*model.Message, error) {
	return r.mutate(ctx, actor, origin, messageID, func(ctx context.Context) (*model.Message, error) {
		return r.store.MarkRead(ctx, messageID, model.ReadReceipt{
			User:   actor.ID,
			ReadAt: r.now(),
		})
	})
}

// mutate checks that the actor may see the message, applies the change and delivers
// messageUpdated to the same targets a new message would reach.
func (r *Router) mutate(ctx context.Context, actor model.Identity, origin Conn, messageID string, apply func(context.Context) (*model.Message, error)) (*model.Message, error) {
	current, err := r.store.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if !participant(current, actor.ID) {
		return nil, fmt.Errorf("%w: not a participant of this conversation", apperr.ErrForbidden)
	}

	updated, err := apply(ctx)
	if err != nil {
		return nil, err
	}

	r.deliver(updated, actor.ID, origin, event.EventMessageUpdated)
	return updated, nil
}

func participant(msg *model.Message, userID string) bool {
	recipient, direct := msg.RecipientID()
	if !direct {
		return true
	}
	return msg.Sender.ID == userID || recipient == userID
}

// deliver sends msg to its targets and returns how many connections accepted it.
func (r *Router) deliver(msg *model.Message, actorID string, origin Conn, name string) int {
	ev := event.New(name, msg)

	switch scope := msg.Scope.(type) {
	case model.DirectScope:
		delivered := 0
		for _, userID := range []string{msg.Sender.ID, scope.Recipient} {
			if userID == actorID {
				continue
			}
			if conn, ok := r.presence.Lookup(userID); ok && conn.ID() != origin.ID() {
				if conn.Send(ev) {
					delivered++
				}
			}
		}
		if origin.Send(ev) {
			delivered++
		}
		return delivered

	case model.RoomScope:
		delivered := 0
		for _, conn := range r.rooms.Members(scope.Room) {
			if conn.Send(ev) {
				delivered++
			}
		}
		return delivered
	}
	return 0
}
