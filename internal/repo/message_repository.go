package repo

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/db"
	"blogchat/internal/model"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	ErrInvalidMessage = errors.New("invalid message: message cannot be nil")
	ErrEmptyContent   = errors.New("invalid message: content cannot be empty")
)

// Page is a newest-first window over a conversation.
type Page struct {
	Limit int64
	Skip  int64
}

func (p Page) normalize() Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	return p
}

// MessageDocument is the stored shape of a message. Room and Recipient are never both set.
type MessageDocument struct {
	ID        primitive.ObjectID    `bson:"_id,omitempty"`
	Content   string                `bson:"content"`
	Sender    primitive.ObjectID    `bson:"sender"`
	Room      string                `bson:"room,omitempty"`
	Recipient *primitive.ObjectID   `bson:"recipient,omitempty"`
	File      *model.File           `bson:"file,omitempty"`
	Reactions []ReactionDocument    `bson:"reactions"`
	ReadBy    []ReadReceiptDocument `bson:"readBy"`
	Edited    bool                  `bson:"edited"`
	EditedAt  *time.Time            `bson:"editedAt,omitempty"`
	CreatedAt time.Time             `bson:"createdAt"`
	UpdatedAt time.Time             `bson:"updatedAt"`
}

type ReactionDocument struct {
	User      primitive.ObjectID `bson:"user"`
	Emoji     string             `bson:"emoji"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type ReadReceiptDocument struct {
	User   primitive.ObjectID `bson:"user"`
	ReadAt time.Time          `bson:"readAt"`
}

type MessageRepository interface {
	// Save assigns id and timestamps, persists the message and returns it with users resolved.
	Save(ctx context.Context, msg *model.Message) (*model.Message, error)
	// Query returns one page of a conversation ordered oldest to newest.
	Query(ctx context.Context, scope model.History, page Page) ([]model.Message, error)
	FindByID(ctx context.Context, id string) (*model.Message, error)
	Edit(ctx context.Context, id string, editorID string, content string) (*model.Message, error)
	AddReaction(ctx context.Context, id string, reaction model.Reaction) (*model.Message, error)
	MarkRead(ctx context.Context, id string, receipt model.ReadReceipt) (*model.Message, error)
}

type messageRepository struct {
	mongoRepo *db.Repository[MessageDocument]
	users     UserRepository
	logger    *zap.Logger
	now       func() time.Time
}

func NewMessageRepository(repo *db.Repository[MessageDocument], users UserRepository, logger *zap.Logger) MessageRepository {
	return &messageRepository{
		mongoRepo: repo,
		users:     users,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// MessageIndexes mirrors the access paths of Query.
func MessageIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "room", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "createdAt", Value: -1}}},
	}
}

// -----------------------------------------------------------------------------
// Save
// -----------------------------------------------------------------------------

func (m *messageRepository) Save(ctx context.Context, msg *model.Message) (*model.Message, error) {
	doc, err := m.toDocument(msg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	now := m.now()
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	err = withRetry(ctx, m.logger, "insert message", func(ctx context.Context) error {
		_, insertErr := m.mongoRepo.Create(ctx, *doc)
		return insertErr
	})
	if err != nil {
		m.logger.Error("failed to insert message after all retries",
			zap.Error(err),
			zap.String("sender_id", doc.Sender.Hex()),
		)
		return nil, fmt.Errorf("%w: insert message: %v", apperr.ErrPersistence, err)
	}

	m.logger.Debug("message inserted", zap.String("message_id", doc.ID.Hex()))

	saved := m.populate(ctx, []MessageDocument{*doc})
	return &saved[0], nil
}

// -----------------------------------------------------------------------------
// Query - newest first from the store, reversed for display
// -----------------------------------------------------------------------------

func (m *messageRepository) Query(ctx context.Context, scope model.History, page Page) ([]model.Message, error) {
	filter, err := historyFilter(scope)
	if err != nil {
		return nil, err
	}
	page = page.normalize()

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	m.logger.Debug("querying messages",
		zap.Any("filter", filter),
		zap.Int64("limit", page.Limit),
		zap.Int64("skip", page.Skip),
	)

	var docs []MessageDocument
	err = withRetry(ctx, m.logger, "query messages", func(ctx context.Context) error {
		var findErr error
		docs, findErr = m.mongoRepo.FindPage(ctx, filter, db.PageParams{
			Skip:     page.Skip,
			Limit:    page.Limit,
			SortBy:   "createdAt",
			SortDesc: true,
		})
		return findErr
	})
	if err != nil {
		return nil, m.handleReadError(err)
	}

	messages := m.populate(ctx, docs)
	slices.Reverse(messages)
	return messages, nil
}

func historyFilter(scope model.History) (bson.M, error) {
	switch s := scope.(type) {
	case model.RoomScope:
		if strings.TrimSpace(s.Room) == "" {
			return nil, fmt.Errorf("%w: room is required", apperr.ErrValidation)
		}
		return db.NewFilter().Eq("room", s.Room).Build(), nil
	case model.Between:
		a, errA := primitive.ObjectIDFromHex(s.UserA)
		b, errB := primitive.ObjectIDFromHex(s.UserB)
		if errA != nil || errB != nil {
			return nil, fmt.Errorf("%w: invalid user id", apperr.ErrValidation)
		}
		return db.NewFilter().Or(
			bson.M{"sender": a, "recipient": b},
			bson.M{"sender": b, "recipient": a},
		).Build(), nil
	default:
		return nil, fmt.Errorf("%w: unknown conversation scope %T", apperr.ErrValidation, scope)
	}
}

// -----------------------------------------------------------------------------
// Mutations - edited flag and append-only lists
// -----------------------------------------------------------------------------

func (m *messageRepository) FindByID(ctx context.Context, id string) (*model.Message, error) {
	doc, err := m.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	found := m.populate(ctx, []MessageDocument{*doc})
	return &found[0], nil
}

func (m *messageRepository) Edit(ctx context.Context, id string, editorID string, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrEmptyContent)
	}

	current, err := m.findDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Sender.Hex() != editorID {
		return nil, fmt.Errorf("%w: only the sender can edit a message", apperr.ErrForbidden)
	}

	now := m.now()
	return m.update(ctx, "edit message", bson.M{"_id": current.ID}, bson.M{
		"$set": bson.M{
			"content":   content,
			"edited":    true,
			"editedAt":  now,
			"updatedAt": now,
		},
	})
}

func (m *messageRepository) AddReaction(ctx context.Context, id string, reaction model.Reaction) (*model.Message, error) {
	objectID, userID, err := parseIDs(id, reaction.User)
	if err != nil {
		return nil, err
	}

	now := m.now()
	return m.update(ctx, "add reaction", bson.M{"_id": objectID}, bson.M{
		"$push": bson.M{"reactions": ReactionDocument{User: userID, Emoji: reaction.Emoji, CreatedAt: now}},
		"$set":  bson.M{"updatedAt": now},
	})
}

func (m *messageRepository) MarkRead(ctx context.Context, id string, receipt model.ReadReceipt) (*model.Message, error) {
	objectID, userID, err := parseIDs(id, receipt.User)
	if err != nil {
		return nil, err
	}

	now := m.now()
	filter := db.NewFilter().Eq("_id", objectID).Ne("readBy.user", userID).Build()
	updated, err := m.update(ctx, "mark read", filter, bson.M{
		"$push": bson.M{"readBy": ReadReceiptDocument{User: userID, ReadAt: now}},
		"$set":  bson.M{"updatedAt": now},
	})
	if errors.Is(err, apperr.ErrNotFound) {
		// already read by this user, or the message does not exist
		return m.FindByID(ctx, id)
	}
	return updated, err
}

func (m *messageRepository) update(ctx context.Context, op string, filter bson.M, update bson.M) (*model.Message, error) {
	ctx, cancel := ensureTimeout(ctx, defaultWriteTimeout)
	defer cancel()

	var doc *MessageDocument
	err := withRetry(ctx, m.logger, op, func(ctx context.Context) error {
		var updateErr error
		doc, updateErr = m.mongoRepo.FindOneAndUpdate(ctx, filter, update)
		return updateErr
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: message", apperr.ErrNotFound)
	}
	if err != nil {
		m.logger.Error(op+" failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrPersistence, op, err)
	}

	updated := m.populate(ctx, []MessageDocument{*doc})
	return &updated[0], nil
}

// -----------------------------------------------------------------------------
// Private Helper Methods
// -----------------------------------------------------------------------------

func (m *messageRepository) findDocument(ctx context.Context, id string) (*MessageDocument, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid message id", apperr.ErrValidation)
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var doc *MessageDocument
	err = withRetry(ctx, m.logger, "find message", func(ctx context.Context) error {
		var findErr error
		doc, findErr = m.mongoRepo.FindOne(ctx, bson.M{"_id": objectID})
		return findErr
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: message %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return nil, m.handleReadError(err)
	}
	return doc, nil
}

func (m *messageRepository) toDocument(msg *model.Message) (*MessageDocument, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrInvalidMessage)
	}
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: %v", apperr.ErrValidation, ErrEmptyContent)
	}
	sender, err := primitive.ObjectIDFromHex(msg.Sender.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid sender id", apperr.ErrValidation)
	}

	doc := &MessageDocument{
		Content:   content,
		Sender:    sender,
		File:      msg.File,
		Reactions: []ReactionDocument{},
		ReadBy:    []ReadReceiptDocument{},
	}

	switch s := msg.Scope.(type) {
	case model.DirectScope:
		recipient, err := primitive.ObjectIDFromHex(s.Recipient)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid recipient id", apperr.ErrValidation)
		}
		doc.Recipient = &recipient
	case model.RoomScope:
		doc.Room = s.Room
	default:
		doc.Room = model.GlobalRoom
	}
	return doc, nil
}

// populate resolves sender and recipient references. A lookup failure degrades to id-only references.
func (m *messageRepository) populate(ctx context.Context, docs []MessageDocument) []model.Message {
	ids := make([]string, 0, len(docs)*2)
	for _, d := range docs {
		ids = append(ids, d.Sender.Hex())
		if d.Recipient != nil {
			ids = append(ids, d.Recipient.Hex())
		}
	}

	refs, err := m.users.GetRefs(ctx, ids)
	if err != nil {
		m.logger.Warn("failed to resolve message users", zap.Error(err))
		refs = map[string]model.UserRef{}
	}
	ref := func(id primitive.ObjectID) model.UserRef {
		if r, ok := refs[id.Hex()]; ok {
			return r
		}
		return model.UserRef{ID: id.Hex()}
	}

	return lo.Map(docs, func(d MessageDocument, _ int) model.Message {
		msg := model.Message{
			ID:        d.ID.Hex(),
			Content:   d.Content,
			Sender:    ref(d.Sender),
			File:      d.File,
			Edited:    d.Edited,
			EditedAt:  d.EditedAt,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
			Reactions: lo.Map(d.Reactions, func(r ReactionDocument, _ int) model.Reaction {
				return model.Reaction{User: r.User.Hex(), Emoji: r.Emoji, CreatedAt: r.CreatedAt}
			}),
			ReadBy: lo.Map(d.ReadBy, func(r ReadReceiptDocument, _ int) model.ReadReceipt {
				return model.ReadReceipt{User: r.User.Hex(), ReadAt: r.ReadAt}
			}),
		}
		if d.Recipient != nil {
			recipient := ref(*d.Recipient)
			msg.Scope = model.DirectScope{Recipient: d.Recipient.Hex()}
			msg.Recipient = &recipient
		} else {
			room := d.Room
			if room == "" {
				room = model.GlobalRoom
			}
			msg.Scope = model.RoomScope{Room: room}
		}
		return msg
	})
}

func parseIDs(messageID, userID string) (primitive.ObjectID, primitive.ObjectID, error) {
	msgOID, err := primitive.ObjectIDFromHex(messageID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("%w: invalid message id", apperr.ErrValidation)
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("%w: invalid user id", apperr.ErrValidation)
	}
	return msgOID, userOID, nil
}

func (m *messageRepository) handleReadError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		m.logger.Error("read timeout", zap.Error(err))
		return fmt.Errorf("%w: operation timeout exceeded", apperr.ErrPersistence)
	}

	if errors.Is(err, context.Canceled) {
		m.logger.Debug("read cancelled")
		return err
	}

	m.logger.Error("read failed", zap.Error(err))
	return fmt.Errorf("%w: read messages: %v", apperr.ErrPersistence, err)
}
