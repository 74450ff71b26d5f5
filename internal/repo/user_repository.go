package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/db"
	"blogchat/internal/model"
)

type UserRepository interface {
	// GetUser returns the public user record or an error wrapping apperr.ErrNotFound.
	GetUser(ctx context.Context, id string) (*model.User, error)
	// GetRefs resolves ids to display references. Unknown ids are absent from the map.
	GetRefs(ctx context.Context, ids []string) (map[string]model.UserRef, error)
}

type userRepository struct {
	mongoRepo *db.Repository[model.User]
	logger    *zap.Logger
}

func NewUserRepository(repo *db.Repository[model.User], logger *zap.Logger) UserRepository {
	return &userRepository{
		mongoRepo: repo,
		logger:    logger,
	}
}

func (r *userRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: user %q", apperr.ErrNotFound, id)
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	var user *model.User
	err = withRetry(ctx, r.logger, "get user", func(ctx context.Context) error {
		var findErr error
		user, findErr = r.mongoRepo.FindByID(ctx, objectID)
		return findErr
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: user %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("failed to fetch user", zap.String("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: get user: %v", apperr.ErrPersistence, err)
	}

	return user, nil
}

func (r *userRepository) GetRefs(ctx context.Context, ids []string) (map[string]model.UserRef, error) {
	objectIDs := lo.FilterMap(lo.Uniq(ids), func(id string, _ int) (primitive.ObjectID, bool) {
		oid, err := primitive.ObjectIDFromHex(id)
		return oid, err == nil
	})
	refs := make(map[string]model.UserRef, len(objectIDs))
	if len(objectIDs) == 0 {
		return refs, nil
	}

	ctx, cancel := ensureTimeout(ctx, defaultReadTimeout)
	defer cancel()

	filter := db.NewFilter().In("_id", objectIDs).Build()
	projection := options.Find().SetProjection(bson.M{"username": 1, "avatar": 1})

	var users []model.User
	err := withRetry(ctx, r.logger, "resolve users", func(ctx context.Context) error {
		var findErr error
		users, findErr = r.mongoRepo.FindAll(ctx, filter, projection)
		return findErr
	})
	if err != nil {
		return nil, fmt.Errorf("%w: resolve users: %v", apperr.ErrPersistence, err)
	}

	for _, u := range users {
		refs[u.ID.Hex()] = model.UserRef{ID: u.ID.Hex(), Username: u.Username, Avatar: u.Avatar}
	}
	return refs, nil
}
