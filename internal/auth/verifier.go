package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"blogchat/internal/apperr"
	"blogchat/internal/model"
	"blogchat/internal/repo"
)

// IdentityVerifier turns a bearer credential into the identity of an existing user.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (model.Identity, error)
}

// Claims is the payload of tokens issued by the login flow.
type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

type jwtVerifier struct {
	secret []byte
	users  repo.UserRepository
	parser *jwt.Parser
}

func NewJWTVerifier(secret string, users repo.UserRepository) IdentityVerifier {
	return &jwtVerifier{
		secret: []byte(secret),
		users:  users,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

func (v *jwtVerifier) Verify(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, fmt.Errorf("%w: missing credential", apperr.ErrUnauthorized)
	}

	claims := &Claims{}
	parsed, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return model.Identity{}, fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthorized)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return model.Identity{}, fmt.Errorf("%w: token has no user", apperr.ErrUnauthorized)
	}

	user, err := v.users.GetUser(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return model.Identity{}, fmt.Errorf("%w: user not found", apperr.ErrUnauthorized)
	}
	if err != nil {
		return model.Identity{}, err
	}

	return user.Identity(), nil
}
