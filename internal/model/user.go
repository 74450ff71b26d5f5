package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a user document in MongoDB. The password hash is never decoded here.
type User struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	Username  string             `json:"username" bson:"username"`
	Email     string             `json:"email" bson:"email"`
	Avatar    string             `json:"avatar" bson:"avatar"`
	Bio       string             `json:"bio,omitempty" bson:"bio,omitempty"`
	Role      string             `json:"role" bson:"role"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Identity is the immutable view of a user bound to a connection for its lifetime.
type Identity struct {
	ID       string
	Username string
	Avatar   string
	Role     string
}

func (u *User) Identity() Identity {
	return Identity{
		ID:       u.ID.Hex(),
		Username: u.Username,
		Avatar:   u.Avatar,
		Role:     u.Role,
	}
}

// Ref returns the populated reference carried on delivered messages.
func (i Identity) Ref() UserRef {
	return UserRef{ID: i.ID, Username: i.Username, Avatar: i.Avatar}
}

// UserRef is a user reference resolved to its public display fields.
type UserRef struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}
