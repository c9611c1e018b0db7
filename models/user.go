package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Role         string             `bson:"role" json:"role"` // user, admin

	// Post IDs the user has marked complete. Ordered by completion,
	// membership kept unique via $addToSet.
	CompletedPosts []primitive.ObjectID `bson:"completedPosts" json:"completedPosts"`

	ResetToken       *string `bson:"resetToken,omitempty" json:"-"`
	ResetTokenExpiry *int64  `bson:"resetTokenExpiry,omitempty" json:"-"`

	CreatedAt int64 `bson:"createdAt" json:"createdAt"`
}

// HasCompleted reports whether postID is already in the user's completed set.
func (u *User) HasCompleted(postID primitive.ObjectID) bool {
	for _, id := range u.CompletedPosts {
		if id == postID {
			return true
		}
	}
	return false
}
