package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate")
)

type UserStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// AddCompletedPost adds postID to the user's completed set. Adding an
	// id that is already present is a no-op.
	AddCompletedPost(ctx context.Context, userID, postID primitive.ObjectID) error
}

type PostStore interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	FindByCategory(ctx context.Context, category string) ([]models.Post, error)
}

// CertificateFilter narrows a certificate search. Zero-value fields
// impose no constraint; set fields are AND-combined.
type CertificateFilter struct {
	OwnerName string // case-insensitive substring of the owner's display name
	UniqueID  string // exact match
	Date      string // YYYY-MM-DD, matches the whole calendar day
}

type CertificateStore interface {
	// Insert persists a new certificate record. Returns ErrDuplicate when
	// the uniqueId or the (userId, category) pair already exists.
	Insert(ctx context.Context, cert *models.Certificate) error
	FindByUserAndCategory(ctx context.Context, userID primitive.ObjectID, category string) (*models.Certificate, error)
	// FindByUniqueID resolves the record with the owner's display name set.
	FindByUniqueID(ctx context.Context, uniqueID string) (*models.Certificate, error)
	Search(ctx context.Context, filter CertificateFilter) ([]models.Certificate, error)
}
