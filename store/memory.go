package store

import (
	"context"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/models"
)

// In-memory stores backing the test suites. They mirror the Mongo
// implementations' semantics, including the unique-index behavior of
// certificate inserts.

type MemoryUserStore struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (s *MemoryUserStore) Put(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = user
}

func (s *MemoryUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	copied.CompletedPosts = append([]primitive.ObjectID(nil), user.CompletedPosts...)
	return &copied, nil
}

func (s *MemoryUserStore) AddCompletedPost(ctx context.Context, userID, postID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	if user.HasCompleted(postID) {
		return nil
	}
	user.CompletedPosts = append(user.CompletedPosts, postID)
	return nil
}

type MemoryPostStore struct {
	mu    sync.Mutex
	posts map[primitive.ObjectID]*models.Post
}

func NewMemoryPostStore() *MemoryPostStore {
	return &MemoryPostStore{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (s *MemoryPostStore) Put(post *models.Post) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	s.posts[post.ID] = post
}

func (s *MemoryPostStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *post
	return &copied, nil
}

func (s *MemoryPostStore) FindByCategory(ctx context.Context, category string) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Post
	for _, post := range s.posts {
		if post.Category == category {
			out = append(out, *post)
		}
	}
	return out, nil
}

type MemoryCertificateStore struct {
	mu    sync.Mutex
	certs []*models.Certificate
	users *MemoryUserStore
}

// NewMemoryCertificateStore resolves owner names against users, which
// may be nil when name resolution is not under test.
func NewMemoryCertificateStore(users *MemoryUserStore) *MemoryCertificateStore {
	return &MemoryCertificateStore{users: users}
}

func (s *MemoryCertificateStore) Insert(ctx context.Context, cert *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.certs {
		if existing.UniqueID == cert.UniqueID {
			return ErrDuplicate
		}
		if existing.UserID == cert.UserID && existing.Category == cert.Category {
			return ErrDuplicate
		}
	}
	if cert.ID.IsZero() {
		cert.ID = primitive.NewObjectID()
	}
	copied := *cert
	s.certs = append(s.certs, &copied)
	return nil
}

func (s *MemoryCertificateStore) FindByUserAndCategory(ctx context.Context, userID primitive.ObjectID, category string) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cert := range s.certs {
		if cert.UserID == userID && cert.Category == category {
			return s.resolved(cert), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryCertificateStore) FindByUniqueID(ctx context.Context, uniqueID string) (*models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cert := range s.certs {
		if cert.UniqueID == uniqueID {
			return s.resolved(cert), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryCertificateStore) Search(ctx context.Context, filter CertificateFilter) ([]models.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Certificate
	for _, cert := range s.certs {
		resolved := s.resolved(cert)
		if filter.UniqueID != "" && resolved.UniqueID != filter.UniqueID {
			continue
		}
		if filter.OwnerName != "" &&
			!strings.Contains(strings.ToLower(resolved.OwnerName), strings.ToLower(filter.OwnerName)) {
			continue
		}
		if filter.Date != "" {
			start, end, err := dateWindow(filter.Date)
			if err != nil {
				return nil, err
			}
			if resolved.IssuedAt.Before(start) || !resolved.IssuedAt.Before(end) {
				continue
			}
		}
		out = append(out, *resolved)
	}
	return out, nil
}

func (s *MemoryCertificateStore) resolved(cert *models.Certificate) *models.Certificate {
	copied := *cert
	if s.users != nil {
		s.users.mu.Lock()
		if owner, ok := s.users.users[cert.UserID]; ok {
			copied.OwnerName = owner.Name
		}
		s.users.mu.Unlock()
	}
	return &copied
}
