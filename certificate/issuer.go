package certificate

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/models"
	"learnly/store"
)

// ErrAlreadyCompleted signals that the post is already in the user's
// completed set. Marking is idempotent; the caller maps this to a
// conflict response.
var ErrAlreadyCompleted = errors.New("post already completed")

// Mailer delivers an issued certificate to its owner. Delivery failure
// never fails issuance.
type Mailer interface {
	SendCertificate(to, name, category string, pdf []byte, fileName string) error
}

// Issuer runs the completion flow: record the completed post, check
// whether the post's category is now fully complete, and if so
// generate, register and mail a certificate.
type Issuer struct {
	users  store.UserStore
	posts  store.PostStore
	certs  store.CertificateStore
	gen    *Generator
	mailer Mailer

	// Per-user serialization of the evaluate-then-generate step. Two
	// near-simultaneous completions of the same category would otherwise
	// both see "category complete" and render two PDFs.
	mu    sync.Mutex
	locks map[primitive.ObjectID]*sync.Mutex
}

// NewIssuer wires the flow. mailer may be nil when mail delivery is
// not configured.
func NewIssuer(users store.UserStore, posts store.PostStore, certs store.CertificateStore, gen *Generator, mailer Mailer) *Issuer {
	return &Issuer{
		users:  users,
		posts:  posts,
		certs:  certs,
		gen:    gen,
		mailer: mailer,
		locks:  make(map[primitive.ObjectID]*sync.Mutex),
	}
}

// Result reports what one MarkPostComplete call did. Certificate is
// non-nil only when the post's category became (or already was) fully
// complete and a certificate exists for it.
type Result struct {
	CompletedPosts []primitive.ObjectID
	Certificate    *models.Certificate
}

// MarkPostComplete records postID as completed by userID and issues a
// category certificate when this completion closes the category.
// Returns ErrAlreadyCompleted when the pair was already recorded and
// store.ErrNotFound when the user or post does not exist.
func (s *Issuer) MarkPostComplete(ctx context.Context, userID, postID primitive.ObjectID) (*Result, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if user.HasCompleted(postID) {
		return nil, ErrAlreadyCompleted
	}
	if err := s.users.AddCompletedPost(ctx, userID, postID); err != nil {
		return nil, err
	}

	// Serialize evaluate-then-generate per user, and re-read the
	// completed set under the lock. Two near-simultaneous marks of a
	// category's last two posts each persist before either evaluates,
	// so whichever runs this section later sees both and issues.
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	user, err = s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	result := &Result{CompletedPosts: user.CompletedPosts}

	done, err := s.categoryComplete(ctx, user.CompletedPosts, post.Category)
	if err != nil {
		return nil, err
	}
	if !done {
		return result, nil
	}

	cert, err := s.issue(ctx, user, post.Category)
	if err != nil {
		return nil, err
	}
	result.Certificate = cert
	return result, nil
}

// categoryComplete reports whether every post tagged with category is
// in the completed set. A category with no posts is never complete, so
// an empty category can never be certified.
func (s *Issuer) categoryComplete(ctx context.Context, completed []primitive.ObjectID, category string) (bool, error) {
	posts, err := s.posts.FindByCategory(ctx, category)
	if err != nil {
		return false, err
	}
	if len(posts) == 0 {
		return false, nil
	}

	set := make(map[primitive.ObjectID]struct{}, len(completed))
	for _, id := range completed {
		set[id] = struct{}{}
	}
	for _, post := range posts {
		if _, ok := set[post.ID]; !ok {
			return false, nil
		}
	}
	return true, nil
}

// issue generates and registers exactly one certificate per (user,
// category); MarkPostComplete holds the user's lock around it. The
// generated file is only referenced once the registry insert succeeds;
// on a lost duplicate race the orphan file is removed and the winning
// record returned.
func (s *Issuer) issue(ctx context.Context, user *models.User, category string) (*models.Certificate, error) {
	existing, err := s.certs.FindByUserAndCategory(ctx, user.ID, category)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	art, err := s.gen.Generate(ctx, user.Name, category)
	if err != nil {
		return nil, err
	}

	cert := &models.Certificate{
		UserID:       user.ID,
		Category:     category,
		UniqueID:     art.UniqueID,
		FileLocation: art.FileLocation,
		IssuedAt:     time.Now(),
	}
	if err := s.certs.Insert(ctx, cert); err != nil {
		os.Remove(art.FileLocation)
		if errors.Is(err, store.ErrDuplicate) {
			return s.certs.FindByUserAndCategory(ctx, user.ID, category)
		}
		return nil, err
	}
	cert.OwnerName = user.Name

	if s.mailer != nil {
		if err := s.mailer.SendCertificate(user.Email, user.Name, category, art.PDF, art.FileName); err != nil {
			// The certificate is already registered; delivery failure
			// must not fail the request.
			log.Printf("[Issuer] certificate mail to %s failed: %v", user.Email, err)
		}
	}
	return cert, nil
}

func (s *Issuer) userLock(id primitive.ObjectID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}
