package certificate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/models"
	"learnly/store"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	files []string
}

func (m *recordingMailer) SendCertificate(to, name, category string, pdf []byte, fileName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unreachable")
	}
	m.sent = append(m.sent, to+"/"+category)
	m.files = append(m.files, fileName)
	return nil
}

type issuerFixture struct {
	users  *store.MemoryUserStore
	posts  *store.MemoryPostStore
	certs  *store.MemoryCertificateStore
	mailer *recordingMailer
	issuer *Issuer
	user   *models.User
}

func newIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()
	f := &issuerFixture{
		users:  store.NewMemoryUserStore(),
		posts:  store.NewMemoryPostStore(),
		mailer: &recordingMailer{},
	}
	f.certs = store.NewMemoryCertificateStore(f.users)
	f.user = &models.User{Name: "Ada Lovelace", Email: "ada@example.com", Role: models.RoleUser}
	f.users.Put(f.user)
	f.issuer = NewIssuer(f.users, f.posts, f.certs, newTestGenerator(t), f.mailer)
	return f
}

func (f *issuerFixture) addPost(title, category string) *models.Post {
	post := &models.Post{Title: title, Category: category}
	f.posts.Put(post)
	return post
}

func TestMarkPostCompleteProgress(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	f.addPost("Forms", "HTML")

	result, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p1.ID}, result.CompletedPosts)
	assert.Nil(t, result.Certificate, "category is not complete yet")
}

func TestMarkPostCompleteIssuesCertificate(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	p2 := f.addPost("Forms", "HTML")

	_, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)

	result, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p2.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Certificate)

	cert := result.Certificate
	assert.Equal(t, "HTML", cert.Category)
	assert.Equal(t, f.user.ID, cert.UserID)
	assert.NotEmpty(t, cert.UniqueID)
	assert.Equal(t, "Ada Lovelace", cert.OwnerName)
	assert.FileExists(t, cert.FileLocation)

	// Registered and retrievable by unique id
	stored, err := f.certs.FindByUniqueID(ctx, cert.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, "HTML", stored.Category)
	assert.Equal(t, "Ada Lovelace", stored.OwnerName)

	// Mailed to the owner
	assert.Equal(t, []string{"ada@example.com/HTML"}, f.mailer.sent)
}

func TestMarkPostCompleteConflict(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Selectors", "CSS")
	f.addPost("Flexbox", "CSS")
	f.addPost("Grid", "CSS")

	_, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)

	// Marking the same post again is a conflict and issues nothing
	_, err = f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = f.certs.FindByUserAndCategory(ctx, f.user.ID, "CSS")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The completed set was not duplicated
	user, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p1.ID}, user.CompletedPosts)
}

func TestMarkPostCompleteNotFound(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	post := f.addPost("Tags", "HTML")

	_, err := f.issuer.MarkPostComplete(ctx, f.user.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = f.issuer.MarkPostComplete(ctx, primitive.NewObjectID(), post.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCategoryCompleteEmptyCategory(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)

	done, err := f.issuer.categoryComplete(ctx, nil, "Empty")
	require.NoError(t, err)
	assert.False(t, done, "a category with no posts can never be certified")
}

func TestCategoryMatchIsExact(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	f.addPost("Other", "html") // different byte value, different category

	result, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Certificate)
	assert.Equal(t, "HTML", result.Certificate.Category)
}

func TestIssueIdempotentWhenCertificateExists(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	p2 := f.addPost("Forms", "HTML")

	_, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)
	first, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p2.ID)
	require.NoError(t, err)

	// The category is complete and a certificate exists; issuing again
	// must return the same record, not a new one.
	again, err := f.issuer.issue(ctx, f.user, "HTML")
	require.NoError(t, err)
	assert.Equal(t, first.Certificate.UniqueID, again.UniqueID)
	assert.Len(t, f.mailer.sent, 1)
}

// losesRaceCertStore simulates a concurrent writer: the pre-generate
// existence check sees nothing, then the insert hits the unique index.
type losesRaceCertStore struct {
	*store.MemoryCertificateStore
	winnerFile string
	raced      bool
}

func (s *losesRaceCertStore) FindByUserAndCategory(ctx context.Context, userID primitive.ObjectID, category string) (*models.Certificate, error) {
	if !s.raced {
		return nil, store.ErrNotFound
	}
	return s.MemoryCertificateStore.FindByUserAndCategory(ctx, userID, category)
}

func (s *losesRaceCertStore) Insert(ctx context.Context, cert *models.Certificate) error {
	if !s.raced {
		s.raced = true
		winner := *cert
		winner.UniqueID = "winner-" + cert.UniqueID
		winner.ID = primitive.NewObjectID()
		winner.FileLocation = s.winnerFile
		if err := s.MemoryCertificateStore.Insert(ctx, &winner); err != nil {
			return err
		}
	}
	return s.MemoryCertificateStore.Insert(ctx, cert)
}

func TestIssueDuplicateRaceReturnsWinner(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	f.addPost("Forms", "HTML")

	racing := &losesRaceCertStore{MemoryCertificateStore: f.certs}
	issuer := NewIssuer(f.users, f.posts, racing, newTestGenerator(t), f.mailer)

	_, err := issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)

	cert, err := issuer.issue(ctx, f.user, "HTML")
	require.NoError(t, err)
	assert.True(t, len(cert.UniqueID) > 0)
	assert.Contains(t, cert.UniqueID, "winner-", "the racing insert won and its record is returned")

	// Exactly one certificate exists for the pair
	got, err := f.certs.Search(ctx, store.CertificateFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// gatedUserStore holds every AddCompletedPost until all expected calls
// have persisted, forcing concurrent marks to land before either
// caller evaluates the category.
type gatedUserStore struct {
	*store.MemoryUserStore
	barrier *sync.WaitGroup
}

func (s *gatedUserStore) AddCompletedPost(ctx context.Context, userID, postID primitive.ObjectID) error {
	err := s.MemoryUserStore.AddCompletedPost(ctx, userID, postID)
	s.barrier.Done()
	s.barrier.Wait()
	return err
}

func TestConcurrentFinalMarksStillIssueCertificate(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	p2 := f.addPost("Forms", "HTML")

	var barrier sync.WaitGroup
	barrier.Add(2)
	gated := &gatedUserStore{MemoryUserStore: f.users, barrier: &barrier}
	issuer := NewIssuer(gated, f.posts, f.certs, newTestGenerator(t), f.mailer)

	results := make([]*Result, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, postID := range []primitive.ObjectID{p1.ID, p2.ID} {
		wg.Add(1)
		go func(i int, postID primitive.ObjectID) {
			defer wg.Done()
			results[i], errs[i] = issuer.MarkPostComplete(ctx, f.user.ID, postID)
		}(i, postID)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both marks persisted, so the category is complete and a
	// certificate must exist for it.
	user, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, user.CompletedPosts, 2)

	cert, err := f.certs.FindByUserAndCategory(ctx, f.user.ID, "HTML")
	require.NoError(t, err, "fully completed category must have a certificate")

	issued := 0
	for _, r := range results {
		if r.Certificate != nil {
			issued++
			assert.Equal(t, cert.UniqueID, r.Certificate.UniqueID)
		}
	}
	assert.GreaterOrEqual(t, issued, 1, "at least one mark must report the certificate")

	// And exactly one record exists for the pair
	all, err := f.certs.Search(ctx, store.CertificateFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMailFailureDoesNotFailIssuance(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	f.mailer.fail = true
	p1 := f.addPost("Tags", "HTML")

	result, err := f.issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Certificate)

	stored, err := f.certs.FindByUniqueID(ctx, result.Certificate.UniqueID)
	require.NoError(t, err)
	assert.FileExists(t, stored.FileLocation)
}

func TestAssetFailureAbortsIssuance(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")

	broken := NewGenerator(GeneratorConfig{
		BackgroundURL: "http://127.0.0.1:1/bg.png",
		OutputDir:     t.TempDir(),
		VerifyBaseURL: "http://localhost:8080/api/certificates",
	})
	issuer := NewIssuer(f.users, f.posts, f.certs, broken, f.mailer)

	_, err := issuer.MarkPostComplete(ctx, f.user.ID, p1.ID)
	require.Error(t, err)

	// The completion itself was recorded, but no certificate was
	// registered without a rendered file.
	user, err := f.users.FindByID(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p1.ID}, user.CompletedPosts)

	_, err = f.certs.FindByUserAndCategory(ctx, f.user.ID, "HTML")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, f.mailer.sent)
}

func TestOrphanFileRemovedOnLostRace(t *testing.T) {
	ctx := context.Background()
	f := newIssuerFixture(t)
	p1 := f.addPost("Tags", "HTML")
	require.NotNil(t, p1)

	gen := newTestGenerator(t)
	winnerFile := filepath.Join(gen.cfg.OutputDir, "winner.pdf")
	require.NoError(t, os.WriteFile(winnerFile, []byte("%PDF-1.4"), 0o644))

	racing := &losesRaceCertStore{MemoryCertificateStore: f.certs, winnerFile: winnerFile}
	issuer := NewIssuer(f.users, f.posts, racing, gen, f.mailer)

	cert, err := issuer.issue(ctx, f.user, "HTML")
	require.NoError(t, err)

	// Only the winner's file should remain referenced; the loser's
	// rendered file was deleted.
	entries, err := os.ReadDir(gen.cfg.OutputDir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.FileExists(t, cert.FileLocation)
}
