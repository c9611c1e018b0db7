package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"learnly/certificate"
	"learnly/models"
	"learnly/store"
)

type apiFixture struct {
	router *gin.Engine
	users  *store.MemoryUserStore
	posts  *store.MemoryPostStore
	certs  *store.MemoryCertificateStore
	user   *models.User
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &apiFixture{
		users: store.NewMemoryUserStore(),
		posts: store.NewMemoryPostStore(),
	}
	f.certs = store.NewMemoryCertificateStore(f.users)
	f.user = &models.User{Name: "Ada Lovelace", Email: "ada@example.com", Role: models.RoleUser}
	f.users.Put(f.user)

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	assets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	t.Cleanup(assets.Close)

	gen := certificate.NewGenerator(certificate.GeneratorConfig{
		BackgroundURL: assets.URL + "/certificate-bg.png",
		OutputDir:     t.TempDir(),
		VerifyBaseURL: "http://localhost:8080/api/certificates",
		FetchTimeout:  5 * time.Second,
	})
	Init(certificate.NewIssuer(f.users, f.posts, f.certs, gen, nil), f.certs, nil)

	router := gin.New()
	authed := router.Group("/api")
	authed.Use(func(c *gin.Context) {
		c.Set("userId", f.user.ID.Hex())
		c.Next()
	})
	authed.PUT("/posts/complete/:postId", MarkPostComplete)
	router.GET("/api/certificates", SearchCertificates)
	router.GET("/api/certificates/:uniqueId", GetCertificate)
	router.GET("/api/certificates/:uniqueId/download", DownloadCertificate)
	f.router = router
	return f
}

func (f *apiFixture) addPost(title, category string) *models.Post {
	post := &models.Post{Title: title, Category: category}
	f.posts.Put(post)
	return post
}

func (f *apiFixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	body := map[string]interface{}{}
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestMarkPostCompleteOutcomes(t *testing.T) {
	f := setupAPI(t)
	p1 := f.addPost("Tags", "HTML")
	p2 := f.addPost("Forms", "HTML")

	// First completion: 200, no certificate yet
	rec, body := f.do(t, http.MethodPut, "/api/posts/complete/"+p1.ID.Hex())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, body, "certificate")
	assert.Len(t, body["completedPosts"], 1)

	// Marking the same post again: conflict
	rec, body = f.do(t, http.MethodPut, "/api/posts/complete/"+p1.ID.Hex())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Post already completed", body["error"])

	// Final post of the category: 200 with the issued certificate
	rec, body = f.do(t, http.MethodPut, "/api/posts/complete/"+p2.ID.Hex())
	assert.Equal(t, http.StatusOK, rec.Code)
	cert, ok := body["certificate"].(map[string]interface{})
	require.True(t, ok, "response should embed the certificate record")
	assert.Equal(t, "HTML", cert["category"])
	assert.NotEmpty(t, cert["uniqueId"])
}

func TestMarkPostCompleteUnknownPost(t *testing.T) {
	f := setupAPI(t)

	rec, _ := f.do(t, http.MethodPut, "/api/posts/complete/"+primitive.NewObjectID().Hex())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = f.do(t, http.MethodPut, "/api/posts/complete/not-an-id")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCertificateNotFound(t *testing.T) {
	f := setupAPI(t)

	rec, body := f.do(t, http.MethodGet, "/api/certificates/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Certificate not found", body["error"])
}

func TestCertificateVerificationRoundTrip(t *testing.T) {
	f := setupAPI(t)
	p1 := f.addPost("Tags", "HTML")

	rec, body := f.do(t, http.MethodPut, "/api/posts/complete/"+p1.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	issued := body["certificate"].(map[string]interface{})
	uniqueID := issued["uniqueId"].(string)

	rec, body = f.do(t, http.MethodGet, "/api/certificates/"+uniqueID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada Lovelace", body["ownerName"])
	assert.Equal(t, "HTML", body["category"])
	assert.Equal(t, uniqueID, body["uniqueId"])

	// Download streams a PDF
	req := httptest.NewRequest(http.MethodGet, "/api/certificates/"+uniqueID+"/download", nil)
	dl := httptest.NewRecorder()
	f.router.ServeHTTP(dl, req)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.True(t, bytes.HasPrefix(dl.Body.Bytes(), []byte("%PDF")))
}

func TestDownloadMissingFileIsNotFound(t *testing.T) {
	f := setupAPI(t)
	p1 := f.addPost("Tags", "HTML")

	rec, body := f.do(t, http.MethodPut, "/api/posts/complete/"+p1.ID.Hex())
	require.Equal(t, http.StatusOK, rec.Code)
	issued := body["certificate"].(map[string]interface{})
	uniqueID := issued["uniqueId"].(string)

	stored, err := f.certs.FindByUniqueID(context.Background(), uniqueID)
	require.NoError(t, err)
	require.NoError(t, os.Remove(stored.FileLocation))

	rec, body = f.do(t, http.MethodGet, "/api/certificates/"+uniqueID+"/download")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Certificate file not found", body["error"])
}

func TestSearchCertificates(t *testing.T) {
	f := setupAPI(t)
	grace := &models.User{Name: "Grace Hopper", Email: "grace@example.com"}
	f.users.Put(grace)

	march5 := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	march6 := time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)
	seed := []models.Certificate{
		{UserID: f.user.ID, Category: "HTML", UniqueID: "a1", IssuedAt: march5},
		{UserID: grace.ID, Category: "HTML", UniqueID: "g1", IssuedAt: march5},
		{UserID: f.user.ID, Category: "CSS", UniqueID: "a2", IssuedAt: march6},
	}
	for i := range seed {
		require.NoError(t, f.certs.Insert(context.Background(), &seed[i]))
	}

	list := func(path string) []map[string]interface{} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
		var out []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, list("/api/certificates"), 3)
	assert.Len(t, list("/api/certificates?date=2024-03-05"), 2)
	assert.Len(t, list("/api/certificates?userName=ada"), 2)

	combined := list("/api/certificates?userName=ada&date=2024-03-05")
	require.Len(t, combined, 1)
	assert.Equal(t, "a1", combined[0]["uniqueId"])
	assert.Equal(t, "Ada Lovelace", combined[0]["ownerName"])

	byID := list("/api/certificates?uniqueId=g1")
	require.Len(t, byID, 1)
	assert.Equal(t, "Grace Hopper", byID[0]["ownerName"])

	// Invalid date is a validation error
	rec, body := f.do(t, http.MethodGet, "/api/certificates?date=March+5")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "Invalid date")
}
