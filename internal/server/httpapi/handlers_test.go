package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/logging"
	"github.com/dkravets/kitafeed/internal/server/config"
	"github.com/dkravets/kitafeed/internal/server/models"
	"github.com/dkravets/kitafeed/internal/server/repositories/refreshtokens"
	"github.com/dkravets/kitafeed/internal/server/storage"
	"github.com/dkravets/kitafeed/internal/server/users"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// ---- fakes ----

type fakeUserRepo struct {
	byLogin map[string]*models.User
	byID    map[string]*models.User
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = "u-" + user.UserName
	f.byLogin[user.UserName] = user
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	u, ok := f.byLogin[login]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return u, nil
}

type fakeTokenRepo struct {
	tokens map[string]*refreshtokens.RefreshToken
}

func (f *fakeTokenRepo) Create(ctx context.Context, userID, token string, validity time.Duration) error {
	f.tokens[token] = &refreshtokens.RefreshToken{UserID: userID, Expires: time.Now().Add(validity)}
	return nil
}

func (f *fakeTokenRepo) Find(ctx context.Context, token string) (*refreshtokens.RefreshToken, error) {
	t, ok := f.tokens[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	return t, nil
}

func (f *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

type fakeChildren struct {
	roster []models.Child
}

func (f *fakeChildren) GetAll(ctx context.Context) ([]models.Child, error) {
	return f.roster, nil
}

func (f *fakeChildren) ConsentFor(ctx context.Context, ids []string) (map[string]bool, error) {
	out := map[string]bool{}
	for _, c := range f.roster {
		for _, id := range ids {
			if c.ID == id {
				out[id] = c.PhotoConsent
			}
		}
	}
	return out, nil
}

type fakePosts struct {
	byID    map[string]*models.Post
	nextID  int
	deleted []string
	liked   map[string]bool
	likers  []models.User
}

func (f *fakePosts) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	f.nextID++
	post.ID = "p-" + strconv.Itoa(f.nextID)
	post.CreatedAt = time.Now()
	f.byID[post.ID] = post
	return post, nil
}

func (f *fakePosts) GetFeed(ctx context.Context, viewerID string) ([]models.Post, error) {
	var out []models.Post
	for _, p := range f.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePosts) GetByID(ctx context.Context, id string) (*models.Post, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return p, nil
}

func (f *fakePosts) UpdateText(ctx context.Context, id, text string) error {
	p, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	p.Text = text
	return nil
}

func (f *fakePosts) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakePosts) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	if f.liked == nil {
		f.liked = map[string]bool{}
	}
	f.liked[postID] = !f.liked[postID]
	return f.liked[postID], nil
}

func (f *fakePosts) Likers(ctx context.Context, postID string) ([]models.User, error) {
	return f.likers, nil
}

type fakeComments struct {
	byID   map[string]*models.Comment
	nextID int
}

func (f *fakeComments) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	var out []models.Comment
	for _, cm := range f.byID {
		if cm.PostID == postID {
			out = append(out, *cm)
		}
	}
	return out, nil
}

func (f *fakeComments) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	f.nextID++
	comment.ID = "c-" + strconv.Itoa(f.nextID)
	comment.CreatedAt = time.Now()
	f.byID[comment.ID] = comment
	return comment, nil
}

func (f *fakeComments) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	cm, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return cm, nil
}

func (f *fakeComments) UpdateText(ctx context.Context, id, text string) error {
	cm, ok := f.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	cm.Text = text
	return nil
}

func (f *fakeComments) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return common.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeMedia struct {
	byID   map[string]*models.Media
	nextID int
}

func (f *fakeMedia) Create(ctx context.Context, m *models.Media) (*models.Media, error) {
	f.nextID++
	m.ID = "m-" + strconv.Itoa(f.nextID)
	f.byID[m.ID] = m
	return m, nil
}

func (f *fakeMedia) ListByPost(ctx context.Context, postID string) ([]models.Media, error) {
	var out []models.Media
	for _, m := range f.byID {
		if m.PostID == postID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMedia) GetByID(ctx context.Context, id string) (*models.Media, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (f *fakeMedia) Delete(ctx context.Context, postID, mediaID string) error {
	m, ok := f.byID[mediaID]
	if !ok || m.PostID != postID {
		return common.ErrNotFound
	}
	delete(f.byID, mediaID)
	return nil
}

type fakeTickets struct {
	byID map[string]*models.Ticket
}

func (f *fakeTickets) GetAll(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	for _, t := range f.byID {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeTickets) Close(ctx context.Context, id string) error {
	t, ok := f.byID[id]
	if !ok || t.Status != models.TicketStatusOpen {
		return common.ErrNotFound
	}
	t.Status = models.TicketStatusClosed
	return nil
}

type fakeSigner struct{}

func (fakeSigner) Sign(ctx context.Context, key string) (*storage.SignedTarget, error) {
	return &storage.SignedTarget{
		StoragePath: key,
		Bucket:      "media",
		PutURL:      "http://bucket/put/" + key,
		DeleteURL:   "http://bucket/del/" + key,
	}, nil
}

func (fakeSigner) PublicURL(key string) string {
	return "http://media/" + key
}

type fakeObjects struct {
	stored  map[string][]byte
	deleted []string
	putErr  error
	failPut int // 1-based index of the Put call that fails; 0 disables
	puts    int
}

func (f *fakeObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	if f.failPut > 0 && f.puts >= f.failPut {
		return errors.New("bucket down")
	}
	f.stored[key] = data
	return nil
}

func (f *fakeObjects) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.stored, key)
	return nil
}

// ---- harness ----

type env struct {
	router   *gin.Engine
	posts    *fakePosts
	comments *fakeComments
	media    *fakeMedia
	tickets  *fakeTickets
	objects  *fakeObjects
	children *fakeChildren
	users    *users.Service
}

func testSlog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newEnv(t *testing.T, mutate func(cfg *config.Config)) *env {
	return buildEnv(t, mutate, NewIPRateLimiter(1000, time.Minute))
}

func newEnvWithLimiter(t *testing.T, limiter *IPRateLimiter) *env {
	return buildEnv(t, nil, limiter)
}

func buildEnv(t *testing.T, mutate func(cfg *config.Config), limiter *IPRateLimiter) *env {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	if mutate != nil {
		mutate(cfg)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("pass123"), bcrypt.MinCost)
	require.NoError(t, err)
	anna := &models.User{ID: "u-1", UserName: "anna", Name: "Anna", PasswordHash: hash}

	userRepo := &fakeUserRepo{
		byLogin: map[string]*models.User{"anna": anna},
		byID:    map[string]*models.User{"u-1": anna},
	}
	usersService := users.NewService(userRepo, &fakeTokenRepo{tokens: map[string]*refreshtokens.RefreshToken{}}, cfg)

	e := &env{
		posts:    &fakePosts{byID: map[string]*models.Post{}},
		comments: &fakeComments{byID: map[string]*models.Comment{}},
		media:    &fakeMedia{byID: map[string]*models.Media{}},
		tickets:  &fakeTickets{byID: map[string]*models.Ticket{}},
		objects:  &fakeObjects{stored: map[string][]byte{}},
		children: &fakeChildren{roster: []models.Child{
			{ID: "ch-1", Name: "Mia", PhotoConsent: true},
			{ID: "ch-2", Name: "Ben", PhotoConsent: false},
		}},
		users: usersService,
	}

	log := logging.NewSlogLogger(testSlog())
	s := NewServer(log, usersService, e.children, e.posts, e.comments, e.media, e.tickets, fakeSigner{}, e.objects)
	e.router = NewRouter(s, limiter)
	return e
}

func (e *env) token(t *testing.T) string {
	t.Helper()
	pair, err := e.users.Login(context.Background(), "anna", "pass123")
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartReq(t *testing.T, path, token string, fields map[string][]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, w.WriteField(key, v))
		}
	}
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	return req
}

// ---- tests ----

func TestAuth_RegisterAndAccess(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodPost, "/api/auth/register", "",
		map[string]string{"username": "boris", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pair))
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	require.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/children", "", nil).Code)

	w = e.do(t, http.MethodGet, "/api/children", pair.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var roster []models.Child
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	require.Len(t, roster, 2)
}

func TestAuth_ExpiredTokenBody(t *testing.T) {
	e := newEnv(t, func(cfg *config.Config) {
		cfg.AccessTokenValidityDuration = -time.Second
	})

	w := e.do(t, http.MethodGet, "/api/feed", e.token(t), nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.JSONEq(t, `{"error": "token expired"}`, w.Body.String())
}

func TestConsentSummary_UnknownChildDenied(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodPost, "/api/consent-summary", e.token(t),
		map[string][]string{"childIds": {"ch-1", "ch-2", "ghost"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Consents map[string]struct {
			Allowed bool `json:"allowed"`
		} `json:"consents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Consents["ch-1"].Allowed)
	require.False(t, resp.Consents["ch-2"].Allowed)
	require.False(t, resp.Consents["ghost"].Allowed)
}

func TestSubmitPost_TaggingRules(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)

	// Files without any tagging assertion.
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, multipartReq(t, "/api/posts/upload", token,
		map[string][]string{"text": {"hi"}}, map[string][]byte{"a.jpg": []byte("x")}))
	require.Equal(t, http.StatusBadRequest, w.Code)

	// A tagged child without consent.
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, multipartReq(t, "/api/posts/upload", token,
		map[string][]string{"text": {"hi"}, "childIds": {"ch-2"}},
		map[string][]byte{"a.jpg": []byte("x")}))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Empty(t, e.posts.byID)

	// The no-child assertion clears the gate.
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, multipartReq(t, "/api/posts/upload", token,
		map[string][]string{"text": {"hi"}, "noChildSelected": {"true"}},
		map[string][]byte{"a.jpg": []byte("img"), "b.mp4": []byte("vid")}))
	require.Equal(t, http.StatusOK, w.Code)

	var post postDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))
	require.Equal(t, "hi", post.Text)
	require.Len(t, post.Media, 2)
	require.Len(t, e.objects.stored, 2)

	kinds := map[string]string{}
	for _, m := range e.media.byID {
		kinds[m.OriginalName] = m.Kind
	}
	require.Equal(t, "image", kinds["a.jpg"])
	require.Equal(t, "video", kinds["b.mp4"])
}

func TestSubmitPost_StoreFailureRemovesPost(t *testing.T) {
	e := newEnv(t, nil)
	e.objects.putErr = errors.New("bucket down")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, multipartReq(t, "/api/posts/upload", e.token(t),
		map[string][]string{"text": {"hi"}, "noChildSelected": {"true"}},
		map[string][]byte{"a.jpg": []byte("img")}))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Empty(t, e.posts.byID)
	require.NotEmpty(t, e.posts.deleted)
}

func TestAttachMedia_StoreFailureLeavesNothing(t *testing.T) {
	e := newEnv(t, nil)
	e.objects.failPut = 2
	e.posts.byID["p-1"] = &models.Post{ID: "p-1", AuthorID: "u-1"}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, multipartReq(t, "/api/posts/p-1/media", e.token(t),
		map[string][]string{"noChildSelected": {"true"}},
		map[string][]byte{"a.jpg": []byte("one"), "b.jpg": []byte("two")}))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	// Neither the first file's media row nor its object may survive.
	require.Empty(t, e.media.byID)
	require.Empty(t, e.objects.stored)
}

func TestFinalizeUpload(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)

	w := e.do(t, http.MethodPost, "/api/posts", token, map[string]string{"text": "day at the park"})
	require.Equal(t, http.StatusOK, w.Code)
	var post postDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	w = e.do(t, http.MethodPost, "/api/uploads/finalize", token, map[string]any{
		"postId":         post.ID,
		"storagePath":    "feed/2026/08/" + post.ID + "/abc-photo.jpg",
		"size":           int64(123),
		"originalName":   "photo.jpg",
		"taggedChildIds": []string{"ch-1"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Medias []mediaDTO `json:"medias"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Medias, 1)
	require.Equal(t, "http://media/feed/2026/08/"+post.ID+"/abc-photo.jpg", resp.Medias[0].URL)
	require.Equal(t, "image", resp.Medias[0].Kind)

	// A child without consent cannot be finalized either.
	w = e.do(t, http.MethodPost, "/api/uploads/finalize", token, map[string]any{
		"postId":         post.ID,
		"storagePath":    "feed/x",
		"taggedChildIds": []string{"ch-2"},
	})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestSignUpload(t *testing.T) {
	e := newEnv(t, nil)

	w := e.do(t, http.MethodPost, "/api/uploads/sign", e.token(t), map[string]string{
		"filename":    "movie.mp4",
		"contentType": "video/mp4",
		"prefix":      "p-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var target storage.SignedTarget
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &target))
	require.Contains(t, target.StoragePath, "p-1/")
	require.Contains(t, target.StoragePath, "movie.mp4")
	require.NotEmpty(t, target.PutURL)
	require.NotEmpty(t, target.DeleteURL)
}

func TestPostLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)

	w := e.do(t, http.MethodPost, "/api/posts", token, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	var post postDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &post))

	require.Equal(t, http.StatusNoContent,
		e.do(t, http.MethodPatch, "/api/posts/"+post.ID, token, map[string]string{"text": "edited"}).Code)
	require.Equal(t, "edited", e.posts.byID[post.ID].Text)

	require.Equal(t, http.StatusNoContent,
		e.do(t, http.MethodDelete, "/api/posts/"+post.ID, token, nil).Code)
	require.Empty(t, e.posts.byID)

	require.Equal(t, http.StatusNotFound,
		e.do(t, http.MethodDelete, "/api/posts/ghost", token, nil).Code)
}

func TestPost_ForeignAuthorForbidden(t *testing.T) {
	e := newEnv(t, nil)
	e.posts.byID["p-x"] = &models.Post{ID: "p-x", AuthorID: "someone-else", Text: "not yours"}

	w := e.do(t, http.MethodPatch, "/api/posts/p-x", e.token(t), map[string]string{"text": "hijack"})
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestComments(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)
	e.posts.byID["p-1"] = &models.Post{ID: "p-1", AuthorID: "u-1"}

	w := e.do(t, http.MethodPost, "/api/posts/p-1/comments", token, map[string]string{"text": "nice"})
	require.Equal(t, http.StatusOK, w.Code)
	var comment commentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comment))
	require.Equal(t, "u-1", comment.Author.ID)

	w = e.do(t, http.MethodGet, "/api/posts/p-1/comments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []commentDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	require.Equal(t, http.StatusNoContent,
		e.do(t, http.MethodDelete, "/api/comments/"+comment.ID, token, nil).Code)
	require.Empty(t, e.comments.byID)

	require.Equal(t, http.StatusNotFound,
		e.do(t, http.MethodPost, "/api/posts/ghost/comments", token, map[string]string{"text": "x"}).Code)
}

func TestToggleLike(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)
	e.posts.byID["p-1"] = &models.Post{ID: "p-1", AuthorID: "u-1"}

	w := e.do(t, http.MethodPost, "/api/posts/p-1/like", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"liked": true}`, w.Body.String())

	w = e.do(t, http.MethodPost, "/api/posts/p-1/like", token, nil)
	require.JSONEq(t, `{"liked": false}`, w.Body.String())
}

func TestTickets(t *testing.T) {
	e := newEnv(t, nil)
	token := e.token(t)
	e.tickets.byID["t-1"] = &models.Ticket{ID: "t-1", Subject: "gate code", Status: models.TicketStatusOpen}

	require.Equal(t, http.StatusNoContent,
		e.do(t, http.MethodPost, "/api/tickets/t-1/close", token, nil).Code)
	require.Equal(t, models.TicketStatusClosed, e.tickets.byID["t-1"].Status)

	// Closing twice is a 404, the ticket is no longer open.
	require.Equal(t, http.StatusNotFound,
		e.do(t, http.MethodPost, "/api/tickets/t-1/close", token, nil).Code)
}

func TestRateLimit(t *testing.T) {
	e := newEnvWithLimiter(t, NewIPRateLimiter(2, time.Minute))
	token := e.token(t)
	e.posts.byID["p-1"] = &models.Post{ID: "p-1", AuthorID: "u-1"}

	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/feed", token, nil).Code)
	require.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/feed", token, nil).Code)

	w := e.do(t, http.MethodGet, "/api/feed", token, nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get(common.RetryAfterHeaderName))
	require.JSONEq(t, `{"error": "too many requests"}`, w.Body.String())
}

func TestIPRateLimiter_RetryAfter(t *testing.T) {
	rl := NewIPRateLimiter(1, 10*time.Second)
	base := time.Now()
	rl.now = func() time.Time { return base }

	ok, _ := rl.Allow("1.2.3.4")
	require.True(t, ok)

	rl.now = func() time.Time { return base.Add(3 * time.Second) }
	ok, wait := rl.Allow("1.2.3.4")
	require.False(t, ok)
	require.Equal(t, 7*time.Second, wait)

	// Another client is unaffected.
	ok, _ = rl.Allow("5.6.7.8")
	require.True(t, ok)

	// After the window the slot frees up.
	rl.now = func() time.Time { return base.Add(11 * time.Second) }
	ok, _ = rl.Allow("1.2.3.4")
	require.True(t, ok)
}
