// Package httpapi exposes the feed over REST: authentication, the roster and
// consent lookups, both upload paths, posts with comments and likes, and
// tickets. Handlers stay thin; persistence sits in the repositories and the
// account logic in the users service.
package httpapi

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/logging"
	"github.com/dkravets/kitafeed/internal/server/models"
	"github.com/dkravets/kitafeed/internal/server/repositories/children"
	"github.com/dkravets/kitafeed/internal/server/repositories/comments"
	"github.com/dkravets/kitafeed/internal/server/repositories/media"
	"github.com/dkravets/kitafeed/internal/server/repositories/posts"
	"github.com/dkravets/kitafeed/internal/server/repositories/tickets"
	"github.com/dkravets/kitafeed/internal/server/storage"
	"github.com/dkravets/kitafeed/internal/server/users"
)

// maxProxiedBody caps the request size of the proxied upload path. Larger
// batches are expected to go through presigned direct uploads.
const maxProxiedBody = 32 << 20

// Signer issues upload destinations for the direct path.
type Signer interface {
	Sign(ctx context.Context, key string) (*storage.SignedTarget, error)
	PublicURL(key string) string
}

// ObjectStore holds media bytes for the proxied path.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Server bundles the handler dependencies.
type Server struct {
	log      logging.Logger
	users    *users.Service
	children children.Repository
	posts    posts.Repository
	comments comments.Repository
	media    media.Repository
	tickets  tickets.Repository
	signer   Signer
	objects  ObjectStore
}

func NewServer(
	log logging.Logger,
	usersService *users.Service,
	childrenRepo children.Repository,
	postsRepo posts.Repository,
	commentsRepo comments.Repository,
	mediaRepo media.Repository,
	ticketsRepo tickets.Repository,
	signer Signer,
	objects ObjectStore,
) *Server {
	return &Server{
		log:      log,
		users:    usersService,
		children: childrenRepo,
		posts:    postsRepo,
		comments: commentsRepo,
		media:    mediaRepo,
		tickets:  ticketsRepo,
		signer:   signer,
		objects:  objects,
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// respondError maps the shared error sentinels onto HTTP statuses. Anything
// unmapped is a 500 with a generic body; the detail goes to the log only.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, common.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	default:
		s.log.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// ---- DTOs ----
//
// The wire shapes nest the author, while the database rows carry flat
// author columns from the join.

type userDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mediaDTO struct {
	ID     string `json:"id"`
	PostID string `json:"postId"`
	URL    string `json:"url"`
	Kind   string `json:"kind"`
}

type postDTO struct {
	ID           string     `json:"id"`
	Author       userDTO    `json:"author"`
	Text         string     `json:"text"`
	Media        []mediaDTO `json:"media"`
	LikeCount    int        `json:"likeCount"`
	Liked        bool       `json:"liked"`
	CommentCount int        `json:"commentCount"`
	CreatedAt    string     `json:"createdAt"`
}

type commentDTO struct {
	ID        string  `json:"id"`
	PostID    string  `json:"postId"`
	Author    userDTO `json:"author"`
	Text      string  `json:"text"`
	CreatedAt string  `json:"createdAt"`
}

func toMediaDTO(m models.Media) mediaDTO {
	return mediaDTO{ID: m.ID, PostID: m.PostID, URL: m.URL, Kind: m.Kind}
}

func toMediaDTOs(ms []models.Media) []mediaDTO {
	out := make([]mediaDTO, 0, len(ms))
	for _, m := range ms {
		out = append(out, toMediaDTO(m))
	}
	return out
}

func toPostDTO(p *models.Post, ms []models.Media) postDTO {
	return postDTO{
		ID:           p.ID,
		Author:       userDTO{ID: p.AuthorID, Name: p.AuthorName},
		Text:         p.Text,
		Media:        toMediaDTOs(ms),
		LikeCount:    p.LikeCount,
		Liked:        p.Liked,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func toCommentDTO(cm *models.Comment) commentDTO {
	return commentDTO{
		ID:        cm.ID,
		PostID:    cm.PostID,
		Author:    userDTO{ID: cm.AuthorID, Name: cm.AuthorName},
		Text:      cm.Text,
		CreatedAt: cm.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// mediaKind classifies an attachment by file extension.
func mediaKind(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp4", ".mov", ".webm", ".mkv", ".avi":
		return "video"
	default:
		return "image"
	}
}

// ---- auth ----

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Name     string `json:"name"`
	Password string `json:"password" binding:"required"`
}

func tokenPairResponse(pair *users.TokenPair) gin.H {
	return gin.H{"accessToken": pair.AccessToken, "refreshToken": pair.RefreshToken}
}

func (s *Server) register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	if req.Name == "" {
		req.Name = req.Username
	}

	pair, err := s.users.Register(c.Request.Context(), req.Username, req.Name, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse(pair))
}

func (s *Server) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	pair, err := s.users.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse(pair))
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	pair, err := s.users.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenPairResponse(pair))
}

// ---- roster and consent ----

func (s *Server) listChildren(c *gin.Context) {
	roster, err := s.children.GetAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

// consentSummary resolves the photo-consent decision for a batch of child
// ids. Ids missing from the roster come back as not allowed, so an unknown
// child can never slip through as consented.
func (s *Server) consentSummary(c *gin.Context) {
	var req struct {
		ChildIDs []string `json:"childIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "childIds is required"})
		return
	}

	known, err := s.children.ConsentFor(c.Request.Context(), req.ChildIDs)
	if err != nil {
		s.respondError(c, err)
		return
	}

	type decision struct {
		Allowed bool `json:"allowed"`
	}
	consents := make(map[string]decision, len(req.ChildIDs))
	for _, id := range req.ChildIDs {
		consents[id] = decision{Allowed: known[id]}
	}
	c.JSON(http.StatusOK, gin.H{"consents": consents})
}

// checkConsent enforces the tagging rule for submissions with attachments:
// either children are tagged and each one has recorded consent, or the
// author explicitly asserted no child is visible.
func (s *Server) checkConsent(ctx context.Context, taggedIDs []string, noChild bool) (int, string) {
	if noChild {
		return 0, ""
	}
	if len(taggedIDs) == 0 {
		return http.StatusBadRequest, "tagged children or a no-child assertion is required"
	}

	known, err := s.children.ConsentFor(ctx, taggedIDs)
	if err != nil {
		return http.StatusInternalServerError, "internal error"
	}
	for _, id := range taggedIDs {
		if !known[id] {
			return http.StatusForbidden, "photo consent is missing for a tagged child"
		}
	}
	return 0, ""
}

// ---- direct upload path ----

func (s *Server) signUpload(c *gin.Context) {
	var req struct {
		Filename    string `json:"filename" binding:"required"`
		ContentType string `json:"contentType"`
		Prefix      string `json:"prefix"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filename is required"})
		return
	}

	key := storage.StorageKey(req.Prefix, req.Filename)
	target, err := s.signer.Sign(c.Request.Context(), key)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, target)
}

func (s *Server) finalizeUpload(c *gin.Context) {
	var req struct {
		PostID          string   `json:"postId" binding:"required"`
		StoragePath     string   `json:"storagePath" binding:"required"`
		Size            int64    `json:"size"`
		OriginalName    string   `json:"originalName"`
		TaggedChildIDs  []string `json:"taggedChildIds"`
		NoChildSelected bool     `json:"noChildSelected"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "postId and storagePath are required"})
		return
	}

	ctx := c.Request.Context()
	if status, msg := s.checkConsent(ctx, req.TaggedChildIDs, req.NoChildSelected); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	post, err := s.posts.GetByID(ctx, req.PostID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if post.AuthorID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	m, err := s.media.Create(ctx, &models.Media{
		PostID:       req.PostID,
		StoragePath:  req.StoragePath,
		URL:          s.signer.PublicURL(req.StoragePath),
		Kind:         mediaKind(req.OriginalName),
		OriginalName: req.OriginalName,
		Size:         req.Size,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	s.log.Info(ctx, "upload finalized", "post", req.PostID, "media", m.ID)
	c.JSON(http.StatusOK, gin.H{"medias": toMediaDTOs([]models.Media{*m})})
}

// ---- proxied upload path ----

type submission struct {
	Text            string
	TaggedChildIDs  []string
	NoChildSelected bool
	Files           []*multipart.FileHeader
}

func (s *Server) bindSubmission(c *gin.Context) (*submission, bool) {
	if c.Request.ContentLength > maxProxiedBody {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
		return nil, false
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return nil, false
	}

	sub := &submission{
		TaggedChildIDs: form.Value["childIds"],
		Files:          form.File["files"],
	}
	if v := form.Value["text"]; len(v) > 0 {
		sub.Text = v[0]
	}
	if v := form.Value["noChildSelected"]; len(v) > 0 {
		sub.NoChildSelected, _ = strconv.ParseBool(v[0])
	}
	return sub, true
}

// storeFiles transfers the submitted files to the bucket and records the
// media rows. On any failure both the objects and the media rows stored so
// far are removed; a media row must never outlive its object.
func (s *Server) storeFiles(ctx context.Context, postID string, files []*multipart.FileHeader) ([]models.Media, error) {
	var stored []models.Media
	cleanup := func() {
		for _, m := range stored {
			if err := s.media.Delete(ctx, m.PostID, m.ID); err != nil {
				s.log.Warn(ctx, "dangling media row", "media", m.ID, "error", err)
			}
			if err := s.objects.Delete(ctx, m.StoragePath); err != nil {
				s.log.Warn(ctx, "orphaned media object", "key", m.StoragePath, "error", err)
			}
		}
	}

	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			cleanup()
			return nil, err
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			cleanup()
			return nil, err
		}

		key := storage.StorageKey(postID, fh.Filename)
		if err := s.objects.Put(ctx, key, data, fh.Header.Get("Content-Type")); err != nil {
			cleanup()
			return nil, err
		}

		m, err := s.media.Create(ctx, &models.Media{
			PostID:       postID,
			StoragePath:  key,
			URL:          s.signer.PublicURL(key),
			Kind:         mediaKind(fh.Filename),
			OriginalName: fh.Filename,
			Size:         fh.Size,
		})
		if err != nil {
			_ = s.objects.Delete(ctx, key)
			cleanup()
			return nil, err
		}
		stored = append(stored, *m)
	}
	return stored, nil
}

// submitPost is the proxied publish: one multipart request that becomes a
// post with media, or nothing at all.
func (s *Server) submitPost(c *gin.Context) {
	sub, ok := s.bindSubmission(c)
	if !ok {
		return
	}
	if sub.Text == "" && len(sub.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a post needs text or files"})
		return
	}

	ctx := c.Request.Context()
	if len(sub.Files) > 0 {
		if status, msg := s.checkConsent(ctx, sub.TaggedChildIDs, sub.NoChildSelected); status != 0 {
			c.JSON(status, gin.H{"error": msg})
			return
		}
	}

	post, err := s.posts.Create(ctx, &models.Post{
		AuthorID: currentUserID(c),
		Text:     sub.Text,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}

	stored, err := s.storeFiles(ctx, post.ID, sub.Files)
	if err != nil {
		if derr := s.posts.Delete(ctx, post.ID); derr != nil {
			s.log.Error(ctx, "removing post after failed upload", "post", post.ID, "error", derr)
		}
		s.respondError(c, err)
		return
	}

	s.log.Info(ctx, "post published", "post", post.ID, "files", len(stored))
	c.JSON(http.StatusOK, toPostDTO(post, stored))
}

// attachMedia adds files to an existing post through the proxied path.
func (s *Server) attachMedia(c *gin.Context) {
	sub, ok := s.bindSubmission(c)
	if !ok {
		return
	}
	if len(sub.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files submitted"})
		return
	}

	ctx := c.Request.Context()
	if status, msg := s.checkConsent(ctx, sub.TaggedChildIDs, sub.NoChildSelected); status != 0 {
		c.JSON(status, gin.H{"error": msg})
		return
	}

	post, err := s.posts.GetByID(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if post.AuthorID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	stored, err := s.storeFiles(ctx, post.ID, sub.Files)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medias": toMediaDTOs(stored)})
}

// ---- feed, posts ----

func (s *Server) feed(c *gin.Context) {
	ctx := c.Request.Context()
	feed, err := s.posts.GetFeed(ctx, currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]postDTO, 0, len(feed))
	for i := range feed {
		ms, err := s.media.ListByPost(ctx, feed[i].ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		out = append(out, toPostDTO(&feed[i], ms))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createPost(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	post, err := s.posts.Create(c.Request.Context(), &models.Post{
		AuthorID: currentUserID(c),
		Text:     req.Text,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toPostDTO(post, nil))
}

// ownPost loads a post and verifies the caller authored it.
func (s *Server) ownPost(c *gin.Context, id string) (*models.Post, bool) {
	post, err := s.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	if post.AuthorID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return post, true
}

func (s *Server) updatePost(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	post, ok := s.ownPost(c, c.Param("id"))
	if !ok {
		return
	}
	if err := s.posts.UpdateText(c.Request.Context(), post.ID, req.Text); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deletePost(c *gin.Context) {
	post, ok := s.ownPost(c, c.Param("id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	ms, err := s.media.ListByPost(ctx, post.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.posts.Delete(ctx, post.ID); err != nil {
		s.respondError(c, err)
		return
	}

	// Row deletion cascades; the bucket objects are removed best effort.
	for _, m := range ms {
		if err := s.objects.Delete(ctx, m.StoragePath); err != nil {
			s.log.Warn(ctx, "orphaned media object", "key", m.StoragePath, "error", err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteMedia(c *gin.Context) {
	post, ok := s.ownPost(c, c.Param("id"))
	if !ok {
		return
	}

	ctx := c.Request.Context()
	m, err := s.media.GetByID(ctx, c.Param("mediaID"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	if err := s.media.Delete(ctx, post.ID, m.ID); err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.objects.Delete(ctx, m.StoragePath); err != nil {
		s.log.Warn(ctx, "orphaned media object", "key", m.StoragePath, "error", err)
	}
	c.Status(http.StatusNoContent)
}

// ---- comments ----

func (s *Server) listComments(c *gin.Context) {
	list, err := s.comments.ListByPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]commentDTO, 0, len(list))
	for i := range list {
		out = append(out, toCommentDTO(&list[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) createComment(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	ctx := c.Request.Context()
	if _, err := s.posts.GetByID(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}

	comment, err := s.comments.Create(ctx, &models.Comment{
		PostID:   c.Param("id"),
		AuthorID: currentUserID(c),
		Text:     req.Text,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCommentDTO(comment))
}

// ownComment loads a comment and verifies the caller authored it.
func (s *Server) ownComment(c *gin.Context, id string) (*models.Comment, bool) {
	comment, err := s.comments.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	if comment.AuthorID != currentUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return nil, false
	}
	return comment, true
}

func (s *Server) updateComment(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	comment, ok := s.ownComment(c, c.Param("id"))
	if !ok {
		return
	}
	if err := s.comments.UpdateText(c.Request.Context(), comment.ID, req.Text); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteComment(c *gin.Context) {
	comment, ok := s.ownComment(c, c.Param("id"))
	if !ok {
		return
	}
	if err := s.comments.Delete(c.Request.Context(), comment.ID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---- likes ----

func (s *Server) toggleLike(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := s.posts.GetByID(ctx, c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}

	liked, err := s.posts.ToggleLike(ctx, c.Param("id"), currentUserID(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked})
}

func (s *Server) likers(c *gin.Context) {
	list, err := s.posts.Likers(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}

	out := make([]userDTO, 0, len(list))
	for _, u := range list {
		out = append(out, userDTO{ID: u.ID, Name: u.Name})
	}
	c.JSON(http.StatusOK, out)
}

// ---- tickets ----

func (s *Server) listTickets(c *gin.Context) {
	list, err := s.tickets.GetAll(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) closeTicket(c *gin.Context) {
	if err := s.tickets.Close(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
