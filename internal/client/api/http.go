package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dkravets/kitafeed/internal/client/models"
	"github.com/dkravets/kitafeed/internal/client/ratelimit"
	"github.com/dkravets/kitafeed/internal/common"
	"github.com/dkravets/kitafeed/internal/logging"
)

// Endpoint keys used for rate-limit suppression. A key groups the calls that
// share a server-side budget, not individual URLs.
const (
	keyConsent  = "consent-summary"
	keySign     = "upload-sign"
	keyFinalize = "upload-finalize"
	keyFeed     = "feed"
	keyPosts    = "posts"
	keyUpload   = "post-upload"
	keyComments = "comments"
	keyLikes    = "likes"
	keyLikers   = "likers"
	keyTickets  = "tickets"
)

// HTTPClient implements Client against the REST backend.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limits  *ratelimit.Store
	log     logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTPClient creates a client rooted at baseURL. limits may be nil for a
// client without rate-limit suppression.
func NewHTTPClient(baseURL string, limits *ratelimit.Store, log logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{},
		limits:  limits,
		log:     log,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *HTTPClient) token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

func (c *HTTPClient) setTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

// do performs one JSON round trip. The endpoint key is checked against the
// suppression store first; a suppressed call returns common.ErrRateLimited
// without touching the network. A single 401 caused by an expired access
// token is retried once after a token refresh.
func (c *HTTPClient) do(ctx context.Context, method, path, key string, in, out any) error {
	if c.limits != nil && c.limits.Suppressed(key) {
		return common.ErrRateLimited
	}

	err := c.roundTrip(ctx, method, path, key, in, out)
	if errors.Is(err, common.ErrTokenExpired) {
		if rerr := c.refresh(ctx); rerr != nil {
			return common.ErrUnauthorized
		}
		err = c.roundTrip(ctx, method, path, key, in, out)
	}
	if errors.Is(err, common.ErrTokenExpired) {
		return common.ErrUnauthorized
	}
	return err
}

func (c *HTTPClient) roundTrip(ctx context.Context, method, path, key string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	return c.mapError(resp, key)
}

// mapError translates a non-2xx response into the shared error taxonomy.
// 429 additionally arms the suppression window for the endpoint key.
func (c *HTTPClient) mapError(resp *http.Response, key string) error {
	var eb errorBody
	_ = json.NewDecoder(resp.Body).Decode(&eb)

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		delay := ratelimit.DefaultRetryAfter
		if v := resp.Header.Get(common.RetryAfterHeaderName); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				delay = time.Duration(secs) * time.Second
			}
		}
		if c.limits != nil {
			c.limits.Suppress(key, time.Now().Add(delay))
		}
		c.log.Warn(resp.Request.Context(), "endpoint rate limited", "endpoint", key, "retry_after", delay)
		return common.ErrRateLimited
	case http.StatusUnauthorized:
		if eb.Error == common.ErrTokenExpired.Error() {
			return common.ErrTokenExpired
		}
		return common.ErrUnauthorized
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %s", common.ErrServerUnavailable, eb.Error)
		}
		if eb.Error != "" {
			return fmt.Errorf("request failed: %s", eb.Error)
		}
		return fmt.Errorf("request failed: %s", resp.Status)
	}
}

type tokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()
	if refresh == "" {
		return common.ErrUnauthorized
	}

	var pair tokenPair
	err := c.roundTrip(ctx, http.MethodPost, "/api/auth/refresh", keyPosts,
		map[string]string{"refreshToken": refresh}, &pair)
	if err != nil {
		return err
	}

	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) Register(ctx context.Context, username, password string) error {
	var pair tokenPair
	err := c.roundTrip(ctx, http.MethodPost, "/api/auth/register", keyPosts,
		map[string]string{"username": username, "password": password}, &pair)
	if err != nil {
		return err
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, username, password string) error {
	var pair tokenPair
	err := c.roundTrip(ctx, http.MethodPost, "/api/auth/login", keyPosts,
		map[string]string{"username": username, "password": password}, &pair)
	if err != nil {
		return err
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) Children(ctx context.Context) ([]models.Child, error) {
	var children []models.Child
	err := c.do(ctx, http.MethodGet, "/api/children", keyConsent, nil, &children)
	return children, err
}

func (c *HTTPClient) ConsentSummary(ctx context.Context, childIDs []string) (map[string]bool, error) {
	var resp struct {
		Consents map[string]struct {
			Allowed bool `json:"allowed"`
		} `json:"consents"`
	}
	err := c.do(ctx, http.MethodPost, "/api/consent-summary", keyConsent,
		map[string][]string{"childIds": childIDs}, &resp)
	if err != nil {
		return nil, err
	}

	out := make(map[string]bool, len(resp.Consents))
	for id, v := range resp.Consents {
		out[id] = v.Allowed
	}
	return out, nil
}

func (c *HTTPClient) SignUpload(ctx context.Context, filename, contentType, prefix string) (SignedTarget, error) {
	var target SignedTarget
	err := c.do(ctx, http.MethodPost, "/api/uploads/sign", keySign, map[string]string{
		"filename":    filename,
		"contentType": contentType,
		"prefix":      prefix,
	}, &target)
	return target, err
}

func (c *HTTPClient) FinalizeUpload(ctx context.Context, req FinalizeRequest) ([]models.Media, error) {
	var resp struct {
		Medias []models.Media `json:"medias"`
	}
	err := c.do(ctx, http.MethodPost, "/api/uploads/finalize", keyFinalize, req, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Medias, nil
}

// multipartBody encodes a submission as a multipart form.
func multipartBody(sub PostSubmission) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("text", sub.Text); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("noChildSelected", strconv.FormatBool(sub.NoChildSelected)); err != nil {
		return nil, "", err
	}
	for _, id := range sub.TaggedChildIDs {
		if err := w.WriteField("childIds", id); err != nil {
			return nil, "", err
		}
	}
	for _, f := range sub.Files {
		part, err := w.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// postMultipart sends a multipart submission and decodes out from the
// response. The whole request either succeeds or fails, no partial state.
func (c *HTTPClient) postMultipart(ctx context.Context, path, key string, sub PostSubmission, out any) error {
	if c.limits != nil && c.limits.Suppressed(key) {
		return common.ErrRateLimited
	}

	buf, contentType, err := multipartBody(sub)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	if token := c.token(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", common.ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapError(resp, key)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// SubmitPost performs the proxied upload: one multipart request carrying the
// text, the files and the tagged-child assertion.
func (c *HTTPClient) SubmitPost(ctx context.Context, sub PostSubmission) (*models.Post, error) {
	var post models.Post
	if err := c.postMultipart(ctx, "/api/posts/upload", keyUpload, sub, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// UploadMedia attaches small image files to an existing post in one proxied
// call.
func (c *HTTPClient) UploadMedia(ctx context.Context, postID string, sub PostSubmission) ([]models.Media, error) {
	var resp struct {
		Medias []models.Media `json:"medias"`
	}
	if err := c.postMultipart(ctx, "/api/posts/"+postID+"/media", keyUpload, sub, &resp); err != nil {
		return nil, err
	}
	return resp.Medias, nil
}

func (c *HTTPClient) Feed(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := c.do(ctx, http.MethodGet, "/api/feed", keyFeed, nil, &posts)
	return posts, err
}

func (c *HTTPClient) CreatePost(ctx context.Context, text string) (*models.Post, error) {
	var post models.Post
	err := c.do(ctx, http.MethodPost, "/api/posts", keyPosts, map[string]string{"text": text}, &post)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (c *HTTPClient) UpdatePost(ctx context.Context, id, text string) error {
	return c.do(ctx, http.MethodPatch, "/api/posts/"+id, keyPosts, map[string]string{"text": text}, nil)
}

func (c *HTTPClient) DeletePost(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+id, keyPosts, nil, nil)
}

func (c *HTTPClient) DeleteMedia(ctx context.Context, postID, mediaID string) error {
	return c.do(ctx, http.MethodDelete, "/api/posts/"+postID+"/media/"+mediaID, keyPosts, nil, nil)
}

func (c *HTTPClient) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := c.do(ctx, http.MethodGet, "/api/posts/"+postID+"/comments", keyComments, nil, &comments)
	return comments, err
}

func (c *HTTPClient) CreateComment(ctx context.Context, postID, text string) (*models.Comment, error) {
	var comment models.Comment
	err := c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/comments", keyComments,
		map[string]string{"text": text}, &comment)
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *HTTPClient) UpdateComment(ctx context.Context, id, text string) error {
	return c.do(ctx, http.MethodPatch, "/api/comments/"+id, keyComments, map[string]string{"text": text}, nil)
}

func (c *HTTPClient) DeleteComment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/comments/"+id, keyComments, nil, nil)
}

func (c *HTTPClient) ToggleLike(ctx context.Context, postID string) (bool, error) {
	var resp struct {
		Liked bool `json:"liked"`
	}
	err := c.do(ctx, http.MethodPost, "/api/posts/"+postID+"/like", keyLikes, nil, &resp)
	return resp.Liked, err
}

func (c *HTTPClient) Likers(ctx context.Context, postID string) ([]models.User, error) {
	var users []models.User
	err := c.do(ctx, http.MethodGet, "/api/posts/"+postID+"/likers", keyLikers, nil, &users)
	return users, err
}

func (c *HTTPClient) Tickets(ctx context.Context) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := c.do(ctx, http.MethodGet, "/api/tickets", keyTickets, nil, &tickets)
	return tickets, err
}

func (c *HTTPClient) CloseTicket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/tickets/"+id+"/close", keyTickets, nil, nil)
}
