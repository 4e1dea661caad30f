package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dkravets/kitafeed/internal/common"
)

const userIDKey = "userID"

// TokenVerifier validates an access token and returns the user id.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token. An
// expired token gets a distinguishable body so clients refresh instead of
// re-authenticating.
func JWTAuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(common.AuthorizationHeaderName)
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		userID, err := verifier.VerifyAccessToken(parts[1])
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrTokenExpired.Error()})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// IPRateLimiter is a fixed-window request counter per client IP.
type IPRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

// Allow reports whether ip may make another request; when it may not, the
// second return value is the wait until the window frees up.
func (rl *IPRateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[ip]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		retryAfter := requests[0].Add(rl.window).Sub(now)
		rl.requests[ip] = requests
		return false, retryAfter
	}

	rl.requests[ip] = append(requests, now)
	return true, 0
}

// RateLimitMiddleware answers over-limit requests with 429 and a Retry-After
// header carrying whole seconds, rounded up so clients never retry early.
func RateLimitMiddleware(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, retryAfter := limiter.Allow(c.ClientIP())
		if !ok {
			secs := int(retryAfter.Seconds())
			if retryAfter > time.Duration(secs)*time.Second {
				secs++
			}
			if secs < 1 {
				secs = 1
			}
			c.Header(common.RetryAfterHeaderName, strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
