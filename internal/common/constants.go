package common

// AuthorizationHeaderName carries the bearer access token.
const AuthorizationHeaderName = "Authorization"

// RetryAfterHeaderName is consumed on HTTP 429 responses.
const RetryAfterHeaderName = "Retry-After"
