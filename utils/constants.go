package utils

import "time"

// ContextKey is the type used for request-scoped context values
type ContextKey string

// Request context keys set by handlers and consumed by flows
const (
	RequestIDKey  ContextKey = "request_id"
	UserAgentKey  ContextKey = "user_agent"
	IPAddressKey  ContextKey = "ip_address"
	EndpointKey   ContextKey = "endpoint"
	TimeoutKey    ContextKey = "timeout"
	CancelFuncKey ContextKey = "cancel_func"
)

// Tracking constants
const (
	// MaxUserAgentLength is the truncation bound applied to stored user agents
	MaxUserAgentLength = 500

	// SessionIDMaxLength bounds the opaque client-supplied session identifier
	SessionIDMaxLength = 64
)

// HTTP constants
const (
	// CORSMaxAge is how long browsers may cache preflight responses, in seconds
	CORSMaxAge = 86400
)

// Token time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)
