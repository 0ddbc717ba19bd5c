package businessflow

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/clipgreet/clipgreet/models"
	"github.com/clipgreet/clipgreet/utils"
)

// ClientMetadata carries request provenance collected by the HTTP layer.
// The raw IP address never leaves this struct; only its truncated hash is
// persisted alongside events.
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id"`
	Referer   string `json:"referer"`
}

// NewClientMetadata builds client metadata from the request's network
// attributes.
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// visitorHashLength is the number of hex characters of the SHA-256 digest
// kept as the visitor hash. 16 chars (64 bits) is plenty for grouping
// without being reversible to an address.
const visitorHashLength = 16

// HashVisitor derives a stable, non-reversible visitor hash from an IP
// address. Empty input yields an empty hash.
func HashVisitor(ipAddress string) string {
	if ipAddress == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ipAddress))
	return hex.EncodeToString(sum[:])[:visitorHashLength]
}

// Provenance converts client metadata into the event metadata map that gets
// stored with each viewer event. Raw IPs are replaced by their hash and the
// user agent is truncated to a sane length.
func (m *ClientMetadata) Provenance() models.EventMetadata {
	md := models.EventMetadata{}
	if m == nil {
		return md
	}
	if h := HashVisitor(m.IPAddress); h != "" {
		md["visitor_hash"] = h
	}
	if m.UserAgent != "" {
		ua := m.UserAgent
		if len(ua) > utils.MaxUserAgentLength {
			ua = ua[:utils.MaxUserAgentLength]
		}
		md["user_agent"] = ua
	}
	if m.RequestID != "" {
		md["request_id"] = m.RequestID
	}
	if m.Referer != "" {
		md["referer"] = m.Referer
	}
	return md
}
