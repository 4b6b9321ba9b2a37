// Package storage issues direct-upload credentials so media bytes go from
// the browser to object storage without passing through this service.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when storage credentials are missing.
	ErrNotConfigured = errors.New("storage not configured")
	// ErrInvalidMedia rejects an unknown media kind or content type.
	ErrInvalidMedia = errors.New("invalid media")
)

// Media kinds a message can carry.
const (
	KindContent   = "content"
	KindThumbnail = "thumbnail"
)

// UploadTicket is what a client needs to perform one signed upload.
type UploadTicket struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Fields       map[string]string `json:"fields"`
	PublicID     string            `json:"public_id"`
	PublicURL    string            `json:"public_url"`
	ResourceType string            `json:"resource_type"`
	ExpiresAt    time.Time         `json:"expires_at"`
}

// Presigner issues upload tickets scoped to an owner and message.
type Presigner interface {
	IssueUploadURL(ctx context.Context, ownerID, messageID, mediaKind, contentType string) (UploadTicket, error)
}

// PublicID namespaces object keys per owner so uploads never collide
// across users.
func PublicID(ownerID, messageID, mediaKind string) string {
	return fmt.Sprintf("helloforever/%s/%s/%s", ownerID, messageID, mediaKind)
}

// ResourceType maps a MIME type to the provider's resource class.
func ResourceType(contentType string) (string, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "image/"):
		return "image", nil
	case strings.HasPrefix(ct, "video/"), strings.HasPrefix(ct, "audio/"):
		return "video", nil
	case ct == "text/plain", ct == "application/pdf":
		return "raw", nil
	}
	return "", fmt.Errorf("%w: unsupported content type %q", ErrInvalidMedia, contentType)
}

// ValidKind reports whether kind is a known media kind.
func ValidKind(kind string) bool {
	return kind == KindContent || kind == KindThumbnail
}
