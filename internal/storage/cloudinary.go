package storage

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/asset"
	"go.opentelemetry.io/otel"
)

const cloudinaryUploadBase = "https://api.cloudinary.com/v1_1"

// CloudinaryPresigner signs direct uploads for Cloudinary.
type CloudinaryPresigner struct {
	cld       *cloudinary.Cloudinary
	cloudName string
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewCloudinaryPresigner returns ErrNotConfigured when any credential is
// blank.
func NewCloudinaryPresigner(cloudName, apiKey, apiSecret string, ttl time.Duration) (*CloudinaryPresigner, error) {
	if strings.TrimSpace(cloudName) == "" || strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, ErrNotConfigured
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: %w", err)
	}
	return &CloudinaryPresigner{
		cld:       cld,
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		now:       time.Now,
	}, nil
}

// IssueUploadURL returns signed form fields for a POST to the upload
// endpoint. The public id is fixed, so re-uploading replaces the object.
func (p *CloudinaryPresigner) IssueUploadURL(ctx context.Context, ownerID, messageID, mediaKind, contentType string) (UploadTicket, error) {
	if p == nil || p.cld == nil {
		return UploadTicket{}, ErrNotConfigured
	}
	_, span := otel.Tracer("storage/CloudinaryPresigner").Start(ctx, "IssueUploadURL")
	defer span.End()

	if !ValidKind(mediaKind) {
		return UploadTicket{}, fmt.Errorf("%w: unknown media kind %q", ErrInvalidMedia, mediaKind)
	}
	resourceType, err := ResourceType(contentType)
	if err != nil {
		return UploadTicket{}, err
	}

	now := p.now().UTC()
	publicID := PublicID(ownerID, messageID, mediaKind)
	params := url.Values{}
	params.Set("public_id", publicID)
	params.Set("overwrite", "true")
	params.Set("timestamp", strconv.FormatInt(now.Unix(), 10))

	signature, err := api.SignParameters(params, p.apiSecret)
	if err != nil {
		span.RecordError(err)
		return UploadTicket{}, fmt.Errorf("cloudinary sign: %w", err)
	}

	publicURL, err := p.deliveryURL(publicID, resourceType)
	if err != nil {
		span.RecordError(err)
		return UploadTicket{}, err
	}

	fields := make(map[string]string, len(params)+2)
	for k := range params {
		fields[k] = params.Get(k)
	}
	fields["api_key"] = p.apiKey
	fields["signature"] = signature

	return UploadTicket{
		URL:          fmt.Sprintf("%s/%s/%s/upload", cloudinaryUploadBase, p.cloudName, resourceType),
		Method:       http.MethodPost,
		Fields:       fields,
		PublicID:     publicID,
		PublicURL:    publicURL,
		ResourceType: resourceType,
		ExpiresAt:    now.Add(p.ttl),
	}, nil
}

// deliveryURL is where the object will be served from once uploaded.
func (p *CloudinaryPresigner) deliveryURL(publicID, resourceType string) (string, error) {
	var (
		a   *asset.Asset
		err error
	)
	switch resourceType {
	case "image":
		a, err = p.cld.Image(publicID)
	case "video":
		a, err = p.cld.Video(publicID)
	default:
		a, err = p.cld.File(publicID)
	}
	if err != nil {
		return "", fmt.Errorf("cloudinary asset: %w", err)
	}
	u, err := a.String()
	if err != nil {
		return "", fmt.Errorf("cloudinary url: %w", err)
	}
	return u, nil
}
