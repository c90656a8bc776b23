package uri

import (
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// sniffBytes is the number of leading bytes fetched when the server omits a content type
const sniffBytes = 512

// ImageChecker defines the interface for checking whether a URL serves an image
//
//go:generate mockgen -source=image_checker.go -destination=../mocks/image_checker.go -package=mocks -mock_names=ImageChecker=MockImageChecker
type ImageChecker interface {
	// IsImage reports whether url serves image content.
	// Transport failures are reported as true so retrieval stays best-effort.
	IsImage(ctx context.Context, url string) bool
}

type imageChecker struct {
	httpClient adapter.HTTPClient
}

// NewImageChecker creates a new image checker
func NewImageChecker(httpClient adapter.HTTPClient) ImageChecker {
	return &imageChecker{
		httpClient: httpClient,
	}
}

// IsImage inspects the Content-Type of a HEAD response, falling back to sniffing the first bytes
func (c *imageChecker) IsImage(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}

	// 1. Try HEAD request first
	resp, err := c.httpClient.Head(ctx, url)
	if err != nil {
		logger.WarnCtx(ctx, "HEAD request failed, assuming image", zap.String("url", url), zap.Error(err))
		return true
	}
	if resp.Body != nil {
		_ = resp.Body.Close()
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if contentType := resp.Header.Get("Content-Type"); contentType != "" {
			return isImageMediaType(contentType)
		}
	} else if resp.StatusCode != http.StatusMethodNotAllowed {
		logger.InfoCtx(ctx, "HEAD request returned non-success status", zap.String("url", url), zap.Int("status", resp.StatusCode))
	}

	// 2. Sniff the first bytes with a ranged GET
	data, err := c.httpClient.GetPartialContent(ctx, url, sniffBytes)
	if err != nil {
		logger.WarnCtx(ctx, "ranged GET failed, assuming image", zap.String("url", url), zap.Error(err))
		return true
	}

	return isImageMediaType(mimetype.Detect(data).String())
}

// isImageMediaType reports whether a Content-Type header names an image type
func isImageMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mediaType)), "image/")
}
