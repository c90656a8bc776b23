package ipfs

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/uri"
)

const (
	opUploadFile   = "upload_file"
	opUploadJSON   = "upload_json"
	opPin          = "pin"
	opRetrieveJSON = "retrieve_json"

	metadataFilename = "metadata.json"
	formField        = "file"
)

// Client uploads, pins and retrieves content on IPFS
//
//go:generate mockgen -source=client.go -destination=../../mocks/storage_client.go -package=mocks -mock_names=Client=MockStorageClient
type Client interface {
	// UploadFile stores a media file and pins it under the configured name
	UploadFile(ctx context.Context, file domain.MediaFile) (domain.ContentHash, error)

	// UploadJSON stores the canonical JSON encoding of v and pins it under the configured name
	UploadJSON(ctx context.Context, v interface{}) (domain.ContentHash, error)

	// Pin asks the pinning service to keep hash under name
	Pin(ctx context.Context, hash domain.ContentHash, name string) error

	// RetrieveFile returns the gateway URL for hash, or "" for an empty hash
	RetrieveFile(hash domain.ContentHash) string

	// RetrieveJSON fetches the JSON document stored under hash into v
	RetrieveJSON(ctx context.Context, hash domain.ContentHash, v interface{}) error

	// IsImageURL reports whether url serves image content
	IsImageURL(ctx context.Context, url string) bool
}

// Config holds the IPFS node and pinning service endpoints
type Config struct {
	UploadFileURL   string
	UploadJSONURL   string
	PinHashURL      string
	RetrieveJSONURL string
	RetrieveFileURL string
	ProjectID       string
	ProjectSecret   string
	PinJWT          string
	PinName         string
	HashStripTokens []string
}

type client struct {
	cfg          Config
	httpClient   adapter.HTTPClient
	jcs          adapter.JCS
	json         adapter.JSON
	imageChecker uri.ImageChecker
	metrics      *metrics.Metrics
}

// NewClient creates a new IPFS client
func NewClient(cfg Config, httpClient adapter.HTTPClient, jcs adapter.JCS, json adapter.JSON, imageChecker uri.ImageChecker, m *metrics.Metrics) Client {
	if cfg.PinName == "" {
		cfg.PinName = domain.DEFAULT_PIN_NAME
	}
	if cfg.RetrieveFileURL == "" {
		cfg.RetrieveFileURL = domain.DEFAULT_IPFS_GATEWAY
	}

	return &client{
		cfg:          cfg,
		httpClient:   httpClient,
		jcs:          jcs,
		json:         json,
		imageChecker: imageChecker,
		metrics:      m,
	}
}

// uploadResponse is the node's answer to an add request
type uploadResponse struct {
	Hash string `json:"Hash"`
}

// pinRequest is the pinning service request body
type pinRequest struct {
	HashToPin string `json:"hashToPin"`
	Name      string `json:"name"`
}

// basicAuth returns the node's Authorization headers
func (c *client) basicAuth() map[string]string {
	if c.cfg.ProjectID == "" && c.cfg.ProjectSecret == "" {
		return nil
	}
	token := base64.StdEncoding.EncodeToString([]byte(c.cfg.ProjectID + ":" + c.cfg.ProjectSecret))
	return map[string]string{"Authorization": "Basic " + token}
}

// UploadFile stores a media file and pins it under the configured name
func (c *client) UploadFile(ctx context.Context, file domain.MediaFile) (domain.ContentHash, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(file.Data).String()
	}
	filename := file.Filename
	if filename == "" {
		filename = "media" + mimetype.Detect(file.Data).Extension()
	}

	hash, err := c.upload(ctx, opUploadFile, c.cfg.UploadFileURL, filename, contentType, file.Data)
	c.metrics.ObserveUpload("file", err)
	if err != nil {
		return "", err
	}

	c.pinAfterUpload(ctx, hash)
	return hash, nil
}

// UploadJSON stores the canonical JSON encoding of v and pins it under the configured name
func (c *client) UploadJSON(ctx context.Context, v interface{}) (domain.ContentHash, error) {
	hash, err := c.uploadJSON(ctx, v)
	c.metrics.ObserveUpload("json", err)
	if err != nil {
		return "", err
	}

	c.pinAfterUpload(ctx, hash)
	return hash, nil
}

func (c *client) uploadJSON(ctx context.Context, v interface{}) (domain.ContentHash, error) {
	raw, err := c.json.Marshal(v)
	if err != nil {
		return "", &domain.UploadError{Op: opUploadJSON, Err: fmt.Errorf("failed to marshal json: %w", err)}
	}

	canonical, err := c.jcs.Transform(raw)
	if err != nil {
		return "", &domain.UploadError{Op: opUploadJSON, Err: fmt.Errorf("failed to canonicalize json: %w", err)}
	}

	return c.upload(ctx, opUploadJSON, c.cfg.UploadJSONURL, metadataFilename, "application/json", canonical)
}

// upload posts data as a single multipart file part and returns the hash from the response
func (c *client) upload(ctx context.Context, op string, url string, filename string, contentType string, data []byte) (domain.ContentHash, error) {
	if url == "" {
		return "", &domain.UploadError{Op: op, Err: domain.ErrUploadEndpointUnconfigured}
	}

	body, formContentType, err := multipartBody(filename, contentType, data)
	if err != nil {
		return "", &domain.UploadError{Op: op, Err: err}
	}

	respBody, err := c.httpClient.Post(ctx, url, formContentType, body, c.basicAuth())
	if err != nil {
		return "", &domain.UploadError{Op: op, Err: err}
	}

	var resp uploadResponse
	if err := c.json.Unmarshal(respBody, &resp); err != nil {
		return "", &domain.UploadError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if strings.TrimSpace(resp.Hash) == "" {
		return "", &domain.UploadError{Op: op, Err: errors.New("response carries no hash")}
	}

	logger.DebugCtx(ctx, "Uploaded content", zap.String("op", op), zap.String("hash", resp.Hash), zap.Int("size", len(data)))

	return domain.ContentHash(resp.Hash), nil
}

// pinAfterUpload pins a fresh upload; failures are logged and counted, never returned
func (c *client) pinAfterUpload(ctx context.Context, hash domain.ContentHash) {
	if err := c.Pin(ctx, hash, c.cfg.PinName); err != nil {
		c.metrics.IncPinFailure()
		logger.WarnCtx(ctx, "Failed to pin uploaded content", zap.String("hash", hash.String()), zap.Error(err))
	}
}

// Pin asks the pinning service to keep hash under name
func (c *client) Pin(ctx context.Context, hash domain.ContentHash, name string) error {
	if c.cfg.PinHashURL == "" {
		return &domain.UploadError{Op: opPin, Err: domain.ErrUploadEndpointUnconfigured}
	}

	body, err := c.json.Marshal(pinRequest{HashToPin: hash.String(), Name: name})
	if err != nil {
		return &domain.UploadError{Op: opPin, Err: fmt.Errorf("failed to marshal pin request: %w", err)}
	}

	headers := map[string]string{}
	if c.cfg.PinJWT != "" {
		headers["Authorization"] = "Bearer " + c.cfg.PinJWT
	}

	if _, err := c.httpClient.Post(ctx, c.cfg.PinHashURL, "application/json", body, headers); err != nil {
		return &domain.UploadError{Op: opPin, Err: err}
	}

	return nil
}

// RetrieveFile returns the gateway URL for hash, or "" for an empty hash
func (c *client) RetrieveFile(hash domain.ContentHash) string {
	if hash.Empty() {
		return ""
	}

	normalized := uri.NormalizeHash(hash.String(), nil)
	if normalized == "" {
		return ""
	}

	return uri.JoinGateway(c.cfg.RetrieveFileURL, normalized)
}

// RetrieveJSON fetches the JSON document stored under hash into v
func (c *client) RetrieveJSON(ctx context.Context, hash domain.ContentHash, v interface{}) error {
	if c.cfg.RetrieveJSONURL == "" {
		return &domain.UploadError{Op: opRetrieveJSON, Err: domain.ErrUploadEndpointUnconfigured}
	}

	normalized := uri.NormalizeHash(hash.String(), c.cfg.HashStripTokens)
	if normalized == "" {
		return fmt.Errorf("empty content hash")
	}

	url := uri.JoinGateway(c.cfg.RetrieveJSONURL, normalized)
	respBody, err := c.httpClient.Post(ctx, url, "application/json", []byte("{}"), c.basicAuth())
	if err != nil {
		return fmt.Errorf("failed to retrieve %s: %w", normalized, err)
	}

	if err := c.json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", normalized, err)
	}

	return nil
}

// IsImageURL reports whether url serves image content
func (c *client) IsImageURL(ctx context.Context, url string) bool {
	return c.imageChecker.IsImage(ctx, url)
}

// multipartBody encodes data as a single file part named formField
func multipartBody(filename string, contentType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, filename))
	header.Set("Content-Type", contentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
