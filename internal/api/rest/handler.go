package rest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/wallet"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

const (
	DEFAULT_MAX_UPLOAD_SIZE = 50 << 20

	// Form fields of POST /api/v1/mint
	FORM_NAME        = "name"
	FORM_DESCRIPTION = "description"
	FORM_ARTIST      = "artist"
	FORM_ADDRESS     = "address"
	FORM_MEDIA       = "media"

	// Server-sent event names of the watch stream
	EVENT_TOKENS = "tokens"
	EVENT_ERROR  = "error"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// GetSession returns the wallet session the service signs with
	// GET /api/v1/session
	GetSession(c *gin.Context)

	// Mint uploads the media and metadata and mints a new token
	// POST /api/v1/mint (multipart: name, description, artist, address, media)
	Mint(c *gin.Context)

	// ListOwnedTokens lists the tokens owned by an address
	// GET /api/v1/owners/:address/tokens
	ListOwnedTokens(c *gin.Context)

	// WatchOwnedTokens streams the owned-token list as server-sent events until the client disconnects
	// GET /api/v1/owners/:address/tokens/watch
	WatchOwnedTokens(c *gin.Context)

	// GetToken returns the owner, metadata and image of one token
	// GET /api/v1/tokens/:id
	GetToken(c *gin.Context)

	// GetSupply returns the number of minted tokens
	// GET /api/v1/supply
	GetSupply(c *gin.Context)
}

// Config holds REST handler configuration
type Config struct {
	MaxUploadSize   int64
	RefreshInterval time.Duration
	CycleTimeout    time.Duration // Bounds each refresh of a watch stream
}

// handler implements the Handler interface
type handler struct {
	config   Config
	provider wallet.Provider
	minter   workflows.Minter
	lister   workflows.OwnershipLister
	metrics  *metrics.Metrics
}

// NewHandler creates a new REST API handler
func NewHandler(
	config Config,
	provider wallet.Provider,
	minter workflows.Minter,
	lister workflows.OwnershipLister,
	m *metrics.Metrics,
) Handler {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = DEFAULT_MAX_UPLOAD_SIZE
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = workflows.DEFAULT_REFRESH_INTERVAL
	}

	return &handler{
		config:   config,
		provider: provider,
		minter:   minter,
		lister:   lister,
		metrics:  m,
	}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "ff-marketplace-api",
	})
}

// GetSession returns the wallet session the service signs with
func (h *handler) GetSession(c *gin.Context) {
	c.JSON(http.StatusOK, wallet.Snapshot(h.provider))
}

// Mint uploads the media and metadata and mints a new token
func (h *handler) Mint(c *gin.Context) {
	ctx := c.Request.Context()

	req, err := h.parseMintRequest(c)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			respondError(c, err, "Request body too large")
			return
		}
		respondBadRequest(c, "Invalid multipart form", err.Error())
		return
	}

	req.Signer, err = h.provider.Signer(ctx)
	if err != nil {
		respondError(c, err, "Failed to get signer")
		return
	}

	receipt, err := h.minter.Mint(ctx, *req)
	if err != nil {
		respondError(c, err, "Failed to mint token")
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// parseMintRequest reads the multipart form.
// A request without a multipart body yields an empty request so validation reports every field.
func (h *handler) parseMintRequest(c *gin.Context) (*workflows.MintRequest, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.MaxUploadSize)

	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return &workflows.MintRequest{}, nil
		}
		return nil, err
	}

	req := &workflows.MintRequest{
		Name:        formValue(form, FORM_NAME),
		Description: formValue(form, FORM_DESCRIPTION),
		Artist:      formValue(form, FORM_ARTIST),
		Address:     formValue(form, FORM_ADDRESS),
	}

	for _, fh := range form.File[FORM_MEDIA] {
		media, err := readMediaFile(fh)
		if err != nil {
			return nil, err
		}
		req.Media = append(req.Media, media)
	}

	return req, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// readMediaFile loads an uploaded file, sniffing the content type when the client sent none
func readMediaFile(fh *multipart.FileHeader) (domain.MediaFile, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.MediaFile{}, fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.MediaFile{}, fmt.Errorf("failed to read media file: %w", err)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return domain.MediaFile{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// ListOwnedTokens lists the tokens owned by an address
func (h *handler) ListOwnedTokens(c *gin.Context) {
	ctx := c.Request.Context()

	address, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	signer, err := h.provider.Signer(ctx)
	if err != nil {
		respondError(c, err, "Failed to get signer")
		return
	}

	tokens, err := h.lister.ListOwnedTokens(ctx, signer, address)
	if err != nil {
		respondError(c, err, "Failed to list owned tokens")
		return
	}

	c.JSON(http.StatusOK, newTokenListResponse(address, tokens))
}

// WatchOwnedTokens streams the owned-token list as server-sent events until the client disconnects
func (h *handler) WatchOwnedTokens(c *gin.Context) {
	ctx := c.Request.Context()

	address, err := domain.NormalizeAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address", err.Error())
		return
	}

	// Only the latest snapshot matters; a slow client skips stale ones
	type snapshot struct {
		tokens []domain.Token
		err    error
	}
	latest := make(chan snapshot, 1)
	onSnapshot := func(_ context.Context, tokens []domain.Token, err error) {
		select {
		case <-latest:
		default:
		}
		latest <- snapshot{tokens: tokens, err: err}
	}

	watcher := workflows.NewWatcher(workflows.WatcherConfig{
		Address:         address,
		RefreshInterval: h.config.RefreshInterval,
		CycleTimeout:    h.config.CycleTimeout,
	}, h.lister, h.provider, onSnapshot, h.metrics)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := watcher.Start(ctx); err != nil {
			logger.ErrorCtx(ctx, err, zap.String("watcher", watcher.Name()))
		}
	}()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = watcher.Stop(stopCtx)
		<-done
	}()

	// Streams outlive the server write timeout
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for {
		select {
		case <-ctx.Done():
			logger.DebugCtx(ctx, "Watch stream closed by client", zap.String("address", address))
			return
		case s := <-latest:
			if s.err != nil {
				_, apiErr := toAPIError(s.err, "Failed to list owned tokens")
				c.SSEvent(EVENT_ERROR, apiErr)
			} else {
				c.SSEvent(EVENT_TOKENS, newTokenListResponse(address, s.tokens))
			}
			c.Writer.Flush()
		}
	}
}

// GetToken returns the owner, metadata and image of one token
func (h *handler) GetToken(c *gin.Context) {
	ctx := c.Request.Context()

	tokenID, err := domain.ParseTokenID(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "Invalid token id", err.Error())
		return
	}

	signer, err := h.provider.Signer(ctx)
	if err != nil {
		respondError(c, err, "Failed to get signer")
		return
	}

	token, err := h.lister.TokenDetails(ctx, signer, tokenID)
	if err != nil {
		respondError(c, err, "Failed to get token")
		return
	}

	c.JSON(http.StatusOK, token)
}

// GetSupply returns the number of minted tokens
func (h *handler) GetSupply(c *gin.Context) {
	ctx := c.Request.Context()

	signer, err := h.provider.Signer(ctx)
	if err != nil {
		respondError(c, err, "Failed to get signer")
		return
	}

	supply, err := h.lister.TotalSupply(ctx, signer)
	if err != nil {
		respondError(c, err, "Failed to read total supply")
		return
	}

	c.JSON(http.StatusOK, SupplyResponse{TotalSupply: supply})
}
