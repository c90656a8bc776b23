package workflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/providers/ipfs"
	"github.com/feral-file/ff-marketplace/internal/wallet"
)

const DEFAULT_MINT_TIMEOUT = 5 * time.Minute

// MintRequest is the user input for a single mint.
// Address is the recipient; an empty address mints to the signer.
type MintRequest struct {
	Name        string
	Description string
	Artist      string
	Media       []domain.MediaFile
	Address     string
	Signer      wallet.Signer
}

// Minter runs the mint workflow
//
//go:generate mockgen -source=mint_wf.go -destination=../mocks/minter.go -package=mocks -mock_names=Minter=MockMinter
type Minter interface {
	// Mint uploads the media and metadata, then mints the next token id to the request address.
	// Failures after submission are returned as *domain.MintError.
	Mint(ctx context.Context, req MintRequest) (*domain.MintReceipt, error)
}

// MinterConfig holds mint workflow configuration
type MinterConfig struct {
	ExternalURL string
	Timeout     time.Duration
	Chain       domain.Chain
}

type minter struct {
	config    MinterConfig
	storage   ipfs.Client
	contract  ethereum.ContractClient
	publisher messaging.Publisher
	clock     adapter.Clock
	metrics   *metrics.Metrics
}

// NewMinter creates a new mint workflow
func NewMinter(
	config MinterConfig,
	storage ipfs.Client,
	contract ethereum.ContractClient,
	publisher messaging.Publisher,
	clock adapter.Clock,
	m *metrics.Metrics,
) Minter {
	if config.Timeout <= 0 {
		config.Timeout = DEFAULT_MINT_TIMEOUT
	}
	if publisher == nil {
		publisher = messaging.NoopPublisher()
	}

	return &minter{
		config:    config,
		storage:   storage,
		contract:  contract,
		publisher: publisher,
		clock:     clock,
		metrics:   m,
	}
}

// validate lists every missing required field
func (r *MintRequest) validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(r.Artist) == "" {
		missing = append(missing, "artist")
	}
	if len(r.Media) == 0 || len(r.Media[0].Data) == 0 {
		missing = append(missing, "media")
	}

	if len(missing) > 0 {
		return &domain.ValidationError{Fields: missing}
	}
	return nil
}

// Mint uploads the media and metadata, then mints the next token id
func (m *minter) Mint(ctx context.Context, req MintRequest) (*domain.MintReceipt, error) {
	start := m.clock.Now()

	receipt, err := m.mint(ctx, req)
	m.metrics.ObserveMint(mintResult(err), m.clock.Since(start))

	return receipt, err
}

func (m *minter) mint(ctx context.Context, req MintRequest) (*domain.MintReceipt, error) {
	if req.Signer == nil {
		return nil, domain.ErrSignerRequired
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	owner := req.Signer.Address().Hex()
	if req.Address != "" {
		normalized, err := domain.NormalizeAddress(req.Address)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, req.Address)
		}
		owner = normalized
	}

	ctx, cancel := context.WithTimeout(ctx, m.config.Timeout)
	defer cancel()

	mintID := ulid.Make().String()
	ctx = logger.WithFields(ctx, zap.String("mintID", mintID), zap.String("owner", owner))

	// Only the first media file becomes the token image
	if len(req.Media) > 1 {
		logger.InfoCtx(ctx, "Ignoring additional media files", zap.Int("count", len(req.Media)-1))
	}

	// 1. Upload media
	imageHash, err := m.storage.UploadFile(ctx, req.Media[0])
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Uploaded media", zap.String("imageHash", imageHash.String()))

	// 2. Upload metadata
	metadata := domain.TokenMetadata{
		Name:        req.Name,
		Description: req.Description,
		Image:       imageHash,
		ExternalURL: m.config.ExternalURL,
		Attributes: []domain.Attribute{
			{TraitType: domain.TRAIT_TYPE_ARTIST, Value: req.Artist},
		},
	}
	metadataHash, err := m.storage.UploadJSON(ctx, metadata)
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Uploaded metadata", zap.String("metadataHash", metadataHash.String()))

	// 3. Next token id. Not reserved: a concurrent mint of the same id reverts.
	supply, err := m.contract.TotalSupply(ctx, req.Signer)
	if err != nil {
		return nil, fmt.Errorf("failed to read total supply: %w", err)
	}
	tokenID := domain.TokenID(supply + 1)

	// 4. Mint
	receipt, err := m.contract.Mint(ctx, req.Signer, tokenID, owner, metadataHash)
	if err != nil {
		var mintErr *domain.MintError
		if !errors.As(err, &mintErr) {
			err = &domain.MintError{TokenID: tokenID, Message: err.Error(), Err: err}
		}
		logger.WarnCtx(ctx, "Mint failed", zap.Uint64("tokenID", uint64(tokenID)), zap.Error(err))
		return nil, err
	}
	receipt.ImageHash = imageHash

	logger.InfoCtx(ctx, "Minted token",
		zap.Uint64("tokenID", uint64(receipt.TokenID)),
		zap.String("txHash", receipt.TxHash),
		zap.Uint64("blockNumber", receipt.BlockNumber))

	m.metrics.SetTotalSupply(uint64(tokenID))
	m.publishMinted(ctx, mintID, receipt)

	return receipt, nil
}

// publishMinted emits a token minted event; failures are only logged
func (m *minter) publishMinted(ctx context.Context, mintID string, receipt *domain.MintReceipt) {
	event := &domain.MintedEvent{
		ID:              mintID,
		Chain:           m.config.Chain,
		ContractAddress: m.contract.ContractAddress(),
		TokenID:         receipt.TokenID,
		Owner:           receipt.Owner,
		MetadataHash:    receipt.MetadataHash,
		TxHash:          receipt.TxHash,
		BlockNumber:     receipt.BlockNumber,
		Timestamp:       m.clock.Now().UTC(),
	}

	if err := m.publisher.PublishMinted(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish minted event", zap.Error(err))
	}
}

// mintResult maps a workflow error to its metrics label
func mintResult(err error) string {
	var validationErr *domain.ValidationError
	var uploadErr *domain.UploadError
	var mintErr *domain.MintError

	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.As(err, &validationErr), errors.Is(err, domain.ErrInvalidAddress):
		return metrics.ResultValidation
	case errors.Is(err, domain.ErrSignerRequired):
		return metrics.ResultSigner
	case errors.As(err, &uploadErr):
		return metrics.ResultUpload
	case errors.As(err, &mintErr):
		return metrics.ResultMint
	default:
		return metrics.ResultError
	}
}
