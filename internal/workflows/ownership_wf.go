package workflows

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/providers/ipfs"
	"github.com/feral-file/ff-marketplace/internal/wallet"
)

const DEFAULT_OWNERSHIP_TIMEOUT = 2 * time.Minute

// OwnershipLister enumerates tokens and renders them
//
//go:generate mockgen -source=ownership_wf.go -destination=../mocks/ownership_lister.go -package=mocks -mock_names=OwnershipLister=MockOwnershipLister
type OwnershipLister interface {
	// ListOwnedTokens checks every minted id and returns the tokens owned by address in ascending id order.
	// An empty address lists the signer's tokens.
	ListOwnedTokens(ctx context.Context, signer wallet.Signer, address string) ([]domain.Token, error)

	// TokenDetails returns the owner, metadata and image of one token
	TokenDetails(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (*domain.Token, error)

	// TotalSupply returns the number of minted tokens
	TotalSupply(ctx context.Context, signer wallet.Signer) (uint64, error)
}

// OwnershipConfig holds ownership listing configuration
type OwnershipConfig struct {
	Concurrency int     // Concurrent ownership checks; 1 checks ids one by one
	RateLimit   float64 // Ownership checks per second; 0 disables the limit
	Timeout     time.Duration // Bounds one listing, token lookup or supply read
}

type ownershipLister struct {
	config   OwnershipConfig
	storage  ipfs.Client
	contract ethereum.ContractClient
	limiter  *rate.Limiter
	clock    adapter.Clock
	metrics  *metrics.Metrics
}

// NewOwnershipLister creates a new ownership listing workflow
func NewOwnershipLister(
	config OwnershipConfig,
	storage ipfs.Client,
	contract ethereum.ContractClient,
	clock adapter.Clock,
	m *metrics.Metrics,
) OwnershipLister {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = DEFAULT_OWNERSHIP_TIMEOUT
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), config.Concurrency)
	}

	return &ownershipLister{
		config:   config,
		storage:  storage,
		contract: contract,
		limiter:  limiter,
		clock:    clock,
		metrics:  m,
	}
}

// TotalSupply returns the number of minted tokens
func (l *ownershipLister) TotalSupply(ctx context.Context, signer wallet.Signer) (uint64, error) {
	if signer == nil {
		return 0, domain.ErrSignerRequired
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	return l.totalSupply(ctx, signer)
}

func (l *ownershipLister) totalSupply(ctx context.Context, signer wallet.Signer) (uint64, error) {
	supply, err := l.contract.TotalSupply(ctx, signer)
	if err != nil {
		return 0, fmt.Errorf("failed to read total supply: %w", err)
	}
	l.metrics.SetTotalSupply(supply)

	return supply, nil
}

// ListOwnedTokens checks every minted id and returns the tokens owned by address
func (l *ownershipLister) ListOwnedTokens(ctx context.Context, signer wallet.Signer, address string) ([]domain.Token, error) {
	if signer == nil {
		return nil, domain.ErrSignerRequired
	}
	if address == "" {
		address = signer.Address().Hex()
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	start := l.clock.Now()
	defer func() {
		l.metrics.ObserveOwnershipScan(l.clock.Since(start))
	}()

	supply, err := l.totalSupply(ctx, signer)
	if err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		owned []domain.Token
	)

	pool := pond.NewPool(l.config.Concurrency, pond.WithContext(ctx))
	for id := domain.FIRST_TOKEN_ID; uint64(id) <= supply; id++ {
		if ctx.Err() != nil {
			break
		}
		tokenID := id
		pool.Submit(func() {
			if l.limiter != nil {
				if err := l.limiter.Wait(ctx); err != nil {
					return
				}
			}

			isOwner, err := l.contract.IsOwner(ctx, signer, tokenID, address)
			if err != nil {
				// Unreadable ownership counts as not owned
				l.metrics.ObserveOwnershipCheck(metrics.OwnershipError)
				logger.DebugCtx(ctx, "Ownership check failed", zap.Uint64("tokenID", uint64(tokenID)), zap.Error(err))
				return
			}
			if !isOwner {
				l.metrics.ObserveOwnershipCheck(metrics.OwnershipNotOwned)
				return
			}
			l.metrics.ObserveOwnershipCheck(metrics.OwnershipOwned)

			token := l.renderToken(ctx, signer, tokenID, address)

			mu.Lock()
			owned = append(owned, token)
			mu.Unlock()
		})
	}
	pool.StopAndWait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].TokenID < owned[j].TokenID
	})

	logger.InfoCtx(ctx, "Listed owned tokens",
		zap.String("address", address),
		zap.Uint64("supply", supply),
		zap.Int("owned", len(owned)))

	return owned, nil
}

// renderToken fetches the metadata of an owned token.
// A metadata failure keeps the token with an empty image URL.
func (l *ownershipLister) renderToken(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID, owner string) domain.Token {
	token := domain.Token{TokenID: tokenID, Owner: owner}

	metadataHash, metadata, err := l.fetchMetadata(ctx, signer, tokenID)
	token.MetadataHash = metadataHash
	if err != nil {
		logger.WarnCtx(ctx, "Failed to fetch token metadata", zap.Uint64("tokenID", uint64(tokenID)), zap.Error(err))
		return token
	}

	token.Name = metadata.Name
	token.Description = metadata.Description
	token.Artist = metadata.Artist()
	token.ImageURL = l.storage.RetrieveFile(metadata.Image)

	return token
}

// fetchMetadata resolves the token URI and downloads the metadata document
func (l *ownershipLister) fetchMetadata(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (domain.ContentHash, *domain.TokenMetadata, error) {
	metadataHash, err := l.contract.TokenURI(ctx, signer, tokenID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read token URI: %w", err)
	}

	var metadata domain.TokenMetadata
	if err := l.storage.RetrieveJSON(ctx, metadataHash, &metadata); err != nil {
		return metadataHash, nil, fmt.Errorf("failed to retrieve metadata: %w", err)
	}

	return metadataHash, &metadata, nil
}

// TokenDetails returns the owner, metadata and image of one token
func (l *ownershipLister) TokenDetails(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (*domain.Token, error) {
	if signer == nil {
		return nil, domain.ErrSignerRequired
	}

	ctx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	supply, err := l.totalSupply(ctx, signer)
	if err != nil {
		return nil, err
	}
	if tokenID < domain.FIRST_TOKEN_ID || uint64(tokenID) > supply {
		return nil, fmt.Errorf("%w: %d", domain.ErrTokenNotFound, tokenID)
	}

	owner, err := l.contract.OwnerOf(ctx, signer, tokenID)
	if err != nil {
		return nil, fmt.Errorf("failed to read owner: %w", err)
	}

	metadataHash, metadata, err := l.fetchMetadata(ctx, signer, tokenID)
	if err != nil {
		return nil, err
	}

	token := &domain.Token{
		TokenID:      tokenID,
		Owner:        owner,
		MetadataHash: metadataHash,
		Name:         metadata.Name,
		Description:  metadata.Description,
		Artist:       metadata.Artist(),
		ImageURL:     l.storage.RetrieveFile(metadata.Image),
	}

	if token.ImageURL != "" {
		isImage := l.storage.IsImageURL(ctx, token.ImageURL)
		token.IsImage = &isImage
	}

	return token, nil
}
