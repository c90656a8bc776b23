package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/config"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/messaging"
	"github.com/feral-file/ff-marketplace/internal/metrics"
	"github.com/feral-file/ff-marketplace/internal/providers/ethereum"
	"github.com/feral-file/ff-marketplace/internal/providers/ipfs"
	"github.com/feral-file/ff-marketplace/internal/providers/jetstream"
	"github.com/feral-file/ff-marketplace/internal/uri"
	"github.com/feral-file/ff-marketplace/internal/wallet"
	"github.com/feral-file/ff-marketplace/internal/workflows"
)

// Adapters are the side-effecting dependencies used while wiring
type Adapters struct {
	Dialer     adapter.EthClientDialer
	NatsJS     adapter.NatsJetStream
	FileSystem adapter.FileSystem
	Clock      adapter.Clock
}

// DefaultAdapters returns the real implementations
func DefaultAdapters() Adapters {
	return Adapters{
		Dialer:     adapter.NewEthClientDialer(),
		NatsJS:     adapter.NewNatsJetStream(),
		FileSystem: adapter.NewFileSystem(),
		Clock:      adapter.NewClock(),
	}
}

// Marketplace holds the wired components shared by the API server and nftctl
type Marketplace struct {
	Provider  wallet.Provider
	Contract  ethereum.ContractClient
	Storage   ipfs.Client
	Publisher messaging.Publisher
	Minter    workflows.Minter
	Lister    workflows.OwnershipLister
	Metrics   *metrics.Metrics
	Registry  *prometheus.Registry
}

// New connects to the chain, the storage gateway and, when configured, NATS
func New(ctx context.Context, cfg *config.MarketplaceConfig, adapters Adapters) (*Marketplace, error) {
	chainID, err := cfg.Ethereum.ChainID.EVMChainID()
	if err != nil {
		return nil, err
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Wallet
	provider, err := wallet.FromConfig(cfg.Wallet, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}
	if provider.IsConnected() {
		logger.InfoCtx(ctx, "Wallet connected", zap.String("address", provider.ConnectedAddress()))
	} else {
		logger.WarnCtx(ctx, "No wallet configured, minting is disabled")
	}

	// Ethereum
	ethClient, err := adapters.Dialer.Dial(ctx, cfg.Ethereum.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
	}
	nodeChainID, err := ethClient.ChainID(ctx)
	if err != nil {
		ethClient.Close()
		return nil, fmt.Errorf("failed to read chain id: %w", err)
	}
	if nodeChainID.Cmp(chainID) != 0 {
		ethClient.Close()
		return nil, fmt.Errorf("rpc node is on chain %s, configured chain is %s", nodeChainID, chainID)
	}

	contractABI, err := ethereum.LoadABI(adapters.FileSystem, cfg.Ethereum.ContractABIPath)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	contract, err := ethereum.NewContractClient(ethereum.Config{
		ContractAddress:     cfg.Ethereum.ContractAddress,
		Confirmations:       cfg.Ethereum.Confirmations,
		ReceiptPollInterval: cfg.Ethereum.ReceiptPollInterval,
	}, ethClient, contractABI)
	if err != nil {
		ethClient.Close()
		return nil, err
	}
	logger.InfoCtx(ctx, "Connected to Ethereum",
		zap.String("chain", string(cfg.Ethereum.ChainID)),
		zap.String("contract", contract.ContractAddress()))

	// Content storage
	httpClient := adapter.NewHTTPClient(adapter.HTTPClientConfig{
		Timeout:        cfg.IPFS.HTTPTimeout,
		MaxElapsedTime: cfg.IPFS.RetryMaxElapsed,
	})
	storage := ipfs.NewClient(ipfs.Config{
		UploadFileURL:   cfg.IPFS.UploadFileURL,
		UploadJSONURL:   cfg.IPFS.UploadJSONURL,
		PinHashURL:      cfg.IPFS.PinHashURL,
		RetrieveJSONURL: cfg.IPFS.RetrieveJSONURL,
		RetrieveFileURL: cfg.IPFS.RetrieveFileURL,
		ProjectID:       cfg.IPFS.ProjectID,
		ProjectSecret:   cfg.IPFS.ProjectSecret,
		PinJWT:          cfg.IPFS.PinJWT,
		PinName:         cfg.IPFS.PinName,
		HashStripTokens: cfg.IPFS.HashStripTokens,
	}, httpClient, adapter.NewJCS(), adapter.NewJSON(), uri.NewImageChecker(httpClient), m)

	// Events
	publisher := messaging.NoopPublisher()
	if cfg.NATS.URL != "" {
		publisher, err = jetstream.NewPublisher(ctx, jetstream.Config{
			URL:            cfg.NATS.URL,
			StreamName:     cfg.NATS.StreamName,
			MaxReconnects:  cfg.NATS.MaxReconnects,
			ReconnectWait:  cfg.NATS.ReconnectWait,
			ConnectionName: cfg.NATS.ConnectionName,
		}, adapters.NatsJS, adapter.NewJSON())
		if err != nil {
			contract.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		logger.InfoCtx(ctx, "Connected to NATS", zap.String("url", cfg.NATS.URL))
	}

	minter := workflows.NewMinter(workflows.MinterConfig{
		ExternalURL: cfg.Mint.ExternalURL,
		Timeout:     cfg.Mint.Timeout,
		Chain:       cfg.Ethereum.ChainID,
	}, storage, contract, publisher, adapters.Clock, m)

	lister := workflows.NewOwnershipLister(workflows.OwnershipConfig{
		Concurrency: cfg.Ownership.Concurrency,
		RateLimit:   cfg.Ownership.RateLimit,
		Timeout:     cfg.Ownership.Timeout,
	}, storage, contract, adapters.Clock, m)

	return &Marketplace{
		Provider:  provider,
		Contract:  contract,
		Storage:   storage,
		Publisher: publisher,
		Minter:    minter,
		Lister:    lister,
		Metrics:   m,
		Registry:  registry,
	}, nil
}

// Close releases the chain and NATS connections
func (mp *Marketplace) Close() {
	mp.Publisher.Close()
	mp.Contract.Close()
}
