package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace/internal/adapter"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
	"github.com/feral-file/ff-marketplace/internal/wallet"
)

// ContractClient talks to the marketplace token contract
//
//go:generate mockgen -source=client.go -destination=../../mocks/contract_client.go -package=mocks -mock_names=ContractClient=MockContractClient
type ContractClient interface {
	// TotalSupply returns the number of minted tokens
	TotalSupply(ctx context.Context, signer wallet.Signer) (uint64, error)

	// OwnerOf returns the checksummed owner address of a token
	OwnerOf(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (string, error)

	// IsOwner reports whether address is exactly the owner returned by ownerOf.
	// Read failures are returned as *domain.OwnershipCheckError.
	IsOwner(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID, address string) (bool, error)

	// TokenURI returns the metadata pointer of a token
	TokenURI(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (domain.ContentHash, error)

	// Mint submits mint(address,uint256,string) and waits for it to be confirmed.
	// Any failure is returned as *domain.MintError.
	Mint(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID, owner string, metadataHash domain.ContentHash) (*domain.MintReceipt, error)

	// ContractAddress returns the checksummed contract address
	ContractAddress() string

	// Close closes the connection
	Close()
}

// Config holds the contract client configuration
type Config struct {
	ContractAddress     string
	Confirmations       uint64
	ReceiptPollInterval time.Duration
}

type contractClient struct {
	client   adapter.EthClient
	address  common.Address
	methods  *contractMethods
	confirms uint64
	interval time.Duration
}

// NewContractClient creates a contract client for the given ABI
func NewContractClient(cfg Config, client adapter.EthClient, contractABI abi.ABI) (ContractClient, error) {
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("%w: contract %s", domain.ErrInvalidAddress, cfg.ContractAddress)
	}

	methods, err := resolveMethods(contractABI)
	if err != nil {
		return nil, err
	}

	confirms := cfg.Confirmations
	if confirms == 0 {
		confirms = 1
	}
	interval := cfg.ReceiptPollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &contractClient{
		client:   client,
		address:  common.HexToAddress(cfg.ContractAddress),
		methods:  methods,
		confirms: confirms,
		interval: interval,
	}, nil
}

func (c *contractClient) ContractAddress() string {
	return c.address.Hex()
}

// call performs an eth_call of m from the signer's address and decodes the single result
func (c *contractClient) call(ctx context.Context, signer wallet.Signer, m abi.Method, args ...interface{}) (interface{}, error) {
	data, err := pack(m, args...)
	if err != nil {
		return nil, err
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		From: signer.Address(),
		To:   &c.address,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call contract: %w", err)
	}

	return unpackSingle(m, result)
}

// TotalSupply returns the number of minted tokens
func (c *contractClient) TotalSupply(ctx context.Context, signer wallet.Signer) (uint64, error) {
	if signer == nil {
		return 0, domain.ErrSignerRequired
	}

	value, err := c.call(ctx, signer, c.methods.totalSupply)
	if err != nil {
		return 0, err
	}

	supply, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unexpected totalSupply result type %T", value)
	}
	if !supply.IsUint64() {
		return 0, fmt.Errorf("total supply %s overflows uint64", supply)
	}

	return supply.Uint64(), nil
}

// OwnerOf returns the checksummed owner address of a token
func (c *contractClient) OwnerOf(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (string, error) {
	if signer == nil {
		return "", domain.ErrSignerRequired
	}

	value, err := c.call(ctx, signer, c.methods.ownerOf, tokenID.BigInt())
	if err != nil {
		return "", err
	}

	owner, ok := value.(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected ownerOf result type %T", value)
	}

	return owner.Hex(), nil
}

// IsOwner reports whether address is exactly the owner returned by ownerOf
func (c *contractClient) IsOwner(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID, address string) (bool, error) {
	if signer == nil {
		return false, domain.ErrSignerRequired
	}

	owner, err := c.OwnerOf(ctx, signer, tokenID)
	if err != nil {
		return false, &domain.OwnershipCheckError{TokenID: tokenID, Err: err}
	}

	return owner == address, nil
}

// TokenURI returns the metadata pointer of a token
func (c *contractClient) TokenURI(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID) (domain.ContentHash, error) {
	if signer == nil {
		return "", domain.ErrSignerRequired
	}

	value, err := c.call(ctx, signer, c.methods.tokenURI, tokenID.BigInt())
	if err != nil {
		return "", err
	}

	uri, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI result type %T", value)
	}

	return domain.ContentHash(uri), nil
}

// Mint submits mint(owner, tokenID, metadataHash) and waits for confirmation
func (c *contractClient) Mint(ctx context.Context, signer wallet.Signer, tokenID domain.TokenID, owner string, metadataHash domain.ContentHash) (*domain.MintReceipt, error) {
	if signer == nil {
		return nil, domain.ErrSignerRequired
	}

	mintErr := func(txHash string, err error) error {
		return &domain.MintError{TokenID: tokenID, TxHash: txHash, Message: err.Error(), Err: err}
	}

	if !common.IsHexAddress(owner) {
		return nil, mintErr("", fmt.Errorf("%w: owner %s", domain.ErrInvalidAddress, owner))
	}
	ownerAddr := common.HexToAddress(owner)

	data, err := pack(c.methods.mint, ownerAddr, tokenID.BigInt(), string(metadataHash))
	if err != nil {
		return nil, mintErr("", err)
	}

	opts, err := signer.TransactOpts(ctx)
	if err != nil {
		return nil, mintErr("", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, opts.From)
	if err != nil {
		return nil, mintErr("", fmt.Errorf("failed to get nonce: %w", err))
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, mintErr("", fmt.Errorf("failed to suggest gas price: %w", err))
	}

	// A reverting mint (e.g. an id taken by a concurrent mint) fails here
	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: opts.From,
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return nil, mintErr("", fmt.Errorf("failed to estimate gas: %w", err))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := opts.Signer(opts.From, tx)
	if err != nil {
		return nil, mintErr("", fmt.Errorf("failed to sign transaction: %w", err))
	}
	txHash := signed.Hash().Hex()

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		return nil, mintErr(txHash, fmt.Errorf("failed to send transaction: %w", err))
	}

	logger.InfoCtx(ctx, "Mint transaction sent",
		zap.Uint64("tokenID", uint64(tokenID)),
		zap.String("txHash", txHash),
		zap.String("owner", ownerAddr.Hex()))

	receipt, err := c.waitMined(ctx, signed.Hash())
	if err != nil {
		return nil, mintErr(txHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, mintErr(txHash, errors.New("transaction reverted"))
	}

	if err := c.waitConfirmations(ctx, receipt.BlockNumber.Uint64()); err != nil {
		return nil, mintErr(txHash, err)
	}

	return &domain.MintReceipt{
		TokenID:      tokenID,
		Owner:        ownerAddr.Hex(),
		MetadataHash: metadataHash,
		TxHash:       txHash,
		BlockNumber:  receipt.BlockNumber.Uint64(),
		GasUsed:      receipt.GasUsed,
	}, nil
}

// waitMined polls for the transaction receipt until it exists or ctx ends
func (c *contractClient) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	operation := func() error {
		r, err := c.client.TransactionReceipt(ctx, hash)
		if err != nil {
			if !errors.Is(err, ethereum.NotFound) {
				logger.WarnCtx(ctx, "failed to fetch receipt, retrying", zap.String("txHash", hash.Hex()), zap.Error(err))
			}
			return err
		}
		receipt = r
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.interval), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("waiting for receipt: %w", ctx.Err())
		}
		return nil, fmt.Errorf("waiting for receipt: %w", err)
	}

	return receipt, nil
}

// waitConfirmations waits until the block holding the transaction has the configured depth
func (c *contractClient) waitConfirmations(ctx context.Context, minedAt uint64) error {
	target := minedAt + c.confirms - 1

	operation := func() error {
		head, err := c.client.BlockNumber(ctx)
		if err != nil {
			return err
		}
		if head < target {
			var have uint64
			if head >= minedAt {
				have = head - minedAt + 1
			}
			return fmt.Errorf("block %d has %d of %d confirmations", minedAt, have, c.confirms)
		}
		return nil
	}

	b := backoff.WithContext(backoff.NewConstantBackOff(c.interval), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("waiting for confirmations: %w", ctx.Err())
		}
		return fmt.Errorf("waiting for confirmations: %w", err)
	}

	return nil
}

// Close closes the connection
func (c *contractClient) Close() {
	c.client.Close()
}
