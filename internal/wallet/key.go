package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type keySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	chainID *big.Int
}

// NewKeySigner creates a signer backed by an in-memory private key
func NewKeySigner(key *ecdsa.PrivateKey, chainID *big.Int) (Signer, error) {
	if key == nil {
		return nil, errors.New("private key is required")
	}
	if chainID == nil {
		return nil, errors.New("chain id is required")
	}
	return &keySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		chainID: cloneChainID(chainID),
	}, nil
}

func (s *keySigner) Address() common.Address {
	return s.address
}

func (s *keySigner) ChainID() *big.Int {
	return cloneChainID(s.chainID)
}

func (s *keySigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

type keyProvider struct {
	signer Signer
}

// NewPrivateKeyProvider creates a provider from a hex encoded private key
func NewPrivateKeyProvider(hexKey string, chainID *big.Int) (Provider, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	signer, err := NewKeySigner(key, chainID)
	if err != nil {
		return nil, err
	}

	return &keyProvider{signer: signer}, nil
}

func (p *keyProvider) ConnectedAddress() string {
	return p.signer.Address().Hex()
}

func (p *keyProvider) ChainID() *big.Int {
	return p.signer.ChainID()
}

func (p *keyProvider) IsConnected() bool {
	return true
}

func (p *keyProvider) Signer(_ context.Context) (Signer, error) {
	return p.signer, nil
}
