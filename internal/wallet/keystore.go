package wallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

type keystoreSigner struct {
	ks      *keystore.KeyStore
	account accounts.Account
	chainID *big.Int
}

func (s *keystoreSigner) Address() common.Address {
	return s.account.Address
}

func (s *keystoreSigner) ChainID() *big.Int {
	return cloneChainID(s.chainID)
}

func (s *keystoreSigner) TransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	opts, err := bind.NewKeyStoreTransactorWithChainID(s.ks, s.account, s.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create keystore transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

type keystoreProvider struct {
	signer *keystoreSigner
}

// NewKeystoreProvider opens an encrypted keystore directory and unlocks one account.
// With an empty address the first account in the directory is used.
func NewKeystoreProvider(dir string, address string, passphrase string, chainID *big.Int) (Provider, error) {
	if chainID == nil {
		return nil, fmt.Errorf("chain id is required")
	}

	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)

	var account accounts.Account
	if address == "" {
		all := ks.Accounts()
		if len(all) == 0 {
			return nil, fmt.Errorf("no accounts in keystore %s", dir)
		}
		account = all[0]
	} else {
		normalized, err := domain.NormalizeAddress(address)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAddress, address)
		}
		account, err = ks.Find(accounts.Account{Address: common.HexToAddress(normalized)})
		if err != nil {
			return nil, fmt.Errorf("failed to find account %s: %w", normalized, err)
		}
	}

	if err := ks.Unlock(account, passphrase); err != nil {
		return nil, fmt.Errorf("failed to unlock account %s: %w", account.Address.Hex(), err)
	}

	return &keystoreProvider{
		signer: &keystoreSigner{
			ks:      ks,
			account: account,
			chainID: cloneChainID(chainID),
		},
	}, nil
}

func (p *keystoreProvider) ConnectedAddress() string {
	return p.signer.Address().Hex()
}

func (p *keystoreProvider) ChainID() *big.Int {
	return p.signer.ChainID()
}

func (p *keystoreProvider) IsConnected() bool {
	return true
}

func (p *keystoreProvider) Signer(_ context.Context) (Signer, error) {
	return p.signer, nil
}
