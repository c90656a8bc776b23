package wallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// Signer authorizes contract reads and transactions for one account
//
//go:generate mockgen -source=wallet.go -destination=../mocks/wallet.go -package=mocks -mock_names=Signer=MockSigner,Provider=MockProvider
type Signer interface {
	// Address is the account transactions are sent from
	Address() common.Address

	// ChainID is the EIP-155 chain id transactions are signed for
	ChainID() *big.Int

	// TransactOpts returns fresh transaction options bound to ctx
	TransactOpts(ctx context.Context) (*bind.TransactOpts, error)
}

// Provider exposes the wallet session: the connected account and a signer for it
type Provider interface {
	// ConnectedAddress is the checksummed address of the connected account, or "" when disconnected
	ConnectedAddress() string

	// ChainID is the chain the session is bound to
	ChainID() *big.Int

	// IsConnected reports whether a signer is available
	IsConnected() bool

	// Signer returns a signer for the connected account
	Signer(ctx context.Context) (Signer, error)
}

// Session is a snapshot of the wallet provider state
type Session struct {
	Address   string `json:"address"`
	ChainID   string `json:"chain_id"`
	Connected bool   `json:"connected"`
}

// Snapshot captures the provider's current session
func Snapshot(p Provider) Session {
	s := Session{
		Address:   p.ConnectedAddress(),
		Connected: p.IsConnected(),
	}
	if id := p.ChainID(); id != nil {
		s.ChainID = id.String()
	}
	return s
}

// cloneChainID guards the caller's big.Int from later mutation
func cloneChainID(id *big.Int) *big.Int {
	if id == nil {
		return nil
	}
	return new(big.Int).Set(id)
}
