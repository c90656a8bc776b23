package wallet

import (
	"context"
	"math/big"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

type disconnected struct {
	chainID *big.Int
}

// Disconnected returns a provider with no account; every Signer call fails with domain.ErrSignerRequired
func Disconnected(chainID *big.Int) Provider {
	return &disconnected{chainID: cloneChainID(chainID)}
}

func (d *disconnected) ConnectedAddress() string {
	return ""
}

func (d *disconnected) ChainID() *big.Int {
	return cloneChainID(d.chainID)
}

func (d *disconnected) IsConnected() bool {
	return false
}

func (d *disconnected) Signer(_ context.Context) (Signer, error) {
	return nil, domain.ErrSignerRequired
}
