package wallet

import (
	"math/big"

	"github.com/feral-file/ff-marketplace/internal/config"
)

// FromConfig builds the provider described by cfg.
// A raw private key takes precedence over a keystore; neither yields a disconnected provider.
func FromConfig(cfg config.WalletConfig, chainID *big.Int) (Provider, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewPrivateKeyProvider(cfg.PrivateKey, chainID)
	case cfg.KeystoreDir != "":
		return NewKeystoreProvider(cfg.KeystoreDir, cfg.KeystoreAddress, cfg.KeystorePassphrase, chainID)
	default:
		return Disconnected(chainID), nil
	}
}
