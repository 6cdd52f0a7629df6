package wallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"eventbook-client/models"
)

// ChainReader is the network read capability a wallet needs to bind its signer to a chain.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// connection holds the result of a successful RequestConnection
type connection struct {
	mu     sync.RWMutex
	opts   *bind.TransactOpts
	watch  common.Address
	active bool
}

func (c *connection) set(opts *bind.TransactOpts) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts = opts
	c.active = true
}

func (c *connection) CurrentIdentity() (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return common.Address{}, false
	}
	if c.opts == nil {
		return c.watch, true
	}
	return c.opts.From, true
}

func (c *connection) Signer() bind.SignerFn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.opts == nil {
		return nil
	}
	return c.opts.Signer
}

// KeyWallet signs with a raw secp256k1 private key
type KeyWallet struct {
	connection
	chain ChainReader
	key   *ecdsa.PrivateKey
}

// NewKeyWallet parses a hex private key, with or without 0x prefix
func NewKeyWallet(chain ChainReader, hexKey string) (*KeyWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &KeyWallet{chain: chain, key: key}, nil
}

func (w *KeyWallet) RequestConnection(ctx context.Context) error {
	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return models.NewError(models.KindConnectivity, "connect wallet", "failed to get chain id", err)
	}
	opts, err := bind.NewKeyedTransactorWithChainID(w.key, chainID)
	if err != nil {
		return models.NewError(models.KindAuthorization, "connect wallet", "failed to create signer", err)
	}
	w.set(opts)
	log.Printf("Wallet connected: %s on chain %s", opts.From.Hex(), chainID)
	return nil
}

// KeystoreWallet signs with an account from an encrypted go-ethereum keystore.
// The connection is denied when the account is missing or the passphrase is wrong.
type KeystoreWallet struct {
	connection
	chain      ChainReader
	ks         *keystore.KeyStore
	account    common.Address
	passphrase string
}

func NewKeystoreWallet(chain ChainReader, dir string, account common.Address, passphrase string) *KeystoreWallet {
	return &KeystoreWallet{
		chain:      chain,
		ks:         keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP),
		account:    account,
		passphrase: passphrase,
	}
}

func (w *KeystoreWallet) RequestConnection(ctx context.Context) error {
	const op = "connect wallet"
	acct, err := w.ks.Find(accounts.Account{Address: w.account})
	if err != nil {
		return models.NewError(models.KindAuthorization, op, "account not found in keystore", err)
	}
	if err := w.ks.Unlock(acct, w.passphrase); err != nil {
		return models.NewError(models.KindAuthorization, op, "connection denied", err)
	}

	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return models.NewError(models.KindConnectivity, op, "failed to get chain id", err)
	}
	opts, err := bind.NewKeyStoreTransactorWithChainID(w.ks, acct, chainID)
	if err != nil {
		return models.NewError(models.KindAuthorization, op, "failed to create signer", err)
	}
	w.set(opts)
	log.Printf("Wallet connected: %s on chain %s", acct.Address.Hex(), chainID)
	return nil
}

// WatchWallet connects an identity without any signing capability. Reads work,
// mutating intents fail with an authorization error.
type WatchWallet struct {
	connection
}

func NewWatchWallet(address common.Address) *WatchWallet {
	w := &WatchWallet{}
	w.watch = address
	return w
}

func (w *WatchWallet) RequestConnection(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return models.NewError(models.KindConnectivity, "connect wallet", "", err)
	}
	if w.watch == (common.Address{}) {
		return models.NewError(models.KindAuthorization, "connect wallet", "no address to watch", nil)
	}
	w.mu.Lock()
	w.active = true
	w.mu.Unlock()
	return nil
}
