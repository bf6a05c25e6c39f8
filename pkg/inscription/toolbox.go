package inscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/defs"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/infra"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/services"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/storage"
	toolboxWallet "github.com/bsv-blockchain/go-wallet-toolbox/pkg/wallet"
	"github.com/bsv-blockchain/go-wallet-toolbox/pkg/wdk"
)

// StorageName identifies this application's wallet storage.
const StorageName = "bitcoin-writer"

var (
	errChainRequired      = errors.New("chain is required")
	errPrivateKeyRequired = errors.New("private key is required")
)

// Network maps "test" to testnet and anything else to mainnet.
func Network(chain string) defs.BSVNetwork {
	if chain == "test" {
		return defs.NetworkTestnet
	}
	return defs.NetworkMainnet
}

// NewToolboxWallet builds a funded BRC-100 wallet for privateKeyHex backed by
// the go-wallet-toolbox default storage and services.
func NewToolboxWallet(ctx context.Context, chain, privateKeyHex string, logger *slog.Logger) (wallet.Interface, error) {
	if strings.TrimSpace(chain) == "" {
		return nil, errChainRequired
	}
	if strings.TrimSpace(privateKeyHex) == "" {
		return nil, errPrivateKeyRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	privKey, err := ec.PrivateKeyFromHex(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to create private key object: %w", err)
	}

	cfg := infra.Defaults()
	cfg.ServerPrivateKey = privateKeyHex
	activeServices := services.New(logger, cfg.Services)

	storageManager, err := storage.NewGORMProvider(
		cfg.BSVNetwork,
		activeServices,
		storage.WithDBConfig(cfg.DBConfig),
		storage.WithFeeModel(cfg.FeeModel),
		storage.WithCommission(cfg.Commission),
		storage.WithSynchronizeTxStatuses(cfg.SynchronizeTxStatuses),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}

	storageIdentityKey, err := wdk.IdentityKey(cfg.ServerPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage identity key: %w", err)
	}

	if _, err := storageManager.Migrate(ctx, StorageName, storageIdentityKey); err != nil {
		return nil, fmt.Errorf("failed to migrate storage: %w", err)
	}

	wlt, err := toolboxWallet.New(Network(chain), privKey, storageManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return wlt, nil
}
