// Package contract binds the StorageCost contract: the three write
// strategies, the two getters and decoding of the emitted event.
package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
)

// storageABI is the parsed form of ABI.
var storageABI = mustParse(ABI)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parsing storage cost abi: %s", err))
	}
	return parsed
}

// ParsedABI returns the parsed contract interface.
func ParsedABI() abi.ABI {
	return storageABI
}

// Backend is the chain connection required by the binding. An
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Config represents the settings for binding the contract.
type Config struct {
	Address common.Address
	Backend Backend
	Key     *ecdsa.PrivateKey
	ChainID *big.Int
}

// StorageCost is a bound instance of the contract signing with one key.
type StorageCost struct {
	address common.Address
	from    common.Address
	backend Backend
	bound   *bind.BoundContract
	auth    *bind.TransactOpts
}

// New binds the contract at the configured address.
func New(cfg Config) (*StorageCost, error) {
	if cfg.Backend == nil {
		return nil, errors.New("backend is required")
	}
	if cfg.Key == nil {
		return nil, errors.New("signing key is required")
	}
	if cfg.ChainID == nil {
		return nil, errors.New("chain id is required")
	}

	auth, err := bind.NewKeyedTransactorWithChainID(cfg.Key, cfg.ChainID)
	if err != nil {
		return nil, fmt.Errorf("constructing transactor: %w", err)
	}

	sc := StorageCost{
		address: cfg.Address,
		from:    crypto.PubkeyToAddress(cfg.Key.PublicKey),
		backend: cfg.Backend,
		bound:   bind.NewBoundContract(cfg.Address, storageABI, cfg.Backend, cfg.Backend, cfg.Backend),
		auth:    auth,
	}

	return &sc, nil
}

// Address returns the address of the contract.
func (sc *StorageCost) Address() common.Address {
	return sc.address
}

// From returns the address transactions are signed with.
func (sc *StorageCost) From() common.Address {
	return sc.from
}

// EmitDataAsEvent submits a transaction publishing data as an event log.
func (sc *StorageCost) EmitDataAsEvent(ctx context.Context, data string) (*types.Transaction, error) {
	return sc.transact(ctx, MethodEmitDataAsEvent, data)
}

// StoreDataInSelf submits a transaction storing data in the contract.
func (sc *StorageCost) StoreDataInSelf(ctx context.Context, data string) (*types.Transaction, error) {
	return sc.transact(ctx, MethodStoreDataInSelf, data)
}

// StoreDataInChildContract submits a transaction deploying a child contract
// holding data.
func (sc *StorageCost) StoreDataInChildContract(ctx context.Context, data string) (*types.Transaction, error) {
	return sc.transact(ctx, MethodStoreDataInChildContract, data)
}

// ReadRecentDataFromSelf returns the last value stored in the contract.
func (sc *StorageCost) ReadRecentDataFromSelf(ctx context.Context) (string, error) {
	return sc.callString(ctx, MethodReadRecentDataFromSelf)
}

// ReadRecentChildData returns the value held by the last child contract.
func (sc *StorageCost) ReadRecentChildData(ctx context.Context) (string, error) {
	return sc.callString(ctx, MethodReadRecentChildData)
}

// WaitMined blocks until the transaction is mined or the context is done.
func (sc *StorageCost) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	return bind.WaitMined(ctx, sc.backend, tx)
}

// RevertReason replays a reverted transaction at its block to recover the
// revert string. An empty string means the node did not expose one.
func (sc *StorageCost) RevertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) string {
	msg := ethereum.CallMsg{
		From:  sc.from,
		To:    tx.To(),
		Gas:   tx.Gas(),
		Value: tx.Value(),
		Data:  tx.Data(),
	}

	if _, err := sc.backend.CallContract(ctx, msg, receipt.BlockNumber); err != nil {
		return ReasonFromError(err)
	}

	return ""
}

// =============================================================================

func (sc *StorageCost) transact(ctx context.Context, method string, data string) (*types.Transaction, error) {
	opts := *sc.auth
	opts.Context = ctx

	tx, err := sc.bound.Transact(&opts, method, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return tx, nil
}

func (sc *StorageCost) callString(ctx context.Context, method string) (string, error) {
	opts := bind.CallOpts{
		Context: ctx,
		From:    sc.from,
	}

	var out []any
	if err := sc.bound.Call(&opts, &out, method); err != nil {
		return "", fmt.Errorf("%s: %w", method, err)
	}

	if len(out) != 1 {
		return "", fmt.Errorf("%s: expected 1 value, got %d", method, len(out))
	}

	s, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: expected string, got %T", method, out[0])
	}

	return s, nil
}

// ReasonFromError extracts the revert string carried by a node error. The
// error text is returned when no revert data can be unpacked.
func ReasonFromError(err error) string {
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, err := hexutil.Decode(s); err == nil {
				if reason, err := abi.UnpackRevert(data); err == nil {
					return reason
				}
			}
		}
	}

	return err.Error()
}
