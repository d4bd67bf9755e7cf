package ens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/draup/assetexplorer/nft/pkg/metrics"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// NameSuffix marks input that should be resolved through the name registry.
const NameSuffix = ".eth"

// DefaultRegistry is the ENS registry deployment on Ethereum mainnet.
var DefaultRegistry = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")

var (
	ErrInvalidInput = errors.New("Please use a valid eth address or ens")
	ErrNameNotFound = errors.New("No ENS name found for this address")
)

var (
	resolverSelector = crypto.Keccak256([]byte("resolver(bytes32)"))[:4]
	addrSelector     = crypto.Keccak256([]byte("addr(bytes32)"))[:4]
)

type Kind string

const (
	KindAddress Kind = "address"
	KindName    Kind = "ens"
)

// Resolution is the outcome of resolving one input.
type Resolution struct {
	Input   string `json:"input"`
	Address string `json:"address"`
	Kind    Kind   `json:"kind"`
}

type Config struct {
	Logger   *slog.Logger
	Caller   ethereum.ContractCaller
	Registry common.Address
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Caller == nil {
		return errors.New("contract caller is required")
	}
	if cfg.Registry == (common.Address{}) {
		cfg.Registry = DefaultRegistry
	}
	return nil
}

type Resolver struct {
	log *slog.Logger
	cfg Config
}

func NewResolver(cfg Config) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Resolver{log: cfg.Logger, cfg: cfg}, nil
}

// Resolve accepts a literal address unchanged, resolves names ending in
// NameSuffix through the registry, and rejects everything else.
func (r *Resolver) Resolve(ctx context.Context, input string) (Resolution, error) {
	if IsAddress(input) {
		metrics.ResolveTotal.WithLabelValues(string(KindAddress), "ok").Inc()
		return Resolution{Input: input, Address: input, Kind: KindAddress}, nil
	}
	if !strings.HasSuffix(input, NameSuffix) {
		metrics.ResolveTotal.WithLabelValues("invalid", "invalid").Inc()
		return Resolution{Input: input}, ErrInvalidInput
	}

	addr, err := r.resolveName(ctx, input)
	if err != nil {
		metrics.ResolveTotal.WithLabelValues(string(KindName), "not_found").Inc()
		if !errors.Is(err, ErrNameNotFound) {
			r.log.Warn("ens: name resolution failed", "name", input, "error", err)
			err = fmt.Errorf("%w: %w", ErrNameNotFound, err)
		}
		return Resolution{Input: input, Kind: KindName}, err
	}
	metrics.ResolveTotal.WithLabelValues(string(KindName), "ok").Inc()
	r.log.Debug("ens: resolved name", "name", input, "address", addr.Hex())
	return Resolution{Input: input, Address: addr.Hex(), Kind: KindName}, nil
}

func (r *Resolver) resolveName(ctx context.Context, name string) (common.Address, error) {
	node := Namehash(name)

	resolver, err := r.callAddress(ctx, r.cfg.Registry, resolverSelector, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to look up resolver: %w", err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, ErrNameNotFound
	}

	addr, err := r.callAddress(ctx, resolver, addrSelector, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to look up address: %w", err)
	}
	if addr == (common.Address{}) {
		return common.Address{}, ErrNameNotFound
	}
	return addr, nil
}

// callAddress invokes a single-bytes32-argument view returning an address.
func (r *Resolver) callAddress(ctx context.Context, to common.Address, selector []byte, node common.Hash) (common.Address, error) {
	data := make([]byte, 0, len(selector)+common.HashLength)
	data = append(data, selector...)
	data = append(data, node.Bytes()...)

	out, err := r.cfg.Caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, nil
	}
	if len(out) < common.HashLength {
		return common.Address{}, fmt.Errorf("short call result: %d bytes", len(out))
	}
	return common.BytesToAddress(out[common.HashLength-common.AddressLength : common.HashLength]), nil
}

// Namehash computes the ENS node for a dotted name.
func Namehash(name string) common.Hash {
	var node common.Hash
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256([]byte(labels[i]))
		node = common.BytesToHash(crypto.Keccak256(node.Bytes(), labelHash))
	}
	return node
}

// IsAddress reports whether s is a 20-byte hex address. Mixed-case input must
// carry a valid EIP-55 checksum.
func IsAddress(s string) bool {
	if !common.IsHexAddress(s) {
		return false
	}
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex == strings.ToLower(hex) || hex == strings.ToUpper(hex) {
		return true
	}
	return common.HexToAddress(s).Hex()[2:] == hex
}
