package evmrpc

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/dwarvesf/escrow-history/internal/types/chains"
	"github.com/dwarvesf/escrow-history/internal/utils/config"
	"github.com/dwarvesf/escrow-history/internal/utils/logger"
)

var ErrChainNotConfigured = errors.New("chain not configured")

// Binding is everything needed to query the stablecoin of one chain.
type Binding struct {
	Chain  chains.Info
	Token  common.Address
	Ledger ILedger
}

type Registry struct {
	mu       sync.RWMutex
	bindings map[chains.ID]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[chains.ID]Binding)}
}

// Dial connects to every chain that has an RPC endpoint configured.
func Dial(appConfig *config.AppConfig, logger *logger.Logger) (*Registry, error) {
	r := NewRegistry()
	for id, chainConfig := range appConfig.Chains {
		ledger, err := New(id, chainConfig, logger)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s", id)
		}
		if err := r.Register(id, ledger, chainConfig.TokenAddress); err != nil {
			return nil, err
		}
		logger.Info("[Dial] chain connected", map[string]string{
			"chain": id.String(),
		})
	}
	return r, nil
}

// Register binds a ledger to a chain. An empty token falls back to the
// chain's default stablecoin contract.
func (r *Registry) Register(id chains.ID, ledger ILedger, token string) error {
	info, err := chains.Lookup(id)
	if err != nil {
		return err
	}
	if token == "" {
		token = info.TokenAddress
	}
	if !common.IsHexAddress(token) {
		return errors.Errorf("invalid token address %q for %s", token, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[id] = Binding{
		Chain:  info,
		Token:  common.HexToAddress(token),
		Ledger: ledger,
	}
	return nil
}

// Wrap replaces every registered ledger with wrap(ledger).
func (r *Registry) Wrap(wrap func(id chains.ID, ledger ILedger) ILedger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range r.bindings {
		b.Ledger = wrap(id, b.Ledger)
		r.bindings[id] = b
	}
}

func (r *Registry) Resolve(id chains.ID) (Binding, error) {
	if _, err := chains.Lookup(id); err != nil {
		return Binding{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bindings[id]
	if !ok {
		return Binding{}, errors.Wrapf(ErrChainNotConfigured, "chain %q", id)
	}
	return b, nil
}

// Chains lists the configured chains.
func (r *Registry) Chains() []chains.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]chains.ID, 0, len(r.bindings))
	for _, info := range chains.All() {
		if _, ok := r.bindings[info.ID]; ok {
			out = append(out, info.ID)
		}
	}
	return out
}
