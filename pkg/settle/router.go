package settle

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/swapcover/swapcover/pkg/crypto"
	"github.com/swapcover/swapcover/pkg/ledger"
	"github.com/swapcover/swapcover/pkg/token"
	"github.com/swapcover/swapcover/pkg/util"
)

type callState uint8

const (
	callAwaiting callState = iota + 1
	callExecuting
	callCompleted
	callAborted
)

// inflightCall tracks the single unit of work between handing a payload to
// the ledger engine and the engine calling back. Staged events and the token
// journal are only released when the whole unit commits.
type inflightCall struct {
	state   callState
	journal *token.Journal
	staged  []Event
}

// Router is the settlement layer's single entry point. Every mutating
// operation funnels through it, is serialized by the entry lock, and executes
// inside one unlock of the ledger engine so that pool mutations, token
// mints and burns, and emitted events commit or roll back together.
type Router struct {
	log      *zap.SugaredLogger
	clock    util.Clock
	params   *Params
	ledger   *ledger.Manager
	ledgerID common.Address
	token    *token.Token
	events   *Recorder
	accrual  *Accrual

	auth       *crypto.Authorizer
	validators map[crypto.SignerKind]crypto.Validator
	delegates  *crypto.DelegateRegistry

	// self is the router's own identity: the token minter and the EIP-712
	// verifying contract.
	self common.Address

	entry sync.Mutex
	call  *inflightCall

	nativeMu       sync.Mutex
	nativeBalances map[common.Address]uint64
	nativeTransfer func(to common.Address, amount uint64) error
}

// RouterConfig carries everything a Router needs at construction.
type RouterConfig struct {
	Log       *zap.SugaredLogger
	Clock     util.Clock
	Params    *Params
	Ledger    *ledger.Manager
	Token     *token.Token
	Events    *Recorder
	Self      common.Address
	ChainID   int64
	Delegates *crypto.DelegateRegistry
}

// NewRouter wires a router and registers it as the ledger engine's unlock
// callback. The engine identity is captured once here and never re-read: a
// callback claiming any other sender is rejected.
func NewRouter(cfg RouterConfig) *Router {
	clock := cfg.Clock
	if clock == nil {
		clock = util.RealClock{}
	}
	delegates := cfg.Delegates
	if delegates == nil {
		delegates = crypto.NewDelegateRegistry()
	}
	r := &Router{
		log:      cfg.Log,
		clock:    clock,
		params:   cfg.Params,
		ledger:   cfg.Ledger,
		ledgerID: cfg.Ledger.Identity(),
		token:    cfg.Token,
		events:   cfg.Events,
		accrual:  NewAccrual(cfg.Params),
		auth:     crypto.NewAuthorizer(crypto.SettlementDomain(cfg.ChainID, cfg.Self)),
		validators: map[crypto.SignerKind]crypto.Validator{
			crypto.SignerDirect:   crypto.DirectValidator{},
			crypto.SignerDelegate: crypto.DelegateValidator{Registry: delegates},
		},
		delegates:      delegates,
		self:           cfg.Self,
		nativeBalances: make(map[common.Address]uint64),
	}
	if r.token != nil {
		r.token.SetMinter(r.self)
	}
	cfg.Ledger.SetCallback(r)
	return r
}

// Self returns the router identity used as token minter and EIP-712
// verifying contract.
func (r *Router) Self() common.Address { return r.self }

// Params exposes the parameter store for queries and owner actions.
func (r *Router) Params() *Params { return r.params }

// Pools exposes read-only pool state.
func (r *Router) Pools() *ledger.Manager { return r.ledger }

// IsIncentiveTokenConfigured reports whether an incentive token is set.
func (r *Router) IsIncentiveTokenConfigured() bool {
	return r.params.IncentiveToken() != (common.Address{})
}

// OpenMarket initializes a pool for the pair at the given starting price.
// Pairs with hooks are rejected: the settlement layer never forwards hook
// addresses it cannot vet.
func (r *Router) OpenMarket(caller common.Address, pair ledger.AssetPair, initialPrice int64) (int32, error) {
	if !r.entry.TryLock() {
		return 0, ErrReentrantCall
	}
	defer r.entry.Unlock()

	if r.params.Paused() {
		return 0, ErrOperationPaused
	}
	if pair.HasHook() {
		return 0, fmt.Errorf("%w: %s", ErrHookNotAllowed, pair.Hook.Hex())
	}
	tick, err := r.ledger.Initialize(pair, initialPrice)
	if err != nil {
		return 0, err
	}
	r.events.Emit(Event{
		Type: EventMarketOpened,
		Attributes: map[string]string{
			"pair":   pair.ID().Hex(),
			"caller": caller.Hex(),
			"price":  fmt.Sprintf("%d", initialPrice),
			"tick":   fmt.Sprintf("%d", tick),
		},
	})
	return tick, nil
}

// SwapResult reports the outcome of one settled swap.
type SwapResult struct {
	Delta     ledger.BalanceDelta
	USDVolume uint64
	Minted    uint64
	FeeBurned uint64
}

// Swap executes a direct exact-input swap for caller inside one unit of
// work. Incentives, when enabled and the pair touches a reference asset,
// mint with the swap atomically.
func (r *Router) Swap(caller common.Address, pair ledger.AssetPair, params ledger.SwapParams, auxData []byte) (SwapResult, error) {
	if !r.entry.TryLock() {
		return SwapResult{}, ErrReentrantCall
	}
	defer r.entry.Unlock()

	if r.params.Paused() {
		return SwapResult{}, ErrOperationPaused
	}
	return r.swapLocked(caller, pair, params, auxData, false)
}

// swapLocked runs a swap unit. Caller holds the entry lock and has already
// cleared the pause and authorization checks.
func (r *Router) swapLocked(caller common.Address, pair ledger.AssetPair, params ledger.SwapParams, auxData []byte, gaslessFee bool) (SwapResult, error) {
	pc := &PendingCallback{
		Caller:     caller,
		Action:     ActionSwap,
		Pair:       pair,
		Swap:       params,
		AuxData:    auxData,
		GaslessFee: gaslessFee,
	}
	raw, err := r.runUnit(pc)
	if err != nil {
		return SwapResult{}, err
	}
	var out swapOutcome
	if err := decodePayload(raw, &out); err != nil {
		return SwapResult{}, err
	}
	return SwapResult{
		Delta:     out.Delta,
		USDVolume: out.USDVolume,
		Minted:    out.Minted,
		FeeBurned: out.FeeBurned,
	}, nil
}

// LiquidityResult reports the outcome of one liquidity adjustment.
type LiquidityResult struct {
	Delta ledger.BalanceDelta
	Fees  ledger.BalanceDelta
}

// AdjustLiquidity changes caller's position in the pair's pool. Liquidity
// operations never accrue incentives regardless of the assets involved.
func (r *Router) AdjustLiquidity(caller common.Address, pair ledger.AssetPair, params ledger.LiquidityParams) (LiquidityResult, error) {
	if !r.entry.TryLock() {
		return LiquidityResult{}, ErrReentrantCall
	}
	defer r.entry.Unlock()

	if r.params.Paused() {
		return LiquidityResult{}, ErrOperationPaused
	}
	pc := &PendingCallback{
		Caller:    caller,
		Action:    ActionAdjustLiquidity,
		Pair:      pair,
		Liquidity: params,
	}
	raw, err := r.runUnit(pc)
	if err != nil {
		return LiquidityResult{}, err
	}
	var out liquidityOutcome
	if err := decodePayload(raw, &out); err != nil {
		return LiquidityResult{}, err
	}
	return LiquidityResult{Delta: out.Delta, Fees: out.Fees}, nil
}

// runUnit drives one atomic unit of work through the ledger engine. The
// token journal commits inside the callback, under the engine's snapshot;
// here only staged events flush once the engine keeps the unit. Any error
// rolls everything back.
func (r *Router) runUnit(pc *PendingCallback) ([]byte, error) {
	payload, err := encodePayload(pc)
	if err != nil {
		return nil, err
	}
	r.call = &inflightCall{state: callAwaiting}
	defer func() { r.call = nil }()

	result, err := r.ledger.Unlock(payload)
	if err != nil {
		r.call.state = callAborted
		if r.call.journal != nil {
			r.call.journal.Discard()
		}
		return nil, err
	}
	r.call.state = callCompleted
	for _, evt := range r.call.staged {
		r.events.Emit(evt)
	}
	return result, nil
}

// journal returns the unit's token journal, opening it on first use.
func (r *Router) journal() (*token.Journal, error) {
	if r.call.journal != nil {
		return r.call.journal, nil
	}
	if r.token == nil {
		return nil, ErrTokenNotConfigured
	}
	j, err := r.token.Begin(r.self)
	if err != nil {
		return nil, err
	}
	r.call.journal = j
	return j, nil
}

// stage queues an event for emission when the unit commits.
func (r *Router) stage(evt Event) {
	r.call.staged = append(r.call.staged, evt)
}
