package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// UnlockCallback is the re-entry hook the manager drives synchronously from
// inside Unlock. sender is the manager's own identity; implementations must
// authenticate on it before acting.
type UnlockCallback interface {
	UnlockCallback(sender common.Address, payload []byte) ([]byte, error)
}

// Manager owns all pools and serializes access to them. Swap and
// ModifyLiquidity are only callable while an unlock is in flight; if the
// unlock callback returns an error every pool mutation made inside it is
// rolled back.
type Manager struct {
	mu       sync.Mutex
	identity common.Address
	pools    map[PairID]*pool
	cb       UnlockCallback

	unlocking bool
}

// NewManager creates a pool manager with the given identity. The identity is
// what callbacks authenticate against; it never changes.
func NewManager(identity common.Address) *Manager {
	return &Manager{
		identity: identity,
		pools:    make(map[PairID]*pool),
	}
}

// Identity returns the manager's fixed identity.
func (m *Manager) Identity() common.Address { return m.identity }

// SetCallback registers the unlock re-entry hook.
func (m *Manager) SetCallback(cb UnlockCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cb = cb
}

// Initialize creates a pool for the pair at the given price and returns its
// starting tick. Fails if the pair is already initialized.
func (m *Manager) Initialize(pair AssetPair, initialPrice int64) (int32, error) {
	if initialPrice <= 0 {
		return 0, ErrInvalidPrice
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := pair.ID()
	if _, exists := m.pools[id]; exists {
		return 0, fmt.Errorf("%w: %s", ErrPoolExists, id.Hex())
	}
	p := newPool(pair, initialPrice)
	m.pools[id] = p
	return p.tick, nil
}

// Unlock opens one atomic unit of work: it snapshots pool state, invokes the
// registered callback exactly once with the opaque payload, and either keeps
// the mutations (callback returned nil) or restores the snapshot (callback
// errored). Nested unlocks are rejected.
func (m *Manager) Unlock(payload []byte) ([]byte, error) {
	m.mu.Lock()
	if m.cb == nil {
		m.mu.Unlock()
		return nil, ErrNoCallback
	}
	if m.unlocking {
		m.mu.Unlock()
		return nil, ErrAlreadyUnlocked
	}
	snapshot := make(map[PairID]*pool, len(m.pools))
	for id, p := range m.pools {
		snapshot[id] = p.clone()
	}
	m.unlocking = true
	cb := m.cb
	m.mu.Unlock()

	result, err := cb.UnlockCallback(m.identity, payload)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlocking = false
	if err != nil {
		m.pools = snapshot
		return nil, err
	}
	return result, nil
}

// Swap executes an exact-input swap. Only legal inside an unlock.
func (m *Manager) Swap(pair AssetPair, params SwapParams) (BalanceDelta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.unlocking {
		return BalanceDelta{}, ErrNotUnlocked
	}
	p, ok := m.pools[pair.ID()]
	if !ok {
		return BalanceDelta{}, fmt.Errorf("%w: %s", ErrPoolNotFound, pair.ID().Hex())
	}
	return p.swap(params)
}

// ModifyLiquidity changes owner's liquidity in the pair's pool and settles
// accrued fees. Only legal inside an unlock.
func (m *Manager) ModifyLiquidity(owner common.Address, pair AssetPair, params LiquidityParams) (BalanceDelta, BalanceDelta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.unlocking {
		return BalanceDelta{}, BalanceDelta{}, ErrNotUnlocked
	}
	p, ok := m.pools[pair.ID()]
	if !ok {
		return BalanceDelta{}, BalanceDelta{}, fmt.Errorf("%w: %s", ErrPoolNotFound, pair.ID().Hex())
	}
	return p.modifyLiquidity(owner, params)
}

// PoolState is a read-only snapshot of one pool, for queries.
type PoolState struct {
	Pair      AssetPair `json:"pair"`
	Tick      int32     `json:"tick"`
	Price     int64     `json:"price"`
	Reserve0  int64     `json:"reserve0"`
	Reserve1  int64     `json:"reserve1"`
	Liquidity int64     `json:"liquidity"`
}

// GetPool returns a snapshot of the pair's pool.
func (m *Manager) GetPool(pair AssetPair) (PoolState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.pools[pair.ID()]
	if !ok {
		return PoolState{}, fmt.Errorf("%w: %s", ErrPoolNotFound, pair.ID().Hex())
	}
	return PoolState{
		Pair:      p.pair,
		Tick:      p.tick,
		Price:     p.price,
		Reserve0:  p.reserve0,
		Reserve1:  p.reserve1,
		Liquidity: p.liquidity,
	}, nil
}

// ListPools returns snapshots of every initialized pool.
func (m *Manager) ListPools() []PoolState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]PoolState, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, PoolState{
			Pair:      p.pair,
			Tick:      p.tick,
			Price:     p.price,
			Reserve0:  p.reserve0,
			Reserve1:  p.reserve1,
			Liquidity: p.liquidity,
		})
	}
	return out
}
