// Package token implements the incentive token: a mintable/burnable fungible
// balance ledger with pebble persistence. Mint and burn are privileged and
// restricted to the configured minter (the settlement layer).
package token

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotMinter           = errors.New("caller is not the minter")
	ErrInsufficientBalance = errors.New("insufficient token balance")
	ErrZeroAmount          = errors.New("amount must be positive")
)

var supplyKey = []byte("supply")

func balanceKey(addr common.Address) []byte {
	return append([]byte("bal:"), addr.Bytes()...)
}

// Token is the incentive token ledger. Uses an in-memory cache over pebble,
// loading balances on first touch.
type Token struct {
	mu       sync.RWMutex
	db       *pebble.DB
	name     string
	symbol   string
	minter   common.Address
	balances map[common.Address]uint64
	supply   uint64
	loaded   bool
}

// Open opens (or creates) the token ledger at dbPath.
func Open(dbPath, name, symbol string) (*Token, error) {
	db, err := pebble.Open(dbPath, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open token db at %s: %w", dbPath, err)
	}
	return &Token{
		db:       db,
		name:     name,
		symbol:   symbol,
		balances: make(map[common.Address]uint64),
	}, nil
}

func (t *Token) Close() error { return t.db.Close() }

func (t *Token) Name() string   { return t.name }
func (t *Token) Symbol() string { return t.symbol }

// SetMinter binds the privileged minter identity. Wiring time only.
func (t *Token) SetMinter(minter common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.minter = minter
}

// BalanceOf returns addr's balance.
func (t *Token) BalanceOf(addr common.Address) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.balanceLocked(addr)
}

// TotalSupply returns the outstanding supply.
func (t *Token) TotalSupply() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loadSupplyLocked()
	return t.supply
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(from, to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balanceLocked(from) < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, t.balanceLocked(from), amount)
	}
	t.balances[from] -= amount
	t.balances[to] = t.balanceLocked(to) + amount
	return t.persistLocked(from, to)
}

// Mint creates amount new tokens for to. Only the minter may call.
func (t *Token) Mint(caller, to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	t.loadSupplyLocked()
	t.balances[to] = t.balanceLocked(to) + amount
	t.supply += amount
	return t.persistLocked(to)
}

// BurnFrom destroys amount of from's tokens. Only the minter may call.
func (t *Token) BurnFrom(caller, from common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if caller != t.minter || t.minter == (common.Address{}) {
		return ErrNotMinter
	}
	if t.balanceLocked(from) < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, t.balanceLocked(from), amount)
	}
	t.loadSupplyLocked()
	t.balances[from] -= amount
	t.supply -= amount
	return t.persistLocked(from)
}

func (t *Token) balanceLocked(addr common.Address) uint64 {
	if bal, ok := t.balances[addr]; ok {
		return bal
	}
	bal := t.readU64(balanceKey(addr))
	t.balances[addr] = bal
	return bal
}

func (t *Token) loadSupplyLocked() {
	if t.loaded {
		return
	}
	t.supply = t.readU64(supplyKey)
	t.loaded = true
}

func (t *Token) readU64(key []byte) uint64 {
	val, closer, err := t.db.Get(key)
	if err != nil {
		return 0
	}
	defer closer.Close()
	if len(val) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(val)
}

// persistValuesLocked writes explicit balances plus a supply in one batch
// without reading the cache, so callers can persist first and mutate after.
func (t *Token) persistValuesLocked(balances map[common.Address]uint64, supply uint64) error {
	batch := t.db.NewBatch()
	defer batch.Close()

	var buf [8]byte
	for addr, bal := range balances {
		binary.BigEndian.PutUint64(buf[:], bal)
		if err := batch.Set(balanceKey(addr), append([]byte(nil), buf[:]...), nil); err != nil {
			return fmt.Errorf("stage balance write: %w", err)
		}
	}
	binary.BigEndian.PutUint64(buf[:], supply)
	if err := batch.Set(supplyKey, append([]byte(nil), buf[:]...), nil); err != nil {
		return fmt.Errorf("stage supply write: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit token batch: %w", err)
	}
	return nil
}

// persistLocked writes the given balances plus the supply in one batch.
func (t *Token) persistLocked(addrs ...common.Address) error {
	batch := t.db.NewBatch()
	defer batch.Close()

	var buf [8]byte
	for _, addr := range addrs {
		binary.BigEndian.PutUint64(buf[:], t.balances[addr])
		if err := batch.Set(balanceKey(addr), append([]byte(nil), buf[:]...), nil); err != nil {
			return fmt.Errorf("stage balance write: %w", err)
		}
	}
	binary.BigEndian.PutUint64(buf[:], t.supply)
	if err := batch.Set(supplyKey, append([]byte(nil), buf[:]...), nil); err != nil {
		return fmt.Errorf("stage supply write: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit token batch: %w", err)
	}
	return nil
}
