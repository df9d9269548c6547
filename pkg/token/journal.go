package token

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Journal stages mint and burn operations inside one unit of work. Nothing
// touches the ledger until Commit; Discard throws the staged operations away.
// Burns are validated against the effective balance (persisted balance plus
// staged deltas) so a mint staged earlier in the same unit counts.
type Journal struct {
	t           *Token
	deltas      map[common.Address]int64
	supplyDelta int64
	done        bool
}

// Begin opens a journal. Only the minter may stage privileged operations, so
// the caller is checked here once rather than per operation.
func (t *Token) Begin(caller common.Address) (*Journal, error) {
	t.mu.RLock()
	minter := t.minter
	t.mu.RUnlock()

	if caller != minter || minter == (common.Address{}) {
		return nil, ErrNotMinter
	}
	return &Journal{
		t:      t,
		deltas: make(map[common.Address]int64),
	}, nil
}

// Mint stages a mint of amount to to.
func (j *Journal) Mint(to common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	j.deltas[to] += int64(amount)
	j.supplyDelta += int64(amount)
	return nil
}

// BurnFrom stages a burn of amount from from, checked against the effective
// balance at this point in the unit of work.
func (j *Journal) BurnFrom(from common.Address, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	effective := int64(j.t.BalanceOf(from)) + j.deltas[from]
	if effective < int64(amount) {
		return fmt.Errorf("%w: effective %d, need %d", ErrInsufficientBalance, effective, amount)
	}
	j.deltas[from] -= int64(amount)
	j.supplyDelta -= int64(amount)
	return nil
}

// Empty reports whether the journal has no staged operations.
func (j *Journal) Empty() bool { return len(j.deltas) == 0 }

// Commit applies every staged operation to the ledger in one pebble batch.
// Resulting balances are resolved and persisted before the cache is touched:
// a commit that fails for any reason leaves the token exactly as it was.
func (j *Journal) Commit() error {
	if j.done {
		return nil
	}
	j.done = true

	j.t.mu.Lock()
	defer j.t.mu.Unlock()

	j.t.loadSupplyLocked()
	next := make(map[common.Address]uint64, len(j.deltas))
	for addr, delta := range j.deltas {
		if delta == 0 {
			continue
		}
		bal := int64(j.t.balanceLocked(addr)) + delta
		if bal < 0 {
			return fmt.Errorf("%w: journal would drive %s negative", ErrInsufficientBalance, addr.Hex())
		}
		next[addr] = uint64(bal)
	}
	if len(next) == 0 {
		return nil
	}
	nextSupply := uint64(int64(j.t.supply) + j.supplyDelta)
	if err := j.t.persistValuesLocked(next, nextSupply); err != nil {
		return err
	}
	for addr, bal := range next {
		j.t.balances[addr] = bal
	}
	j.t.supply = nextSupply
	return nil
}

// Discard drops the staged operations.
func (j *Journal) Discard() {
	j.done = true
	j.deltas = nil
	j.supplyDelta = 0
}
