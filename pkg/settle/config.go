package settle

import (
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/ledger"
)

// Params holds the owner-mutable incentive configuration and the reference
// asset registry. Settlement operations always read the value current at
// their own execution; nothing is cached across calls. Divisor ranges are not
// validated here: consumers fail explicitly on a zero divisor.
type Params struct {
	mu sync.RWMutex

	owner             common.Address
	rewardDivisor     uint64
	gaslessFeeDivisor uint64
	fixedBonus        uint64
	incentivesEnabled bool
	paused            bool
	incentiveToken    common.Address
	referenceAssets   map[common.Address]bool

	events *Recorder
}

// NewParams creates the configuration with everything off: incentives
// disabled, no token, zero divisors, nothing flagged as reference.
func NewParams(owner common.Address, events *Recorder) *Params {
	return &Params{
		owner:           owner,
		referenceAssets: make(map[common.Address]bool),
		events:          events,
	}
}

func (p *Params) requireOwner(caller common.Address) error {
	if caller != p.owner {
		return ErrUnauthorized
	}
	return nil
}

// Owner returns the owner identity.
func (p *Params) Owner() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.owner
}

// SetReferenceAsset flags or unflags an asset as a reference (stable) asset.
func (p *Params) SetReferenceAsset(caller, asset common.Address, flag bool) error {
	p.mu.Lock()
	if err := p.requireOwner(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	if flag {
		p.referenceAssets[asset] = true
	} else {
		delete(p.referenceAssets, asset)
	}
	p.mu.Unlock()

	p.events.Emit(Event{Type: EventReferenceAsset, Attributes: map[string]string{
		"asset": asset.Hex(),
		"flag":  strconv.FormatBool(flag),
	}})
	return nil
}

// SetPaused halts or resumes all settlement entry points. Admin setters stay
// usable while paused.
func (p *Params) SetPaused(caller common.Address, flag bool) error {
	p.mu.Lock()
	if err := p.requireOwner(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	p.paused = flag
	p.mu.Unlock()

	p.events.Emit(Event{Type: EventPausedChanged, Attributes: map[string]string{
		"paused": strconv.FormatBool(flag),
	}})
	return nil
}

// SetIncentiveToken binds the incentive token identity. A zero address is
// rejected; use SetIncentivesEnabled(false) to stop accrual instead.
func (p *Params) SetIncentiveToken(caller, token common.Address) error {
	p.mu.Lock()
	if err := p.requireOwner(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	if token == (common.Address{}) {
		p.mu.Unlock()
		return ErrZeroAddress
	}
	p.incentiveToken = token
	p.mu.Unlock()

	p.events.Emit(Event{Type: EventIncentiveToken, Attributes: map[string]string{
		"token": token.Hex(),
	}})
	return nil
}

// SetIncentivesEnabled toggles reward accrual on swaps.
func (p *Params) SetIncentivesEnabled(caller common.Address, flag bool) error {
	p.mu.Lock()
	if err := p.requireOwner(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	p.incentivesEnabled = flag
	p.mu.Unlock()

	p.events.Emit(Event{Type: EventIncentivesChanged, Attributes: map[string]string{
		"enabled": strconv.FormatBool(flag),
	}})
	return nil
}

// SetRates updates the reward divisor, gasless fee divisor, and fixed bonus.
// Changing the gasless fee divisor invalidates every outstanding gasless
// authorization, since signatures bind the divisor value at signing time.
func (p *Params) SetRates(caller common.Address, rewardDivisor, gaslessFeeDivisor, fixedBonus uint64) error {
	p.mu.Lock()
	if err := p.requireOwner(caller); err != nil {
		p.mu.Unlock()
		return err
	}
	p.rewardDivisor = rewardDivisor
	p.gaslessFeeDivisor = gaslessFeeDivisor
	p.fixedBonus = fixedBonus
	p.mu.Unlock()

	p.events.Emit(Event{Type: EventRatesUpdated, Attributes: map[string]string{
		"rewardDivisor":     strconv.FormatUint(rewardDivisor, 10),
		"gaslessFeeDivisor": strconv.FormatUint(gaslessFeeDivisor, 10),
		"fixedBonus":        strconv.FormatUint(fixedBonus, 10),
	}})
	return nil
}

// Paused reports whether settlement entry points are halted.
func (p *Params) Paused() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.paused
}

// IncentivesEnabled reports whether swap rewards accrue.
func (p *Params) IncentivesEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.incentivesEnabled
}

// IncentiveToken returns the bound token identity (zero if unset).
func (p *Params) IncentiveToken() common.Address {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.incentiveToken
}

// Rates returns (rewardDivisor, gaslessFeeDivisor, fixedBonus).
func (p *Params) Rates() (uint64, uint64, uint64) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rewardDivisor, p.gaslessFeeDivisor, p.fixedBonus
}

// IsReferenceAsset reports whether the asset is flagged as reference.
func (p *Params) IsReferenceAsset(asset common.Address) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.referenceAssets[asset]
}

// ReferenceFlags returns the reference flags for both legs of a pair.
func (p *Params) ReferenceFlags(pair ledger.AssetPair) (bool, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.referenceAssets[pair.Asset0], p.referenceAssets[pair.Asset1]
}
