package settle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/ledger"
)

// UnlockCallback is the ledger engine's re-entry point. It authenticates the
// sender against the engine identity captured at construction, decodes the
// payload exactly once, and executes the packaged action. Any error returned
// from here makes the engine roll back every pool mutation of the unit.
func (r *Router) UnlockCallback(sender common.Address, payload []byte) ([]byte, error) {
	if sender != r.ledgerID {
		return nil, fmt.Errorf("%w: sender %s", ErrUnauthorizedCallback, sender.Hex())
	}
	if r.call == nil || r.call.state != callAwaiting {
		return nil, ErrUnexpectedCallback
	}
	r.call.state = callExecuting

	var pc PendingCallback
	if err := decodePayload(payload, &pc); err != nil {
		return nil, err
	}

	var result []byte
	var err error
	switch pc.Action {
	case ActionSwap:
		result, err = r.executeSwap(&pc)
	case ActionAdjustLiquidity:
		result, err = r.executeAdjustLiquidity(&pc)
	default:
		err = fmt.Errorf("%w: %d", ErrInvalidAction, pc.Action)
	}
	if err != nil {
		return nil, err
	}

	// The token journal commits here, while the engine still holds its
	// snapshot: a failed commit errors the callback and the pool mutations
	// unwind with it. Pool, token, and events settle as one unit.
	if r.call.journal != nil {
		if err := r.call.journal.Commit(); err != nil {
			return nil, fmt.Errorf("token journal commit: %w", err)
		}
	}
	return result, nil
}

// executeSwap runs the pool swap, accrues the incentive mint when the pair
// touches a reference asset, and for gasless units burns the fee from the
// caller. Fee burn failures abort the whole unit so the swap itself is
// unwound too.
func (r *Router) executeSwap(pc *PendingCallback) ([]byte, error) {
	delta, err := r.ledger.Swap(pc.Pair, pc.Swap)
	if err != nil {
		return nil, err
	}

	ref0, ref1 := r.params.ReferenceFlags(pc.Pair)
	volume := EstimateUSDVolume(ref0, ref1, delta)

	var minted uint64
	if r.params.IncentivesEnabled() && volume > 0 && r.IsIncentiveTokenConfigured() {
		minted, err = r.accrual.RewardFor(volume)
		if err != nil {
			return nil, err
		}
		if minted > 0 {
			j, err := r.journal()
			if err != nil {
				return nil, err
			}
			if err := j.Mint(pc.Caller, minted); err != nil {
				return nil, err
			}
			r.stage(Event{
				Type: EventIncentiveMinted,
				Attributes: map[string]string{
					"recipient": pc.Caller.Hex(),
					"amount":    fmt.Sprintf("%d", minted),
					"volume":    fmt.Sprintf("%d", volume),
				},
			})
		}
	}

	var feeBurned uint64
	if pc.GaslessFee {
		if volume == 0 {
			return nil, ErrNoReferenceAssetInvolved
		}
		feeBurned, err = r.accrual.FeeFor(volume)
		if err != nil {
			return nil, err
		}
		if feeBurned > 0 {
			if !r.IsIncentiveTokenConfigured() {
				return nil, ErrTokenNotConfigured
			}
			j, err := r.journal()
			if err != nil {
				return nil, err
			}
			if err := j.BurnFrom(pc.Caller, feeBurned); err != nil {
				return nil, err
			}
			r.stage(Event{
				Type: EventFeeBurned,
				Attributes: map[string]string{
					"payer":  pc.Caller.Hex(),
					"amount": fmt.Sprintf("%d", feeBurned),
					"volume": fmt.Sprintf("%d", volume),
				},
			})
		}
	}

	r.stage(Event{
		Type: EventSwapExecuted,
		Attributes: map[string]string{
			"pair":    pc.Pair.ID().Hex(),
			"caller":  pc.Caller.Hex(),
			"amount0": fmt.Sprintf("%d", delta.Amount0),
			"amount1": fmt.Sprintf("%d", delta.Amount1),
			"volume":  fmt.Sprintf("%d", volume),
			"gasless": fmt.Sprintf("%t", pc.GaslessFee),
		},
	})

	return encodePayload(swapOutcome{
		Delta:     delta,
		USDVolume: volume,
		Minted:    minted,
		FeeBurned: feeBurned,
	})
}

// executeAdjustLiquidity applies the position change and settles fees. No
// incentive accrues here even when both assets are reference assets.
func (r *Router) executeAdjustLiquidity(pc *PendingCallback) ([]byte, error) {
	delta, fees, err := r.ledger.ModifyLiquidity(pc.Caller, pc.Pair, pc.Liquidity)
	if err != nil {
		return nil, err
	}
	r.stage(Event{
		Type: EventLiquidityModified,
		Attributes: map[string]string{
			"pair":    pc.Pair.ID().Hex(),
			"owner":   pc.Caller.Hex(),
			"delta":   fmt.Sprintf("%d", pc.Liquidity.LiquidityDelta),
			"amount0": fmt.Sprintf("%d", delta.Amount0),
			"amount1": fmt.Sprintf("%d", delta.Amount1),
		},
	})
	return encodePayload(liquidityOutcome{Delta: delta, Fees: fees})
}

var _ ledger.UnlockCallback = (*Router)(nil)
