package settle

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/ledger"
)

// ActionKind tags what a packaged callback should execute.
type ActionKind uint8

const (
	ActionSwap ActionKind = iota + 1
	ActionAdjustLiquidity
)

func (k ActionKind) String() string {
	switch k {
	case ActionSwap:
		return "swap"
	case ActionAdjustLiquidity:
		return "adjust_liquidity"
	default:
		return "unknown"
	}
}

// PendingCallback is the transient payload the dispatcher packages, hands to
// the ledger engine's unlock, and decodes exactly once when the engine calls
// back. It exists only for the duration of one unit of work and is never
// persisted. GaslessFee marks units that must burn a value-proportional fee
// from the caller after the swap resolves.
type PendingCallback struct {
	Caller     common.Address
	Action     ActionKind
	Pair       ledger.AssetPair
	Swap       ledger.SwapParams
	Liquidity  ledger.LiquidityParams
	AuxData    []byte
	GaslessFee bool
}

// swapOutcome is the encoded result handed back through the ledger engine for
// swap units.
type swapOutcome struct {
	Delta     ledger.BalanceDelta
	USDVolume uint64
	Minted    uint64
	FeeBurned uint64
}

// liquidityOutcome is the encoded result for liquidity units.
type liquidityOutcome struct {
	Delta ledger.BalanceDelta
	Fees  ledger.BalanceDelta
}

func encodePayload(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("encode callback payload: %w", err)
	}
	return buf.Bytes(), nil
}

func decodePayload(b []byte, v any) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
		return fmt.Errorf("decode callback payload: %w", err)
	}
	return nil
}
