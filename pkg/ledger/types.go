// Package ledger implements the pool manager the settlement layer sits on top
// of: a singleton registry of two-asset markets with flash-accounting style
// unlock/callback execution. Swaps and liquidity changes are only legal inside
// an unlock, and an unlock commits or rolls back as one unit.
package ledger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PriceScale is the fixed-point scale for pool prices (asset1 per asset0).
const PriceScale int64 = 1_000_000

// PairID uniquely identifies a market: keccak over the full pair tuple.
type PairID [32]byte

func (id PairID) Hex() string { return common.Hash(id).Hex() }

// AssetPair identifies a market: two asset addresses, a fee tier, a tick
// spacing, and an optional hook address (zero means no hook).
type AssetPair struct {
	Asset0      common.Address `json:"asset0"`
	Asset1      common.Address `json:"asset1"`
	FeeBps      uint32         `json:"feeBps"`
	TickSpacing int32          `json:"tickSpacing"`
	Hook        common.Address `json:"hook"`
}

// ID derives the market identifier from the pair tuple.
func (p AssetPair) ID() PairID {
	buf := make([]byte, 0, 20+20+4+4+20)
	buf = append(buf, p.Asset0.Bytes()...)
	buf = append(buf, p.Asset1.Bytes()...)
	var u [4]byte
	binary.BigEndian.PutUint32(u[:], p.FeeBps)
	buf = append(buf, u[:]...)
	binary.BigEndian.PutUint32(u[:], uint32(p.TickSpacing))
	buf = append(buf, u[:]...)
	buf = append(buf, p.Hook.Bytes()...)

	var id PairID
	copy(id[:], crypto.Keccak256(buf))
	return id
}

// HasHook reports whether the pair references a hook contract.
func (p AssetPair) HasHook() bool { return p.Hook != (common.Address{}) }

// BalanceDelta is the signed net change per asset from one operation, seen
// from the caller's perspective: positive means the caller receives, negative
// means the caller owes the pool.
type BalanceDelta struct {
	Amount0 int64 `json:"amount0"`
	Amount1 int64 `json:"amount1"`
}

func (d BalanceDelta) Add(o BalanceDelta) BalanceDelta {
	return BalanceDelta{Amount0: d.Amount0 + o.Amount0, Amount1: d.Amount1 + o.Amount1}
}

func (d BalanceDelta) IsZero() bool { return d.Amount0 == 0 && d.Amount1 == 0 }

// SwapParams describes an exact-input swap.
type SwapParams struct {
	ZeroForOne   bool  `json:"zeroForOne"`
	AmountIn     int64 `json:"amountIn"`
	MinAmountOut int64 `json:"minAmountOut"`
}

// LiquidityParams describes a liquidity change. Positive LiquidityDelta adds
// liquidity, negative removes.
type LiquidityParams struct {
	TickLower      int32 `json:"tickLower"`
	TickUpper      int32 `json:"tickUpper"`
	LiquidityDelta int64 `json:"liquidityDelta"`
}
