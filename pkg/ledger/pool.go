package ledger

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// feeGrowthScale is the fixed-point scale for per-liquidity fee accounting.
const feeGrowthScale = 1_000_000_000_000

type positionKey struct {
	owner     common.Address
	tickLower int32
	tickUpper int32
}

// position tracks one provider's liquidity and its fee-growth snapshot.
type position struct {
	liquidity      int64
	feeGrowthSnap0 uint64
	feeGrowthSnap1 uint64
}

// pool holds the state of one market. Constant-product execution with a flat
// fee tier; accrued fees are distributed pro rata via fee-growth accumulators.
type pool struct {
	pair      AssetPair
	tick      int32
	price     int64 // asset1 per asset0, PriceScale fixed point
	reserve0  int64
	reserve1  int64
	liquidity int64

	feeGrowth0 uint64
	feeGrowth1 uint64

	positions map[positionKey]*position
}

func newPool(pair AssetPair, initialPrice int64) *pool {
	return &pool{
		pair:      pair,
		price:     initialPrice,
		tick:      priceToTick(initialPrice),
		positions: make(map[positionKey]*position),
	}
}

// priceToTick maps a PriceScale fixed-point price onto the 1.0001^tick grid.
func priceToTick(price int64) int32 {
	if price <= 0 {
		return 0
	}
	ratio := float64(price) / float64(PriceScale)
	return int32(math.Round(math.Log(ratio) / math.Log(1.0001)))
}

func (p *pool) clone() *pool {
	cp := *p
	cp.positions = make(map[positionKey]*position, len(p.positions))
	for k, v := range p.positions {
		pv := *v
		cp.positions[k] = &pv
	}
	return &cp
}

// swap executes an exact-input constant-product swap. The fee stays in the
// input-side reserve and is credited to liquidity providers through the
// fee-growth accumulator.
func (p *pool) swap(params SwapParams) (BalanceDelta, error) {
	if params.AmountIn <= 0 {
		return BalanceDelta{}, ErrInvalidAmount
	}
	if p.liquidity <= 0 || p.reserve0 <= 0 || p.reserve1 <= 0 {
		return BalanceDelta{}, ErrInsufficientLiquidity
	}

	feeAmount := params.AmountIn * int64(p.pair.FeeBps) / 10_000
	effectiveIn := params.AmountIn - feeAmount

	var reserveIn, reserveOut int64
	if params.ZeroForOne {
		reserveIn, reserveOut = p.reserve0, p.reserve1
	} else {
		reserveIn, reserveOut = p.reserve1, p.reserve0
	}

	amountOut := reserveOut * effectiveIn / (reserveIn + effectiveIn)
	if amountOut <= 0 || amountOut >= reserveOut {
		return BalanceDelta{}, ErrInsufficientLiquidity
	}
	if amountOut < params.MinAmountOut {
		return BalanceDelta{}, ErrSlippage
	}

	if params.ZeroForOne {
		p.reserve0 += params.AmountIn
		p.reserve1 -= amountOut
		p.feeGrowth0 += uint64(feeAmount) * feeGrowthScale / uint64(p.liquidity)
	} else {
		p.reserve1 += params.AmountIn
		p.reserve0 -= amountOut
		p.feeGrowth1 += uint64(feeAmount) * feeGrowthScale / uint64(p.liquidity)
	}
	p.price = p.reserve1 * PriceScale / p.reserve0
	p.tick = priceToTick(p.price)

	if params.ZeroForOne {
		return BalanceDelta{Amount0: -params.AmountIn, Amount1: amountOut}, nil
	}
	return BalanceDelta{Amount0: amountOut, Amount1: -params.AmountIn}, nil
}

// modifyLiquidity adds or removes liquidity for owner and settles the fees the
// position has accrued since it was last touched. Returns the caller delta and
// the accrued fees as separate deltas.
func (p *pool) modifyLiquidity(owner common.Address, params LiquidityParams) (BalanceDelta, BalanceDelta, error) {
	if params.LiquidityDelta == 0 {
		return BalanceDelta{}, BalanceDelta{}, ErrInvalidAmount
	}
	if params.TickLower >= params.TickUpper {
		return BalanceDelta{}, BalanceDelta{}, ErrInvalidTickRange
	}

	key := positionKey{owner: owner, tickLower: params.TickLower, tickUpper: params.TickUpper}
	pos := p.positions[key]
	if pos == nil {
		pos = &position{feeGrowthSnap0: p.feeGrowth0, feeGrowthSnap1: p.feeGrowth1}
		p.positions[key] = pos
	}

	fees := BalanceDelta{
		Amount0: int64((p.feeGrowth0 - pos.feeGrowthSnap0) * uint64(pos.liquidity) / feeGrowthScale),
		Amount1: int64((p.feeGrowth1 - pos.feeGrowthSnap1) * uint64(pos.liquidity) / feeGrowthScale),
	}
	pos.feeGrowthSnap0 = p.feeGrowth0
	pos.feeGrowthSnap1 = p.feeGrowth1

	var delta BalanceDelta
	if params.LiquidityDelta > 0 {
		amount0, amount1 := p.amountsForLiquidity(params.LiquidityDelta)
		p.reserve0 += amount0
		p.reserve1 += amount1
		p.liquidity += params.LiquidityDelta
		pos.liquidity += params.LiquidityDelta
		delta = BalanceDelta{Amount0: -amount0, Amount1: -amount1}
	} else {
		remove := -params.LiquidityDelta
		if remove > pos.liquidity {
			return BalanceDelta{}, BalanceDelta{}, ErrInsufficientLiquidity
		}
		amount0 := p.reserve0 * remove / p.liquidity
		amount1 := p.reserve1 * remove / p.liquidity
		p.reserve0 -= amount0
		p.reserve1 -= amount1
		p.liquidity -= remove
		pos.liquidity -= remove
		delta = BalanceDelta{Amount0: amount0, Amount1: amount1}
	}

	if pos.liquidity == 0 {
		delete(p.positions, key)
	}
	return delta, fees, nil
}

// amountsForLiquidity derives the deposit required for a liquidity amount at
// the current pool ratio, or at the initialization price for an empty pool.
func (p *pool) amountsForLiquidity(liquidityDelta int64) (int64, int64) {
	if p.liquidity == 0 {
		amount0 := liquidityDelta
		amount1 := liquidityDelta * p.price / PriceScale
		return amount0, amount1
	}
	amount0 := p.reserve0 * liquidityDelta / p.liquidity
	amount1 := p.reserve1 * liquidityDelta / p.liquidity
	return amount0, amount1
}
