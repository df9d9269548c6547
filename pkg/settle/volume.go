package settle

import (
	"github.com/swapcover/swapcover/pkg/ledger"
	"github.com/swapcover/swapcover/pkg/util"
)

// EstimateUSDVolume maps a balance delta onto a reference-asset value, given
// the reference flags of the pair's two legs. Pure and deterministic:
//
//	both legs reference    -> min(|amount0|, |amount1|)
//	exactly one reference  -> that leg's magnitude
//	neither                -> 0
//
// Magnitudes come from util.Magnitude, which is safe on the most negative
// representable delta.
func EstimateUSDVolume(ref0, ref1 bool, delta ledger.BalanceDelta) uint64 {
	m0 := util.Magnitude(delta.Amount0)
	m1 := util.Magnitude(delta.Amount1)
	switch {
	case ref0 && ref1:
		return util.MinU64(m0, m1)
	case ref0:
		return m0
	case ref1:
		return m1
	default:
		return 0
	}
}
