package settle

import (
	"github.com/swapcover/swapcover/pkg/util"
)

// Accrual computes reward and fee amounts from an estimated reference-asset
// volume under the current parameters. Amounts round up, so any nonzero
// volume yields at least 1 before the bonus.
type Accrual struct {
	params *Params
}

func NewAccrual(params *Params) *Accrual {
	return &Accrual{params: params}
}

// RewardFor returns the mint amount for a swap of the given volume:
// ceilDiv(volume, rewardDivisor) + fixedBonus. Zero volume earns nothing.
// A zero reward divisor is a configuration fault and fails explicitly.
func (a *Accrual) RewardFor(usdVolume uint64) (uint64, error) {
	if usdVolume == 0 {
		return 0, nil
	}
	rewardDivisor, _, fixedBonus := a.params.Rates()
	q, err := util.CeilDiv(usdVolume, rewardDivisor)
	if err != nil {
		return 0, err
	}
	return q + fixedBonus, nil
}

// FeeFor returns the gasless execution fee for the given volume:
// ceilDiv(volume, gaslessFeeDivisor). Zero volume owes nothing.
func (a *Accrual) FeeFor(usdVolume uint64) (uint64, error) {
	if usdVolume == 0 {
		return 0, nil
	}
	_, gaslessFeeDivisor, _ := a.params.Rates()
	return util.CeilDiv(usdVolume, gaslessFeeDivisor)
}
