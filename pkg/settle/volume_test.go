package settle

import (
	"math"
	"testing"

	"github.com/swapcover/swapcover/pkg/ledger"
)

func TestEstimateUSDVolume(t *testing.T) {
	cases := []struct {
		name  string
		ref0  bool
		ref1  bool
		delta ledger.BalanceDelta
		want  uint64
	}{
		{"both reference takes min", true, true, ledger.BalanceDelta{Amount0: 1000, Amount1: -400}, 400},
		{"both reference symmetric", true, true, ledger.BalanceDelta{Amount0: -400, Amount1: 1000}, 400},
		{"only asset0 reference", true, false, ledger.BalanceDelta{Amount0: 250, Amount1: -9999}, 250},
		{"only asset1 reference", false, true, ledger.BalanceDelta{Amount0: -9999, Amount1: 250}, 250},
		{"neither reference", false, false, ledger.BalanceDelta{Amount0: 1000, Amount1: -400}, 0},
		{"zero delta", true, true, ledger.BalanceDelta{}, 0},
		{"min int64 leg", true, false, ledger.BalanceDelta{Amount0: math.MinInt64, Amount1: 1}, 1 << 63},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EstimateUSDVolume(tc.ref0, tc.ref1, tc.delta)
			if got != tc.want {
				t.Fatalf("EstimateUSDVolume(%v, %v, %+v) = %d, want %d",
					tc.ref0, tc.ref1, tc.delta, got, tc.want)
			}
		})
	}
}
