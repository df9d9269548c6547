package settle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/util"
)

func newTestParams(t *testing.T, owner common.Address) *Params {
	t.Helper()
	return NewParams(owner, NewRecorder(nil))
}

func TestRewardFor(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p := newTestParams(t, owner)
	if err := p.SetRates(owner, 1000, 500, 7); err != nil {
		t.Fatalf("SetRates: %v", err)
	}
	a := NewAccrual(p)

	cases := []struct {
		volume uint64
		want   uint64
	}{
		{0, 0}, // zero volume earns nothing, not even the bonus
		{1, 1 + 7},
		{1000, 1 + 7},
		{1001, 2 + 7},
		{2500, 3 + 7},
	}
	for _, tc := range cases {
		got, err := a.RewardFor(tc.volume)
		if err != nil {
			t.Fatalf("RewardFor(%d): %v", tc.volume, err)
		}
		if got != tc.want {
			t.Fatalf("RewardFor(%d) = %d, want %d", tc.volume, got, tc.want)
		}
	}
}

func TestFeeFor(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p := newTestParams(t, owner)
	if err := p.SetRates(owner, 1000, 500, 7); err != nil {
		t.Fatalf("SetRates: %v", err)
	}
	a := NewAccrual(p)

	cases := []struct {
		volume uint64
		want   uint64
	}{
		{0, 0},
		{1, 1},
		{500, 1},
		{501, 2},
	}
	for _, tc := range cases {
		got, err := a.FeeFor(tc.volume)
		if err != nil {
			t.Fatalf("FeeFor(%d): %v", tc.volume, err)
		}
		if got != tc.want {
			t.Fatalf("FeeFor(%d) = %d, want %d", tc.volume, got, tc.want)
		}
	}
}

func TestAccrualZeroDivisor(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	a := NewAccrual(newTestParams(t, owner)) // divisors default to zero

	if _, err := a.RewardFor(100); !errors.Is(err, util.ErrDivideByZero) {
		t.Fatalf("RewardFor with zero divisor: got %v, want ErrDivideByZero", err)
	}
	if _, err := a.FeeFor(100); !errors.Is(err, util.ErrDivideByZero) {
		t.Fatalf("FeeFor with zero divisor: got %v, want ErrDivideByZero", err)
	}
}
