package ledger

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	asset0 = common.HexToAddress("0x0000000000000000000000000000000000000001")
	asset1 = common.HexToAddress("0x0000000000000000000000000000000000000002")
	lp     = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

// callbackFunc adapts a closure to the UnlockCallback interface.
type callbackFunc func(sender common.Address, payload []byte) ([]byte, error)

func (f callbackFunc) UnlockCallback(sender common.Address, payload []byte) ([]byte, error) {
	return f(sender, payload)
}

func newTestManager() *Manager {
	return NewManager(common.HexToAddress("0x00000000000000000000000000000000000000ec"))
}

func stdPair() AssetPair {
	return AssetPair{Asset0: asset0, Asset1: asset1, FeeBps: 30, TickSpacing: 60}
}

// seed initializes the pair at a 1:1 price and funds it with liquidity
// through an unlock.
func seed(t *testing.T, m *Manager, pair AssetPair) {
	t.Helper()
	if _, err := m.Initialize(pair, PriceScale); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		_, _, err := m.ModifyLiquidity(lp, pair, LiquidityParams{
			TickLower: -600, TickUpper: 600, LiquidityDelta: 1_000_000,
		})
		return nil, err
	}))
	if _, err := m.Unlock(nil); err != nil {
		t.Fatalf("seed unlock: %v", err)
	}
}

func TestInitialize(t *testing.T) {
	m := newTestManager()
	pair := stdPair()

	tick, err := m.Initialize(pair, PriceScale)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if tick != 0 {
		t.Fatalf("tick at 1:1 price = %d, want 0", tick)
	}
	if _, err := m.Initialize(pair, PriceScale); !errors.Is(err, ErrPoolExists) {
		t.Fatalf("duplicate: got %v, want ErrPoolExists", err)
	}
	if _, err := m.Initialize(AssetPair{Asset0: asset1, Asset1: asset0}, 0); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("zero price: got %v, want ErrInvalidPrice", err)
	}
}

func TestSwapRequiresUnlock(t *testing.T) {
	m := newTestManager()
	pair := stdPair()
	seed(t, m, pair)

	if _, err := m.Swap(pair, SwapParams{AmountIn: 100}); !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("Swap outside unlock: got %v, want ErrNotUnlocked", err)
	}
	if _, _, err := m.ModifyLiquidity(lp, pair, LiquidityParams{TickLower: -60, TickUpper: 60, LiquidityDelta: 1}); !errors.Is(err, ErrNotUnlocked) {
		t.Fatalf("ModifyLiquidity outside unlock: got %v, want ErrNotUnlocked", err)
	}
}

func TestUnlockSwap(t *testing.T) {
	m := newTestManager()
	pair := stdPair()
	seed(t, m, pair)

	var delta BalanceDelta
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		if sender != m.Identity() {
			t.Fatalf("callback sender = %s, want manager identity", sender.Hex())
		}
		var err error
		delta, err = m.Swap(pair, SwapParams{ZeroForOne: true, AmountIn: 1000})
		return nil, err
	}))
	if _, err := m.Unlock(nil); err != nil {
		t.Fatalf("Unlock: %v", err)
	}

	// 30 bps fee leaves 997 effective against 1M/1M reserves.
	if delta.Amount0 != -1000 || delta.Amount1 != 996 {
		t.Fatalf("delta = %+v, want {-1000 996}", delta)
	}

	st, err := m.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if st.Reserve0 != 1_001_000 || st.Reserve1 != 999_004 {
		t.Fatalf("reserves = %d/%d, want 1001000/999004", st.Reserve0, st.Reserve1)
	}
}

func TestUnlockRollsBackOnError(t *testing.T) {
	m := newTestManager()
	pair := stdPair()
	seed(t, m, pair)

	before, err := m.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}

	boom := errors.New("boom")
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		if _, err := m.Swap(pair, SwapParams{ZeroForOne: true, AmountIn: 1000}); err != nil {
			return nil, err
		}
		return nil, boom
	}))
	if _, err := m.Unlock(nil); !errors.Is(err, boom) {
		t.Fatalf("Unlock: got %v, want boom", err)
	}

	after, err := m.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if before != after {
		t.Fatalf("pool state survived rollback:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestNestedUnlockRejected(t *testing.T) {
	m := newTestManager()
	pair := stdPair()
	seed(t, m, pair)

	var nested error
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		_, nested = m.Unlock(nil)
		return nil, nil
	}))
	if _, err := m.Unlock(nil); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if !errors.Is(nested, ErrAlreadyUnlocked) {
		t.Fatalf("nested unlock: got %v, want ErrAlreadyUnlocked", nested)
	}
}

func TestUnlockWithoutCallback(t *testing.T) {
	m := newTestManager()
	if _, err := m.Unlock(nil); !errors.Is(err, ErrNoCallback) {
		t.Fatalf("got %v, want ErrNoCallback", err)
	}
}

func TestModifyLiquidityFees(t *testing.T) {
	m := newTestManager()
	pair := stdPair()
	seed(t, m, pair)

	// Generate fees: 100 swaps of 1000 in, 3 per swap stays as fees.
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		for i := 0; i < 100; i++ {
			dir := i%2 == 0
			if _, err := m.Swap(pair, SwapParams{ZeroForOne: dir, AmountIn: 1000}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}))
	if _, err := m.Unlock(nil); err != nil {
		t.Fatalf("swap unlock: %v", err)
	}

	var fees BalanceDelta
	m.SetCallback(callbackFunc(func(sender common.Address, payload []byte) ([]byte, error) {
		var err error
		_, fees, err = m.ModifyLiquidity(lp, pair, LiquidityParams{
			TickLower: -600, TickUpper: 600, LiquidityDelta: 1,
		})
		return nil, err
	}))
	if _, err := m.Unlock(nil); err != nil {
		t.Fatalf("fee unlock: %v", err)
	}

	// 50 swaps per direction, 3 fee units each.
	if fees.Amount0 != 150 || fees.Amount1 != 150 {
		t.Fatalf("fees = %+v, want {150 150}", fees)
	}
}

func TestPairIDDependsOnFields(t *testing.T) {
	a := stdPair()
	b := stdPair()
	if a.ID() != b.ID() {
		t.Fatal("identical pairs produced different IDs")
	}
	b.FeeBps = 100
	if a.ID() == b.ID() {
		t.Fatal("fee change did not change pair ID")
	}
	c := stdPair()
	c.Hook = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	if a.ID() == c.ID() {
		t.Fatal("hook change did not change pair ID")
	}
}
