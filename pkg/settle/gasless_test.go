package settle

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/crypto"
	"github.com/swapcover/swapcover/pkg/ledger"
	"github.com/swapcover/swapcover/pkg/token"
)

// signedAuthorization builds and signs a standard gasless authorization for
// the given trader key, bound to the fixture's current fee divisor.
func (f *fixture) signedAuthorization(t *testing.T, trader *crypto.Signer, pair ledger.AssetPair) (*crypto.SwapAuthorization, []byte) {
	t.Helper()
	_, feeDivisor, _ := f.params.Rates()
	auth := &crypto.SwapAuthorization{
		Caller: trader.Address(),
		Pair:   pair,
		Swap: ledger.SwapParams{
			ZeroForOne: true,
			AmountIn:   1000,
		},
		AuxDataHash:       crypto.HashAuxData(nil),
		GaslessFeeDivisor: feeDivisor,
		Deadline:          f.clock.T.Unix() + 3600,
	}
	signature, err := f.router.Authorizer().Sign(trader, auth)
	if err != nil {
		t.Fatalf("sign authorization: %v", err)
	}
	return auth, signature
}

func TestGaslessSwapBurnsFee(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	result, err := f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if err != nil {
		t.Fatalf("ExecuteGaslessSwap: %v", err)
	}

	// Volume 1000: mint ceil(1000/100)+5 = 15, burn ceil(1000/100) = 10.
	if result.Minted != 15 || result.FeeBurned != 10 {
		t.Fatalf("minted=%d burned=%d, want 15/10", result.Minted, result.FeeBurned)
	}
	// The mint lands in the same unit of work, so the burn comes out of it.
	if bal := f.tok.BalanceOf(trader.Address()); bal != 5 {
		t.Fatalf("trader balance = %d, want 5", bal)
	}
	if supply := f.tok.TotalSupply(); supply != 5 {
		t.Fatalf("total supply = %d, want 5", supply)
	}
	if got := f.sink.ofType(EventFeeBurned); len(got) != 1 {
		t.Fatalf("fee events = %d, want 1", len(got))
	}
}

func TestGaslessSwapDeadline(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}

	t.Run("past deadline fails", func(t *testing.T) {
		auth, _ := f.signedAuthorization(t, trader, pair)
		auth.Deadline = f.clock.T.Unix() - 1
		signature, err := f.router.Authorizer().Sign(trader, auth)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
		if !errors.Is(err, ErrDeadlineExceeded) {
			t.Fatalf("got %v, want ErrDeadlineExceeded", err)
		}
	})

	t.Run("exact deadline passes", func(t *testing.T) {
		auth, _ := f.signedAuthorization(t, trader, pair)
		auth.Deadline = f.clock.T.Unix()
		signature, err := f.router.Authorizer().Sign(trader, auth)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil); err != nil {
			t.Fatalf("swap at exact deadline: %v", err)
		}
	})
}

func TestGaslessSwapDivisorChangeInvalidates(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	// Owner retunes the fee divisor after the trader signed.
	if err := f.params.SetRates(f.owner.Address(), 100, 200, 5); err != nil {
		t.Fatalf("SetRates: %v", err)
	}

	_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("got %v, want ErrInvalidSignature", err)
	}
}

func TestGaslessSwapTamperedSignature(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	// Relayer inflates the amount after signing.
	auth.Swap.AmountIn = 2000
	_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("tampered auth: got %v, want ErrInvalidSignature", err)
	}

	// Flipping a signature byte must fail too.
	auth.Swap.AmountIn = 1000
	signature[10] ^= 0xff
	_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("corrupt signature: got %v, want ErrInvalidSignature", err)
	}
}

func TestGaslessSwapNoReferenceAssetRollsBack(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)
	// Unflag the reference leg so the swap values to zero.
	if err := f.params.SetReferenceAsset(f.owner.Address(), testAsset0, false); err != nil {
		t.Fatalf("unflag: %v", err)
	}
	before, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if !errors.Is(err, ErrNoReferenceAssetInvolved) {
		t.Fatalf("got %v, want ErrNoReferenceAssetInvolved", err)
	}

	// The swap executed inside the unit before the fee check failed; every
	// pool mutation must be unwound.
	after, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if before != after {
		t.Fatalf("pool state changed after aborted gasless swap:\nbefore %+v\nafter  %+v", before, after)
	}
	if bal := f.tok.BalanceOf(trader.Address()); bal != 0 {
		t.Fatalf("trader balance = %d, want 0", bal)
	}
}

func TestGaslessSwapInsufficientFeeBalanceRollsBack(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)
	// Incentives off: the fee has no staged mint to draw from and the trader
	// holds nothing.
	if err := f.params.SetIncentivesEnabled(f.owner.Address(), false); err != nil {
		t.Fatalf("disable incentives: %v", err)
	}
	before, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	_, err = f.router.ExecuteGaslessSwap(auth, crypto.SignerDirect, signature, nil)
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}

	after, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if before != after {
		t.Fatalf("pool state changed after aborted gasless swap")
	}
	if supply := f.tok.TotalSupply(); supply != 0 {
		t.Fatalf("total supply = %d, want 0", supply)
	}
}

func TestGaslessSwapDelegateSigner(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 1)
	}
	delegate, err := crypto.NewDelegateSignerFromSeed(seed)
	if err != nil {
		t.Fatalf("delegate signer: %v", err)
	}
	f.delegates.Register(trader.Address(), delegate.PublicKey())

	auth, _ := f.signedAuthorization(t, trader, pair)
	digest, err := f.router.Authorizer().Hash(auth)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	signature := delegate.Sign(digest)

	result, err := f.router.ExecuteGaslessSwap(auth, crypto.SignerDelegate, signature, nil)
	if err != nil {
		t.Fatalf("delegate gasless swap: %v", err)
	}
	if result.FeeBurned != 10 {
		t.Fatalf("fee burned = %d, want 10", result.FeeBurned)
	}

	// Revoking the delegation invalidates further use.
	f.delegates.Revoke(trader.Address())
	auth2, _ := f.signedAuthorization(t, trader, pair)
	digest2, err := f.router.Authorizer().Hash(auth2)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	_, err = f.router.ExecuteGaslessSwap(auth2, crypto.SignerDelegate, delegate.Sign(digest2), nil)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("revoked delegate: got %v, want ErrInvalidSignature", err)
	}
}

func TestDelegateLifecycleThroughRouter(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	seed := make([]byte, 32)
	for i := range seed {
		seed[i] = byte(i + 64)
	}
	delegate, err := crypto.NewDelegateSignerFromSeed(seed)
	if err != nil {
		t.Fatalf("delegate signer: %v", err)
	}

	if err := f.router.RegisterDelegate(common.Address{}, delegate.PublicKey()); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero caller: got %v, want ErrZeroAddress", err)
	}
	if err := f.router.RegisterDelegate(trader.Address(), nil); !errors.Is(err, ErrInvalidDelegateKey) {
		t.Fatalf("nil key: got %v, want ErrInvalidDelegateKey", err)
	}

	if err := f.router.RegisterDelegate(trader.Address(), delegate.PublicKey()); err != nil {
		t.Fatalf("RegisterDelegate: %v", err)
	}
	if !f.router.HasDelegate(trader.Address()) {
		t.Fatal("delegate not visible after registration")
	}
	if got := f.sink.ofType(EventDelegateRegistered); len(got) != 1 {
		t.Fatalf("registration events = %d, want 1", len(got))
	}

	auth, _ := f.signedAuthorization(t, trader, pair)
	digest, err := f.router.Authorizer().Hash(auth)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := f.router.ExecuteGaslessSwap(auth, crypto.SignerDelegate, delegate.Sign(digest), nil); err != nil {
		t.Fatalf("delegate gasless swap: %v", err)
	}

	// Only the key holder or the owner may revoke.
	if err := f.router.RevokeDelegate(testLP, trader.Address()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stranger revoke: got %v, want ErrUnauthorized", err)
	}
	if err := f.router.RevokeDelegate(f.owner.Address(), trader.Address()); err != nil {
		t.Fatalf("owner revoke: %v", err)
	}
	if f.router.HasDelegate(trader.Address()) {
		t.Fatal("delegate still registered after revocation")
	}

	auth2, _ := f.signedAuthorization(t, trader, pair)
	digest2, err := f.router.Authorizer().Hash(auth2)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if _, err := f.router.ExecuteGaslessSwap(auth2, crypto.SignerDelegate, delegate.Sign(digest2), nil); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("revoked delegate: got %v, want ErrInvalidSignature", err)
	}

	// Self-revocation needs no owner.
	if err := f.router.RegisterDelegate(trader.Address(), delegate.PublicKey()); err != nil {
		t.Fatalf("re-register: %v", err)
	}
	if err := f.router.RevokeDelegate(trader.Address(), trader.Address()); err != nil {
		t.Fatalf("self revoke: %v", err)
	}
	if got := f.sink.ofType(EventDelegateRevoked); len(got) != 2 {
		t.Fatalf("revocation events = %d, want 2", len(got))
	}
}

func TestVerifyAuthorizationReadOnly(t *testing.T) {
	f := newFixture(t)
	pair := f.openFundedMarket(t)
	f.enableIncentives(t)
	before, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}

	trader, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate trader key: %v", err)
	}
	auth, signature := f.signedAuthorization(t, trader, pair)

	if err := f.router.VerifyAuthorization(auth, crypto.SignerDirect, signature, nil); err != nil {
		t.Fatalf("VerifyAuthorization: %v", err)
	}

	after, err := f.engine.GetPool(pair)
	if err != nil {
		t.Fatalf("GetPool: %v", err)
	}
	if before != after {
		t.Fatal("verification mutated pool state")
	}
	if bal := f.tok.BalanceOf(trader.Address()); bal != 0 {
		t.Fatalf("verification minted tokens: %d", bal)
	}
}
