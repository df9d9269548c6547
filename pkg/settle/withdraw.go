package settle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// CreditNative records a native-asset deposit held by the settlement layer.
func (r *Router) CreditNative(from common.Address, amount uint64) {
	r.nativeMu.Lock()
	defer r.nativeMu.Unlock()
	r.nativeBalances[from] += amount
}

// NativeBalance returns the native amount held for addr.
func (r *Router) NativeBalance(addr common.Address) uint64 {
	r.nativeMu.Lock()
	defer r.nativeMu.Unlock()
	return r.nativeBalances[addr]
}

// SetNativeTransfer installs the hook that moves native value out. Without
// one, withdrawals fail.
func (r *Router) SetNativeTransfer(fn func(to common.Address, amount uint64) error) {
	r.nativeMu.Lock()
	defer r.nativeMu.Unlock()
	r.nativeTransfer = fn
}

// WithdrawNative sends held native value to a recipient. Owner only; the
// balance is debited before the transfer and restored if it fails.
func (r *Router) WithdrawNative(caller, from, to common.Address, amount uint64) error {
	if err := r.params.requireOwner(caller); err != nil {
		return err
	}

	r.nativeMu.Lock()
	if r.nativeBalances[from] < amount {
		r.nativeMu.Unlock()
		return fmt.Errorf("%w: held %d, need %d", ErrNativeTransferFailed, r.nativeBalances[from], amount)
	}
	transfer := r.nativeTransfer
	r.nativeBalances[from] -= amount
	r.nativeMu.Unlock()

	if transfer == nil {
		r.creditBack(from, amount)
		return fmt.Errorf("%w: no transfer hook installed", ErrNativeTransferFailed)
	}
	if err := transfer(to, amount); err != nil {
		r.creditBack(from, amount)
		return fmt.Errorf("%w: %v", ErrNativeTransferFailed, err)
	}
	return nil
}

func (r *Router) creditBack(addr common.Address, amount uint64) {
	r.nativeMu.Lock()
	r.nativeBalances[addr] += amount
	r.nativeMu.Unlock()
}

// WithdrawToken moves incentive tokens held by the router itself to a
// recipient. Owner only.
func (r *Router) WithdrawToken(caller, to common.Address, amount uint64) error {
	if err := r.params.requireOwner(caller); err != nil {
		return err
	}
	if r.token == nil {
		return ErrTokenNotConfigured
	}
	return r.token.Transfer(r.self, to, amount)
}
