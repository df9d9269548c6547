package settle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/crypto"
)

// ExecuteGaslessSwap settles a swap on behalf of auth.Caller from a signed
// authorization submitted by any relayer. The signature binds the full swap,
// the aux data hash, the fee divisor, and a deadline; the fee burns from the
// caller's incentive balance inside the same unit of work as the swap, so a
// failed burn unwinds the swap too.
func (r *Router) ExecuteGaslessSwap(auth *crypto.SwapAuthorization, kind crypto.SignerKind, signature, auxData []byte) (SwapResult, error) {
	if !r.entry.TryLock() {
		return SwapResult{}, ErrReentrantCall
	}
	defer r.entry.Unlock()

	if r.params.Paused() {
		return SwapResult{}, ErrOperationPaused
	}
	if now := r.clock.Now().Unix(); now > auth.Deadline {
		return SwapResult{}, fmt.Errorf("%w: deadline %d, now %d", ErrDeadlineExceeded, auth.Deadline, now)
	}
	if err := r.checkAuthorization(auth, kind, signature, auxData); err != nil {
		return SwapResult{}, err
	}
	return r.swapLocked(auth.Caller, auth.Pair, auth.Swap, auxData, true)
}

// VerifyAuthorization checks a signed authorization without executing it.
// Deadline and pause state are not checked here: this answers only whether
// the signature is valid for the current parameters.
func (r *Router) VerifyAuthorization(auth *crypto.SwapAuthorization, kind crypto.SignerKind, signature, auxData []byte) error {
	return r.checkAuthorization(auth, kind, signature, auxData)
}

func (r *Router) checkAuthorization(auth *crypto.SwapAuthorization, kind crypto.SignerKind, signature, auxData []byte) error {
	if auth.AuxDataHash != crypto.HashAuxData(auxData) {
		return fmt.Errorf("%w: aux data hash mismatch", ErrInvalidSignature)
	}
	// The signed divisor must match the live one, so a rate change after
	// signing voids every outstanding authorization.
	if _, feeDivisor, _ := r.params.Rates(); auth.GaslessFeeDivisor != feeDivisor {
		return fmt.Errorf("%w: fee divisor %d, current %d", ErrInvalidSignature, auth.GaslessFeeDivisor, feeDivisor)
	}
	digest, err := r.auth.Hash(auth)
	if err != nil {
		return err
	}
	validator, ok := r.validators[kind]
	if !ok {
		return fmt.Errorf("%w: unknown signer kind %d", ErrInvalidSignature, kind)
	}
	if !validator.Validate(auth.Caller, digest, signature) {
		return ErrInvalidSignature
	}
	return nil
}

// RegisterDelegate binds a BLS delegate key to the caller's address, replacing
// any previous key. Registration is caller-initiated; from then on the caller's
// authorizations may carry SignerDelegate signatures.
func (r *Router) RegisterDelegate(caller common.Address, pk *crypto.DelegatePubKey) error {
	if caller == (common.Address{}) {
		return ErrZeroAddress
	}
	if pk == nil {
		return ErrInvalidDelegateKey
	}
	r.delegates.Register(caller, pk)
	r.events.Emit(Event{
		Type:       EventDelegateRegistered,
		Attributes: map[string]string{"caller": caller.Hex()},
	})
	return nil
}

// RevokeDelegate removes target's delegate key. A caller may revoke its own
// key; the owner may revoke anyone's.
func (r *Router) RevokeDelegate(caller, target common.Address) error {
	if caller != target {
		if err := r.params.requireOwner(caller); err != nil {
			return err
		}
	}
	r.delegates.Revoke(target)
	r.events.Emit(Event{
		Type:       EventDelegateRevoked,
		Attributes: map[string]string{"target": target.Hex(), "caller": caller.Hex()},
	})
	return nil
}

// HasDelegate reports whether addr has a registered delegate key.
func (r *Router) HasDelegate(addr common.Address) bool {
	_, ok := r.delegates.Lookup(addr)
	return ok
}

// DomainSeparator exposes the EIP-712 domain separator clients sign against.
func (r *Router) DomainSeparator() ([]byte, error) {
	return r.auth.DomainSeparator()
}

// Authorizer exposes the router's typed-data hasher for clients that build
// and sign authorizations offline.
func (r *Router) Authorizer() *crypto.Authorizer { return r.auth }
