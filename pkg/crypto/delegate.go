package crypto

import (
	"fmt"
	"sync"

	bls "github.com/cloudflare/circl/sign/bls"
	"github.com/ethereum/go-ethereum/common"
)

type scheme = bls.KeyG1SigG2

// DelegatePubKey is the public half of a registered delegate validator.
type DelegatePubKey = bls.PublicKey[scheme]

// DelegateSigner signs authorization digests on behalf of a caller that has
// registered its public key as a delegate. This is the second signer kind: a
// caller that cannot produce a direct secp256k1 signature delegates to a BLS
// key instead.
type DelegateSigner struct {
	sk *bls.PrivateKey[scheme]
	pk *DelegatePubKey
}

// NewDelegateSignerFromSeed derives a delegate key pair from a seed of at
// least 32 bytes.
func NewDelegateSignerFromSeed(seed []byte) (*DelegateSigner, error) {
	sk, err := bls.KeyGen[scheme](seed, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("delegate keygen: %w", err)
	}
	return &DelegateSigner{sk: sk, pk: sk.PublicKey()}, nil
}

func (s *DelegateSigner) PublicKey() *DelegatePubKey { return s.pk }

func (s *DelegateSigner) Sign(digest []byte) []byte {
	return bls.Sign(s.sk, digest)
}

// ParseDelegatePubKey decodes a marshaled delegate public key, as submitted
// over the wire at registration.
func ParseDelegatePubKey(raw []byte) (*DelegatePubKey, error) {
	pk := new(DelegatePubKey)
	if err := pk.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("delegate pubkey: %w", err)
	}
	return pk, nil
}

// VerifyDelegateSignature checks a delegate signature over digest.
func VerifyDelegateSignature(pk *DelegatePubKey, digest, signature []byte) bool {
	if pk == nil || len(signature) == 0 {
		return false
	}
	return bls.Verify(pk, digest, bls.Signature(signature))
}

// DelegateRegistry maps callers to their registered delegate keys.
type DelegateRegistry struct {
	mu   sync.RWMutex
	keys map[common.Address]*DelegatePubKey
}

func NewDelegateRegistry() *DelegateRegistry {
	return &DelegateRegistry{keys: make(map[common.Address]*DelegatePubKey)}
}

// Register binds a delegate key to caller, replacing any previous key.
func (r *DelegateRegistry) Register(caller common.Address, pk *DelegatePubKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[caller] = pk
}

// Revoke removes caller's delegate key.
func (r *DelegateRegistry) Revoke(caller common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, caller)
}

// Lookup returns caller's delegate key, if registered.
func (r *DelegateRegistry) Lookup(caller common.Address) (*DelegatePubKey, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pk, ok := r.keys[caller]
	return pk, ok
}

// SignerKind selects how an authorization signature is validated.
type SignerKind uint8

const (
	// SignerDirect is a plain secp256k1 signature recovered to the caller.
	SignerDirect SignerKind = iota + 1
	// SignerDelegate is a BLS signature checked against the caller's
	// registered delegate key.
	SignerDelegate
)

// Validator checks a signature over a digest on behalf of a caller. The two
// implementations correspond to the two signer kinds.
type Validator interface {
	Validate(caller common.Address, digest, signature []byte) bool
}

// DirectValidator validates secp256k1 signatures by address recovery.
type DirectValidator struct{}

func (DirectValidator) Validate(caller common.Address, digest, signature []byte) bool {
	return VerifySignature(caller, digest, signature)
}

// DelegateValidator validates BLS signatures against the registry.
type DelegateValidator struct {
	Registry *DelegateRegistry
}

func (v DelegateValidator) Validate(caller common.Address, digest, signature []byte) bool {
	if v.Registry == nil {
		return false
	}
	pk, ok := v.Registry.Lookup(caller)
	if !ok {
		return false
	}
	return VerifyDelegateSignature(pk, digest, signature)
}
