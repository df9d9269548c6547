package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"golang.org/x/crypto/sha3"

	"github.com/swapcover/swapcover/pkg/ledger"
)

// AuthDomain is the EIP-712 domain separator context. Binding signatures to a
// name, version, chain, and verifying identity blocks cross-context replay.
type AuthDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// SettlementDomain returns the domain for this settlement layer instance.
func SettlementDomain(chainID int64, verifying common.Address) AuthDomain {
	return AuthDomain{
		Name:              "SwapCoverLayer",
		Version:           "1",
		ChainID:           big.NewInt(chainID),
		VerifyingContract: verifying,
	}
}

// SwapAuthorization is the typed message a caller signs off-chain to permit
// delegated execution of a swap on its behalf. GaslessFeeDivisor binds the fee
// rate in effect at signing time: execution rejects authorizations whose
// signed divisor differs from the live one, so a rate change invalidates
// outstanding signatures.
type SwapAuthorization struct {
	Caller            common.Address
	Pair              ledger.AssetPair
	Swap              ledger.SwapParams
	AuxDataHash       common.Hash
	GaslessFeeDivisor uint64
	Deadline          int64
}

const authPrimaryType = "SwapAuthorization"

var authTypes = apitypes.Types{
	"EIP712Domain": []apitypes.Type{
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	authPrimaryType: []apitypes.Type{
		{Name: "caller", Type: "address"},
		{Name: "asset0", Type: "address"},
		{Name: "asset1", Type: "address"},
		{Name: "feeBps", Type: "uint32"},
		{Name: "tickSpacing", Type: "int32"},
		{Name: "hook", Type: "address"},
		{Name: "zeroForOne", Type: "bool"},
		{Name: "amountIn", Type: "uint256"},
		{Name: "minAmountOut", Type: "uint256"},
		{Name: "auxDataHash", Type: "bytes32"},
		{Name: "gaslessFeeDivisor", Type: "uint256"},
		{Name: "deadline", Type: "uint256"},
	},
}

// Authorizer hashes, signs, and verifies swap authorizations for one domain.
type Authorizer struct {
	domain AuthDomain
}

func NewAuthorizer(domain AuthDomain) *Authorizer {
	return &Authorizer{domain: domain}
}

func (a *Authorizer) Domain() AuthDomain { return a.domain }

func (a *Authorizer) typedData(auth *SwapAuthorization) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       authTypes,
		PrimaryType: authPrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              a.domain.Name,
			Version:           a.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(a.domain.ChainID),
			VerifyingContract: a.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"caller":            auth.Caller.Hex(),
			"asset0":            auth.Pair.Asset0.Hex(),
			"asset1":            auth.Pair.Asset1.Hex(),
			"feeBps":            fmt.Sprintf("%d", auth.Pair.FeeBps),
			"tickSpacing":       fmt.Sprintf("%d", auth.Pair.TickSpacing),
			"hook":              auth.Pair.Hook.Hex(),
			"zeroForOne":        auth.Swap.ZeroForOne,
			"amountIn":          fmt.Sprintf("%d", auth.Swap.AmountIn),
			"minAmountOut":      fmt.Sprintf("%d", auth.Swap.MinAmountOut),
			"auxDataHash":       auth.AuxDataHash.Hex(),
			"gaslessFeeDivisor": fmt.Sprintf("%d", auth.GaslessFeeDivisor),
			"deadline":          fmt.Sprintf("%d", auth.Deadline),
		},
	}
}

// DomainSeparator returns the 32-byte domain struct hash.
func (a *Authorizer) DomainSeparator() ([]byte, error) {
	td := a.typedData(&SwapAuthorization{})
	sep, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	return sep, nil
}

// Hash computes the final signable digest:
// keccak256("\x19\x01" || domainSeparator || structHash).
func (a *Authorizer) Hash(auth *SwapAuthorization) ([]byte, error) {
	td := a.typedData(auth)

	domainSeparator, err := td.HashStruct("EIP712Domain", td.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("hash domain: %w", err)
	}
	structHash, err := td.HashStruct(td.PrimaryType, td.Message)
	if err != nil {
		return nil, fmt.Errorf("hash message: %w", err)
	}

	raw := make([]byte, 0, 2+len(domainSeparator)+len(structHash))
	raw = append(raw, 0x19, 0x01)
	raw = append(raw, domainSeparator...)
	raw = append(raw, structHash...)
	return ethcrypto.Keccak256(raw), nil
}

// Sign signs the authorization with a direct key.
func (a *Authorizer) Sign(signer *Signer, auth *SwapAuthorization) ([]byte, error) {
	digest, err := a.Hash(auth)
	if err != nil {
		return nil, fmt.Errorf("hash authorization: %w", err)
	}
	return signer.Sign(digest)
}

// Verify checks a direct-key signature against the claimed caller.
func (a *Authorizer) Verify(auth *SwapAuthorization, signature []byte) (bool, error) {
	digest, err := a.Hash(auth)
	if err != nil {
		return false, fmt.Errorf("hash authorization: %w", err)
	}
	recovered, err := RecoverAddress(digest, signature)
	if err != nil {
		return false, nil
	}
	return recovered == auth.Caller, nil
}

// HashAuxData computes the keccak digest of the auxiliary payload bound into
// an authorization. Empty payloads hash to the empty-input digest.
func HashAuxData(aux []byte) common.Hash {
	h := sha3.NewLegacyKeccak256()
	h.Write(aux)
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out
}
