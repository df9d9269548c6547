package api

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/ledger"
)

// PairSpec is the wire form of an asset pair.
type PairSpec struct {
	Asset0      string `json:"asset0"`
	Asset1      string `json:"asset1"`
	FeeBps      uint32 `json:"feeBps"`
	TickSpacing int32  `json:"tickSpacing"`
	Hook        string `json:"hook,omitempty"`
}

// ToPair converts the wire form into a ledger pair, validating addresses.
func (p PairSpec) ToPair() (ledger.AssetPair, bool) {
	if !common.IsHexAddress(p.Asset0) || !common.IsHexAddress(p.Asset1) {
		return ledger.AssetPair{}, false
	}
	hook := common.Address{}
	if p.Hook != "" {
		if !common.IsHexAddress(p.Hook) {
			return ledger.AssetPair{}, false
		}
		hook = common.HexToAddress(p.Hook)
	}
	return ledger.AssetPair{
		Asset0:      common.HexToAddress(p.Asset0),
		Asset1:      common.HexToAddress(p.Asset1),
		FeeBps:      p.FeeBps,
		TickSpacing: p.TickSpacing,
		Hook:        hook,
	}, true
}

// PoolInfo is the wire form of one pool snapshot.
type PoolInfo struct {
	PairID    string   `json:"pairId"`
	Pair      PairSpec `json:"pair"`
	Tick      int32    `json:"tick"`
	Price     int64    `json:"price"`
	Reserve0  int64    `json:"reserve0"`
	Reserve1  int64    `json:"reserve1"`
	Liquidity int64    `json:"liquidity"`
}

func poolInfo(st ledger.PoolState) PoolInfo {
	hook := ""
	if st.Pair.HasHook() {
		hook = st.Pair.Hook.Hex()
	}
	return PoolInfo{
		PairID: st.Pair.ID().Hex(),
		Pair: PairSpec{
			Asset0:      st.Pair.Asset0.Hex(),
			Asset1:      st.Pair.Asset1.Hex(),
			FeeBps:      st.Pair.FeeBps,
			TickSpacing: st.Pair.TickSpacing,
			Hook:        hook,
		},
		Tick:      st.Tick,
		Price:     st.Price,
		Reserve0:  st.Reserve0,
		Reserve1:  st.Reserve1,
		Liquidity: st.Liquidity,
	}
}

// OpenMarketRequest initializes a pool.
type OpenMarketRequest struct {
	Caller       string   `json:"caller"`
	Pair         PairSpec `json:"pair"`
	InitialPrice int64    `json:"initialPrice"`
}

// OpenMarketResponse reports the starting tick of a freshly opened pool.
type OpenMarketResponse struct {
	Status string `json:"status"`
	PairID string `json:"pairId"`
	Tick   int32  `json:"tick"`
}

// SwapRequest is a direct swap submission.
type SwapRequest struct {
	Caller       string   `json:"caller"`
	Pair         PairSpec `json:"pair"`
	ZeroForOne   bool     `json:"zeroForOne"`
	AmountIn     int64    `json:"amountIn"`
	MinAmountOut int64    `json:"minAmountOut"`
	AuxData      string   `json:"auxData,omitempty"`
}

// GaslessSwapRequest is a relayed swap carrying the caller's signed
// authorization instead of being sent by the caller directly.
type GaslessSwapRequest struct {
	Caller            string   `json:"caller"`
	Pair              PairSpec `json:"pair"`
	ZeroForOne        bool     `json:"zeroForOne"`
	AmountIn          int64    `json:"amountIn"`
	MinAmountOut      int64    `json:"minAmountOut"`
	AuxData           string   `json:"auxData,omitempty"`
	GaslessFeeDivisor uint64   `json:"gaslessFeeDivisor"`
	Deadline          int64    `json:"deadline"`
	SignerKind        uint8    `json:"signerKind"`
	Signature         string   `json:"signature"`
}

// SwapResponse reports one settled swap.
type SwapResponse struct {
	Status    string `json:"status"`
	Amount0   int64  `json:"amount0"`
	Amount1   int64  `json:"amount1"`
	USDVolume uint64 `json:"usdVolume"`
	Minted    uint64 `json:"minted"`
	FeeBurned uint64 `json:"feeBurned"`
}

// LiquidityRequest adjusts a position.
type LiquidityRequest struct {
	Caller         string   `json:"caller"`
	Pair           PairSpec `json:"pair"`
	TickLower      int32    `json:"tickLower"`
	TickUpper      int32    `json:"tickUpper"`
	LiquidityDelta int64    `json:"liquidityDelta"`
}

// LiquidityResponse reports one settled liquidity adjustment.
type LiquidityResponse struct {
	Status      string `json:"status"`
	Amount0     int64  `json:"amount0"`
	Amount1     int64  `json:"amount1"`
	FeesAmount0 int64  `json:"feesAmount0"`
	FeesAmount1 int64  `json:"feesAmount1"`
}

// DelegateRegisterRequest binds a BLS delegate key to a caller.
type DelegateRegisterRequest struct {
	Caller    string `json:"caller"`
	PublicKey string `json:"publicKey"`
}

// DelegateRevokeRequest removes a delegate key. Target may revoke its own
// key; the owner may revoke any.
type DelegateRevokeRequest struct {
	Caller string `json:"caller"`
	Target string `json:"target"`
}

// DelegateInfo reports whether an address has a registered delegate.
type DelegateInfo struct {
	Address    string `json:"address"`
	Registered bool   `json:"registered"`
}

// ParamsInfo is the wire form of the live settlement parameters.
type ParamsInfo struct {
	Owner             string `json:"owner"`
	Paused            bool   `json:"paused"`
	IncentivesEnabled bool   `json:"incentivesEnabled"`
	IncentiveToken    string `json:"incentiveToken"`
	RewardDivisor     uint64 `json:"rewardDivisor"`
	GaslessFeeDivisor uint64 `json:"gaslessFeeDivisor"`
	FixedBonus        uint64 `json:"fixedBonus"`
}

// AssetInfo reports whether an asset is flagged as a reference asset.
type AssetInfo struct {
	Address   string `json:"address"`
	Reference bool   `json:"reference"`
}

// TokenInfo reports an incentive-token balance.
type TokenInfo struct {
	Address     string `json:"address"`
	Balance     uint64 `json:"balance"`
	TotalSupply uint64 `json:"totalSupply"`
}

// DomainResponse carries the EIP-712 domain separator clients sign against.
type DomainResponse struct {
	DomainSeparator string `json:"domainSeparator"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// EventUpdate is the wire form of one settlement event pushed over
// WebSocket.
type EventUpdate struct {
	Type       string            `json:"type"`
	Event      string            `json:"event"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"timestamp"`
}

// WSSubscribeRequest is a client subscription message.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}
