package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/swapcover/swapcover/pkg/crypto"
	"github.com/swapcover/swapcover/pkg/ledger"
	"github.com/swapcover/swapcover/pkg/settle"
	"github.com/swapcover/swapcover/pkg/storage"
	"github.com/swapcover/swapcover/pkg/token"
)

// Server exposes the settlement layer over REST and WebSocket.
type Server struct {
	dispatch *settle.Router
	token    *token.Token
	eventLog *storage.EventLog
	router   *mux.Router
	hub      *Hub
}

// NewServer builds the HTTP server around a settlement router. Register the
// returned server's hub with the event recorder to stream events over
// WebSocket.
func NewServer(dispatch *settle.Router, tok *token.Token) *Server {
	s := &Server{
		dispatch: dispatch,
		token:    tok,
		router:   mux.NewRouter(),
		hub:      NewHub(),
	}
	s.setupRoutes()
	return s
}

// Hub returns the WebSocket hub, which implements settle.Sink.
func (s *Server) Hub() *Hub { return s.hub }

// SetEventLog enables the /events history endpoint.
func (s *Server) SetEventLog(l *storage.EventLog) { s.eventLog = l }

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Pool endpoints
	api.HandleFunc("/pools", s.handleListPools).Methods("GET")
	api.HandleFunc("/pools", s.handleOpenMarket).Methods("POST")
	api.HandleFunc("/pools/lookup", s.handleGetPool).Methods("POST")

	// Settlement endpoints
	api.HandleFunc("/swaps", s.handleSwap).Methods("POST")
	api.HandleFunc("/swaps/gasless", s.handleGaslessSwap).Methods("POST")
	api.HandleFunc("/swaps/verify", s.handleVerifyAuthorization).Methods("POST")
	api.HandleFunc("/liquidity", s.handleAdjustLiquidity).Methods("POST")

	// Delegate signer registration
	api.HandleFunc("/delegates", s.handleRegisterDelegate).Methods("POST")
	api.HandleFunc("/delegates/revoke", s.handleRevokeDelegate).Methods("POST")
	api.HandleFunc("/delegates/{address}", s.handleGetDelegate).Methods("GET")

	// Parameter and token queries
	api.HandleFunc("/params", s.handleGetParams).Methods("GET")
	api.HandleFunc("/params/domain", s.handleGetDomain).Methods("GET")
	api.HandleFunc("/assets/{address}", s.handleGetAsset).Methods("GET")
	api.HandleFunc("/token/{address}", s.handleGetTokenBalance).Methods("GET")

	// Event history (enabled when a persistent event log is configured)
	api.HandleFunc("/events", s.handleGetEvents).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start runs the WebSocket hub and serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	log.Printf("[api] server starting on %s", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	states := s.dispatch.Pools().ListPools()
	response := make([]PoolInfo, len(states))
	for i, st := range states {
		response[i] = poolInfo(st)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	var spec PairSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	pair, ok := spec.ToPair()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pair", "")
		return
	}
	st, err := s.dispatch.Pools().GetPool(pair)
	if err != nil {
		respondError(w, http.StatusNotFound, "pool not found", err.Error())
		return
	}
	respondJSON(w, poolInfo(st))
}

func (s *Server) handleOpenMarket(w http.ResponseWriter, r *http.Request) {
	var req OpenMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	pair, ok := req.Pair.ToPair()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pair", "")
		return
	}

	tick, err := s.dispatch.OpenMarket(common.HexToAddress(req.Caller), pair, req.InitialPrice)
	if err != nil {
		respondSettleError(w, err)
		return
	}

	log.Printf("[api] market opened: pair=%s tick=%d", pair.ID().Hex(), tick)
	respondJSON(w, OpenMarketResponse{Status: "opened", PairID: pair.ID().Hex(), Tick: tick})
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	pair, ok := req.Pair.ToPair()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pair", "")
		return
	}
	auxData, err := decodeHex(req.AuxData)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid auxData", err.Error())
		return
	}

	result, err := s.dispatch.Swap(common.HexToAddress(req.Caller), pair, ledger.SwapParams{
		ZeroForOne:   req.ZeroForOne,
		AmountIn:     req.AmountIn,
		MinAmountOut: req.MinAmountOut,
	}, auxData)
	if err != nil {
		respondSettleError(w, err)
		return
	}

	respondJSON(w, SwapResponse{
		Status:    "settled",
		Amount0:   result.Delta.Amount0,
		Amount1:   result.Delta.Amount1,
		USDVolume: result.USDVolume,
		Minted:    result.Minted,
		FeeBurned: result.FeeBurned,
	})
}

func (s *Server) handleGaslessSwap(w http.ResponseWriter, r *http.Request) {
	auth, kind, signature, auxData, ok := s.decodeGaslessRequest(w, r)
	if !ok {
		return
	}

	result, err := s.dispatch.ExecuteGaslessSwap(auth, kind, signature, auxData)
	if err != nil {
		respondSettleError(w, err)
		return
	}

	log.Printf("[api] gasless swap settled: caller=%s volume=%d fee=%d",
		auth.Caller.Hex(), result.USDVolume, result.FeeBurned)
	respondJSON(w, SwapResponse{
		Status:    "settled",
		Amount0:   result.Delta.Amount0,
		Amount1:   result.Delta.Amount1,
		USDVolume: result.USDVolume,
		Minted:    result.Minted,
		FeeBurned: result.FeeBurned,
	})
}

func (s *Server) handleVerifyAuthorization(w http.ResponseWriter, r *http.Request) {
	auth, kind, signature, auxData, ok := s.decodeGaslessRequest(w, r)
	if !ok {
		return
	}
	if err := s.dispatch.VerifyAuthorization(auth, kind, signature, auxData); err != nil {
		respondSettleError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "valid"})
}

// decodeGaslessRequest parses and validates the shared shape of gasless swap
// submissions. Responds with the error itself when validation fails.
func (s *Server) decodeGaslessRequest(w http.ResponseWriter, r *http.Request) (*crypto.SwapAuthorization, crypto.SignerKind, []byte, []byte, bool) {
	var req GaslessSwapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return nil, 0, nil, nil, false
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return nil, 0, nil, nil, false
	}
	pair, ok := req.Pair.ToPair()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pair", "")
		return nil, 0, nil, nil, false
	}
	if req.Signature == "" {
		respondError(w, http.StatusBadRequest, "missing signature", "")
		return nil, 0, nil, nil, false
	}
	signature, err := decodeHex(req.Signature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid signature encoding", err.Error())
		return nil, 0, nil, nil, false
	}
	auxData, err := decodeHex(req.AuxData)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid auxData", err.Error())
		return nil, 0, nil, nil, false
	}

	auth := &crypto.SwapAuthorization{
		Caller: common.HexToAddress(req.Caller),
		Pair:   pair,
		Swap: ledger.SwapParams{
			ZeroForOne:   req.ZeroForOne,
			AmountIn:     req.AmountIn,
			MinAmountOut: req.MinAmountOut,
		},
		AuxDataHash:       crypto.HashAuxData(auxData),
		GaslessFeeDivisor: req.GaslessFeeDivisor,
		Deadline:          req.Deadline,
	}
	return auth, crypto.SignerKind(req.SignerKind), signature, auxData, true
}

func (s *Server) handleAdjustLiquidity(w http.ResponseWriter, r *http.Request) {
	var req LiquidityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	pair, ok := req.Pair.ToPair()
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid pair", "")
		return
	}

	result, err := s.dispatch.AdjustLiquidity(common.HexToAddress(req.Caller), pair, ledger.LiquidityParams{
		TickLower:      req.TickLower,
		TickUpper:      req.TickUpper,
		LiquidityDelta: req.LiquidityDelta,
	})
	if err != nil {
		respondSettleError(w, err)
		return
	}

	respondJSON(w, LiquidityResponse{
		Status:      "settled",
		Amount0:     result.Delta.Amount0,
		Amount1:     result.Delta.Amount1,
		FeesAmount0: result.Fees.Amount0,
		FeesAmount1: result.Fees.Amount1,
	})
}

func (s *Server) handleRegisterDelegate(w http.ResponseWriter, r *http.Request) {
	var req DelegateRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) {
		respondError(w, http.StatusBadRequest, "invalid caller address", "")
		return
	}
	raw, err := decodeHex(req.PublicKey)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid public key encoding", err.Error())
		return
	}
	pk, err := crypto.ParseDelegatePubKey(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid delegate key", err.Error())
		return
	}
	if err := s.dispatch.RegisterDelegate(common.HexToAddress(req.Caller), pk); err != nil {
		respondSettleError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "registered"})
}

func (s *Server) handleRevokeDelegate(w http.ResponseWriter, r *http.Request) {
	var req DelegateRevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if !common.IsHexAddress(req.Caller) || !common.IsHexAddress(req.Target) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	if err := s.dispatch.RevokeDelegate(common.HexToAddress(req.Caller), common.HexToAddress(req.Target)); err != nil {
		respondSettleError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "revoked"})
}

func (s *Server) handleGetDelegate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	addr := common.HexToAddress(addressStr)
	respondJSON(w, DelegateInfo{
		Address:    addr.Hex(),
		Registered: s.dispatch.HasDelegate(addr),
	})
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	p := s.dispatch.Params()
	rewardDivisor, gaslessFeeDivisor, fixedBonus := p.Rates()
	respondJSON(w, ParamsInfo{
		Owner:             p.Owner().Hex(),
		Paused:            p.Paused(),
		IncentivesEnabled: p.IncentivesEnabled(),
		IncentiveToken:    p.IncentiveToken().Hex(),
		RewardDivisor:     rewardDivisor,
		GaslessFeeDivisor: gaslessFeeDivisor,
		FixedBonus:        fixedBonus,
	})
}

func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	sep, err := s.dispatch.DomainSeparator()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "domain separator", err.Error())
		return
	}
	respondJSON(w, DomainResponse{DomainSeparator: hexutil.Encode(sep)})
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	addr := common.HexToAddress(addressStr)
	respondJSON(w, AssetInfo{
		Address:   addr.Hex(),
		Reference: s.dispatch.Params().IsReferenceAsset(addr),
	})
}

func (s *Server) handleGetTokenBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	addressStr := vars["address"]

	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}
	if s.token == nil {
		respondError(w, http.StatusNotFound, "incentive token not configured", "")
		return
	}

	addr := common.HexToAddress(addressStr)
	respondJSON(w, TokenInfo{
		Address:     addr.Hex(),
		Balance:     s.token.BalanceOf(addr),
		TotalSupply: s.token.TotalSupply(),
	})
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		respondError(w, http.StatusNotFound, "event log not configured", "")
		return
	}
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	records, err := s.eventLog.Recent(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "event log read failed", err.Error())
		return
	}
	respondJSON(w, records)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func decodeHex(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hexutil.Decode(s)
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// respondSettleError maps settlement errors onto HTTP statuses.
func respondSettleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, settle.ErrUnauthorized),
		errors.Is(err, settle.ErrInvalidSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, settle.ErrOperationPaused):
		status = http.StatusServiceUnavailable
	case errors.Is(err, settle.ErrDeadlineExceeded),
		errors.Is(err, settle.ErrNoReferenceAssetInvolved),
		errors.Is(err, settle.ErrTokenNotConfigured),
		errors.Is(err, settle.ErrHookNotAllowed),
		errors.Is(err, settle.ErrZeroAddress),
		errors.Is(err, settle.ErrInvalidDelegateKey):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, settle.ErrReentrantCall):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrPoolNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrPoolExists),
		errors.Is(err, ledger.ErrInvalidPrice),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSlippage),
		errors.Is(err, ledger.ErrInsufficientLiquidity):
		status = http.StatusUnprocessableEntity
	}
	respondError(w, status, "settlement failed", err.Error())
}
