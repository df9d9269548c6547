package settle

import (
	"sync"

	"go.uber.org/zap"
)

// Event types emitted by the settlement layer.
const (
	EventMarketOpened       = "market.opened"
	EventLiquidityModified  = "liquidity.modified"
	EventSwapExecuted       = "swap.executed"
	EventIncentiveMinted    = "incentive.minted"
	EventFeeBurned          = "fee.burned"
	EventRatesUpdated       = "params.rates_updated"
	EventPausedChanged      = "params.paused_changed"
	EventIncentivesChanged  = "params.incentives_changed"
	EventReferenceAsset     = "params.reference_asset"
	EventIncentiveToken     = "params.incentive_token"
	EventDelegateRegistered = "delegate.registered"
	EventDelegateRevoked    = "delegate.revoked"
)

// Event is one settlement occurrence with string attributes.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// Sink consumes emitted events.
type Sink interface {
	Emit(Event)
}

// Recorder fans events out to registered sinks. Events produced inside a unit
// of work are staged by the dispatcher and pushed here only on commit.
type Recorder struct {
	mu    sync.RWMutex
	sinks []Sink
	log   *zap.SugaredLogger
}

func NewRecorder(log *zap.SugaredLogger) *Recorder {
	return &Recorder{log: log}
}

func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

func (r *Recorder) Emit(evt Event) {
	if r.log != nil {
		r.log.Debugw("event", "type", evt.Type, "attrs", evt.Attributes)
	}
	r.mu.RLock()
	sinks := r.sinks
	r.mu.RUnlock()
	for _, s := range sinks {
		s.Emit(evt)
	}
}
