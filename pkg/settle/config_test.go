package settle

import (
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/swapcover/swapcover/pkg/ledger"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureSink) Emit(evt Event) {
	c.mu.Lock()
	c.events = append(c.events, evt)
	c.mu.Unlock()
}

func (c *captureSink) ofType(eventType string) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, evt := range c.events {
		if evt.Type == eventType {
			out = append(out, evt)
		}
	}
	return out
}

func TestParamsOwnerGating(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	stranger := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	p := newTestParams(t, owner)

	checks := []struct {
		name string
		call func(caller common.Address) error
	}{
		{"SetReferenceAsset", func(c common.Address) error { return p.SetReferenceAsset(c, stranger, true) }},
		{"SetPaused", func(c common.Address) error { return p.SetPaused(c, true) }},
		{"SetIncentiveToken", func(c common.Address) error { return p.SetIncentiveToken(c, stranger) }},
		{"SetIncentivesEnabled", func(c common.Address) error { return p.SetIncentivesEnabled(c, true) }},
		{"SetRates", func(c common.Address) error { return p.SetRates(c, 1, 1, 0) }},
	}
	for _, tc := range checks {
		if err := tc.call(stranger); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s by stranger: got %v, want ErrUnauthorized", tc.name, err)
		}
		if err := tc.call(owner); err != nil {
			t.Fatalf("%s by owner: %v", tc.name, err)
		}
	}
}

func TestParamsIncentiveTokenZeroAddress(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	p := newTestParams(t, owner)

	if err := p.SetIncentiveToken(owner, common.Address{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero token: got %v, want ErrZeroAddress", err)
	}
}

func TestParamsReferenceFlags(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	asset0 := common.HexToAddress("0x0000000000000000000000000000000000000001")
	asset1 := common.HexToAddress("0x0000000000000000000000000000000000000002")
	p := newTestParams(t, owner)

	if err := p.SetReferenceAsset(owner, asset0, true); err != nil {
		t.Fatalf("SetReferenceAsset: %v", err)
	}
	pair := ledger.AssetPair{Asset0: asset0, Asset1: asset1}
	ref0, ref1 := p.ReferenceFlags(pair)
	if !ref0 || ref1 {
		t.Fatalf("ReferenceFlags = (%v, %v), want (true, false)", ref0, ref1)
	}

	// Unflagging removes the entry.
	if err := p.SetReferenceAsset(owner, asset0, false); err != nil {
		t.Fatalf("unflag: %v", err)
	}
	if p.IsReferenceAsset(asset0) {
		t.Fatal("asset0 still flagged after unflag")
	}
}

func TestParamsSettersEmitEvents(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	tokenAddr := common.HexToAddress("0x0000000000000000000000000000000000000099")
	events := NewRecorder(nil)
	sink := &captureSink{}
	events.AddSink(sink)
	p := NewParams(owner, events)

	if err := p.SetRates(owner, 100, 50, 5); err != nil {
		t.Fatalf("SetRates: %v", err)
	}
	if err := p.SetIncentiveToken(owner, tokenAddr); err != nil {
		t.Fatalf("SetIncentiveToken: %v", err)
	}
	if err := p.SetPaused(owner, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	if got := sink.ofType(EventRatesUpdated); len(got) != 1 {
		t.Fatalf("rates events = %d, want 1", len(got))
	} else if got[0].Attributes["gaslessFeeDivisor"] != "50" {
		t.Fatalf("rates event divisor = %q, want 50", got[0].Attributes["gaslessFeeDivisor"])
	}
	if got := sink.ofType(EventIncentiveToken); len(got) != 1 {
		t.Fatalf("token events = %d, want 1", len(got))
	}
	if got := sink.ofType(EventPausedChanged); len(got) != 1 {
		t.Fatalf("paused events = %d, want 1", len(got))
	}
}
