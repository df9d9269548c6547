package p2p

import (
	"context"
	"sync"
	"time"

	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/swapcover/swapcover/pkg/settle"
)

const topicEvents = "swapcover-events"

// EventHandler receives events gossiped by other settlement nodes.
type EventHandler func(EventWire)

// Gossip publishes committed settlement events to peers over libp2p pubsub
// and delivers peer events to a local handler. It implements settle.Sink, so
// registering it with the event recorder streams every committed event to
// the mesh.
type Gossip struct {
	h     host.Host
	ps    *pubsub.PubSub
	log   *zap.SugaredLogger
	topic *pubsub.Topic
	sub   *pubsub.Subscription

	outbound chan EventWire

	muH     sync.RWMutex
	handler EventHandler
}

type GossipConfig struct {
	ListenAddr string
	Bootstrap  []string
	Logger     *zap.SugaredLogger
}

// NewGossip starts the libp2p host, joins the event topic, and begins
// publishing and receiving. Bootstrap peers that fail to connect are logged
// and skipped.
func NewGossip(ctx context.Context, cfg GossipConfig) (*Gossip, error) {
	var opts []libp2p.Option
	if cfg.ListenAddr != "" {
		maddr, err := ma.NewMultiaddr(cfg.ListenAddr)
		if err != nil {
			return nil, err
		}
		opts = append(opts, libp2p.ListenAddrs(maddr))
	}
	h, err := libp2p.New(opts...)
	if err != nil {
		return nil, err
	}
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}

	g := &Gossip{
		h:        h,
		ps:       ps,
		log:      cfg.Logger,
		outbound: make(chan EventWire, 256),
	}

	for _, bs := range cfg.Bootstrap {
		if err := connectMultiaddr(ctx, h, bs); err != nil && cfg.Logger != nil {
			cfg.Logger.Warnw("bootstrap_connect_failed", "addr", bs, "err", err)
		}
	}

	if g.topic, err = ps.Join(topicEvents); err != nil {
		return nil, err
	}
	if g.sub, err = g.topic.Subscribe(); err != nil {
		return nil, err
	}

	go g.publishLoop(ctx)
	go g.receiveLoop(ctx)

	if cfg.Logger != nil {
		cfg.Logger.Infow("gossip_ready", "peer", h.ID().String(), "listen", cfg.ListenAddr)
	}
	return g, nil
}

func connectMultiaddr(ctx context.Context, h host.Host, addr string) error {
	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return err
	}
	info, err := peer.AddrInfoFromP2pAddr(m)
	if err != nil {
		return err
	}
	return h.Connect(ctx, *info)
}

// Host exposes the underlying libp2p host.
func (g *Gossip) Host() host.Host { return g.h }

// Close cancels the subscription, leaves the topic, and shuts down the host.
// The publish and receive loops exit through their context; Close releases
// what the context does not.
func (g *Gossip) Close() error {
	g.sub.Cancel()
	if err := g.topic.Close(); err != nil && g.log != nil {
		g.log.Warnw("topic_close_failed", "err", err)
	}
	return g.h.Close()
}

// SetHandler registers the callback for events received from peers.
func (g *Gossip) SetHandler(fn EventHandler) {
	g.muH.Lock()
	g.handler = fn
	g.muH.Unlock()
}

// Emit queues a committed settlement event for publication. Emit never
// blocks the settlement path: when the outbound buffer is full the event is
// dropped and counted against the log.
func (g *Gossip) Emit(evt settle.Event) {
	wire := EventWire{
		Type:       evt.Type,
		Attributes: evt.Attributes,
		EmittedAt:  time.Now().UnixMilli(),
	}
	select {
	case g.outbound <- wire:
	default:
		if g.log != nil {
			g.log.Warnw("event_gossip_dropped", "type", evt.Type)
		}
	}
}

var _ settle.Sink = (*Gossip)(nil)

func (g *Gossip) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case wire := <-g.outbound:
			data, err := gobEncode(wire)
			if err != nil {
				continue
			}
			if err := g.topic.Publish(ctx, data); err != nil && g.log != nil {
				g.log.Warnw("event_publish_failed", "type", wire.Type, "err", err)
			}
		}
	}
}

func (g *Gossip) receiveLoop(ctx context.Context) {
	for {
		msg, err := g.sub.Next(ctx)
		if err != nil {
			return
		}
		// Skip our own publications; local sinks already saw them.
		if msg.ReceivedFrom == g.h.ID() {
			continue
		}
		var wire EventWire
		if err := gobDecode(msg.Data, &wire); err != nil {
			continue
		}

		g.muH.RLock()
		fn := g.handler
		g.muH.RUnlock()
		if fn != nil {
			fn(wire)
		}
	}
}
