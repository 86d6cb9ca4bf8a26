package alerts

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/coinwatch/confluence/internal/domain"
)

// wireAlert is the JSON shape pushed to dashboard subscribers over the
// broadcaster; it carries the decoded wallet snapshots rather than the raw
// msgpack bytes so browser clients don't need a msgpack decoder.
type wireAlert struct {
	ID        string           `json:"id"`
	Kind      domain.AlertKind `json:"kind"`
	Chain     string           `json:"chain"`
	Token     string           `json:"token"`
	Side      domain.Side      `json:"side"`
	Wallets   []string         `json:"wallets"`
	WindowMS  int64            `json:"window_ms"`
	Snapshots []WalletSnapshot `json:"wallet_snapshots,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Broadcaster is an internal, in-process alert-feed Sink: it holds a set of
// live websocket subscribers and pushes every dispatched AlertRecord to each
// of them. This is distinct from the external chat transport (spec.md §6) —
// it exists to drive the internal status surface's live feed.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[*websocket.Conn]struct{}
	log  zerolog.Logger
}

func NewBroadcaster(log zerolog.Logger) *Broadcaster {
	return &Broadcaster{subs: make(map[*websocket.Conn]struct{}), log: log.With().Str("component", "alert_broadcaster").Logger()}
}

func (b *Broadcaster) Name() string { return "internal_broadcast" }

// ServeHTTP upgrades a request to a websocket connection and registers it as
// a subscriber until the client disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	b.register(conn)
	defer b.unregister(conn)

	// Block on the connection's lifetime; this handler doesn't expect
	// inbound messages from the subscriber.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (b *Broadcaster) register(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[conn] = struct{}{}
}

func (b *Broadcaster) unregister(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, conn)
}

// Deliver pushes a to every live subscriber. Per spec.md §7, a sink failure
// (one dead subscriber) must never affect delivery to the others.
func (b *Broadcaster) Deliver(ctx context.Context, a domain.AlertRecord) error {
	snapshots, _ := DecodeSnapshot(a.PricesSnapshot)
	payload := wireAlert{
		ID: a.ID, Kind: a.Kind, Chain: string(a.Chain), Token: a.Token, Side: a.Side,
		Wallets: a.Wallets, WindowMS: a.WindowMS, Snapshots: snapshots, CreatedAt: a.CreatedAt,
	}

	b.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(b.subs))
	for c := range b.subs {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, conn, payload)
		cancel()
		if err != nil {
			b.log.Debug().Err(err).Msg("dropping unresponsive subscriber")
			b.unregister(conn)
		}
	}
	return nil
}
