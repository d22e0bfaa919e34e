package gateway

import (
    "context"
    "crypto/tls"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"
    "google.golang.org/grpc"
    "google.golang.org/grpc/backoff"
    "google.golang.org/grpc/credentials"
    "google.golang.org/grpc/credentials/insecure"
    "google.golang.org/grpc/keepalive"

    "github.com/amirimatin/go-leaderwatch/pkg/internal/logutil"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

// ErrNoLeader is returned by Conn when no leader announcement has resolved.
var ErrNoLeader = errors.New("gateway: no leader known")

// Retriever couples a leader.Retriever with gRPC connection management toward
// whichever address is currently announced. Each new announcement warms a
// connection in the background; Conn hands out the connection for the leader
// known at call time. Callers invoke their own service stubs on the returned
// connection.
type Retriever struct {
    *leader.Retriever

    cm      *ConnManager
    logger  *log.Logger
    tlsCfg  *tls.Config
    timeout time.Duration
}

// Option customizes a gateway Retriever.
type Option func(*Retriever)

// WithTLS dials leaders with the given TLS config instead of plaintext.
func WithTLS(cfg *tls.Config) Option { return func(g *Retriever) { g.tlsCfg = cfg } }

// WithDialTimeout bounds each background warm-up dial.
func WithDialTimeout(d time.Duration) Option {
    return func(g *Retriever) { if d > 0 { g.timeout = d } }
}

// WithConnTTL sets the idle TTL for cached connections.
func WithConnTTL(ttl time.Duration) Option {
    return func(g *Retriever) { g.cm = NewConnManager(ttl, g.dialCtx) }
}

// withDialer replaces the dialer; used by tests to avoid real sockets.
func withDialer(d func(ctx context.Context, target string) (*grpc.ClientConn, error)) Option {
    return func(g *Retriever) { g.cm = NewConnManager(0, d) }
}

// NewRetriever constructs a gateway Retriever. logger may be nil.
func NewRetriever(logger *log.Logger, opts ...Option) *Retriever {
    if logger == nil {
        logger = log.Default()
    }
    g := &Retriever{Retriever: leader.New(logger), logger: logger, timeout: 3 * time.Second}
    for _, o := range opts {
        o(g)
    }
    if g.cm == nil {
        g.cm = NewConnManager(0, g.dialCtx)
    }
    return g
}

// NotifyLeaderAddress shadows the embedded retriever's method: the
// announcement is delivered first so waiters unblock, then a connection to
// the new leader is warmed in the background.
func (g *Retriever) NotifyLeaderAddress(addr string, session uuid.UUID) {
    g.Retriever.NotifyLeaderAddress(addr, session)
    if addr == "" {
        return
    }
    go func() {
        ctx, cancel := context.WithTimeout(context.Background(), g.timeout)
        defer cancel()
        _, rel, err := g.cm.Get(ctx, addr)
        if err != nil {
            logutil.Warnf(g.logger, "gateway: warm-up dial to %s failed: %v", addr, err)
            return
        }
        rel()
    }()
}

// Conn returns a client connection to the current leader together with a
// release func the caller must invoke when done. It fails with ErrNoLeader
// while no announcement has resolved, and with the propagated election error
// when the current cell failed.
func (g *Retriever) Conn(ctx context.Context) (*grpc.ClientConn, func(), error) {
    a, ok, err := g.Peek()
    if err != nil {
        return nil, func(){}, err
    }
    if !ok {
        return nil, func(){}, ErrNoLeader
    }
    return g.cm.Get(ctx, a.Addr)
}

// AwaitConn blocks until a leader is known (or ctx is done), then returns a
// connection to it.
func (g *Retriever) AwaitConn(ctx context.Context) (*grpc.ClientConn, func(), error) {
    a, err := g.Current().Await(ctx)
    if err != nil {
        return nil, func(){}, err
    }
    return g.cm.Get(ctx, a.Addr)
}

// Close releases all cached connections.
func (g *Retriever) Close() { g.cm.Close() }

func (g *Retriever) dialCtx(ctx context.Context, target string) (*grpc.ClientConn, error) {
    opts := []grpc.DialOption{
        grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig, MinConnectTimeout: 500 * time.Millisecond}),
        grpc.WithKeepaliveParams(keepalive.ClientParameters{Time: 20 * time.Second, Timeout: 5 * time.Second, PermitWithoutStream: true}),
        grpc.WithBlock(),
    }
    if g.tlsCfg != nil {
        opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(g.tlsCfg)))
    } else {
        opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
    }
    return grpc.DialContext(ctx, target, opts...)
}

var _ leader.Listener = (*Retriever)(nil)
