package watcher

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/amirimatin/go-leaderwatch/pkg/internal/logutil"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
    obsmetrics "github.com/amirimatin/go-leaderwatch/pkg/observability/metrics"
    "github.com/amirimatin/go-leaderwatch/pkg/transport"
)

// Facade exposes the high-level API for consumers embedding a leader watcher.
type Facade interface {
    Start(ctx context.Context) error
    Peek() (leader.Announcement, bool, error)
    Current() *leader.Pending
    Status(ctx context.Context) (*transport.LeaderStatus, error)
    Stop(ctx context.Context) error
}

// Watcher is the concrete implementation of the Facade. It wires an election
// service into a leader.Retriever and layers events, metrics and an optional
// management endpoint on top.
type Watcher struct {
    opts Options
    mu   sync.Mutex
    run  struct {
        started bool
        closed  bool
    }
    ret *leader.Retriever
    eb  eventBus
}

// New constructs a new Watcher from validated options. It performs no network
// activity; call Start to launch the election service.
func New(opts Options) (*Watcher, error) {
    if err := opts.Validate(); err != nil {
        return nil, err
    }
    return &Watcher{opts: opts, ret: leader.New(opts.Logger)}, nil
}

// Close is a convenience alias for Stop with a background context.
func (w *Watcher) Close() error {
    return w.Stop(context.Background())
}

// Start launches the election service and, when configured, the management
// endpoint. The watcher itself is the listener handed to the election service
// so it can layer events and metrics over the retriever.
func (w *Watcher) Start(ctx context.Context) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    if w.run.started {
        return nil
    }
    w.run.started = true
    // Register metrics once
    obsmetrics.Register()

    if err := w.opts.Election.Start(ctx, w); err != nil {
        return err
    }
    if w.opts.RPCServer != nil {
        statusFn := func(ctx context.Context) ([]byte, error) { return w.statusLocalJSON(ctx) }
        if err := w.opts.RPCServer.Start(ctx, statusFn); err != nil {
            return err
        }
        logutil.Infof(w.opts.Logger, "management endpoint listening at %s (leader/metrics/healthz)", w.opts.RPCServer.Addr())
    }
    return nil
}

// Retriever exposes the underlying leader cache for direct consumption.
func (w *Watcher) Retriever() *leader.Retriever { return w.ret }

// Peek returns the current leader view without blocking.
func (w *Watcher) Peek() (leader.Announcement, bool, error) { return w.ret.Peek() }

// Current returns the presently installed announcement cell.
func (w *Watcher) Current() *leader.Pending { return w.ret.Current() }

// Status synthesizes a LeaderStatus snapshot for tooling and the management
// endpoint.
func (w *Watcher) Status(ctx context.Context) (*transport.LeaderStatus, error) {
    s := &transport.LeaderStatus{}
    a, ok, err := w.ret.Peek()
    switch {
    case err != nil:
        s.Error = err.Error()
    case ok:
        s.Known = true
        s.Addr = a.Addr
        s.Session = a.Session.String()
    }
    return s, nil
}

// Stop shuts down the election service and the management server.
func (w *Watcher) Stop(ctx context.Context) error {
    w.mu.Lock()
    defer w.mu.Unlock()
    if w.run.closed {
        return nil
    }
    w.run.closed = true
    _ = w.opts.Election.Stop()
    if w.opts.RPCServer != nil {
        _ = w.opts.RPCServer.Stop(ctx)
    }
    return nil
}

// NotifyLeaderAddress implements leader.Listener by delegating to the
// retriever, then publishing the app-facing event and updating metrics.
// Empty addresses are ignored before any side effect, mirroring the
// retriever's guard.
func (w *Watcher) NotifyLeaderAddress(addr string, session uuid.UUID) {
    if addr == "" {
        return
    }
    w.ret.NotifyLeaderAddress(addr, session)
    obsmetrics.LeaderChanges.Inc()
    obsmetrics.LeaderKnown.Set(1)
    a := leader.Announcement{Addr: addr, Session: session}
    w.eb.publish(Event{Type: EventLeaderChanged, At: time.Now(), Leader: &a})
    if w.opts.OnLeaderChange != nil { w.opts.OnLeaderChange(a) }
}

// NotifyError implements leader.Listener.
func (w *Watcher) NotifyError(err error) {
    if err == nil {
        return
    }
    w.ret.NotifyError(err)
    obsmetrics.WatchErrors.Inc()
    w.eb.publish(Event{Type: EventWatchError, At: time.Now(), Err: err.Error()})
}

func (w *Watcher) statusLocalJSON(ctx context.Context) ([]byte, error) {
    st, err := w.Status(ctx)
    if err != nil { return nil, err }
    return json.Marshal(st)
}

var _ leader.Listener = (*Watcher)(nil)
var _ Facade = (*Watcher)(nil)
