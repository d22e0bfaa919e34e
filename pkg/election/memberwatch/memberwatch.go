package memberwatch

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "net"
    "sync"
    "time"

    "github.com/google/uuid"
    "github.com/hashicorp/memberlist"

    "github.com/amirimatin/go-leaderwatch/pkg/election"
    "github.com/amirimatin/go-leaderwatch/pkg/internal/logutil"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

// Options configures the memberlist-based election watcher.
type Options struct {
    // NodeID is the unique node identifier.
    NodeID string

    // Bind is the gossip bind address in host:port form (e.g. ":7946").
    Bind string

    // Advertise is the advertised gossip address (host:port) peers use to
    // reach this node. If empty, memberlist derives it from Bind.
    Advertise string

    // ServiceAddr is the address the leader's service is reachable under. It
    // is propagated in node metadata so every watcher can announce it when
    // this node is deemed leader. If empty, the gossip address is announced.
    ServiceAddr string

    // Seeds are gossip addresses to join at Start.
    Seeds []string

    // Logger is optional. If nil, log.Default() is used.
    Logger *log.Logger

    // Tuning parameters (optional). Zero means use defaults.
    ProbeInterval time.Duration
    ProbeTimeout  time.Duration
    SuspicionMult int
}

// impl derives leadership from the gossip view: the live member with the
// smallest node ID leads. Every node converges on the same pick without
// coordination; each observed change is announced with a fresh session id.
type impl struct {
    mu     sync.Mutex
    opts   Options
    ml     *memberlist.Memberlist
    kick   chan struct{}
    closed bool
    stop   chan struct{}
}

// New constructs a memberlist-backed election watcher.
func New(opts Options) (election.Service, error) {
    if opts.NodeID == "" {
        return nil, fmt.Errorf("memberwatch: empty NodeID")
    }
    if opts.Bind == "" {
        return nil, fmt.Errorf("memberwatch: empty Bind address")
    }
    if opts.Logger == nil {
        opts.Logger = log.Default()
    }
    return &impl{
        opts: opts,
        kick: make(chan struct{}, 1),
        stop: make(chan struct{}),
    }, nil
}

// Start creates the underlying memberlist instance, joins the configured
// seeds and launches the watch loop which pushes announcements into l.
func (m *impl) Start(ctx context.Context, l leader.Listener) error {
    if l == nil {
        return fmt.Errorf("memberwatch: nil listener")
    }
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.ml != nil {
        return nil
    }

    cfg := memberlist.DefaultLANConfig()
    cfg.Name = m.opts.NodeID
    host, portStr, err := net.SplitHostPort(m.opts.Bind)
    if err != nil {
        return fmt.Errorf("memberwatch: invalid bind address %q: %w", m.opts.Bind, err)
    }
    port, err := parsePort(portStr)
    if err != nil {
        return err
    }
    cfg.BindAddr = host
    cfg.BindPort = port

    if m.opts.Advertise != "" {
        ahost, aportStr, err := net.SplitHostPort(m.opts.Advertise)
        if err != nil {
            return fmt.Errorf("memberwatch: invalid advertise address %q: %w", m.opts.Advertise, err)
        }
        aport, err := parsePort(aportStr)
        if err != nil {
            return err
        }
        cfg.AdvertiseAddr = ahost
        cfg.AdvertisePort = aport
    }

    if m.opts.ProbeInterval > 0 {
        cfg.ProbeInterval = m.opts.ProbeInterval
    }
    if m.opts.ProbeTimeout > 0 {
        cfg.ProbeTimeout = m.opts.ProbeTimeout
    }
    if m.opts.SuspicionMult > 0 {
        cfg.SuspicionMult = m.opts.SuspicionMult
    }

    // Wire delegates: membership events kick a recompute; node meta carries
    // the service address the gossip layer should announce for us.
    cfg.Events = &eventDelegate{kick: m.kickRecompute}
    metaBytes, _ := json.Marshal(map[string]string{"addr": m.opts.ServiceAddr})
    cfg.Delegate = &nodeDelegate{meta: metaBytes}

    ml, err := memberlist.Create(cfg)
    if err != nil {
        return err
    }
    m.ml = ml

    if len(m.opts.Seeds) > 0 {
        if _, err := ml.Join(m.opts.Seeds); err != nil {
            logutil.Warnf(m.opts.Logger, "memberwatch: join seeds: %v", err)
        }
    }

    go m.watchLoop(ctx, l)
    go func() {
        <-ctx.Done()
        _ = m.Stop()
    }()
    return nil
}

func (m *impl) Stop() error {
    m.mu.Lock()
    defer m.mu.Unlock()
    if m.closed {
        return nil
    }
    m.closed = true
    close(m.stop)
    if m.ml != nil {
        // best-effort: leave and give some time to broadcast
        _ = m.ml.Leave(time.Second)
        _ = m.ml.Shutdown()
        m.ml = nil
    }
    return nil
}

// watchLoop recomputes the leader on membership kicks and on a slow ticker,
// announcing changes to the listener. It is the only goroutine that notifies,
// which keeps notifications serialized.
func (m *impl) watchLoop(ctx context.Context, l leader.Listener) {
    ticker := time.NewTicker(2 * time.Second)
    defer ticker.Stop()
    var lastID string
    for {
        select {
        case <-ctx.Done():
            return
        case <-m.stop:
            return
        case <-m.kick:
        case <-ticker.C:
        }
        id, addr := m.pickLeader()
        if id == "" || id == lastID {
            continue
        }
        lastID = id
        l.NotifyLeaderAddress(addr, uuid.New())
    }
}

// pickLeader returns the id and service address of the live member with the
// smallest node ID, or empty strings when the view is unavailable.
func (m *impl) pickLeader() (id, addr string) {
    m.mu.Lock()
    ml := m.ml
    m.mu.Unlock()
    if ml == nil {
        return "", ""
    }
    var best *memberlist.Node
    for _, n := range ml.Members() {
        if best == nil || n.Name < best.Name {
            best = n
        }
    }
    if best == nil {
        return "", ""
    }
    return best.Name, serviceAddr(best)
}

// serviceAddr prefers the service address carried in node meta and falls back
// to the gossip address.
func serviceAddr(n *memberlist.Node) string {
    if len(n.Meta) > 0 {
        meta := map[string]string{}
        if json.Unmarshal(n.Meta, &meta) == nil && meta["addr"] != "" {
            return meta["addr"]
        }
    }
    return net.JoinHostPort(n.Addr.String(), fmt.Sprintf("%d", n.Port))
}

func (m *impl) kickRecompute() {
    select {
    case m.kick <- struct{}{}:
    default:
        // a recompute is already pending
    }
}

// eventDelegate collapses memberlist events into leader recomputes.
type eventDelegate struct {
    kick func()
}

func (d *eventDelegate) NotifyJoin(*memberlist.Node)   { d.kick() }
func (d *eventDelegate) NotifyLeave(*memberlist.Node)  { d.kick() }
func (d *eventDelegate) NotifyUpdate(*memberlist.Node) { d.kick() }

// nodeDelegate implements memberlist.Delegate to propagate node metadata.
type nodeDelegate struct{ meta []byte }

// NodeMeta is used to retrieve meta-data about the current node when broadcasting
// an alive message. The returned byte slice will be truncated to the given limit,
// as it will be broadcast in gossip.
func (d *nodeDelegate) NodeMeta(limit int) []byte {
    if len(d.meta) <= limit { return d.meta }
    if limit <= 0 { return nil }
    return d.meta[:limit]
}

// Unused hooks for our purposes; required to satisfy the interface.
func (d *nodeDelegate) NotifyMsg([]byte)                       {}
func (d *nodeDelegate) GetBroadcasts(int, int) [][]byte        { return nil }
func (d *nodeDelegate) LocalState(join bool) []byte            { return nil }
func (d *nodeDelegate) MergeRemoteState(buf []byte, join bool) {}

func parsePort(s string) (int, error) {
    var p int
    _, err := fmt.Sscanf(s, "%d", &p)
    if err != nil || p < 0 || p > 65535 {
        return 0, fmt.Errorf("invalid port: %q", s)
    }
    return p, nil
}

var _ election.Service = (*impl)(nil)
