package raftwatch

import (
    "context"
    "fmt"
    "io"
    "log"
    "os"
    "path/filepath"
    "time"

    "github.com/google/uuid"
    "github.com/hashicorp/raft"
    raftboltdb "github.com/hashicorp/raft-boltdb"

    "github.com/amirimatin/go-leaderwatch/pkg/election"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

// Watcher joins a Raft cluster purely to observe leadership and feed each
// observed change into a leader.Listener. It does not replicate application
// state; the FSM is a no-op.
type Watcher struct {
    opts  Options
    log   *log.Logger
    r     *raft.Raft
    addr  raft.ServerAddress
    trans raft.Transport
    obsCh chan raft.Observation
}

func New(opts Options) (*Watcher, error) {
    if opts.NodeID == "" {
        return nil, fmt.Errorf("raftwatch: empty NodeID")
    }
    if opts.Logger == nil {
        opts.Logger = log.Default()
    }
    return &Watcher{opts: opts, log: opts.Logger, obsCh: make(chan raft.Observation, 32)}, nil
}

func (w *Watcher) Start(ctx context.Context, l leader.Listener) error {
    if l == nil {
        return fmt.Errorf("raftwatch: nil listener")
    }
    if w.r != nil {
        return nil
    }

    cfg := raft.DefaultConfig()
    cfg.LocalID = raft.ServerID(w.opts.NodeID)
    if w.opts.HeartbeatTimeout > 0 {
        cfg.HeartbeatTimeout = w.opts.HeartbeatTimeout
        // Keep lease <= heartbeat to satisfy invariants
        if cfg.LeaderLeaseTimeout > cfg.HeartbeatTimeout {
            cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout / 2
            if cfg.LeaderLeaseTimeout == 0 { cfg.LeaderLeaseTimeout = cfg.HeartbeatTimeout }
        }
    }
    if w.opts.ElectionTimeout > 0 { cfg.ElectionTimeout = w.opts.ElectionTimeout }
    if w.opts.CommitTimeout > 0 { cfg.CommitTimeout = w.opts.CommitTimeout }

    var (
        logs   raft.LogStore
        stable raft.StableStore
        snaps  raft.SnapshotStore
        addr   raft.ServerAddress
        trans  raft.Transport
    )

    // Storage selection: on-disk when DataDir provided, else in-memory.
    if w.opts.DataDir != "" {
        if w.opts.SnapshotsRetained == 0 { w.opts.SnapshotsRetained = 2 }
        if err := os.MkdirAll(w.opts.DataDir, 0o755); err != nil { return err }
        bpath := filepath.Join(w.opts.DataDir, "raft.db")
        bstore, err := raftboltdb.NewBoltStore(bpath)
        if err != nil { return err }
        logs = bstore
        stable = bstore
        snaps, err = raft.NewFileSnapshotStore(w.opts.DataDir, w.opts.SnapshotsRetained, os.Stderr)
        if err != nil { return err }
    } else {
        logs = raft.NewInmemStore()
        stable = raft.NewInmemStore()
        snaps = raft.NewInmemSnapshotStore()
    }

    // Transport selection
    if w.opts.BindAddr != "" {
        nt, err := raft.NewTCPTransport(w.opts.BindAddr, nil, 3, 1*time.Second, os.Stderr)
        if err != nil { return err }
        trans = nt
        addr = nt.LocalAddr()
    } else {
        addr, trans = raft.NewInmemTransport(raft.ServerAddress(w.opts.NodeID))
    }

    r, err := raft.NewRaft(cfg, noopFSM{}, logs, stable, snaps, trans)
    if err != nil {
        return err
    }
    w.r = r
    w.addr = addr
    w.trans = trans

    observer := raft.NewObserver(w.obsCh, false, func(o *raft.Observation) bool {
        switch o.Data.(type) {
        case raft.LeaderObservation:
            return true
        default:
            return false
        }
    })
    w.r.RegisterObserver(observer)
    go w.observeLoop(ctx, l)

    if w.opts.Bootstrap {
        cfgs := raft.Configuration{Servers: []raft.Server{{
            ID:      cfg.LocalID,
            Address: addr,
        }}}
        if err := w.r.BootstrapCluster(cfgs).Error(); err != nil {
            return err
        }
    }

    go func() {
        <-ctx.Done()
        _ = w.Stop()
    }()
    return nil
}

// observeLoop drains leadership observations and announces changes. A single
// goroutine notifies, so deliveries stay serialized. Loss of leadership (no
// leader known) is not announced; the previous announcement stands until a
// new leader emerges.
func (w *Watcher) observeLoop(ctx context.Context, l leader.Listener) {
    var lastID string
    for {
        select {
        case <-ctx.Done():
            return
        case _, ok := <-w.obsCh:
            if !ok {
                return
            }
        }
        id, addr, ok := w.leaderNow()
        if !ok || id == lastID {
            continue
        }
        lastID = id
        if w.opts.ServiceAddr != "" && id == w.opts.NodeID {
            addr = w.opts.ServiceAddr
        }
        l.NotifyLeaderAddress(addr, uuid.New())
    }
}

func (w *Watcher) leaderNow() (id string, addr string, ok bool) {
    if w.r == nil { return "", "", false }
    a, sid := w.r.LeaderWithID()
    if sid == "" { return "", "", false }
    return string(sid), string(a), true
}

// IsLeader reports whether this node currently leads.
func (w *Watcher) IsLeader() bool {
    if w.r == nil { return false }
    return w.r.State() == raft.Leader
}

func (w *Watcher) Stop() error {
    if w.r == nil { return nil }
    f := w.r.Shutdown()
    if err := f.Error(); err != nil { return err }
    w.r = nil
    return nil
}

// noopFSM satisfies raft.FSM for a node that only observes leadership.
type noopFSM struct{}

func (noopFSM) Apply(*raft.Log) interface{} { return nil }
func (noopFSM) Snapshot() (raft.FSMSnapshot, error) {
    return noopSnapshot{}, nil
}
func (noopFSM) Restore(rc io.ReadCloser) error {
    defer rc.Close()
    _, err := io.ReadAll(rc)
    return err
}

type noopSnapshot struct{}

func (noopSnapshot) Persist(sink raft.SnapshotSink) error { return sink.Close() }
func (noopSnapshot) Release()                             {}

var _ election.Service = (*Watcher)(nil)
var _ raft.FSM = noopFSM{}
