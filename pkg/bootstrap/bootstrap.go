package bootstrap

import (
    "context"
    "fmt"
    "log"
    "strings"
    "time"

    "github.com/amirimatin/go-leaderwatch/pkg/election"
    eMember "github.com/amirimatin/go-leaderwatch/pkg/election/memberwatch"
    eRaft "github.com/amirimatin/go-leaderwatch/pkg/election/raftwatch"
    eStatic "github.com/amirimatin/go-leaderwatch/pkg/election/static"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
    tlsx "github.com/amirimatin/go-leaderwatch/pkg/security/tlsconfig"
    "github.com/amirimatin/go-leaderwatch/pkg/transport"
    httpjson "github.com/amirimatin/go-leaderwatch/pkg/transport/httpjson"
    "github.com/amirimatin/go-leaderwatch/pkg/watcher"
)

// Config defines high-level inputs to assemble a watcher node with sensible
// defaults. Applications embed the watcher by providing this structure and
// calling Build/Run.
type Config struct {
    // Identity
    NodeID string

    // Election backend: "static" (default), "memberlist", or "raft".
    ElectionKind string

    // static backend
    LeaderAddr string // the fixed leader service address

    // memberlist backend
    MemBind     string // gossip bind host:port
    MemAdv      string // optional advertise host:port
    SeedsCSV    string // comma-separated gossip seeds
    ServiceAddr string // service address advertised when this node leads

    // raft backend
    RaftAddr  string // raft bind addr ("" → in-memory transport)
    DataDir   string // empty → in-memory stores
    Bootstrap bool   // single-node bootstrap

    // Management API (/leader, /metrics, /healthz). Empty disables it.
    MgmtAddr string

    // TLS (optional) for the management API
    TLSEnable     bool
    TLSCA         string
    TLSCert       string
    TLSKey        string
    TLSServerName string
    TLSSkipVerify bool

    // Logger (optional). If nil, log.Default() is used.
    Logger *log.Logger

    // Optional callback invoked on every delivered announcement.
    OnLeaderChange func(a leader.Announcement)
}

// Build assembles a watcher.Watcher from Config without starting it.
func Build(cfg Config) (*watcher.Watcher, error) {
    if cfg.Logger == nil { cfg.Logger = log.Default() }

    var (
        el  election.Service
        err error
    )
    switch cfg.ElectionKind {
    case "memberlist":
        el, err = eMember.New(eMember.Options{
            NodeID:      cfg.NodeID,
            Bind:        cfg.MemBind,
            Advertise:   cfg.MemAdv,
            ServiceAddr: cfg.ServiceAddr,
            Seeds:       splitCSV(cfg.SeedsCSV),
            Logger:      cfg.Logger,
        })
    case "raft":
        el, err = eRaft.New(eRaft.Options{
            NodeID:      cfg.NodeID,
            BindAddr:    cfg.RaftAddr,
            ServiceAddr: cfg.ServiceAddr,
            DataDir:     cfg.DataDir,
            Bootstrap:   cfg.Bootstrap,
            Logger:      cfg.Logger,
        })
    case "static", "":
        el, err = eStatic.New(cfg.LeaderAddr)
    default:
        return nil, fmt.Errorf("bootstrap: unknown election kind %q", cfg.ElectionKind)
    }
    if err != nil { return nil, err }

    var srv transport.RPCServer
    if cfg.MgmtAddr != "" {
        s := httpjson.NewServer(cfg.MgmtAddr, cfg.Logger)
        if cfg.TLSEnable {
            topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
            srvTLS, err := topts.Server()
            if err != nil { return nil, err }
            s.UseTLS(srvTLS)
        }
        srv = s
    }

    opts := watcher.Options{
        Election:       el,
        Logger:         cfg.Logger,
        RPCServer:      srv,
        OnLeaderChange: cfg.OnLeaderChange,
    }
    return watcher.New(opts)
}

// Run builds and starts the watcher, returning the instance for lifecycle
// control. The caller is responsible for calling Close() when finished.
func Run(ctx context.Context, cfg Config) (*watcher.Watcher, error) {
    w, err := Build(cfg)
    if err != nil { return nil, err }
    if err := w.Start(ctx); err != nil { return nil, err }
    return w, nil
}

// NewClient constructs a management client matching the Config's TLS settings.
func NewClient(cfg Config, timeout time.Duration) (transport.RPCClient, error) {
    c := httpjson.NewClient(timeout)
    if cfg.TLSEnable {
        topts := tlsx.Options{Enable: true, CAFile: cfg.TLSCA, CertFile: cfg.TLSCert, KeyFile: cfg.TLSKey, InsecureSkipVerify: cfg.TLSSkipVerify, ServerName: cfg.TLSServerName}
        cliTLS, err := topts.Client()
        if err != nil { return nil, err }
        c.UseTLS(cliTLS)
    }
    return c, nil
}

func splitCSV(csv string) []string {
    if csv == "" {
        return nil
    }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" {
            out = append(out, p)
        }
    }
    return out
}
