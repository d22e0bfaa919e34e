package transport

import "context"

// LeaderStatus is the JSON payload served by the management /leader endpoint.
// Session is the string form of the announcement's session id.
type LeaderStatus struct {
    Known   bool   `json:"known"`
    Addr    string `json:"addr,omitempty"`
    Session string `json:"session,omitempty"`
    Error   string `json:"error,omitempty"`
}

// StatusFunc returns a JSON-encoded LeaderStatus for management /leader.
// Using []byte avoids import cycles on watcher types.
type StatusFunc func(ctx context.Context) ([]byte, error)

// RPCServer exposes management endpoints (/leader, /healthz, /metrics) for
// tooling and intra-cluster calls.
type RPCServer interface {
    Start(ctx context.Context, status StatusFunc) error
    Addr() string
    Stop(ctx context.Context) error
}

// RPCClient queries the management endpoints of other nodes.
type RPCClient interface {
    GetLeader(ctx context.Context, addr string) (LeaderStatus, error)
}
