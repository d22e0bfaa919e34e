package static

import (
    "context"
    "fmt"
    "strings"

    "github.com/google/uuid"

    "github.com/amirimatin/go-leaderwatch/pkg/election"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

// impl announces a fixed leader address once at Start. Intended for
// development, tests and single-node deployments where the leader is known
// up front.
type impl struct {
    addr    string
    session uuid.UUID
}

// New returns a Service that announces addr with a fresh session id.
func New(addr string) (election.Service, error) {
    addr = strings.TrimSpace(addr)
    if addr == "" {
        return nil, fmt.Errorf("static: empty leader address")
    }
    return &impl{addr: addr, session: uuid.New()}, nil
}

func (s *impl) Start(ctx context.Context, l leader.Listener) error {
    if l == nil {
        return fmt.Errorf("static: nil listener")
    }
    l.NotifyLeaderAddress(s.addr, s.session)
    return nil
}

func (s *impl) Stop() error { return nil }
