package watcher

import (
    "errors"
    "log"

    "github.com/amirimatin/go-leaderwatch/pkg/election"
    "github.com/amirimatin/go-leaderwatch/pkg/leader"
    "github.com/amirimatin/go-leaderwatch/pkg/transport"
)

// Options carries dependency-injected components and runtime configuration
// used to assemble the watcher facade. Instances are typically produced from
// bootstrap.Config.
type Options struct {
    // Election is the service that decides or observes leadership and pushes
    // announcements into the watcher (required).
    Election election.Service
    // Logger is used by the watcher to report operational messages.
    Logger *log.Logger

    // Optional management RPC server exposing /leader, /healthz and /metrics.
    RPCServer transport.RPCServer

    // Optional callback invoked on every delivered announcement.
    OnLeaderChange func(a leader.Announcement)
}

// Validate performs a minimal validation of Options. It does not start any
// network activity and is safe to call before New.
func (o Options) Validate() error {
    if o.Election == nil {
        return errors.New("watcher: nil Election")
    }
    if o.Logger == nil {
        return errors.New("watcher: nil Logger")
    }
    return nil
}
