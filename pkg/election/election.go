package election

import (
    "context"

    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

// Service is the election collaborator: it decides (or observes) who leads and
// pushes announcements into a leader.Listener. Implementations own retry and
// reconnection toward their backend; the listener only ever sees serialized
// NotifyLeaderAddress/NotifyError calls with non-empty addresses.
type Service interface {
    // Start begins watching and delivering notifications until ctx is done or
    // Stop is called. It returns after the watcher is running.
    Start(ctx context.Context, l leader.Listener) error
    Stop() error
}
