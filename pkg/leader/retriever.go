package leader

import (
    "log"
    "sync/atomic"

    "github.com/google/uuid"

    "github.com/amirimatin/go-leaderwatch/pkg/internal/logutil"
)

// Listener is the inbound contract an election service pushes leadership
// changes into. Implementations must never block for long and never panic;
// both methods are fire-and-forget from the caller's point of view. The
// election service is expected to serialize its own notifications: concurrent
// calls to NotifyLeaderAddress racing each other are outside the contract.
type Listener interface {
    // NotifyLeaderAddress announces a new leader term. An empty address is
    // ignored (placeholder notification from a backend that has no leader yet).
    NotifyLeaderAddress(addr string, session uuid.UUID)
    // NotifyError reports a failure of the election service itself.
    NotifyError(err error)
}

// Retriever caches the most recently announced leader and lets concurrent
// readers either peek at it without blocking or await it through a Pending
// cell. Readers that grabbed an earlier cell keep their already-delivered
// view; every election after the first installs a fresh cell so a resolved
// cell is never overwritten.
type Retriever struct {
    // firstUse stays true until the very first announcement. The cell created
    // at construction must be the one completed then, because early callers of
    // Current() are already waiting on it.
    firstUse atomic.Bool
    cur      atomic.Pointer[Pending]
    logger   *log.Logger
}

// New constructs a Retriever with no known leader. logger may be nil.
func New(logger *log.Logger) *Retriever {
    if logger == nil {
        logger = log.Default()
    }
    r := &Retriever{logger: logger}
    r.firstUse.Store(true)
    r.cur.Store(newPending())
    return r
}

// Peek returns the current leader if one has been announced. ok is false while
// no announcement has resolved yet. When the current cell was completed with
// an error, that error is returned instead.
func (r *Retriever) Peek() (Announcement, bool, error) {
    a, resolved, err := r.cur.Load().Result()
    if !resolved {
        return Announcement{}, false, nil
    }
    if err != nil {
        return Announcement{}, false, err
    }
    return a, true, nil
}

// Current returns the presently installed cell so the caller can block or
// select on the eventual announcement. When a re-election races this call the
// caller may observe either the just-resolved cell or the fresh pending one;
// consistency is eventual across notifications, not linearizable.
func (r *Retriever) Current() *Pending { return r.cur.Load() }

// NotifyLeaderAddress implements Listener. The first announcement completes
// the cell created at construction; every later one installs a fresh cell
// before completing it, so readers arriving afterwards see the new term.
func (r *Retriever) NotifyLeaderAddress(addr string, session uuid.UUID) {
    if addr == "" {
        return
    }
    target := r.cur.Load()
    if !r.firstUse.CompareAndSwap(true, false) {
        target = newPending()
        r.cur.Store(target)
    }
    logutil.Infof(r.logger, "new leader reachable under %s (session %s)", addr, session)
    target.deliver(Announcement{Addr: addr, Session: session}, nil)
}

// NotifyError implements Listener. It fails the current cell for all present
// and future observers of that cell. No new cell is installed: the slot stays
// failed until the next successful announcement replaces it.
func (r *Retriever) NotifyError(err error) {
    if err == nil {
        return
    }
    logutil.Errorf(r.logger, "leader retrieval failed: %v", err)
    r.cur.Load().deliver(Announcement{}, err)
}

var _ Listener = (*Retriever)(nil)
