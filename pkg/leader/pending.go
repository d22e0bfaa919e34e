package leader

import (
    "context"
    "sync"
)

// Pending is a single-assignment result cell for one leader announcement. It
// starts pending and transitions exactly once to either a value or an error;
// any number of readers may observe the outcome. Completed cells are never
// mutated again: a later election installs a fresh cell in the Retriever
// instead.
type Pending struct {
    once sync.Once
    done chan struct{}
    val  Announcement
    err  error
}

func newPending() *Pending {
    return &Pending{done: make(chan struct{})}
}

// deliver resolves the cell with either a value or an error. Only the first
// call has any effect; later calls are ignored.
func (p *Pending) deliver(a Announcement, err error) {
    p.once.Do(func() {
        p.val = a
        p.err = err
        close(p.done)
    })
}

// Done returns a channel that is closed once the cell has resolved. Useful for
// select-based consumption alongside other channels.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Resolved reports whether the cell already holds a value or an error.
func (p *Pending) Resolved() bool {
    select {
    case <-p.done:
        return true
    default:
        return false
    }
}

// Result returns the outcome of a resolved cell. ok is false while the cell is
// still pending; in that case the other return values are meaningless.
func (p *Pending) Result() (a Announcement, ok bool, err error) {
    select {
    case <-p.done:
        return p.val, true, p.err
    default:
        return Announcement{}, false, nil
    }
}

// Await blocks until the cell resolves or ctx is done. Cancellation only
// abandons this wait; the cell itself keeps its lifecycle.
func (p *Pending) Await(ctx context.Context) (Announcement, error) {
    select {
    case <-p.done:
        return p.val, p.err
    case <-ctx.Done():
        return Announcement{}, ctx.Err()
    }
}
