package static

import (
    "context"
    "sync"
    "testing"

    "github.com/google/uuid"

    "github.com/amirimatin/go-leaderwatch/pkg/leader"
)

type recordingListener struct {
    mu    sync.Mutex
    addrs []string
    errs  []error
}

func (r *recordingListener) NotifyLeaderAddress(addr string, session uuid.UUID) {
    r.mu.Lock()
    r.addrs = append(r.addrs, addr)
    r.mu.Unlock()
}

func (r *recordingListener) NotifyError(err error) {
    r.mu.Lock()
    r.errs = append(r.errs, err)
    r.mu.Unlock()
}

var _ leader.Listener = (*recordingListener)(nil)

func TestStatic_AnnouncesOnce(t *testing.T) {
    s, err := New(" host:1234 ")
    if err != nil { t.Fatalf("new: %v", err) }

    rec := &recordingListener{}
    if err := s.Start(context.Background(), rec); err != nil {
        t.Fatalf("start: %v", err)
    }
    defer s.Stop()

    if len(rec.addrs) != 1 || rec.addrs[0] != "host:1234" {
        t.Fatalf("unexpected announcements: %#v", rec.addrs)
    }
    if len(rec.errs) != 0 {
        t.Fatalf("unexpected errors: %v", rec.errs)
    }
}

func TestStatic_RejectsEmptyAddress(t *testing.T) {
    if _, err := New("  "); err == nil {
        t.Fatalf("expected error for empty address")
    }
}
