package leader

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"
)

func TestRetriever_EarlyWaiterGetsFirstAnnouncement(t *testing.T) {
    r := New(nil)
    handle := r.Current()

    s := uuid.New()
    r.NotifyLeaderAddress("host:1234", s)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    a, err := handle.Await(ctx)
    if err != nil { t.Fatalf("await: %v", err) }
    if a.Addr != "host:1234" || a.Session != s {
        t.Fatalf("got %v, want {host:1234 %s}", a, s)
    }
    // The first announcement completes the construction-time cell.
    if r.Current() != handle {
        t.Fatalf("first announcement replaced the initial cell")
    }
}

func TestRetriever_PeekLifecycle(t *testing.T) {
    r := New(nil)

    if _, ok, err := r.Peek(); ok || err != nil {
        t.Fatalf("peek on fresh slot: ok=%v err=%v", ok, err)
    }

    s1 := uuid.New()
    r.NotifyLeaderAddress("10.0.0.1:6123", s1)
    a, ok, err := r.Peek()
    if err != nil || !ok { t.Fatalf("peek after first: ok=%v err=%v", ok, err) }
    if a.Addr != "10.0.0.1:6123" || a.Session != s1 {
        t.Fatalf("peek = %v, want {10.0.0.1:6123 %s}", a, s1)
    }

    s2 := uuid.New()
    r.NotifyLeaderAddress("10.0.0.2:6123", s2)
    a, ok, err = r.Peek()
    if err != nil || !ok { t.Fatalf("peek after second: ok=%v err=%v", ok, err) }
    if a.Addr != "10.0.0.2:6123" || a.Session != s2 {
        t.Fatalf("peek = %v, want {10.0.0.2:6123 %s}", a, s2)
    }
}

func TestRetriever_ReelectionInstallsFreshCell(t *testing.T) {
    r := New(nil)
    s1 := uuid.New()
    r.NotifyLeaderAddress("host:1", s1)

    old := r.Current()
    s2 := uuid.New()
    r.NotifyLeaderAddress("host:2", s2)

    fresh := r.Current()
    if fresh == old {
        t.Fatalf("re-election did not install a fresh cell")
    }
    // The old handle keeps its already-delivered value.
    a, ok, err := old.Result()
    if !ok || err != nil { t.Fatalf("old handle: ok=%v err=%v", ok, err) }
    if a.Addr != "host:1" || a.Session != s1 {
        t.Fatalf("old handle mutated: %v", a)
    }
    a, ok, err = fresh.Result()
    if !ok || err != nil { t.Fatalf("fresh handle: ok=%v err=%v", ok, err) }
    if a.Addr != "host:2" || a.Session != s2 {
        t.Fatalf("fresh handle = %v, want {host:2 %s}", a, s2)
    }
}

func TestRetriever_EmptyAddressIgnored(t *testing.T) {
    r := New(nil)
    before := r.Current()

    r.NotifyLeaderAddress("", uuid.New())
    if r.Current() != before {
        t.Fatalf("empty address replaced the cell")
    }
    if _, ok, err := r.Peek(); ok || err != nil {
        t.Fatalf("empty address changed peek: ok=%v err=%v", ok, err)
    }

    // Also ignored after a leader is known.
    s := uuid.New()
    r.NotifyLeaderAddress("host:1", s)
    r.NotifyLeaderAddress("", uuid.New())
    a, ok, err := r.Peek()
    if !ok || err != nil || a.Addr != "host:1" {
        t.Fatalf("peek after ignored notification: %v ok=%v err=%v", a, ok, err)
    }
}

func TestRetriever_ErrorPropagation(t *testing.T) {
    r := New(nil)
    handle := r.Current()
    boom := errors.New("retrieval service failed")

    r.NotifyError(boom)

    if _, _, err := r.Peek(); !errors.Is(err, boom) {
        t.Fatalf("peek err = %v, want %v", err, boom)
    }
    ctx, cancel := context.WithTimeout(context.Background(), time.Second)
    defer cancel()
    if _, err := handle.Await(ctx); !errors.Is(err, boom) {
        t.Fatalf("await err = %v, want %v", err, boom)
    }
}

func TestRetriever_ErrorAfterResolutionIsNoop(t *testing.T) {
    r := New(nil)
    s := uuid.New()
    r.NotifyLeaderAddress("host:1", s)

    r.NotifyError(errors.New("late failure"))

    // The resolved cell is one-shot: the late error cannot overwrite it.
    a, ok, err := r.Peek()
    if !ok || err != nil || a.Addr != "host:1" {
        t.Fatalf("peek = %v ok=%v err=%v, want resolved host:1", a, ok, err)
    }
}

func TestRetriever_RecoveryAfterError(t *testing.T) {
    r := New(nil)
    r.NotifyError(errors.New("backend down"))
    // The failed construction-time cell also consumes the first-use slot, so
    // two announcements are needed: the first is absorbed by the failed cell,
    // the second installs a healthy one.
    r.NotifyLeaderAddress("host:1", uuid.New())
    s := uuid.New()
    r.NotifyLeaderAddress("host:2", s)

    a, ok, err := r.Peek()
    if !ok || err != nil { t.Fatalf("peek after recovery: ok=%v err=%v", ok, err) }
    if a.Addr != "host:2" || a.Session != s {
        t.Fatalf("peek = %v, want {host:2 %s}", a, s)
    }
}

func TestRetriever_ConcurrentReadersSingleNotifier(t *testing.T) {
    r := New(nil)
    const readers = 32
    want := Announcement{Addr: "host:9", Session: uuid.New()}

    var wg sync.WaitGroup
    errs := make(chan error, readers)
    for i := 0; i < readers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
            defer cancel()
            a, err := r.Current().Await(ctx)
            if err != nil {
                errs <- err
                return
            }
            if a != want {
                errs <- fmt.Errorf("reader got %v", a)
            }
        }()
    }

    time.Sleep(10 * time.Millisecond)
    r.NotifyLeaderAddress(want.Addr, want.Session)
    wg.Wait()
    close(errs)
    for err := range errs {
        t.Fatalf("reader: %v", err)
    }
}

func TestRetriever_RacingNotifiersStress(t *testing.T) {
    // Concurrent notifications are outside the documented contract, but the
    // first-use CAS must still elect exactly one winner for the initial cell
    // and every cell must resolve to exactly one announced value.
    r := New(nil)
    initial := r.Current()

    const notifiers = 8
    const rounds = 50
    announced := make(map[string]struct{})
    for i := 0; i < notifiers; i++ {
        for j := 0; j < rounds; j++ {
            announced[fmt.Sprintf("10.0.%d.%d:6123", i, j)] = struct{}{}
        }
    }

    var start, wg sync.WaitGroup
    start.Add(1)
    for i := 0; i < notifiers; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            start.Wait()
            for j := 0; j < rounds; j++ {
                r.NotifyLeaderAddress(fmt.Sprintf("10.0.%d.%d:6123", i, j), uuid.New())
            }
        }(i)
    }
    start.Done()
    wg.Wait()

    // The initial cell resolved exactly once, to some announced address.
    a, ok, err := initial.Result()
    if !ok || err != nil { t.Fatalf("initial cell: ok=%v err=%v", ok, err) }
    if _, known := announced[a.Addr]; !known {
        t.Fatalf("initial cell resolved to unannounced address %q", a.Addr)
    }
    // The final current cell is resolved and holds an announced address.
    a, ok, err = r.Current().Result()
    if !ok || err != nil { t.Fatalf("final cell: ok=%v err=%v", ok, err) }
    if _, known := announced[a.Addr]; !known {
        t.Fatalf("final cell resolved to unannounced address %q", a.Addr)
    }
    if _, _, err := r.Peek(); err != nil {
        t.Fatalf("peek after stress: %v", err)
    }
}
