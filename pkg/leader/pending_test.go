package leader

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/google/uuid"
)

func TestPending_ResolveOnce(t *testing.T) {
    p := newPending()
    if p.Resolved() { t.Fatalf("fresh cell reported resolved") }
    if _, ok, _ := p.Result(); ok { t.Fatalf("fresh cell returned a result") }

    first := Announcement{Addr: "host:1234", Session: uuid.New()}
    p.deliver(first, nil)
    // second delivery must be ignored
    p.deliver(Announcement{Addr: "other:1", Session: uuid.New()}, nil)
    p.deliver(Announcement{}, errors.New("late error"))

    a, ok, err := p.Result()
    if !ok { t.Fatalf("expected resolved cell") }
    if err != nil { t.Fatalf("unexpected error: %v", err) }
    if a != first { t.Fatalf("got %v, want %v", a, first) }
}

func TestPending_AwaitBlocksUntilDelivery(t *testing.T) {
    p := newPending()
    want := Announcement{Addr: "host:1234", Session: uuid.New()}

    got := make(chan Announcement, 1)
    errc := make(chan error, 1)
    go func() {
        a, err := p.Await(context.Background())
        if err != nil { errc <- err; return }
        got <- a
    }()

    time.Sleep(20 * time.Millisecond)
    p.deliver(want, nil)

    select {
    case a := <-got:
        if a != want { t.Fatalf("await got %v, want %v", a, want) }
    case err := <-errc:
        t.Fatalf("await error: %v", err)
    case <-time.After(2 * time.Second):
        t.Fatalf("timed out waiting for delivery")
    }
}

func TestPending_AwaitHonorsContext(t *testing.T) {
    p := newPending()
    ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
    defer cancel()
    if _, err := p.Await(ctx); !errors.Is(err, context.DeadlineExceeded) {
        t.Fatalf("err = %v, want deadline exceeded", err)
    }
    // cancellation must not resolve the cell
    if p.Resolved() { t.Fatalf("cell resolved by context cancellation") }
}

func TestPending_ErrorOutcome(t *testing.T) {
    p := newPending()
    boom := errors.New("election backend down")
    p.deliver(Announcement{}, boom)

    if _, _, err := p.Result(); !errors.Is(err, boom) {
        t.Fatalf("result err = %v, want %v", err, boom)
    }
    if _, err := p.Await(context.Background()); !errors.Is(err, boom) {
        t.Fatalf("await err = %v, want %v", err, boom)
    }
}
