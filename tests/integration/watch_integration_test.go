//go:build integration

package integration

import (
    "context"
    "testing"
    "time"

    "github.com/amirimatin/go-leaderwatch/pkg/bootstrap"
)

func TestStaticNode_ManagementLeaderEndpoint(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
    defer cancel()

    w, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID:       "n1",
        ElectionKind: "static",
        LeaderAddr:   "10.0.0.1:6123",
        MgmtAddr:     "127.0.0.1:17941",
    })
    if err != nil {
        t.Fatalf("run: %v", err)
    }
    defer w.Close()

    cli, err := bootstrap.NewClient(bootstrap.Config{}, 3*time.Second)
    if err != nil {
        t.Fatalf("client: %v", err)
    }
    waitUntil(t, 10*time.Second, func() error {
        s, err := cli.GetLeader(ctx, "127.0.0.1:17941")
        if err != nil {
            return err
        }
        if !s.Known || s.Addr != "10.0.0.1:6123" || s.Session == "" {
            return errNotYet
        }
        return nil
    })
}

func TestRaftSingleNode_LeaderResolved(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
    defer cancel()

    w, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID:       "n1",
        ElectionKind: "raft",
        Bootstrap:    true,
        ServiceAddr:  "10.0.0.1:6123",
        MgmtAddr:     "127.0.0.1:17942",
    })
    if err != nil {
        t.Fatalf("run: %v", err)
    }
    defer w.Close()

    cli, err := bootstrap.NewClient(bootstrap.Config{}, 3*time.Second)
    if err != nil {
        t.Fatalf("client: %v", err)
    }
    waitUntil(t, 30*time.Second, func() error {
        s, err := cli.GetLeader(ctx, "127.0.0.1:17942")
        if err != nil {
            return err
        }
        if !s.Known || s.Addr != "10.0.0.1:6123" {
            return errNotYet
        }
        return nil
    })

    // The in-process view matches the management endpoint.
    a, ok, err := w.Peek()
    if !ok || err != nil || a.Addr != "10.0.0.1:6123" {
        t.Fatalf("peek = %v ok=%v err=%v", a, ok, err)
    }
}

func TestMemberlistPair_AgreeOnLeader(t *testing.T) {
    ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
    defer cancel()

    n1, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID:       "n1",
        ElectionKind: "memberlist",
        MemBind:      "127.0.0.1:7971",
        ServiceAddr:  "10.0.0.1:6123",
        MgmtAddr:     "127.0.0.1:17971",
    })
    if err != nil {
        t.Fatalf("n1: %v", err)
    }
    defer n1.Close()

    n2, err := bootstrap.Run(ctx, bootstrap.Config{
        NodeID:       "n2",
        ElectionKind: "memberlist",
        MemBind:      "127.0.0.1:7972",
        SeedsCSV:     "127.0.0.1:7971",
        ServiceAddr:  "10.0.0.2:6123",
        MgmtAddr:     "127.0.0.1:17972",
    })
    if err != nil {
        t.Fatalf("n2: %v", err)
    }
    defer n2.Close()

    cli, err := bootstrap.NewClient(bootstrap.Config{}, 3*time.Second)
    if err != nil {
        t.Fatalf("client: %v", err)
    }

    // The smallest node ID leads, so both views must converge on n1's
    // service address.
    for _, mgmt := range []string{"127.0.0.1:17971", "127.0.0.1:17972"} {
        mgmt := mgmt
        waitUntil(t, 30*time.Second, func() error {
            s, err := cli.GetLeader(ctx, mgmt)
            if err != nil {
                return err
            }
            if !s.Known || s.Addr != "10.0.0.1:6123" {
                return errNotYet
            }
            return nil
        })
    }
}
