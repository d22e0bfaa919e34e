//go:build integration

package integration

import (
    "errors"
    "testing"
    "time"
)

var errNotYet = errors.New("not yet")

func waitUntil(t *testing.T, d time.Duration, fn func() error) {
    t.Helper()
    deadline := time.Now().Add(d)
    var last error
    for time.Now().Before(deadline) {
        if last = fn(); last == nil {
            return
        }
        time.Sleep(100 * time.Millisecond)
    }
    t.Fatalf("condition not met within %v: %v", d, last)
}
