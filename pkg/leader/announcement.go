package leader

import (
    "fmt"

    "github.com/google/uuid"
)

// Announcement describes one leadership term of the watched service: the
// network address the leader is reachable under and the session id unique to
// that term. Re-election of the same address carries a different session.
// Announcements are immutable values; copy freely.
type Announcement struct {
    Addr    string    `json:"addr"`
    Session uuid.UUID `json:"session"`
}

func (a Announcement) String() string {
    return fmt.Sprintf("%s:%s", a.Addr, a.Session)
}
