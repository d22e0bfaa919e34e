package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    LeaderKnown = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_leaderwatch",
        Name:      "leader_known",
        Help:      "1 if a leader announcement has resolved, else 0",
    })

    LeaderChanges = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Name:      "leader_changes_total",
        Help:      "Total number of leader announcements delivered to the retriever",
    })

    WatchErrors = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Name:      "watch_errors_total",
        Help:      "Total number of errors reported by the election service",
    })

    LeaderRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Name:      "leader_requests_total",
        Help:      "Total /leader requests served, by result",
    }, []string{"result"})

    GatewayDials = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Subsystem: "gateway",
        Name:      "dials_total",
        Help:      "Total number of new gRPC connections dialed toward leaders",
    })
    GatewayReuse = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Subsystem: "gateway",
        Name:      "reuse_total",
        Help:      "Total number of gRPC connection reuses from cache",
    })
    GatewayEvictions = prometheus.NewCounter(prometheus.CounterOpts{
        Namespace: "go_leaderwatch",
        Subsystem: "gateway",
        Name:      "evictions_total",
        Help:      "Total number of cached gRPC connections evicted",
    })
    GatewayActive = prometheus.NewGauge(prometheus.GaugeOpts{
        Namespace: "go_leaderwatch",
        Subsystem: "gateway",
        Name:      "active",
        Help:      "Number of active cached gRPC connections",
    })
)

// Register registers metrics into the default Prometheus registry (idempotent).
func Register() {
    once.Do(func() {
        prometheus.MustRegister(LeaderKnown)
        prometheus.MustRegister(LeaderChanges)
        prometheus.MustRegister(WatchErrors)
        prometheus.MustRegister(LeaderRequests)
        prometheus.MustRegister(GatewayDials)
        prometheus.MustRegister(GatewayReuse)
        prometheus.MustRegister(GatewayEvictions)
        prometheus.MustRegister(GatewayActive)
    })
}
