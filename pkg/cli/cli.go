package cli

import (
    "context"
    "encoding/json"
    "fmt"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/spf13/cobra"

    "github.com/amirimatin/go-leaderwatch/pkg/bootstrap"
    tracing "github.com/amirimatin/go-leaderwatch/pkg/observability/tracing"
)

// AddAll attaches leaderwatch subcommands (watch/leader) to the provided root command.
func AddAll(root *cobra.Command) {
    root.AddCommand(NewWatchCmd())
    root.AddCommand(NewLeaderCmd())
}

// NewWatchCmd returns the "watch" command used to run a watcher node.
func NewWatchCmd() *cobra.Command {
    var (
        id, electionKind, leaderAddr, serviceAddr           string
        memBind, memAdv, seedsCSV, raftAddr, dataDir        string
        mgmtAddr                                            string
        tlsEnable, tlsSkip, traceEnable, doBootstrap        bool
        tlsCA, tlsCert, tlsKey, tlsServerName               string
    )
    cmd := &cobra.Command{
        Use:   "watch",
        Short: "Run a leader watcher node",
        RunE: func(cmd *cobra.Command, args []string) error {
            if id == "" { return fmt.Errorf("missing -id") }
            ctx, cancel := signalContext()
            defer cancel()

            if traceEnable {
                shutdown, err := tracing.Setup(true)
                if err != nil {
                    log.Printf("tracing setup error: %v", err)
                } else {
                    defer func() { _ = shutdown(context.Background()) }()
                }
            }

            cfg := bootstrap.Config{
                NodeID:        id,
                ElectionKind:  electionKind,
                LeaderAddr:    leaderAddr,
                MemBind:       memBind,
                MemAdv:        memAdv,
                SeedsCSV:      seedsCSV,
                ServiceAddr:   serviceAddr,
                RaftAddr:      raftAddr,
                DataDir:       dataDir,
                Bootstrap:     doBootstrap,
                MgmtAddr:      mgmtAddr,
                TLSEnable:     tlsEnable,
                TLSCA:         tlsCA,
                TLSCert:       tlsCert,
                TLSKey:        tlsKey,
                TLSServerName: tlsServerName,
                TLSSkipVerify: tlsSkip,
                Logger:        log.Default(),
            }
            w, err := bootstrap.Run(ctx, cfg)
            if err != nil { return err }
            defer w.Close()

            fmt.Println("watcher running. Press Ctrl+C to exit.")
            <-ctx.Done()
            return nil
        },
    }
    cmd.Flags().StringVar(&id, "id", "", "node id (required)")
    cmd.Flags().StringVar(&electionKind, "election", "static", "election backend: static|memberlist|raft")
    cmd.Flags().StringVar(&leaderAddr, "leader-addr", "", "fixed leader address — used by election=static")
    cmd.Flags().StringVar(&serviceAddr, "service-addr", "", "service address advertised when this node leads")
    cmd.Flags().StringVar(&memBind, "mem-bind", ":7946", "gossip bind addr (host:port) — election=memberlist")
    cmd.Flags().StringVar(&memAdv, "mem-adv", "", "gossip advertise addr (host:port, optional)")
    cmd.Flags().StringVar(&seedsCSV, "join", "", "comma-separated gossip seeds (host:port) — election=memberlist")
    cmd.Flags().StringVar(&raftAddr, "raft-addr", ":9520", "raft bind addr (tcp) — election=raft")
    cmd.Flags().StringVar(&dataDir, "data", "", "raft data dir (snapshots)")
    cmd.Flags().BoolVar(&doBootstrap, "bootstrap", false, "bootstrap single-node raft (development)")
    cmd.Flags().StringVar(&mgmtAddr, "mgmt-addr", ":17947", "management address (tcp)")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for management transport")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to node certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to node private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    cmd.Flags().BoolVar(&traceEnable, "trace", false, "enable OpenTelemetry stdout tracing (dev)")
    return cmd
}

// NewLeaderCmd returns the "leader" command.
func NewLeaderCmd() *cobra.Command {
    var (
        addr                                  string
        timeout                               time.Duration
        tlsEnable, tlsSkip                    bool
        tlsCA, tlsCert, tlsKey, tlsServerName string
    )
    cmd := &cobra.Command{
        Use:   "leader",
        Short: "Fetch a node's leader view as JSON",
        RunE: func(cmd *cobra.Command, args []string) error {
            cfg := bootstrap.Config{TLSEnable: tlsEnable, TLSCA: tlsCA, TLSCert: tlsCert, TLSKey: tlsKey, TLSServerName: tlsServerName, TLSSkipVerify: tlsSkip}
            client, err := bootstrap.NewClient(cfg, timeout)
            if err != nil { return fmt.Errorf("tls client config: %w", err) }
            ctx, cancel := context.WithTimeout(context.Background(), timeout)
            defer cancel()
            st, err := client.GetLeader(ctx, addr)
            if err != nil { return fmt.Errorf("leader error: %w", err) }
            return json.NewEncoder(os.Stdout).Encode(st)
        },
    }
    cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:17947", "management address of a node (host:port)")
    cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "request timeout")
    cmd.Flags().BoolVar(&tlsEnable, "tls-enable", false, "enable mTLS for management transport")
    cmd.Flags().StringVar(&tlsCA, "tls-ca", "", "path to CA cert (PEM)")
    cmd.Flags().StringVar(&tlsCert, "tls-cert", "", "path to client certificate (PEM)")
    cmd.Flags().StringVar(&tlsKey, "tls-key", "", "path to client private key (PEM)")
    cmd.Flags().BoolVar(&tlsSkip, "tls-skip-verify", false, "skip server cert verification (DEV ONLY)")
    cmd.Flags().StringVar(&tlsServerName, "tls-server-name", "", "expected server name (for TLS validation)")
    return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
    ctx, cancel := context.WithCancel(context.Background())
    go func() {
        ch := make(chan os.Signal, 1)
        signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
        <-ch
        cancel()
    }()
    return ctx, cancel
}
