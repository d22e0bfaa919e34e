package main

import (
    "log"

    "github.com/spf13/cobra"

    lwcli "github.com/amirimatin/go-leaderwatch/pkg/cli"
)

func main() {
    if err := newRoot().Execute(); err != nil {
        log.Fatal(err)
    }
}

func newRoot() *cobra.Command {
    root := &cobra.Command{
        Use:           "leaderwatchctl",
        Short:         "go-leaderwatch management CLI",
        SilenceUsage:  true,
        SilenceErrors: true,
    }
    // Attach all leaderwatch commands from pkg/cli for reuse in services
    lwcli.AddAll(root)
    return root
}
