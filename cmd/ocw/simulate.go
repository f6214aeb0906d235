package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oc2wire/oc2wire/internal/hostsim"
)

func simulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "Run a simulated host on a pseudo-terminal",
		Long: `Run an in-process host with a small demo fleet on a fresh
pseudo-terminal. Point another ocw at the printed path, e.g.

    ocw --bus /dev/pts/N list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			host := hostsim.New(slog.Default())
			hostsim.DemoFleet(host)

			path, stop, err := host.ServePTY()
			if err != nil {
				return err
			}
			defer stop()

			fmt.Printf("Simulated bus on %s\n", path)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig
			fmt.Println("Shutting down")
			return nil
		},
	}
}
