// Command ocw is the command-line client for the OpenComputers 2 high-level
// API bus.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oc2wire/oc2wire/internal/bus"
	"github.com/oc2wire/oc2wire/internal/config"
)

var (
	dataDirFlag string
	busFlag     string
	jsonFlag    bool
	verboseFlag bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ocw",
		Short: "Client for the OpenComputers 2 high-level API bus",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verboseFlag {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Config and catalog directory (default ~/.oc2wire)")
	rootCmd.PersistentFlags().StringVarP(&busFlag, "bus", "b", "", "Bus device path (default from config, /dev/hvc0)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "JSON output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(
		listCmd(),
		methodsCmd(),
		findCmd(),
		invokeCmd(),
		scanCmd(),
		catalogCmd(),
		simulateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dataDir() string {
	if dataDirFlag != "" {
		return dataDirFlag
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oc2wire"
	}
	return filepath.Join(home, ".oc2wire")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(dataDir())
	if err != nil {
		return nil, err
	}
	if busFlag != "" {
		cfg.Bus.Path = busFlag
	}
	return cfg, nil
}

// openBus opens a session against the configured device.
func openBus() (*bus.Bus, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	b, err := bus.Open(cfg.Bus.Path, cfg.Bus.Baud,
		bus.WithReadBuffer(cfg.Bus.ReadBufferBytes),
		bus.WithMaxWrite(cfg.Bus.MaxWriteBytes),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening bus: %w", err)
	}
	return b, cfg, nil
}
