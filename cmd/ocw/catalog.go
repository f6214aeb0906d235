package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oc2wire/oc2wire/internal/catalog"
	"github.com/oc2wire/oc2wire/internal/protocol"
)

func openCatalog() (*catalog.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Catalog.Path), 0o700); err != nil {
		return nil, err
	}
	return catalog.Open(cfg.Catalog.Path)
}

// ---------------------------------------------------------------------------
// scan
// ---------------------------------------------------------------------------

func scanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Snapshot the live bus into the offline catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBus()
			if err != nil {
				return err
			}
			defer b.Close()

			devices, err := b.List()
			if err != nil {
				return err
			}
			methods := make(map[protocol.DeviceID][]protocol.Method, len(devices))
			for _, d := range devices {
				ms, err := b.Methods(d.DeviceID)
				if err != nil {
					return fmt.Errorf("methods of %s: %w", d.DeviceID, err)
				}
				methods[d.DeviceID] = ms
			}

			store, err := openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ReplaceSnapshot(cmd.Context(), devices, methods); err != nil {
				return err
			}
			fmt.Printf("Cataloged %d devices\n", len(devices))
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// catalog
// ---------------------------------------------------------------------------

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the offline device catalog",
	}
	cmd.AddCommand(catalogDevicesCmd(), catalogMethodsCmd())
	return cmd
}

func catalogDevicesCmd() *cobra.Command {
	var typeFilter string
	c := &cobra.Command{
		Use:   "devices",
		Short: "List cataloged devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			ctx := cmd.Context()
			var devices []protocol.DeviceDescriptor
			if typeFilter != "" {
				devices, err = store.FindByType(ctx, typeFilter)
			} else {
				devices, err = store.Devices(ctx)
			}
			if err != nil {
				return err
			}
			if err := printDevices(devices); err != nil {
				return err
			}
			return printScanAge(ctx, store)
		},
	}
	c.Flags().StringVarP(&typeFilter, "type", "t", "", "Only devices exposing this capability type")
	return c
}

func catalogMethodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods <device-id>",
		Short: "Show the cataloged methods of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, err := protocol.ParseDeviceID(args[0])
			if err != nil {
				return fmt.Errorf("%q is not a device id", args[0])
			}

			store, err := openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			methods, err := store.Methods(cmd.Context(), device)
			if err != nil {
				return err
			}
			return printMethods(methods)
		},
	}
}

func printScanAge(ctx context.Context, store *catalog.Store) error {
	if jsonFlag {
		return nil
	}
	ts, err := store.ScannedAt(ctx)
	if err != nil {
		return err
	}
	if ts.IsZero() {
		fmt.Fprintln(os.Stderr, "Catalog is empty; run `ocw scan` first")
		return nil
	}
	if stdoutIsTTY() {
		fmt.Printf("Scanned %s\n", ts.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}
