package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oc2wire/oc2wire/internal/bus"
	"github.com/oc2wire/oc2wire/internal/protocol"
)

// ---------------------------------------------------------------------------
// list
// ---------------------------------------------------------------------------

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Enumerate devices on the bus",
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
			return printDevices(devices)
		},
	}
}

// ---------------------------------------------------------------------------
// methods
// ---------------------------------------------------------------------------

func methodsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "methods <device-id|type-name>",
		Short: "Enumerate the methods of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBus()
			if err != nil {
				return err
			}
			defer b.Close()

			device, err := resolveDevice(b, args[0])
			if err != nil {
				return err
			}
			methods, err := b.Methods(device)
			if err != nil {
				return err
			}
			return printMethods(methods)
		},
	}
}

// ---------------------------------------------------------------------------
// find
// ---------------------------------------------------------------------------

func findCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "find <type-name>",
		Short: "Resolve the first device exposing a capability type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBus()
			if err != nil {
				return err
			}
			defer b.Close()

			id, err := b.Find(args[0])
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
}

// ---------------------------------------------------------------------------
// invoke
// ---------------------------------------------------------------------------

func invokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <device-id|type-name> <method> [arg...]",
		Short: "Invoke a method with positional arguments",
		Long: `Invoke a method on a device. Arguments are parsed as JSON-style
primitives: null, true, false, integers and floats; anything else is sent as
a string.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, _, err := openBus()
			if err != nil {
				return err
			}
			defer b.Close()

			device, err := resolveDevice(b, args[0])
			if err != nil {
				return err
			}

			params := make([]protocol.Value, 0, len(args)-2)
			for _, lit := range args[2:] {
				params = append(params, protocol.ParseValue(lit))
			}

			values, err := b.Invoke(device, args[1], params...)
			if err != nil {
				return err
			}
			for _, v := range values {
				fmt.Println(v)
			}
			return nil
		},
	}
}

// resolveDevice accepts either a device ID in canonical form or a
// capability-type name looked up over the live bus.
func resolveDevice(b *bus.Bus, arg string) (protocol.DeviceID, error) {
	if id, err := protocol.ParseDeviceID(arg); err == nil {
		return id, nil
	}
	id, err := b.Find(arg)
	if errors.Is(err, bus.ErrNotFound) {
		return protocol.DeviceID{}, fmt.Errorf("%q is neither a device id nor a known type name", arg)
	}
	return id, err
}
