package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/oc2wire/oc2wire/internal/protocol"
)

// stdoutIsTTY decides between aligned tables (interactive use) and
// tab-separated lines (pipelines).
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printDevices(devices []protocol.DeviceDescriptor) error {
	if jsonFlag {
		return printJSON(devices)
	}
	if len(devices) == 0 {
		fmt.Println("No devices on the bus")
		return nil
	}
	if stdoutIsTTY() {
		fmt.Printf("%-36s  %s\n", "DEVICE", "TYPES")
		for _, d := range devices {
			fmt.Printf("%-36s  %s\n", d.DeviceID, strings.Join(d.TypeNames, ", "))
		}
		return nil
	}
	for _, d := range devices {
		fmt.Printf("%s\t%s\n", d.DeviceID, strings.Join(d.TypeNames, ","))
	}
	return nil
}

func printMethods(methods []protocol.Method) error {
	if jsonFlag {
		return printJSON(methods)
	}
	if len(methods) == 0 {
		fmt.Println("No methods")
		return nil
	}
	for i := range methods {
		m := &methods[i]
		fmt.Println(m.Signature())
		if !stdoutIsTTY() {
			continue
		}
		if m.Description != nil {
			fmt.Printf("    %s\n", *m.Description)
		}
		if m.ReturnValueDescription != nil {
			fmt.Printf("    returns: %s\n", *m.ReturnValueDescription)
		}
	}
	return nil
}
