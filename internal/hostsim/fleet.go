package hostsim

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/oc2wire/oc2wire/internal/protocol"
)

// DemoFleet registers a small fixed set of devices resembling what an OC2
// machine exposes: a turtle-style robot with an inventory and a camera.
// Device IDs are stable across runs so scripts against the simulator can
// hard-code them.
func DemoFleet(h *Host) {
	robot := uuid.MustParse("1f9e805d-1dd6-4a34-9bc2-63e0f6561e62")
	camera := uuid.MustParse("5f02f0f5-9e4a-44f0-9dbb-3a0fbbc6d1b4")

	desc := func(s string) *string { return &s }

	h.AddDevice(Device{
		ID:        robot,
		TypeNames: []string{"turtle", "inventory"},
		Methods: []protocol.Method{
			{
				Name:        "move",
				Parameters:  []protocol.Parameter{{Type: "string"}, {Type: "int"}},
				ReturnType:  "boolean",
				Description: desc("Move in the given direction by the given distance."),
			},
			{
				Name:                   "slots",
				Parameters:             []protocol.Parameter{},
				ReturnType:             "int",
				ReturnValueDescription: desc("The number of inventory slots."),
			},
		},
		Invoke: func(method string, params []protocol.Value) ([]string, error) {
			switch method {
			case "move":
				if len(params) != 2 {
					return nil, fmt.Errorf("move expects 2 arguments, got %d", len(params))
				}
				return []string{"true"}, nil
			case "slots":
				return []string{"16"}, nil
			}
			return nil, fmt.Errorf("unknown method %q", method)
		},
	})

	h.AddDevice(Device{
		ID:        camera,
		TypeNames: []string{"camera"},
		Methods: []protocol.Method{
			{
				Name:       "capture",
				Parameters: []protocol.Parameter{},
				ReturnType: "string",
			},
		},
		Invoke: func(method string, params []protocol.Value) ([]string, error) {
			if method == "capture" {
				return []string{"frame-0"}, nil
			}
			return nil, fmt.Errorf("unknown method %q", method)
		},
	})
}
