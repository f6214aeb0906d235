// Package hostsim is an in-process stand-in for the VM host's HLAPI bridge.
// It speaks the exact wire protocol over any byte stream, which makes it
// both the fixture for client tests and a development simulator.
package hostsim

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/oc2wire/oc2wire/internal/protocol"
	"github.com/oc2wire/oc2wire/internal/transport"
)

// InvokeFunc handles one method call on a simulated device.
type InvokeFunc func(method string, params []protocol.Value) ([]string, error)

// Device is one simulated device on the bus.
type Device struct {
	ID        protocol.DeviceID
	TypeNames []string
	Methods   []protocol.Method
	// Invoke handles Invoke requests; nil means every call fails.
	Invoke InvokeFunc
}

// Host serves the HLAPI over a byte stream for a fixed set of devices.
type Host struct {
	mu      sync.Mutex
	devices []Device
	log     *slog.Logger
}

// New returns a host with no devices.
func New(log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	return &Host{log: log}
}

// AddDevice registers a device. Enumeration order is registration order.
func (h *Host) AddDevice(d Device) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = append(h.devices, d)
}

// Serve answers one reply per request until reading from rw fails. A clean
// EOF returns nil; anything else returns the read error.
//
// Like the real bridge, the host treats every delimiter as a buffer reset:
// the stream is split on NUL and empty segments are discarded, so a bare
// delimiter from the client resynchronizes the parser instead of failing it.
func (h *Host) Serve(rw io.ReadWriter) error {
	br := bufio.NewReaderSize(rw, protocol.DefaultReadBufferBytes)
	for {
		req, err := h.readRequest(br)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		reply := h.handle(req)
		// Replies have no size cap: the host-to-client direction is
		// unlimited on real hardware.
		frame, err := protocol.EncodeMessage(reply, 1<<30)
		if err != nil {
			return fmt.Errorf("encoding reply: %w", err)
		}
		if err := transport.WriteAll(rw, frame); err != nil {
			return fmt.Errorf("writing reply: %w", err)
		}
	}
}

// readRequest returns the next non-empty delimiter-separated segment parsed
// as a request. Undecodable segments fail the conversation.
func (h *Host) readRequest(br *bufio.Reader) (*protocol.Request, error) {
	for {
		seg, err := br.ReadBytes(protocol.Delim)
		if err != nil {
			return nil, err
		}
		seg = seg[:len(seg)-1]
		if len(seg) == 0 {
			continue
		}
		var req protocol.Request
		if err := json.Unmarshal(seg, &req); err != nil {
			return nil, fmt.Errorf("decoding request: %w", err)
		}
		return &req, nil
	}
}

func (h *Host) handle(req *protocol.Request) *protocol.Reply {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.log.Debug("hostsim request", "type", req.Type, "device", req.Device)

	switch req.Type {
	case protocol.TagList:
		devices := make([]protocol.DeviceDescriptor, 0, len(h.devices))
		for _, d := range h.devices {
			devices = append(devices, protocol.DeviceDescriptor{DeviceID: d.ID, TypeNames: d.TypeNames})
		}
		return &protocol.Reply{Type: protocol.TagList, Devices: devices}

	case protocol.TagMethods:
		d := h.lookup(req.Device)
		if d == nil {
			return errorReply("device not found")
		}
		methods := d.Methods
		if methods == nil {
			methods = []protocol.Method{}
		}
		return &protocol.Reply{Type: protocol.TagMethods, Methods: methods}

	case protocol.TagInvoke:
		d := h.lookup(req.Device)
		if d == nil {
			return errorReply("device not found")
		}
		if d.Invoke == nil {
			return errorReply("device has no invocable methods")
		}
		values, err := d.Invoke(req.Method, req.Parameters)
		if err != nil {
			return errorReply(err.Error())
		}
		if values == nil {
			values = []string{}
		}
		return &protocol.Reply{Type: protocol.TagResult, Values: values}

	default:
		return errorReply(fmt.Sprintf("unknown request type %q", req.Type))
	}
}

func (h *Host) lookup(id protocol.DeviceID) *Device {
	for i := range h.devices {
		if h.devices[i].ID == id {
			return &h.devices[i]
		}
	}
	return nil
}

func errorReply(message string) *protocol.Reply {
	return &protocol.Reply{Type: protocol.TagError, Message: &message}
}
