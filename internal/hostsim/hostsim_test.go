package hostsim

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/google/uuid"

	"github.com/oc2wire/oc2wire/internal/protocol"
)

// duplex pairs an input script with an output capture for Serve.
type duplex struct {
	in  *bytes.Reader
	out bytes.Buffer
}

func (d *duplex) Read(p []byte) (int, error)  { return d.in.Read(p) }
func (d *duplex) Write(p []byte) (int, error) { return d.out.Write(p) }

func serveScript(t *testing.T, h *Host, requests ...*protocol.Request) []protocol.Reply {
	t.Helper()
	var script bytes.Buffer
	for _, req := range requests {
		frame, err := protocol.EncodeMessage(req, 0)
		if err != nil {
			t.Fatalf("EncodeMessage: %v", err)
		}
		script.Write(frame)
	}

	d := &duplex{in: bytes.NewReader(script.Bytes())}
	if err := h.Serve(d); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	br := bufio.NewReader(bytes.NewReader(d.out.Bytes()))
	replies := make([]protocol.Reply, len(requests))
	for i := range requests {
		if err := protocol.ReadMessage(br, &replies[i]); err != nil {
			t.Fatalf("reading reply %d: %v", i, err)
		}
	}
	return replies
}

func TestServeList(t *testing.T) {
	h := New(nil)
	DemoFleet(h)

	replies := serveScript(t, h, protocol.ListRequest())
	if replies[0].Type != protocol.TagList {
		t.Fatalf("Type = %q", replies[0].Type)
	}
	if len(replies[0].Devices) != 2 {
		t.Fatalf("len(Devices) = %d, want 2", len(replies[0].Devices))
	}
	if got := replies[0].Devices[0].TypeNames; got[0] != "turtle" {
		t.Errorf("first device TypeNames = %v", got)
	}
}

func TestServeMethodsUnknownDevice(t *testing.T) {
	h := New(nil)
	DemoFleet(h)

	replies := serveScript(t, h, protocol.MethodsRequest(uuid.New()))
	if replies[0].Type != protocol.TagError {
		t.Fatalf("Type = %q, want Error", replies[0].Type)
	}
	if replies[0].Message == nil || *replies[0].Message != "device not found" {
		t.Errorf("Message = %v", replies[0].Message)
	}
}

func TestServeInvoke(t *testing.T) {
	h := New(nil)
	DemoFleet(h)

	robot := uuid.MustParse("1f9e805d-1dd6-4a34-9bc2-63e0f6561e62")
	replies := serveScript(t, h,
		protocol.InvokeRequest(robot, "move", protocol.String("north"), protocol.Int(2)),
		protocol.InvokeRequest(robot, "slots"),
	)
	if replies[0].Type != protocol.TagResult || replies[0].Values[0] != "true" {
		t.Errorf("move reply = %+v", replies[0])
	}
	if replies[1].Type != protocol.TagResult || replies[1].Values[0] != "16" {
		t.Errorf("slots reply = %+v", replies[1])
	}
}

// shortWriteDuplex accepts at most one byte per Write, like a saturated pty.
type shortWriteDuplex struct {
	duplex
}

func (d *shortWriteDuplex) Write(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return d.out.Write(p)
}

func TestServeRetriesShortWrites(t *testing.T) {
	h := New(nil)
	DemoFleet(h)

	frame, err := protocol.EncodeMessage(protocol.ListRequest(), 0)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}

	d := &shortWriteDuplex{duplex{in: bytes.NewReader(frame)}}
	if err := h.Serve(d); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var reply protocol.Reply
	if err := protocol.ReadMessage(bufio.NewReader(bytes.NewReader(d.out.Bytes())), &reply); err != nil {
		t.Fatalf("reading reply written one byte at a time: %v", err)
	}
	if reply.Type != protocol.TagList || len(reply.Devices) != 2 {
		t.Errorf("reply = %+v", reply)
	}
}

func TestServeSkipsBareDelimiters(t *testing.T) {
	h := New(nil)
	DemoFleet(h)

	frame, err := protocol.EncodeMessage(protocol.ListRequest(), 0)
	if err != nil {
		t.Fatalf("EncodeMessage: %v", err)
	}
	// A client reset (lone delimiter) before the request must not confuse
	// the host's parser.
	script := append([]byte{protocol.Delim, protocol.Delim}, frame...)

	d := &duplex{in: bytes.NewReader(script)}
	if err := h.Serve(d); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	var reply protocol.Reply
	if err := protocol.ReadMessage(bufio.NewReader(bytes.NewReader(d.out.Bytes())), &reply); err != nil {
		t.Fatalf("reading reply: %v", err)
	}
	if reply.Type != protocol.TagList {
		t.Errorf("Type = %q, want List", reply.Type)
	}
}
