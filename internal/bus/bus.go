// Package bus implements the client side of the HLAPI conversation: one
// session object per device handle, one request/response exchange in flight
// at a time.
package bus

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/oc2wire/oc2wire/internal/protocol"
	"github.com/oc2wire/oc2wire/internal/transport"
)

// MainBusPath is the hvc console the OC2 host bridges the HLAPI onto.
const MainBusPath = "/dev/hvc0"

// DefaultBaud is the line rate the host expects.
const DefaultBaud uint32 = 38400

var (
	// ErrNotFound means Find exhausted the device list without a match.
	// A normal outcome, distinct from protocol errors.
	ErrNotFound = errors.New("no device exposes the requested type")

	// ErrUnexpectedReply means the host answered with a reply tag that does
	// not match the request that was sent.
	ErrUnexpectedReply = errors.New("unexpected reply type")
)

// RemoteError is an explicit Error reply from the host. Message is empty
// when the host sent none.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "host reported an error"
	}
	return "host reported an error: " + e.Message
}

// Bus is one HLAPI session. It owns its connection for the session's
// lifetime and performs no internal locking: a call occupies the calling
// goroutine from write through read, and callers must serialize access
// themselves if they share an instance.
type Bus struct {
	conn     transport.Conn
	br       *bufio.Reader
	maxWrite int
	log      *slog.Logger
}

// Option adjusts a session at construction time.
type Option func(*options)

type options struct {
	readBuffer int
	maxWrite   int
	log        *slog.Logger
}

// WithReadBuffer sets the chunk size for incremental reply reads.
func WithReadBuffer(n int) Option {
	return func(o *options) { o.readBuffer = n }
}

// WithMaxWrite sets the cap on one encoded outbound envelope.
func WithMaxWrite(n int) Option {
	return func(o *options) { o.maxWrite = n }
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New wraps an already-open connection in a session. The session takes
// ownership of conn and closes it on Close.
func New(conn transport.Conn, opts ...Option) *Bus {
	o := options{
		readBuffer: protocol.DefaultReadBufferBytes,
		maxWrite:   protocol.DefaultMaxWriteBytes,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Bus{
		conn:     conn,
		br:       bufio.NewReaderSize(conn, o.readBuffer),
		maxWrite: o.maxWrite,
		log:      o.log,
	}
}

// List enumerates every device the host exposes, in host order.
func (b *Bus) List() ([]protocol.DeviceDescriptor, error) {
	reply, err := b.call(protocol.ListRequest())
	if err != nil {
		return nil, err
	}
	if reply.Type != protocol.TagList {
		return nil, replyMismatch(protocol.TagList, reply)
	}
	return reply.Devices, nil
}

// Methods enumerates the method descriptors of one device, preserving the
// host's parameter order exactly.
func (b *Bus) Methods(device protocol.DeviceID) ([]protocol.Method, error) {
	reply, err := b.call(protocol.MethodsRequest(device))
	if err != nil {
		return nil, err
	}
	if reply.Type != protocol.TagMethods {
		return nil, replyMismatch(protocol.TagMethods, reply)
	}
	return reply.Methods, nil
}

// Find returns the first listed device whose type names contain typeName.
// Each call re-queries the host; there is no caching.
func (b *Bus) Find(typeName string) (protocol.DeviceID, error) {
	devices, err := b.List()
	if err != nil {
		return protocol.DeviceID{}, err
	}
	for _, d := range devices {
		if slices.Contains(d.TypeNames, typeName) {
			return d.DeviceID, nil
		}
	}
	return protocol.DeviceID{}, fmt.Errorf("%w: %q", ErrNotFound, typeName)
}

// Invoke calls method on device with positional arguments and returns the
// host's result values, possibly empty.
func (b *Bus) Invoke(device protocol.DeviceID, method string, params ...protocol.Value) ([]string, error) {
	reply, err := b.call(protocol.InvokeRequest(device, method, params...))
	if err != nil {
		return nil, err
	}
	if reply.Type != protocol.TagResult {
		return nil, replyMismatch(protocol.TagResult, reply)
	}
	return reply.Values, nil
}

// Reset writes a bare delimiter so the host's parser discards any partially
// buffered input. Best effort: its own write failures are swallowed, since
// it runs as last-resort cleanup on an already-suspect session.
func (b *Bus) Reset() {
	if err := transport.WriteAll(b.conn, []byte{protocol.Delim}); err != nil {
		b.log.Debug("bus reset failed", "error", err)
	}
}

// Close releases the connection. The session must not be used afterwards.
func (b *Bus) Close() error {
	return b.conn.Close()
}

// call runs one complete exchange: encode, write, wait, read. The encoded
// envelope is size-checked before any byte reaches the transport.
func (b *Bus) call(req *protocol.Request) (*protocol.Reply, error) {
	frame, err := protocol.EncodeMessage(req, b.maxWrite)
	if err != nil {
		return nil, err
	}
	b.log.Debug("bus request", "type", req.Type, "bytes", len(frame))

	if err := transport.WriteAll(b.conn, frame); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}
	if err := b.conn.WaitReadable(); err != nil {
		return nil, fmt.Errorf("waiting for reply: %w", err)
	}

	var reply protocol.Reply
	if err := protocol.ReadMessage(b.br, &reply); err != nil {
		return nil, err
	}
	b.log.Debug("bus reply", "type", reply.Type)
	return &reply, nil
}

// replyMismatch maps a wrong reply tag to an error: Error replies carry the
// host's message, anything else is a protocol violation.
func replyMismatch(want string, reply *protocol.Reply) error {
	if reply.Type == protocol.TagError {
		remote := &RemoteError{}
		if reply.Message != nil {
			remote.Message = *reply.Message
		}
		return remote
	}
	return fmt.Errorf("%w: got %s, want %s", ErrUnexpectedReply, reply.Type, want)
}
