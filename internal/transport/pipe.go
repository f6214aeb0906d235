package transport

import (
	"bytes"
	"io"
	"sync"
)

// Pipe returns two connected in-memory Conns. Whatever one end writes, the
// other end can read, and its WaitReadable wakes up. It stands in for the
// character device in tests.
func Pipe() (*PipeConn, *PipeConn) {
	a := newPipeBuf()
	b := newPipeBuf()
	return &PipeConn{rd: a, wr: b}, &PipeConn{rd: b, wr: a}
}

// PipeConn is one end of an in-memory duplex stream.
type PipeConn struct {
	rd *pipeBuf // bytes the peer wrote to us
	wr *pipeBuf // bytes we write to the peer
}

// Read blocks until data is available or the pipe is closed.
func (c *PipeConn) Read(b []byte) (int, error) {
	return c.rd.read(b)
}

func (c *PipeConn) Write(b []byte) (int, error) {
	return c.wr.write(b)
}

// WaitReadable blocks until the peer has written data. Returns an error once
// the pipe is closed with nothing left to read.
func (c *PipeConn) WaitReadable() error {
	return c.rd.waitReadable()
}

// Close closes both directions; a blocked WaitReadable or Read on either end
// wakes up.
func (c *PipeConn) Close() error {
	c.rd.close()
	c.wr.close()
	return nil
}

type pipeBuf struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newPipeBuf() *pipeBuf {
	b := &pipeBuf{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *pipeBuf) read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.buf.Len() == 0 {
		return 0, io.EOF
	}
	return b.buf.Read(p)
}

func (b *pipeBuf) write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return 0, io.ErrClosedPipe
	}
	n, _ := b.buf.Write(p)
	b.cond.Broadcast()
	return n, nil
}

func (b *pipeBuf) waitReadable() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.buf.Len() == 0 {
		return io.ErrClosedPipe
	}
	return nil
}

func (b *pipeBuf) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}
