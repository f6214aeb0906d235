// Package transport owns the byte-stream handle to the VM host.
//
// The canonical transport is a character device (the hvc console inside an
// OC2 virtual machine) wrapped in SerialPort; Pipe provides an in-memory
// stand-in with the same contract for tests.
package transport

import "io"

// Conn is a duplex byte stream to the host with a readiness primitive.
//
// WaitReadable blocks the calling thread until at least one byte can be read
// without blocking, retrying spurious wakeups internally. It has no timeout;
// callers needing a deadline must wrap the call externally.
type Conn interface {
	io.ReadWriteCloser
	WaitReadable() error
}

// WriteAll writes the whole buffer, retrying short writes. There is no
// user-space buffering below it, so a nil return means every byte has been
// handed to the device. A failure may leave a partial envelope in the
// device's input; callers should treat the session as desynchronized.
func WriteAll(w io.Writer, buf []byte) error {
	for len(buf) > 0 {
		n, err := w.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
