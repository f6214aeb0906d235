//go:build linux

package transport

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SerialPort is a character-device transport. It exclusively owns the device
// handle and an epoll instance registered for read interest; both live and
// die together.
//
// SerialPort performs no internal locking: the protocol above it allows one
// in-flight exchange, so there is nothing to synchronize.
type SerialPort struct {
	f    *os.File
	epfd int
}

// OpenSerial opens the device at path for read and write and registers it
// with a fresh epoll instance for read readiness.
func OpenSerial(path string) (*SerialPort, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating epoll instance: %w", err)
	}

	event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(f.Fd())}
	if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, int(f.Fd()), &event); err != nil {
		unix.Close(epfd)
		f.Close()
		return nil, fmt.Errorf("registering %s for read readiness: %w", path, err)
	}

	return &SerialPort{f: f, epfd: epfd}, nil
}

// WaitReadable blocks until the device has data available. Interrupted and
// empty wakeups are retried; the wait has no timeout, so a host that never
// replies blocks the caller indefinitely.
func (p *SerialPort) WaitReadable() error {
	events := make([]unix.EpollEvent, 1)
	for {
		n, err := unix.EpollWait(p.epfd, events, -1)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("epoll wait: %w", err)
		}
		// EPOLLHUP/EPOLLERR also end the wait: the next read surfaces the
		// stream error to the protocol layer.
		if n > 0 && events[0].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
			return nil
		}
	}
}

func (p *SerialPort) Read(b []byte) (int, error) {
	return p.f.Read(b)
}

func (p *SerialPort) Write(b []byte) (int, error) {
	return p.f.Write(b)
}

// Name returns the device path.
func (p *SerialPort) Name() string {
	return p.f.Name()
}

// Close releases the device handle and its readiness registration.
func (p *SerialPort) Close() error {
	unix.Close(p.epfd)
	return p.f.Close()
}
