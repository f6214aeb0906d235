//go:build linux

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Supported line rates for the hvc console.
var baudRates = map[uint32]uint32{
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
}

// ConfigureRaw puts the device's line discipline into raw, echo-free mode at
// the given rate. The protocol requires this before the first exchange:
// with echo on, the host would see its own replies, and canonical mode would
// hold bytes until a newline that never comes.
//
// A handle that is not a terminal (an in-memory stand-in, a plain pipe) has
// no line discipline and is left untouched.
func (p *SerialPort) ConfigureRaw(baud uint32) error {
	fd := int(p.f.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}

	speed, ok := baudRates[baud]
	if !ok {
		return fmt.Errorf("unsupported baud rate %d", baud)
	}

	tio, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("reading termios for %s: %w", p.f.Name(), err)
	}

	// cfmakeraw: no input translation, no output post-processing, no echo,
	// no canonical buffering, 8-bit characters.
	tio.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	tio.Oflag &^= unix.OPOST
	tio.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	tio.Cflag &^= unix.CSIZE | unix.PARENB
	tio.Cflag |= unix.CS8

	// Reads block for one byte with no inter-byte timer.
	tio.Cc[unix.VMIN] = 1
	tio.Cc[unix.VTIME] = 0

	tio.Cflag &^= unix.CBAUD
	tio.Cflag |= speed
	tio.Ispeed = speed
	tio.Ospeed = speed

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, tio); err != nil {
		return fmt.Errorf("applying termios to %s: %w", p.f.Name(), err)
	}
	return nil
}
