package bus

import (
	"fmt"

	"github.com/oc2wire/oc2wire/internal/transport"
)

// Open opens the character device at path, applies the raw echo-free line
// discipline at the given rate, and returns a ready session.
func Open(path string, baud uint32, opts ...Option) (*Bus, error) {
	port, err := transport.OpenSerial(path)
	if err != nil {
		return nil, err
	}
	if err := port.ConfigureRaw(baud); err != nil {
		port.Close()
		return nil, fmt.Errorf("configuring %s: %w", path, err)
	}
	return New(port, opts...), nil
}

// Main opens the default bus at MainBusPath.
func Main(opts ...Option) (*Bus, error) {
	return Open(MainBusPath, DefaultBaud, opts...)
}
