package hostsim

import (
	"fmt"

	"github.com/creack/pty"
)

// ServePTY starts the host on a fresh pseudo-terminal pair and returns the
// slave path for a client to open as its bus device. The slave handle is
// held open so the pair outlives client reconnects; stop releases both ends
// and terminates the serve loop.
func (h *Host) ServePTY() (path string, stop func(), err error) {
	ptmx, tty, err := pty.Open()
	if err != nil {
		return "", nil, fmt.Errorf("opening pty pair: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := h.Serve(ptmx); err != nil {
			h.log.Error("simulator stopped", "error", err)
		}
	}()

	stop = func() {
		ptmx.Close()
		tty.Close()
		<-done
	}
	return tty.Name(), stop, nil
}
