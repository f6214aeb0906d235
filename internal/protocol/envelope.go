// Package protocol implements the HLAPI wire protocol spoken with the VM
// host over the serial bus.
//
// Every message in both directions is one envelope: a NUL byte, a JSON
// payload, and a closing NUL byte. The payload is an adjacently tagged union
// (tag under "type", variant data under "data") and never contains the
// delimiter, so envelope boundaries are unambiguous without a length prefix.
package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Delim bounds every envelope on both sides.
const Delim byte = 0x00

const (
	// DefaultReadBufferBytes is the chunk size for incremental reads while
	// decoding a reply. Replies from the host have no practical size limit.
	DefaultReadBufferBytes = 4096

	// DefaultMaxWriteBytes caps one encoded outbound envelope; the host
	// rejects larger writes, so they are refused before reaching the bus.
	DefaultMaxWriteBytes = 4096
)

var (
	// ErrFraming reports a missing or malformed envelope delimiter,
	// including a stream that ends inside an envelope. The client and host
	// have lost envelope alignment.
	ErrFraming = errors.New("envelope framing violation")

	// ErrTooLarge reports an encoded envelope over the outbound write cap.
	// Raised before any byte reaches the transport.
	ErrTooLarge = errors.New("encoded envelope exceeds write limit")
)

// Encode wraps payload in delimiters, enforcing the write cap.
// maxWrite <= 0 means DefaultMaxWriteBytes.
func Encode(payload []byte, maxWrite int) ([]byte, error) {
	if maxWrite <= 0 {
		maxWrite = DefaultMaxWriteBytes
	}
	if len(payload)+2 > maxWrite {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(payload)+2, maxWrite)
	}
	buf := make([]byte, 0, len(payload)+2)
	buf = append(buf, Delim)
	buf = append(buf, payload...)
	buf = append(buf, Delim)
	return buf, nil
}

// EncodeMessage marshals v and wraps it in one envelope.
func EncodeMessage(v any, maxWrite int) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return Encode(payload, maxWrite)
}

// ReadEnvelope consumes exactly one envelope from br and returns its payload.
// Both delimiters are verified; a short read on either, or a stream that ends
// mid-payload, is a framing violation.
func ReadEnvelope(br *bufio.Reader) ([]byte, error) {
	lead, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: reading leading delimiter: %v", ErrFraming, err)
	}
	if lead != Delim {
		return nil, fmt.Errorf("%w: leading byte 0x%02x, want 0x%02x", ErrFraming, lead, Delim)
	}

	// The payload is delimiter-clean, so the next NUL is the closing
	// delimiter. ReadBytes refills from the stream in the reader's
	// buffer-sized chunks until it sees it.
	payload, err := br.ReadBytes(Delim)
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: stream ended inside payload", ErrFraming)
		}
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return payload[:len(payload)-1], nil
}

// ReadMessage reads one envelope from br and unmarshals its payload into v.
// Framing violations surface as ErrFraming; a payload that does not match
// the expected shape surfaces as a decode error. The JSON value determines
// its own end, so bytes between it and the closing delimiter are a framing
// violation, not a decode error.
func ReadMessage(br *bufio.Reader, v any) error {
	payload, err := ReadEnvelope(br)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	if off := int(dec.InputOffset()); off != len(payload) {
		return fmt.Errorf("%w: %d stray bytes before closing delimiter", ErrFraming, len(payload)-off)
	}
	return nil
}
