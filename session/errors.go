package session

import (
	"fmt"

	"github.jpl.nasa.gov/bdube/odinflash/cmdframe"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// InvalidStateError is returned when an operation is attempted in a
// state that doesn't support it (e.g. flashing before Begin, or any call
// after End).
type InvalidStateError struct {
	Op   string
	Have State
	Want State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("session: %s requires state %s, have %s", e.Op, e.Want, e.Have)
}

// InvalidHandshakeError is returned when the device's handshake reply
// does not equal the expected "LOKE" literal.
type InvalidHandshakeError struct {
	Got []byte
}

func (e *InvalidHandshakeError) Error() string {
	return fmt.Sprintf("session: invalid handshake reply %q", e.Got)
}

// UnknownProtocolVersionError is returned when the negotiated version
// word does not map to a known ProtoVersion.
type UnknownProtocolVersionError struct {
	Got uint32
}

func (e *UnknownProtocolVersionError) Error() string {
	return fmt.Sprintf("session: unknown protocol version 0x%X", e.Got)
}

// UnexpectedCommandError is returned when a reply's command does not
// match what the caller was waiting for.
type UnexpectedCommandError struct {
	Want, Got cmdframe.Command
}

func (e *UnexpectedCommandError) Error() string {
	return fmt.Sprintf("session: expected reply %s, got %s", e.Want, e.Got)
}

// UnexpectedArgError is returned when a reply's argument does not match
// the value the caller required.
type UnexpectedArgError struct {
	Want, Got wire.OdinInt
}

func (e *UnexpectedArgError) Error() string {
	return fmt.Sprintf("session: expected reply arg 0x%X, got 0x%X", e.Want, e.Got)
}

// UnexpectedPartIndexError is returned when a flash part's acknowledged
// index does not match the part just sent, which is fatal to the session
// (spec.md 5).
type UnexpectedPartIndexError struct {
	Want, Got wire.OdinInt
}

func (e *UnexpectedPartIndexError) Error() string {
	return fmt.Sprintf("session: expected part index %d, got %d", e.Want, e.Got)
}

// PartFlashFailureError is returned when the target reports a failure
// (a non-zero argument) on the commit reply that closes a flash sequence.
// PartIndex is the index of that sequence's last part.
type PartFlashFailureError struct {
	PartIndex wire.OdinInt
}

func (e *PartFlashFailureError) Error() string {
	return fmt.Sprintf("session: target reported failure flashing part %d", e.PartIndex)
}

// InvalidPitError wraps a pit package error encountered while handling
// PIT data inside a session operation.
type InvalidPitError struct {
	Cause error
}

func (e *InvalidPitError) Error() string {
	return fmt.Sprintf("session: invalid PIT: %v", e.Cause)
}

func (e *InvalidPitError) Unwrap() error { return e.Cause }

// PayloadTooLargeError is returned when a payload exceeds what the
// negotiated protocol version can declare as a total size (a 32-bit
// length on v1/v3, a 64-bit length on v4).
type PayloadTooLargeError struct {
	Size uint64
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("session: payload of %d bytes exceeds the protocol's size limit", e.Size)
}
