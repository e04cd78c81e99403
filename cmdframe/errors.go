package cmdframe

import (
	"fmt"

	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// InvalidCommandError is returned when a reply frame's command word does
// not match any known Command (spec.md 3, 7 -- ProtocolError family).
type InvalidCommandError struct {
	Got wire.OdinInt
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("cmdframe: unrecognized command 0x%08X in reply", uint32(e.Got))
}

// UnexpectedCommandError is returned when a reply's command is valid but
// not the one the caller was waiting for.
type UnexpectedCommandError struct {
	Want, Got Command
}

func (e *UnexpectedCommandError) Error() string {
	return fmt.Sprintf("cmdframe: expected reply %s, got %s", e.Want, e.Got)
}

// UnexpectedArgError is returned when a reply's argument does not match
// what the caller required (e.g. a ChunkTransferOk whose part index is
// out of sequence).
type UnexpectedArgError struct {
	Want, Got wire.OdinInt
}

func (e *UnexpectedArgError) Error() string {
	return fmt.Sprintf("cmdframe: expected reply arg 0x%X, got 0x%X", e.Want, e.Got)
}
