// Package cmdframe builds and parses the fixed-length command and reply
// frames the Odin download-mode protocol exchanges over a transport.
// Command frames always flow host -> device; reply frames always flow
// device -> host (spec.md 3, 4.2).
package cmdframe

import (
	"fmt"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
	"github.jpl.nasa.gov/bdube/odinflash/transport"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// Len is the fixed size of every command frame on the wire.
const Len = 1024

// ReplyLen is the fixed size of every reply frame on the wire.
const ReplyLen = 8

// maxArgs is the most arguments any known command uses (Flash's
// SequenceEnd commit frame for a non-modem partition: 7 args).
const maxArgs = 7

// Command identifies the kind of a frame.
type Command wire.OdinInt

// Known command kinds (spec.md 3).
const (
	ChunkTransferOk Command = 0x00
	SessionStart    Command = 0x64
	TransferPIT     Command = 0x65
	Flash           Command = 0x66
	SessionEnd      Command = 0x67
)

var knownCommands = map[Command]string{
	ChunkTransferOk: "ChunkTransferOk",
	SessionStart:    "SessionStart",
	TransferPIT:     "TransferPIT",
	Flash:           "Flash",
	SessionEnd:      "SessionEnd",
}

// Valid reports whether c is one of the enumerated command kinds. Any
// other value arriving in a reply is a protocol violation (spec.md 3).
func (c Command) Valid() bool {
	_, ok := knownCommands[c]
	return ok
}

func (c Command) String() string {
	if name, ok := knownCommands[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", wire.OdinInt(c))
}

var cmdLog = odinlog.New(odinlog.CMD)

// Frame is a command frame: a command kind plus 0-7 arguments, serialized
// as 1024 zero-padded bytes. Using a small fixed array with a valid-count
// avoids a separate constructor per arity (spec.md 9).
type Frame struct {
	Cmd   Command
	args  [maxArgs]wire.OdinInt
	nargs int
}

// New builds a Frame with the given command and up to 7 arguments.
func New(cmd Command, args ...wire.OdinInt) Frame {
	if len(args) > maxArgs {
		panic(fmt.Sprintf("cmdframe: %d arguments exceeds maximum of %d", len(args), maxArgs))
	}
	f := Frame{Cmd: cmd, nargs: len(args)}
	copy(f.args[:], args)
	return f
}

// NewWithU64 builds a Frame whose second and third words encode a 64-bit
// value as two OdinInts, low half first -- used by the protocol-4
// SetTotalSize variant (spec.md 3, 4.5.5).
func NewWithU64(cmd Command, arg1 wire.OdinInt, val uint64) Frame {
	lo, hi := wire.SplitU64(val)
	return New(cmd, arg1, lo, hi)
}

// Bytes serializes the frame into its 1024-byte wire representation.
func (f Frame) Bytes() [Len]byte {
	var buf [Len]byte
	off := 0
	cmdBytes := wire.Encode(wire.OdinInt(f.Cmd))
	copy(buf[off:], cmdBytes[:])
	off += wire.Size
	for i := 0; i < f.nargs; i++ {
		argBytes := wire.Encode(f.args[i])
		copy(buf[off:], argBytes[:])
		off += wire.Size
	}
	// Remaining bytes are already zero by virtue of Go's zero value.
	return buf
}

func (f Frame) String() string {
	s := fmt.Sprintf("Cmd: %s", f.Cmd)
	for i := 0; i < f.nargs; i++ {
		s += fmt.Sprintf(", Arg%d: 0x%X", i+1, f.args[i])
	}
	return s
}

// Send serializes and transmits the frame over c.
func (f Frame) Send(c transport.Communicator) error {
	buf := f.Bytes()
	cmdLog.Tracef("%s", f)
	return c.Send(buf[:])
}

// Reply is the target's 8-byte response to a command frame.
type Reply struct {
	Cmd Command
	Arg wire.OdinInt
}

func (r Reply) String() string {
	return fmt.Sprintf("Cmd: %s, Arg: 0x%X", r.Cmd, r.Arg)
}

// ReadReply blocks until a full 8-byte reply has been read from c and
// decodes it. An unrecognized command kind is a protocol violation.
func ReadReply(c transport.Communicator) (Reply, error) {
	buf, err := c.RecvExact(ReplyLen)
	if err != nil {
		return Reply{}, err
	}

	cmd := Command(wire.DecodeSlice(buf[0:4]))
	if !cmd.Valid() {
		return Reply{}, &InvalidCommandError{Got: wire.OdinInt(cmd)}
	}
	arg := wire.DecodeSlice(buf[4:8])

	reply := Reply{Cmd: cmd, Arg: arg}
	cmdLog.Tracef("%s", reply)
	return reply, nil
}
