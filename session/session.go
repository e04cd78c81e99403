package session

import (
	"bytes"

	"github.jpl.nasa.gov/bdube/odinflash/cmdframe"
	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
	"github.jpl.nasa.gov/bdube/odinflash/pit"
	"github.jpl.nasa.gov/bdube/odinflash/progress"
	"github.jpl.nasa.gov/bdube/odinflash/transport"
	"github.jpl.nasa.gov/bdube/odinflash/util"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// Magic handshake literals (spec.md 4.5.1).
const (
	pingMagic = "ODIN"
	pongMagic = "LOKE"
)

// SessionStart sub-arguments (spec.md 4.5.2/4.5.5/4.5.6).
const (
	argBeginSession  wire.OdinInt = 0x00
	argMaxVersion    wire.OdinInt = 0x04
	argSetTotalSize  wire.OdinInt = 0x02
	argSetPacketSize wire.OdinInt = 0x05
	argTFlash        wire.OdinInt = 0x08
)

// negotiatedPacketSize is what 4.5.2 step 5 asks a v3/v4 device for.
const negotiatedPacketSize wire.OdinInt = 1048576

// TransferPIT sub-arguments (spec.md 4.5.3/4.5.4).
const (
	pitOpDump  wire.OdinInt = 0x01
	pitOpChunk wire.OdinInt = 0x02
	pitOpEnd   wire.OdinInt = 0x03
	pitOpFlash wire.OdinInt = 0x00
)

// pitChunkSize is the largest slice of PIT data requested per Chunk
// command while downloading (spec.md 4.5.3).
const pitChunkSize = 500

// Flash sub-arguments (spec.md 4.5.5/4.5.7).
const (
	flashBegin        wire.OdinInt = 0x00
	flashFactoryReset wire.OdinInt = 0x07
)

var sessLog = odinlog.New(odinlog.SESS)

// Session drives one download-mode protocol conversation end to end,
// from handshake through termination. Go has no destructors, so a
// Session that is abandoned without calling End or Close leaks its
// transport; callers are expected to defer one or the other.
type Session struct {
	c      transport.Communicator
	params Params
	state  State
}

// Begin performs the magic handshake and version/parameter negotiation
// over c, returning a Session in the Ready state. c is owned by the
// returned Session from this point on; no other code should use it
// directly.
func Begin(c transport.Communicator) (*Session, error) {
	s := &Session{c: c, state: Unconnected}

	if err := s.handshake(); err != nil {
		return nil, err
	}
	s.state = Handshaked

	params, err := s.negotiate()
	if err != nil {
		return nil, err
	}
	s.params = params
	s.state = Ready

	sessLog.Infof("ready: %s max_part=%d max_parts=%d compression=%v",
		params.ProtoVersion, params.MaxFilePartSize, params.MaxSeqFileParts, params.SupportsCompression)
	return s, nil
}

// State reports the session's current lifecycle tag.
func (s *Session) State() State { return s.state }

// Params reports the negotiated session parameters. Zero value before
// Begin completes.
func (s *Session) Params() Params { return s.params }

func (s *Session) handshake() error {
	if err := s.c.Send([]byte(pingMagic)); err != nil {
		return err
	}
	got, err := s.c.RecvExact(len(pongMagic))
	if err != nil {
		return err
	}
	if !bytes.Equal(got, []byte(pongMagic)) {
		return &InvalidHandshakeError{Got: got}
	}
	return nil
}

func (s *Session) negotiate() (Params, error) {
	if err := cmdframe.New(cmdframe.SessionStart, argBeginSession, argMaxVersion).Send(s.c); err != nil {
		return Params{}, err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return Params{}, err
	}
	if reply.Cmd != cmdframe.SessionStart {
		return Params{}, &UnexpectedCommandError{Want: cmdframe.SessionStart, Got: reply.Cmd}
	}

	if reply.Arg == 0 {
		return Params{
			ProtoVersion:    V1,
			MaxFilePartSize: 131072,
			MaxSeqFileParts: 800,
		}, nil
	}

	version := (uint32(reply.Arg) >> 16) & 0xF
	compressionByte := byte((uint32(reply.Arg) >> 8) & 0xFF)
	compression := util.GetBit(compressionByte, 7)
	if version > 100 {
		return Params{}, &UnknownProtocolVersionError{Got: version}
	}
	switch ProtoVersion(version) {
	case V1, V3, V4:
	default:
		return Params{}, &UnknownProtocolVersionError{Got: version}
	}
	if ProtoVersion(version) == V1 {
		return Params{
			ProtoVersion:        V1,
			SupportsCompression: compression,
			MaxFilePartSize:     131072,
			MaxSeqFileParts:     800,
		}, nil
	}

	if err := cmdframe.New(cmdframe.SessionStart, argSetPacketSize, negotiatedPacketSize).Send(s.c); err != nil {
		return Params{}, err
	}
	reply, err = cmdframe.ReadReply(s.c)
	if err != nil {
		return Params{}, err
	}
	if reply.Cmd != cmdframe.SessionStart {
		return Params{}, &UnexpectedCommandError{Want: cmdframe.SessionStart, Got: reply.Cmd}
	}
	if reply.Arg != 0 {
		return Params{}, &UnexpectedArgError{Want: 0, Got: reply.Arg}
	}

	return Params{
		ProtoVersion:         ProtoVersion(version),
		SupportsCompression:  compression,
		MaxFilePartSize:      1048576,
		MaxSeqFileParts:      30,
	}, nil
}

func (s *Session) requireState(op string, want State) error {
	if s.state != want {
		return &InvalidStateError{Op: op, Have: s.state, Want: want}
	}
	return nil
}

func (s *Session) emptyTransferSend() error {
	return s.c.Send(nil)
}

func (s *Session) emptyTransferRecv() error {
	_, err := s.c.RecvExact(0)
	return err
}

// DownloadPIT retrieves and parses the device's current partition table.
func (s *Session) DownloadPIT() (*pit.Pit, error) {
	if err := s.requireState("DownloadPIT", Ready); err != nil {
		return nil, err
	}

	if err := cmdframe.New(cmdframe.TransferPIT, pitOpDump).Send(s.c); err != nil {
		return nil, err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return nil, err
	}
	if reply.Cmd != cmdframe.TransferPIT {
		return nil, &UnexpectedCommandError{Want: cmdframe.TransferPIT, Got: reply.Cmd}
	}
	total := int(reply.Arg)

	buf := make([]byte, 0, total)
	for chunkIndex := wire.OdinInt(0); len(buf) < total; chunkIndex++ {
		if err := cmdframe.New(cmdframe.TransferPIT, pitOpChunk, chunkIndex).Send(s.c); err != nil {
			return nil, err
		}
		want := total - len(buf)
		if want > pitChunkSize {
			want = pitChunkSize
		}
		chunk, err := s.c.RecvExact(want)
		if err != nil {
			return nil, err
		}
		buf = append(buf, chunk...)
	}

	if s.params.ProtoVersion != V1 {
		if err := s.emptyTransferRecv(); err != nil {
			return nil, err
		}
		if err := s.emptyTransferSend(); err != nil {
			return nil, err
		}
	}

	if err := cmdframe.New(cmdframe.TransferPIT, pitOpEnd).Send(s.c); err != nil {
		return nil, err
	}
	reply, err = cmdframe.ReadReply(s.c)
	if err != nil {
		return nil, err
	}
	if reply.Cmd != cmdframe.TransferPIT {
		return nil, &UnexpectedCommandError{Want: cmdframe.TransferPIT, Got: reply.Cmd}
	}
	if reply.Arg != 0 {
		return nil, &UnexpectedArgError{Want: 0, Got: reply.Arg}
	}

	p, err := pit.Deserialize(buf)
	if err != nil {
		return nil, &InvalidPitError{Cause: err}
	}
	return p, nil
}

// FlashPIT uploads a replacement partition table.
func (s *Session) FlashPIT(data []byte) error {
	if err := s.requireState("FlashPIT", Ready); err != nil {
		return err
	}

	if err := cmdframe.New(cmdframe.TransferPIT, pitOpFlash).Send(s.c); err != nil {
		return err
	}
	if err := s.expectPITOk(); err != nil {
		return err
	}

	if err := cmdframe.New(cmdframe.TransferPIT, pitOpChunk, wire.OdinInt(len(data))).Send(s.c); err != nil {
		return err
	}
	if err := s.expectPITOk(); err != nil {
		return err
	}

	if err := s.c.Send(data); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.TransferPIT {
		return &UnexpectedCommandError{Want: cmdframe.TransferPIT, Got: reply.Cmd}
	}
	if reply.Arg != pitOpEnd {
		return &UnexpectedArgError{Want: pitOpEnd, Got: reply.Arg}
	}

	if s.params.ProtoVersion != V1 {
		if err := s.emptyTransferRecv(); err != nil {
			return err
		}
		if err := s.emptyTransferSend(); err != nil {
			return err
		}
	}

	if err := cmdframe.New(cmdframe.TransferPIT, pitOpEnd).Send(s.c); err != nil {
		return err
	}
	return s.expectPITOk()
}

func (s *Session) expectPITOk() error {
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.TransferPIT {
		return &UnexpectedCommandError{Want: cmdframe.TransferPIT, Got: reply.Cmd}
	}
	if reply.Arg != 0 {
		return &UnexpectedArgError{Want: 0, Got: reply.Arg}
	}
	return nil
}

// EnableTFlash toggles the device into micro-SD (T-Flash) target mode.
// Must be called before Flash, while still in the Ready state.
func (s *Session) EnableTFlash() error {
	if err := s.requireState("EnableTFlash", Ready); err != nil {
		return err
	}
	if err := cmdframe.New(cmdframe.SessionStart, argBeginSession, argTFlash).Send(s.c); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.SessionStart {
		return &UnexpectedCommandError{Want: cmdframe.SessionStart, Got: reply.Cmd}
	}
	if reply.Arg != 0 {
		return &UnexpectedArgError{Want: 0, Got: reply.Arg}
	}
	return nil
}

// FactoryReset issues the vendor factory-reset command. The wire
// encoding here is unconfirmed against any known-good capture; treat
// failures from this call as inconclusive rather than diagnostic. The
// session must still be terminated via End afterward.
func (s *Session) FactoryReset() error {
	if err := s.requireState("FactoryReset", Ready); err != nil {
		return err
	}
	if err := cmdframe.New(cmdframe.Flash, flashFactoryReset).Send(s.c); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.Flash {
		return &UnexpectedCommandError{Want: cmdframe.Flash, Got: reply.Cmd}
	}
	return nil
}

// Flash uploads data as the payload for entry, reporting progress (if
// progressFn is non-nil) as parts are acknowledged. On return the
// session has moved back to Ready on success, or is left in InFlash
// (tainted, only End is valid) on failure.
func (s *Session) Flash(data []byte, entry pit.Entry, progressFn ProgressFunc) error {
	if err := s.requireState("Flash", Ready); err != nil {
		return err
	}
	s.state = InFlash

	if err := s.declareTotalSize(uint64(len(data))); err != nil {
		return err
	}
	if err := cmdframe.New(cmdframe.SessionStart, argSetPacketSize, wire.OdinInt(s.params.MaxFilePartSize)).Send(s.c); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.SessionStart {
		return &UnexpectedCommandError{Want: cmdframe.SessionStart, Got: reply.Cmd}
	}
	if reply.Arg != 0 {
		return &UnexpectedArgError{Want: 0, Got: reply.Arg}
	}

	if err := cmdframe.New(cmdframe.Flash, flashBegin).Send(s.c); err != nil {
		return err
	}
	reply, err = cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.Flash {
		return &UnexpectedCommandError{Want: cmdframe.Flash, Got: reply.Cmd}
	}

	// An empty payload is accepted as a no-op flash: there is nothing to
	// sequence, and the sequencer's own framing would otherwise have to
	// emit a zero-length commit frame, which no known device handles.
	if len(data) == 0 {
		s.state = Ready
		return nil
	}

	reporter := progress.New(progressFn)
	maxSeq := s.params.MaxSeqSizeBytes()
	for off := uint64(0); off < uint64(len(data)); {
		end := off + maxSeq
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		seq := data[off:end]
		isLast := end >= uint64(len(data))

		if err := s.runSequence(seq, isLast, entry, reporter); err != nil {
			return err
		}
		reporter.Flush()
		off = end
	}

	s.state = Ready
	return nil
}

func (s *Session) declareTotalSize(size uint64) error {
	var f cmdframe.Frame
	switch s.params.ProtoVersion {
	case V4:
		f = cmdframe.NewWithU64(cmdframe.SessionStart, argSetTotalSize, size)
	default:
		if size >= 1<<32 {
			return &PayloadTooLargeError{Size: size}
		}
		f = cmdframe.New(cmdframe.SessionStart, argSetTotalSize, wire.OdinInt(size))
	}
	if err := f.Send(s.c); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.SessionStart {
		return &UnexpectedCommandError{Want: cmdframe.SessionStart, Got: reply.Cmd}
	}
	return nil
}

// End terminates the session, instructing the device what to do
// afterward, and releases the transport. After End returns (with or
// without error) no other Session method may be called.
func (s *Session) End(after ActionAfter) error {
	if s.state == Ended {
		return &InvalidStateError{Op: "End", Have: s.state, Want: Ready}
	}

	arg, ok := actionAfterArg[after]
	if !ok {
		arg = actionAfterArg[Nothing]
	}
	sendErr := cmdframe.New(cmdframe.SessionEnd, wire.OdinInt(arg)).Send(s.c)
	var replyErr error
	if sendErr == nil {
		reply, err := cmdframe.ReadReply(s.c)
		if err != nil {
			replyErr = err
		} else if reply.Cmd != cmdframe.SessionEnd {
			replyErr = &UnexpectedCommandError{Want: cmdframe.SessionEnd, Got: reply.Cmd}
		}
	}

	s.state = Ended
	closeErr := s.c.Close()

	return util.MergeErrors([]error{sendErr, replyErr, closeErr})
}

// Close releases the transport without performing a protocol-level
// termination, standing in for the teardown Rust would give this type
// via Drop. Safe to call after End (a no-op then) so callers can
// unconditionally defer it.
func (s *Session) Close() error {
	if s.state == Ended {
		return nil
	}
	s.state = Ended
	return s.c.Close()
}
