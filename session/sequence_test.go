package session

import (
	"testing"

	"github.jpl.nasa.gov/bdube/odinflash/cmdframe"
	"github.jpl.nasa.gov/bdube/odinflash/pit"
	"github.jpl.nasa.gov/bdube/odinflash/progress"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

func flashSession(fc *scriptedTransport, maxPartSize uint32) *Session {
	return &Session{
		c:      fc,
		state:  Ready,
		params: Params{ProtoVersion: V1, MaxFilePartSize: maxPartSize, MaxSeqFileParts: 800},
	}
}

func TestTransferPartsAcksSequentially(t *testing.T) {
	fc := &scriptedTransport{
		recvQueue: [][]byte{
			replyBytes(cmdframe.ChunkTransferOk, 0),
			replyBytes(cmdframe.ChunkTransferOk, 1),
			replyBytes(cmdframe.ChunkTransferOk, 2),
		},
	}
	s := flashSession(fc, 2)
	r := progress.New(nil)

	if err := s.transferParts([]byte{1, 2, 3, 4, 5}, r); err != nil {
		t.Fatalf("transferParts: %v", err)
	}
}

func TestTransferPartsUnexpectedPartIndex(t *testing.T) {
	fc := &scriptedTransport{
		recvQueue: [][]byte{
			replyBytes(cmdframe.ChunkTransferOk, 0),
			replyBytes(cmdframe.ChunkTransferOk, 3),
		},
	}
	s := flashSession(fc, 2)
	r := progress.New(nil)

	err := s.transferParts([]byte{1, 2, 3, 4}, r)
	upe, ok := err.(*UnexpectedPartIndexError)
	if !ok {
		t.Fatalf("want *UnexpectedPartIndexError, got %T (%v)", err, err)
	}
	if upe.Want != 1 || upe.Got != 3 {
		t.Errorf("want (1, 3), got (%d, %d)", upe.Want, upe.Got)
	}
}

func TestInitiateSequenceSendsBeginAndEmptyTransfer(t *testing.T) {
	fc := &scriptedTransport{
		recvQueue: [][]byte{replyBytes(cmdframe.Flash, 0)},
	}
	s := flashSession(fc, 131072)

	if err := s.initiateSequence(42); err != nil {
		t.Fatalf("initiateSequence: %v", err)
	}
	if len(fc.sends) != 2 {
		t.Fatalf("want 2 sends (begin frame + empty transfer), got %d", len(fc.sends))
	}
	if len(fc.sends[0]) != cmdframe.Len {
		t.Errorf("first send should be a full command frame, got %d bytes", len(fc.sends[0]))
	}
	if len(fc.sends[1]) != 0 {
		t.Errorf("second send should be an empty transfer, got %d bytes", len(fc.sends[1]))
	}
}

func TestCommitSequenceNonModemUsesSevenArgs(t *testing.T) {
	fc := &scriptedTransport{
		recvQueue: [][]byte{replyBytes(cmdframe.Flash, 0)},
	}
	s := flashSession(fc, 131072)
	entry := pit.EntryV2{
		Type:             pit.BinaryOther,
		Device:           pit.DeviceEmmc,
		PartitionIDField: 7,
	}

	if err := s.commitSequence(4096, true, entry); err != nil {
		t.Fatalf("commitSequence: %v", err)
	}

	frame := commitFrameBytes(t, fc.sends)
	if got := wire.DecodeSlice(frame[4:8]); got != flashCommit {
		t.Errorf("arg1: want flashCommit, got 0x%X", got)
	}
	if got := wire.DecodeSlice(frame[8:12]); got != 0 {
		t.Errorf("is_modem: want 0, got 0x%X", got)
	}
	if got := wire.DecodeSlice(frame[12:16]); got != 4096 {
		t.Errorf("length: want 4096, got %d", got)
	}
	if got := wire.DecodeSlice(frame[20:24]); got != wire.OdinInt(pit.DeviceEmmc) {
		t.Errorf("device_type: want %d, got %d", pit.DeviceEmmc, got)
	}
	if got := wire.DecodeSlice(frame[24:28]); got != 7 {
		t.Errorf("partition_id: want 7, got %d", got)
	}
	if got := wire.DecodeSlice(frame[28:32]); got != 1 {
		t.Errorf("is_last: want 1, got %d", got)
	}
	for i := 32; i < cmdframe.Len; i++ {
		if frame[i] != 0 {
			t.Fatalf("byte %d should be zero padding (7 args), got 0x%02X", i, frame[i])
		}
	}
}

func TestCommitSequenceModemUsesSixArgs(t *testing.T) {
	fc := &scriptedTransport{
		recvQueue: [][]byte{replyBytes(cmdframe.Flash, 0)},
	}
	s := flashSession(fc, 131072)
	entry := pit.EntryV2{
		Type:   pit.BinaryModem,
		Device: pit.DeviceNand,
	}

	if err := s.commitSequence(10, false, entry); err != nil {
		t.Fatalf("commitSequence: %v", err)
	}

	frame := commitFrameBytes(t, fc.sends)
	if got := wire.DecodeSlice(frame[8:12]); got != 1 {
		t.Errorf("is_modem: want 1, got 0x%X", got)
	}
	if got := wire.DecodeSlice(frame[20:24]); got != wire.OdinInt(pit.DeviceNand) {
		t.Errorf("device_type: want %d, got %d", pit.DeviceNand, got)
	}
	if got := wire.DecodeSlice(frame[24:28]); got != 0 {
		t.Errorf("is_last: want 0, got %d", got)
	}
	for i := 28; i < cmdframe.Len; i++ {
		if frame[i] != 0 {
			t.Fatalf("byte %d should be zero padding (6 args), got 0x%02X", i, frame[i])
		}
	}
}

// commitFrameBytes finds the single full-length command frame among sent
// buffers (the empty-transfer framing markers are zero-length).
func commitFrameBytes(t *testing.T, sends [][]byte) []byte {
	t.Helper()
	for _, s := range sends {
		if len(s) == cmdframe.Len {
			return s
		}
	}
	t.Fatal("no full-length command frame found among sends")
	return nil
}
