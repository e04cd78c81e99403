package session

import (
	"fmt"
	"time"

	"github.jpl.nasa.gov/bdube/odinflash/cmdframe"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// scriptedTransport is a transport.Communicator test double that records
// every Send and returns pre-loaded byte slices for RecvExact, in order.
// It lets session tests script a device's side of a conversation without
// a real transport.
type scriptedTransport struct {
	sends     [][]byte
	recvQueue [][]byte
}

func (s *scriptedTransport) Close() error { return nil }

func (s *scriptedTransport) Send(p []byte) error {
	cp := append([]byte(nil), p...)
	s.sends = append(s.sends, cp)
	return nil
}

func (s *scriptedTransport) RecvExact(n int) ([]byte, error) {
	if len(s.recvQueue) == 0 {
		return nil, fmt.Errorf("scriptedTransport: no more scripted replies, wanted %d bytes", n)
	}
	out := s.recvQueue[0]
	s.recvQueue = s.recvQueue[1:]
	if len(out) != n {
		return nil, fmt.Errorf("scriptedTransport: scripted reply has %d bytes, wanted %d", len(out), n)
	}
	return out, nil
}

func (s *scriptedTransport) Recv() ([]byte, error) { return nil, nil }

func (s *scriptedTransport) SetTimeout(d time.Duration) {}

// replyBytes builds the 8-byte wire encoding of a reply frame.
func replyBytes(cmd cmdframe.Command, arg wire.OdinInt) []byte {
	cmdBuf := wire.Encode(wire.OdinInt(cmd))
	argBuf := wire.Encode(arg)
	return append(append([]byte{}, cmdBuf[:]...), argBuf[:]...)
}
