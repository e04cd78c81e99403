package session

import (
	"github.jpl.nasa.gov/bdube/odinflash/cmdframe"
	"github.jpl.nasa.gov/bdube/odinflash/pit"
	"github.jpl.nasa.gov/bdube/odinflash/progress"
	"github.jpl.nasa.gov/bdube/odinflash/wire"
)

// Flash sub-arguments used only by the sequencer (spec.md 4.6).
const (
	flashSequenceBegin wire.OdinInt = 0x02
	flashCommit        wire.OdinInt = 0x03
)

// runSequence drives one flash sequence: initiate, transfer parts, then
// commit. seq's length must not exceed the session's negotiated
// max_seq_size_bytes; the caller (Flash) is responsible for slicing.
func (s *Session) runSequence(seq []byte, isLast bool, entry pit.Entry, reporter *progress.Reporter) error {
	if err := s.initiateSequence(len(seq)); err != nil {
		return err
	}
	if err := s.transferParts(seq, reporter); err != nil {
		return err
	}
	return s.commitSequence(len(seq), isLast, entry)
}

func (s *Session) initiateSequence(length int) error {
	if err := cmdframe.New(cmdframe.Flash, flashSequenceBegin, wire.OdinInt(length)).Send(s.c); err != nil {
		return err
	}
	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.Flash {
		return &UnexpectedCommandError{Want: cmdframe.Flash, Got: reply.Cmd}
	}
	return s.emptyTransferSend()
}

func (s *Session) transferParts(seq []byte, reporter *progress.Reporter) error {
	partSize := int(s.params.MaxFilePartSize)
	numParts := (len(seq) + partSize - 1) / partSize
	if len(seq) == 0 {
		numParts = 0
	}

	for p := 0; p < numParts; p++ {
		lo := p * partSize
		hi := lo + partSize
		if hi > len(seq) {
			hi = len(seq)
		}
		part := seq[lo:hi]
		isLastPart := p == numParts-1

		if !isLastPart {
			if err := s.emptyTransferSend(); err != nil {
				return err
			}
		}
		if err := s.c.Send(part); err != nil {
			return err
		}

		reply, err := cmdframe.ReadReply(s.c)
		if err != nil {
			return err
		}
		if reply.Cmd != cmdframe.ChunkTransferOk {
			return &UnexpectedCommandError{Want: cmdframe.ChunkTransferOk, Got: reply.Cmd}
		}
		if int(reply.Arg) != p {
			return &UnexpectedPartIndexError{Want: wire.OdinInt(p), Got: reply.Arg}
		}

		reporter.Report(uint64(len(part)))
	}
	return nil
}

func (s *Session) commitSequence(length int, isLast bool, entry pit.Entry) error {
	if err := s.emptyTransferSend(); err != nil {
		return err
	}

	isModem := entry != nil && entry.BinaryType() == pit.BinaryModem
	isModemArg := wire.OdinInt(0)
	if isModem {
		isModemArg = 1
	}
	isLastArg := wire.OdinInt(0)
	if isLast {
		isLastArg = 1
	}
	var deviceType wire.OdinInt
	if entry != nil {
		deviceType = wire.OdinInt(entry.DeviceType())
	}

	var f cmdframe.Frame
	if isModem {
		f = cmdframe.New(cmdframe.Flash, flashCommit, isModemArg, wire.OdinInt(length), 0x00, deviceType, isLastArg)
	} else {
		var partitionID wire.OdinInt
		if entry != nil {
			partitionID = wire.OdinInt(entry.PartitionID())
		}
		f = cmdframe.New(cmdframe.Flash, flashCommit, isModemArg, wire.OdinInt(length), 0x00, deviceType, partitionID, isLastArg)
	}
	if err := f.Send(s.c); err != nil {
		return err
	}

	if err := s.emptyTransferSend(); err != nil {
		return err
	}

	reply, err := cmdframe.ReadReply(s.c)
	if err != nil {
		return err
	}
	if reply.Cmd != cmdframe.Flash {
		return &UnexpectedCommandError{Want: cmdframe.Flash, Got: reply.Cmd}
	}
	// A zero arg means success everywhere else an ack carries one
	// (TransferPIT, SessionStart); treat a non-zero commit ack the same way.
	if reply.Arg != 0 {
		lastPart := (length - 1) / int(s.params.MaxFilePartSize)
		return &PartFlashFailureError{PartIndex: wire.OdinInt(lastPart)}
	}
	return nil
}
