// Package framelog optionally traces a CRC over outbound command frames
// and inbound replies, to help diagnose bus corruption when a session
// misbehaves in ways a plain byte dump doesn't make obvious.
package framelog

import (
	"github.com/snksoft/crc"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
)

var (
	crcTable = crc.NewTable(crc.XMODEM)
	log      = odinlog.New(odinlog.CMD)
)

// Checksum computes the XMODEM CRC16 of buf.
func Checksum(buf []byte) uint16 {
	return crcTable.CRC16(crcTable.UpdateCrc(crcTable.InitCrc(), buf))
}

// TraceFrame logs dir ("send" or "recv") and a CRC16 of buf at trace
// level. odinlog does no level filtering, so every call computes the
// checksum and writes the line.
func TraceFrame(dir string, buf []byte) {
	log.Tracef("%s %d bytes, crc16=0x%04X", dir, len(buf), Checksum(buf))
}
