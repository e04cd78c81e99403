// Package wire implements the fixed-width little-endian integer encoding
// used for every field of an Odin command frame, reply frame, and PIT entry.
package wire

import "encoding/binary"

// Size is the number of bytes an OdinInt occupies on the wire.
const Size = 4

// OdinInt is a 32-bit unsigned integer encoded little-endian on the wire.
// It is the basic unit all Odin protocol fields are built from.
type OdinInt uint32

// Encode returns the 4-byte little-endian wire representation of v.
func Encode(v OdinInt) [Size]byte {
	var buf [Size]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	return buf
}

// Decode reads a 4-byte little-endian wire representation into an OdinInt.
func Decode(buf [Size]byte) OdinInt {
	return OdinInt(binary.LittleEndian.Uint32(buf[:]))
}

// DecodeSlice is like Decode but takes a slice, which must be at least
// Size bytes long. Extra bytes are ignored.
func DecodeSlice(buf []byte) OdinInt {
	return OdinInt(binary.LittleEndian.Uint32(buf))
}

// SplitU64 encodes a 64-bit length as two OdinInts, low half first, as
// required by the protocol-4 SetTotalSize command (spec.md 4.5.5).
func SplitU64(v uint64) (lo, hi OdinInt) {
	return OdinInt(uint32(v & 0xFFFFFFFF)), OdinInt(uint32(v >> 32))
}

// JoinU64 is the inverse of SplitU64.
func JoinU64(lo, hi OdinInt) uint64 {
	return uint64(lo) | (uint64(hi) << 32)
}
