package pit

import "fmt"

// InvalidMagicError is returned when a PIT buffer's first 4 bytes do not
// match Magic.
type InvalidMagicError struct {
	Got [4]byte
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("pit: invalid magic bytes % X", e.Got[:])
}

// TruncatedError is returned when a PIT buffer ends before a fixed-size
// field can be fully read.
type TruncatedError struct {
	Have, Need int
}

func (e *TruncatedError) Error() string {
	return fmt.Sprintf("pit: truncated, have %d bytes, need %d", e.Have, e.Need)
}

// InvalidUTF8Error is returned when a NUL-padded string field's non-NUL
// prefix is not valid UTF-8.
type InvalidUTF8Error struct {
	Bytes []byte
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("pit: field is not valid UTF-8: % X", e.Bytes)
}

// UnknownBinaryTypeError is returned for a binary type field outside
// {BinaryOther, BinaryModem}.
type UnknownBinaryTypeError struct {
	Got uint32
}

func (e *UnknownBinaryTypeError) Error() string {
	return fmt.Sprintf("pit: unknown binary type 0x%X", e.Got)
}

// UnknownDeviceTypeError is returned for a device type field outside the
// enumerated DeviceType values.
type UnknownDeviceTypeError struct {
	Got uint32
}

func (e *UnknownDeviceTypeError) Error() string {
	return fmt.Sprintf("pit: unknown device type 0x%X", e.Got)
}

// StringTooLongError is returned when serializing a string field that
// exceeds its fixed on-wire width.
type StringTooLongError struct {
	Field string
	Value string
	Max   int
}

func (e *StringTooLongError) Error() string {
	return fmt.Sprintf("pit: field %s value %q exceeds %d bytes", e.Field, e.Value, e.Max)
}
