package odinarchive

import (
	"errors"
	"fmt"
)

// ErrMalformedTrailer is returned when the metadata trailer does not
// contain the expected BUILD_ID/original_tar_file_size/hash+filename
// lines, or the LF-counting heuristic used to locate the hashed region
// fails.
var ErrMalformedTrailer = errors.New("odinarchive: malformed metadata trailer")

// ChecksumMismatchError is returned by Validate when the computed MD5
// does not match the one recorded in the trailer.
type ChecksumMismatchError struct {
	Expected, Got string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("odinarchive: checksum mismatch: expected %s, got %s", e.Expected, e.Got)
}
