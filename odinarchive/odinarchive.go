// Package odinarchive reads Odin .tar.md5 archives: a tape archive body
// followed by two zero-filled terminator blocks and a small key/value
// metadata trailer, with an MD5 checksum covering everything up to the
// trailer's final hash+filename line.
package odinarchive

import (
	"archive/tar"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.jpl.nasa.gov/bdube/odinflash/odinlog"
)

// trailerWindow is the maximum size, in bytes, the metadata trailer is
// assumed to occupy at the end of the file.
const trailerWindow = 768

// hashChunkSize is the read granularity used while computing the MD5
// over archive contents, 1MiB at a time so very large archives don't
// need to be buffered in full.
const hashChunkSize = 1024 * 1024

var archiveLog = odinlog.New("ARCHIVE")

// Metadata is the Odin-specific key/value information appended after an
// archive's tar body.
type Metadata struct {
	BuildID      uint64
	OrigSize     uint64
	MD5          string
	OrigFileName string
}

// Reader wraps a seekable archive, exposing its metadata trailer, MD5
// validation, and the contained tar entries.
type Reader struct {
	r io.ReadSeeker
}

// NewReader wraps r, which must support Seek for trailer/metadata
// lookups at the end of the file.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r}
}

// hashedOffset returns the absolute offset at which data that must NOT
// be hashed begins: found by locating the second-to-last LF in the last
// 768 bytes of the file (spec.md 3, open question -- a heuristic, not a
// parsed structure).
func (o *Reader) hashedOffset() (int64, error) {
	size, err := o.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	start := size - trailerWindow
	if start < 0 {
		start = 0
	}
	if _, err := o.r.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	buf := make([]byte, size-start)
	if _, err := io.ReadFull(o.r, buf); err != nil {
		return 0, err
	}

	var lfIndices []int
	for i, b := range buf {
		if b == '\n' {
			lfIndices = append(lfIndices, i+1)
		}
	}
	if len(lfIndices) < 2 {
		return 0, ErrMalformedTrailer
	}
	offset := start + int64(lfIndices[len(lfIndices)-2])

	if _, err := o.r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return offset, nil
}

// metadataOffset returns the absolute offset at which the metadata
// trailer begins: the first non-zero 4-byte window scanning forward
// from size-768. This misidentifies the start if the trailer's first
// four bytes happen to be zero (spec.md open questions).
func (o *Reader) metadataOffset() (int64, error) {
	size, err := o.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	pos := size - trailerWindow
	if pos < 0 {
		pos = 0
	}
	if _, err := o.r.Seek(pos, io.SeekStart); err != nil {
		return 0, err
	}

	var sample [4]byte
	for {
		if _, err := io.ReadFull(o.r, sample[:]); err != nil {
			return 0, err
		}
		if sample != ([4]byte{}) {
			pos, err = o.r.Seek(-4, io.SeekCurrent)
			if err != nil {
				return 0, err
			}
			break
		}
		pos, err = o.r.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, err
		}
	}

	if _, err := o.r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return pos, nil
}

// Metadata parses the Odin-specific trailer at the end of the archive.
func (o *Reader) Metadata() (Metadata, error) {
	pos, err := o.metadataOffset()
	if err != nil {
		return Metadata{}, fmt.Errorf("odinarchive: locate metadata: %w", err)
	}
	if _, err := o.r.Seek(pos, io.SeekStart); err != nil {
		return Metadata{}, err
	}
	raw, err := io.ReadAll(o.r)
	if err != nil {
		return Metadata{}, err
	}
	if _, err := o.r.Seek(0, io.SeekStart); err != nil {
		return Metadata{}, err
	}

	md, err := parseTrailer(string(raw))
	if err != nil {
		return Metadata{}, err
	}
	archiveLog.Debugf("metadata: build_id=%d orig_size=%d file=%s", md.BuildID, md.OrigSize, md.OrigFileName)
	return md, nil
}

func parseTrailer(data string) (Metadata, error) {
	var buildID, origSize uint64
	var haveBuildID, haveOrigSize bool

	lines := strings.Split(data, "\n")
	for _, line := range lines {
		switch {
		case strings.Contains(line, "BUILD_ID"):
			idx := strings.LastIndex(line, ":")
			if idx < 0 {
				return Metadata{}, ErrMalformedTrailer
			}
			v, err := strconv.ParseUint(line[idx+1:], 10, 64)
			if err != nil {
				return Metadata{}, fmt.Errorf("odinarchive: parse BUILD_ID: %w", err)
			}
			buildID, haveBuildID = v, true
		case strings.Contains(line, "original_tar_file_size"):
			idx := strings.LastIndex(line, ":")
			if idx < 0 {
				return Metadata{}, ErrMalformedTrailer
			}
			v, err := strconv.ParseUint(line[idx+1:], 10, 64)
			if err != nil {
				return Metadata{}, fmt.Errorf("odinarchive: parse original_tar_file_size: %w", err)
			}
			origSize, haveOrigSize = v, true
		}
	}
	if !haveBuildID || !haveOrigSize {
		return Metadata{}, ErrMalformedTrailer
	}

	trimmed := strings.TrimRight(data, "\n")
	lastNL := strings.LastIndex(trimmed, "\n")
	var lastLine string
	if lastNL < 0 {
		lastLine = trimmed
	} else {
		lastLine = trimmed[lastNL+1:]
	}
	hash, name, ok := strings.Cut(lastLine, "  ")
	if !ok {
		return Metadata{}, ErrMalformedTrailer
	}

	return Metadata{
		BuildID:      buildID,
		OrigSize:     origSize,
		MD5:          hash,
		OrigFileName: name,
	}, nil
}

// Validate recomputes the MD5 over everything before the trailer's final
// hash+filename line (up to hashedOffset) and compares it against the
// trailer's recorded hash. This reads the entire
// archive once.
func (o *Reader) Validate() error {
	md, err := o.Metadata()
	if err != nil {
		return err
	}
	cutoff, err := o.hashedOffset()
	if err != nil {
		return fmt.Errorf("odinarchive: locate hashed region: %w", err)
	}

	if _, err := o.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	hasher := md5.New()
	buf := make([]byte, hashChunkSize)
	var readTotal int64
	for {
		n, err := o.r.Read(buf)
		if n > 0 {
			readTotal += int64(n)
			used := n
			if overlap := readTotal - cutoff; overlap > 0 {
				if int64(used)-overlap < 0 {
					used = 0
				} else {
					used = int(int64(used) - overlap)
				}
			}
			hasher.Write(buf[:used])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("odinarchive: hashing: %w", err)
		}
	}

	got := hex.EncodeToString(hasher.Sum(nil))
	if _, err := o.r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if got != md.MD5 {
		return &ChecksumMismatchError{Expected: md.MD5, Got: got}
	}
	archiveLog.Infof("checksum ok: %s", got)
	return nil
}

// Archive returns a tar.Reader over the archive's contents.
func (o *Reader) Archive() *tar.Reader {
	return tar.NewReader(o.r)
}
