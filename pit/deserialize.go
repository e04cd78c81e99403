package pit

import "unicode/utf8"

const stringMaxLen = 32

// Deserialize parses a complete PIT file from data. The version
// heuristic inspects the big-endian u32 at offset 20 of every entry: if
// they all agree, the file is treated as v1, otherwise v2 (spec.md 3)
// -- borrowed from prior reverse-engineering of the format, not a
// documented field.
func Deserialize(data []byte) (*Pit, error) {
	if len(data) < HeaderSize {
		return nil, &TruncatedError{Have: len(data), Need: HeaderSize}
	}
	var magic [4]byte
	copy(magic[:], data[0:4])
	if magic != Magic {
		return nil, &InvalidMagicError{Got: magic}
	}

	numEntries := int(readU32LE(data[4:8]))
	gangName, err := readFixedString(data[8:16])
	if err != nil {
		return nil, err
	}
	projectName, err := readFixedString(data[16:24])
	if err != nil {
		return nil, err
	}
	// data[24:28] is an unused/unknown 4-byte field (spec.md open question).

	need := HeaderSize + numEntries*EntrySize
	if len(data) < need {
		return nil, &TruncatedError{Have: len(data), Need: need}
	}

	body := data[HeaderSize:need]
	v2 := isV2(body, numEntries)

	p := &Pit{GangName: gangName, ProjectName: projectName}
	if v2 {
		p.Version = V2
		p.EntriesV2 = make([]EntryV2, 0, numEntries)
		for i := 0; i < numEntries; i++ {
			entry, err := deserializeEntryV2(body[i*EntrySize : (i+1)*EntrySize])
			if err != nil {
				return nil, err
			}
			p.EntriesV2 = append(p.EntriesV2, entry)
		}
	} else {
		p.Version = V1
		p.EntriesV1 = make([]EntryV1, 0, numEntries)
		for i := 0; i < numEntries; i++ {
			entry, err := deserializeEntryV1(body[i*EntrySize : (i+1)*EntrySize])
			if err != nil {
				return nil, err
			}
			p.EntriesV1 = append(p.EntriesV1, entry)
		}
	}
	return p, nil
}

// isV2 reports whether the block of entries looks like a v2 PIT: the
// big-endian u32 at offset 20 of each entry must all be equal for v1.
func isV2(body []byte, numEntries int) bool {
	var last uint32
	seen := false
	for i := 0; i < numEntries; i++ {
		entry := body[i*EntrySize : (i+1)*EntrySize]
		blockSize := readU32BE(entry[20:24])
		if !seen {
			last = blockSize
			seen = true
			continue
		}
		if blockSize != last {
			return true
		}
	}
	return false
}

func deserializeEntryV1(e []byte) (EntryV1, error) {
	binType, err := readBinaryType(e[0:4])
	if err != nil {
		return EntryV1{}, err
	}
	devType, err := readDeviceType(e[4:8])
	if err != nil {
		return EntryV1{}, err
	}
	partitionID := readU32LE(e[8:12])
	attrs := Attribute(readU32LE(e[12:16]))
	updateAttrs := UpdateAttribute(readU32LE(e[16:20]))
	blockSize := readU32LE(e[20:24])
	blockCount := readU32LE(e[24:28])
	fileOffset := readU32LE(e[28:32])
	fileSize := readU32LE(e[32:36])

	// The remaining 96 bytes are the three NUL-padded string fields. A
	// reserved word was reported between file_size and partition_name in
	// prior reverse-engineering notes, but keeping it would push the last
	// string field 4 bytes past the 132-byte entry stride -- dropped here
	// so entries round-trip within their declared size.
	partitionName, err := readFixedString(e[36:68])
	if err != nil {
		return EntryV1{}, err
	}
	flashFilename, err := readFixedString(e[68:100])
	if err != nil {
		return EntryV1{}, err
	}
	fotaFilename, err := readFixedString(e[100:132])
	if err != nil {
		return EntryV1{}, err
	}

	return EntryV1{
		Type:             binType,
		Device:           devType,
		PartitionIDField: partitionID,
		Attributes:       attrs,
		UpdateAttributes: updateAttrs,
		BlockSize:        blockSize,
		BlockCount:       blockCount,
		FileOffset:       fileOffset,
		FileSizeField:    fileSize,
		PartitionNameStr: partitionName,
		FlashFilenameStr: flashFilename,
		FOTAFilenameStr:  fotaFilename,
	}, nil
}

func deserializeEntryV2(e []byte) (EntryV2, error) {
	binType, err := readBinaryType(e[0:4])
	if err != nil {
		return EntryV2{}, err
	}
	devType, err := readDeviceType(e[4:8])
	if err != nil {
		return EntryV2{}, err
	}
	partitionID := readU32LE(e[8:12])
	partitionType := readU32LE(e[12:16])
	filesystem := readU32LE(e[16:20])
	startBlock := readU32LE(e[20:24])
	blockNum := readU32LE(e[24:28])
	fileOffset := readU32LE(e[28:32])
	fileSize := readU32LE(e[32:36])

	partitionName, err := readFixedString(e[36:68])
	if err != nil {
		return EntryV2{}, err
	}
	flashFilename, err := readFixedString(e[68:100])
	if err != nil {
		return EntryV2{}, err
	}
	fotaFilename, err := readFixedString(e[100:132])
	if err != nil {
		return EntryV2{}, err
	}

	return EntryV2{
		Type:             binType,
		Device:           devType,
		PartitionIDField: partitionID,
		PartitionType:    partitionType,
		Filesystem:       filesystem,
		StartBlock:       startBlock,
		BlockNum:         blockNum,
		FileOffset:       fileOffset,
		FileSizeField:    fileSize,
		PartitionNameStr: partitionName,
		FlashFilenameStr: flashFilename,
		FOTAFilenameStr:  fotaFilename,
	}, nil
}

func readBinaryType(b []byte) (BinaryType, error) {
	v := readU32LE(b)
	switch BinaryType(v) {
	case BinaryOther, BinaryModem:
		return BinaryType(v), nil
	default:
		return 0, &UnknownBinaryTypeError{Got: v}
	}
}

func readDeviceType(b []byte) (DeviceType, error) {
	v := readU32LE(b)
	if !validDeviceType(v) {
		return 0, &UnknownDeviceTypeError{Got: v}
	}
	return DeviceType(v), nil
}

// readFixedString reads a NUL-padded ASCII/UTF-8 field, truncating at the
// first NUL byte and strictly validating the remainder as UTF-8
// (spec.md 4.3 -- "strict, reject otherwise").
func readFixedString(b []byte) (string, error) {
	end := len(b)
	for i, c := range b {
		if c == 0 {
			end = i
			break
		}
	}
	raw := b[:end]
	if !utf8.Valid(raw) {
		return "", &InvalidUTF8Error{Bytes: append([]byte{}, raw...)}
	}
	return string(raw), nil
}
