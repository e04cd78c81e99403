package pit

// Serialize encodes the PIT back into its binary form. It is the inverse
// of Deserialize: for any well-formed PIT, Serialize(Deserialize(b))
// reproduces b exactly (spec.md 7), provided the header's unused word at
// offset 24 is zero. Deserialize does not keep that word and Serialize
// always writes zero there, so a non-zero value is not preserved.
func (p *Pit) Serialize() ([]byte, error) {
	numEntries := p.NumEntries()
	out := make([]byte, HeaderSize+numEntries*EntrySize)

	copy(out[0:4], Magic[:])
	writeU32LE(out[4:8], uint32(numEntries))
	if err := writeFixedString(out[8:16], "gang_name", p.GangName); err != nil {
		return nil, err
	}
	if err := writeFixedString(out[16:24], "project_name", p.ProjectName); err != nil {
		return nil, err
	}
	// out[24:28] stays zero -- the unused/unknown header word.

	body := out[HeaderSize:]
	if p.Version == V1 {
		for i, e := range p.EntriesV1 {
			if err := serializeEntryV1(body[i*EntrySize:(i+1)*EntrySize], e); err != nil {
				return nil, err
			}
		}
	} else {
		for i, e := range p.EntriesV2 {
			if err := serializeEntryV2(body[i*EntrySize:(i+1)*EntrySize], e); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func serializeEntryV1(e []byte, v EntryV1) error {
	writeU32LE(e[0:4], uint32(v.Type))
	writeU32LE(e[4:8], uint32(v.Device))
	writeU32LE(e[8:12], v.PartitionIDField)
	writeU32LE(e[12:16], uint32(v.Attributes))
	writeU32LE(e[16:20], uint32(v.UpdateAttributes))
	writeU32LE(e[20:24], v.BlockSize)
	writeU32LE(e[24:28], v.BlockCount)
	writeU32LE(e[28:32], v.FileOffset)
	writeU32LE(e[32:36], v.FileSizeField)

	if err := writeFixedString(e[36:68], "partition_name", v.PartitionNameStr); err != nil {
		return err
	}
	if err := writeFixedString(e[68:100], "flash_filename", v.FlashFilenameStr); err != nil {
		return err
	}
	if err := writeFixedString(e[100:132], "fota_filename", v.FOTAFilenameStr); err != nil {
		return err
	}
	return nil
}

func serializeEntryV2(e []byte, v EntryV2) error {
	writeU32LE(e[0:4], uint32(v.Type))
	writeU32LE(e[4:8], uint32(v.Device))
	writeU32LE(e[8:12], v.PartitionIDField)
	writeU32LE(e[12:16], v.PartitionType)
	writeU32LE(e[16:20], v.Filesystem)
	writeU32LE(e[20:24], v.StartBlock)
	writeU32LE(e[24:28], v.BlockNum)
	writeU32LE(e[28:32], v.FileOffset)
	writeU32LE(e[32:36], v.FileSizeField)

	if err := writeFixedString(e[36:68], "partition_name", v.PartitionNameStr); err != nil {
		return err
	}
	if err := writeFixedString(e[68:100], "flash_filename", v.FlashFilenameStr); err != nil {
		return err
	}
	if err := writeFixedString(e[100:132], "fota_filename", v.FOTAFilenameStr); err != nil {
		return err
	}
	return nil
}

// writeFixedString copies s into dst, NUL-padded to dst's full width, and
// fails if s does not fit.
func writeFixedString(dst []byte, field, s string) error {
	if len(s) > len(dst) {
		return &StringTooLongError{Field: field, Value: s, Max: len(dst)}
	}
	copy(dst, s)
	for i := len(s); i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}
