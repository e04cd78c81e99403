package pit

import (
	"testing"
)

// buildEntryV1 constructs a raw 132-byte v1 entry with the given
// big-endian-readable block size at offset 20 and partition name.
func buildEntryV1(blockSize uint32, partitionName string) []byte {
	e := make([]byte, EntrySize)
	writeU32LE(e[0:4], uint32(BinaryOther))
	writeU32LE(e[4:8], uint32(DeviceEmmc))
	writeU32LE(e[8:12], 1)
	writeU32LE(e[12:16], uint32(AttrWrite))
	writeU32LE(e[16:20], uint32(UpdateAttrFOTA))
	// Offset 20 is read big-endian by the version heuristic, so fill it
	// with a value whose BE and LE interpretations both stay obvious.
	e[20], e[21], e[22], e[23] = byte(blockSize>>24), byte(blockSize>>16), byte(blockSize>>8), byte(blockSize)
	writeU32LE(e[24:28], 10)
	writeU32LE(e[28:32], 0)
	writeU32LE(e[32:36], 4096)
	copy(e[36:68], partitionName)
	copy(e[68:100], "boot.img")
	copy(e[100:132], "")
	return e
}

func buildPitBytes(blockSizes []uint32, names []string) []byte {
	header := make([]byte, HeaderSize)
	copy(header[0:4], Magic[:])
	writeU32LE(header[4:8], uint32(len(blockSizes)))
	copy(header[8:16], "COM_TAR2")
	copy(header[16:24], "SM-TEST")

	var out []byte
	out = append(out, header...)
	for i, bs := range blockSizes {
		out = append(out, buildEntryV1(bs, names[i])...)
	}
	return out
}

func TestDeserializeV1Fixture(t *testing.T) {
	data := buildPitBytes(
		[]uint32{0x100, 0x100, 0x100, 0x100},
		[]string{"BOOT", "RECOVERY", "SYSTEM", "USERDATA"},
	)

	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if p.Version != V1 {
		t.Fatalf("want V1, got %s", p.Version)
	}
	if len(p.EntriesV1) != 4 {
		t.Fatalf("want 4 entries, got %d", len(p.EntriesV1))
	}
	if p.EntriesV1[0].PartitionNameStr != "BOOT" {
		t.Errorf("want BOOT, got %q", p.EntriesV1[0].PartitionNameStr)
	}
}

func TestDeserializeV2Fixture(t *testing.T) {
	data := buildPitBytes(
		[]uint32{0x100, 0x200, 0x100, 0x400},
		[]string{"BOOT", "RECOVERY", "SYSTEM", "USERDATA"},
	)

	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if p.Version != V2 {
		t.Fatalf("want V2, got %s", p.Version)
	}
	if len(p.EntriesV2) != 4 {
		t.Fatalf("want 4 entries, got %d", len(p.EntriesV2))
	}
}

func TestDeserializeInvalidMagic(t *testing.T) {
	data := buildPitBytes([]uint32{0x100}, []string{"BOOT"})
	data[0] = 0xFF

	_, err := Deserialize(data)
	if err == nil {
		t.Fatal("expected error for invalid magic")
	}
	if _, ok := err.(*InvalidMagicError); !ok {
		t.Errorf("want *InvalidMagicError, got %T", err)
	}
}

func TestDeserializeTruncated(t *testing.T) {
	data := buildPitBytes([]uint32{0x100, 0x100}, []string{"BOOT", "RECOVERY"})
	truncated := data[:len(data)-10]

	_, err := Deserialize(truncated)
	if err == nil {
		t.Fatal("expected error for truncated input")
	}
	if _, ok := err.(*TruncatedError); !ok {
		t.Errorf("want *TruncatedError, got %T", err)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	data := buildPitBytes(
		[]uint32{0x100, 0x100, 0x100},
		[]string{"BOOT", "RECOVERY", "SYSTEM"},
	)

	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	out, err := p.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if len(out) != len(data) {
		t.Fatalf("want length %d, got %d", len(data), len(out))
	}
	for i := range data {
		if out[i] != data[i] {
			t.Fatalf("byte %d differs: want 0x%02X, got 0x%02X", i, data[i], out[i])
		}
	}
}

func TestEntryByName(t *testing.T) {
	data := buildPitBytes(
		[]uint32{0x100, 0x100},
		[]string{"BOOT", "RECOVERY"},
	)
	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	e, ok := p.EntryByName("RECOVERY")
	if !ok {
		t.Fatal("expected to find RECOVERY")
	}
	if e.PartitionName() != "RECOVERY" {
		t.Errorf("want RECOVERY, got %s", e.PartitionName())
	}

	if _, ok := p.EntryByName("NONEXISTENT"); ok {
		t.Error("expected NONEXISTENT to be absent")
	}
}

func TestSerializeStringTooLong(t *testing.T) {
	p := &Pit{
		Version: V1,
		EntriesV1: []EntryV1{
			{PartitionNameStr: "this-partition-name-is-definitely-too-long-for-32-bytes"},
		},
	}
	_, err := p.Serialize()
	if err == nil {
		t.Fatal("expected error for oversized partition name")
	}
	if _, ok := err.(*StringTooLongError); !ok {
		t.Errorf("want *StringTooLongError, got %T", err)
	}
}

func TestToYAML(t *testing.T) {
	data := buildPitBytes([]uint32{0x100}, []string{"BOOT"})
	p, err := Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	out, err := p.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	if len(out) == 0 {
		t.Error("expected non-empty YAML output")
	}
}
