// Package pit implements the Partition Information Table binary codec:
// the fixed-layout partition map a download-mode target reports to, or
// accepts from, the host.
package pit

import (
	"encoding/binary"

	"gopkg.in/yaml.v2"
)

// HeaderSize is the size in bytes of the fixed PIT header.
const HeaderSize = 28

// EntrySize is the size in bytes of a single PIT entry, regardless of
// version.
const EntrySize = 132

// Magic is the 4-byte PIT file signature as it appears on the wire
// (little-endian encoding of 0x12349876).
var Magic = [4]byte{0x76, 0x98, 0x34, 0x12}

// Version distinguishes the two known entry layouts.
type Version int

const (
	// V1 entries carry per-entry attribute bitmasks and a block size field.
	V1 Version = iota
	// V2 entries carry a partition type and filesystem field instead.
	V2
)

func (v Version) String() string {
	if v == V1 {
		return "v1"
	}
	return "v2"
}

// BinaryType distinguishes the two kinds of partition payload.
type BinaryType uint32

const (
	BinaryOther BinaryType = 0x00
	BinaryModem BinaryType = 0x01
)

func (t BinaryType) String() string {
	if t == BinaryModem {
		return "Modem/CP"
	}
	return "Phone/AP"
}

// DeviceType identifies the storage technology a partition lives on.
type DeviceType uint32

const (
	DeviceOneNand DeviceType = 0x00
	DeviceNand    DeviceType = 0x01
	DeviceEmmc    DeviceType = 0x02
	DeviceSpi     DeviceType = 0x03
	DeviceIde     DeviceType = 0x04
	DeviceNandX16 DeviceType = 0x05
	DeviceNor     DeviceType = 0x06
	DeviceNandWB1 DeviceType = 0x07
	DeviceUfs     DeviceType = 0x08
)

var deviceTypeNames = map[DeviceType]string{
	DeviceOneNand: "ONENAND",
	DeviceNand:    "NAND",
	DeviceEmmc:    "EMMC/MOVINAND",
	DeviceSpi:     "SPI",
	DeviceIde:     "IDE",
	DeviceNandX16: "NANDX16",
	DeviceNor:     "NOR",
	DeviceNandWB1: "NANDWB1",
	DeviceUfs:     "UFS",
}

func (d DeviceType) String() string {
	if name, ok := deviceTypeNames[d]; ok {
		return name
	}
	return "UNKNOWN"
}

func validDeviceType(v uint32) bool {
	_, ok := deviceTypeNames[DeviceType(v)]
	return ok
}

// Attribute flags an entry's write/STL/BML characteristics (v1 only).
type Attribute uint32

const (
	AttrWrite Attribute = 0x01
	AttrSTL   Attribute = 0x02
	AttrBML   Attribute = 0x04
)

// UpdateAttribute flags an entry's FOTA/secure-update characteristics
// (v1 only).
type UpdateAttribute uint32

const (
	UpdateAttrFOTA   UpdateAttribute = 0x01
	UpdateAttrSecure UpdateAttribute = 0x02
)

// Entry is a read-only projection common to both PIT entry layouts,
// letting callers that only care about partition identity ignore which
// version produced the entry.
type Entry interface {
	BinaryType() BinaryType
	DeviceType() DeviceType
	PartitionID() uint32
	PartitionName() string
	FlashFilename() string
	FOTAFilename() string
	FileSize() uint32
}

// EntryV1 describes a partition in a version-1 PIT file.
type EntryV1 struct {
	Type             BinaryType
	Device           DeviceType
	PartitionIDField uint32
	Attributes       Attribute
	UpdateAttributes UpdateAttribute
	BlockSize        uint32
	BlockCount       uint32
	FileOffset       uint32
	FileSizeField    uint32
	PartitionNameStr string
	FlashFilenameStr string
	FOTAFilenameStr  string
}

func (e EntryV1) BinaryType() BinaryType { return e.Type }
func (e EntryV1) DeviceType() DeviceType { return e.Device }
func (e EntryV1) PartitionID() uint32    { return e.PartitionIDField }
func (e EntryV1) PartitionName() string  { return e.PartitionNameStr }
func (e EntryV1) FlashFilename() string  { return e.FlashFilenameStr }
func (e EntryV1) FOTAFilename() string   { return e.FOTAFilenameStr }
func (e EntryV1) FileSize() uint32       { return e.FileSizeField }

// HasAttribute reports whether a is set in the entry's attribute bitmask.
func (e EntryV1) HasAttribute(a Attribute) bool {
	return e.Attributes&a != 0
}

// HasUpdateAttribute reports whether a is set in the entry's update
// attribute bitmask.
func (e EntryV1) HasUpdateAttribute(a UpdateAttribute) bool {
	return e.UpdateAttributes&a != 0
}

// EntryV2 describes a partition in a version-2 PIT file.
type EntryV2 struct {
	Type             BinaryType
	Device           DeviceType
	PartitionIDField uint32
	PartitionType    uint32
	Filesystem       uint32
	StartBlock       uint32
	BlockNum         uint32
	FileOffset       uint32
	FileSizeField    uint32
	PartitionNameStr string
	FlashFilenameStr string
	FOTAFilenameStr  string
}

func (e EntryV2) BinaryType() BinaryType { return e.Type }
func (e EntryV2) DeviceType() DeviceType { return e.Device }
func (e EntryV2) PartitionID() uint32    { return e.PartitionIDField }
func (e EntryV2) PartitionName() string  { return e.PartitionNameStr }
func (e EntryV2) FlashFilename() string  { return e.FlashFilenameStr }
func (e EntryV2) FOTAFilename() string   { return e.FOTAFilenameStr }
func (e EntryV2) FileSize() uint32       { return e.FileSizeField }

// Pit is a parsed partition table: either a slice of v1 entries or a
// slice of v2 entries, discriminated by Version. Only the slice matching
// Version is populated.
type Pit struct {
	Version     Version
	GangName    string
	ProjectName string
	EntriesV1   []EntryV1
	EntriesV2   []EntryV2
}

// NumEntries returns the entry count regardless of version.
func (p *Pit) NumEntries() int {
	if p.Version == V1 {
		return len(p.EntriesV1)
	}
	return len(p.EntriesV2)
}

// EntryByName performs a linear search across the populated entry slice
// for a partition with the given name. PIT files hold at most a few
// hundred entries, so a linear scan is adequate (spec.md 4.3).
func (p *Pit) EntryByName(name string) (Entry, bool) {
	if p.Version == V1 {
		for _, e := range p.EntriesV1 {
			if e.PartitionNameStr == name {
				return e, true
			}
		}
		return nil, false
	}
	for _, e := range p.EntriesV2 {
		if e.PartitionNameStr == name {
			return e, true
		}
	}
	return nil, false
}

// yamlPit mirrors Pit's shape for human-readable dumps without exposing
// the internal layout details callers shouldn't depend on.
type yamlPit struct {
	Version     string      `yaml:"version"`
	GangName    string      `yaml:"gang_name"`
	ProjectName string      `yaml:"project_name"`
	Entries     interface{} `yaml:"entries"`
}

// ToYAML renders the PIT as human-inspectable YAML, mirroring the print
// and save-pit tooling built on top of the original parser.
func (p *Pit) ToYAML() ([]byte, error) {
	y := yamlPit{
		Version:     p.Version.String(),
		GangName:    p.GangName,
		ProjectName: p.ProjectName,
	}
	if p.Version == V1 {
		y.Entries = p.EntriesV1
	} else {
		y.Entries = p.EntriesV2
	}
	return yaml.Marshal(y)
}

func readU32BE(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func readU32LE(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func writeU32LE(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
