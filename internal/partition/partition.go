package partition

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"
)

// Partition table location and layout on ESP32 flash
const (
	TableOffset = 0x8000 // Flash offset of the partition table
	TableSize   = 0x1000 // Bytes read from the device
	EntrySize   = 32     // Size of one table record
	MaxEntries  = 95     // 0xC00 bytes of records, rest is MD5 and padding
)

// Record magics
const (
	EntryMagic0 = 0xAA
	EntryMagic1 = 0x50
	MD5Magic    = 0xEB
)

// Partition types and the subtypes spiffsctl cares about
const (
	TypeApp  = 0x00
	TypeData = 0x01

	SubTypeOTA      = 0x00
	SubTypePhy      = 0x01
	SubTypeNVS      = 0x02
	SubTypeCoreDump = 0x03
	SubTypeNVSKeys  = 0x04
	SubTypeEfuse    = 0x05
	SubTypeFAT      = 0x81
	SubTypeSPIFFS   = 0x82
)

// SPIFFSMarker is the record prefix of a data/spiffs partition: the entry
// magic followed by type 0x01 and subtype 0x82.
var SPIFFSMarker = []byte{EntryMagic0, EntryMagic1, TypeData, SubTypeSPIFFS}

// Entry is one partition table record. FindSPIFFS fills only StartAddress and
// Size; ParseTable fills everything.
type Entry struct {
	Type         uint8
	SubType      uint8
	StartAddress uint32
	Size         uint32
	Label        string
	Flags        uint32
}

// End returns the first address past the partition.
func (e Entry) End() uint64 {
	return uint64(e.StartAddress) + uint64(e.Size)
}

// String renders the location the way the part command prints it.
func (e Entry) String() string {
	return fmt.Sprintf("startAddress: 0x%x, size: 0x%x", e.StartAddress, e.Size)
}

// TypeName returns a human-readable partition type.
func (e Entry) TypeName() string {
	switch e.Type {
	case TypeApp:
		return "app"
	case TypeData:
		return "data"
	default:
		return fmt.Sprintf("0x%02x", e.Type)
	}
}

// SubTypeName returns a human-readable partition subtype.
func (e Entry) SubTypeName() string {
	if e.Type == TypeApp {
		switch {
		case e.SubType == 0x00:
			return "factory"
		case e.SubType >= 0x10 && e.SubType <= 0x1F:
			return fmt.Sprintf("ota_%d", e.SubType-0x10)
		case e.SubType == 0x20:
			return "test"
		}
		return fmt.Sprintf("0x%02x", e.SubType)
	}

	switch e.SubType {
	case SubTypeOTA:
		return "ota"
	case SubTypePhy:
		return "phy"
	case SubTypeNVS:
		return "nvs"
	case SubTypeCoreDump:
		return "coredump"
	case SubTypeNVSKeys:
		return "nvs_keys"
	case SubTypeEfuse:
		return "efuse"
	case SubTypeFAT:
		return "fat"
	case SubTypeSPIFFS:
		return "spiffs"
	default:
		return fmt.Sprintf("0x%02x", e.SubType)
	}
}

// Encrypted reports whether the encrypted flag is set.
func (e Entry) Encrypted() bool {
	return e.Flags&0x01 != 0
}

// FindSPIFFS scans data byte by byte for SPIFFSMarker and returns the start
// address and size stored in the 8 bytes after the earliest match.
//
// The marker is matched at any offset, aligned or not. When it is absent the
// zero Entry is returned with ErrNotFound. When it is present but fewer than
// 8 bytes follow it, the zero Entry is returned with ErrTruncated.
func FindSPIFFS(data []byte) (Entry, error) {
	i := bytes.Index(data, SPIFFSMarker)
	if i < 0 {
		return Entry{}, &TableError{Offset: -1, Err: ErrNotFound}
	}

	fields := i + len(SPIFFSMarker)
	if len(data)-fields < 8 {
		return Entry{}, &TableError{
			Offset: i,
			Err:    ErrTruncated,
			Detail: fmt.Sprintf("marker at 0x%x leaves %d of 8 bytes", i, len(data)-fields),
		}
	}

	return Entry{
		Type:         TypeData,
		SubType:      SubTypeSPIFFS,
		StartAddress: binary.LittleEndian.Uint32(data[fields : fields+4]),
		Size:         binary.LittleEndian.Uint32(data[fields+4 : fields+8]),
	}, nil
}

// ReadFile loads a partition table dump from disk and locates the SPIFFS
// partition in it.
func ReadFile(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to read partition table %s: %w", path, err)
	}
	return FindSPIFFS(data)
}

// ParseTable decodes the 32-byte records of an ESP32 partition table.
//
// Decoding stops at the MD5 record, at erased flash (0xFF), or after
// MaxEntries. A record with an unknown magic is a TableError.
func ParseTable(data []byte) ([]Entry, error) {
	var entries []Entry

	for n := 0; n < MaxEntries; n++ {
		off := n * EntrySize
		if off+EntrySize > len(data) {
			break
		}
		rec := data[off : off+EntrySize]

		if rec[0] == 0xFF && rec[1] == 0xFF {
			break
		}
		if rec[0] == MD5Magic && rec[1] == MD5Magic {
			break
		}
		if rec[0] != EntryMagic0 || rec[1] != EntryMagic1 {
			return entries, &TableError{
				Offset: off,
				Err:    ErrBadMagic,
				Detail: fmt.Sprintf("got 0x%02x 0x%02x", rec[0], rec[1]),
			}
		}

		entries = append(entries, decodeEntry(rec))
	}

	return entries, nil
}

func decodeEntry(rec []byte) Entry {
	label := rec[12:28]
	if i := bytes.IndexByte(label, 0); i >= 0 {
		label = label[:i]
	}

	return Entry{
		Type:         rec[2],
		SubType:      rec[3],
		StartAddress: binary.LittleEndian.Uint32(rec[4:8]),
		Size:         binary.LittleEndian.Uint32(rec[8:12]),
		Label:        strings.TrimSpace(string(label)),
		Flags:        binary.LittleEndian.Uint32(rec[28:32]),
	}
}
