// Package partition decodes ESP32 partition tables.
//
// The table lives at flash offset 0x8000 and is a sequence of 32-byte
// records:
//
//	offset  size  field
//	0       2     magic 0xAA 0x50
//	2       1     type    (0x00 app, 0x01 data)
//	3       1     subtype (0x82 spiffs for data partitions)
//	4       4     offset  (little-endian)
//	8       4     size    (little-endian)
//	12      16    label   (NUL padded)
//	28      4     flags
//
// The records are followed by an MD5 record (0xEB 0xEB ...) and erased flash.
//
// FindSPIFFS is what the read, write, and make operations use. It does not
// walk the records; it searches the raw bytes for AA 50 01 82 and reads the
// two words after it, so it also works on dumps that are not record aligned.
// ParseTable walks the records and is used to show the whole table.
package partition
