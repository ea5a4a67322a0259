package partition

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the table holds no data/spiffs partition.
	ErrNotFound = errors.New("no SPIFFS partition in partition table")

	// ErrTruncated means the SPIFFS record is cut off by the end of the data.
	ErrTruncated = errors.New("partition table truncated")

	// ErrBadMagic means a table record does not start with the entry magic.
	ErrBadMagic = errors.New("invalid partition entry magic")
)

// TableError describes a partition table that could not be used.
type TableError struct {
	// Offset is the byte offset of the offending record, or -1 if not applicable
	Offset int
	// Detail provides additional context
	Detail string
	// Underlying error (one of the sentinels above)
	Err error
}

func (e *TableError) Error() string {
	msg := e.Err.Error()
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s at offset 0x%x", msg, e.Offset)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *TableError) Unwrap() error {
	return e.Err
}
