// Package spiffs sequences partition table lookup, device I/O and image
// packing into the operations exposed by the CLI.
//
// # Operations
//
//	Read    read table -> locate -> read region -> unpack
//	Write   read table -> locate -> make image -> check size -> write region
//	Part    read table -> decode
//	Make    locate in local table -> make image
//	Unpack  unpack image
//	List    list image
//
// Read, Write and Part need a serial port and return config.ErrPortRequired
// before touching any tool when none is set. Read, Write and Make fail with
// partition.ErrNotFound when the table has no SPIFFS record; Part reports
// that case through PartitionInfo.Found instead.
//
// # Usage Example
//
//	ops := spiffs.New(spiffs.Options{
//	    Settings:   settings,
//	    Flasher:    esptool.NewFlasher(r, esptool.Options{...}, logger),
//	    Packer:     mkspiffs.NewPacker(r, mkspiffs.Options{...}, logger),
//	    OnProgress: func(s spiffs.Step) { ... },
//	})
//	result, err := ops.Write(ctx)
package spiffs
