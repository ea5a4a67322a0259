// Package esptool drives esptool to move raw bytes between flash and files.
//
// Every operation passes the configured port and baud rate and fails with
// config.ErrPortRequired, without spawning anything, when no port is set.
//
//	esptool.py --port P --baud B read_flash  0x8000 0x1000 partition_table.bin
//	esptool.py --port P --baud B read_flash  <start> <size> <image>
//	esptool.py --port P --baud B write_flash <start> <image>
package esptool
