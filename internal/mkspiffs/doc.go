// Package mkspiffs drives the mkspiffs image packer.
//
// Data directory and image paths are made absolute against the working
// directory before they are handed to the tool. Images are always built with
// a 256 byte page and a 4096 byte block.
package mkspiffs
