package spiffs

import "fmt"

// ImageTooLargeError is returned by Write when the packed image would spill
// past the end of the SPIFFS partition.
type ImageTooLargeError struct {
	Image         string
	ImageSize     int64
	PartitionSize uint32
}

func (e *ImageTooLargeError) Error() string {
	return fmt.Sprintf("image %s is %d bytes but the SPIFFS partition holds only %d bytes",
		e.Image, e.ImageSize, e.PartitionSize)
}
