// Package tunnel abstracts the virtual network device the pipeline reads
// frames from and writes responses to. Establishing the device and
// negotiating OS permissions is the privileged collaborator's job; this
// package only consumes the handles it hands over.
package tunnel

import (
	"os"
)

// MaxFrameSize is the largest single frame the device can deliver.
// The device MTU is 1500; the read buffer is sized for the interface
// maximum so an oversized frame is never truncated mid-read.
const MaxFrameSize = 32767

// MTU is the configured tunnel interface MTU.
const MTU = 1500

// Device is a byte-oriented, bidirectional frame interface. Each Read
// returns exactly one tunnel frame; each Write submits exactly one.
type Device interface {
	Read(buf []byte) (int, error)
	Write(frame []byte) (int, error)
	Close() error
}

// FromFD wraps an inherited tunnel file descriptor as a Device. The fd
// is typically passed down by the process that established the virtual
// interface.
func FromFD(fd uintptr) Device {
	return os.NewFile(fd, "tun")
}
