package tunnel

import (
	"sync"

	"firestige.xyz/bubo/internal/core"
)

// MemoryDevice is an in-process Device backed by channels. Tests inject
// frames with Inject and observe write-backs on Outbound.
type MemoryDevice struct {
	inbound  chan []byte
	outbound chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemoryDevice creates a MemoryDevice buffering up to depth frames in
// each direction.
func NewMemoryDevice(depth int) *MemoryDevice {
	return &MemoryDevice{
		inbound:  make(chan []byte, depth),
		outbound: make(chan []byte, depth),
		closed:   make(chan struct{}),
	}
}

// Inject queues a frame for the next Read.
func (d *MemoryDevice) Inject(frame []byte) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	d.inbound <- cp
}

// Outbound exposes frames written back through the device.
func (d *MemoryDevice) Outbound() <-chan []byte {
	return d.outbound
}

// Read blocks until a frame is injected or the device is closed.
func (d *MemoryDevice) Read(buf []byte) (int, error) {
	select {
	case frame := <-d.inbound:
		return copy(buf, frame), nil
	case <-d.closed:
		return 0, core.ErrDeviceClosed
	}
}

// Write delivers one frame to the outbound channel.
func (d *MemoryDevice) Write(frame []byte) (int, error) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case d.outbound <- cp:
		return len(frame), nil
	case <-d.closed:
		return 0, core.ErrDeviceClosed
	}
}

// Close unblocks pending reads and writes.
func (d *MemoryDevice) Close() error {
	d.closeOnce.Do(func() { close(d.closed) })
	return nil
}
