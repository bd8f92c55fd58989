package core

import "errors"

// Sentinel errors shared across the packet pipeline. Parse errors are
// recovered inside the pipeline (the frame is dropped); setup and
// configuration errors surface to the caller.
var (
	// Frame decoding errors
	ErrFrameTooShort   = errors.New("bubo: frame too short")
	ErrNotIPv4         = errors.New("bubo: not an ipv4 packet")
	ErrTruncatedPacket = errors.New("bubo: truncated packet")
	ErrFrameTooLarge   = errors.New("bubo: frame exceeds maximum size")

	// DNS message errors
	ErrNotDNS     = errors.New("bubo: not a dns message")
	ErrNoQuestion = errors.New("bubo: dns message has no question")

	// Forwarder errors
	ErrForwarderClosed = errors.New("bubo: forwarder closed")

	// Tunnel device errors
	ErrDeviceClosed = errors.New("bubo: tunnel device closed")

	// Configuration errors
	ErrConfigInvalid = errors.New("bubo: invalid configuration")
)
