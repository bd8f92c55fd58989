// Package decoder implements binary decoding of tunnel frames.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/bubo/internal/core"
)

const (
	udpHeaderLen = 8
)

// DecodeUDP decodes a UDP header from an IPv4 payload.
// Returns the header and the payload bounded by the declared length.
//
// The UDP checksum is skipped on the request path; it is optional over
// IPv4 and the frames come from the trusted tunnel endpoint.
func DecodeUDP(data []byte) (core.UDPHeader, []byte, error) {
	if len(data) < udpHeaderLen {
		return core.UDPHeader{}, nil, core.ErrFrameTooShort
	}

	hdr := core.UDPHeader{
		// Source Port (2 bytes at offset 0)
		SrcPort: binary.BigEndian.Uint16(data[0:2]),
		// Destination Port (2 bytes at offset 2)
		DstPort: binary.BigEndian.Uint16(data[2:4]),
		// Length (2 bytes at offset 4) - includes the 8-byte header
		Length: int(binary.BigEndian.Uint16(data[4:6])),
	}

	if hdr.Length < udpHeaderLen || hdr.Length > len(data) {
		return core.UDPHeader{}, nil, core.ErrTruncatedPacket
	}

	payload := data[udpHeaderLen:hdr.Length]
	return hdr, payload, nil
}
