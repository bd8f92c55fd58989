// Package decoder implements binary decoding of tunnel frames.
package decoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/bubo/internal/core"
)

const (
	ipv4HeaderMinLen = 20
)

// DecodeIPv4 decodes an IPv4 header from a raw tunnel frame.
// Returns the header and the payload bounded by the total-length field.
//
// The header checksum is deliberately not validated: frames originate from
// the local tunnel endpoint, which is trusted. Revisit this if the decoder
// is ever pointed at traffic from an untrusted network source.
func DecodeIPv4(data []byte) (core.IPv4Header, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPv4Header{}, nil, core.ErrFrameTooShort
	}

	// Version - upper 4 bits of first byte
	version := data[0] >> 4
	if version != 4 {
		return core.IPv4Header{}, nil, core.ErrNotIPv4
	}

	// IHL (Internet Header Length) - lower 4 bits, in 32-bit words
	headerLen := int(data[0]&0x0F) * 4
	if headerLen < ipv4HeaderMinLen || headerLen > len(data) {
		return core.IPv4Header{}, nil, core.ErrTruncatedPacket
	}

	// Total Length (2 bytes at offset 2) must fit within the frame
	// and cover at least the header itself.
	totalLen := int(binary.BigEndian.Uint16(data[2:4]))
	if totalLen > len(data) || totalLen < headerLen {
		return core.IPv4Header{}, nil, core.ErrTruncatedPacket
	}

	hdr := core.IPv4Header{
		Version:   4,
		HeaderLen: headerLen,
		TotalLen:  totalLen,
		TTL:       data[8],
		Protocol:  data[9],
	}

	// Source address (4 bytes at offset 12)
	hdr.SrcIP = netip.AddrFrom4([4]byte(data[12:16]))

	// Destination address (4 bytes at offset 16)
	hdr.DstIP = netip.AddrFrom4([4]byte(data[16:20]))

	payload := data[headerLen:totalLen]
	return hdr, payload, nil
}
