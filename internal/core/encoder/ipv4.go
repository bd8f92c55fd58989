// Package encoder builds complete IPv4/UDP frames for tunnel write-back.
package encoder

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/bubo/internal/core"
)

const (
	ipv4HeaderLen = 20
	udpHeaderLen  = 8

	responseTTL = 64
)

// BuildUDPFrame builds a complete IPv4+UDP frame carrying payload.
// src and dst are the endpoints as they should appear on the wire; for
// response traffic the caller passes the original endpoints already
// swapped. The IPv4 header checksum is computed over the 20-byte header;
// the UDP checksum is left zero (optional over IPv4).
func BuildUDPFrame(src, dst netip.AddrPort, payload []byte) ([]byte, error) {
	if !src.Addr().Is4() || !dst.Addr().Is4() {
		return nil, core.ErrNotIPv4
	}
	total := ipv4HeaderLen + udpHeaderLen + len(payload)
	if total > 0xFFFF {
		return nil, core.ErrFrameTooLarge
	}

	frame := make([]byte, total)

	// IPv4 header
	frame[0] = 0x45 // version 4, IHL 5
	binary.BigEndian.PutUint16(frame[2:4], uint16(total))
	frame[8] = responseTTL
	frame[9] = core.ProtocolUDP
	srcAddr := src.Addr().As4()
	copy(frame[12:16], srcAddr[:])
	dstAddr := dst.Addr().As4()
	copy(frame[16:20], dstAddr[:])
	binary.BigEndian.PutUint16(frame[10:12], headerChecksum(frame[:ipv4HeaderLen]))

	// UDP header
	udp := frame[ipv4HeaderLen:]
	binary.BigEndian.PutUint16(udp[0:2], src.Port())
	binary.BigEndian.PutUint16(udp[2:4], dst.Port())
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpHeaderLen+len(payload)))
	// checksum field (udp[6:8]) stays zero

	copy(udp[udpHeaderLen:], payload)
	return frame, nil
}

// headerChecksum computes the RFC 791 header checksum: the ones'
// complement of the ones'-complement sum of all 16-bit header words,
// with carries folded back in. The checksum field itself must be zero
// when this is called.
func headerChecksum(hdr []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(hdr); i += 2 {
		sum += uint32(hdr[i])<<8 | uint32(hdr[i+1])
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}
