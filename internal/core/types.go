// Package core defines core data structures with zero external dependencies.
package core

import "net/netip"

// Transport protocol numbers as they appear in the IPv4 protocol field.
const (
	ProtocolTCP = 6
	ProtocolUDP = 17
)

// DNSPort is the well-known DNS port used to classify UDP datagrams.
const DNSPort = 53

// IPv4Header represents a decoded IPv4 header.
type IPv4Header struct {
	Version   uint8
	HeaderLen int // IHL in bytes
	TotalLen  int
	TTL       uint8
	Protocol  uint8 // TCP=6, UDP=17
	SrcIP     netip.Addr
	DstIP     netip.Addr
}

// UDPHeader represents a decoded UDP header.
type UDPHeader struct {
	SrcPort uint16
	DstPort uint16
	Length  int // header + payload, as declared on the wire
}

// IsDNSQuery reports whether the datagram is addressed to a DNS server.
func (h UDPHeader) IsDNSQuery() bool {
	return h.DstPort == DNSPort
}

// IsDNSResponse reports whether the datagram originates from a DNS server.
// The live pipeline only sees queries; the response predicate exists for
// symmetry and for callers that inspect captured return traffic.
func (h UDPHeader) IsDNSResponse() bool {
	return h.SrcPort == DNSPort
}
