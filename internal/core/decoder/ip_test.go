package decoder

import (
	"errors"
	"net/netip"
	"testing"

	"firestige.xyz/bubo/internal/core"
)

func TestDecodeIPv4Basic(t *testing.T) {
	// Minimal IPv4 header (20 bytes) plus 4 payload bytes
	data := []byte{
		0x45,       // Version 4, IHL 5
		0x00,       // DSCP, ECN
		0x00, 0x18, // Total Length: 24 bytes
		0x12, 0x34, // Identification
		0x00, 0x00, // Flags, Fragment Offset
		0x40,       // TTL: 64
		0x11,       // Protocol: UDP (17)
		0x00, 0x00, // Checksum (not validated)
		10, 0, 0, 2, // Src IP
		10, 0, 0, 1, // Dst IP
		0x01, 0x02, 0x03, 0x04, // Payload
	}

	hdr, payload, err := DecodeIPv4(data)
	if err != nil {
		t.Fatalf("DecodeIPv4 failed: %v", err)
	}

	if hdr.Version != 4 {
		t.Errorf("Expected version 4, got %d", hdr.Version)
	}
	if hdr.HeaderLen != 20 {
		t.Errorf("Expected HeaderLen 20, got %d", hdr.HeaderLen)
	}
	if hdr.TotalLen != 24 {
		t.Errorf("Expected TotalLen 24, got %d", hdr.TotalLen)
	}
	if hdr.TTL != 64 {
		t.Errorf("Expected TTL 64, got %d", hdr.TTL)
	}
	if hdr.Protocol != core.ProtocolUDP {
		t.Errorf("Expected protocol 17, got %d", hdr.Protocol)
	}
	if want := netip.MustParseAddr("10.0.0.2"); hdr.SrcIP != want {
		t.Errorf("Expected SrcIP %v, got %v", want, hdr.SrcIP)
	}
	if want := netip.MustParseAddr("10.0.0.1"); hdr.DstIP != want {
		t.Errorf("Expected DstIP %v, got %v", want, hdr.DstIP)
	}
	if len(payload) != 4 || payload[0] != 0x01 {
		t.Errorf("Unexpected payload %v", payload)
	}
}

func TestDecodeIPv4TooShort(t *testing.T) {
	// Every slice shorter than 20 bytes yields no packet.
	for n := 0; n < 20; n++ {
		data := make([]byte, n)
		if n > 0 {
			data[0] = 0x45
		}
		if _, _, err := DecodeIPv4(data); err == nil {
			t.Errorf("Expected error for %d-byte frame, got nil", n)
		}
	}
}

func TestDecodeIPv4WrongVersion(t *testing.T) {
	data := make([]byte, 20)
	data[0] = 0x65 // Version 6
	data[3] = 20

	_, _, err := DecodeIPv4(data)
	if !errors.Is(err, core.ErrNotIPv4) {
		t.Errorf("Expected ErrNotIPv4, got %v", err)
	}
}

func TestDecodeIPv4HeaderLenExceedsFrame(t *testing.T) {
	data := make([]byte, 20)
	data[0] = 0x4F // IHL 15 => 60-byte header, frame is 20
	data[3] = 20

	_, _, err := DecodeIPv4(data)
	if !errors.Is(err, core.ErrTruncatedPacket) {
		t.Errorf("Expected ErrTruncatedPacket, got %v", err)
	}
}

func TestDecodeIPv4TotalLenExceedsFrame(t *testing.T) {
	data := make([]byte, 20)
	data[0] = 0x45
	data[2], data[3] = 0x01, 0x00 // Total Length 256, frame is 20

	_, _, err := DecodeIPv4(data)
	if !errors.Is(err, core.ErrTruncatedPacket) {
		t.Errorf("Expected ErrTruncatedPacket, got %v", err)
	}
}

func TestDecodeIPv4TotalLenBelowHeader(t *testing.T) {
	data := make([]byte, 24)
	data[0] = 0x45
	data[3] = 8 // Total Length 8 < 20-byte header

	_, _, err := DecodeIPv4(data)
	if !errors.Is(err, core.ErrTruncatedPacket) {
		t.Errorf("Expected ErrTruncatedPacket, got %v", err)
	}
}

func TestDecodeIPv4PayloadBoundedByTotalLen(t *testing.T) {
	// Frame carries 8 trailing garbage bytes beyond the declared total
	// length; payload must stop at the total-length boundary.
	data := make([]byte, 32)
	data[0] = 0x45
	data[3] = 24 // header 20 + payload 4
	data[9] = core.ProtocolUDP

	_, payload, err := DecodeIPv4(data)
	if err != nil {
		t.Fatalf("DecodeIPv4 failed: %v", err)
	}
	if len(payload) != 4 {
		t.Errorf("Expected 4-byte payload, got %d", len(payload))
	}
}

func BenchmarkDecodeIPv4(b *testing.B) {
	data := []byte{
		0x45, 0x00, 0x00, 0x18,
		0x12, 0x34, 0x00, 0x00,
		0x40, 0x11, 0x00, 0x00,
		10, 0, 0, 2,
		10, 0, 0, 1,
		0x01, 0x02, 0x03, 0x04,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = DecodeIPv4(data)
	}
}
