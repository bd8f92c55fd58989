package pipeline

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"

	"firestige.xyz/bubo/internal/blocklist"
	"firestige.xyz/bubo/internal/core"
	"firestige.xyz/bubo/internal/core/decoder"
	"firestige.xyz/bubo/internal/core/encoder"
	"firestige.xyz/bubo/internal/tunnel"
)

var (
	clientAddr   = netip.MustParseAddrPort("10.0.0.2:51823")
	resolverAddr = netip.MustParseAddrPort("8.8.8.8:53")
)

// fakeExchanger records forwarded queries and replies with a canned payload.
type fakeExchanger struct {
	mu       sync.Mutex
	queries  [][]byte
	response []byte
	err      error
}

func (f *fakeExchanger) Forward(query []byte, upstream netip.AddrPort) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]byte, len(query))
	copy(cp, query)
	f.queries = append(f.queries, cp)
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeExchanger) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func packQuery(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeA)
	m.Id = id
	payload, err := m.Pack()
	if err != nil {
		t.Fatalf("pack query: %v", err)
	}
	return payload
}

func queryFrame(t *testing.T, id uint16, name string) []byte {
	t.Helper()
	frame, err := encoder.BuildUDPFrame(clientAddr, resolverAddr, packQuery(t, id, name))
	if err != nil {
		t.Fatalf("build frame: %v", err)
	}
	return frame
}

type harness struct {
	session   *Session
	device    *tunnel.MemoryDevice
	exchanger *fakeExchanger
	done      chan error
}

func startSession(t *testing.T, exchanger *fakeExchanger) *harness {
	t.Helper()

	device := tunnel.NewMemoryDevice(8)
	session, err := New(Config{
		Device:    device,
		Engine:    blocklist.New(blocklist.DefaultDomains),
		Exchanger: exchanger,
		Upstream:  resolverAddr,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		device.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v after shutdown", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after shutdown")
		}
	})

	return &harness{session: session, device: device, exchanger: exchanger, done: done}
}

func awaitFrame(t *testing.T, h *harness) []byte {
	t.Helper()
	select {
	case frame := <-h.device.Outbound():
		return frame
	case <-time.After(2 * time.Second):
		t.Fatal("No response frame written back")
		return nil
	}
}

func decodeResponse(t *testing.T, frame []byte) (core.IPv4Header, core.UDPHeader, *dns.Msg) {
	t.Helper()
	ip, ipPayload, err := decoder.DecodeIPv4(frame)
	if err != nil {
		t.Fatalf("response frame ipv4: %v", err)
	}
	udp, udpPayload, err := decoder.DecodeUDP(ipPayload)
	if err != nil {
		t.Fatalf("response frame udp: %v", err)
	}
	m := new(dns.Msg)
	if err := m.Unpack(udpPayload); err != nil {
		t.Fatalf("response frame dns: %v", err)
	}
	return ip, udp, m
}

func TestBlockedQuerySynthesizesNXDomain(t *testing.T) {
	exchanger := &fakeExchanger{}
	h := startSession(t, exchanger)

	h.device.Inject(queryFrame(t, 0x1234, "pagead2.googlesyndication.com"))

	ip, udp, m := decodeResponse(t, awaitFrame(t, h))

	if m.Id != 0x1234 {
		t.Errorf("Response id = %#x, want 0x1234", m.Id)
	}
	if !m.Response {
		t.Error("QR bit must be set")
	}
	if m.Rcode != dns.RcodeNameError {
		t.Errorf("Rcode = %d, want NXDOMAIN", m.Rcode)
	}
	if len(m.Answer) != 0 {
		t.Errorf("Expected no answers, got %d", len(m.Answer))
	}
	if len(m.Question) != 1 || m.Question[0].Name != "pagead2.googlesyndication.com." {
		t.Errorf("Question not echoed: %v", m.Question)
	}

	// Endpoints are swapped relative to the query.
	if ip.SrcIP != resolverAddr.Addr() || ip.DstIP != clientAddr.Addr() {
		t.Errorf("Response addresses %v → %v, want %v → %v",
			ip.SrcIP, ip.DstIP, resolverAddr.Addr(), clientAddr.Addr())
	}
	if udp.SrcPort != resolverAddr.Port() || udp.DstPort != clientAddr.Port() {
		t.Errorf("Response ports %d → %d, want %d → %d",
			udp.SrcPort, udp.DstPort, resolverAddr.Port(), clientAddr.Port())
	}

	if n := exchanger.calls(); n != 0 {
		t.Errorf("Blocked query reached the exchanger %d times", n)
	}

	stats := h.session.Stats()
	if stats.Blocked != 1 || stats.Written != 1 {
		t.Errorf("Stats = %+v, want Blocked=1 Written=1", stats)
	}
}

func TestAllowedQueryForwardsUpstream(t *testing.T) {
	queryPayload := packQuery(t, 0xBEEF, "example.com")

	request := new(dns.Msg)
	if err := request.Unpack(queryPayload); err != nil {
		t.Fatal(err)
	}
	reply := new(dns.Msg).SetReply(request)
	reply.Answer = append(reply.Answer, &dns.A{
		Hdr: dns.RR_Header{Name: "example.com.", Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 300},
		A:   net.IPv4(93, 184, 216, 34),
	})
	replyPayload, err := reply.Pack()
	if err != nil {
		t.Fatal(err)
	}

	exchanger := &fakeExchanger{response: replyPayload}
	h := startSession(t, exchanger)

	frame, err := encoder.BuildUDPFrame(clientAddr, resolverAddr, queryPayload)
	if err != nil {
		t.Fatal(err)
	}
	h.device.Inject(frame)

	ip, udp, m := decodeResponse(t, awaitFrame(t, h))

	if m.Id != 0xBEEF {
		t.Errorf("Response id = %#x, want 0xBEEF", m.Id)
	}
	if len(m.Answer) != 1 {
		t.Fatalf("Expected one answer, got %d", len(m.Answer))
	}
	if ip.SrcIP != resolverAddr.Addr() || udp.DstPort != clientAddr.Port() {
		t.Error("Response endpoints not swapped")
	}

	if n := exchanger.calls(); n != 1 {
		t.Fatalf("Exchanger called %d times, want 1", n)
	}
	// The raw query bytes go upstream untouched.
	if string(exchanger.queries[0]) != string(queryPayload) {
		t.Error("Forwarded query differs from the original payload")
	}

	stats := h.session.Stats()
	if stats.Forwarded != 1 || stats.Blocked != 0 {
		t.Errorf("Stats = %+v, want Forwarded=1 Blocked=0", stats)
	}
}

func TestNonDNSTrafficIsDropped(t *testing.T) {
	exchanger := &fakeExchanger{}
	h := startSession(t, exchanger)

	// TCP frame: right shape, wrong protocol.
	tcpFrame, err := encoder.BuildUDPFrame(clientAddr, resolverAddr, packQuery(t, 1, "example.com"))
	if err != nil {
		t.Fatal(err)
	}
	tcpFrame[9] = core.ProtocolTCP
	// Fix the header checksum so only the protocol check fires. The
	// decoder does not verify checksums, so zeroing is enough to avoid
	// a stale value confusing a reader of the test.
	tcpFrame[10], tcpFrame[11] = 0, 0

	// UDP on a non-DNS port.
	otherPort, err := encoder.BuildUDPFrame(clientAddr, netip.MustParseAddrPort("8.8.8.8:123"), []byte{0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}

	// Garbage.
	garbage := []byte{0xDE, 0xAD, 0xBE, 0xEF}

	h.device.Inject(tcpFrame)
	h.device.Inject(otherPort)
	h.device.Inject(garbage)
	// Sentinel query proves the loop survived the bad frames.
	h.device.Inject(queryFrame(t, 0x0001, "doubleclick.net"))

	_, _, m := decodeResponse(t, awaitFrame(t, h))
	if m.Id != 0x0001 {
		t.Errorf("Unexpected response id %#x", m.Id)
	}

	select {
	case frame := <-h.device.Outbound():
		t.Errorf("Unexpected extra frame written back: % x", frame)
	default:
	}

	stats := h.session.Stats()
	if stats.Dropped != 3 {
		t.Errorf("Dropped = %d, want 3", stats.Dropped)
	}
	if n := exchanger.calls(); n != 0 {
		t.Errorf("Exchanger called %d times for dropped traffic", n)
	}
}

func TestForwardFailureDropsFrame(t *testing.T) {
	exchanger := &fakeExchanger{err: errors.New("upstream unreachable")}
	h := startSession(t, exchanger)

	h.device.Inject(queryFrame(t, 0x0002, "example.com"))
	// Blocked sentinel flushes behind the failed forward.
	h.device.Inject(queryFrame(t, 0x0003, "doubleclick.net"))

	_, _, m := decodeResponse(t, awaitFrame(t, h))
	if m.Id != 0x0003 {
		t.Errorf("Expected only the sentinel response, got id %#x", m.Id)
	}

	stats := h.session.Stats()
	if stats.ForwardErrors != 1 || stats.Dropped != 1 {
		t.Errorf("Stats = %+v, want ForwardErrors=1 Dropped=1", stats)
	}
}

func TestNewRejectsMissingCollaborators(t *testing.T) {
	device := tunnel.NewMemoryDevice(1)
	engine := blocklist.New(nil)
	exchanger := &fakeExchanger{}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"no device", Config{Engine: engine, Exchanger: exchanger, Upstream: resolverAddr}},
		{"no engine", Config{Device: device, Exchanger: exchanger, Upstream: resolverAddr}},
		{"no exchanger", Config{Device: device, Engine: engine, Upstream: resolverAddr}},
		{"no upstream", Config{Device: device, Engine: engine, Exchanger: exchanger}},
	}
	for _, tc := range cases {
		if _, err := New(tc.cfg); !errors.Is(err, core.ErrConfigInvalid) {
			t.Errorf("%s: got %v, want ErrConfigInvalid", tc.name, err)
		}
	}
}
