// Package forwarder relays DNS query bytes to the upstream resolver over
// one shared, protected UDP socket.
package forwarder

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/bubo/internal/core"
)

// DefaultTimeout bounds one send-and-wait exchange with the upstream.
const DefaultTimeout = 5 * time.Second

// responseBufferSize fits any DNS-over-UDP response, EDNS included.
const responseBufferSize = 4096

// Protector is applied to the upstream socket when it is first created.
// The tunnel-device collaborator uses it to exempt the socket from tunnel
// routing, so forwarded queries do not loop back through the pipeline.
// The signature matches net.ListenConfig.Control.
type Protector func(network, address string, c syscall.RawConn) error

// Config configures a Forwarder.
type Config struct {
	// Timeout per exchange; DefaultTimeout when zero.
	Timeout time.Duration
	// Protector is optional; nil means the socket is created unprotected.
	Protector Protector
}

// Forwarder owns the lazily-created upstream socket. A single socket is
// reused for every query in the session: per-query socket setup is
// wasted work and the routing exemption must be applied exactly once.
//
// Exchanges serialize on an internal mutex so one query's send/receive
// pair never interleaves with another's on the shared socket.
type Forwarder struct {
	timeout   time.Duration
	protector Protector

	mu     sync.Mutex // guards conn and serializes send/receive pairs
	conn   net.PacketConn
	closed bool
}

// New creates a Forwarder. No socket exists until the first Forward call.
func New(cfg Config) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Forwarder{
		timeout:   cfg.Timeout,
		protector: cfg.Protector,
	}
}

// Forward sends query as one datagram to upstream and waits for a single
// response datagram, bounded by the configured timeout. On timeout or any
// socket error the caller drops the frame; the requesting application's
// own DNS retry behavior is the only retry.
func (f *Forwarder) Forward(query []byte, upstream netip.AddrPort) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, core.ErrForwarderClosed
	}
	if f.conn == nil {
		conn, err := f.dial()
		if err != nil {
			return nil, fmt.Errorf("create upstream socket: %w", err)
		}
		f.conn = conn
	}

	if err := f.conn.SetDeadline(time.Now().Add(f.timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}
	if _, err := f.conn.WriteTo(query, net.UDPAddrFromAddrPort(upstream)); err != nil {
		return nil, fmt.Errorf("send to upstream: %w", err)
	}

	buf := make([]byte, responseBufferSize)
	for {
		n, from, err := f.conn.ReadFrom(buf)
		if err != nil {
			return nil, fmt.Errorf("receive from upstream: %w", err)
		}
		// The socket is unconnected, so a stale reply from an earlier
		// timed-out exchange or any unrelated sender can arrive here.
		// Only a datagram from the upstream answers this query; keep
		// reading until the deadline otherwise.
		if fromAddrPort(from) == netip.AddrPortFrom(upstream.Addr().Unmap(), upstream.Port()) {
			return buf[:n], nil
		}
	}
}

func fromAddrPort(addr net.Addr) netip.AddrPort {
	ua, ok := addr.(*net.UDPAddr)
	if !ok {
		return netip.AddrPort{}
	}
	ap := ua.AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func (f *Forwarder) dial() (net.PacketConn, error) {
	lc := net.ListenConfig{}
	if f.protector != nil {
		lc.Control = f.protector
	}
	return lc.ListenPacket(context.Background(), "udp4", ":0")
}

// Close releases the upstream socket. Safe to call when the socket was
// never created; later Forward calls fail with ErrForwarderClosed.
func (f *Forwarder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	if f.conn == nil {
		return nil
	}
	err := f.conn.Close()
	f.conn = nil
	return err
}
