// Package pipeline implements the per-frame DNS filtering engine.
//
// One session owns one continuous read loop over the tunnel device. Each
// frame runs to completion before the next is read:
//
//	frame → ipv4 → udp → dns → classify → {synthesize | forward} → write-back
//
// Any parse failure, non-UDP protocol, non-DNS port or upstream failure
// drops the frame silently; the querying application sees an ordinary DNS
// timeout. Processing is intentionally sequential: per-frame fan-out buys
// nothing for I/O-bound work and costs task churn. The only blocking step
// is the bounded upstream exchange.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"firestige.xyz/bubo/internal/blocklist"
	"firestige.xyz/bubo/internal/core"
	"firestige.xyz/bubo/internal/core/decoder"
	"firestige.xyz/bubo/internal/core/encoder"
	"firestige.xyz/bubo/internal/dnsmsg"
	"firestige.xyz/bubo/internal/metrics"
	"firestige.xyz/bubo/internal/observer"
	"firestige.xyz/bubo/internal/tunnel"
)

// Exchanger relays raw query bytes to an upstream resolver and returns
// the raw response bytes. *forwarder.Forwarder is the live implementation.
type Exchanger interface {
	Forward(query []byte, upstream netip.AddrPort) ([]byte, error)
}

// Config configures a Session.
type Config struct {
	Device    tunnel.Device
	Engine    *blocklist.Engine
	Exchanger Exchanger
	Upstream  netip.AddrPort // resolver the allowed queries go to
	Sink      observer.Sink  // optional
}

// Session drives the filtering pipeline over one tunnel device.
type Session struct {
	device    tunnel.Device
	engine    *blocklist.Engine
	exchanger Exchanger
	upstream  netip.AddrPort
	sink      observer.Sink

	stats   counters
	writeMu sync.Mutex // serializes device writes if callers add concurrency
}

// New creates a Session. The device, engine, exchanger and a valid
// upstream address are required.
func New(cfg Config) (*Session, error) {
	if cfg.Device == nil {
		return nil, fmt.Errorf("%w: tunnel device is required", core.ErrConfigInvalid)
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("%w: blocklist engine is required", core.ErrConfigInvalid)
	}
	if cfg.Exchanger == nil {
		return nil, fmt.Errorf("%w: upstream exchanger is required", core.ErrConfigInvalid)
	}
	if !cfg.Upstream.IsValid() {
		return nil, fmt.Errorf("%w: upstream address is required", core.ErrConfigInvalid)
	}
	return &Session{
		device:    cfg.Device,
		engine:    cfg.Engine,
		exchanger: cfg.Exchanger,
		upstream:  cfg.Upstream,
		sink:      cfg.Sink,
	}, nil
}

// Run reads frames until ctx is cancelled or the device errors. The
// caller cancels by closing the device after cancelling ctx; a read
// error after cancellation is a clean shutdown, before it is fatal.
func (s *Session) Run(ctx context.Context) error {
	buf := make([]byte, tunnel.MaxFrameSize)
	for {
		n, err := s.device.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, core.ErrDeviceClosed) {
				return nil
			}
			return fmt.Errorf("tunnel read: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		metrics.FramesTotal.Inc()
		s.stats.Received.Add(1)
		s.processFrame(buf[:n])
	}
}

// processFrame runs one frame through parse, classify, respond and
// write-back. Every early return is a silent drop.
func (s *Session) processFrame(frame []byte) {
	ip, ipPayload, err := decoder.DecodeIPv4(frame)
	if err != nil {
		s.drop("ipv4", err)
		return
	}
	if ip.Protocol != core.ProtocolUDP {
		s.drop("protocol", nil)
		return
	}

	udp, udpPayload, err := decoder.DecodeUDP(ipPayload)
	if err != nil {
		s.drop("udp", err)
		return
	}
	if !udp.IsDNSQuery() {
		s.drop("port", nil)
		return
	}

	query, err := dnsmsg.Parse(udpPayload)
	if err != nil {
		s.drop("dns", err)
		return
	}

	verdict := s.engine.Classify(query.Hostname)
	metrics.QueriesTotal.WithLabelValues(verdict.String()).Inc()
	if s.sink != nil {
		s.sink.Report(query.Hostname, verdict.Blocked(), verdict == blocklist.UserBlocked)
	}

	var response []byte
	if verdict.Blocked() {
		response, err = query.NXDomainResponse()
		if err != nil {
			s.drop("synthesize", err)
			return
		}
		s.stats.Blocked.Add(1)
	} else {
		start := time.Now()
		response, err = s.exchanger.Forward(udpPayload, s.upstream)
		if err != nil {
			metrics.ForwardErrorsTotal.Inc()
			s.stats.ForwardErrors.Add(1)
			s.drop("forward", err)
			return
		}
		metrics.ForwardLatencySeconds.Observe(time.Since(start).Seconds())
		s.stats.Forwarded.Add(1)
	}

	// Response traffic flows the opposite way: source is the original
	// destination and vice versa.
	src := netip.AddrPortFrom(ip.DstIP, udp.DstPort)
	dst := netip.AddrPortFrom(ip.SrcIP, udp.SrcPort)
	out, err := encoder.BuildUDPFrame(src, dst, response)
	if err != nil {
		s.drop("encode", err)
		return
	}

	s.writeMu.Lock()
	_, err = s.device.Write(out)
	s.writeMu.Unlock()
	if err != nil {
		s.stats.WriteErrors.Add(1)
		slog.Debug("tunnel write failed", "error", err)
		return
	}
	s.stats.Written.Add(1)
}

// drop records a silently discarded frame. Malformed input is expected
// under continuous traffic, so this logs at debug only.
func (s *Session) drop(reason string, err error) {
	metrics.DroppedTotal.WithLabelValues(reason).Inc()
	s.stats.Dropped.Add(1)
	if err != nil {
		slog.Debug("frame dropped", "reason", reason, "error", err)
	}
}
