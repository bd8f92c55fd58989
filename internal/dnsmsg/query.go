// Package dnsmsg parses DNS queries and builds synthetic responses.
package dnsmsg

import (
	"fmt"
	"strings"

	"github.com/miekg/dns"

	"firestige.xyz/bubo/internal/core"
)

// Query is one parsed DNS question ready for classification.
// The full parsed message is retained so a response can echo the
// transaction id and question section exactly.
type Query struct {
	ID       uint16
	Hostname string // normalized: lowercase, no trailing dot
	Type     uint16

	msg *dns.Msg
}

// Parse decodes a UDP payload as a DNS query. It understands the full
// RFC 1035 wire format including label compression. A message without a
// question section is a parse failure, not an empty query.
func Parse(payload []byte) (*Query, error) {
	msg := new(dns.Msg)
	if err := msg.Unpack(payload); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrNotDNS, err)
	}
	if len(msg.Question) == 0 {
		return nil, core.ErrNoQuestion
	}

	q := msg.Question[0]
	hostname := Normalize(q.Name)
	if hostname == "" {
		return nil, core.ErrNoQuestion
	}

	return &Query{
		ID:       msg.Id,
		Hostname: hostname,
		Type:     q.Qtype,
		msg:      msg,
	}, nil
}

// Normalize lowercases a hostname and strips one trailing dot, so wire
// names and user-entered names compare equal.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSuffix(name, "."))
}
