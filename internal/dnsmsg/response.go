package dnsmsg

import (
	"fmt"

	"github.com/miekg/dns"
)

// NXDomainResponse builds the wire bytes of a negative response to q:
// same transaction id, QR set, RCODE NXDOMAIN, the original question
// echoed, no answer records. The querying application sees "this domain
// does not exist".
func (q *Query) NXDomainResponse() ([]byte, error) {
	m := new(dns.Msg)
	m.SetRcode(q.msg, dns.RcodeNameError)
	out, err := m.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack nxdomain response: %w", err)
	}
	return out, nil
}

// EmptyResponse builds a NOERROR response with no answer records.
// The live decision path answers blocked queries with NXDomainResponse;
// this variant exists for callers that prefer a softer deny.
func (q *Query) EmptyResponse() ([]byte, error) {
	m := new(dns.Msg)
	m.SetRcode(q.msg, dns.RcodeSuccess)
	out, err := m.Pack()
	if err != nil {
		return nil, fmt.Errorf("pack empty response: %w", err)
	}
	return out, nil
}
