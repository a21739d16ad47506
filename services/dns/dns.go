// Package dns implements the DNS core service (spec.md §4.2.4):
// lookup(hostname, family) resolved via the standard resolver.
package dns

import (
	"context"
	"net"
	"time"

	"github.com/teranos/qntx-runtime/rterr"
)

// Service resolves hostnames.
type Service struct{}

// New constructs a DNS service.
func New() *Service { return &Service{} }

// Result is one resolved address, reported with its family.
type Result struct {
	Address string
	Family  string
}

// Lookup implements dns.lookup (aliased from dnsLookup). family is 0 for
// "any", 4 for IPv4-only, 6 for IPv6-only.
func (s *Service) Lookup(hostname string, family int) ([]Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	network := "ip"
	switch family {
	case 4:
		network = "ip4"
	case 6:
		network = "ip6"
	}

	addrs, err := net.DefaultResolver.LookupIP(ctx, network, hostname)
	if err != nil {
		return nil, rterr.NotFound("dns lookup failed for %s: %v", hostname, err)
	}

	out := make([]Result, 0, len(addrs))
	for _, ip := range addrs {
		fam := "IPv6"
		if ip.To4() != nil {
			fam = "IPv4"
		}
		out = append(out, Result{Address: ip.String(), Family: fam})
	}
	return out, nil
}
