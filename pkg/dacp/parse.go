package dacp

import (
	"net/netip"
	"strings"

	"github.com/miekg/dns"
)

// InstancePrefix precedes the DACP ID in the service instance label.
const InstancePrefix = "iTunes_Ctrl_"

// Service is a resolved DACP service.
type Service struct {
	// ID is the DACP identifier the sender reports in the DACP-ID header.
	ID string
	// InstanceName is the service instance name the answer was received for.
	InstanceName string
	// Endpoint is the address and port of the remote control HTTP server.
	Endpoint netip.AddrPort
}

// ParseAnswer extracts the DACP service from an answer.
//
// The SRV record whose owner's first label starts with InstancePrefix (case
// insensitive) names the service; the rest of that label is the ID. An A
// record for the SRV target supplies the address, falling back to AAAA.
func ParseAnswer(a *Answer) (Service, error) {
	var srv *dns.SRV
	for _, rr := range a.Records {
		s, ok := rr.(*dns.SRV)
		if !ok {
			continue
		}
		if _, ok := idFromOwner(s.Hdr.Name); ok {
			srv = s
			break
		}
	}
	if srv == nil {
		return Service{}, ErrNoService
	}
	id, _ := idFromOwner(srv.Hdr.Name)

	addr, ok := targetAddr(a.Records, srv.Target)
	if !ok {
		return Service{}, ErrNoAddress
	}

	name := a.InstanceName
	if name == "" {
		name = srv.Hdr.Name
	}

	return Service{
		ID:           id,
		InstanceName: name,
		Endpoint:     netip.AddrPortFrom(addr, srv.Port),
	}, nil
}

func idFromOwner(owner string) (string, bool) {
	labels := dns.SplitDomainName(owner)
	if len(labels) == 0 {
		return "", false
	}
	first := labels[0]
	if len(first) <= len(InstancePrefix) || !strings.EqualFold(first[:len(InstancePrefix)], InstancePrefix) {
		return "", false
	}
	return first[len(InstancePrefix):], true
}

func targetAddr(records []dns.RR, target string) (netip.Addr, bool) {
	var v6 netip.Addr
	for _, rr := range records {
		if !strings.EqualFold(dns.Fqdn(rr.Header().Name), dns.Fqdn(target)) {
			continue
		}
		switch r := rr.(type) {
		case *dns.A:
			if a, ok := netip.AddrFromSlice(r.A.To4()); ok {
				return a, true
			}
		case *dns.AAAA:
			if !v6.IsValid() {
				if a, ok := netip.AddrFromSlice(r.AAAA.To16()); ok {
					v6 = a
				}
			}
		}
	}
	return v6, v6.IsValid()
}

// sameInstance compares service instance names the way DNS does.
func sameInstance(a, b string) bool {
	return strings.EqualFold(dns.Fqdn(a), dns.Fqdn(b))
}
