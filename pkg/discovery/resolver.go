package discovery

import (
	"context"
	"net"
	"slices"
	"time"

	"github.com/backkem/airplay/pkg/dacp"
	"github.com/grandcat/zeroconf"
	"github.com/miekg/dns"
	"github.com/pion/logging"
)

// DefaultBrowseTimeout is the default duration of one browse round.
const DefaultBrowseTimeout = 5 * time.Second

// DefaultBrowseInterval is the default pause between browse rounds.
const DefaultBrowseInterval = 10 * time.Second

// DefaultMaxMissedRounds is how many consecutive rounds a service may be
// absent before it is reported as shut down.
const DefaultMaxMissedRounds = 1

// MDNSResolver is the interface for mDNS service resolution.
// This allows for dependency injection in tests.
type MDNSResolver interface {
	// Browse sends the services of the given type found before ctx is done
	// to entries. It returns when ctx is done or the browse ends, and never
	// closes entries.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver is the production implementation using grandcat/zeroconf.
// A zeroconf resolver shuts its sockets down when its browse context ends, so
// each browse uses a fresh one.
type zeroconfResolver struct {
	ifaces []net.Interface
}

func (z *zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	var opts []zeroconf.ClientOption
	if len(z.ifaces) > 0 {
		opts = append(opts, zeroconf.SelectIfaces(z.ifaces))
	}
	r, err := zeroconf.NewResolver(opts...)
	if err != nil {
		return err
	}

	found := make(chan *zeroconf.ServiceEntry)
	if err := r.Browse(ctx, service, domain, found); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-found:
			if !ok {
				return nil
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// MDNSResolver is the underlying mDNS resolver implementation.
	// If nil, the default zeroconf resolver is used.
	MDNSResolver MDNSResolver

	// Interfaces limits browsing to the given interfaces. Ignored when
	// MDNSResolver is set.
	Interfaces []net.Interface

	// BrowseTimeout is the duration of one browse round.
	// If zero, DefaultBrowseTimeout is used.
	BrowseTimeout time.Duration

	// BrowseInterval is the pause between browse rounds.
	// If zero, DefaultBrowseInterval is used.
	BrowseInterval time.Duration

	// MaxMissedRounds is how many consecutive rounds a known service may be
	// missing before a Shutdown event is sent.
	// If zero, DefaultMaxMissedRounds is used.
	MaxMissedRounds int

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory
}

// Resolver discovers senders' DACP services via DNS-SD.
type Resolver struct {
	config   ResolverConfig
	resolver MDNSResolver
	log      logging.LeveledLogger
}

// NewResolver creates a new Resolver with the given configuration.
func NewResolver(config ResolverConfig) *Resolver {
	resolver := config.MDNSResolver
	if resolver == nil {
		resolver = &zeroconfResolver{ifaces: config.Interfaces}
	}

	if config.BrowseTimeout == 0 {
		config.BrowseTimeout = DefaultBrowseTimeout
	}
	if config.BrowseInterval == 0 {
		config.BrowseInterval = DefaultBrowseInterval
	}
	if config.MaxMissedRounds == 0 {
		config.MaxMissedRounds = DefaultMaxMissedRounds
	}

	r := &Resolver{
		config:   config,
		resolver: resolver,
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("discovery")
	}
	return r
}

// knownService is a DACP service seen in an earlier round.
type knownService struct {
	entry  *zeroconf.ServiceEntry
	missed int
}

// BrowseDACP browses for _dacp._tcp services in repeated rounds until ctx is
// done, then closes the returned channel.
//
// A service seen for the first time, or with a changed host, port or address,
// yields a *dacp.Answer. A known service absent from MaxMissedRounds
// consecutive completed rounds yields a *dacp.Shutdown.
func (r *Resolver) BrowseDACP(ctx context.Context) <-chan dacp.Event {
	events := make(chan dacp.Event)

	go func() {
		defer close(events)

		known := make(map[string]*knownService)
		for {
			if !r.browseRound(ctx, known, events) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(r.config.BrowseInterval):
			}
		}
	}()

	return events
}

// browseRound runs one browse round. It returns false once ctx is done.
func (r *Resolver) browseRound(ctx context.Context, known map[string]*knownService, events chan<- dacp.Event) bool {
	roundCtx, cancel := context.WithTimeout(ctx, r.config.BrowseTimeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	browseErr := make(chan error, 1)
	go func() {
		defer close(entries)
		browseErr <- r.resolver.Browse(roundCtx, ServiceDACP, DefaultDomain, entries)
	}()

	send := func(ev dacp.Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	seen := make(map[string]bool)
	for entry := range entries {
		name := entryInstanceName(entry)
		seen[name] = true

		prev, ok := known[name]
		if ok && sameEntry(prev.entry, entry) {
			prev.missed = 0
			continue
		}
		known[name] = &knownService{entry: entry}

		if r.log != nil {
			r.log.Debugf("dacp service %s at %s:%d", name, entry.HostName, entry.Port)
		}
		if !send(&dacp.Answer{InstanceName: name, Records: entryRecords(entry)}) {
			cancel()
			for range entries {
			}
			return false
		}
	}

	if err := <-browseErr; err != nil && ctx.Err() == nil {
		// An incomplete round says nothing about absent services.
		if r.log != nil {
			r.log.Warnf("dacp browse failed: %v", err)
		}
		return true
	}
	if ctx.Err() != nil {
		return false
	}

	for name, svc := range known {
		if seen[name] {
			continue
		}
		svc.missed++
		if svc.missed < r.config.MaxMissedRounds {
			continue
		}
		delete(known, name)
		if r.log != nil {
			r.log.Debugf("dacp service %s gone", name)
		}
		if !send(&dacp.Shutdown{InstanceName: name}) {
			return false
		}
	}
	return true
}

// entryInstanceName returns the fully qualified service instance name.
func entryInstanceName(e *zeroconf.ServiceEntry) string {
	service := e.Service
	if service == "" {
		service = ServiceDACP
	}
	domain := e.Domain
	if domain == "" {
		domain = DefaultDomain
	}
	return dns.Fqdn(e.Instance + "." + service + "." + dns.Fqdn(domain))
}

// entryRecords rebuilds the SRV and address records of an entry.
func entryRecords(e *zeroconf.ServiceEntry) []dns.RR {
	ttl := e.TTL
	if ttl == 0 {
		ttl = 120
	}
	host := dns.Fqdn(e.HostName)

	records := []dns.RR{&dns.SRV{
		Hdr:    dns.RR_Header{Name: entryInstanceName(e), Rrtype: dns.TypeSRV, Class: dns.ClassINET, Ttl: ttl},
		Target: host,
		Port:   uint16(e.Port),
	}}
	for _, ip := range e.AddrIPv4 {
		records = append(records, &dns.A{
			Hdr: dns.RR_Header{Name: host, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: ttl},
			A:   ip,
		})
	}
	for _, ip := range e.AddrIPv6 {
		records = append(records, &dns.AAAA{
			Hdr:  dns.RR_Header{Name: host, Rrtype: dns.TypeAAAA, Class: dns.ClassINET, Ttl: ttl},
			AAAA: ip,
		})
	}
	return records
}

func sameEntry(a, b *zeroconf.ServiceEntry) bool {
	eq := func(x, y net.IP) bool { return x.Equal(y) }
	return a.HostName == b.HostName &&
		a.Port == b.Port &&
		slices.EqualFunc(a.AddrIPv4, b.AddrIPv4, eq) &&
		slices.EqualFunc(a.AddrIPv6, b.AddrIPv6, eq)
}
