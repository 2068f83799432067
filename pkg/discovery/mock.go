package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/backkem/airplay/pkg/dacp"
	"github.com/grandcat/zeroconf"
)

// MockMDNSResolver provides a mock mDNS resolver for testing without real network I/O.
// Each Browse call answers with the services registered at that moment, so
// tests can add and remove services between browse rounds.
type MockMDNSResolver struct {
	mu       sync.RWMutex
	services map[string][]*zeroconf.ServiceEntry
	browses  int
	err      error
}

// NewMockMDNSResolver creates a new mock resolver.
func NewMockMDNSResolver() *MockMDNSResolver {
	return &MockMDNSResolver{
		services: make(map[string][]*zeroconf.ServiceEntry),
	}
}

// RegisterService registers a service that will be returned by Browse.
func (m *MockMDNSResolver) RegisterService(service string, entry *zeroconf.ServiceEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[service] = append(m.services[service], entry)
}

// RemoveService removes the instance from later browse results.
func (m *MockMDNSResolver) RemoveService(service, instance string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.services[service][:0]
	for _, e := range m.services[service] {
		if e.Instance != instance {
			entries = append(entries, e)
		}
	}
	m.services[service] = entries
}

// ClearServices removes all registered services.
func (m *MockMDNSResolver) ClearServices() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = make(map[string][]*zeroconf.ServiceEntry)
}

// SetError makes subsequent Browse calls fail with err (nil clears it).
func (m *MockMDNSResolver) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Browses returns the number of Browse calls so far.
func (m *MockMDNSResolver) Browses() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browses
}

// Browse implements MDNSResolver.
func (m *MockMDNSResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	m.mu.Lock()
	m.browses++
	err := m.err
	svcEntries := make([]*zeroconf.ServiceEntry, len(m.services[service]))
	copy(svcEntries, m.services[service])
	m.mu.Unlock()

	if err != nil {
		return err
	}

	// Send entries synchronously to avoid races with channel closing.
	for _, entry := range svcEntries {
		select {
		case entries <- entry:
		case <-ctx.Done():
			return nil
		}
	}

	return nil
}

// MockDACPService creates a mock DACP service entry for testing.
func MockDACPService(dacpID, host string, port int, ip net.IP) *zeroconf.ServiceEntry {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{
			Instance: dacp.InstancePrefix + dacpID,
			Service:  ServiceDACP,
			Domain:   DefaultDomain,
		},
		HostName: host,
		Port:     port,
		TTL:      120,
		Text:     []string{"txtvers=1", "Ver=131077"},
	}
	if ip.To4() != nil {
		entry.AddrIPv4 = []net.IP{ip}
	} else {
		entry.AddrIPv6 = []net.IP{ip}
	}
	return entry
}
