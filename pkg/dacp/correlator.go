package dacp

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/backkem/airplay/pkg/metrics"
	"github.com/backkem/airplay/pkg/session"
	"github.com/pion/logging"
)

// CorrelatorConfig configures a Correlator.
type CorrelatorConfig struct {
	// Store holds the sessions to correlate. Required.
	Store *session.Store

	// OnServiceShutdown is called after a resolved DACP service left the
	// network and every session using it had its endpoint cleared.
	OnServiceShutdown func(endpoint netip.AddrPort)

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics receives DACP gauges and counters. Optional.
	Metrics *metrics.Metrics
}

// record is one resolved service. removed is set under mu when the record
// leaves the map, so a join holding the read lock never writes a stale
// endpoint after the shutdown clear.
type record struct {
	mu       sync.RWMutex
	name     string
	endpoint netip.AddrPort
	removed  bool
}

// Correlator maintains the DACP ID → service map and keeps session endpoints
// in sync with it.
type Correlator struct {
	store      *session.Store
	onShutdown func(netip.AddrPort)
	log        logging.LeveledLogger
	metrics    *metrics.Metrics

	services    sync.Map // id -> *record
	count       atomic.Int64
	unsubscribe func()
	closeOnce   sync.Once
}

// NewCorrelator creates a correlator and subscribes it to the store.
// Call Close to unsubscribe.
func NewCorrelator(config CorrelatorConfig) *Correlator {
	c := &Correlator{
		store:      config.Store,
		onShutdown: config.OnServiceShutdown,
		metrics:    config.Metrics,
	}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("dacp")
	}
	c.unsubscribe = c.store.Subscribe(c.onSession)
	return c
}

// Close unsubscribes the correlator from the store.
func (c *Correlator) Close() {
	c.closeOnce.Do(c.unsubscribe)
}

// Run feeds discovery events into the correlator until ctx is done or events
// is closed.
func (c *Correlator) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Handle(ev)
		}
	}
}

// Handle dispatches a single discovery event.
func (c *Correlator) Handle(ev Event) {
	switch e := ev.(type) {
	case *Answer:
		c.HandleAnswer(e)
	case *Shutdown:
		c.HandleShutdown(e)
	}
}

// HandleAnswer records the service described by an answer. Answers without a
// control service or without an address for it are ignored. Stored sessions
// already carrying the service's ID get the endpoint.
func (c *Correlator) HandleAnswer(a *Answer) {
	svc, err := ParseAnswer(a)
	if err != nil {
		if c.log != nil {
			c.log.Debugf("ignoring answer for %s: %v", a.InstanceName, err)
		}
		return
	}

	for {
		v, loaded := c.services.LoadOrStore(svc.ID, &record{})
		r := v.(*record)

		r.mu.Lock()
		if r.removed {
			r.mu.Unlock()
			continue
		}
		r.name = svc.InstanceName
		r.endpoint = svc.Endpoint
		r.mu.Unlock()

		if !loaded {
			c.count.Add(1)
			c.metrics.DacpServiceResolved()
		}
		if c.log != nil {
			c.log.Infof("dacp service %s resolved to %s", svc.ID, svc.Endpoint)
		}
		break
	}

	c.backfill(svc.ID)
}

// backfill joins sessions that were stored before the service resolved.
func (c *Correlator) backfill(id string) {
	var keys []string
	c.store.ForEach(func(s *session.Session) bool {
		if s.DacpID != nil && *s.DacpID == id {
			keys = append(keys, s.Key())
		}
		return true
	})
	for _, key := range keys {
		s, ok := c.store.Lookup(key)
		if !ok {
			continue
		}
		c.join(s)
	}
}

// HandleShutdown removes the service with the given instance name, clears the
// endpoint of every session using it and then reports the shutdown.
func (c *Correlator) HandleShutdown(sd *Shutdown) {
	var (
		id string
		r  *record
	)
	c.services.Range(func(k, v any) bool {
		rec := v.(*record)
		rec.mu.RLock()
		match := !rec.removed && sameInstance(rec.name, sd.InstanceName)
		rec.mu.RUnlock()
		if match {
			id, r = k.(string), rec
			return false
		}
		return true
	})
	if r == nil {
		return
	}

	r.mu.Lock()
	if r.removed {
		r.mu.Unlock()
		return
	}
	r.removed = true
	endpoint := r.endpoint
	c.services.Delete(id)
	cleared := c.store.ClearDacpEndpoint(id)
	r.mu.Unlock()

	c.count.Add(-1)
	c.metrics.DacpServiceRemoved()
	c.metrics.DacpServiceShutdown()

	if c.log != nil {
		c.log.Infof("dacp service %s at %s shut down, cleared %d session(s)", id, endpoint, cleared)
	}

	if c.onShutdown != nil {
		c.onShutdown(endpoint)
	}
}

// Lookup returns the resolved endpoint for a DACP ID.
func (c *Correlator) Lookup(id string) (netip.AddrPort, bool) {
	v, ok := c.services.Load(id)
	if !ok {
		return netip.AddrPort{}, false
	}
	r := v.(*record)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.removed {
		return netip.AddrPort{}, false
	}
	return r.endpoint, true
}

// Len returns the number of resolved services.
func (c *Correlator) Len() int {
	return int(c.count.Load())
}

// onSession is the store subscriber.
func (c *Correlator) onSession(s *session.Session) {
	c.join(s)
}

// join writes the resolved endpoint into s through the store if it differs.
func (c *Correlator) join(s *session.Session) {
	if s.DacpID == nil {
		return
	}
	v, ok := c.services.Load(*s.DacpID)
	if !ok {
		return
	}
	r := v.(*record)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.removed || s.DacpEndpoint == r.endpoint {
		return
	}

	update := session.New(s.Key())
	update.DacpEndpoint = r.endpoint
	if err := c.store.Upsert(s.Key(), update); err != nil {
		if c.log != nil {
			c.log.Warnf("failed to set dacp endpoint on session %s: %v", s.Key(), err)
		}
		return
	}
	if c.log != nil {
		c.log.Debugf("session %s joined dacp service %s", s.Key(), *s.DacpID)
	}
}
