package session

import (
	"context"
	"net/netip"
	"sync"
	"sync/atomic"

	"github.com/backkem/airplay/pkg/metrics"
	"github.com/pion/logging"
)

// StoreConfig configures a Store.
type StoreConfig struct {
	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics receives store counters. Optional.
	Metrics *metrics.Metrics
}

// entry guards one key. The per-entry mutex gives single-writer exclusivity
// for a key without serializing unrelated keys.
type entry struct {
	mu      sync.Mutex
	s       *Session // nil until the first upsert
	deleted bool
}

// Store is the canonical key → Session collection.
//
// Create one Store per process and hand it to every collaborator that needs
// it. All mutation goes through Upsert (or Replace/Remove); values returned
// by Get and ForEach are copies.
type Store struct {
	entries sync.Map // string -> *entry
	count   atomic.Int64

	notify  *dispatcher
	log     logging.LeveledLogger
	metrics *metrics.Metrics

	// closeMu is held shared by writers from the closed check until their
	// notification is queued, and exclusively by Close while it sets closed.
	// A write is therefore either applied and notified, or rejected.
	closeMu sync.RWMutex
	closed  atomic.Bool
}

// NewStore creates a new session store and starts its notification dispatcher.
// Call Close to stop the dispatcher.
func NewStore(config StoreConfig) *Store {
	st := &Store{
		metrics: config.Metrics,
	}
	if config.LoggerFactory != nil {
		st.log = config.LoggerFactory.NewLogger("session")
	}
	st.notify = newDispatcher(st.log)
	go st.notify.run()
	return st
}

// Get returns a copy of the stored session for key.
// If the key is unknown, a new empty Session carrying the key is returned.
// It is not stored; call Upsert to persist it.
func (st *Store) Get(key string) *Session {
	v, ok := st.entries.Load(key)
	if !ok {
		return New(key)
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || e.s == nil {
		return New(key)
	}
	return e.s.Clone()
}

// Lookup returns a copy of the stored session for key and whether it exists.
func (st *Store) Lookup(key string) (*Session, bool) {
	v, ok := st.entries.Load(key)
	if !ok {
		return nil, false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || e.s == nil {
		return nil, false
	}
	return e.s.Clone(), true
}

// Upsert stores update under key. If a session already exists, the stored
// value becomes Merge(existing, update). Subscribers are then notified with
// the resulting value.
//
// Concurrent upserts for the same key are applied one at a time, and
// subscribers observe them in the order they were applied.
func (st *Store) Upsert(key string, update *Session) error {
	st.closeMu.RLock()
	defer st.closeMu.RUnlock()
	if err := st.checkWrite(key, update); err != nil {
		return err
	}

	for {
		v, _ := st.entries.LoadOrStore(key, &entry{})
		e := v.(*entry)

		e.mu.Lock()
		if e.deleted {
			// Lost a race with Remove; retry against a fresh entry.
			e.mu.Unlock()
			continue
		}

		inserted := e.s == nil
		var merged *Session
		if inserted {
			merged = update.Clone()
		} else {
			merged = Merge(e.s, update)
		}
		merged.key = key
		e.s = merged

		// Enqueue while holding the key so per-key notification order
		// matches the order in which merges were applied.
		st.notify.enqueue(merged.Clone())
		e.mu.Unlock()

		if inserted {
			st.count.Add(1)
			st.metrics.SessionStored()
		}
		st.metrics.SessionUpserted(inserted)

		if st.log != nil {
			if inserted {
				st.log.Debugf("session %s inserted", key)
			} else {
				st.log.Tracef("session %s updated", key)
			}
		}
		return nil
	}
}

// Replace stores s under key as-is, discarding the existing value. It is the
// only way to clear fields of a stored session, used when a logical session is
// superseded by a new one. Subscribers are notified.
func (st *Store) Replace(key string, s *Session) error {
	st.closeMu.RLock()
	defer st.closeMu.RUnlock()
	if err := st.checkWrite(key, s); err != nil {
		return err
	}

	for {
		v, _ := st.entries.LoadOrStore(key, &entry{})
		e := v.(*entry)

		e.mu.Lock()
		if e.deleted {
			e.mu.Unlock()
			continue
		}
		inserted := e.s == nil
		c := s.Clone()
		c.key = key
		e.s = c
		st.notify.enqueue(c.Clone())
		e.mu.Unlock()

		if inserted {
			st.count.Add(1)
			st.metrics.SessionStored()
		}
		return nil
	}
}

// Remove deletes the session for key. It returns false if no session was stored.
// Listeners referenced by the session are not touched.
func (st *Store) Remove(key string) bool {
	v, ok := st.entries.Load(key)
	if !ok {
		return false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return false
	}
	existed := e.s != nil
	e.deleted = true
	e.s = nil
	st.entries.Delete(key)

	if existed {
		st.count.Add(-1)
		st.metrics.SessionRemoved()
	}
	return existed
}

// ClearDacpEndpoint clears the resolved DACP endpoint of every stored session
// whose DacpID equals dacpID. Each session is cleared under its key's lock, so
// the clear is exclusive with concurrent upserts of that key. It does not
// notify subscribers. Returns the number of sessions cleared.
func (st *Store) ClearDacpEndpoint(dacpID string) int {
	cleared := 0
	st.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		if !e.deleted && e.s != nil && e.s.DacpID != nil && *e.s.DacpID == dacpID {
			c := e.s.Clone()
			c.DacpEndpoint = netip.AddrPort{}
			e.s = c
			cleared++
		}
		e.mu.Unlock()
		return true
	})
	return cleared
}

// DetachListener clears every listener field of the session for key that
// still refers to l, under the key's lock. Subscribers are notified when a
// field was cleared. It never inserts a session and does nothing once the
// store is closed. Returns whether a field was cleared.
func (st *Store) DetachListener(key string, l Listener) bool {
	st.closeMu.RLock()
	defer st.closeMu.RUnlock()
	if st.closed.Load() || l == nil {
		return false
	}
	v, ok := st.entries.Load(key)
	if !ok {
		return false
	}
	e := v.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted || e.s == nil {
		return false
	}

	c := e.s.Clone()
	detached := false
	for _, field := range []*Listener{&c.MirroringListener, &c.StreamingListener, &c.AudioControlListener} {
		if *field == l {
			*field = nil
			detached = true
		}
	}
	if !detached {
		return false
	}
	e.s = c
	st.notify.enqueue(c.Clone())

	if st.log != nil {
		st.log.Debugf("session %s: listener detached", key)
	}
	return true
}

// ForEach calls fn with a copy of each stored session until fn returns false.
// Iteration order is unspecified.
func (st *Store) ForEach(fn func(*Session) bool) {
	st.entries.Range(func(_, v any) bool {
		e := v.(*entry)
		e.mu.Lock()
		var s *Session
		if !e.deleted && e.s != nil {
			s = e.s.Clone()
		}
		e.mu.Unlock()

		if s == nil {
			return true
		}
		return fn(s)
	})
}

// Len returns the number of stored sessions.
func (st *Store) Len() int {
	return int(st.count.Load())
}

// Subscribe registers fn to be called with a copy of the merged session after
// every Upsert or Replace. Subscribers run in registration order on the
// store's dispatch goroutine; a slow subscriber delays later notifications but
// not the writer. fn may call back into the store.
//
// The returned function unregisters fn.
func (st *Store) Subscribe(fn func(*Session)) (unsubscribe func()) {
	return st.notify.subscribe(fn)
}

// Flush blocks until every notification queued before the call has been
// delivered, or ctx is done.
func (st *Store) Flush(ctx context.Context) error {
	return st.notify.flush(ctx)
}

// Close stops accepting writes, delivers queued notifications and stops the
// dispatcher. Writes that return nil before Close returns are notified; writes
// that return ErrClosed were not applied. It must not be called from a
// subscriber.
func (st *Store) Close() error {
	st.closeMu.Lock()
	swapped := st.closed.CompareAndSwap(false, true)
	st.closeMu.Unlock()
	if !swapped {
		return ErrClosed
	}
	st.notify.close()
	return nil
}

func (st *Store) checkWrite(key string, s *Session) error {
	if key == "" {
		return ErrInvalidKey
	}
	if s == nil {
		return ErrNilSession
	}
	if s.key != "" && s.key != key {
		return ErrKeyMismatch
	}
	if st.closed.Load() {
		return ErrClosed
	}
	return nil
}
