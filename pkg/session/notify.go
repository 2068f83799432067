package session

import (
	"context"
	"sync"

	"github.com/pion/logging"
)

// subscription is one registered update callback.
type subscription struct {
	id int
	fn func(*Session)
}

// notification is a queued update, or a flush barrier when s is nil.
type notification struct {
	s       *Session
	barrier chan struct{}
}

// dispatcher delivers store updates to subscribers from a single goroutine.
// The queue is unbounded so writers, including subscribers writing back into
// the store, never block on delivery.
type dispatcher struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []notification
	subs   []subscription
	nextID int
	closed bool
	done   chan struct{}

	log logging.LeveledLogger
}

func newDispatcher(log logging.LeveledLogger) *dispatcher {
	d := &dispatcher{
		done: make(chan struct{}),
		log:  log,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// enqueue appends s to the queue. It returns false once the dispatcher is closed.
func (d *dispatcher) enqueue(s *Session) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.queue = append(d.queue, notification{s: s})
	d.cond.Signal()
	return true
}

func (d *dispatcher) subscribe(fn func(*Session)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.subs = append(d.subs, subscription{id: id, fn: fn})
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, sub := range d.subs {
				if sub.id == id {
					d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (d *dispatcher) flush(ctx context.Context) error {
	barrier := make(chan struct{})

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.queue = append(d.queue, notification{barrier: barrier})
	d.cond.Signal()
	d.mu.Unlock()

	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		n := d.queue[0]
		d.queue[0] = notification{}
		d.queue = d.queue[1:]
		subs := make([]subscription, len(d.subs))
		copy(subs, d.subs)
		d.mu.Unlock()

		if n.barrier != nil {
			close(n.barrier)
			continue
		}

		if d.log != nil {
			d.log.Tracef("notifying %d subscribers of session %s", len(subs), n.s.Key())
		}
		for _, sub := range subs {
			sub.fn(n.s.Clone())
		}
	}
}
