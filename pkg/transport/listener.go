package transport

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/backkem/airplay/pkg/metrics"
	"github.com/looplab/fsm"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"
)

// DefaultCloseTimeout bounds how long Stop waits for the receive loops to exit.
const DefaultCloseTimeout = time.Second

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	// Role identifies the media channel, used in logs and metrics.
	Role Role

	// Host is the local address to bind (default: all interfaces).
	Host string

	// ControlPort and DataPort are the UDP ports to bind. 0 picks an
	// ephemeral port. Ignored when the matching Conn is provided.
	ControlPort int
	DataPort    int

	// ControlConn and DataConn are optional pre-bound sockets. The listener
	// takes ownership and closes them on shutdown.
	ControlConn net.PacketConn
	DataConn    net.PacketConn

	// ReuseAddr sets SO_REUSEADDR on sockets the listener binds itself.
	ReuseAddr bool

	// ControlLoop and DataLoop run the per-socket datagram handling.
	// A nil loop keeps its socket open until the listener is cancelled.
	ControlLoop LoopFunc
	DataLoop    LoopFunc

	// OnAllSocketsClosed is called exactly once, after both loops exited and
	// both sockets were closed.
	OnAllSocketsClosed func()

	// CloseTimeout bounds Stop (default: DefaultCloseTimeout).
	CloseTimeout time.Duration

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics receives listener counters. Optional.
	Metrics *metrics.Metrics
}

// Listener owns the control and data sockets of one media channel.
//
// Lifecycle: idle → running (Start) → stopping (Stop or cancellation) →
// closed. When both receive loops have exited the sockets are closed once and
// OnAllSocketsClosed fires once, whatever made the loops exit.
type Listener struct {
	role         Role
	control      net.PacketConn
	data         net.PacketConn
	controlLoop  LoopFunc
	dataLoop     LoopFunc
	onClosed     func()
	closeTimeout time.Duration
	log          logging.LeveledLogger
	metrics      *metrics.Metrics

	state *fsm.FSM

	// internal is cancelled by Stop; Start combines it with the caller's context.
	internal       context.Context
	cancelInternal context.CancelFunc

	started    atomic.Bool
	closeOnce  sync.Once
	finishOnce sync.Once
	done       chan struct{}

	mu       sync.Mutex
	loopErr  error
	closeErr error
}

// NewListener binds the control and data sockets. A bind failure is returned
// immediately and nothing stays open.
func NewListener(config ListenerConfig) (*Listener, error) {
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = DefaultCloseTimeout
	}
	if config.ControlLoop == nil {
		config.ControlLoop = parkLoop
	}
	if config.DataLoop == nil {
		config.DataLoop = parkLoop
	}

	control := config.ControlConn
	if control == nil {
		c, err := listenUDP(config.Host, config.ControlPort, config.ReuseAddr)
		if err != nil {
			if config.DataConn != nil {
				config.DataConn.Close()
			}
			return nil, err
		}
		control = c
	}

	data := config.DataConn
	if data == nil {
		d, err := listenUDP(config.Host, config.DataPort, config.ReuseAddr)
		if err != nil {
			control.Close()
			return nil, err
		}
		data = d
	}

	internal, cancel := context.WithCancel(context.Background())

	l := &Listener{
		role:           config.Role,
		control:        control,
		data:           data,
		controlLoop:    config.ControlLoop,
		dataLoop:       config.DataLoop,
		onClosed:       config.OnAllSocketsClosed,
		closeTimeout:   config.CloseTimeout,
		metrics:        config.Metrics,
		internal:       internal,
		cancelInternal: cancel,
		done:           make(chan struct{}),
	}

	if config.LoggerFactory != nil {
		l.log = config.LoggerFactory.NewLogger("transport")
	}

	l.state = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventStart, Src: []string{StateIdle}, Dst: StateRunning},
			{Name: eventStop, Src: []string{StateIdle, StateRunning}, Dst: StateStopping},
			{Name: eventFinish, Src: []string{StateRunning, StateStopping}, Dst: StateClosed},
		},
		fsm.Callbacks{
			"after_" + eventStop: func(_ context.Context, e *fsm.Event) {
				if len(e.Args) > 0 {
					if fromIdle, ok := e.Args[0].(*bool); ok {
						*fromIdle = e.Src == StateIdle
					}
				}
			},
		},
	)

	return l, nil
}

// Start launches the control and data receive loops and returns immediately.
// Cancelling ctx or calling Stop cancels both loops.
func (l *Listener) Start(ctx context.Context) error {
	if err := l.state.Event(context.Background(), eventStart); err != nil {
		if l.state.Current() == StateRunning {
			return ErrAlreadyStarted
		}
		return ErrClosed
	}

	if l.log != nil {
		l.log.Infof("starting %s listener control=%s data=%s", l.role, l.control.LocalAddr(), l.data.LocalAddr())
	}
	l.started.Store(true)
	l.metrics.ListenerStarted(l.role.String())

	loopCtx, cancel := context.WithCancel(ctx)
	stopLink := context.AfterFunc(l.internal, cancel)

	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return l.controlLoop(gctx, l.control) })
	g.Go(func() error { return l.dataLoop(gctx, l.data) })

	go func() {
		err := g.Wait()
		stopLink()
		cancel()
		l.finish(err)
	}()

	return nil
}

// Stop cancels both loops and closes the sockets. It waits up to the close
// timeout for the loops to exit. Calling Stop again is a no-op.
func (l *Listener) Stop() error {
	l.cancelInternal()

	var fromIdle bool
	if err := l.state.Event(context.Background(), eventStop, &fromIdle); err != nil {
		return nil
	}

	if l.log != nil {
		l.log.Debugf("stopping %s listener", l.role)
	}

	if fromIdle {
		l.finish(nil)
		return nil
	}

	l.closeSockets()

	timer := time.NewTimer(l.closeTimeout)
	defer timer.Stop()

	select {
	case <-l.done:
		return nil
	case <-timer.C:
		if l.log != nil {
			l.log.Warnf("%s listener loops did not exit within %v", l.role, l.closeTimeout)
		}
		return ErrCloseTimeout
	}
}

// Done returns a channel closed after OnAllSocketsClosed has run.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Err returns the error that terminated the receive loops, if any.
// Cancellation is not an error.
func (l *Listener) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loopErr
}

// CloseErr returns the error reported while closing the sockets, if any.
func (l *Listener) CloseErr() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeErr
}

// State returns the current lifecycle state.
func (l *Listener) State() string {
	return l.state.Current()
}

// Role returns the media channel the listener serves.
func (l *Listener) Role() Role {
	return l.role
}

// LocalAddrs returns the bound control and data socket addresses.
func (l *Listener) LocalAddrs() (control, data net.Addr) {
	return l.control.LocalAddr(), l.data.LocalAddr()
}

// ControlPort returns the bound control port.
func (l *Listener) ControlPort() int {
	return portOf(l.control.LocalAddr())
}

// DataPort returns the bound data port.
func (l *Listener) DataPort() int {
	return portOf(l.data.LocalAddr())
}

// closeSockets closes both sockets once. A past deadline is set first so a
// blocked ReadFrom returns immediately.
func (l *Listener) closeSockets() {
	l.closeOnce.Do(func() {
		now := time.Now()
		l.control.SetDeadline(now)
		l.data.SetDeadline(now)

		err := errors.Join(l.control.Close(), l.data.Close())

		l.mu.Lock()
		l.closeErr = err
		l.mu.Unlock()
	})
}

// finish runs the shutdown sequence exactly once.
func (l *Listener) finish(loopErr error) {
	l.finishOnce.Do(func() {
		if errors.Is(loopErr, context.Canceled) {
			loopErr = nil
		}
		l.mu.Lock()
		l.loopErr = loopErr
		l.mu.Unlock()

		l.closeSockets()
		_ = l.state.Event(context.Background(), eventFinish)

		if l.started.Load() {
			l.metrics.ListenerStopped(l.role.String())
		}
		l.metrics.ListenerClosed(l.role.String())

		if l.log != nil {
			if loopErr != nil {
				l.log.Warnf("%s listener closed after error: %v", l.role, loopErr)
			} else {
				l.log.Infof("%s listener closed", l.role)
			}
		}

		if l.onClosed != nil {
			l.onClosed()
		}
		close(l.done)
	})
}

func portOf(addr net.Addr) int {
	if u, ok := addr.(*net.UDPAddr); ok {
		return u.Port
	}
	return 0
}
