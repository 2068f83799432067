// Package receiver wires the AirPlay receiver components into one process.
//
// A Receiver owns the session store and every component that reads or writes
// it: the DACP correlator and client, the pair-verify handler, the DNS-SD
// advertiser and DACP browser, and the media listeners it opens on behalf of
// sessions.
package receiver

import (
	"context"
	"crypto/ed25519"
	"errors"
	"math"
	"net"
	"net/http"
	"net/netip"
	"sync"
	"time"

	"github.com/backkem/airplay/pkg/dacp"
	"github.com/backkem/airplay/pkg/discovery"
	"github.com/backkem/airplay/pkg/metrics"
	"github.com/backkem/airplay/pkg/pairing"
	"github.com/backkem/airplay/pkg/session"
	"github.com/backkem/airplay/pkg/transport"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

// Config holds all configuration for a Receiver.
type Config struct {
	// TXT describes the advertised receiver. DeviceID and Name are required.
	// PublicKey is replaced by the pair-verify identity.
	TXT discovery.ReceiverTXT

	// Identity is the long-term ed25519 key. Generated when nil.
	Identity ed25519.PrivateKey

	// Interfaces limits DNS-SD to the given interfaces.
	Interfaces []net.Interface

	// BrowseTimeout and BrowseInterval tune the DACP browser.
	BrowseTimeout  time.Duration
	BrowseInterval time.Duration

	// HTTPClient sends DACP commands. If nil, a client with
	// dacp.DefaultCommandTimeout is used.
	HTTPClient *http.Client

	// Metrics receives every component's collectors. Optional.
	Metrics *metrics.Metrics

	// OnDacpServiceShutdown is called after a sender's remote control service
	// left the network.
	OnDacpServiceShutdown func(endpoint netip.AddrPort)

	// OnAudioPacket receives RTP packets from audio control listeners opened
	// without an explicit data loop.
	OnAudioPacket func(key string, pkt *rtp.Packet)

	// OnVideoPacket receives datagrams from mirroring listeners opened
	// without an explicit data loop.
	OnVideoPacket func(key string, p *transport.Packet)

	// OnSetVolume and OnTrackInfo receive the sender's volume changes and
	// now-playing metadata, as reported through SetVolume and SetTrackInfo.
	OnSetVolume func(key string, volume float64)
	OnTrackInfo func(key string, info TrackInfo)

	// LoggerFactory for creating loggers.
	LoggerFactory logging.LoggerFactory

	// ServerFactory and MDNSResolver replace the zeroconf implementations.
	// For testing.
	ServerFactory discovery.MDNSServerFactory
	MDNSResolver  discovery.MDNSResolver
}

// ListenerOptions configures a listener opened through OpenListener.
type ListenerOptions struct {
	// Host is the bind address (default: all interfaces).
	Host string

	// ControlPort and DataPort select the ports. Zero picks ephemeral ports.
	ControlPort int
	DataPort    int

	// ReuseAddr sets SO_REUSEADDR on both sockets, so fixed media ports can
	// be bound again by the next session without waiting for the previous
	// listener to finish closing.
	ReuseAddr bool

	// ControlLoop and DataLoop serve the sockets. A nil loop parks the socket,
	// except a nil DataLoop on an audio control listener feeds
	// Config.OnAudioPacket and on a mirroring listener feeds
	// Config.OnVideoPacket, when those callbacks are set.
	ControlLoop transport.LoopFunc
	DataLoop    transport.LoopFunc
}

// Volume bounds in dB, as sent by AirPlay senders. MinVolume means muted.
const (
	MinVolume = -144.0
	MaxVolume = 0.0
)

type listenerKey struct {
	session string
	role    transport.Role
}

// Receiver is a running AirPlay receiver.
type Receiver struct {
	config Config
	log    logging.LeveledLogger

	store      *session.Store
	correlator *dacp.Correlator
	client     *dacp.Client
	verifier   *pairing.Verifier
	advertiser *discovery.Advertiser
	resolver   *discovery.Resolver

	mu        sync.Mutex
	state     State
	listeners map[listenerKey]*transport.Listener
	cancel    context.CancelFunc
	browsing  chan struct{}
}

// New creates a receiver. The receiver is created but not started. Call
// Start to begin advertising.
func New(config Config) (*Receiver, error) {
	if _, err := discovery.ParseDeviceID(config.TXT.DeviceID); err != nil {
		return nil, err
	}
	if config.TXT.Name == "" {
		return nil, discovery.ErrInvalidName
	}

	r := &Receiver{
		config:    config,
		listeners: make(map[listenerKey]*transport.Listener),
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("receiver")
	}

	r.store = session.NewStore(session.StoreConfig{
		LoggerFactory: config.LoggerFactory,
		Metrics:       config.Metrics,
	})

	verifier, err := pairing.NewVerifier(pairing.VerifierConfig{
		Store:         r.store,
		Identity:      config.Identity,
		LoggerFactory: config.LoggerFactory,
	})
	if err != nil {
		r.store.Close()
		return nil, err
	}
	r.verifier = verifier

	r.correlator = dacp.NewCorrelator(dacp.CorrelatorConfig{
		Store:             r.store,
		OnServiceShutdown: config.OnDacpServiceShutdown,
		LoggerFactory:     config.LoggerFactory,
		Metrics:           config.Metrics,
	})
	r.client = dacp.NewClient(dacp.ClientConfig{
		HTTPClient:    config.HTTPClient,
		LoggerFactory: config.LoggerFactory,
		Metrics:       config.Metrics,
	})
	r.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{
		Interfaces:    config.Interfaces,
		ServerFactory: config.ServerFactory,
		LoggerFactory: config.LoggerFactory,
	})
	r.resolver = discovery.NewResolver(discovery.ResolverConfig{
		MDNSResolver:   config.MDNSResolver,
		Interfaces:     config.Interfaces,
		BrowseTimeout:  config.BrowseTimeout,
		BrowseInterval: config.BrowseInterval,
		LoggerFactory:  config.LoggerFactory,
	})

	return r, nil
}

// Store returns the session store.
func (r *Receiver) Store() *session.Store {
	return r.store
}

// Verifier returns the pair-verify handler.
func (r *Receiver) Verifier() *pairing.Verifier {
	return r.verifier
}

// Correlator returns the DACP correlator.
func (r *Receiver) Correlator() *dacp.Correlator {
	return r.correlator
}

// State returns the current lifecycle state.
func (r *Receiver) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start publishes the receiver's services and starts browsing for senders'
// DACP services. Browsing stops when ctx is done or Stop is called.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRunning:
		return ErrAlreadyStarted
	case StateStopped:
		return ErrAlreadyStopped
	}

	txt := r.config.TXT
	txt.PublicKey = r.verifier.PublicKeyHex()
	if err := r.advertiser.Publish(txt); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	browsing := make(chan struct{})
	r.browsing = browsing

	events := r.resolver.BrowseDACP(ctx)
	go func() {
		defer close(browsing)
		r.correlator.Run(ctx, events)
		// The browser exits once ctx is done and it is not blocked sending.
		for range events {
		}
	}()

	r.state = StateRunning
	if r.log != nil {
		r.log.Infof("receiver %q started", txt.Name)
	}
	return nil
}

// Stop stops every open listener, withdraws the advertisement, stops DACP
// correlation and closes the session store.
func (r *Receiver) Stop() error {
	r.mu.Lock()
	if r.state == StateStopped {
		r.mu.Unlock()
		return ErrAlreadyStopped
	}
	wasRunning := r.state == StateRunning
	r.state = StateStopped
	listeners := r.listeners
	r.listeners = make(map[listenerKey]*transport.Listener)
	cancel, browsing := r.cancel, r.browsing
	r.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.Stop(); err != nil {
			errs = append(errs, err)
		}
	}

	if wasRunning {
		cancel()
		<-browsing
	}
	if err := r.advertiser.Close(); err != nil && !errors.Is(err, discovery.ErrClosed) {
		errs = append(errs, err)
	}
	r.correlator.Close()
	if err := r.store.Close(); err != nil {
		errs = append(errs, err)
	}

	if r.log != nil {
		r.log.Info("receiver stopped")
	}
	return errors.Join(errs...)
}

// OpenListener creates and starts a listener for the given session and role
// and attaches it to the session. The receiver owns the listener: it is
// stopped by CloseListener, RemoveSession or Stop, and when ctx is done. A
// listener already open for the same session and role is replaced.
func (r *Receiver) OpenListener(ctx context.Context, key string, role transport.Role, opts ListenerOptions) (*transport.Listener, error) {
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}
	if r.State() != StateRunning {
		return nil, ErrNotStarted
	}

	dataLoop := opts.DataLoop
	if dataLoop == nil {
		dataLoop = r.defaultDataLoop(key, role)
	}

	lk := listenerKey{session: key, role: role}
	var l *transport.Listener
	l, err := transport.NewListener(transport.ListenerConfig{
		Role:        role,
		Host:        opts.Host,
		ControlPort: opts.ControlPort,
		DataPort:    opts.DataPort,
		ReuseAddr:   opts.ReuseAddr,
		ControlLoop: opts.ControlLoop,
		DataLoop:    dataLoop,
		OnAllSocketsClosed: func() {
			r.forget(lk, l)
		},
		LoggerFactory: r.config.LoggerFactory,
		Metrics:       r.config.Metrics,
	})
	if err != nil {
		return nil, err
	}

	update := session.New(key)
	switch role {
	case transport.RoleMirroring:
		update.MirroringListener = l
	case transport.RoleStreaming:
		update.StreamingListener = l
	case transport.RoleAudioControl:
		update.AudioControlListener = l
	}
	if err := r.store.Upsert(key, update); err != nil {
		l.Stop()
		return nil, err
	}
	if err := l.Start(ctx); err != nil {
		l.Stop()
		return nil, err
	}

	// r.mu is never held across Listener.Stop: the close callback takes it.
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		l.Stop()
		return nil, ErrNotStarted
	}
	prev := r.listeners[lk]
	r.listeners[lk] = l
	r.mu.Unlock()

	select {
	case <-l.Done():
		// Closed before it was tracked, e.g. ctx already done.
		r.forget(lk, l)
	default:
	}
	if prev != nil {
		prev.Stop()
	}

	if r.log != nil {
		ctrl, data := l.LocalAddrs()
		r.log.Debugf("session %s: %s listener on %s / %s", key, role, ctrl, data)
	}
	return l, nil
}

func (r *Receiver) defaultDataLoop(key string, role transport.Role) transport.LoopFunc {
	switch {
	case role == transport.RoleAudioControl && r.config.OnAudioPacket != nil:
		onAudio := r.config.OnAudioPacket
		return transport.RTPLoop(transport.RTPLoopConfig{
			Role:          role,
			Handler:       func(pkt *rtp.Packet, _ *transport.Packet) { onAudio(key, pkt) },
			LoggerFactory: r.config.LoggerFactory,
			Metrics:       r.config.Metrics,
		})
	case role == transport.RoleMirroring && r.config.OnVideoPacket != nil:
		onVideo := r.config.OnVideoPacket
		return transport.ReadLoop(func(p *transport.Packet) { onVideo(key, p) })
	default:
		return nil
	}
}

// forget drops l from the tracked listeners once its sockets are closed and
// detaches it from the session, unless the session already refers to a newer
// listener. A listener that finishes closing after the store was closed
// leaves its reference in place.
func (r *Receiver) forget(lk listenerKey, l *transport.Listener) {
	r.mu.Lock()
	if r.listeners[lk] == l {
		delete(r.listeners, lk)
	}
	r.mu.Unlock()

	r.store.DetachListener(lk.session, l)
}

// Listener returns the open listener for a session and role.
func (r *Receiver) Listener(key string, role transport.Role) (*transport.Listener, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listeners[listenerKey{session: key, role: role}]
	return l, ok
}

// CloseListener stops the listener open for a session and role.
func (r *Receiver) CloseListener(key string, role transport.Role) error {
	r.mu.Lock()
	lk := listenerKey{session: key, role: role}
	l, ok := r.listeners[lk]
	delete(r.listeners, lk)
	r.mu.Unlock()

	if !ok {
		return ErrListenerNotFound
	}
	return l.Stop()
}

// RemoveSession stops the session's listeners and removes it from the store.
func (r *Receiver) RemoveSession(key string) error {
	r.mu.Lock()
	var owned []*transport.Listener
	for lk, l := range r.listeners {
		if lk.session == key {
			owned = append(owned, l)
			delete(r.listeners, lk)
		}
	}
	r.mu.Unlock()

	var errs []error
	for _, l := range owned {
		if err := l.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	r.store.Remove(key)
	return errors.Join(errs...)
}

// SetVolume reports a volume change from the sender of the given session to
// Config.OnSetVolume. volume is in dB, from MinVolume (muted) to MaxVolume.
func (r *Receiver) SetVolume(key string, volume float64) error {
	if math.IsNaN(volume) || volume < MinVolume || volume > MaxVolume {
		return ErrInvalidVolume
	}
	if _, ok := r.store.Lookup(key); !ok {
		return session.ErrSessionNotFound
	}
	if r.log != nil {
		r.log.Debugf("session %s: volume %.2f dB", key, volume)
	}
	if r.config.OnSetVolume != nil {
		r.config.OnSetVolume(key, volume)
	}
	return nil
}

// SetTrackInfo reports a now-playing metadata item from the sender of the
// given session to Config.OnTrackInfo.
func (r *Receiver) SetTrackInfo(key string, info TrackInfo) error {
	if !info.IsValid() {
		return ErrInvalidTrackInfo
	}
	if _, ok := r.store.Lookup(key); !ok {
		return session.ErrSessionNotFound
	}
	if r.log != nil {
		r.log.Tracef("session %s: track %s", key, info.Type)
	}
	if r.config.OnTrackInfo != nil {
		r.config.OnTrackInfo(key, info)
	}
	return nil
}

// SendCommand sends a DACP remote control command to the sender of the
// given session.
func (r *Receiver) SendCommand(ctx context.Context, key, command string) error {
	s, ok := r.store.Lookup(key)
	if !ok {
		return session.ErrSessionNotFound
	}
	return r.client.SendCommand(ctx, s, command)
}
