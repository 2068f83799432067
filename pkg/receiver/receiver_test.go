package receiver

import (
	"context"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/backkem/airplay/pkg/dacp"
	"github.com/backkem/airplay/pkg/discovery"
	"github.com/backkem/airplay/pkg/session"
	"github.com/backkem/airplay/pkg/transport"
	"github.com/pion/logging"
	"github.com/pion/rtp"
	"github.com/pion/transport/v3/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	mu       sync.Mutex
	shutdown bool
}

func (s *fakeServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdown = true
}

func (s *fakeServer) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

type registration struct {
	instance string
	service  string
	port     int
	txt      []string
	server   *fakeServer
}

type fakeServerFactory struct {
	mu   sync.Mutex
	regs []registration
}

func (f *fakeServerFactory) Register(instance, service, domain string, port int, txt []string, ifaces []net.Interface) (discovery.MDNSServer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	srv := &fakeServer{}
	f.regs = append(f.regs, registration{instance, service, port, txt, srv})
	return srv, nil
}

func (f *fakeServerFactory) registrations() []registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]registration(nil), f.regs...)
}

type harness struct {
	r        *Receiver
	servers  *fakeServerFactory
	resolver *discovery.MockMDNSResolver
	shutdown chan netip.AddrPort
	audio    chan audioPacket
	video    chan videoPacket
	volume   chan float64
	tracks   chan TrackInfo
}

type audioPacket struct {
	key string
	pkt *rtp.Packet
}

type videoPacket struct {
	key string
	p   *transport.Packet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		servers:  &fakeServerFactory{},
		resolver: discovery.NewMockMDNSResolver(),
		shutdown: make(chan netip.AddrPort, 4),
		audio:    make(chan audioPacket, 4),
		video:    make(chan videoPacket, 4),
		volume:   make(chan float64, 4),
		tracks:   make(chan TrackInfo, 4),
	}
	config := Config{
		TXT: discovery.ReceiverTXT{
			DeviceID: "11:22:33:44:55:66",
			Name:     "Living Room",
		},
		BrowseTimeout:  50 * time.Millisecond,
		BrowseInterval: 10 * time.Millisecond,
		OnDacpServiceShutdown: func(ep netip.AddrPort) {
			h.shutdown <- ep
		},
		OnAudioPacket: func(key string, pkt *rtp.Packet) {
			h.audio <- audioPacket{key, pkt}
		},
		OnVideoPacket: func(key string, p *transport.Packet) {
			h.video <- videoPacket{key, p}
		},
		OnSetVolume: func(_ string, volume float64) {
			h.volume <- volume
		},
		OnTrackInfo: func(_ string, info TrackInfo) {
			h.tracks <- info
		},
		LoggerFactory: logging.NewDefaultLoggerFactory(),
		ServerFactory: h.servers,
		MDNSResolver:  h.resolver,
	}
	r, err := New(config)
	require.NoError(t, err)
	h.r = r
	t.Cleanup(func() { r.Stop() })
	return h
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{TXT: discovery.ReceiverTXT{DeviceID: "nope", Name: "x"}})
	assert.ErrorIs(t, err, discovery.ErrInvalidDeviceID)

	_, err = New(Config{TXT: discovery.ReceiverTXT{DeviceID: "11:22:33:44:55:66"}})
	assert.ErrorIs(t, err, discovery.ErrInvalidName)
}

func TestReceiverLifecycle(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	assert.Equal(t, StateInitialized, h.r.State())

	require.NoError(t, h.r.Start(context.Background()))
	assert.Equal(t, StateRunning, h.r.State())
	assert.ErrorIs(t, h.r.Start(context.Background()), ErrAlreadyStarted)

	regs := h.servers.registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, "112233445566@Living Room", regs[0].instance)
	assert.Equal(t, discovery.ServiceAirTunes, regs[0].service)
	assert.Equal(t, discovery.DefaultAirTunesPort, regs[0].port)
	assert.Equal(t, "Living Room", regs[1].instance)
	assert.Equal(t, discovery.ServiceAirPlay, regs[1].service)
	assert.Contains(t, regs[1].txt, "pk="+h.r.Verifier().PublicKeyHex())

	require.NoError(t, h.r.Stop())
	assert.Equal(t, StateStopped, h.r.State())
	for _, reg := range regs {
		assert.True(t, reg.server.isShutdown(), reg.service)
	}

	assert.ErrorIs(t, h.r.Stop(), ErrAlreadyStopped)
	assert.ErrorIs(t, h.r.Start(context.Background()), ErrAlreadyStopped)
}

func TestReceiverStopWithoutStart(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.r.Stop())
	assert.Empty(t, h.servers.registrations())
}

func TestReceiverDacpRoundTrip(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	paths := make(chan *http.Request, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		paths <- req
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	endpoint := netip.MustParseAddrPort(srv.Listener.Addr().String())

	h := newHarness(t)
	h.resolver.RegisterService(discovery.ServiceDACP,
		discovery.MockDACPService("ABCD123", "sender.local.", int(endpoint.Port()), net.IP(endpoint.Addr().AsSlice())))

	update := session.New("E")
	update.DacpID = session.Ptr("ABCD123")
	require.NoError(t, h.r.Store().Upsert("E", update))

	require.NoError(t, h.r.Start(context.Background()))

	require.Eventually(t, func() bool {
		return h.r.Store().Get("E").DacpEndpoint == endpoint
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, h.r.SendCommand(context.Background(), "E", dacp.CommandPlayPause))
	req := <-paths
	assert.Equal(t, "/ctrl-int/1/playpause", req.URL.Path)
	assert.Equal(t, "E", req.Header.Get(dacp.HeaderActiveRemote))

	assert.ErrorIs(t, h.r.SendCommand(context.Background(), "missing", dacp.CommandPlay), session.ErrSessionNotFound)

	h.resolver.ClearServices()
	select {
	case ep := <-h.shutdown:
		assert.Equal(t, endpoint, ep)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown not reported")
	}
	assert.False(t, h.r.Store().Get("E").HasDacpEndpoint())
	assert.ErrorIs(t, h.r.SendCommand(context.Background(), "E", dacp.CommandPlay), dacp.ErrEndpointUnknown)
}

func TestOpenListenerRequiresStart(t *testing.T) {
	h := newHarness(t)
	_, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, h.r.Start(context.Background()))
	_, err = h.r.OpenListener(context.Background(), "A", transport.RoleUnknown, ListenerOptions{Host: "127.0.0.1"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestOpenListenerAudioPackets(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	l, err := h.r.OpenListener(context.Background(), "A", transport.RoleAudioControl, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, transport.StateRunning, l.State())

	s, ok := h.r.Store().Lookup("A")
	require.True(t, ok)
	assert.Same(t, l, s.AudioControlListener)
	assert.Nil(t, s.MirroringListener)

	got, ok := h.r.Listener("A", transport.RoleAudioControl)
	require.True(t, ok)
	assert.Same(t, l, got)

	sender, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sender.Close()

	raw, err := (&rtp.Packet{
		Header:  rtp.Header{Version: 2, PayloadType: 96, SequenceNumber: 11},
		Payload: []byte{0xaa},
	}).Marshal()
	require.NoError(t, err)
	_, data := l.LocalAddrs()
	_, err = sender.WriteTo(raw, data)
	require.NoError(t, err)

	select {
	case p := <-h.audio:
		assert.Equal(t, "A", p.key)
		assert.Equal(t, uint16(11), p.pkt.SequenceNumber)
	case <-time.After(5 * time.Second):
		t.Fatal("audio packet not delivered")
	}

	require.NoError(t, h.r.CloseListener("A", transport.RoleAudioControl))
	<-l.Done()
	_, ok = h.r.Listener("A", transport.RoleAudioControl)
	assert.False(t, ok)
	s, ok = h.r.Store().Lookup("A")
	require.True(t, ok)
	assert.Nil(t, s.AudioControlListener)
	assert.ErrorIs(t, h.r.CloseListener("A", transport.RoleAudioControl), ErrListenerNotFound)
}

func TestOpenListenerReplacesPrevious(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	first, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)
	second, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)

	<-first.Done()
	assert.Equal(t, transport.StateRunning, second.State())

	got, ok := h.r.Listener("A", transport.RoleMirroring)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Same(t, second, h.r.Store().Get("A").MirroringListener)
}

func TestStopClosesListeners(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	var listeners []*transport.Listener
	for _, role := range []transport.Role{transport.RoleMirroring, transport.RoleStreaming, transport.RoleAudioControl} {
		l, err := h.r.OpenListener(context.Background(), "A", role, ListenerOptions{Host: "127.0.0.1"})
		require.NoError(t, err)
		listeners = append(listeners, l)
	}

	s := h.r.Store().Get("A")
	assert.NotNil(t, s.MirroringListener)
	assert.NotNil(t, s.StreamingListener)
	assert.NotNil(t, s.AudioControlListener)

	require.NoError(t, h.r.Stop())
	for _, l := range listeners {
		assert.Equal(t, transport.StateClosed, l.State(), l.Role().String())
	}
}

func TestRemoveSession(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	mirror, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)
	other, err := h.r.OpenListener(context.Background(), "B", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)

	require.NoError(t, h.r.RemoveSession("A"))
	<-mirror.Done()
	_, ok := h.r.Store().Lookup("A")
	assert.False(t, ok)

	assert.Equal(t, transport.StateRunning, other.State())
	_, ok = h.r.Store().Lookup("B")
	assert.True(t, ok)
}

func TestOpenListenerCancelledContext(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	l, err := h.r.OpenListener(ctx, "A", transport.RoleStreaming, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)
	cancel()

	<-l.Done()
	require.Eventually(t, func() bool {
		_, ok := h.r.Listener("A", transport.RoleStreaming)
		return !ok && h.r.Store().Get("A").StreamingListener == nil
	}, 5*time.Second, 10*time.Millisecond)
}

func TestOpenListenerVideoPackets(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	l, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{Host: "127.0.0.1"})
	require.NoError(t, err)

	sender, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sender.Close()

	_, data := l.LocalAddrs()
	_, err = sender.WriteTo([]byte{0x00, 0x00, 0x00, 0x01, 0x67}, data)
	require.NoError(t, err)

	select {
	case v := <-h.video:
		assert.Equal(t, "A", v.key)
		assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x01, 0x67}, v.p.Data)
	case <-time.After(5 * time.Second):
		t.Fatal("video packet not delivered")
	}
}

func TestOpenListenerExplicitDataLoop(t *testing.T) {
	defer test.TimeOut(10 * time.Second).Stop()

	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	got := make(chan []byte, 1)
	l, err := h.r.OpenListener(context.Background(), "A", transport.RoleMirroring, ListenerOptions{
		Host:     "127.0.0.1",
		DataLoop: transport.ReadLoop(func(p *transport.Packet) { got <- p.Data }),
	})
	require.NoError(t, err)

	sender, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer sender.Close()

	_, data := l.LocalAddrs()
	_, err = sender.WriteTo([]byte("x"), data)
	require.NoError(t, err)

	select {
	case b := <-got:
		assert.Equal(t, []byte("x"), b)
	case <-time.After(5 * time.Second):
		t.Fatal("datagram not delivered")
	}
	assert.Empty(t, h.video)
}

func TestSetVolume(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))

	assert.ErrorIs(t, h.r.SetVolume("A", -20), session.ErrSessionNotFound)
	require.NoError(t, h.r.Store().Upsert("A", session.New("A")))

	for _, v := range []float64{1, -144.5, math.NaN(), math.Inf(-1)} {
		assert.ErrorIs(t, h.r.SetVolume("A", v), ErrInvalidVolume, "%v", v)
	}

	require.NoError(t, h.r.SetVolume("A", -15.25))
	require.NoError(t, h.r.SetVolume("A", MinVolume))
	assert.Equal(t, -15.25, <-h.volume)
	assert.Equal(t, MinVolume, <-h.volume)
}

func TestSetTrackInfo(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.r.Start(context.Background()))
	require.NoError(t, h.r.Store().Upsert("A", session.New("A")))

	assert.ErrorIs(t, h.r.SetTrackInfo("A", TrackInfo{Type: TrackName, Value: 3}), ErrInvalidTrackInfo)
	assert.ErrorIs(t, h.r.SetTrackInfo("B", TrackInfo{Type: TrackName, Value: "x"}), session.ErrSessionNotFound)

	info := TrackInfo{Type: TrackProgressPosition, Value: 42 * time.Second}
	require.NoError(t, h.r.SetTrackInfo("A", info))
	assert.Equal(t, info, <-h.tracks)
}

func TestTrackInfoIsValid(t *testing.T) {
	tests := []struct {
		info TrackInfo
		want bool
	}{
		{TrackInfo{TrackName, "Song"}, true},
		{TrackInfo{TrackArtist, "Band"}, true},
		{TrackInfo{TrackAlbum, ""}, true},
		{TrackInfo{TrackCover, []byte{0xff, 0xd8}}, true},
		{TrackInfo{TrackProgressDuration, 3 * time.Minute}, true},
		{TrackInfo{TrackProgressPosition, time.Duration(0)}, true},
		{TrackInfo{TrackProgressPosition, -time.Second}, false},
		{TrackInfo{TrackCover, "not bytes"}, false},
		{TrackInfo{TrackName, nil}, false},
		{TrackInfo{TrackInfoType(42), "x"}, false},
	}
	for _, tt := range tests {
		if got := tt.info.IsValid(); got != tt.want {
			t.Errorf("%s %v: IsValid() = %v, want %v", tt.info.Type, tt.info.Value, got, tt.want)
		}
	}
}

func TestTrackInfoTypeString(t *testing.T) {
	for typ, want := range map[TrackInfoType]string{
		TrackName:             "Name",
		TrackArtist:           "Artist",
		TrackAlbum:            "Album",
		TrackCover:            "Cover",
		TrackProgressDuration: "ProgressDuration",
		TrackProgressPosition: "ProgressPosition",
		TrackInfoType(-1):     "Unknown",
	} {
		assert.Equal(t, want, typ.String())
		assert.Equal(t, want != "Unknown", typ.IsValid())
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateInitialized: "Initialized",
		StateRunning:     "Running",
		StateStopped:     "Stopped",
		State(9):         "Unknown",
	} {
		assert.Equal(t, want, state.String())
	}
}
