package dacp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/backkem/airplay/pkg/metrics"
	"github.com/backkem/airplay/pkg/session"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverEndpoint(t *testing.T, srv *httptest.Server) netip.AddrPort {
	t.Helper()
	ep, err := netip.ParseAddrPort(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	return ep
}

func TestSendCommand(t *testing.T) {
	type request struct{ path, remote string }
	got := make(chan request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- request{r.URL.Path, r.Header.Get(HeaderActiveRemote)}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := session.New("1986535575")
	s.DacpEndpoint = serverEndpoint(t, srv)

	c := NewClient(ClientConfig{LoggerFactory: logging.NewDefaultLoggerFactory()})
	require.NoError(t, c.SendCommand(context.Background(), s, CommandPlayPause))

	req := <-got
	assert.Equal(t, "/ctrl-int/1/playpause", req.path)
	assert.Equal(t, "1986535575", req.remote)
}

func TestSendCommandWithoutEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	c := NewClient(ClientConfig{Metrics: metrics.New(metrics.Config{Registerer: reg})})

	s := session.New("k")
	s.DacpID = session.Ptr("ABCD123")
	err := c.SendCommand(context.Background(), s, CommandNextItem)
	assert.ErrorIs(t, err, ErrEndpointUnknown)
	assert.Equal(t, int32(0), hits.Load())

	expected := `
# HELP airplay_dacp_commands_total Total number of DACP commands sent by result
# TYPE airplay_dacp_commands_total counter
airplay_dacp_commands_total{result="no_endpoint"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "airplay_dacp_commands_total"))
}

func TestSendCommandRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := session.New("k")
	s.DacpEndpoint = serverEndpoint(t, srv)

	err := NewClient(ClientConfig{}).SendCommand(context.Background(), s, CommandPause)
	assert.ErrorIs(t, err, ErrCommandFailed)
}

func TestSendCommandNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ep := serverEndpoint(t, srv)
	srv.Close()

	s := session.New("k")
	s.DacpEndpoint = ep

	err := NewClient(ClientConfig{}).SendCommand(context.Background(), s, CommandPause)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEndpointUnknown)
	assert.NotErrorIs(t, err, ErrCommandFailed)
}

func TestSendCommandInvalid(t *testing.T) {
	s := session.New("k")
	s.DacpEndpoint = netip.MustParseAddrPort("127.0.0.1:1")

	c := NewClient(ClientConfig{})
	assert.ErrorIs(t, c.SendCommand(context.Background(), s, ""), ErrInvalidCommand)
	assert.ErrorIs(t, c.SendCommand(context.Background(), s, "a/b"), ErrInvalidCommand)
}
