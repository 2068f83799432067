package dacp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/backkem/airplay/pkg/metrics"
	"github.com/backkem/airplay/pkg/session"
	"github.com/pion/logging"
)

// HeaderActiveRemote carries the session key on remote control requests.
const HeaderActiveRemote = "Active-Remote"

// DefaultCommandTimeout bounds a command request when the HTTP client has no
// timeout of its own.
const DefaultCommandTimeout = 5 * time.Second

// Common remote control commands.
const (
	CommandPlayPause  = "playpause"
	CommandPause      = "pause"
	CommandPlay       = "play"
	CommandNextItem   = "nextitem"
	CommandPrevItem   = "previtem"
	CommandVolumeUp   = "volumeup"
	CommandVolumeDown = "volumedown"
	CommandStop       = "stop"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// HTTPClient sends the requests (default: a client with
	// DefaultCommandTimeout).
	HTTPClient *http.Client

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics counts commands by result. Optional.
	Metrics *metrics.Metrics
}

// Client sends remote control commands to a sender's DACP service.
type Client struct {
	http    *http.Client
	log     logging.LeveledLogger
	metrics *metrics.Metrics
}

// NewClient creates a DACP command client.
func NewClient(config ClientConfig) *Client {
	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultCommandTimeout}
	}
	c := &Client{http: hc, metrics: config.Metrics}
	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("dacp")
	}
	return c
}

// SendCommand issues GET http://{endpoint}/ctrl-int/1/{command} for the
// session, identified by its key in the Active-Remote header.
//
// It fails with ErrEndpointUnknown, before any network I/O, if the session's
// DACP service has not been resolved. Transport errors are returned as-is and
// the command is not retried.
func (c *Client) SendCommand(ctx context.Context, s *session.Session, command string) error {
	if command == "" || strings.Contains(command, "/") {
		return ErrInvalidCommand
	}
	if !s.HasDacpEndpoint() {
		c.metrics.DacpCommand("no_endpoint")
		return ErrEndpointUnknown
	}

	url := fmt.Sprintf("http://%s/ctrl-int/1/%s", s.DacpEndpoint, command)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderActiveRemote, s.Key())

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.DacpCommand("error")
		if c.log != nil {
			c.log.Warnf("dacp command %s for session %s failed: %v", command, s.Key(), err)
		}
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.DacpCommand("rejected")
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, command, resp.Status)
	}

	c.metrics.DacpCommand("ok")
	if c.log != nil {
		c.log.Debugf("dacp command %s sent to %s", command, s.DacpEndpoint)
	}
	return nil
}
