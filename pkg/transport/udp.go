package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// listenUDP binds a UDP socket on host:port. Port 0 picks an ephemeral port.
func listenUDP(host string, port int, reuseAddr bool) (net.PacketConn, error) {
	if port < 0 || port > 65535 {
		return nil, ErrInvalidPort
	}

	lc := net.ListenConfig{}
	if reuseAddr {
		lc.Control = reuseAddrControl
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := lc.ListenPacket(context.Background(), "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBind, addr, err)
	}
	return conn, nil
}

// ReadLoop returns a LoopFunc that reads datagrams from the socket and hands
// a copy of each to handler. The loop exits without error when ctx is done or
// the socket is closed.
func ReadLoop(handler PacketHandler) LoopFunc {
	return func(ctx context.Context, conn net.PacketConn) error {
		// Unblock a pending ReadFrom on cancellation.
		stop := context.AfterFunc(ctx, func() {
			conn.SetReadDeadline(time.Now())
		})
		defer stop()

		buf := make([]byte, MaxDatagramSize)

		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}

			if n == 0 {
				continue
			}

			// Make a copy of the data for the handler
			data := make([]byte, n)
			copy(data, buf[:n])

			handler(&Packet{Data: data, Addr: addr})
		}
	}
}

// parkLoop is used when no loop is configured for a socket: it holds the
// socket open until cancellation.
func parkLoop(ctx context.Context, _ net.PacketConn) error {
	<-ctx.Done()
	return nil
}
