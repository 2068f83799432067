package transport

import (
	"context"
	"net"
)

// MaxDatagramSize is the largest datagram a receive loop reads.
const MaxDatagramSize = 65535

// Packet is one datagram received on a listener socket.
type Packet struct {
	// Data contains the raw datagram bytes. The slice is owned by the handler.
	Data []byte
	// Addr is the sender's address.
	Addr net.Addr
}

// PacketHandler is called for each received datagram.
// Implementations should return quickly or hand off to another goroutine to
// avoid blocking the receive loop.
type PacketHandler func(p *Packet)

// LoopFunc is the receive loop for one listener socket. It must return
// promptly once ctx is done. Returning a non-nil error cancels the sibling
// loop; returning nil leaves the sibling running.
type LoopFunc func(ctx context.Context, conn net.PacketConn) error
