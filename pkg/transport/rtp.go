package transport

import (
	"github.com/backkem/airplay/pkg/metrics"
	"github.com/pion/logging"
	"github.com/pion/rtp"
)

// RTPHandler is called for each well-formed RTP packet received on a socket.
type RTPHandler func(pkt *rtp.Packet, p *Packet)

// RTPLoopConfig configures RTPLoop.
type RTPLoopConfig struct {
	// Role labels metrics and logs.
	Role Role

	// Handler receives decoded packets. Required.
	Handler RTPHandler

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory

	// Metrics counts decoded and malformed packets. Optional.
	Metrics *metrics.Metrics
}

// RTPLoop returns a LoopFunc that decodes each datagram as RTP. Malformed
// datagrams are dropped and counted; they never stop the loop.
func RTPLoop(config RTPLoopConfig) LoopFunc {
	var log logging.LeveledLogger
	if config.LoggerFactory != nil {
		log = config.LoggerFactory.NewLogger("rtp")
	}
	role := config.Role.String()

	return ReadLoop(func(p *Packet) {
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(p.Data); err != nil {
			config.Metrics.RTPPacket("malformed")
			if log != nil {
				log.Tracef("%s: dropping %d byte datagram from %s: %v", role, len(p.Data), p.Addr, err)
			}
			return
		}
		config.Metrics.RTPPacket("ok")
		if config.Handler != nil {
			config.Handler(pkt, p)
		}
	})
}
