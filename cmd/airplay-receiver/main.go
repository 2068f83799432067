// airplay-receiver advertises an AirPlay receiver on the local network.
//
// The binary publishes the RAOP and AirPlay services, tracks senders' remote
// control (DACP) services and exposes Prometheus metrics.
//
// Usage:
//
//	airplay-receiver [options]
//
// Options:
//
//	-name          Receiver name (default: "AirPlay Receiver")
//	-device-id     Device ID (default: 11:22:33:44:55:66)
//	-airtunes-port RAOP service port (default: 5000)
//	-airplay-port  AirPlay service port (default: 7000)
//	-metrics-addr  Metrics listen address, empty to disable (default: :9100)
//	-log-level     error, warn, info, debug or trace (default: info)
//
// Example:
//
//	airplay-receiver -name "Living Room" -device-id 02:11:22:33:44:55
package main

import (
	"log"

	"github.com/backkem/airplay/examples/common"
)

func main() {
	// Parse command-line flags
	opts := common.ParseFlags()

	reg := common.NewMetricsRegistry()
	r, err := common.CreateReceiver(opts, reg)
	if err != nil {
		log.Fatalf("Failed to create receiver: %v", err)
	}

	// Run the receiver (blocks until interrupted)
	if err := common.RunReceiver(r, opts.MetricsAddr, reg); err != nil {
		log.Fatalf("Receiver error: %v", err)
	}
}
