// Package dacp correlates AirPlay sessions with the sender's DACP remote
// control service and sends remote control commands to it.
//
// The sender announces an "iTunes_Ctrl_<id>._dacp._tcp" service and tells the
// receiver <id> in the DACP-ID request header. The Correlator joins the two:
// whenever a session carrying a DACP ID and a resolved service for that ID
// are both known, the session's DacpEndpoint is filled in through the store.
package dacp

import "github.com/miekg/dns"

// Event is a discovery event for a DACP service: *Answer or *Shutdown.
type Event interface {
	instanceName() string
}

// Answer is a resolved DACP service instance.
type Answer struct {
	// InstanceName is the full service instance name,
	// e.g. "iTunes_Ctrl_ABCD123._dacp._tcp.local.".
	InstanceName string

	// Records holds the answer and additional records of the response.
	Records []dns.RR
}

func (a *Answer) instanceName() string { return a.InstanceName }

// Shutdown reports that a DACP service instance left the network.
type Shutdown struct {
	InstanceName string
}

func (s *Shutdown) instanceName() string { return s.InstanceName }
