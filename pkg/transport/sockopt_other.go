//go:build !linux

package transport

import "syscall"

// reuseAddrControl is a no-op outside Linux.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
