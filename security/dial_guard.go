package security

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
)

var ErrPrivateAddress = errors.New("security: connection to private or reserved address refused")

// ControlFunc matches net.Dialer.Control.
type ControlFunc func(network, address string, conn syscall.RawConn) error

// DialGuard refuses connections whose remote address is private or
// reserved. It runs after DNS resolution, so a host that passed URL
// validation and later resolves to an internal address is still blocked.
func DialGuard(network, address string, conn syscall.RawConn) error {
	return NewDialGuard()(network, address, conn)
}

// NewDialGuard returns a guard that additionally admits the given prefixes.
func NewDialGuard(allow ...netip.Prefix) ControlFunc {
	allowed := append([]netip.Prefix(nil), allow...)
	return func(network, address string, _ syscall.RawConn) error {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return fmt.Errorf("security: invalid dial address %q: %w", address, err)
		}
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return fmt.Errorf("security: dial address %q is not an ip: %w", address, err)
		}
		addr = addr.Unmap().WithZone("")
		for _, prefix := range allowed {
			if prefix.Contains(addr) {
				return nil
			}
		}
		if IsPrivateOrReserved(addr) {
			return fmt.Errorf("%w: %s %s", ErrPrivateAddress, network, addr)
		}
		return nil
	}
}
