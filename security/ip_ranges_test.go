package security

import (
	"errors"
	"net/netip"
	"testing"
)

func TestIsPrivateOrReserved(t *testing.T) {
	private := []string{
		"127.0.0.1", "10.0.0.1", "172.31.255.255", "192.168.1.1", "169.254.169.254",
		"0.1.2.3", "100.100.100.100", "192.0.0.8", "192.0.2.1", "198.18.0.1",
		"198.51.100.7", "203.0.113.9", "224.0.0.1", "240.0.0.1", "255.255.255.255",
		"::", "::1", "fe80::1", "fc00::1", "fd12:3456::1", "ff02::1", "2001:db8::1",
		"64:ff9b::a00:1", "100::1", "::ffff:127.0.0.1", "::ffff:192.168.0.1",
	}
	for _, raw := range private {
		if !IsPrivateOrReserved(netip.MustParseAddr(raw)) {
			t.Fatalf("expected %s to be private or reserved", raw)
		}
	}

	public := []string{"8.8.8.8", "1.1.1.1", "93.184.216.34", "2606:4700:4700::1111", "::ffff:8.8.4.4"}
	for _, raw := range public {
		if IsPrivateOrReserved(netip.MustParseAddr(raw)) {
			t.Fatalf("expected %s to be public", raw)
		}
	}

	if !IsPrivateOrReserved(netip.Addr{}) {
		t.Fatalf("expected zero address to be treated as reserved")
	}
}

func TestDialGuard(t *testing.T) {
	if err := DialGuard("tcp4", "10.0.0.5:443", nil); !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("expected private address refusal, got %v", err)
	}
	if err := DialGuard("tcp6", "[::ffff:127.0.0.1]:443", nil); !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("expected mapped loopback refusal, got %v", err)
	}
	if err := DialGuard("tcp4", "93.184.216.34:443", nil); err != nil {
		t.Fatalf("expected public address to be allowed, got %v", err)
	}
	if err := DialGuard("tcp", "not-an-address", nil); err == nil {
		t.Fatalf("expected malformed dial address error")
	}

	guard := NewDialGuard(netip.MustParsePrefix("127.0.0.0/8"))
	if err := guard("tcp4", "127.0.0.1:8443", nil); err != nil {
		t.Fatalf("expected allowed prefix to pass, got %v", err)
	}
	if err := guard("tcp4", "192.168.0.1:443", nil); !errors.Is(err, ErrPrivateAddress) {
		t.Fatalf("expected non-allowed private address refusal, got %v", err)
	}
}
