// Package netclass classifies IPv4 source addresses.
package netclass

import "net/netip"

// IsInternal reports whether ip is inside one of the RFC1918 private ranges
// (10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16). Anything that is not a clean
// four-octet dotted decimal literal is treated as external, including octets
// with leading zeros and IPv4-mapped IPv6 forms.
func IsInternal(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	return err == nil && addr.Is4() && addr.IsPrivate()
}
