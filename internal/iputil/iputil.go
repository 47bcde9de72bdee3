package iputil

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ParseCIDRs parses a list of IP addresses or CIDR notations. Single
// addresses become host networks (/32 or /128).
func ParseCIDRs(cidrStrings []string) ([]*net.IPNet, error) {
	if len(cidrStrings) == 0 {
		return nil, nil
	}

	cidrs := make([]*net.IPNet, 0, len(cidrStrings))
	for _, raw := range cidrStrings {
		entry := strings.TrimSpace(raw)
		if ip := net.ParseIP(entry); ip != nil {
			bits := 128
			if v4 := ip.To4(); v4 != nil {
				ip, bits = v4, 32
			}
			cidrs = append(cidrs, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid IP/CIDR format: %s (%w)", raw, err)
		}
		cidrs = append(cidrs, ipNet)
	}
	return cidrs, nil
}

// IsIPInAnyCIDR checks if ip falls within any of cidrs.
func IsIPInAnyCIDR(ip net.IP, cidrs []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, cidr := range cidrs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// RemoteIP returns the address of the direct peer of r. Forwarding headers
// are ignored; the admin endpoint is meant to be reached without proxies.
func RemoteIP(r *http.Request) net.IP {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return net.ParseIP(strings.TrimSpace(host))
}

// AllowList admits requests from a fixed set of networks.
type AllowList struct {
	nets []*net.IPNet
}

// NewAllowList parses entries with ParseCIDRs. An empty list admits nobody.
func NewAllowList(entries []string) (*AllowList, error) {
	nets, err := ParseCIDRs(entries)
	if err != nil {
		return nil, err
	}
	return &AllowList{nets: nets}, nil
}

// Allows reports whether the peer of r is in the list.
func (a *AllowList) Allows(r *http.Request) bool {
	return IsIPInAnyCIDR(RemoteIP(r), a.nets)
}
