package util

import (
	"fmt"
	"net"
	"strings"
)

// ParseIPWithMask parses an IP address with CIDR notation.
// Returns the IP, mask length, and any error.
func ParseIPWithMask(cidr string) (net.IP, int, error) {
	ip, ipNet, err := net.ParseCIDR(cidr)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid CIDR notation: %s", cidr)
	}
	ones, _ := ipNet.Mask.Size()
	return ip, ones, nil
}

// IsValidIPv4 checks if a string is a valid IPv4 address.
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil
}

// IsValidIPv4CIDR checks if a string is a valid IPv4 CIDR notation.
func IsValidIPv4CIDR(cidr string) bool {
	_, _, err := net.ParseCIDR(cidr)
	if err != nil {
		return false
	}
	parts := strings.Split(cidr, "/")
	ip := net.ParseIP(parts[0])
	return ip != nil && ip.To4() != nil
}

// ValidateCIDR checks that cidr carries an explicit prefix length and
// parses as a valid IPv4 CIDR. The spec only requires the presence of "/";
// full parse validation is stricter and catches the same class of mistakes.
func ValidateCIDR(cidr string) error {
	if !strings.Contains(cidr, "/") {
		return fmt.Errorf("CIDR %q missing prefix length", cidr)
	}
	if !IsValidIPv4CIDR(cidr) {
		return fmt.Errorf("CIDR %q is not a valid IPv4 CIDR", cidr)
	}
	return nil
}

// IsValidMACAddress checks if a string is a valid MAC address.
func IsValidMACAddress(mac string) bool {
	_, err := net.ParseMAC(mac)
	return err == nil
}

// NormalizeMACAddress normalizes a MAC address to lowercase with colons.
func NormalizeMACAddress(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return "", err
	}
	return hw.String(), nil
}

// ValidateMAC requires exactly six colon-separated octets. net.ParseMAC
// alone is too permissive here: it also accepts eight-octet EUI-64 and
// hyphen-separated forms, both of which the desired-state wire format
// rejects.
func ValidateMAC(mac string) error {
	parts := strings.Split(mac, ":")
	if len(parts) != 6 {
		return fmt.Errorf("MAC %q must have exactly six colon-separated octets, got %d", mac, len(parts))
	}
	if !IsValidMACAddress(mac) {
		return fmt.Errorf("MAC %q is not a valid MAC address", mac)
	}
	return nil
}

// ValidateVLANID checks if a VLAN ID is valid (1-4094).
func ValidateVLANID(vlanID int) error {
	if vlanID < 1 || vlanID > 4094 {
		return fmt.Errorf("VLAN ID must be between 1 and 4094, got %d", vlanID)
	}
	return nil
}

// ValidateVNI checks if a VNI is valid (1-16777215, the 24-bit VXLAN tag space).
func ValidateVNI(vni int) error {
	if vni < 1 || vni > 16777215 {
		return fmt.Errorf("VNI must be between 1 and 16777215, got %d", vni)
	}
	return nil
}
