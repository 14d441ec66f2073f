package vpn

import (
	"strings"

	"github.com/xabinapal/unifi-vpn/internal/unifi"
	"github.com/xabinapal/unifi-vpn/internal/utils"
)

// Reason explains why a network profile was classified as a VPN client.
type Reason string

const (
	// ReasonNone means the profile is not a VPN client.
	ReasonNone Reason = ""
	// ReasonPurpose means the controller tags the profile as a VPN client.
	ReasonPurpose Reason = "purpose"
	// ReasonProvider means the name mentions a known VPN provider or protocol.
	ReasonProvider Reason = "provider-name"
	// ReasonVPNName means the name contains "vpn" and the profile is not a WAN uplink.
	ReasonVPNName Reason = "vpn-name"
)

// KnownProviders are name fragments that mark a profile as a VPN client.
var KnownProviders = []string{
	"surfshark",
	"nordvpn",
	"expressvpn",
	"openvpn",
	"wireguard",
}

// IsVPN reports whether r classifies a profile as a VPN client.
func (r Reason) IsVPN() bool { return r != ReasonNone }

// Classify applies the VPN client rules in order and returns the first that
// matches. WAN uplinks are only excluded from the generic "vpn" name rule.
func Classify(n unifi.Network) Reason {
	name := strings.ToLower(n.Name())
	purpose := strings.ToLower(n.Purpose())

	switch {
	case purpose == unifi.PurposeVPNClient:
		return ReasonPurpose
	case utils.ContainsAny(name, KnownProviders...):
		return ReasonProvider
	case strings.Contains(name, "vpn") && purpose != unifi.PurposeWAN:
		return ReasonVPNName
	default:
		return ReasonNone
	}
}
