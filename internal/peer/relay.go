package peer

import (
	"net"
	"net/netip"
	"strings"

	pion "github.com/pion/webrtc/v4"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/config"
)

// Carrier-grade NAT range, also used by Tailscale and Cloudflare WARP.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

var tunnelNameHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// transportPolicy picks relay-only ICE when it was asked for, or when a TURN
// server is configured and this host looks like it sits behind a VPN or CGNAT.
func transportPolicy(cfg *config.Client) pion.ICETransportPolicy {
	if cfg.ForceRelay {
		return pion.ICETransportPolicyRelay
	}
	if cfg.GetTURNServers() != nil && behindTunnel() {
		return pion.ICETransportPolicyRelay
	}
	return pion.ICETransportPolicyAll
}

// behindTunnel reports whether any active interface is a VPN tunnel or holds
// a CGNAT address. Direct peer connections rarely work from such hosts.
func behindTunnel() bool {
	interfaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if isTunnelName(iface.Name) {
			return true
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if prefix, err := netip.ParsePrefix(addr.String()); err == nil && inCGNAT(prefix.Addr()) {
				return true
			}
		}
	}
	return false
}

func isTunnelName(name string) bool {
	name = strings.ToLower(name)
	for _, hint := range tunnelNameHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	return false
}

func inCGNAT(addr netip.Addr) bool {
	return cgnat.Contains(addr.Unmap())
}
