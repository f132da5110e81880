package peer

import (
	"net/netip"
	"testing"

	pion "github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"

	"github.com/AskiaMohamed22/assma-signaling-server/internal/config"
)

func TestIsTunnelName(t *testing.T) {
	req := require.New(t)

	for _, name := range []string{"tun0", "utun3", "wg0", "CloudflareWARP", "ppp0", "tap1"} {
		req.True(isTunnelName(name), name)
	}
	for _, name := range []string{"eth0", "en0", "wlan0", "lo"} {
		req.False(isTunnelName(name), name)
	}
}

func TestInCGNAT(t *testing.T) {
	req := require.New(t)

	req.True(inCGNAT(netip.MustParseAddr("100.64.0.1")))
	req.True(inCGNAT(netip.MustParseAddr("100.127.255.254")))
	req.True(inCGNAT(netip.MustParseAddr("::ffff:100.100.1.1")))
	req.False(inCGNAT(netip.MustParseAddr("100.128.0.1")))
	req.False(inCGNAT(netip.MustParseAddr("192.168.1.10")))
}

func TestTransportPolicy(t *testing.T) {
	// Forced relay wins regardless of the network
	require.Equal(t, pion.ICETransportPolicyRelay, transportPolicy(&config.Client{ForceRelay: true, TURNServer: "turn:x"}))

	// Without TURN there is nothing to relay through
	require.Equal(t, pion.ICETransportPolicyAll, transportPolicy(&config.Client{}))
}
