package keys

import (
	"net"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMAC(t *testing.T) {
	t.Parallel()

	k, err := ParseMAC("00:1b:21:3a:4f:5e")
	require.NoError(t, err)
	require.Equal(t, uint64(0x001b213a4f5e), k)
	require.Equal(t, "00:1b:21:3a:4f:5e", FormatMAC(k))

	_, err = MAC(net.HardwareAddr{1, 2, 3})
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = ParseMAC("not-a-mac")
	require.Error(t, err)
}

func TestIPv4(t *testing.T) {
	t.Parallel()

	k, err := IPv4(netip.MustParseAddr("10.1.2.3"))
	require.NoError(t, err)
	require.Equal(t, uint64(0x0a010203), k)
	require.Equal(t, "10.1.2.3", FormatIPv4(k))

	k, err = IPv4(netip.MustParseAddr("::ffff:192.168.0.1"))
	require.NoError(t, err)
	require.Equal(t, uint64(0xc0a80001), k)

	_, err = IPv4(netip.MustParseAddr("2001:db8::1"))
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestIPv4Prefix(t *testing.T) {
	t.Parallel()

	k, plen, err := IPv4Prefix(netip.MustParsePrefix("10.1.2.3/16"))
	require.NoError(t, err)
	require.Equal(t, uint64(0x0a010000), k)
	require.Equal(t, 16, plen)

	_, _, err = IPv4Prefix(netip.MustParsePrefix("0.0.0.0/0"))
	require.ErrorIs(t, err, ErrUnsupported)
	_, _, err = IPv4Prefix(netip.Prefix{})
	require.ErrorIs(t, err, ErrUnsupported)

	p, err := PrefixFromMask(0x0a010000, 0xffff0000)
	require.NoError(t, err)
	require.Equal(t, netip.MustParsePrefix("10.1.0.0/16"), p)

	_, err = PrefixFromMask(0x0a010000, 0xff00ff00)
	require.ErrorIs(t, err, ErrUnsupported)
}
