package wol_test

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelpaiva/loro/pkg/wol"
)

func TestWakeSendsMagicPacket(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	require.NoError(t, wol.Wake("aa:bb:cc:dd:ee:ff", pc.LocalAddr().String()))

	require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 256)
	n, _, err := pc.ReadFrom(buf)
	require.NoError(t, err)

	require.Equal(t, 102, n)
	packet := buf[:n]
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), packet[:6])

	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	for i := 0; i < 16; i++ {
		assert.Equal(t, mac, packet[6+i*6:12+i*6])
	}
}

func TestWakeRejectsBadMAC(t *testing.T) {
	assert.Error(t, wol.Wake("not-a-mac", "127.0.0.1:9"))
}

func TestWakeRejectsNon48BitMAC(t *testing.T) {
	// EUI-64 parses but is not a wake-on-LAN target.
	assert.Error(t, wol.Wake("aa:bb:cc:dd:ee:ff:00:11", "127.0.0.1:9"))
}
