// Package wol sends wake-on-LAN magic packets. It backs the "wake"
// computed rule response.
package wol

import (
	"fmt"
	"net"
)

// Wake broadcasts a magic packet for mac to addr (host:port; port 9 is
// conventional).
func Wake(mac, addr string) error {
	hw, err := net.ParseMAC(mac)
	if err != nil {
		return fmt.Errorf("parse mac %q: %w", mac, err)
	}
	if len(hw) != 6 {
		return fmt.Errorf("mac %q: need a 48-bit address", mac)
	}

	packet := make([]byte, 0, 102)
	for i := 0; i < 6; i++ {
		packet = append(packet, 0xFF)
	}
	for i := 0; i < 16; i++ {
		packet = append(packet, hw...)
	}

	conn, err := net.Dial("udp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if _, err := conn.Write(packet); err != nil {
		return fmt.Errorf("send magic packet: %w", err)
	}
	return nil
}
