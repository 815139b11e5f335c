package socket

import (
	"net"

	"golang.org/x/net/ipv4"
)

// setLowDelayTOS best-effort sets the IP_TOS socket option. Unprivileged
// processes on some platforms can't set this; failures are ignored, not
// treated as fatal.
func setLowDelayTOS(conn *net.UDPConn, tos int) {
	_ = ipv4.NewConn(conn).SetTOS(tos)
}
