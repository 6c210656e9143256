package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// CanonicalizeAddr normalizes a host:port into the fixed-point form used for
// both ring membership and dialing. localhost is rewritten to 127.0.0.1 so a
// node never enters the ring under two identities depending on resolver
// behavior.
func CanonicalizeAddr(hostport string) (string, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", hostport, err)
	}
	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil || p == 0 {
		return "", fmt.Errorf("invalid port %q in address %q", port, hostport)
	}
	host = strings.ToLower(host)
	if host == "localhost" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port), nil
}
