package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrInvalidAddress is returned by ParseAddress when the input cannot be
// resolved to a single socket address.
var ErrInvalidAddress = fmt.Errorf("invalid address")

// ParseAddress parses the client's "Server ip:port: " prompt input (spec
// §4.4 step 1, §6). Port defaults to DefaultPort when omitted. Resolution
// must yield exactly one address; anything else is ErrInvalidAddress.
func ParseAddress(input string) (*net.TCPAddr, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrInvalidAddress
	}

	host, portStr, err := net.SplitHostPort(input)
	if err != nil {
		// No ":port" suffix -- treat the whole input as the host and use
		// the default port.
		host = input
		portStr = strconv.Itoa(DefaultPort)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, ErrInvalidAddress
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return nil, ErrInvalidAddress
	}

	return &net.TCPAddr{IP: ips[0], Port: port}, nil
}
