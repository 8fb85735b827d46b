package ws

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"go.uber.org/zap"
)

// Listen binds a TCP listener on host starting at port. While the port is
// already in use it moves to the next one; any other error is returned.
// The port actually bound is returned alongside the listener.
func Listen(host string, port int, logger *zap.Logger) (net.Listener, int, error) {
	for {
		addr := net.JoinHostPort(host, strconv.Itoa(port))
		ln, err := net.Listen("tcp", addr)
		if err == nil {
			if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
				port = tcp.Port
			}
			return ln, port, nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return nil, 0, fmt.Errorf("listen on %s: %w", addr, err)
		}
		logger.Warn("Port already in use", zap.Int("port", port))
		port++
	}
}
