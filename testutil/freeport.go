package testutil

import (
	"fmt"
	"net"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

const LocalIP = "127.0.0.1"

// GetFreePort returns a TCP port on 127.0.0.1 that is free to listen on.
// The port is parked in TIME_WAIT on Linux so the kernel does not hand it out
// again for a while.
func GetFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", LocalIP+":0")
	require.NoError(t, err)
	defer l.Close()
	port := l.Addr().(*net.TCPAddr).Port

	if runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		tcpAddr, err := net.ResolveTCPAddr("tcp", fmt.Sprintf("%s:%d", LocalIP, port))
		require.NoError(t, err, "error resolving address")
		r, err := net.DialTCP("tcp", nil, tcpAddr)
		require.NoError(t, err, "failed to dial tcp")
		c, err := l.Accept()
		require.NoError(t, err, "failed to accept connection")
		// close from the server side
		require.NoError(t, c.Close())
		defer func() {
			require.NoError(t, r.Close())
		}()
	}

	return port
}
