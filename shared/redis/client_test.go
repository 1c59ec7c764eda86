package redis

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/spendwise/shared/logger"
)

func TestConfig_Addr(t *testing.T) {
	assert.Equal(t, "localhost:6379", (&Config{Host: "localhost", Port: 6379}).addr())
	assert.Equal(t, "[::1]:6380", (&Config{Host: "::1", Port: 6380}).addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	// grab a free port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	_, err = NewClient(&Config{
		Host:        "127.0.0.1",
		Port:        port,
		DialTimeout: 500 * time.Millisecond,
	}, logger.NewNop())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Redis")
}
