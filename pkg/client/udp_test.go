package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/hdverifier/pkg/log"
)

// testServer is a UDP peer whose replies are decided by handle.
type testServer struct {
	conn *net.UDPConn

	mu       sync.Mutex
	received [][]byte
}

func newTestServer(t *testing.T, handle func(n int, data []byte) [][]byte) *testServer {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)

	s := &testServer{conn: conn}
	t.Cleanup(func() { conn.Close() })

	go func() {
		buffer := make([]byte, maxDatagramSize)
		for {
			n, from, err := conn.ReadFromUDP(buffer)
			if err != nil {
				return
			}

			data := append([]byte(nil), buffer[:n]...)

			s.mu.Lock()
			s.received = append(s.received, data)
			count := len(s.received)
			s.mu.Unlock()

			if handle == nil {
				continue
			}

			for _, reply := range handle(count, data) {
				if reply == nil {
					time.Sleep(30 * time.Millisecond)
					continue
				}
				_, _ = conn.WriteToUDP(reply, from)
			}
		}
	}()

	return s
}

func (s *testServer) addr() string {
	return s.conn.LocalAddr().String()
}

func (s *testServer) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

func newTestClient(t *testing.T, addr string, timeout time.Duration, retries int) *UDPClient {
	t.Helper()

	c, err := NewUDP(UDPConfig{Addr: addr, Timeout: timeout, MaxRetries: retries}, log.NewNopLogger())
	require.NoError(t, err)
	return c
}

func TestNewUDPValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  UDPConfig
	}{
		{"empty address", UDPConfig{Timeout: time.Second}},
		{"zero timeout", UDPConfig{Addr: "127.0.0.1"}},
		{"negative retries", UDPConfig{Addr: "127.0.0.1", Timeout: time.Second, MaxRetries: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewUDP(tt.cfg, nil)
			assert.Error(t, err)
		})
	}

	c, err := NewUDP(UDPConfig{Addr: "radius.example.com", Timeout: 2 * time.Second, MaxRetries: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, "radius.example.com:1812", c.addr)
	assert.Equal(t, 2*time.Second, c.timeout)
	assert.Equal(t, 1, c.maxRetries)
}

func TestWithDefaultPort(t *testing.T) {
	assert.Equal(t, "10.0.0.1:1812", WithDefaultPort("10.0.0.1"))
	assert.Equal(t, "10.0.0.1:1645", WithDefaultPort("10.0.0.1:1645"))
	assert.Equal(t, "[::1]:1812", WithDefaultPort("::1"))
	assert.Equal(t, "[::1]:1812", WithDefaultPort("[::1]:1812"))
	assert.Equal(t, "[::1]:1812", WithDefaultPort("[::1]"))
}

func TestExchangeReply(t *testing.T) {
	server := newTestServer(t, func(_ int, data []byte) [][]byte {
		return [][]byte{append([]byte("re:"), data...)}
	})
	c := newTestClient(t, server.addr(), time.Second, 1)

	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return &Attempt{Payload: []byte("ping")}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "re:ping", string(reply.Data))
	assert.Equal(t, 1, reply.Attempt)
	assert.Equal(t, Statistics{RequestsSent: 1, ResponsesReceived: 1}, reply.Stats)
}

func TestExchangeTimeout(t *testing.T) {
	server := newTestServer(t, nil)

	const (
		timeout = 150 * time.Millisecond
		retries = 2
	)
	c := newTestClient(t, server.addr(), timeout, retries)

	var attempts []int
	start := time.Now()
	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		attempts = append(attempts, n)
		return &Attempt{Payload: []byte{byte(n)}}, nil
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, []int{1, 2, 3}, attempts)

	budget := timeout * (retries + 1)
	assert.GreaterOrEqual(t, elapsed, budget)
	assert.Less(t, elapsed, budget+500*time.Millisecond)

	assert.Eventually(t, func() bool { return server.count() == retries+1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, Statistics{RequestsSent: retries + 1, Timeouts: retries + 1}, reply.Stats)
	assert.Nil(t, reply.Data)
}

func TestExchangeSecondAttempt(t *testing.T) {
	server := newTestServer(t, func(n int, data []byte) [][]byte {
		if n == 1 {
			return nil
		}
		return [][]byte{data}
	})
	c := newTestClient(t, server.addr(), 100*time.Millisecond, 1)

	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return &Attempt{Payload: []byte{byte(n)}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reply.Attempt)
	assert.Equal(t, Statistics{RequestsSent: 2, ResponsesReceived: 1, Timeouts: 1}, reply.Stats)
	assert.Equal(t, []byte{2}, reply.Data)
}

func TestExchangeDiscardsUnmatched(t *testing.T) {
	server := newTestServer(t, func(_ int, data []byte) [][]byte {
		return [][]byte{[]byte("stray"), nil, data}
	})
	c := newTestClient(t, server.addr(), time.Second, 0)

	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return &Attempt{
			Payload: []byte("want"),
			Match:   func(data []byte) bool { return string(data) == "want" },
		}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "want", string(reply.Data))
	assert.Equal(t, 1, reply.Stats.Discarded)
}

func TestExchangeStrayDoesNotResetDeadline(t *testing.T) {
	const timeout = 200 * time.Millisecond

	server := newTestServer(t, func(_ int, _ []byte) [][]byte {
		// keep sending unmatched datagrams for longer than the timeout
		replies := make([][]byte, 0, 20)
		for i := 0; i < 10; i++ {
			replies = append(replies, []byte("stray"), nil)
		}
		return replies
	})
	c := newTestClient(t, server.addr(), timeout, 0)

	start := time.Now()
	_, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return &Attempt{
			Payload: []byte("want"),
			Match:   func([]byte) bool { return false },
		}, nil
	})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, timeout+200*time.Millisecond)
}

func TestExchangeContextCanceled(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server.addr(), 5*time.Second, 0)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	reply, err := c.Exchange(ctx, func(n int) (*Attempt, error) {
		return &Attempt{Payload: []byte("x")}, nil
	})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, Statistics{RequestsSent: 1}, reply.Stats)
}

func TestExchangeCanceledBeforeSend(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server.addr(), time.Second, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply, err := c.Exchange(ctx, func(n int) (*Attempt, error) {
		return &Attempt{Payload: []byte("x")}, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, reply.Stats)

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, server.count())
}

func TestExchangeCanceledWhileDiscarding(t *testing.T) {
	server := newTestServer(t, func(_ int, _ []byte) [][]byte {
		// a steady flood of unmatched datagrams keeps resetting the read deadline
		replies := make([][]byte, 0, 2000)
		for i := 0; i < 2000; i++ {
			replies = append(replies, []byte("stray"))
		}
		return replies
	})

	for i := 0; i < 20; i++ {
		c := newTestClient(t, server.addr(), 5*time.Second, 0)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(time.Duration(i)*time.Millisecond, cancel)

		start := time.Now()
		reply, err := c.Exchange(ctx, func(n int) (*Attempt, error) {
			return &Attempt{
				Payload: []byte("want"),
				Match:   func([]byte) bool { return false },
			}, nil
		})
		cancel()

		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), time.Second)
		assert.Zero(t, reply.Stats.Errors)
	}
}

func TestExchangeAttemptError(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server.addr(), time.Second, 1)

	boom := errors.New("boom")
	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, reply.Stats.RequestsSent)
	assert.Equal(t, 0, server.count())
}

func TestExchangeResolveError(t *testing.T) {
	c := newTestClient(t, "host.invalid:1812", time.Second, 0)

	reply, err := c.Exchange(context.Background(), func(n int) (*Attempt, error) {
		return &Attempt{Payload: []byte("x")}, nil
	})

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "resolve", netErr.Op)
	assert.Contains(t, netErr.Error(), "host.invalid:1812")
	assert.Equal(t, Statistics{Errors: 1}, reply.Stats)
}
