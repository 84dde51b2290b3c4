package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/vitalvas/hdverifier/pkg/log"
)

// DefaultPort is the IANA-assigned RADIUS authentication port.
const DefaultPort = 1812

const maxDatagramSize = 4096

// UDPConfig holds UDP transport configuration
type UDPConfig struct {
	// Addr is host or host:port; DefaultPort is used when no port is given.
	Addr string
	// Timeout bounds the wait for a reply to each attempt.
	Timeout time.Duration
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
}

// Attempt is one encoded request and the predicate selecting its reply.
type Attempt struct {
	Payload []byte
	// Match reports whether a datagram from the server answers this attempt.
	// A nil Match accepts any datagram.
	Match func(data []byte) bool
}

// AttemptFunc encodes the request for attempt n (starting at 1).
// Each call must produce a fresh request so stale replies cannot match.
type AttemptFunc func(n int) (*Attempt, error)

// Statistics counts what happened on the wire during one Exchange.
type Statistics struct {
	RequestsSent      int
	ResponsesReceived int
	// Discarded counts datagrams from other sources or not matching the
	// pending attempt.
	Discarded int
	Timeouts  int
	// Errors counts socket failures. Context cancellation is not one.
	Errors int
}

// Reply is the outcome of an Exchange. Stats is filled on every return,
// Data and Attempt only when a datagram was accepted.
type Reply struct {
	Data []byte
	// Attempt is the attempt number the reply matched.
	Attempt int
	Stats   Statistics
}

// UDPClient exchanges datagrams with a single RADIUS server.
// Every Exchange uses its own ephemeral socket, so concurrent calls never
// share receive state.
type UDPClient struct {
	addr       string
	timeout    time.Duration
	maxRetries int
	logger     log.Logger
}

// NewUDP creates a new UDP RADIUS transport
func NewUDP(cfg UDPConfig, logger log.Logger) (*UDPClient, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries cannot be negative, got %d", cfg.MaxRetries)
	}

	if logger == nil {
		logger = log.NewDefaultLogger()
	}

	return &UDPClient{
		addr:       WithDefaultPort(cfg.Addr),
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// WithDefaultPort appends DefaultPort to addr when it carries no port.
func WithDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	host := strings.TrimSuffix(strings.TrimPrefix(addr, "["), "]")
	return net.JoinHostPort(host, strconv.Itoa(DefaultPort))
}

// Exchange sends up to MaxRetries+1 attempts, strictly one after another,
// and returns the first datagram from the server accepted by the current
// attempt's Match. Datagrams from other sources, or rejected by Match, are
// dropped without extending the wait. The socket is closed before return.
//
// Returns an error wrapping ErrTimeout when every attempt times out, and a
// *NetworkError on socket failures or context cancellation. The returned
// Reply carries the statistics of the call in both cases.
func (c *UDPClient) Exchange(ctx context.Context, next AttemptFunc) (Reply, error) {
	var reply Reply

	raddr, err := net.ResolveUDPAddr("udp", c.addr)
	if err != nil {
		reply.Stats.Errors++
		return reply, &NetworkError{Op: "resolve", Addr: c.addr, Err: err}
	}

	network := "udp4"
	if raddr.IP != nil && raddr.IP.To4() == nil {
		network = "udp6"
	}

	conn, err := net.ListenUDP(network, nil)
	if err != nil {
		reply.Stats.Errors++
		return reply, &NetworkError{Op: "listen", Addr: c.addr, Err: err}
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	buffer := make([]byte, maxDatagramSize)
	attempts := c.maxRetries + 1

	for n := 1; n <= attempts; n++ {
		attempt, err := next(n)
		if err != nil {
			return reply, err
		}

		if err := ctx.Err(); err != nil {
			return reply, &NetworkError{Op: "write", Addr: c.addr, Err: err}
		}

		if _, err := conn.WriteToUDP(attempt.Payload, raddr); err != nil {
			reply.Stats.Errors++
			return reply, &NetworkError{Op: "write", Addr: c.addr, Err: err}
		}
		reply.Stats.RequestsSent++

		c.logger.Debugf("sent attempt %d/%d (%d bytes) to %s", n, attempts, len(attempt.Payload), c.addr)

		data, err := c.await(ctx, conn, raddr, attempt, buffer, time.Now().Add(c.timeout), &reply.Stats)
		if err != nil {
			if errors.Is(err, errAttemptTimeout) {
				reply.Stats.Timeouts++
				c.logger.Debugf("attempt %d/%d to %s timed out after %s", n, attempts, c.addr, c.timeout)
				continue
			}
			if ctx.Err() == nil {
				reply.Stats.Errors++
			}
			return reply, err
		}

		reply.Stats.ResponsesReceived++
		reply.Data = data
		reply.Attempt = n

		return reply, nil
	}

	return reply, fmt.Errorf("%w: %s after %d attempts of %s", ErrTimeout, c.addr, attempts, c.timeout)
}

var errAttemptTimeout = errors.New("attempt timeout")

func (c *UDPClient) await(ctx context.Context, conn *net.UDPConn, raddr *net.UDPAddr, attempt *Attempt, buffer []byte, deadline time.Time, stats *Statistics) ([]byte, error) {
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, &NetworkError{Op: "read", Addr: c.addr, Err: err}
		}

		// checked after the deadline is set: a cancellation landing before
		// SetReadDeadline has its immediate deadline overwritten
		if err := ctx.Err(); err != nil {
			return nil, &NetworkError{Op: "read", Addr: c.addr, Err: err}
		}

		n, from, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, &NetworkError{Op: "read", Addr: c.addr, Err: ctxErr}
			}

			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, errAttemptTimeout
			}

			return nil, &NetworkError{Op: "read", Addr: c.addr, Err: err}
		}

		if !from.IP.Equal(raddr.IP) || from.Port != raddr.Port {
			stats.Discarded++
			c.logger.Debugf("discarded %d bytes from unexpected source %s", n, from)
			continue
		}

		data := make([]byte, n)
		copy(data, buffer[:n])

		if attempt.Match != nil && !attempt.Match(data) {
			stats.Discarded++
			c.logger.Debugf("discarded %d bytes from %s not matching the pending request", n, from)
			continue
		}

		return data, nil
	}
}
