package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/vitalvas/hdverifier/pkg/client"
	"github.com/vitalvas/hdverifier/pkg/dictionary"
	"github.com/vitalvas/hdverifier/pkg/log"
	"github.com/vitalvas/hdverifier/pkg/packet"
)

const (
	// DefaultPushSentinel is the credential that asks the server for an
	// out-of-band push instead of checking a typed code. It is a convention
	// of the deployed server, not part of RADIUS.
	DefaultPushSentinel = "p"

	// DefaultRetries is the number of retries after the first attempt.
	DefaultRetries = 1
)

const (
	modeOTP  = "otp"
	modePush = "push"
)

// Config holds the immutable settings of a Verifier.
type Config struct {
	// Server is host or host:port of the RADIUS server.
	Server string
	// Secret is the shared secret. It is never logged.
	Secret []byte
	// Timeout bounds the wait for each attempt.
	Timeout time.Duration
	// Retries is the number of attempts after the first one.
	Retries int
	// PushSentinel replaces the credential in VerifyPush. Empty means DefaultPushSentinel.
	PushSentinel string
	// NormalizeUsername applies Unicode NFC to usernames before sending.
	NormalizeUsername bool
}

// Transport delivers encoded requests and collects the matching reply.
type Transport interface {
	Exchange(ctx context.Context, next client.AttemptFunc) (client.Reply, error)
}

// Recorder receives per-verification measurements.
type Recorder interface {
	RecordVerification(mode, status string, duration time.Duration)
	// RecordExchange is called once per verification that reached the
	// transport, whether or not it succeeded.
	RecordExchange(stats client.Statistics)
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(v *Verifier) {
		v.recorder = r
	}
}

// WithTransport replaces the UDP transport built from Config.
func WithTransport(t Transport) Option {
	return func(v *Verifier) {
		v.transport = t
	}
}

// WithDictionary replaces the built-in attribute dictionary.
func WithDictionary(d *dictionary.Dictionary) Option {
	return func(v *Verifier) {
		v.dict = d
	}
}

// WithIdentifierPool shares an identifier pool between verifiers talking to
// the same server.
func WithIdentifierPool(p *packet.IdentifierPool) Option {
	return func(v *Verifier) {
		v.ids = p
	}
}

// Verifier checks user credentials against a RADIUS server.
// It is safe for concurrent use; each call uses its own socket and identifier.
type Verifier struct {
	server       string
	secret       []byte
	pushSentinel string
	normalize    bool

	dict      *dictionary.Dictionary
	ids       *packet.IdentifierPool
	transport Transport
	recorder  Recorder
	logger    log.Logger
}

// New creates a Verifier. Returns an error wrapping ErrConfiguration when
// the server, secret or timeout is missing or invalid.
func New(cfg Config, opts ...Option) (*Verifier, error) {
	if strings.TrimSpace(cfg.Server) == "" {
		return nil, fmt.Errorf("%w: server is required", ErrConfiguration)
	}

	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("%w: secret is required", ErrConfiguration)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %s", ErrConfiguration, cfg.Timeout)
	}

	if cfg.Retries < 0 {
		return nil, fmt.Errorf("%w: retries cannot be negative, got %d", ErrConfiguration, cfg.Retries)
	}

	v := &Verifier{
		server:       client.WithDefaultPort(cfg.Server),
		secret:       append([]byte(nil), cfg.Secret...),
		pushSentinel: cfg.PushSentinel,
		normalize:    cfg.NormalizeUsername,
	}

	if v.pushSentinel == "" {
		v.pushSentinel = DefaultPushSentinel
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.logger == nil {
		v.logger = log.NewDefaultLogger()
	}

	if v.dict == nil {
		v.dict = dictionary.Default()
	}

	if v.ids == nil {
		v.ids = packet.NewIdentifierPool()
	}

	if v.transport == nil {
		udp, err := client.NewUDP(client.UDPConfig{
			Addr:       v.server,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.Retries,
		}, v.logger)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		v.transport = udp
	}

	return v, nil
}

// Server returns the server address including the port.
func (v *Verifier) Server() string {
	return v.server
}

// Verify checks a username and one-time password.
// A blank username or credential yields StatusInvalidInput without any
// network activity.
func (v *Verifier) Verify(ctx context.Context, username, credential string) Result {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(credential) == "" {
		return v.finish(modeOTP, time.Now(), Result{
			Status:  StatusInvalidInput,
			Err:     ErrMissingFields,
			message: "Please enter all required fields",
		}, nil)
	}

	return v.verify(ctx, modeOTP, username, credential)
}

// VerifyPush asks the server to confirm the user out of band by sending the
// configured push sentinel as the credential.
func (v *Verifier) VerifyPush(ctx context.Context, username string) Result {
	if strings.TrimSpace(username) == "" {
		return v.finish(modePush, time.Now(), Result{
			Status:  StatusInvalidInput,
			Err:     ErrMissingFields,
			message: "Please enter the username",
		}, nil)
	}

	return v.verify(ctx, modePush, username, v.pushSentinel)
}

func (v *Verifier) verify(ctx context.Context, mode, username, credential string) Result {
	start := time.Now()
	requestID := uuid.NewString()
	logger := v.logger.WithField("request_id", requestID)

	if v.normalize {
		username = norm.NFC.String(username)
	}

	logger.Debugf("verifying user %q via %s (%s)", username, v.server, mode)

	var current *packet.Packet

	release := func() {
		if current != nil {
			v.ids.Release(current.Identifier)
			current = nil
		}
	}
	defer release()

	next := func(n int) (*client.Attempt, error) {
		// the previous attempt timed out; its identifier is no longer awaited
		release()

		id, err := v.ids.Acquire()
		if err != nil {
			return nil, err
		}

		req, err := packet.NewAccessRequest(id, username, credential, v.secret, v.dict)
		if err != nil {
			v.ids.Release(id)
			return nil, err
		}

		data, err := req.Encode()
		if err != nil {
			v.ids.Release(id)
			return nil, err
		}

		current = req

		logger.Debugf("attempt %d: ID %d, authenticator %s", n, id, req.Authenticator)

		return &client.Attempt{
			Payload: data,
			Match:   func(b []byte) bool { return packet.MatchesRequest(b, req) },
		}, nil
	}

	result := Result{RequestID: requestID}

	reply, err := v.transport.Exchange(ctx, next)
	if v.recorder != nil {
		v.recorder.RecordExchange(reply.Stats)
	}
	if reply.Stats.Discarded > 0 {
		logger.Debugf("discarded %d unmatched datagrams", reply.Stats.Discarded)
	}
	if err != nil {
		result.Status, result.Err = classifyError(err)
		return v.finish(mode, start, result, logger)
	}

	if current == nil {
		result.Status, result.Err = StatusProtocolError, errors.New("reply without a pending request")
		return v.finish(mode, start, result, logger)
	}

	resp, err := packet.DecodeResponse(reply.Data, current, v.secret)
	if err != nil {
		result.Status, result.Err = StatusProtocolError, err
		return v.finish(mode, start, result, logger)
	}

	result.Code = resp.Code

	switch resp.Code {
	case packet.CodeAccessAccept:
		result.Status = StatusVerified
	case packet.CodeAccessReject:
		result.Status = StatusRejected
	case packet.CodeAccessChallenge:
		result.Status = StatusChallenged
	default:
		result.Status = StatusProtocolError
		result.Err = fmt.Errorf("%w %d", ErrUnexpectedCode, resp.Code)
	}

	return v.finish(mode, start, result, logger)
}

// classifyError maps a failed exchange to a status. Encoding failures come
// from the attempt builder before anything is sent.
func classifyError(err error) (Status, error) {
	if errors.Is(err, packet.ErrEncoding) || errors.Is(err, dictionary.ErrUnknownAttribute) {
		return StatusInvalidInput, err
	}
	return StatusTransportError, err
}

func (v *Verifier) finish(mode string, start time.Time, result Result, logger log.Logger) Result {
	if logger != nil {
		switch result.Status {
		case StatusProtocolError:
			logger.Warnf("verification failed: %v", result.Err)
		case StatusTransportError:
			logger.Errorf("verification failed: %v", result.Err)
		default:
			logger.Infof("verification finished: %s", result.Status)
		}
	}

	if v.recorder != nil {
		v.recorder.RecordVerification(mode, result.Status.String(), time.Since(start))
	}

	return result
}
