package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/hdverifier/pkg/config"
	"github.com/vitalvas/hdverifier/pkg/log"
	"github.com/vitalvas/hdverifier/pkg/packet"
	"github.com/vitalvas/hdverifier/pkg/verifier"
)

type call struct {
	push       bool
	username   string
	credential string
}

type fakeChecker struct {
	mu    sync.Mutex
	calls []call
}

func (f *fakeChecker) Verify(_ context.Context, username, credential string) verifier.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{username: username, credential: credential})

	if username == "" || credential == "" {
		return verifier.Result{Status: verifier.StatusInvalidInput}
	}
	return verifier.Result{Status: verifier.StatusVerified}
}

func (f *fakeChecker) VerifyPush(_ context.Context, username string) verifier.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{push: true, username: username})
	return verifier.Result{Status: verifier.StatusRejected}
}

func TestRunConsole(t *testing.T) {
	checker := &fakeChecker{}
	in := strings.NewReader("verify alice 123456\n\npush bob\nbogus\nverify\nquit\nverify never 1\n")
	var out bytes.Buffer

	err := runConsole(context.Background(), checker, in, &out, log.NewNopLogger())
	require.NoError(t, err)

	assert.Equal(t, []call{
		{username: "alice", credential: "123456"},
		{push: true, username: "bob"},
		{},
	}, checker.calls)

	output := out.String()
	assert.Contains(t, output, "User ID Verified")
	assert.Contains(t, output, "User ID Verification Failed")
	assert.Contains(t, output, `unknown command "bogus"`)
	assert.Contains(t, output, "verify <user> <otp>")
}

func TestRunConsoleUsage(t *testing.T) {
	checker := &fakeChecker{}
	in := strings.NewReader("verify a b c\npush a b\n")
	var out bytes.Buffer

	require.NoError(t, runConsole(context.Background(), checker, in, &out, log.NewNopLogger()))

	assert.Empty(t, checker.calls)
	assert.Contains(t, out.String(), "usage: verify <user> <otp>")
	assert.Contains(t, out.String(), "usage: push <user>")
}

func TestRunConsoleContextCancel(t *testing.T) {
	reader, writer := net.Pipe()
	defer writer.Close()
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- runConsole(ctx, &fakeChecker{}, reader, &bytes.Buffer{}, log.NewNopLogger())
	}()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("console did not stop on cancel")
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestRunConsoleReadError(t *testing.T) {
	err := runConsole(context.Background(), &fakeChecker{}, failingReader{}, &bytes.Buffer{}, log.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read console input")
}

func startAcceptServer(t *testing.T, secret []byte) string {
	t.Helper()

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buffer := make([]byte, packet.MaxPacketLength)
		for {
			n, from, err := conn.ReadFromUDP(buffer)
			if err != nil {
				return
			}

			req, err := packet.Decode(append([]byte(nil), buffer[:n]...))
			if err != nil {
				continue
			}

			code := packet.CodeAccessReject
			if password, err := req.UserPassword(secret); err == nil && password == "123456" {
				code = packet.CodeAccessAccept
			}

			reply, err := packet.NewResponse(req, code, secret)
			if err != nil {
				continue
			}
			_, _ = conn.WriteToUDP(reply, from)
		}
	}()

	return conn.LocalAddr().String()
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		username, otp, logLevel = "", "", ""
		configFile = config.DefaultPath
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVerifyCommand(t *testing.T) {
	addr := startAcceptServer(t, []byte("s3cret"))

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("radius:\n  server: "+addr+"\n  secret: s3cret\n  timeout: 2\n"), 0600))

	stdout, _, err := executeCommand(t, "--config", path, "verify", "--user", "alice", "--otp", "123456")
	require.NoError(t, err)
	assert.Equal(t, "User ID Verified\n", stdout)

	stdout, stderr, err := executeCommand(t, "--config", path, "verify", "--user", "alice", "--otp", "000000")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 2, exit.code)
	assert.Equal(t, "User ID Verification Failed\n", stdout)
	assert.NotContains(t, stderr, "s3cret")
}

func TestVerifyCommandMissingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("radius:\n  server: 127.0.0.1\n"), 0600))

	_, stderr, err := executeCommand(t, "--config", path, "verify", "--user", "alice", "--otp", "123456")

	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.ErrorIs(t, err, config.ErrMissingOption)
	assert.Contains(t, stderr, "is missing or incomplete")
	assert.Contains(t, stderr, "  secret:\n")
	assert.Contains(t, stderr, "  timeout:\n")
}
