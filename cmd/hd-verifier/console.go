package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitalvas/hdverifier/pkg/log"
	"github.com/vitalvas/hdverifier/pkg/metrics"
	"github.com/vitalvas/hdverifier/pkg/verifier"
)

const consolePrompt = "> "

// checker is the part of the verifier the console drives.
type checker interface {
	Verify(ctx context.Context, username, credential string) verifier.Result
	VerifyPush(ctx context.Context, username string) verifier.Result
}

func runConsoleCmd(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if listen := a.cfg.Metrics.Listen; listen != "" {
		srv := &http.Server{
			Addr:              listen,
			Handler:           metricsMux(a),
			ReadHeaderTimeout: 5 * time.Second,
		}

		go func() {
			a.logger.Infof("serving metrics on %s", listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Errorf("metrics server failed: %v", err)
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return runConsole(ctx, a.verifier, cmd.InOrStdin(), cmd.OutOrStdout(), a.logger)
}

func metricsMux(a *app) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(a.registry))
	return mux
}

// runConsole reads commands from in until EOF, quit or ctx is done.
// Results go to out; malformed commands print usage and keep the loop going.
func runConsole(ctx context.Context, c checker, in io.Reader, out io.Writer, logger log.Logger) error {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	fmt.Fprint(out, consolePrompt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read console input: %w", err)
					}
				default:
				}
				fmt.Fprintln(out)
				return nil
			}

			if !handleLine(ctx, c, line, out, logger) {
				return nil
			}
			fmt.Fprint(out, consolePrompt)
		}
	}
}

// handleLine runs one console command. It returns false when the console should exit.
func handleLine(ctx context.Context, c checker, line string, out io.Writer, logger log.Logger) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false

	case "help", "?":
		printConsoleHelp(out)

	case "verify", "v":
		var user, credential string
		if len(fields) > 1 {
			user = fields[1]
		}
		if len(fields) > 2 {
			credential = fields[2]
		}
		if len(fields) > 3 {
			fmt.Fprintln(out, "usage: verify <user> <otp>")
			return true
		}

		result := c.Verify(ctx, user, credential)
		logger.Debugf("console verify finished with request %s", result.RequestID)
		fmt.Fprintln(out, result.Message())

	case "push", "p":
		var user string
		if len(fields) > 1 {
			user = fields[1]
		}
		if len(fields) > 2 {
			fmt.Fprintln(out, "usage: push <user>")
			return true
		}

		result := c.VerifyPush(ctx, user)
		logger.Debugf("console push finished with request %s", result.RequestID)
		fmt.Fprintln(out, result.Message())

	default:
		fmt.Fprintf(out, "unknown command %q\n", fields[0])
		printConsoleHelp(out)
	}

	return true
}

func printConsoleHelp(out io.Writer) {
	fmt.Fprintln(out, "commands:")
	fmt.Fprintln(out, "  verify <user> <otp>   check a one-time password")
	fmt.Fprintln(out, "  push <user>           send a push request")
	fmt.Fprintln(out, "  quit                  leave the console")
}
