package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vitalvas/hdverifier/pkg/config"
	"github.com/vitalvas/hdverifier/pkg/log"
	"github.com/vitalvas/hdverifier/pkg/metrics"
	"github.com/vitalvas/hdverifier/pkg/verifier"
)

var (
	version = "dev"
	commit  = "unknown"
)

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err == nil {
		return
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", exit.err)
		}
		os.Exit(exit.code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

var rootCmd = &cobra.Command{
	Use:   "hd-verifier",
	Short: "Helpdesk user ID verification against RADIUS",
	Long: `hd-verifier checks a caller's identity for the helpdesk by sending
their username and one-time password, or a push request, to the
organisation's RADIUS server.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a username and one-time password",
	RunE:  runVerify,
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Verify a user with an out-of-band push",
	RunE:  runPush,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive verification prompt",
	Long: `Reads commands from standard input, one per line:

  verify <user> <otp>
  push <user>
  quit

Serves Prometheus metrics on metrics.listen while running.`,
	RunE: runConsoleCmd,
}

var (
	configFile string
	logLevel   string
	username   string
	otp        string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultPath,
		"Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "",
		"Log level (debug, info, warn, error), overrides the configuration")

	verifyCmd.Flags().StringVarP(&username, "user", "u", "", "Username to verify")
	verifyCmd.Flags().StringVarP(&otp, "otp", "o", "", "One-time password")

	pushCmd.Flags().StringVarP(&username, "user", "u", "", "Username to verify")

	rootCmd.AddCommand(verifyCmd, pushCmd, consoleCmd)
}

// app is what every command needs once the configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *log.DefaultLogger
	registry *prometheus.Registry
	verifier *verifier.Verifier
}

func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		var missing *config.MissingOptionsError
		if errors.As(err, &missing) {
			fmt.Fprint(cmd.ErrOrStderr(), missing.Help())
		}
		return nil, &exitError{code: 1, err: err}
	}

	logger := cfg.NewLogger()
	logger.SetOutput(cmd.ErrOrStderr())
	if logLevel != "" {
		logger.SetLevel(logLevel)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		return nil, &exitError{code: 1, err: err}
	}

	v, err := verifier.New(cfg.VerifierConfig(), verifier.WithLogger(logger), verifier.WithRecorder(m))
	if err != nil {
		return nil, &exitError{code: 1, err: err}
	}

	logger.Debugf("using RADIUS server %s", v.Server())

	return &app{cfg: cfg, logger: logger, registry: registry, verifier: v}, nil
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	return report(cmd, a.verifier.Verify(cmd.Context(), username, otp))
}

func runPush(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}

	return report(cmd, a.verifier.VerifyPush(cmd.Context(), username))
}

// report prints the operator message and turns anything but a verified
// user into a non-zero exit status.
func report(cmd *cobra.Command, result verifier.Result) error {
	fmt.Fprintln(cmd.OutOrStdout(), result.Message())

	if result.OK() {
		return nil
	}
	return &exitError{code: 2}
}
