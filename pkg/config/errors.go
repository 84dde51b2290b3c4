package config

import (
	"fmt"
	"strings"
)

// Option names a configuration option within its section.
type Option struct {
	Section string
	Name    string
}

func (o Option) String() string {
	return o.Section + "." + o.Name
}

var (
	optionServer  = Option{Section: "radius", Name: "server"}
	optionSecret  = Option{Section: "radius", Name: "secret"}
	optionTimeout = Option{Section: "radius", Name: "timeout"}

	requiredOptions = []Option{optionServer, optionSecret, optionTimeout}
)

// MissingOptionsError lists every required option that is absent or unusable.
type MissingOptionsError struct {
	Path    string
	Missing []Option
}

func (e *MissingOptionsError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, opt := range e.Missing {
		names = append(names, opt.String())
	}

	file := e.Path
	if file == "" {
		file = DefaultPath
	}

	return fmt.Sprintf("configuration file %q is missing or incomplete: %s", file, strings.Join(names, ", "))
}

func (e *MissingOptionsError) Unwrap() error {
	return ErrMissingOption
}

// Help renders operator guidance naming the missing options and an example
// configuration.
func (e *MissingOptionsError) Help() string {
	file := e.Path
	if file == "" {
		file = DefaultPath
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Configuration file '%s' is missing or incomplete.\n\n", file)
	fmt.Fprintf(&b, "Please ensure that '%s' exists or pass its location with --config.\n\n", file)
	b.WriteString("The following configuration is missing or incorrect:\n\n")

	section := ""
	for _, opt := range e.Missing {
		if opt.Section != section {
			section = opt.Section
			fmt.Fprintf(&b, "%s:\n", section)
		}
		fmt.Fprintf(&b, "  %s:\n", opt.Name)
	}

	b.WriteString("\nExample configuration:\n")
	b.WriteString("radius:\n  server: example.com\n  secret: your_secret\n  timeout: 60\n")

	return b.String()
}
