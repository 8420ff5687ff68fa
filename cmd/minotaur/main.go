// Command minotaur runs the scheduling daemon: it builds the layered
// settings store, wires the engine, and executes the read/process tick
// until a stop signal arrives.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/minotaur-io/minotaur/config"
	"github.com/minotaur-io/minotaur/core"
	"github.com/minotaur-io/minotaur/logger"
	"github.com/minotaur-io/minotaur/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "minotaur: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("minotaur", pflag.ContinueOnError)
	settingsFlags := flags.StringArrayP("settings", "s", nil,
		"override a setting as key=value (repeatable)")
	showVersion := flags.BoolP("version", "v", false,
		"print the version and exit")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Println(version.Short())
		return nil
	}

	overrides, err := parseOverrides(*settingsFlags)
	if err != nil {
		return err
	}

	loader := config.NewLoader()
	store, err := loader.BuildSettings(overrides)
	if err != nil {
		return err
	}

	svc := config.ServiceConfig{}
	svc.ApplyDefaults()
	svc.FromSettings(store)
	if err := svc.Validate(); err != nil {
		return err
	}

	log := logger.New(&svc.Logging, svc.Name)
	logger.SetGlobalLogger(log)

	m, err := core.New(store, log)
	if err != nil {
		return err
	}
	if _, err := m.RegisterDefaultJob(); err != nil {
		return err
	}

	return m.Start(context.Background())
}

// parseOverrides turns repeated -s key=value flags into the cmd-priority
// override map. A pair without "=" is an error.
func parseOverrides(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed setting %q, want key=value", pair)
		}
		overrides[key] = value
	}
	return overrides, nil
}
