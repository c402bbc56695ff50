// Command foundationctl is a thin demo entrypoint over pkg/hub: it
// initializes the process-singleton Hub from the environment, registers a
// couple of example commands, and dispatches argv through the resulting
// CLI. Grounded on the teacher's cmd/main.go flag/env-driven config
// resolution, adapted from "load one YAML file and run a daemon" to
// "initialize the hub and dispatch one CLI invocation."
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sswlabs/foundation/pkg/fvalue"
	"github.com/sswlabs/foundation/pkg/hub"
)

func main() {
	os.Exit(run())
}

// run carries the body of main out from under os.Exit so the deferred
// h.Shutdown() below always executes, flushing and closing every sink
// before the process exits (spec.md §5/§4.9).
func run() int {
	var envPrefix string
	flag.StringVar(&envPrefix, "env-prefix", "", "Environment variable prefix for configuration")
	flag.Parse()

	if envPrefix == "" {
		if fromEnv := os.Getenv("FOUNDATIONCTL_ENV_PREFIX"); fromEnv != "" {
			envPrefix = fromEnv
		} else {
			envPrefix = "FOUNDATIONCTL"
		}
	}

	h := hub.New()
	if err := h.Initialize(hub.InitOptions{EnvPrefix: envPrefix}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize hub: %v\n", err)
		return 1
	}
	defer func() {
		if err := h.Shutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to shut down hub: %v\n", err)
		}
	}()

	registerExampleCommands(h)

	cmd, err := h.BuildCLI("foundationctl", "0.1.0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build CLI: %v\n", err)
		return 1
	}
	cmd.SetArgs(os.Args[1:])

	runErr := cmd.Execute()
	return hub.ExitCode(runErr)
}

// registerExampleCommands wires a couple of sample operations so a fresh
// checkout has something to run besides foundation.diag.
func registerExampleCommands(h *hub.Hub) {
	logger, err := h.Logger("foundationctl")
	if err != nil {
		return
	}

	_ = h.RegisterCommand("ping", func(args []string) error {
		logger.Info("pong", fvalue.Pair("args", args))
		return nil
	}, "ops")

	_ = h.RegisterCommand("log.emit", func(args []string) error {
		if len(args) == 0 {
			return &hub.UsageError{Err: fmt.Errorf("log.emit requires a message argument")}
		}
		logger.Info(args[0])
		return nil
	}, "ops")
}
