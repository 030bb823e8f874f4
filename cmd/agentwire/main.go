// agentwire is the driver CLI: it manages the provider registry and runs
// chats against spawned agent subprocesses.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentwire/agentwire/config"
	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/protocol"
	"github.com/agentwire/agentwire/registry"
	"github.com/agentwire/agentwire/session"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "agentwire",
		Short:         "Drive agent subprocesses over a framed stdio protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var logLevel string
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			logging.Configure(os.Stderr, logging.ParseLevel(logLevel))
		}
		return nil
	}

	root.AddCommand(newProvidersCmd(), newChatCmd(), newSchemaCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

// env bundles the stores every subcommand needs.
type env struct {
	cfg      *config.Config
	registry *registry.Registry
	store    *session.Store
}

func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	reg, err := registry.Open(cfg.RegistryPath)
	if err != nil {
		return nil, err
	}
	store, err := session.NewStore(cfg.SessionsDir)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, registry: reg, store: store}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the CLI and protocol versions",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("agentwire %s (protocol v%d)\n", version, protocol.Version)
		},
	}
}
