package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentwire/agentwire/registry"
)

func newProvidersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage the agent provider registry",
	}
	cmd.AddCommand(
		newProvidersListCmd(),
		newProvidersRegisterCmd(),
		newProvidersDescribeCmd(),
		newProvidersRemoveCmd(),
	)
	return cmd
}

func newProvidersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			providers := e.registry.List()
			if len(providers) == 0 {
				fmt.Println("No providers registered.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCOMMAND\tDESCRIPTION")
			for _, p := range providers {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Command, p.Description)
			}
			return w.Flush()
		},
	}
}

func newProvidersRegisterCmd() *cobra.Command {
	var (
		command     string
		args        []string
		cwd         string
		envVars     []string
		description string
	)
	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register or replace a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			p := registry.Provider{
				ID:          cmdArgs[0],
				Description: description,
				Command:     command,
				Args:        args,
				Cwd:         cwd,
			}
			if len(envVars) > 0 {
				p.Env = map[string]string{}
				for _, kv := range envVars {
					// A bare name means "pass the parent's value through".
					name, value, _ := strings.Cut(kv, "=")
					p.Env[name] = value
				}
			}
			if err := e.registry.Register(p); err != nil {
				return err
			}
			fmt.Printf("Registered provider %q.\n", p.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&command, "command", "", "Executable to spawn (required)")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Argument for the command (repeatable)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory for the agent")
	cmd.Flags().StringArrayVar(&envVars, "env", nil, "Environment variable NAME=VALUE, or bare NAME to pass through (repeatable)")
	cmd.Flags().StringVar(&description, "description", "", "Human-readable description")
	cmd.MarkFlagRequired("command")
	return cmd
}

func newProvidersDescribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <id>",
		Short: "Show one provider in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			p, err := e.registry.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("ID:          %s\n", p.ID)
			fmt.Printf("Description: %s\n", p.Description)
			fmt.Printf("Command:     %s\n", p.Command)
			fmt.Printf("Args:        %s\n", strings.Join(p.Args, " "))
			fmt.Printf("Cwd:         %s\n", p.Cwd)
			if len(p.Env) > 0 {
				fmt.Println("Env:")
				for name, value := range p.Env {
					if value == "" {
						fmt.Printf("  %s (passthrough)\n", name)
					} else {
						fmt.Printf("  %s=%s\n", name, value)
					}
				}
			}
			return nil
		},
	}
}

func newProvidersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			if err := e.registry.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("Removed provider %q.\n", args[0])
			return nil
		},
	}
}
