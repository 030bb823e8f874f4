// agentwire-agent is the reference agent subprocess. It speaks the framed
// protocol on stdin/stdout; stderr carries logs only.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/agentwire/agentwire/agent"
	"github.com/agentwire/agentwire/config"
	"github.com/agentwire/agentwire/llm"
	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/tools"
)

func main() {
	responderFlag := flag.String("responder", "", "Responder: 'mock' or an LLM provider (anthropic, openai, gemini, bedrock)")
	modelFlag := flag.String("model", "", "Model name for LLM responders")
	chunksFlag := flag.Int("stream-chunks", -1, "Number of deltas per streamed reply (0 disables streaming)")
	logLevelFlag := flag.String("log-level", "", "Log level: debug, info, warn, error")
	traceFlag := flag.String("trace", "", "Write debug-level logs to this file instead of stderr")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}

	logLevel := cfg.LogLevel
	if *logLevelFlag != "" {
		logLevel = *logLevelFlag
	}
	if *traceFlag != "" {
		f, err := os.OpenFile(*traceFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening trace file: %+v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logging.Configure(f, logging.ParseLevel("debug"))
	} else {
		logging.Configure(os.Stderr, logging.ParseLevel(logLevel))
	}

	provider := cfg.LLM.Provider
	if *responderFlag != "" {
		provider = *responderFlag
	}
	model := cfg.LLM.Model
	if *modelFlag != "" {
		model = *modelFlag
	}
	chunks := cfg.StreamChunks
	if *chunksFlag >= 0 {
		chunks = *chunksFlag
	}

	ctx := context.Background()

	registry := tools.NewRegistry(cfg)
	defer registry.Close()

	var responder agent.Responder
	switch provider {
	case "", "mock":
		responder = agent.MockResponder{}
	default:
		client, err := llm.New(ctx, provider, model)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing %s client: %+v\n", provider, err)
			os.Exit(1)
		}
		responder = agent.NewLLMResponder(provider, client, registry)
	}

	logging.Info("agent starting", "responder", responder.Name(), "pid", os.Getpid())
	srv := agent.New(responder, chunks).WithTools(registry)
	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}
