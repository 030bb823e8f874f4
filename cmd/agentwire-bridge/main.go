// agentwire-bridge exposes a framed-stdio agent over a WebSocket. Each
// connection spawns its own agent subprocess; WebSocket text messages carry
// the JSON payloads that the stdio side carries inside length-prefixed
// frames, so browser clients never deal with the binary framing.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"github.com/agentwire/agentwire/logging"
	"github.com/agentwire/agentwire/registry"
	"github.com/agentwire/agentwire/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8080", "Listen address")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: agentwire-bridge [--addr :8080] <agent-command> [args...]")
		os.Exit(1)
	}
	spec := transport.SpawnSpec{
		Command: flag.Arg(0),
		Args:    flag.Args()[1:],
		Env:     registry.SanitizeEnv(os.Environ()),
	}

	http.HandleFunc("/ws", handleWS(spec))
	logging.Info("bridge listening", "addr", *addr, "agent", spec.Command)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Bridge stopped: %+v\n", err)
		os.Exit(1)
	}
}

func handleWS(spec transport.SpawnSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		proc, err := transport.Spawn(spec)
		if err != nil {
			logging.Error("spawning agent", "error", err)
			return
		}
		defer proc.Close()

		logging.Info("agent spawned for websocket peer", "pid", proc.PID(), "remote", r.RemoteAddr)

		// Agent frames out to the websocket.
		go func() {
			defer conn.Close()
			for {
				raw, err := proc.Recv(context.Background())
				if err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					logging.Warn("websocket write failed", "error", err)
					return
				}
			}
		}()

		// Websocket messages in to the agent.
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := proc.Send(json.RawMessage(msg)); err != nil {
				logging.Warn("forwarding to agent failed", "error", err)
				return
			}
		}
	}
}
