package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentwire/agentwire/client"
	"github.com/agentwire/agentwire/errors"
	"github.com/agentwire/agentwire/session"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Create and run chats against agent providers",
	}
	cmd.AddCommand(
		newChatNewCmd(),
		newChatSendCmd(),
		newChatListCmd(),
		newChatCloseCmd(),
		newChatReplCmd(),
	)
	return cmd
}

func newChatNewCmd() *cobra.Command {
	var provider, id string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a persisted chat bound to a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			if provider == "" {
				provider = e.cfg.DefaultProvider
			}
			if _, err := e.registry.Get(provider); err != nil {
				return err
			}
			if id == "" {
				id = uuid.NewString()
			}
			doc := &session.Document{ID: id, ProviderID: provider}
			if err := e.store.Save(doc); err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider id (defaults to the configured default)")
	cmd.Flags().StringVar(&id, "id", "", "Chat id (generated when omitted)")
	return cmd
}

func newChatSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <chat-id> <prompt...>",
		Short: "Send one prompt to a chat and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			prompt := strings.Join(args[1:], " ")
			return runTurn(cmd.Context(), e, args[0], prompt)
		},
	}
}

// runTurn spawns the chat's provider, replays persisted history, runs one
// turn, and persists the updated history.
func runTurn(ctx context.Context, e *env, chatID, prompt string) error {
	doc, err := e.store.Load(chatID)
	if err != nil {
		return err
	}
	spec, err := e.registry.Resolve(doc.ProviderID)
	if err != nil {
		return err
	}

	c, err := client.Dial(ctx, spec)
	if err != nil {
		return errors.Wrapf(err, "spawning provider %q", doc.ProviderID)
	}
	defer c.Close()

	if _, err := c.StartSession(ctx, doc.ID); err != nil {
		return err
	}
	if err := c.Replay(ctx, doc.ID, doc.History); err != nil {
		return err
	}

	streamed := false
	result, err := c.SendAndWaitComplete(ctx, doc.ID, prompt, func(index int, delta string) {
		streamed = true
		fmt.Print(delta)
	})
	if err != nil {
		return err
	}
	if streamed {
		fmt.Println()
	} else {
		fmt.Println(result.Text)
	}

	doc.History = result.History
	return e.store.Save(doc)
}

func newChatListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List persisted chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			ids, err := e.store.List()
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				fmt.Println("No chats.")
				return nil
			}
			for _, id := range ids {
				doc, err := e.store.Load(id)
				if err != nil {
					return err
				}
				fmt.Printf("%s  provider=%s  turns=%d\n", doc.ID, doc.ProviderID, len(doc.History)/2)
			}
			return nil
		},
	}
}

func newChatCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <chat-id>",
		Short: "Delete a persisted chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			if err := e.store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("Closed chat %q.\n", args[0])
			return nil
		},
	}
}

func newChatReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl <chat-id>",
		Short: "Interactive loop against one chat, reusing a single agent process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			doc, err := e.store.Load(args[0])
			if err != nil {
				return err
			}
			spec, err := e.registry.Resolve(doc.ProviderID)
			if err != nil {
				return err
			}
			c, err := client.Dial(ctx, spec)
			if err != nil {
				return errors.Wrapf(err, "spawning provider %q", doc.ProviderID)
			}
			defer c.Close()

			if _, err := c.StartSession(ctx, doc.ID); err != nil {
				return err
			}
			if err := c.Replay(ctx, doc.ID, doc.History); err != nil {
				return err
			}

			fmt.Printf("Chat %s ready. Type a prompt, or 'exit' to quit.\n", doc.ID)
			scanner := bufio.NewScanner(os.Stdin)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				prompt := strings.TrimSpace(scanner.Text())
				if prompt == "" {
					continue
				}
				if prompt == "exit" || prompt == "quit" {
					break
				}

				streamed := false
				result, err := c.SendAndWaitComplete(ctx, doc.ID, prompt, func(index int, delta string) {
					streamed = true
					fmt.Print(delta)
				})
				if err != nil {
					return err
				}
				if streamed {
					fmt.Println()
				} else {
					fmt.Println(result.Text)
				}

				doc.History = result.History
				if err := e.store.Save(doc); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}
