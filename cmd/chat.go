// Copyright (c) 2025 The snowdemo Authors
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"snowdemo/cli/internal/chat"
	"snowdemo/cli/internal/llm"
	"snowdemo/cli/internal/terminal"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var chatAgent string

const replPrompt = "› "

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Starts an interactive chat. Every turn sends the whole conversation to the
agent graph. Type /new to start over and /exit to quit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		agent := a.cfg.Chat.Agent
		if chatAgent != "" {
			agent = chatAgent
		}
		inv := chat.NewOnce(a.graphBuilder(agent, a.acquirer()))
		return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), inv)
	},
}

// runREPL reads one question per line until EOF or /exit.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, inv chat.Invoker) error {
	pterm.DefaultHeader.WithFullWidth().Println("snowdemo chat")
	pterm.Info.Println("Type /new to start a new chat, /exit to quit.")
	fmt.Fprintln(out)

	conv := chat.New()
	scanner := bufio.NewScanner(in)
	prompt := pterm.NewStyle(pterm.FgLightCyan, pterm.Bold).Sprint(replPrompt)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			conv.Reset()
			pterm.Info.Println("Started a new chat.")
			continue
		}

		// The echoed input is reprinted as part of the transcript below.
		terminal.ClearPreviousLines(len([]rune(replPrompt)) + len([]rune(line)))
		printMessage(llm.User(line))

		next, reply, err := turnWithSpinner(ctx, out, inv, conv, line)
		if err != nil {
			_ = reportError("The assistant could not answer", err)
			continue
		}
		conv = next
		printMessage(reply)
	}
}

func turnWithSpinner(ctx context.Context, out io.Writer, inv chat.Invoker, conv chat.Conversation, input string) (chat.Conversation, llm.Message, error) {
	if !terminal.IsInteractive() {
		return chat.Turn(ctx, inv, conv, input)
	}
	stop := startInlineSpinner(out, "Processing question", spinnerFrames, 120*time.Millisecond)
	defer stop()
	return chat.Turn(ctx, inv, conv, input)
}

func init() {
	chatCmd.Flags().StringVar(&chatAgent, "agent", "", "Agent to use: cortex or test (default from config)")
	rootCmd.AddCommand(chatCmd)
}
