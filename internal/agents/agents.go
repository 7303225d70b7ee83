// Package agents provides the graph nodes the chat surface can wire in.
package agents

import (
	"context"

	"snowdemo/cli/internal/graph"
	"snowdemo/cli/internal/llm"
)

// DefaultSystemPrompt is prepended to every model call.
const DefaultSystemPrompt = "You are a helpful AI assistant"

// StaticReply is the canned answer of the offline test agent.
const StaticReply = "test ai message"

// Assistant calls model once with the system prompt followed by the
// conversation, then ends the run with the model's reply.
func Assistant(model llm.ChatModel, systemPrompt string) graph.NodeFunc {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return func(ctx context.Context, state graph.State) (graph.Command, error) {
		messages := make([]llm.Message, 0, len(state.Messages)+1)
		messages = append(messages, llm.System(systemPrompt))
		messages = append(messages, state.Messages...)

		out, err := model.Generate(ctx, messages)
		if err != nil {
			return graph.Command{}, err
		}
		return graph.Command{Goto: graph.End, Update: []llm.Message{out}}, nil
	}
}

// Static ends the run with a fixed assistant message and never calls a model.
func Static(text string) graph.NodeFunc {
	return func(context.Context, graph.State) (graph.Command, error) {
		return graph.Command{Goto: graph.End, Update: []llm.Message{llm.Assistant(text)}}, nil
	}
}

// NodeName is the graph node the agent is registered under.
const NodeName = "agent"

// Build compiles the Start → agent → End graph around node.
func Build(node graph.NodeFunc) (*graph.Graph, error) {
	return graph.NewBuilder().
		AddNode(NodeName, node).
		AddEdge(graph.Start, NodeName).
		Compile()
}
