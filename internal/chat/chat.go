// Package chat runs one conversational turn against a compiled graph.
package chat

import (
	"context"
	"errors"
	"sync"

	"snowdemo/cli/internal/graph"
	"snowdemo/cli/internal/llm"
)

// Conversation is the state a chat surface keeps between turns: the
// transcript it renders and the state it hands to the graph.
type Conversation struct {
	Display []llm.Message
	Graph   graph.State
}

// New returns an empty conversation.
func New() Conversation { return Conversation{} }

// Reset clears both histories, as the "New Chat" control does.
func (c *Conversation) Reset() { *c = New() }

// Invoker runs a graph; *graph.Graph satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, state graph.State) (graph.State, error)
}

// ErrNoReply is returned when the graph produced no messages.
var ErrNoReply = errors.New("graph returned no messages")

// Turn appends input to the conversation, invokes the graph with the whole
// accumulated history and returns the updated conversation and the reply.
// The graph state is replaced wholesale by the result. On error the caller's
// conversation is returned unchanged.
func Turn(ctx context.Context, inv Invoker, conv Conversation, input string) (Conversation, llm.Message, error) {
	user := llm.User(input)

	next := Conversation{
		Display: append(append([]llm.Message(nil), conv.Display...), user),
		Graph:   conv.Graph.Clone(),
	}
	next.Graph.Messages = append(next.Graph.Messages, user)

	result, err := inv.Invoke(ctx, next.Graph)
	if err != nil {
		return conv, llm.Message{}, err
	}
	if len(result.Messages) == 0 {
		return conv, llm.Message{}, ErrNoReply
	}

	next.Graph = result
	reply := llm.Assistant(result.Messages[len(result.Messages)-1].Content)
	next.Display = append(next.Display, reply)
	return next, reply, nil
}

// Once memoizes graph construction for the life of the process.
type Once struct {
	once  sync.Once
	build func() (*graph.Graph, error)
	g     *graph.Graph
	err   error
}

// NewOnce wraps build so it runs at most once.
func NewOnce(build func() (*graph.Graph, error)) *Once {
	return &Once{build: build}
}

// Graph returns the compiled graph, building it on first use.
func (o *Once) Graph() (*graph.Graph, error) {
	o.once.Do(func() { o.g, o.err = o.build() })
	return o.g, o.err
}

// Invoke implements Invoker on the memoized graph.
func (o *Once) Invoke(ctx context.Context, state graph.State) (graph.State, error) {
	g, err := o.Graph()
	if err != nil {
		return graph.State{}, err
	}
	return g.Invoke(ctx, state)
}
