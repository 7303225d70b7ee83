// Package graph runs a message-passing state graph: each node receives the
// current state, returns a Command that appends messages and names the next
// node, and the run stops when a node routes to End.
//
// The chat surface compiles a two-node graph (Start → agent → End), but the
// builder accepts any number of nodes.
package graph

import (
	"context"
	"errors"
	"fmt"

	"snowdemo/cli/internal/llm"
)

const (
	// Start is the virtual entry node.
	Start = "__start__"
	// End is the virtual terminal node.
	End = "__end__"
)

// DefaultStepLimit bounds the number of node executions per Invoke.
const DefaultStepLimit = 25

// ErrStepLimit is returned when a run exceeds its step limit.
var ErrStepLimit = errors.New("graph step limit exceeded")

// State is the data flowing through the graph.
type State struct {
	Messages []llm.Message
}

// Clone returns a copy that shares no backing array with s.
func (s State) Clone() State {
	return State{Messages: append([]llm.Message(nil), s.Messages...)}
}

// Command is a node's result: messages to append and where to go next.
// An empty Goto follows the node's static edge.
type Command struct {
	Goto   string
	Update []llm.Message
}

// NodeFunc is the unit of work in a graph.
type NodeFunc func(ctx context.Context, state State) (Command, error)

// Builder accumulates nodes and edges; errors are reported by Compile.
type Builder struct {
	nodes     map[string]NodeFunc
	edges     map[string]string
	order     []string
	stepLimit int
	errs      []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:     make(map[string]NodeFunc),
		edges:     make(map[string]string),
		stepLimit: DefaultStepLimit,
	}
}

// AddNode registers fn under name.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	switch {
	case name == "":
		b.errs = append(b.errs, errors.New("node name must not be empty"))
	case name == Start || name == End:
		b.errs = append(b.errs, fmt.Errorf("node name %q is reserved", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("node %q has no function", name))
	default:
		if _, dup := b.nodes[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
			return b
		}
		b.nodes[name] = fn
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge routes from to to when from's Command leaves Goto empty.
func (b *Builder) AddEdge(from, to string) *Builder {
	if prev, ok := b.edges[from]; ok {
		b.errs = append(b.errs, fmt.Errorf("node %q already has an edge to %q", from, prev))
		return b
	}
	b.edges[from] = to
	return b
}

// WithStepLimit overrides DefaultStepLimit.
func (b *Builder) WithStepLimit(n int) *Builder {
	if n > 0 {
		b.stepLimit = n
	}
	return b
}

// Compile validates the structure and returns an immutable graph.
func (b *Builder) Compile() (*Graph, error) {
	errs := append([]error(nil), b.errs...)
	if _, ok := b.edges[Start]; !ok {
		errs = append(errs, errors.New("graph has no entry edge from Start"))
	}
	for from, to := range b.edges {
		if from != Start {
			if _, ok := b.nodes[from]; !ok {
				errs = append(errs, fmt.Errorf("edge from unknown node %q", from))
			}
		}
		if to != End {
			if _, ok := b.nodes[to]; !ok {
				errs = append(errs, fmt.Errorf("edge to unknown node %q", to))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("compile graph: %w", err)
	}

	g := &Graph{
		nodes:     make(map[string]NodeFunc, len(b.nodes)),
		edges:     make(map[string]string, len(b.edges)),
		order:     append([]string(nil), b.order...),
		stepLimit: b.stepLimit,
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}
	return g, nil
}

// Graph is a compiled graph. It is safe for concurrent Invoke calls.
type Graph struct {
	nodes     map[string]NodeFunc
	edges     map[string]string
	order     []string
	stepLimit int
}

// Nodes returns node names in registration order.
func (g *Graph) Nodes() []string { return append([]string(nil), g.order...) }

// Invoke runs the graph from Start on a copy of in and returns the final
// state. in is never modified.
func (g *Graph) Invoke(ctx context.Context, in State) (State, error) {
	state := in.Clone()
	current := g.edges[Start]

	for steps := 0; current != End; steps++ {
		if steps >= g.stepLimit {
			return State{}, fmt.Errorf("%w (%d steps)", ErrStepLimit, g.stepLimit)
		}
		if err := ctx.Err(); err != nil {
			return State{}, err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return State{}, fmt.Errorf("unknown node %q", current)
		}
		cmd, err := fn(ctx, state.Clone())
		if err != nil {
			return State{}, fmt.Errorf("node %s: %w", current, err)
		}
		state.Messages = append(state.Messages, cmd.Update...)

		next := cmd.Goto
		if next == "" {
			next, ok = g.edges[current]
			if !ok {
				return State{}, fmt.Errorf("node %s: no route", current)
			}
		}
		current = next
	}
	return state, nil
}
