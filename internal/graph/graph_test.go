package graph

import (
	"context"
	"errors"
	"strings"
	"testing"

	"snowdemo/cli/internal/llm"
)

func reply(text string) NodeFunc {
	return func(_ context.Context, _ State) (Command, error) {
		return Command{Goto: End, Update: []llm.Message{llm.Assistant(text)}}, nil
	}
}

func TestInvoke_SingleAgent(t *testing.T) {
	g, err := NewBuilder().
		AddNode("agent", reply("hi there")).
		AddEdge(Start, "agent").
		Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	in := State{Messages: []llm.Message{llm.User("hello")}}
	out, err := g.Invoke(context.Background(), in)
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	want := []llm.Message{llm.User("hello"), llm.Assistant("hi there")}
	if len(out.Messages) != len(want) {
		t.Fatalf("len(Messages) = %d, want %d", len(out.Messages), len(want))
	}
	for i := range want {
		if out.Messages[i] != want[i] {
			t.Errorf("Messages[%d] = %+v, want %+v", i, out.Messages[i], want[i])
		}
	}
	if len(in.Messages) != 1 {
		t.Errorf("input state modified: %+v", in.Messages)
	}
}

func TestInvoke_StaticEdges(t *testing.T) {
	var visited []string
	node := func(name string) NodeFunc {
		return func(_ context.Context, s State) (Command, error) {
			visited = append(visited, name)
			return Command{Update: []llm.Message{llm.Assistant(name)}}, nil
		}
	}
	g, err := NewBuilder().
		AddNode("a", node("a")).
		AddNode("b", node("b")).
		AddEdge(Start, "a").
		AddEdge("a", "b").
		AddEdge("b", End).
		Compile()
	if err != nil {
		t.Fatal(err)
	}

	out, err := g.Invoke(context.Background(), State{})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(visited, ",") != "a,b" {
		t.Errorf("visited = %v, want [a b]", visited)
	}
	if len(out.Messages) != 2 {
		t.Errorf("len(Messages) = %d, want 2", len(out.Messages))
	}
}

func TestInvoke_StepLimit(t *testing.T) {
	loop := func(_ context.Context, _ State) (Command, error) {
		return Command{Goto: "loop"}, nil
	}
	g, err := NewBuilder().
		AddNode("loop", loop).
		AddEdge(Start, "loop").
		WithStepLimit(3).
		Compile()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Invoke(context.Background(), State{}); !errors.Is(err, ErrStepLimit) {
		t.Errorf("Invoke() error = %v, want ErrStepLimit", err)
	}
}

func TestInvoke_NodeError(t *testing.T) {
	boom := errors.New("boom")
	g, err := NewBuilder().
		AddNode("agent", func(context.Context, State) (Command, error) { return Command{}, boom }).
		AddEdge(Start, "agent").
		Compile()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := g.Invoke(context.Background(), State{}); !errors.Is(err, boom) {
		t.Errorf("Invoke() error = %v, want %v", err, boom)
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		build   func() *Builder
		wantMsg string
	}{
		{
			name:    "no entry edge",
			build:   func() *Builder { return NewBuilder().AddNode("a", reply("x")) },
			wantMsg: "no entry edge",
		},
		{
			name: "duplicate node",
			build: func() *Builder {
				return NewBuilder().AddNode("a", reply("x")).AddNode("a", reply("y")).AddEdge(Start, "a")
			},
			wantMsg: "duplicate node",
		},
		{
			name:    "unknown target",
			build:   func() *Builder { return NewBuilder().AddEdge(Start, "missing") },
			wantMsg: "unknown node",
		},
		{
			name:    "reserved name",
			build:   func() *Builder { return NewBuilder().AddNode(End, reply("x")).AddEdge(Start, End) },
			wantMsg: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build().Compile()
			if err == nil {
				t.Fatal("expected error but got none")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}
