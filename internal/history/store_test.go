package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"snowdemo/cli/internal/errors"
	"snowdemo/cli/internal/llm"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Append(ctx, "a", llm.User("hello"), llm.Assistant("hi")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, "b", llm.User("other session")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := s.Append(ctx, "a", llm.User("again")); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	got, err := s.Load(ctx, "a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []llm.Message{llm.User("hello"), llm.Assistant("hi"), llm.User("again")}
	if len(got) != len(want) {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Load()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if err := s.Clear(ctx, "a"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, err = s.Load(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Load() after Clear = %+v, want empty", got)
	}
	got, err = s.Load(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Clear removed another session's messages: %+v", got)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestSQLite_InMemory(t *testing.T) {
	s, err := OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestOpen_SQLiteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	s, err := Open(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := s.Append(context.Background(), "a", llm.User("persisted")); err != nil {
		t.Fatal(err)
	}
	s.Close()

	reopened, err := Open(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	got, err := reopened.Load(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "persisted" {
		t.Errorf("Load() after reopen = %+v", got)
	}
}

func TestOpen_Schemes(t *testing.T) {
	s, err := Open(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(\"\") = %T, want *Memory", s)
	}

	if _, err := Open(context.Background(), "mysql://x"); errors.KindOf(err) != errors.ConfigInvalid {
		t.Errorf("Open(mysql) error = %v, want config_invalid", err)
	}
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("SNOWDEMO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SNOWDEMO_TEST_POSTGRES_DSN not set")
	}
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	_ = s.Clear(ctx, "a")
	_ = s.Clear(ctx, "b")
	exerciseStore(t, s)
}
