package web

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"snowdemo/cli/internal/agents"
	"snowdemo/cli/internal/chat"
	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/graph"
	"snowdemo/cli/internal/history"
	"snowdemo/cli/internal/llm"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/oklog/ulid/v2"
)

func newTestServer(t *testing.T, inv chat.Invoker, store history.Store) (*httptest.Server, *http.Client) {
	t.Helper()
	if inv == nil {
		g, err := agents.Build(agents.Static(agents.StaticReply))
		if err != nil {
			t.Fatal(err)
		}
		inv = g
	}
	srv := NewServer(Options{UI: config.Default().UI, Chat: inv, History: store})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return ts, &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func get(t *testing.T, c *http.Client, u string, header http.Header) (int, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func messages(t *testing.T, c *http.Client, base string) []llm.Message {
	t.Helper()
	_, body := get(t, c, base+"/api/messages", nil)
	var out struct {
		Messages []llm.Message `json:"messages"`
	}
	if err := json.Unmarshal([]byte(body), &out); err != nil {
		t.Fatalf("decode messages: %v (%s)", err, body)
	}
	return out.Messages
}

func TestIndex_PageChrome(t *testing.T) {
	ts, c := newTestServer(t, nil, nil)

	status, body := get(t, c, ts.URL+"/", http.Header{UserHeader: {"ana@example.com"}})
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	for _, want := range []string{"Test App", "Test App Info", "Instructions", "Logged in as: ana@example.com", "New Chat", "Ask a question"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestChat_FormTurn(t *testing.T) {
	store := history.NewMemory()
	ts, c := newTestServer(t, nil, store)

	resp, err := c.PostForm(ts.URL+"/chat", url.Values{"prompt": {"hello"}})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 after redirect", resp.StatusCode)
	}
	if !strings.Contains(string(body), agents.StaticReply) {
		t.Error("page does not show the assistant reply")
	}

	got := messages(t, c, ts.URL)
	want := []llm.Message{llm.User("hello"), llm.Assistant(agents.StaticReply)}
	if len(got) != len(want) {
		t.Fatalf("messages = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("messages[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	u, _ := url.Parse(ts.URL)
	var id string
	for _, ck := range c.Jar.Cookies(u) {
		if ck.Name == sessionCookie {
			id = ck.Value
		}
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		t.Fatalf("session cookie %q is not a ULID: %v", id, err)
	}
	stored, _ := store.Load(context.Background(), id)
	if len(stored) != 2 {
		t.Errorf("history has %d messages, want 2", len(stored))
	}
}

func TestReset_ClearsConversation(t *testing.T) {
	ts, c := newTestServer(t, nil, nil)

	if _, err := c.PostForm(ts.URL+"/chat", url.Values{"prompt": {"hello"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.PostForm(ts.URL+"/reset", nil); err != nil {
		t.Fatal(err)
	}
	if got := messages(t, c, ts.URL); len(got) != 0 {
		t.Errorf("messages after reset = %+v, want none", got)
	}
}

type failingInvoker struct{}

func (failingInvoker) Invoke(context.Context, graph.State) (graph.State, error) {
	return graph.State{}, stderrors.New("remote_call_failed: cortex complete: token=abc123 rejected")
}

func TestChat_ErrorKeepsHistoryAndMasks(t *testing.T) {
	ts, c := newTestServer(t, failingInvoker{}, nil)

	resp, err := c.PostForm(ts.URL+"/chat", url.Values{"prompt": {"hello"}})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if strings.Contains(string(body), "abc123") {
		t.Error("page leaks the token")
	}
	if got := messages(t, c, ts.URL); len(got) != 0 {
		t.Errorf("messages after failed turn = %+v, want none", got)
	}
}

func TestSession_RestoredFromHistory(t *testing.T) {
	store := history.NewMemory()
	id := ulid.Make().String()
	_ = store.Append(context.Background(), id, llm.User("earlier"), llm.Assistant("**bold** reply"))
	ts, c := newTestServer(t, nil, store)

	u, _ := url.Parse(ts.URL)
	c.Jar.SetCookies(u, []*http.Cookie{{Name: sessionCookie, Value: id, Path: "/"}})

	_, body := get(t, c, ts.URL+"/", nil)
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Error("assistant markdown not rendered")
	}
	if len(messages(t, c, ts.URL)) != 2 {
		t.Error("restored session does not list earlier messages")
	}
}

func TestReads_DoNotRetainSessions(t *testing.T) {
	g, err := agents.Build(agents.Static(agents.StaticReply))
	if err != nil {
		t.Fatal(err)
	}
	srv := NewServer(Options{UI: config.Default().UI, Chat: g})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	retained := func() int {
		srv.mu.Lock()
		defer srv.mu.Unlock()
		return len(srv.sessions)
	}

	bare := &http.Client{Timeout: 10 * time.Second}
	for i := 0; i < 20; i++ {
		get(t, bare, ts.URL+"/", nil)
		get(t, bare, ts.URL+"/api/messages", nil)
	}
	if n := retained(); n != 0 {
		t.Errorf("sessions after cookieless reads = %d, want 0", n)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &http.Client{Jar: jar, Timeout: 10 * time.Second}
	get(t, c, ts.URL+"/", nil)
	if _, err := c.PostForm(ts.URL+"/chat", url.Values{"prompt": {"hello"}}); err != nil {
		t.Fatal(err)
	}
	if n := retained(); n != 1 {
		t.Errorf("sessions after one turn = %d, want 1", n)
	}
}

func TestSession_RestoredBeforeFirstTurn(t *testing.T) {
	store := history.NewMemory()
	id := ulid.Make().String()
	_ = store.Append(context.Background(), id, llm.User("earlier"), llm.Assistant("reply"))
	srv := NewServer(Options{Chat: failingInvoker{}, History: store})

	const callers = 8
	got := make(chan *session, callers)
	for i := 0; i < callers; i++ {
		go func() { got <- srv.session(context.Background(), id) }()
	}
	first := <-got
	for i := 1; i < callers; i++ {
		if sess := <-got; sess != first {
			t.Fatal("concurrent first requests got different sessions")
		}
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	if len(first.conv.Display) != 2 || len(first.conv.Graph.Messages) != 2 {
		t.Errorf("restored display = %d, graph = %d, want 2 and 2",
			len(first.conv.Display), len(first.conv.Graph.Messages))
	}
}

func TestAssetsAndHealth(t *testing.T) {
	ts, c := newTestServer(t, nil, nil)

	status, body := get(t, c, ts.URL+"/assets/styles.css", nil)
	if status != http.StatusOK || !strings.Contains(body, ".msg") {
		t.Errorf("styles.css status = %d", status)
	}
	status, body = get(t, c, ts.URL+"/api/health", nil)
	if status != http.StatusOK || !strings.Contains(body, `"ok"`) {
		t.Errorf("health = %d %s", status, body)
	}
	if status, _ := get(t, c, ts.URL+"/nope", nil); status != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", status)
	}
}

func TestAssets_ETagRevalidation(t *testing.T) {
	ts, c := newTestServer(t, nil, nil)

	resp, err := c.Get(ts.URL + "/assets/styles.css")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	tag := resp.Header.Get("ETag")
	if tag == "" {
		t.Fatal("styles.css has no ETag")
	}

	status, _ := get(t, c, ts.URL+"/assets/styles.css", http.Header{"If-None-Match": {tag}})
	if status != http.StatusNotModified {
		t.Errorf("revalidation status = %d, want 304", status)
	}
}

func TestWebSocket_Turn(t *testing.T) {
	ts, _ := newTestServer(t, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	if err := wsjson.Write(ctx, conn, wsRequest{Type: "chat", Content: "hello"}); err != nil {
		t.Fatal(err)
	}

	var user, reply wsEvent
	if err := wsjson.Read(ctx, conn, &user); err != nil {
		t.Fatal(err)
	}
	if err := wsjson.Read(ctx, conn, &reply); err != nil {
		t.Fatal(err)
	}
	if user.Type != "user" || user.Message == nil || user.Message.Content != "hello" {
		t.Errorf("first event = %+v, want user hello", user)
	}
	if reply.Type != "assistant" || reply.Message == nil || reply.Message.Content != agents.StaticReply {
		t.Errorf("second event = %+v, want assistant reply", reply)
	}
}

func TestRenderMessage_EscapesUserInput(t *testing.T) {
	got := string(renderMessage(llm.User("<script>alert(1)</script>")))
	if strings.Contains(got, "<script>") {
		t.Errorf("user content not escaped: %s", got)
	}
	got = string(renderMessage(llm.Assistant("<img src=x onerror=alert(1)>")))
	if strings.Contains(got, "<img") {
		t.Errorf("raw HTML in assistant reply not dropped: %s", got)
	}
}
