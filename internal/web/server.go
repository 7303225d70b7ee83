// Package web serves the browser chat page: a title, a sidebar with app
// information and a "New Chat" control, the transcript, and an input box.
// Turns go through chat.Turn, either as form posts or over a websocket.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"snowdemo/cli/internal/chat"
	"snowdemo/cli/internal/config"
	"snowdemo/cli/internal/history"
	"snowdemo/cli/internal/llm"
	"snowdemo/cli/internal/logging"

	"github.com/oklog/ulid/v2"
)

//go:embed assets templates
var content embed.FS

var pageTmpl = template.Must(template.ParseFS(content, "templates/index.html"))

const (
	sessionCookie = "snowdemo_session"
	// UserHeader carries the signed-in user's email when running behind the
	// platform's ingress.
	UserHeader = "X-Forwarded-Email"
	maxPrompt  = 16 << 10
)

// Options configures a Server.
type Options struct {
	UI      config.UI
	Chat    chat.Invoker
	History history.Store
	Logger  *slog.Logger
	// TurnTimeout bounds one model round trip; zero means two minutes.
	TurnTimeout time.Duration
}

type session struct {
	mu   sync.Mutex
	conv chat.Conversation
}

// Server holds per-browser conversations keyed by a session cookie.
type Server struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer builds a server; History defaults to an in-memory store.
func NewServer(opts Options) *Server {
	if opts.History == nil {
		opts.History = history.NewMemory()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TurnTimeout <= 0 {
		opts.TurnTimeout = 2 * time.Minute
	}
	return &Server{opts: opts, sessions: make(map[string]*session)}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /assets/", compressed(assetHandler().ServeHTTP))
	mux.Handle("GET /{$}", compressed(s.handleIndex))
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /api/messages", compressed(s.handleMessages))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

// sessionID returns the caller's session id, issuing a cookie when the
// request carries none. No server state is created.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, perr := ulid.ParseStrict(c.Value); perr == nil {
			return c.Value
		}
	}
	id := ulid.Make().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (s *Server) lookup(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

// restore loads a transcript from history; failures yield an empty one.
func (s *Server) restore(ctx context.Context, id string) []llm.Message {
	msgs, err := s.opts.History.Load(ctx, id)
	if err != nil {
		s.opts.Logger.Warn("history restore failed", "session", id, "error", err)
		return nil
	}
	return msgs
}

// session returns the conversation for id, creating it for the first turn.
// A new entry is filled from history before other requests can see it.
func (s *Server) session(ctx context.Context, id string) *session {
	if sess := s.lookup(id); sess != nil {
		return sess
	}

	conv := chat.New()
	if msgs := s.restore(ctx, id); len(msgs) > 0 {
		conv.Display = msgs
		conv.Graph.Messages = append([]llm.Message(nil), msgs...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &session{conv: conv}
	s.sessions[id] = sess
	return sess
}

// transcript returns a copy of the displayed messages for id. Sessions
// without turns in this process are read from history and not retained.
func (s *Server) transcript(ctx context.Context, id string) []llm.Message {
	if sess := s.lookup(id); sess != nil {
		sess.mu.Lock()
		defer sess.mu.Unlock()
		return append([]llm.Message{}, sess.conv.Display...)
	}
	return append([]llm.Message{}, s.restore(ctx, id)...)
}

type pageData struct {
	Title        string
	Information  string
	Instructions string
	User         string
	Messages     []messageView
	Error        string
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, msgs []llm.Message, errMsg string) {
	user := r.Header.Get(UserHeader)
	if user == "" {
		user = "anonymous"
	}
	data := pageData{
		Title:        s.opts.UI.Title,
		Information:  s.opts.UI.Information,
		Instructions: s.opts.UI.Instructions,
		User:         user,
		Messages:     views(msgs),
		Error:        errMsg,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.opts.Logger.Error("render page", "error", err)
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	s.render(w, r, http.StatusOK, s.transcript(r.Context(), id), "")
}

// turn runs one chat turn for the session and records it in history.
func (s *Server) turn(ctx context.Context, id string, sess *session, input string) (llm.Message, []llm.Message, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.opts.TurnTimeout)
	defer cancel()

	start := time.Now()
	next, reply, err := chat.Turn(ctx, s.opts.Chat, sess.conv, input)
	if err != nil {
		s.opts.Logger.Error("chat turn failed", "session", id, "error", logging.Mask(err.Error()))
		return llm.Message{}, append([]llm.Message(nil), sess.conv.Display...), err
	}
	sess.conv = next
	s.opts.Logger.Info("chat turn", "session", id, "messages", len(next.Display), "elapsed", time.Since(start))

	if err := s.opts.History.Append(ctx, id, llm.User(input), reply); err != nil {
		s.opts.Logger.Warn("history append failed", "session", id, "error", err)
	}
	return reply, append([]llm.Message(nil), next.Display...), nil
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxPrompt)
	input := strings.TrimSpace(r.FormValue("prompt"))
	if input == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	sess := s.session(r.Context(), id)

	_, msgs, err := s.turn(r.Context(), id, sess, input)
	if err != nil {
		s.render(w, r, http.StatusBadGateway, msgs, userError(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) reset(ctx context.Context, id string) {
	if sess := s.lookup(id); sess != nil {
		sess.mu.Lock()
		sess.conv.Reset()
		sess.mu.Unlock()
	}
	if err := s.opts.History.Clear(ctx, id); err != nil {
		s.opts.Logger.Warn("history clear failed", "session", id, "error", err)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.reset(r.Context(), s.sessionID(w, r))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	msgs := s.transcript(r.Context(), s.sessionID(w, r))
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// userError is the masked, single-line message shown in the page.
func userError(err error) string {
	msg := logging.Mask(err.Error())
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return "Something went wrong: " + msg
}
