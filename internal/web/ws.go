package web

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"snowdemo/cli/internal/llm"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// wsRequest is a client frame: {"type":"chat","content":"..."} or {"type":"reset"}.
type wsRequest struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// wsEvent is a server frame.
type wsEvent struct {
	Type    string       `json:"type"`
	Message *llm.Message `json:"message,omitempty"`
	HTML    string       `json:"html,omitempty"`
	Error   string       `json:"error,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := s.sessionID(w, r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closed")
	conn.SetReadLimit(maxPrompt)

	ctx := r.Context()
	if err := s.serveWS(ctx, id, conn); err != nil {
		status := websocket.CloseStatus(err)
		if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
			s.opts.Logger.Debug("websocket closed", "session", id, "error", err)
		}
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "done")
}

func (s *Server) serveWS(ctx context.Context, id string, conn *websocket.Conn) error {
	for {
		var req wsRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return err
		}

		switch req.Type {
		case "reset":
			s.reset(ctx, id)
			if err := wsjson.Write(ctx, conn, wsEvent{Type: "reset"}); err != nil {
				return err
			}
		case "chat":
			input := strings.TrimSpace(req.Content)
			if input == "" {
				continue
			}
			user := llm.User(input)
			if err := wsjson.Write(ctx, conn, wsEvent{Type: "user", Message: &user, HTML: string(renderMessage(user))}); err != nil {
				return err
			}
			reply, _, err := s.turn(ctx, id, s.session(ctx, id), input)
			ev := wsEvent{Type: "assistant", Message: &reply, HTML: string(renderMessage(reply))}
			if err != nil {
				msg := userError(err)
				ev = wsEvent{Type: "error", Error: msg, HTML: template.HTMLEscapeString(msg)}
			}
			if err := wsjson.Write(ctx, conn, ev); err != nil {
				return err
			}
		default:
			if err := wsjson.Write(ctx, conn, wsEvent{Type: "error", Error: "unknown request type", HTML: "unknown request type"}); err != nil {
				return err
			}
		}
	}
}
