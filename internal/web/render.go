package web

import (
	"bytes"
	"html/template"

	"snowdemo/cli/internal/llm"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in model output is escaped; goldmark drops it unless WithUnsafe is set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

type messageView struct {
	Role string
	HTML template.HTML
}

// renderMessage renders assistant replies as markdown and everything else as
// escaped text.
func renderMessage(m llm.Message) template.HTML {
	if m.Role != llm.RoleAssistant {
		return template.HTML("<p>" + template.HTMLEscapeString(m.Content) + "</p>")
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(m.Content), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(m.Content) + "</p>")
	}
	return template.HTML(buf.String())
}

func views(msgs []llm.Message) []messageView {
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageView{Role: string(m.Role), HTML: renderMessage(m)})
	}
	return out
}
