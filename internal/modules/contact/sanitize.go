package contact

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	htmlrenderer "github.com/yuin/goldmark/renderer/html"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = newUGCPolicy()

	// Raw HTML in messages is dropped by the renderer before sanitizing.
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
		goldmark.WithRendererOptions(htmlrenderer.WithHardWraps()),
	)
)

func newUGCPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// plain strips every tag and returns unescaped text, so templates can escape
// it once.
func plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// renderMessage renders a plain-text message as Markdown for the admin
// notification.
func renderMessage(msg string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(msg), &buf); err != nil {
		return "", err
	}
	return template.HTML(ugc.Sanitize(buf.String())), nil
}
