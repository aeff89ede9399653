package cms

import (
	"bytes"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var (
	markdownOnce sync.Once
	markdown     goldmark.Markdown
	policy       *bluemonday.Policy
)

func renderer() (goldmark.Markdown, *bluemonday.Policy) {
	markdownOnce.Do(func() {
		markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		)
		policy = bluemonday.UGCPolicy()
		policy.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6")
		policy.RequireNoFollowOnLinks(false)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return markdown, policy
}

// RenderMarkdown converts markdown to sanitized HTML.
func RenderMarkdown(src string) (template.HTML, error) {
	md, p := renderer()
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(p.SanitizeBytes(buf.Bytes())), nil
}
