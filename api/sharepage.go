package api

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// sharePageTemplate renders the public read-only view of a shared note.
// All note fields pass through html/template's contextual escaping.
var sharePageTemplate = template.Must(template.New("sharepage").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<title>Shared Note</title>
<style>
body{font-family:system-ui,sans-serif;margin:0;background:#f5f7fb;color:#0f172a}
main{max-width:760px;margin:40px auto;padding:0 16px}
article{background:#fff;border:1px solid #d9e2ec;border-radius:14px;padding:20px;box-shadow:0 8px 20px rgba(15,23,42,.08)}
h1{margin:0 0 6px}
.meta{color:#4b5563;font-size:13px;margin-bottom:16px}
.body{white-space:normal;line-height:1.5}
</style>
</head>
<body>
<main>
<article>
<h1>{{.Title}}</h1>
<p class="meta">Tags: {{.Tags}} | Shared read-only</p>
<div class="body">{{range $i, $line := .BodyLines}}{{if $i}}<br>{{end}}{{$line}}{{end}}</div>
</article>
</main>
</body>
</html>
`))

type sharePageData struct {
	Title     string
	Tags      string
	BodyLines []string
}

// handleSharePage renders the shared note as an HTML page, independent of
// the note's archived state.
func (s *Server) handleSharePage(c *fiber.Ctx) error {
	shared, err := s.notebook.GetByShareToken(c.Context(), c.Params("token"))
	if err != nil {
		return s.respondError(c, err)
	}

	tags := strings.Join(shared.Tags, ", ")
	if tags == "" {
		tags = "none"
	}

	data := sharePageData{
		Title:     shared.Title,
		Tags:      tags,
		BodyLines: strings.Split(shared.Body, "\n"),
	}

	var buf bytes.Buffer
	if err := sharePageTemplate.Execute(&buf, data); err != nil {
		return s.respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(buf.Bytes())
}
