// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package digest renders one user's search results into an HTML email.
package digest

import (
	"html/template"
	"strings"

	"github.com/pdiddy/sonar/internal/window"
	"github.com/pdiddy/sonar/pkg/types"
)

// bodyTemplate mirrors the digest layout subscribers receive: greeting,
// window restatement, one block per paper newest-first, then the query echo
// and the arXiv attribution. API-originated text is escaped by html/template.
var bodyTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"join": func(authors []string) string { return strings.Join(authors, ", ") },
	"published": func(r types.Result) string {
		return r.Published.Format(window.TimeFormat)
	},
}).Parse(`<html>
<head></head>
<body>
    <p>Hello {{.User.Name}},</p>
    <p>Here are the arXiv updates since the last time this program was run ({{.Start}} to {{.End}}):</p>
{{- if .Results}}
{{- range .Results}}
    <p><strong>Title:</strong> <a href="{{.Link}}">{{.Title}}</a><br>
    <strong>Authors:</strong> {{join .Authors}}<br>
    {{published .}}<br>
    <i>Summary:</i> {{.Summary}}</p>
    <hr>
{{- end}}
{{- else}}
    <p>No new articles found based on your search query since the last run.</p>
{{- end}}
    <p>Your search query was: <i>{{.User.Query}}</i></p>
    <p>We thank arXiv for use of its open access interoperability.</p>
    <p>Best regards, SONAR</p>
</body>
</html>`))

type bodyData struct {
	User    types.User
	Start   string
	End     string
	Results []types.Result
}

// Compose renders the digest for one user cycle. Results are presented in
// the order given, which the search client guarantees is newest-first. Pure:
// no I/O, no clock reads.
func Compose(user types.User, w window.Window, results []types.Result) types.Message {
	data := bodyData{
		User:    user,
		Start:   w.StartCanonical(),
		End:     w.EndCanonical(),
		Results: results,
	}

	var body strings.Builder
	// The template is a compile-time constant; execution over plain structs
	// cannot fail.
	if err := bodyTemplate.Execute(&body, data); err != nil {
		panic(err)
	}

	return types.Message{
		Recipient: user.Email,
		Subject: "Your Weekly SONAR (" + w.StartCanonical() + " to " +
			w.EndCanonical() + ", " + user.Name + ")",
		Body: body.String(),
	}
}
