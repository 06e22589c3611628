// Package templates embeds the page and email templates.
package templates

import (
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

//go:embed views/*.html emails/*.html emails/*.txt
var FS embed.FS

var viewFuncs = htmltemplate.FuncMap{
	"upper": strings.ToUpper,
	"firstWord": func(s string) string {
		if f := strings.Fields(s); len(f) > 0 {
			return f[0]
		}
		return s
	},
	"monthYear": func(t time.Time) string {
		return t.Format("January 2006")
	},
	"stars": func(rating float64) []bool {
		out := make([]bool, 5)
		for i := range out {
			out[i] = rating >= float64(i+1)
		}
		return out
	},
	"paragraphs": func(s string) []string {
		return strings.Split(s, "\n")
	},
	"add": func(a, b int) int { return a + b },
}

// Views parses every page template. Pages are addressed by file name, for
// example "overview.html".
func Views() (*htmltemplate.Template, error) {
	return htmltemplate.New("views").Funcs(viewFuncs).ParseFS(FS, "views/*.html")
}

// Emails parses the HTML and plain-text variants of every email.
func Emails() (*htmltemplate.Template, *texttemplate.Template, error) {
	html, err := htmltemplate.New("emails").ParseFS(FS, "emails/*.html")
	if err != nil {
		return nil, nil, err
	}
	text, err := texttemplate.New("emails").ParseFS(FS, "emails/*.txt")
	if err != nil {
		return nil, nil, err
	}
	return html, text, nil
}
