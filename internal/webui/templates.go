// ABOUTME: Template loading and rendering for the to-do pages
// ABOUTME: Parses embedded templates once and renders titles as inline markdown

package webui

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/coven-todo/internal/store"
)

// Template data types
type indexData struct {
	Title      string
	Todos      []*store.Todo
	Error      string
	Draft      string // rejected create input, echoed back into the form
	Submission string
	MaxTitle   int
}

type editData struct {
	Title    string
	Todo     *store.Todo
	Error    string
	MaxTitle int
}

// pages maps a page name to its template set (base layout + page content)
type pages map[string]*template.Template

// markdown renders titles. Raw HTML and dangerous link targets are dropped
// because the renderer is not configured with html.WithUnsafe.
var markdown = goldmark.New()

// inlineMarkdown renders a title as inline markdown. Input that would turn
// into block markup (headings, lists, quotes) is shown as escaped text.
func inlineMarkdown(s string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(s), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(s))
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<p>") || !strings.HasSuffix(out, "</p>\n") {
		return template.HTML(template.HTMLEscapeString(s))
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>\n")
	if strings.Contains(inner, "<p>") {
		return template.HTML(template.HTMLEscapeString(s))
	}
	return template.HTML(inner)
}

var templateFuncs = template.FuncMap{
	"inlineMarkdown": inlineMarkdown,
	"shortTime": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"isoTime": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339)
	},
}

// loadPages parses every page together with the shared base layout.
func loadPages() (pages, error) {
	p := make(pages)
	for _, name := range []string{"index", "edit"} {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		p[name] = tmpl
	}
	return p, nil
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written page behind a success status.
func (u *UI) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := u.pages[page]
	if !ok {
		u.logger.Error("unknown page", "page", page)
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		u.logger.Error("failed to render page", "page", page, "error", err, "request_id", RequestIDFromContext(r.Context()))
		http.Error(w, msgInternal, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderIndex renders the list page
func (u *UI) renderIndex(w http.ResponseWriter, r *http.Request, status int, todos []*store.Todo, errorMsg, draft string) {
	data := indexData{
		Title:      "To-do list",
		Todos:      todos,
		Error:      errorMsg,
		Draft:      draft,
		Submission: newSubmissionToken(),
		MaxTitle:   store.TitleMaxLength,
	}
	u.render(w, r, status, "index", data)
}

// renderEdit renders the edit form for a single todo
func (u *UI) renderEdit(w http.ResponseWriter, r *http.Request, status int, todo *store.Todo, errorMsg string) {
	data := editData{
		Title:    "Edit to-do",
		Todo:     todo,
		Error:    errorMsg,
		MaxTitle: store.TitleMaxLength,
	}
	u.render(w, r, status, "edit", data)
}
