package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"frontporch/internal/adapters/http/middleware"
	"frontporch/internal/domain/slot"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// pageNames are the templates rendered inside layout.html.
var pageNames = []string{"index.html", "admin_login.html", "admin_dashboard.html"}

var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcMap = template.FuncMap{
	"formatHour":     slot.FormatHour,
	"formatHourLong": slot.FormatHourLong,
	"hours":          slot.Hours,
	"days":           func() []string { return slot.Days },
	"until": func(n int) []int {
		s := make([]int, n)
		for i := range s {
			s[i] = i + 1
		}
		return s
	},
}

// parsePages parses each page together with the shared layout.
func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tpl
	}
	return pages, nil
}

// renderMarkdown converts the configured banner. Raw HTML in the source is dropped.
func renderMarkdown(md string) (template.HTML, error) {
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// pageData is the common envelope every page receives.
type pageData struct {
	Title     string
	CSRFToken string
	Admin     string
	Banner    template.HTML
	Error     string
	Data      any
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name, title string, data pageData) {
	tpl, ok := s.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("unknown template %s", name))
		return
	}
	data.Title = title
	data.CSRFToken = csrf.Token(r)
	if sess, ok := middleware.GetSessionFromContext(r.Context()); ok {
		data.Admin = sess.Username
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
