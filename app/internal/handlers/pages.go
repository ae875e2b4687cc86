package handlers

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strconv"
	"time"

	"statusboard/app/internal/board"
	"statusboard/app/internal/models"
)

//go:embed web
var webFS embed.FS

// IndexData is the template data of the status page
type IndexData struct {
	Title       string
	Board       board.Snapshot
	Error       string
	PollSeconds int
	Now         time.Time
}

// DetailData is the template data of a monitor page
type DetailData struct {
	Title   string
	Monitor *models.MonitorDetail
	Events  []models.Event
	Card    *board.Card
	Error   string
	Now     time.Time
}

// Pages renders the HTML views
type Pages struct {
	Title       string
	PollSeconds int
	Board       *board.Board
	Source      MonitorSource

	index  *template.Template
	detail *template.Template
}

var funcs = template.FuncMap{
	"duration": formatDuration,
}

// NewPages parses the embedded templates once at startup
func NewPages(title string, pollSeconds int, b *board.Board, src MonitorSource) (*Pages, error) {
	index, err := template.New("index.html").Funcs(funcs).ParseFS(webFS, "web/templates/layout.html", "web/templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}
	detail, err := template.New("monitor.html").Funcs(funcs).ParseFS(webFS, "web/templates/layout.html", "web/templates/monitor.html")
	if err != nil {
		return nil, fmt.Errorf("parsing monitor template: %w", err)
	}
	return &Pages{Title: title, PollSeconds: pollSeconds, Board: b, Source: src, index: index, detail: detail}, nil
}

func (p *Pages) render(w http.ResponseWriter, tmpl *template.Template, code int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := tmpl.Execute(w, data); err != nil {
		log.Printf("Template error: %v", err)
	}
}

func (p *Pages) indexData(errMsg string) IndexData {
	snap := p.Board.Snapshot()
	if errMsg == "" && snap.UpdatedAt.IsZero() {
		errMsg = "Unable to fetch monitor data"
	}
	return IndexData{Title: p.Title, Board: snap, Error: errMsg, PollSeconds: p.PollSeconds, Now: time.Now()}
}

// HandleIndex serves the status page from the current board
func (p *Pages) HandleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.render(w, p.index, http.StatusOK, p.indexData(""))
	}
}

// HandleNotFound renders the status page with an error banner
func (p *Pages) HandleNotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p.render(w, p.index, http.StatusNotFound, p.indexData("Page not found"))
	}
}

// HandleMonitorPage serves the detail view of one monitor
func (p *Pages) HandleMonitorPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := DetailData{Title: p.Title, Now: time.Now()}

		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			data.Error = "Unable to fetch monitor details"
			p.render(w, p.detail, http.StatusNotFound, data)
			return
		}

		detail, err := p.Source.FetchMonitorDetail(r.Context(), r.PathValue("id"))
		if err != nil {
			log.Printf("Error fetching monitor detail id=%d: %v", id, err)
			data.Error = "Unable to fetch monitor details"
			p.render(w, p.detail, http.StatusOK, data)
			return
		}
		data.Monitor = &detail.Monitor
		data.Events = detail.Events
		if c, ok := p.Board.Card(id); ok {
			data.Card = &c
		}
		p.render(w, p.detail, http.StatusOK, data)
	}
}

// HandleStatic serves the embedded CSS and JS
func HandleStatic() http.Handler {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServerFS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=300")
		files.ServeHTTP(w, r)
	})
}

// formatDuration renders seconds as "2h 5m", "5m 3s" or "42s"
func formatDuration(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
