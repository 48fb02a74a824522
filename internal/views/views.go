// Package views renders the server-side HTML pages.
package views

import (
	"bytes"
	"embed"
	"html/template"
	"io"

	"github.com/pkg/errors"

	"furnishai-web/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	PageRecommend = "recommend"
	PageAnalytics = "analytics"
	PageInfo      = "info"
	PageError     = "error"
)

var pages = []string{PageRecommend, PageAnalytics, PageInfo, PageError}

// Page is the data every template receives. Active names the highlighted
// navigation tab.
type Page struct {
	Title  string
	Active string
	Data   interface{}
}

type RecommendData struct {
	SessionID string
	Token     string
	Turns     []models.Turn
	Notice    string
}

// AnalyticsData renders either a loading shell that fetches the report
// in the browser, a server-aggregated Report, or an Error banner.
type AnalyticsData struct {
	Report       *models.AnalyticsReport
	Error        string
	Loading      bool
	ErrorMessage string
}

type InfoData struct {
	Entries []models.InfoEntry
}

type ErrorData struct {
	Status  int
	Message string
}

type Renderer struct {
	templates   map[string]*template.Template
	placeholder string
}

// New parses the layout together with each page template.
func New(placeholderImageURL string) (*Renderer, error) {
	r := &Renderer{
		templates:   make(map[string]*template.Template, len(pages)),
		placeholder: placeholderImageURL,
	}

	funcs := template.FuncMap{
		"productImage": r.productImage,
		"isUser":       func(t models.Turn) bool { return t.Sender == models.SenderUser },
		"placeholder":  func() string { return r.placeholder },
	}

	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s template", page)
		}
		r.templates[page] = tmpl
	}
	return r, nil
}

// Render executes the named page into w. Output is buffered so a template
// failure never leaves a half-written page.
func (r *Renderer) Render(w io.Writer, page string, data Page) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return errors.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return errors.Wrapf(err, "render %s", page)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (r *Renderer) productImage(p models.Product) string {
	if p.PrimaryImage == "" {
		return r.placeholder
	}
	return p.PrimaryImage
}
