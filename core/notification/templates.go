package notification

import (
	"bytes"
	"embed"
	"fmt"
	htmltmpl "html/template"
	"strconv"
	"strings"
	texttmpl "text/template"
	"time"

	"github.com/pkg/errors"
)

//go:embed templates
var templatesFS embed.FS

var ErrUnknownEvent = errors.New("unknown notification event")

// Renderer turns events into message contents. Rendering is deterministic for a given event.
type Renderer struct {
	appName    string
	loc        *time.Location
	timeLayout string
	dateLayout string

	text map[EventKind]*texttmpl.Template
	html *htmltmpl.Template
}

type RendererOptions struct {
	AppName    string
	Location   *time.Location
	TimeLayout string
	DateLayout string
}

func NewRenderer(opts RendererOptions) (*Renderer, error) {
	r := &Renderer{
		appName:    opts.AppName,
		loc:        opts.Location,
		timeLayout: opts.TimeLayout,
		dateLayout: opts.DateLayout,
		text:       make(map[EventKind]*texttmpl.Template, len(subjects)),
	}
	if r.loc == nil {
		r.loc = time.UTC
	}
	if r.timeLayout == "" {
		r.timeLayout = "Jan 2, 2006 3:04 PM"
	}
	if r.dateLayout == "" {
		r.dateLayout = "Jan 2, 2006"
	}

	funcs := texttmpl.FuncMap{
		"app":            func() string { return r.appName },
		"formatTime":     r.FormatTime,
		"formatDate":     r.FormatDate,
		"formatDuration": FormatDuration,
		"number":         formatNumber,
		"signed":         formatSigned,
	}
	for kind := range subjects {
		name := string(kind) + ".txt"
		tmpl, err := texttmpl.New(name).Funcs(funcs).Option("missingkey=error").ParseFS(templatesFS, "templates/"+name)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing %s", name)
		}
		r.text[kind] = tmpl
	}

	html, err := htmltmpl.ParseFS(templatesFS, "templates/email.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parsing email.gohtml")
	}
	r.html = html
	return r, nil
}

// Render returns the subject and plain-text body for ev.
func (r *Renderer) Render(ev Event) (Content, error) {
	if ev == nil {
		return Content{}, ErrUnknownEvent
	}
	tmpl, ok := r.text[ev.Kind()]
	if !ok {
		return Content{}, errors.Wrapf(ErrUnknownEvent, "%q", ev.Kind())
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ev); err != nil {
		return Content{}, errors.Wrapf(err, "rendering %s", ev.Kind())
	}
	return Content{
		Subject: subjects[ev.Kind()],
		Body:    strings.TrimSpace(buf.String()),
	}, nil
}

// RenderHTML wraps a plain-text body into the email layout.
func (r *Renderer) RenderHTML(subject, body string, sentAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := r.html.Execute(&buf, struct {
		AppName string
		Subject string
		Body    string
		SentAt  string
	}{r.appName, subject, body, r.FormatTime(sentAt)})
	if err != nil {
		return "", errors.Wrap(err, "rendering email html")
	}
	return buf.String(), nil
}

func (r *Renderer) FormatTime(t time.Time) string {
	return t.In(r.loc).Format(r.timeLayout)
}

func (r *Renderer) FormatDate(t time.Time) string {
	return t.In(r.loc).Format(r.dateLayout)
}

// FormatDuration formats d as `Hh Mm`, truncating seconds.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hours := int64(d / time.Hour)
	minutes := int64((d % time.Hour) / time.Minute)
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatSigned(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
