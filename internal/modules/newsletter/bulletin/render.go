package bulletin

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/noticias/core/internal/models"
)

// profileCopy is the fixed wording of one bulletin type.
type profileCopy struct {
	Subject string
	Title   string
	Intro   string
}

var copies = map[models.BulletinType]profileCopy{
	models.BulletinMorning: {
		Subject: "Las noticias de la mañana",
		Title:   "Buenos días",
		Intro:   "Esto es lo más importante de las últimas 24 horas.",
	},
	models.BulletinEvening: {
		Subject: "Lo más leído de hoy",
		Title:   "Resumen de la tarde",
		Intro:   "Las notas que más interesaron a nuestros lectores hoy.",
	},
	models.BulletinWeekly: {
		Subject: "Lo más leído de la semana",
		Title:   "Resumen semanal",
		Intro:   "Las diez notas más leídas de los últimos siete días.",
	},
	models.BulletinSports: {
		Subject: "Boletín deportivo",
		Title:   "Deportes",
		Intro:   "Resultados y noticias deportivas del último día.",
	},
}

var months = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// dateLabel formats day as "4 de mayo de 2026".
func dateLabel(day time.Time) string {
	return fmt.Sprintf("%d de %s de %d", day.Day(), months[day.Month()-1], day.Year())
}

func subject(t models.BulletinType, day time.Time) string {
	return copies[t].Subject + " · " + dateLabel(day)
}

// Links are the per-delivery URLs placed in a rendered bulletin. Empty
// fields are left out of the output.
type Links struct {
	SiteName       string
	SiteURL        string
	UnsubscribeURL string
	PreferencesURL string
	OpenPixelURL   string
	// Article maps an article slug to the href used in the email.
	Article func(slug string) string
}

type articleView struct {
	Title    string
	URL      string
	Category string
	Image    string
	Summary  string
}

type view struct {
	Title          string
	Intro          string
	Date           string
	SiteName       string
	SiteURL        string
	UnsubscribeURL string
	PreferencesURL string
	OpenPixelURL   string
	Articles       []articleView
}

var (
	htmlTpl = htmltemplate.Must(htmltemplate.New("bulletin").Parse(bulletinHTML))
	textTpl = texttemplate.Must(texttemplate.New("bulletin").Parse(bulletinText))
)

// Render produces the HTML and plain text bodies of b.
func Render(b *models.Bulletin, l Links) (models.BulletinContent, error) {
	c := copies[b.Type]
	v := view{
		Title:          c.Title,
		Intro:          c.Intro,
		Date:           dateLabel(b.PublishDate),
		SiteName:       l.SiteName,
		SiteURL:        l.SiteURL,
		UnsubscribeURL: l.UnsubscribeURL,
		PreferencesURL: l.PreferencesURL,
		OpenPixelURL:   l.OpenPixelURL,
	}
	for _, s := range b.Snapshots {
		href := s.Slug
		if l.Article != nil {
			href = l.Article(s.Slug)
		}
		v.Articles = append(v.Articles, articleView{
			Title:    s.Title,
			URL:      href,
			Category: s.Category,
			Image:    s.Image,
			Summary:  s.Summary,
		})
	}

	var h, t bytes.Buffer
	if err := htmlTpl.Execute(&h, v); err != nil {
		return models.BulletinContent{}, fmt.Errorf("render %s html: %w", b.Type, err)
	}
	if err := textTpl.Execute(&t, v); err != nil {
		return models.BulletinContent{}, fmt.Errorf("render %s text: %w", b.Type, err)
	}
	return models.BulletinContent{HTML: h.String(), Text: strings.TrimSpace(t.String()) + "\n"}, nil
}

const bulletinHTML = `<!DOCTYPE html>
<html lang="es">
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /><title>{{.Title}}</title></head>
<body style="background-color:#f4f4f5;margin:0;padding:24px;font-family:Georgia,'Times New Roman',serif;color:#18181b">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:640px;background:#ffffff;border-radius:8px;padding:32px">
    <tbody>
      <tr><td>
        {{if .SiteName}}<p style="font-family:Helvetica,Arial,sans-serif;font-size:13px;letter-spacing:.08em;text-transform:uppercase;color:#b91c1c;margin:0 0 8px">{{.SiteName}}</p>{{end}}
        <h1 style="font-size:26px;margin:0 0 4px">{{.Title}}</h1>
        <p style="font-family:Helvetica,Arial,sans-serif;font-size:13px;color:#71717a;margin:0 0 16px">{{.Date}}</p>
        <p style="font-size:16px;line-height:24px;margin:0 0 24px">{{.Intro}}</p>
      </td></tr>
      {{range .Articles}}
      <tr><td style="padding:16px 0;border-top:1px solid #e4e4e7">
        {{if .Image}}<a href="{{.URL}}"><img src="{{.Image}}" alt="{{.Title}}" width="576" style="width:100%;max-width:576px;border-radius:6px;margin-bottom:12px" /></a>{{end}}
        {{if .Category}}<p style="font-family:Helvetica,Arial,sans-serif;font-size:12px;text-transform:uppercase;color:#b91c1c;margin:0 0 4px">{{.Category}}</p>{{end}}
        <h2 style="font-size:20px;line-height:26px;margin:0 0 8px"><a href="{{.URL}}" style="color:#18181b;text-decoration:none">{{.Title}}</a></h2>
        {{if .Summary}}<p style="font-size:15px;line-height:22px;color:#3f3f46;margin:0">{{.Summary}}</p>{{end}}
      </td></tr>
      {{end}}
      <tr><td style="padding-top:24px;border-top:1px solid #e4e4e7;font-family:Helvetica,Arial,sans-serif;font-size:12px;color:#71717a">
        {{if .SiteURL}}<p style="margin:0 0 8px"><a href="{{.SiteURL}}" style="color:#71717a">{{.SiteURL}}</a></p>{{end}}
        {{if .PreferencesURL}}<a href="{{.PreferencesURL}}" style="color:#71717a">Preferencias</a>{{end}}
        {{if .UnsubscribeURL}} · <a href="{{.UnsubscribeURL}}" style="color:#71717a">Cancelar suscripción</a>{{end}}
      </td></tr>
    </tbody>
  </table>
  {{if .OpenPixelURL}}<img src="{{.OpenPixelURL}}" width="1" height="1" alt="" style="display:block;border:0" />{{end}}
</body>
</html>`

const bulletinText = `{{if .SiteName}}{{.SiteName}} · {{end}}{{.Title}}
{{.Date}}

{{.Intro}}
{{range .Articles}}
{{if .Category}}[{{.Category}}] {{end}}{{.Title}}
{{if .Summary}}{{.Summary}}
{{end}}{{.URL}}
{{end}}
{{if .PreferencesURL}}Preferencias: {{.PreferencesURL}}
{{end}}{{if .UnsubscribeURL}}Cancelar suscripción: {{.UnsubscribeURL}}
{{end}}`
