package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"
	"time"
)

// Built-in template names.
const (
	TemplateSubscriptionConfirm = "subscription-confirm"
	TemplateSubscriptionWelcome = "subscription-welcome"
	TemplateContactAdmin        = "contact-admin"
	TemplateContactConfirm      = "contact-confirm"
)

// Templates is a registry of named html/template bodies sharing one layout.
type Templates struct {
	mu     sync.RWMutex
	layout *template.Template
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	"year": func() int { return time.Now().Year() },
}

// NewTemplates parses layout, which must invoke {{template "content" .}}.
func NewTemplates(layout string) (*Templates, error) {
	t, err := template.New("layout").Funcs(funcs).Parse(layout)
	if err != nil {
		return nil, fmt.Errorf("parse mail layout: %w", err)
	}
	return &Templates{layout: t, byName: make(map[string]*template.Template)}, nil
}

// Register parses body as the "content" block of name.
func (t *Templates) Register(name, body string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	clone, err := t.layout.Clone()
	if err != nil {
		return err
	}
	if _, err := clone.New("content").Parse(body); err != nil {
		return fmt.Errorf("parse mail template %q: %w", name, err)
	}
	t.byName[name] = clone
	return nil
}

// Render executes the named template with data.
func (t *Templates) Render(name string, data map[string]any) (string, error) {
	t.mu.RLock()
	tpl, ok := t.byName[name]
	t.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("mail template %q not registered", name)
	}
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render mail template %q: %w", name, err)
	}
	return buf.String(), nil
}

// DefaultTemplates returns the registry with every built-in template.
func DefaultTemplates() *Templates {
	t, err := NewTemplates(layoutTpl)
	if err != nil {
		panic(err)
	}
	for name, body := range map[string]string{
		TemplateSubscriptionConfirm: subscriptionConfirmTpl,
		TemplateSubscriptionWelcome: subscriptionWelcomeTpl,
		TemplateContactAdmin:        contactAdminTpl,
		TemplateContactConfirm:      contactConfirmTpl,
	} {
		if err := t.Register(name, body); err != nil {
			panic(err)
		}
	}
	return t
}

const layoutTpl = `<!DOCTYPE html>
<html lang="es">
<head><meta http-equiv="Content-Type" content="text/html; charset=UTF-8" /></head>
<body style="background-color:#f4f4f5;margin:0;padding:24px;font-family:Helvetica,Arial,sans-serif;color:#18181b">
  <table align="center" width="100%" role="presentation" cellspacing="0" cellpadding="0" border="0" style="max-width:600px;background:#ffffff;border-radius:8px;padding:32px">
    <tbody><tr><td>
      {{if .SiteName}}<p style="font-size:13px;letter-spacing:.08em;text-transform:uppercase;color:#b91c1c;margin:0 0 24px">{{.SiteName}}</p>{{end}}
      {{template "content" .}}
      <p style="font-size:12px;color:#71717a;margin-top:32px">&copy; {{year}} {{if .SiteName}}{{.SiteName}}{{end}}</p>
    </td></tr></tbody>
  </table>
</body>
</html>`

const subscriptionConfirmTpl = `<h1 style="font-size:22px;margin:0 0 16px">Confirma tu suscripción</h1>
<p style="font-size:15px;line-height:24px">Hola{{if .Name}} {{.Name}}{{end}}, gracias por suscribirte a nuestros boletines.</p>
<p style="font-size:15px;line-height:24px">Para empezar a recibirlos confirma tu correo:</p>
<p style="margin:24px 0"><a href="{{.ConfirmURL}}" style="background:#b91c1c;color:#ffffff;padding:12px 20px;border-radius:6px;text-decoration:none">Confirmar suscripción</a></p>
<p style="font-size:13px;color:#52525b">El enlace vence en {{.ExpiresHours}} horas. Si no solicitaste esta suscripción ignora este mensaje.</p>`

const subscriptionWelcomeTpl = `<h1 style="font-size:22px;margin:0 0 16px">¡Bienvenido!</h1>
<p style="font-size:15px;line-height:24px">Hola{{if .Name}} {{.Name}}{{end}}, tu suscripción quedó confirmada.</p>
<p style="font-size:15px;line-height:24px">Puedes elegir qué boletines recibir en <a href="{{.PreferencesURL}}">tus preferencias</a>.</p>
<p style="font-size:12px;color:#71717a">¿Ya no quieres recibir correos? <a href="{{.UnsubscribeURL}}">Cancelar suscripción</a></p>`

const contactAdminTpl = `<h1 style="font-size:20px;margin:0 0 16px">Nuevo mensaje de contacto</h1>
<p style="font-size:14px;line-height:22px"><strong>{{.Name}}</strong> &lt;{{.Email}}&gt;{{if .Phone}} · {{.Phone}}{{end}}</p>
<p style="font-size:14px;line-height:22px"><strong>Asunto:</strong> {{.Subject}}</p>
<div style="background:#f4f4f5;border-radius:6px;padding:12px 16px;font-size:14px;line-height:22px">{{.MessageHTML}}</div>
<p style="font-size:12px;color:#71717a;margin-top:16px">IP: {{.IP}}<br />Agente: {{.UserAgent}}<br />Origen: {{.Referer}}<br />Puntaje de spam: {{.SpamScore}}</p>`

const contactConfirmTpl = `<h1 style="font-size:20px;margin:0 0 16px">Recibimos tu mensaje</h1>
<p style="font-size:15px;line-height:24px">Hola {{.Name}}, gracias por escribirnos. Tu mensaje sobre "{{.Subject}}" llegó a nuestra redacción y te responderemos a la brevedad.</p>`
