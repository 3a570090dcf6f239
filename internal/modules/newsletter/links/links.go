// Package links builds the public URLs embedded in newsletter emails.
package links

import (
	"net/url"
	"strings"

	"github.com/noticias/core/internal/config"
)

// API routes served by this process.
const (
	confirmPath = "/public-content/newsletter/confirm"
	openPath    = "/public-content/newsletter/track/open/"
	clickPath   = "/public-content/newsletter/track/click/"
)

// Site pages rendered by the frontend, which call back into the API.
const (
	preferencesPage = "/newsletter/preferencias"
	unsubscribePage = "/newsletter/baja"
)

type Builder struct {
	apiBase string
	sites   config.SitesConfig
}

func New(apiBase string, sites config.SitesConfig) *Builder {
	return &Builder{apiBase: strings.TrimRight(apiBase, "/"), sites: sites}
}

func (b *Builder) SiteURL(site string) string  { return b.sites.URL(site) }
func (b *Builder) SiteName(site string) string { return b.sites.Name(site) }

func (b *Builder) Confirm(token string) string {
	return b.apiBase + confirmPath + "?" + url.Values{"token": {token}}.Encode()
}

func (b *Builder) Preferences(site, token string) string {
	return b.SiteURL(site) + preferencesPage + "?" + url.Values{"token": {token}}.Encode()
}

// Unsubscribe carries the bulletin id, when known, so the unsubscribe can be
// attributed to it.
func (b *Builder) Unsubscribe(site, token, bulletinID string) string {
	v := url.Values{"token": {token}}
	if bulletinID != "" {
		v.Set("b", bulletinID)
	}
	return b.SiteURL(site) + unsubscribePage + "?" + v.Encode()
}

func (b *Builder) Article(site, slug string) string {
	return b.SiteURL(site) + "/noticias/" + url.PathEscape(slug)
}

func (b *Builder) TrackOpen(bulletinID string) string {
	return b.apiBase + openPath + url.PathEscape(bulletinID)
}

func (b *Builder) TrackClick(bulletinID, target string) string {
	return b.apiBase + clickPath + url.PathEscape(bulletinID) + "?" + url.Values{"u": {target}}.Encode()
}

// AllowedRedirect reports whether target points at one of the configured
// site hosts.
func (b *Builder) AllowedRedirect(target string) bool {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, raw := range b.sites.URLs {
		su, err := url.Parse(raw)
		if err == nil && strings.EqualFold(su.Hostname(), host) {
			return true
		}
	}
	return false
}
