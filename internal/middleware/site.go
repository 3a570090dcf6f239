package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/tenant"
)

const (
	SiteDomainHeader = "x-site-domain"
	ContextKeySite   = "site"
)

// Site resolves the tenant from x-site-domain, falling back to Host, and
// stores it on both the gin context and the request context.
func Site(resolver *tenant.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		site := resolver.Resolve(c.GetHeader(SiteDomainHeader), c.Request.Host)
		c.Set(ContextKeySite, site)
		c.Request = c.Request.WithContext(tenant.WithSite(c.Request.Context(), site))
		c.Next()
	}
}

// CurrentSite returns the site key resolved by Site.
func CurrentSite(c *gin.Context) string {
	return c.GetString(ContextKeySite)
}
