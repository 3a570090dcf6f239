// Package health exposes liveness and operational endpoints.
package health

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/noticias/core/internal/pkg/cron"
	"github.com/noticias/core/internal/pkg/mail"
	"github.com/noticias/core/internal/pkg/response"
)

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	// Checks maps a component name ("database", "redis") to its probe.
	Checks     map[string]Pinger
	Scheduler  *cron.Scheduler
	Mailer     mail.Sender
	AdminEmail string
	LogDir     string
}

type logItem struct {
	Size     string `json:"size"`
	Filename string `json:"filename"`
	Created  int64  `json:"created"`
}

func RegisterRoutes(rg *gin.RouterGroup, d Deps, authMW gin.HandlerFunc) {
	rg.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := "ok"
		code := http.StatusOK
		checks := make(gin.H, len(d.Checks))
		for name, p := range d.Checks {
			ok := p.Ping(ctx) == nil
			checks[name] = ok
			if !ok {
				status = "degraded"
				code = http.StatusServiceUnavailable
			}
		}
		checks["status"] = status
		c.JSON(code, checks)
	})

	admin := rg.Group("/health", authMW)
	if d.Scheduler != nil {
		admin.GET("/cron", func(c *gin.Context) {
			items := d.Scheduler.List()
			byName := make(map[string]cron.ListItem, len(items))
			for _, item := range items {
				byName[item.Name] = item
			}
			response.OK(c, byName)
		})
		admin.POST("/cron/run/:name", func(c *gin.Context) {
			if err := d.Scheduler.Run(c.Request.Context(), c.Param("name")); err != nil {
				response.NotFoundMsg(c, err.Error())
				return
			}
			response.OK(c, gin.H{"message": "job triggered"})
		})
	}

	admin.POST("/email/test", func(c *gin.Context) {
		if d.Mailer == nil || d.AdminEmail == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": "contact.admin_email is not configured"})
			return
		}
		if err := d.Mailer.Send(c.Request.Context(), mail.Options{
			To:      d.AdminEmail,
			Subject: "Prueba de correo",
			HTML:    "<h1>La configuración de correo funciona</h1><p>Si recibiste este mensaje el servicio de correo quedó bien configurado.</p>",
		}); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"message": err.Error()})
			return
		}
		response.OK(c, gin.H{"ok": true})
	})

	admin.GET("/log", func(c *gin.Context) {
		if d.LogDir == "" {
			response.OK(c, []logItem{})
			return
		}
		entries, err := os.ReadDir(d.LogDir)
		if err != nil {
			response.OK(c, []logItem{})
			return
		}
		items := make([]logItem, 0, len(entries))
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			items = append(items, logItem{
				Size:     formatByteSize(info.Size()),
				Filename: entry.Name(),
				Created:  info.ModTime().UnixMilli(),
			})
		}
		sort.Slice(items, func(i, j int) bool { return items[i].Created > items[j].Created })
		response.OK(c, items)
	})

	admin.GET("/log/:filename", func(c *gin.Context) {
		name := filepath.Base(c.Param("filename"))
		if d.LogDir == "" || name == "." || !strings.HasSuffix(name, ".log") {
			response.BadRequest(c, "invalid log file")
			return
		}
		data, err := os.ReadFile(filepath.Join(d.LogDir, name))
		if err != nil {
			response.NotFoundMsg(c, "log file not exists")
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	})
}

func formatByteSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
