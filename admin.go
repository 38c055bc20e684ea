// admin.go - privacy-conscious visitor tracking and the admin dashboard
package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminCookie = "admin_token"

// privacy holds the per-process secrets: the admin session token and the
// salt used for IP hashing. Both change on every restart.
type privacy struct {
	salt       string
	adminToken string
}

func newPrivacy(logger *zap.Logger) *privacy {
	p := &privacy{
		salt:       randomToken(),
		adminToken: randomToken(),
	}
	logger.Info("admin access available", zap.String("path", "/admin/login"))
	logger.Info("visitor tracking enabled with hashed IP addresses")
	return p
}

func randomToken() string {
	b := make([]byte, 32)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// hashIP is consistent per IP for the life of the process.
func (p *privacy) hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip + p.salt))
	return hex.EncodeToString(sum[:])[:16]
}

func (a *app) adminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(adminCookie)
		if err != nil || subtle.ConstantTimeCompare([]byte(token), []byte(a.privacy.adminToken)) != 1 {
			c.Redirect(http.StatusFound, "/admin/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

var untrackedPrefixes = []string{
	"/static/",
	"/images/",
	"/admin/",
	"/api/",
	"/chat",
	"/favicon",
	"/privacy",
}

func (a *app) visitorTrackingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, prefix := range untrackedPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		// Respect Do Not Track
		if c.GetHeader("DNT") == "1" {
			c.Next()
			return
		}

		hashed := a.privacy.hashIP(c.ClientIP())
		userAgent := c.GetHeader("User-Agent")
		a.spawn(func() {
			if err := a.store.RecordVisit(context.Background(), hashed, userAgent, path); err != nil {
				a.logger.Warn("error recording visitor", zap.Error(err))
			}
		})
		c.Next()
	}
}

func (a *app) cleanupOldVisitorData() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	deleted, err := a.store.CleanupOldVisitors(ctx)
	if err != nil {
		a.logger.Error("error cleaning up old visitor data", zap.Error(err))
		return
	}
	if deleted > 0 {
		a.logger.Info("privacy cleanup removed old visitor records", zap.Int64("deleted", deleted))
	}
}

// adminCredentials falls back to admin/admin123 outside production only.
func (a *app) adminCredentials() (string, string, bool) {
	username, password := a.cfg.AdminUsername, a.cfg.AdminPassword
	if username != "" && password != "" {
		return username, password, true
	}
	if a.cfg.IsProduction() {
		return "", "", false
	}
	if username == "" {
		username = "admin"
		a.logger.Warn("using default admin username, set ADMIN_USERNAME")
	}
	if password == "" {
		password = "admin123"
		a.logger.Warn("using default admin password, set ADMIN_PASSWORD")
	}
	return username, password, true
}

func equalSecret(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func setupAdminRoutes(r *gin.Engine, a *app) {
	r.GET("/privacy", func(c *gin.Context) {
		c.HTML(http.StatusOK, "privacy.html", gin.H{
			"title":         "Privacy Policy",
			"retentionDays": 365,
		})
	})

	r.GET("/admin/login", func(c *gin.Context) {
		c.HTML(http.StatusOK, "admin-login.html", gin.H{
			"title": "Admin Login",
		})
	})

	r.POST("/admin/login", func(c *gin.Context) {
		username := c.PostForm("username")
		password := c.PostForm("password")
		visitor := a.privacy.hashIP(c.ClientIP())

		wantUser, wantPass, ok := a.adminCredentials()
		if !ok {
			a.logger.Error("admin login disabled: ADMIN_USERNAME and ADMIN_PASSWORD are not set")
			c.HTML(http.StatusServiceUnavailable, "admin-login.html", gin.H{
				"error": "Admin login is not configured",
			})
			return
		}

		if equalSecret(username, wantUser) && equalSecret(password, wantPass) {
			c.SetCookie(adminCookie, a.privacy.adminToken, 3600*24, "/admin", "", a.cfg.IsProduction(), true)
			a.logger.Info("admin login successful", zap.String("visitor", visitor))
			c.Redirect(http.StatusFound, "/admin/dashboard")
			return
		}

		a.logger.Warn("failed admin login attempt", zap.String("visitor", visitor))
		c.HTML(http.StatusUnauthorized, "admin-login.html", gin.H{
			"error": "Invalid credentials",
		})
	})

	r.GET("/admin/logout", func(c *gin.Context) {
		c.SetCookie(adminCookie, "", -1, "/admin", "", a.cfg.IsProduction(), true)
		a.logger.Info("admin logout", zap.String("visitor", a.privacy.hashIP(c.ClientIP())))
		c.Redirect(http.StatusFound, "/admin/login")
	})

	adminGroup := r.Group("/admin")
	adminGroup.Use(a.adminAuthMiddleware())

	adminGroup.GET("/dashboard", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			a.logger.Error("error loading admin stats", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load statistics",
			})
			return
		}

		c.HTML(http.StatusOK, "admin-dashboard.html", gin.H{
			"stats":    stats,
			"provider": a.provider.Name(),
			"model":    a.provider.Model(),
		})
	})

	adminGroup.GET("/api/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			a.logger.Error("error loading admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})

	adminGroup.GET("/visitors", func(c *gin.Context) {
		visitors, err := a.store.RecentVisitors(c.Request.Context(), 200)
		if err != nil {
			a.logger.Error("error loading visitors", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load visitors",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-visitors.html", gin.H{"visitors": visitors})
	})

	adminGroup.GET("/exchanges", func(c *gin.Context) {
		exchanges, err := a.store.RecentExchanges(c.Request.Context(), 200)
		if err != nil {
			a.logger.Error("error loading exchanges", zap.Error(err))
			c.HTML(http.StatusInternalServerError, "admin-error.html", gin.H{
				"error": "Failed to load chat exchanges",
			})
			return
		}
		c.HTML(http.StatusOK, "admin-exchanges.html", gin.H{"exchanges": exchanges})
	})

	adminGroup.POST("/privacy/delete-visitor-data", func(c *gin.Context) {
		a.spawn(a.cleanupOldVisitorData)
		c.JSON(http.StatusOK, gin.H{"message": "Privacy cleanup initiated"})
	})

	adminGroup.GET("/export/stats", func(c *gin.Context) {
		stats, err := a.store.Stats(c.Request.Context())
		if err != nil {
			a.logger.Error("error exporting admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load statistics"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=admin-stats.json")
		a.logger.Info("admin stats exported", zap.String("visitor", a.privacy.hashIP(c.ClientIP())))
		c.JSON(http.StatusOK, stats)
	})
}
