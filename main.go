package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Zachkp/zach-dev/internal/config"
	"github.com/Zachkp/zach-dev/internal/logging"
	"github.com/Zachkp/zach-dev/internal/provider"
	"github.com/Zachkp/zach-dev/internal/store"
)

// app carries the server's dependencies into the handlers.
type app struct {
	cfg      *config.Server
	logger   *zap.Logger
	store    *store.Store
	provider provider.Provider
	cv       string
	privacy  *privacy
	limiter  *askLimiter
	// spawn runs background work; tests make it synchronous.
	spawn func(func())
	// sendMail delivers a contact form message.
	sendMail func(name, email, message string) error
}

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel, !cfg.IsProduction())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Server, logger *zap.Logger) error {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	chatProvider, err := provider.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := chatProvider.(io.Closer); ok {
		defer closer.Close()
	}

	cv, err := loadCV(cfg.CVPath)
	if err != nil {
		return err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    db,
		provider: chatProvider,
		cv:       cv,
		privacy:  newPrivacy(logger),
		limiter:  newAskLimiter(cfg.AskRatePerMinute, cfg.AskBurst),
		spawn:    func(f func()) { go f() },
	}
	a.sendMail = a.sendContactEmail

	a.spawn(a.cleanupOldVisitorData)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           withCORS(cfg.AllowedOrigins, newRouter(a)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("provider", chatProvider.Name()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func loadCV(path string) (string, error) {
	if path == "" {
		return CVText(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read CV %s: %w", path, err)
	}
	return string(b), nil
}

// withCORS lets other origins (a static front end, a local dev page) call
// the JSON API.
func withCORS(origins []string, h http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept"},
		MaxAge:         600,
	}).Handler(h)
}

func newRouter(a *app) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(logging.GinRecovery(a.logger), logging.GinLogger(a.logger))
	r.Use(a.visitorTrackingMiddleware())

	r.LoadHTMLGlob("templates/*")
	r.Static("/images", "./images")
	r.Static("/static", "./static")

	// Home page route
	r.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"name":           Name,
			"aboutMeContent": AboutMe,
			"projects":       Projects,
		})
	})

	// HTMX Contact form endpoint - returns just the form HTML
	r.GET("/contact-form", func(c *gin.Context) {
		c.HTML(http.StatusOK, "contact.html", gin.H{
			"title": "Contact Me",
		})
	})

	r.GET("/work-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "work-content.html", gin.H{"roles": Experience})
	})

	r.GET("/education-content", func(c *gin.Context) {
		c.HTML(http.StatusOK, "education-content.html", gin.H{"degrees": Education})
	})

	// Handle contact form submission with HTMX
	r.POST("/contact", func(c *gin.Context) {
		name := c.PostForm("fullName")
		email := c.PostForm("email")
		message := c.PostForm("message")

		if err := a.sendMail(name, email, message); err != nil {
			a.logger.Error("error sending contact email", zap.Error(err))
			c.HTML(http.StatusOK, "contact-error.html", gin.H{
				"error": "Sorry, there was an error sending your message. Please try again later.",
			})
			return
		}

		c.HTML(http.StatusOK, "contact-success.html", gin.H{
			"success": "Thank you for your message! I'll get back to you soon.",
		})
	})

	setupChatRoutes(r, a)
	setupAdminRoutes(r, a)
	return r
}

var headerSafe = strings.NewReplacer("\r", " ", "\n", " ")

func (a *app) sendContactEmail(name, email, message string) error {
	cfg := a.cfg
	toEmail := cfg.ToEmail
	if toEmail == "" {
		toEmail = Contact
	}

	if cfg.SMTPUser == "" || cfg.SMTPPass == "" {
		if !cfg.IsProduction() {
			a.logger.Info("SMTP not configured, contact message logged only",
				zap.String("name", name), zap.String("email", email), zap.Int("message_len", len(message)))
			return nil
		}
		return fmt.Errorf("SMTP credentials not configured")
	}

	// name and email end up in headers
	name, email = headerSafe.Replace(name), headerSafe.Replace(email)

	subject := fmt.Sprintf("Portfolio Contact: %s", name)
	body := fmt.Sprintf(`
New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, name, email, message)

	msg := []byte("To: " + toEmail + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"From: " + cfg.SMTPUser + "\r\n" +
		"Reply-To: " + email + "\r\n" +
		"\r\n" +
		body + "\r\n")

	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	if err := smtp.SendMail(cfg.SMTPHost+":"+cfg.SMTPPort, auth, cfg.SMTPUser, []string{toEmail}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	a.logger.Info("contact email sent", zap.String("from", email))
	return nil
}
