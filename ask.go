package main

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Zachkp/zach-dev/internal/chat"
	"github.com/Zachkp/zach-dev/internal/store"
)

const (
	maxQuestionRunes = 1000
	// room for a question plus a client-sent CV context
	maxAskBodyBytes = 64 << 10
	answerTimeout   = 25 * time.Second
)

const unavailableMessage = "The assistant is unavailable right now. Please try again later."

func setupChatRoutes(r *gin.Engine, a *app) {
	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"provider": a.provider.Name(),
			"model":    a.provider.Model(),
			"time":     time.Now().Format(time.RFC3339),
		})
	})
	api.POST("/ask", a.rateLimit(rejectJSON), a.handleAsk)

	// HTMX chat widget on the home page
	r.POST("/chat", a.rateLimit(rejectFragment), a.handleChatFragment)
}

// rejectFunc answers a refused question in the caller's format.
type rejectFunc func(c *gin.Context, status int, message string)

func rejectJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, chat.Reply{Success: false, Message: message})
}

// rejectFragment answers with 200 so HTMX swaps the error into the chat log.
func rejectFragment(c *gin.Context, status int, message string) {
	c.HTML(http.StatusOK, "chat-message.html", gin.H{
		"question": strings.TrimSpace(c.PostForm("question")),
		"error":    message,
	})
	c.Abort()
}

// handleAsk is the JSON inference endpoint used by cvchat and any other
// client of the chat.Request contract.
func (a *app) handleAsk(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxAskBodyBytes)

	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.reject(c, rejectJSON, http.StatusRequestEntityTooLarge, 0, "Request body is too large.")
			return
		}
		a.reject(c, rejectJSON, http.StatusBadRequest, 0, "Request body must be JSON with a question field.")
		return
	}

	question, ok := a.validQuestion(c, rejectJSON, req.Question)
	if !ok {
		return
	}

	answer, err := a.answer(c.Request.Context(), question, req.Context, req.Model)
	if err != nil {
		c.JSON(http.StatusBadGateway, chat.Reply{Success: false, Message: unavailableMessage})
		return
	}
	c.JSON(http.StatusOK, chat.Reply{Success: true, Answer: answer})
}

func (a *app) handleChatFragment(c *gin.Context) {
	question, ok := a.validQuestion(c, rejectFragment, c.PostForm("question"))
	if !ok {
		return
	}

	data := gin.H{"question": question}
	answer, err := a.answer(c.Request.Context(), question, "", "")
	if err != nil {
		data["error"] = unavailableMessage
	} else {
		data["answer"] = spansHTML(chat.Format(answer))
	}
	c.HTML(http.StatusOK, "chat-message.html", data)
}

func (a *app) validQuestion(c *gin.Context, respond rejectFunc, raw string) (string, bool) {
	question := strings.TrimSpace(raw)
	if question == "" {
		a.reject(c, respond, http.StatusBadRequest, 0, "A question is required.")
		return "", false
	}
	if n := utf8.RuneCountInString(question); n > maxQuestionRunes {
		a.reject(c, respond, http.StatusBadRequest, n, "That question is too long.")
		return "", false
	}
	return question, true
}

func (a *app) reject(c *gin.Context, respond rejectFunc, status, questionLen int, message string) {
	a.recordExchange(store.Exchange{
		Provider:    a.provider.Name(),
		Outcome:     store.OutcomeRejected,
		StatusCode:  status,
		QuestionLen: questionLen,
	})
	respond(c, status, message)
}

// answer asks the provider. The server's CV always wins; a client-sent
// context is only used when the server has none.
func (a *app) answer(ctx context.Context, question, clientContext, model string) (string, error) {
	cv := a.cv
	if cv == "" {
		cv = clientContext
	}

	ctx, cancel := context.WithTimeout(ctx, answerTimeout)
	defer cancel()

	start := time.Now()
	answer, err := a.provider.Answer(ctx, question, cv)
	latency := time.Since(start)

	exchange := store.Exchange{
		Provider:    a.provider.Name(),
		Model:       a.provider.Model(),
		Outcome:     store.OutcomeAnswered,
		StatusCode:  http.StatusOK,
		Latency:     latency,
		QuestionLen: utf8.RuneCountInString(question),
	}
	if err != nil {
		a.logger.Error("provider failed",
			zap.String("provider", a.provider.Name()),
			zap.String("requested_model", model),
			zap.Duration("latency", latency),
			zap.Error(err),
		)
		exchange.Outcome = store.OutcomeFailed
		exchange.StatusCode = http.StatusBadGateway
		a.recordExchange(exchange)
		return "", err
	}

	a.logger.Debug("question answered",
		zap.String("provider", a.provider.Name()),
		zap.String("requested_model", model),
		zap.Duration("latency", latency),
	)
	a.recordExchange(exchange)
	return answer, nil
}

func (a *app) recordExchange(e store.Exchange) {
	a.spawn(func() {
		if err := a.store.RecordExchange(context.Background(), e); err != nil {
			a.logger.Warn("error recording exchange", zap.Error(err))
		}
	})
}

func (a *app) rateLimit(respond rejectFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.limiter.allow(c.ClientIP()) {
			c.Next()
			return
		}
		a.reject(c, respond, http.StatusTooManyRequests, 0, "Too many questions in a short time. Wait a moment and ask again.")
	}
}

// askLimiter keeps one token bucket per client IP and drops buckets that
// have been idle for a while.
type askLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newAskLimiter(perMinute, burst int) *askLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &askLimiter{
		limiters: make(map[string]*limiterEntry),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

func (l *askLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > l.idle {
		for key, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.limiters, key)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// spansHTML renders formatted answer spans as safe HTML.
func spansHTML(spans []chat.Span) template.HTML {
	var b strings.Builder
	for _, s := range spans {
		text := template.HTMLEscapeString(s.Text)
		switch s.Kind {
		case chat.SpanStrong:
			b.WriteString("<strong>" + text + "</strong>")
		case chat.SpanEmphasis:
			b.WriteString("<em>" + text + "</em>")
		case chat.SpanCode:
			b.WriteString("<code>" + text + "</code>")
		case chat.SpanLink:
			if safeURL(s.URL) {
				b.WriteString(`<a href="` + template.HTMLEscapeString(s.URL) + `" target="_blank" rel="noopener">` + text + "</a>")
			} else {
				b.WriteString(text)
			}
		default:
			b.WriteString(strings.ReplaceAll(text, "\n", "<br>"))
		}
	}
	return template.HTML(b.String())
}

func safeURL(u string) bool {
	lower := strings.ToLower(u)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "mailto:")
}
