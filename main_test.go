package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Zachkp/zach-dev/internal/config"
	"github.com/Zachkp/zach-dev/internal/provider"
	"github.com/Zachkp/zach-dev/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type sentMail struct {
	name, email, message string
}

type testApp struct {
	*app
	mail []sentMail
}

func newTestApp(t *testing.T, p provider.Provider) *testApp {
	t.Helper()

	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	if p == nil {
		p = provider.Mock{}
	}

	logger := zap.NewNop()
	ta := &testApp{}
	ta.app = &app{
		cfg: &config.Server{
			Env:           "development",
			AdminUsername: "owner",
			AdminPassword: "s3cret",
		},
		logger:   logger,
		store:    db,
		provider: p,
		cv:       "Zach\nGo developer",
		privacy:  newPrivacy(logger),
		limiter:  newAskLimiter(1000, 1000),
		spawn:    func(f func()) { f() },
		sendMail: func(name, email, message string) error {
			ta.mail = append(ta.mail, sentMail{name, email, message})
			return nil
		},
	}
	return ta
}

func (ta *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	req.RemoteAddr = "203.0.113.7:5555"
	w := httptest.NewRecorder()
	newRouter(ta.app).ServeHTTP(w, req)
	return w
}

func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestRouter_Pages(t *testing.T) {
	ta := newTestApp(t, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/", "Hi, I'm Zach"},
		{"/work-content", "Presentation Expert - Target"},
		{"/education-content", "Western Governors University"},
		{"/contact-form", "Contact Me"},
		{"/privacy", "365 days"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := ta.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestRouter_Contact(t *testing.T) {
	ta := newTestApp(t, nil)

	w := ta.do(postForm("/contact", url.Values{
		"fullName": {"Ada"},
		"email":    {"ada@example.com"},
		"message":  {"Hello"},
	}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Thank you for your message")
	require.Len(t, ta.mail, 1)
	assert.Equal(t, sentMail{"Ada", "ada@example.com", "Hello"}, ta.mail[0])

	ta.sendMail = func(string, string, string) error { return errors.New("smtp down") }
	w = ta.do(postForm("/contact", url.Values{"fullName": {"Ada"}}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "there was an error sending your message")
}

func TestSendContactEmail_RequiresCredentials(t *testing.T) {
	ta := newTestApp(t, nil)
	assert.NoError(t, ta.sendContactEmail("Ada", "ada@example.com", "Hello"), "development only logs")

	ta.cfg.Env = "production"
	err := ta.sendContactEmail("Ada", "ada@example.com", "Hello")
	assert.ErrorContains(t, err, "SMTP credentials not configured")
}

func TestHeaderSafe(t *testing.T) {
	assert.Equal(t, "Ada Bcc: x@example.com", headerSafe.Replace("Ada\r\nBcc: x@example.com"))
}

func TestVisitorTracking(t *testing.T) {
	ta := newTestApp(t, nil)
	ctx := context.Background()

	ta.do(httptest.NewRequest(http.MethodGet, "/", nil))
	ta.do(httptest.NewRequest(http.MethodGet, "/work-content", nil))

	dnt := httptest.NewRequest(http.MethodGet, "/", nil)
	dnt.Header.Set("DNT", "1")
	ta.do(dnt)

	ta.do(httptest.NewRequest(http.MethodGet, "/api/health", nil))
	ta.do(httptest.NewRequest(http.MethodGet, "/privacy", nil))
	ta.do(httptest.NewRequest(http.MethodGet, "/admin/login", nil))

	visitors, err := ta.store.RecentVisitors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, visitors, 2)

	hashed := ta.privacy.hashIP("203.0.113.7")
	for _, v := range visitors {
		assert.Equal(t, hashed, v.HashedIP)
		assert.NotContains(t, v.HashedIP, "203.0.113.7")
	}
	assert.ElementsMatch(t, []string{"/", "/work-content"}, []string{visitors[0].Path, visitors[1].Path})
}

func TestPrivacy_HashIP(t *testing.T) {
	p := newPrivacy(zap.NewNop())
	other := newPrivacy(zap.NewNop())

	h := p.hashIP("198.51.100.1")
	assert.Len(t, h, 16)
	assert.Equal(t, h, p.hashIP("198.51.100.1"))
	assert.NotEqual(t, h, p.hashIP("198.51.100.2"))
	assert.NotEqual(t, h, other.hashIP("198.51.100.1"))
}

func TestAdmin_RequiresLogin(t *testing.T) {
	ta := newTestApp(t, nil)

	for _, path := range []string{"/admin/dashboard", "/admin/api/stats", "/admin/visitors", "/admin/exchanges", "/admin/export/stats"} {
		w := ta.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, w.Code, path)
		assert.Equal(t, "/admin/login", w.Header().Get("Location"), path)
	}
}

func TestAdmin_LoginAndDashboard(t *testing.T) {
	ta := newTestApp(t, nil)

	w := ta.do(postForm("/admin/login", url.Values{"username": {"owner"}, "password": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	w = ta.do(postForm("/admin/login", url.Values{"username": {"owner"}, "password": {"s3cret"}}))
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/dashboard", w.Header().Get("Location"))

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	ta.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, ta.store.RecordExchange(context.Background(), store.Exchange{
		Provider: "mock", Model: "mock-cv-assistant", Outcome: store.OutcomeAnswered, StatusCode: 200, Latency: 120 * time.Millisecond,
	}))

	pages := []struct {
		path string
		want string
	}{
		{"/admin/dashboard", "mock (mock-cv-assistant)"},
		{"/admin/visitors", ta.privacy.hashIP("203.0.113.7")},
		{"/admin/exchanges", "answered"},
		{"/admin/api/stats", `"total_exchanges":1`},
		{"/admin/export/stats", `"total_visitors":1`},
		{"/admin/export/stats", `"latency_ms":120`},
		{"/admin/api/stats", `"rejected_exchanges":0`},
	}
	for _, p := range pages {
		req := httptest.NewRequest(http.MethodGet, p.path, nil)
		req.AddCookie(session)
		w := ta.do(req)
		assert.Equal(t, http.StatusOK, w.Code, p.path)
		assert.Contains(t, w.Body.String(), p.want, p.path)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/export/stats", nil)
	req.AddCookie(session)
	w = ta.do(req)
	assert.Equal(t, "attachment; filename=admin-stats.json", w.Header().Get("Content-Disposition"))
}

func TestAdmin_CredentialDefaults(t *testing.T) {
	ta := newTestApp(t, nil)
	ta.cfg.AdminUsername, ta.cfg.AdminPassword = "", ""

	w := ta.do(postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}}))
	assert.Equal(t, http.StatusFound, w.Code)

	ta.cfg.Env = "production"
	w = ta.do(postForm("/admin/login", url.Values{"username": {"admin"}, "password": {"admin123"}}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestAdmin_Logout(t *testing.T) {
	ta := newTestApp(t, nil)
	w := ta.do(httptest.NewRequest(http.MethodGet, "/admin/logout", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/admin/login", w.Header().Get("Location"))
}

func TestLoadCV(t *testing.T) {
	cv, err := loadCV("")
	require.NoError(t, err)
	assert.Equal(t, CVText(), cv)

	path := filepath.Join(t.TempDir(), "cv.txt")
	require.NoError(t, os.WriteFile(path, []byte("Jane Doe\nRust"), 0o600))
	cv, err = loadCV(path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nRust", cv)

	_, err = loadCV(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCVText(t *testing.T) {
	cv := CVText()
	assert.True(t, strings.HasPrefix(cv, Name+"\n"))
	for _, want := range []string{
		"Contact: " + Contact,
		"- Presentation Expert at Target (Aug 2023 - Present)",
		"- Bachelor of Computer Science, Western Governors University",
		"* Graduated Magna Cum Laude with 3.8 GPA",
		"- Terminal mail: A terminal-based email client built in Go",
	} {
		assert.Contains(t, cv, want)
	}
	assert.NotContains(t, cv, "\t")
}
