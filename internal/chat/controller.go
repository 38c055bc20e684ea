package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultProbeTimeout   = 15 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	DefaultProbeQuestion  = "Reply with OK if you can read this."
)

// Config is everything the controller needs to talk to an endpoint.
type Config struct {
	EndpointURL    string
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	// StaticContext is the CV text sent with every question.
	StaticContext string
	// Model is an optional routing hint; the server decides what runs.
	Model         string
	ProbeQuestion string
}

// View is the presentation side of the controller. Calls arrive from the
// goroutine running the operation and must not block for long.
type View interface {
	StatusChanged(Status)
	Typing(on bool)
	Appended(Message)
	Revealing(Stage)
}

// NopView discards every update.
type NopView struct{}

func (NopView) StatusChanged(Status) {}
func (NopView) Typing(bool)          {}
func (NopView) Appended(Message)     {}
func (NopView) Revealing(Stage)      {}

// Command is a UI intent handled by Controller.Handle.
type Command interface{ command() }

// Submit asks Text as a question.
type Submit struct{ Text string }

// RetryConnection re-runs the connectivity probe.
type RetryConnection struct{}

func (Submit) command()          {}
func (RetryConnection) command() {}

// Controller runs at most one question at a time against the endpoint and
// keeps the transcript and connectivity status.
type Controller struct {
	cfg        Config
	view       View
	endpoint   *endpoint
	transcript Transcript
	pacing     Pacing
	sleep      func(context.Context, time.Duration) error
	logger     *zap.Logger

	inFlight atomic.Bool

	mu     sync.Mutex
	status Status
}

type Option func(*Controller)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Controller) { c.endpoint.client = client }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithPacing replaces DefaultPacing. A zero Pacing reveals without delays.
func WithPacing(p Pacing) Option {
	return func(c *Controller) { c.pacing = p }
}

var errNoEndpoint = errors.New("chat: endpoint URL is required")

func New(cfg Config, view View, opts ...Option) (*Controller, error) {
	if strings.TrimSpace(cfg.EndpointURL) == "" {
		return nil, errNoEndpoint
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ProbeQuestion == "" {
		cfg.ProbeQuestion = DefaultProbeQuestion
	}
	if view == nil {
		view = NopView{}
	}

	c := &Controller{
		cfg:      cfg,
		view:     view,
		endpoint: &endpoint{url: cfg.EndpointURL, client: &http.Client{}},
		pacing:   DefaultPacing,
		sleep:    sleepCtx,
		logger:   zap.NewNop(),
		status:   StatusUnknown,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Transcript returns a copy of every message so far.
func (c *Controller) Transcript() []Message {
	return c.transcript.Messages()
}

func (c *Controller) InFlight() bool {
	return c.inFlight.Load()
}

// Handle is the single entry point for UI commands. It reports whether the
// command was acted on.
func (c *Controller) Handle(ctx context.Context, cmd Command) bool {
	switch cmd := cmd.(type) {
	case Submit:
		return c.Submit(ctx, cmd.Text)
	case RetryConnection:
		c.Probe(ctx)
		return true
	default:
		return false
	}
}

// Probe sends the canned question and sets the status to online when the
// endpoint answers with a recognised shape within the probe timeout.
func (c *Controller) Probe(ctx context.Context) Status {
	previous := c.Status()
	c.setStatus(StatusTesting)

	start := time.Now()
	_, err := c.endpoint.ask(ctx, c.request(c.cfg.ProbeQuestion), c.cfg.ProbeTimeout)
	if err != nil {
		failure := AsFailure(err)
		if failure.Kind == FailureCanceled {
			// abandoned, not a connectivity result
			c.logger.Debug("connection test cancelled")
			c.setStatus(previous)
			return previous
		}
		c.logger.Warn("connection probe failed",
			zap.String("endpoint", c.cfg.EndpointURL),
			zap.Stringer("failure", failure.Kind),
			zap.Error(err),
		)
		c.setStatus(StatusOffline)
		c.appendMessage(Message{
			Sender:  SenderSystem,
			Text:    "Connection test failed. " + failure.UserMessage(),
			IsError: true,
			Failure: failure.Kind,
		})
		return StatusOffline
	}

	c.logger.Debug("connection probe succeeded", zap.Duration("latency", time.Since(start)))
	c.setStatus(StatusOnline)
	return StatusOnline
}

// Submit asks text as a question. It is a no-op returning false when text is
// blank or another question is still in flight.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	question := strings.TrimSpace(text)
	if question == "" {
		return false
	}
	if !c.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer c.inFlight.Store(false)

	c.appendMessage(Message{Sender: SenderUser, Text: question})

	start := time.Now()
	resp, err := c.exchange(ctx, question)
	if err != nil {
		failure := AsFailure(err)
		c.logger.Warn("question failed",
			zap.Stringer("failure", failure.Kind),
			zap.Int("status_code", failure.StatusCode),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		if failure.Kind != FailureCanceled {
			c.setStatus(StatusOffline)
		}
		c.appendMessage(Message{
			Sender:  SenderBot,
			Text:    failure.UserMessage(),
			IsError: true,
			Failure: failure.Kind,
		})
		return true
	}

	c.logger.Debug("question answered",
		zap.Stringer("shape", resp.Kind),
		zap.Duration("latency", time.Since(start)),
	)
	c.setStatus(StatusOnline)
	c.Reveal(ctx, resp.Text)
	c.appendMessage(Message{Sender: SenderBot, Text: resp.Text})
	return true
}

// exchange wraps the network call with the typing indicator so it is cleared
// on every exit path.
func (c *Controller) exchange(ctx context.Context, question string) (Response, error) {
	c.view.Typing(true)
	defer c.view.Typing(false)
	return c.endpoint.ask(ctx, c.request(question), c.cfg.RequestTimeout)
}

// Reveal drives the staged rendering of text. If ctx ends early the final
// stage is shown at once.
func (c *Controller) Reveal(ctx context.Context, text string) {
	for stage := range Stages(text, c.pacing) {
		if !stage.Final && stage.Delay > 0 {
			if err := c.sleep(ctx, stage.Delay); err != nil {
				spans := Format(text)
				c.view.Revealing(Stage{Text: PlainText(spans), Spans: spans, Final: true})
				return
			}
		}
		c.view.Revealing(stage)
	}
}

func (c *Controller) request(question string) Request {
	return Request{
		Question: question,
		Context:  c.cfg.StaticContext,
		Model:    c.cfg.Model,
	}
}

func (c *Controller) appendMessage(m Message) {
	c.view.Appended(c.transcript.Append(m))
}

func (c *Controller) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
	c.view.StatusChanged(s)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
