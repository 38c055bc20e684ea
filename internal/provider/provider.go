// Package provider answers CV questions with a language model. Credentials
// stay in this package, on the server.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Zachkp/zach-dev/internal/config"
)

type Provider interface {
	Name() string
	Model() string
	// Answer replies to question using only cv as knowledge.
	Answer(ctx context.Context, question, cv string) (string, error)
}

// ErrEmptyAnswer is returned when the model produced no text.
var ErrEmptyAnswer = errors.New("provider returned an empty answer")

// SystemPrompt instructs the model to stay within the CV.
func SystemPrompt(cv string) string {
	var b strings.Builder
	b.WriteString("You are the assistant on a personal portfolio website. ")
	b.WriteString("Answer visitors' questions using only the CV below. ")
	b.WriteString("If the CV does not contain the answer, say so briefly. ")
	b.WriteString("Reply in the language of the question and keep answers short.\n\n")
	b.WriteString("CV:\n")
	b.WriteString(cv)
	return b.String()
}

// FromConfig picks OpenRouter, then Gemini, then the mock, depending on
// which keys are configured.
func FromConfig(cfg *config.Server, logger *zap.Logger) (Provider, error) {
	if cfg.OpenRouterKey != "" {
		p := NewOpenRouter(cfg.OpenRouterKey, cfg.OpenRouterBaseURL, cfg.OpenRouterModel, cfg.SiteURL, cfg.SiteTitle)
		logger.Info("using OpenRouter provider", zap.String("model", p.Model()))
		return p, nil
	}
	if cfg.GeminiKey != "" {
		p, err := NewGemini(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("gemini provider: %w", err)
		}
		logger.Info("using Gemini provider", zap.String("model", p.Model()))
		return p, nil
	}
	logger.Warn("no provider key configured, answering with the mock provider")
	return Mock{}, nil
}

// Mock answers without any external API, for development and tests.
type Mock struct{}

func (Mock) Name() string  { return "mock" }
func (Mock) Model() string { return "mock-cv-assistant" }

func (Mock) Answer(_ context.Context, question, cv string) (string, error) {
	first := cv
	if i := strings.IndexByte(cv, '\n'); i >= 0 {
		first = cv[:i]
	}
	first = strings.TrimSpace(first)
	if first == "" {
		return "(mock) I have no CV loaded, so I cannot answer: \"" + question + "\"", nil
	}
	return "(mock) You asked: \"" + question + "\". The CV starts with **" + first + "**.", nil
}
