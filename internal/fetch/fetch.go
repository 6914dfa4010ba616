// Package fetch retrieves readable text for a job posting page.
package fetch

import (
	"context"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// MinPrimaryLength is the shortest primary result accepted without trying the fallback.
	MinPrimaryLength = 800
	// FallbackTimeout bounds the raw HTTP fallback request.
	FallbackTimeout = 20 * time.Second
	// DefaultUserAgent is sent when no user agent is configured.
	DefaultUserAgent = "Mozilla/5.0"
)

// Strategy is one way of turning a URL into page text.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, url string) (string, error)
}

// Fetcher tries the primary strategy and falls back to the secondary one
// when the primary fails or returns too little text.
type Fetcher struct {
	primary  Strategy
	fallback Strategy
	logger   *zap.Logger
}

// New returns a Fetcher. A nil fallback disables the second stage.
func New(primary, fallback Strategy, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{primary: primary, fallback: fallback, logger: logger}
}

// Fetch never fails: errors from either stage are logged and treated as no text.
// The result may be empty or short; callers decide whether it is usable.
func (f *Fetcher) Fetch(ctx context.Context, url string) string {
	text := f.try(ctx, f.primary, url)
	if utf8.RuneCountInString(text) >= MinPrimaryLength || f.fallback == nil {
		return text
	}

	f.logger.Debug("primary text too short, trying fallback",
		zap.String("url", url),
		zap.Int("length", utf8.RuneCountInString(text)),
		zap.String("fallback", f.fallback.Name()),
	)

	if fallback, ok := f.run(ctx, f.fallback, url); ok {
		return fallback
	}
	return text
}

func (f *Fetcher) try(ctx context.Context, s Strategy, url string) string {
	if s == nil {
		return ""
	}
	text, _ := f.run(ctx, s, url)
	return text
}

func (f *Fetcher) run(ctx context.Context, s Strategy, url string) (string, bool) {
	text, err := s.Fetch(ctx, url)
	if err != nil {
		f.logger.Warn("fetch failed",
			zap.String("strategy", s.Name()),
			zap.String("url", url),
			zap.Error(err),
		)
		return "", false
	}

	f.logger.Info("fetched page text",
		zap.String("strategy", s.Name()),
		zap.Int("length", utf8.RuneCountInString(text)),
	)
	return text, true
}
