// Package gate enforces minimum spacing between calls to the AI service so
// the tutor stays inside third-party rate limits.
//
// Text and JSON calls share a short general cooldown and fail fast when it
// has not elapsed; image generation has its own, longer cooldown and waits
// it out instead of failing.
package gate

import (
	"context"
	"errors"
	"time"

	"github.com/phrazzld/scry-tutor/internal/generation"
	"golang.org/x/time/rate"
)

// Default cooldowns.
const (
	DefaultGeneralCooldown = 2 * time.Second
	DefaultImageCooldown   = 15 * time.Second
)

// Config holds the cooldown for each gated category.
type Config struct {
	GeneralCooldown time.Duration
	ImageCooldown   time.Duration
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now. The clock must be monotonically
// non-decreasing.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate holds the cooldown state for one process. The zero value is not
// usable; construct with New.
type Gate struct {
	general *rate.Limiter
	image   *rate.Limiter

	generalCooldown time.Duration
	imageCooldown   time.Duration

	now func() time.Time
}

// New creates a Gate. Non-positive cooldowns fall back to the defaults.
func New(cfg Config, opts ...Option) *Gate {
	if cfg.GeneralCooldown <= 0 {
		cfg.GeneralCooldown = DefaultGeneralCooldown
	}
	if cfg.ImageCooldown <= 0 {
		cfg.ImageCooldown = DefaultImageCooldown
	}

	g := &Gate{
		general:         rate.NewLimiter(rate.Every(cfg.GeneralCooldown), 1),
		image:           rate.NewLimiter(rate.Every(cfg.ImageCooldown), 1),
		generalCooldown: cfg.GeneralCooldown,
		imageCooldown:   cfg.ImageCooldown,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckGeneral admits a text or JSON call if the general cooldown has fully
// elapsed since the last admitted call, and starts a new cooldown window.
// Otherwise it returns a *generation.Error of KindRateLimited whose
// RetryAfter is the remaining wait rounded up to whole seconds.
func (g *Gate) CheckGeneral() error {
	now := g.now()
	if g.general.AllowN(now, 1) {
		return nil
	}

	deficit := 1 - g.general.TokensAt(now)
	if deficit < 0 {
		deficit = 0
	}
	wait := time.Duration(deficit * float64(g.generalCooldown))
	return generation.RateLimitedError(wait)
}

// AwaitImage blocks until the image cooldown has elapsed since the last
// image call, then starts a new cooldown window. Concurrent callers are
// admitted one cooldown apart. If ctx ends first the reserved slot is
// released and ctx's error is returned.
func (g *Gate) AwaitImage(ctx context.Context) error {
	now := g.now()
	r := g.image.ReserveN(now, 1)
	if !r.OK() {
		return errors.New("image gate: reservation exceeds burst")
	}

	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		r.CancelAt(g.now())
		return ctx.Err()
	}
}

// GeneralCooldown returns the configured general cooldown.
func (g *Gate) GeneralCooldown() time.Duration {
	return g.generalCooldown
}

// ImageCooldown returns the configured image cooldown.
func (g *Gate) ImageCooldown() time.Duration {
	return g.imageCooldown
}
