package tutor

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/gate"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/prompts"
	"github.com/phrazzld/scry-tutor/internal/respcache"
)

// ErrMissingDependency is returned by NewService when a required dependency
// is nil.
var ErrMissingDependency = errors.New("missing service dependency")

// DefaultFallback is shown for failures no classifier rule recognizes.
const DefaultFallback = "Something went wrong while generating content. Please try again."

// StreamRequest is one orchestrated generation request.
type StreamRequest struct {
	// Kind tags the request for logs and events, e.g. "notes".
	Kind string

	// CacheKey is the deterministic key of the request. Empty disables
	// caching for this request.
	CacheKey string

	Request generation.Request

	// Fallback is the message for failures no classifier rule recognizes.
	Fallback string

	// Validate, when set, checks the full text before it is cached or
	// returned. A failure is reported instead of completion.
	Validate func(text string) error
}

func (r StreamRequest) fallback() string {
	if r.Fallback != "" {
		return r.Fallback
	}
	return DefaultFallback
}

// Sink receives the result of StreamTo. Exactly one of OnComplete and
// OnError is called unless the context is cancelled, in which case neither
// is.
type Sink interface {
	OnChunk(chunk string)
	OnComplete(full string)
	OnError(err *generation.Error)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are skipped.
type SinkFuncs struct {
	Chunk    func(chunk string)
	Complete func(full string)
	Error    func(err *generation.Error)
}

// OnChunk implements Sink.
func (f SinkFuncs) OnChunk(chunk string) {
	if f.Chunk != nil {
		f.Chunk(chunk)
	}
}

// OnComplete implements Sink.
func (f SinkFuncs) OnComplete(full string) {
	if f.Complete != nil {
		f.Complete(full)
	}
}

// OnError implements Sink.
func (f SinkFuncs) OnError(err *generation.Error) {
	if f.Error != nil {
		f.Error(err)
	}
}

// Deps are the collaborators of a Service. Events is optional.
type Deps struct {
	Backend generation.Backend
	Gate    *gate.Gate
	Cache   *respcache.Cache
	Prompts *prompts.Set
	Logger  *slog.Logger
	Events  events.EventEmitter
}

// Service orchestrates generation requests. It is safe for concurrent use;
// concurrent requests never share state beyond the gate and the cache.
type Service struct {
	backend generation.Backend
	gate    *gate.Gate
	cache   *respcache.Cache
	prompts *prompts.Set
	logger  *slog.Logger
	events  events.EventEmitter
}

// NewService creates a Service.
func NewService(deps Deps) (*Service, error) {
	switch {
	case deps.Backend == nil:
		return nil, fmt.Errorf("%w: backend", ErrMissingDependency)
	case deps.Gate == nil:
		return nil, fmt.Errorf("%w: gate", ErrMissingDependency)
	case deps.Cache == nil:
		return nil, fmt.Errorf("%w: cache", ErrMissingDependency)
	case deps.Prompts == nil:
		return nil, fmt.Errorf("%w: prompts", ErrMissingDependency)
	case deps.Logger == nil:
		return nil, fmt.Errorf("%w: logger", ErrMissingDependency)
	}

	emitter := deps.Events
	if emitter == nil {
		emitter = events.Discard
	}

	return &Service{
		backend: deps.Backend,
		gate:    deps.Gate,
		cache:   deps.Cache,
		prompts: deps.Prompts,
		logger:  deps.Logger.With("component", "tutor"),
		events:  emitter,
	}, nil
}

// Stream runs req and yields the response as chunks in arrival order.
//
// A cache hit yields the full cached text once, without touching the gate or
// the backend. On a miss the general gate is checked first; a rejection is
// yielded as a RateLimited error. The sequence ends after the first error.
// Errors are *generation.Error values except for cancellation, which yields
// the context error. The full text is written to the cache only after the
// backend stream has ended successfully; breaking out of the loop or
// cancelling ctx aborts the backend stream and skips the write.
func (s *Service) Stream(ctx context.Context, req StreamRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ev := s.begin(req)
		defer s.finish(ctx, ev)

		if text, ok := s.cachedText(ctx, req); ok {
			ev.CacheHit = true
			ev.Outcome = events.OutcomeCompleted
			ev.Chunks, ev.Bytes = 1, len(text)
			yield(text, nil)
			return
		}

		if err := s.gate.CheckGeneral(); err != nil {
			yield("", s.fail(ctx, ev, req, err))
			return
		}

		var acc strings.Builder
		for chunk, err := range s.backend.Stream(ctx, req.Request) {
			if err != nil {
				if cerr := ctx.Err(); cerr != nil {
					s.cancel(ctx, ev)
					yield("", cerr)
					return
				}
				yield("", s.fail(ctx, ev, req, err))
				return
			}

			acc.WriteString(chunk)
			ev.Chunks++
			ev.Bytes = acc.Len()
			if !yield(chunk, nil) {
				s.cancel(ctx, ev)
				return
			}
		}

		if err := ctx.Err(); err != nil {
			s.cancel(ctx, ev)
			yield("", err)
			return
		}

		full := acc.String()
		if req.Validate != nil {
			if err := req.Validate(full); err != nil {
				yield("", s.fail(ctx, ev, req, err))
				return
			}
		}
		s.complete(ctx, ev, req, full)
	}
}

// StreamTo runs req with the callback contract. It returns the error passed
// to OnError, the context error on cancellation, or nil after OnComplete.
func (s *Service) StreamTo(ctx context.Context, req StreamRequest, sink Sink) error {
	var acc strings.Builder
	for chunk, err := range s.Stream(ctx, req) {
		if err != nil {
			var genErr *generation.Error
			if !errors.As(err, &genErr) {
				return err
			}
			sink.OnError(genErr)
			return genErr
		}
		acc.WriteString(chunk)
		sink.OnChunk(chunk)
	}
	sink.OnComplete(acc.String())
	return nil
}

// Generate runs req as a single-shot call with the same cache and gate
// rules as Stream.
func (s *Service) Generate(ctx context.Context, req StreamRequest) (string, error) {
	ev := s.begin(req)
	defer s.finish(ctx, ev)

	if text, ok := s.cachedText(ctx, req); ok {
		ev.CacheHit = true
		ev.Outcome = events.OutcomeCompleted
		ev.Chunks, ev.Bytes = 1, len(text)
		return text, nil
	}

	if err := s.gate.CheckGeneral(); err != nil {
		return "", s.fail(ctx, ev, req, err)
	}

	text, err := s.backend.Generate(ctx, req.Request)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			s.cancel(ctx, ev)
			return "", cerr
		}
		return "", s.fail(ctx, ev, req, err)
	}
	ev.Chunks, ev.Bytes = 1, len(text)

	if req.Validate != nil {
		if err := req.Validate(text); err != nil {
			return "", s.fail(ctx, ev, req, err)
		}
	}
	s.complete(ctx, ev, req, text)
	return text, nil
}

func (s *Service) cachedText(ctx context.Context, req StreamRequest) (string, bool) {
	if req.CacheKey == "" {
		return "", false
	}
	text, ok := s.cache.Get(ctx, req.CacheKey)
	if ok {
		s.logger.DebugContext(ctx, "serving from cache",
			"kind", req.Kind,
			"cache_key", req.CacheKey)
	}
	return text, ok
}

type pendingEvent struct {
	*events.GenerationEvent
	start time.Time
}

func (s *Service) begin(req StreamRequest) *pendingEvent {
	return &pendingEvent{
		GenerationEvent: events.NewGenerationEvent(req.Kind, req.CacheKey),
		start:           time.Now(),
	}
}

func (s *Service) finish(ctx context.Context, ev *pendingEvent) {
	ev.Duration = time.Since(ev.start)
	if ev.Outcome == "" {
		ev.Outcome = events.OutcomeCancelled
	}
	if err := s.events.EmitEvent(context.WithoutCancel(ctx), ev.GenerationEvent); err != nil {
		s.logger.WarnContext(ctx, "failed to emit generation event", "error", err)
	}
}

func (s *Service) complete(ctx context.Context, ev *pendingEvent, req StreamRequest, full string) {
	if req.CacheKey != "" {
		ev.Cached = s.cache.Put(ctx, req.CacheKey, full)
	}
	ev.Outcome = events.OutcomeCompleted
	s.logger.InfoContext(ctx, "generation complete",
		"kind", req.Kind,
		"length", len(full),
		"cached", ev.Cached)
}

func (s *Service) fail(ctx context.Context, ev *pendingEvent, req StreamRequest, err error) *generation.Error {
	classified := generation.Classify(err, req.fallback())
	ev.Outcome = events.OutcomeFailed
	ev.ErrorKind = classified.Kind.String()

	level := slog.LevelWarn
	if classified.Kind == generation.KindUnknown {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "generation failed",
		"kind", req.Kind,
		"error_kind", classified.Kind.String(),
		"error", err)
	return classified
}

func (s *Service) cancel(ctx context.Context, ev *pendingEvent) {
	ev.Outcome = events.OutcomeCancelled
	s.logger.DebugContext(ctx, "generation cancelled", "kind", ev.Kind, "chunks", ev.Chunks)
}
