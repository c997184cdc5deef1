package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockEventHandler counts the events it receives.
type MockEventHandler struct {
	mu           sync.Mutex
	HandledCount int
	LastEvent    *GenerationEvent
	HandlerError error
}

func (m *MockEventHandler) HandleEvent(_ context.Context, event *GenerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.HandledCount++
	m.LastEvent = event
	return m.HandlerError
}

func TestInMemoryEventEmitter(t *testing.T) {
	// Create a minimal logger that discards output
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		err := emitter.EmitEvent(context.Background(), NewGenerationEvent("notes", "k"))
		assert.NoError(t, err)
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event := NewGenerationEvent("notes", "k")
		require.NoError(t, emitter.EmitEvent(context.Background(), event))

		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Same(t, event, handler1.LastEvent)
		assert.Same(t, event, handler2.LastEvent)
	})

	t.Run("emit event with failing handler", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)

		successHandler := &MockEventHandler{}
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		laterHandler := &MockEventHandler{}

		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)
		emitter.RegisterHandler(laterHandler)

		err := emitter.EmitEvent(context.Background(), NewGenerationEvent("chat", ""))
		require.Error(t, err)
		assert.Equal(t, "handler error", err.Error())

		// Every handler still saw the event
		assert.Equal(t, 1, failingHandler.HandledCount)
		assert.Equal(t, 1, successHandler.HandledCount)
		assert.Equal(t, 1, laterHandler.HandledCount)
	})

	t.Run("handler func", func(t *testing.T) {
		emitter := NewInMemoryEventEmitter(log)
		var kinds []string
		emitter.RegisterHandler(HandlerFunc(func(_ context.Context, e *GenerationEvent) error {
			kinds = append(kinds, e.Kind)
			return nil
		}))

		require.NoError(t, emitter.EmitEvent(context.Background(), NewGenerationEvent("notes", "")))
		require.NoError(t, emitter.EmitEvent(context.Background(), NewGenerationEvent("diagram", "")))
		assert.Equal(t, []string{"notes", "diagram"}, kinds)
	})
}

func TestLogHandler(t *testing.T) {
	t.Parallel()

	log, buf := logger.GetTestLogger(t)
	h := NewLogHandler(log)

	ok := NewGenerationEvent("notes", "notes|Class%2010")
	ok.Outcome = OutcomeCompleted
	ok.CacheHit = true
	ok.Duration = 1500 * time.Millisecond

	failed := NewGenerationEvent("practice_test", "")
	failed.Outcome = OutcomeFailed
	failed.ErrorKind = "quota_exhausted"

	require.NoError(t, h.HandleEvent(context.Background(), ok))
	require.NoError(t, h.HandleEvent(context.Background(), failed))

	entries := buf.FindByMessage("generation finished")
	require.Len(t, entries, 2)

	assert.Equal(t, "INFO", entries[0]["level"])
	assert.Equal(t, "notes", entries[0]["kind"])
	assert.Equal(t, true, entries[0]["cache_hit"])
	assert.Equal(t, float64(1500), entries[0]["duration_ms"])
	assert.Equal(t, "generation_events", entries[0]["component"])

	assert.Equal(t, "WARN", entries[1]["level"])
	assert.Equal(t, "quota_exhausted", entries[1]["error_kind"])
}

func TestRecorder(t *testing.T) {
	t.Parallel()

	var r Recorder
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.EmitEvent(context.Background(), NewGenerationEvent("notes", ""))
		}()
	}
	wg.Wait()

	got := r.Events()
	assert.Len(t, got, 20)

	// Events returns a copy
	got[0].Kind = "changed"
	assert.Equal(t, "notes", r.Events()[0].Kind)
}
