package tutor_test

import (
	"context"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/gate"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/platform/logger"
	"github.com/phrazzld/scry-tutor/internal/platform/memstore"
	"github.com/phrazzld/scry-tutor/internal/prompts"
	"github.com/phrazzld/scry-tutor/internal/respcache"
	"github.com/phrazzld/scry-tutor/internal/tutor"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockBackend is a testify mock of generation.Backend.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Generate(ctx context.Context, req generation.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockBackend) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	args := m.Called(ctx, req)
	return args.Get(0).(iter.Seq2[string, error])
}

func (m *mockBackend) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	args := m.Called(ctx, req)
	img, _ := args.Get(0).(*generation.Image)
	return img, args.Error(1)
}

// chunks returns a stream that yields parts in order.
func chunks(parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
	}
}

// failingStream yields parts and then err.
func failingStream(err error, parts ...string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, p := range parts {
			if !yield(p, nil) {
				return
			}
		}
		yield("", err)
	}
}

// fakeClock is a manually advanced clock for the general gate.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const generalCooldown = 2 * time.Second

type fixture struct {
	svc      *tutor.Service
	backend  *mockBackend
	clock    *fakeClock
	cache    *respcache.Cache
	recorder *events.Recorder
	logs     *logger.TestLogBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, logs := logger.GetTestLogger(t)
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	backend := &mockBackend{}
	store := memstore.New(memstore.Options{})
	t.Cleanup(func() { _ = store.Close() })

	cache := respcache.New(store, log)
	recorder := &events.Recorder{}

	svc, err := tutor.NewService(tutor.Deps{
		Backend: backend,
		Gate: gate.New(gate.Config{
			GeneralCooldown: generalCooldown,
			ImageCooldown:   time.Second,
		}, gate.WithClock(clock.Now)),
		Cache:   cache,
		Prompts: prompts.MustLoad(""),
		Logger:  log,
		Events:  recorder,
	})
	require.NoError(t, err)

	return &fixture{
		svc:      svc,
		backend:  backend,
		clock:    clock,
		cache:    cache,
		recorder: recorder,
		logs:     logs,
	}
}

// sinkRecorder captures StreamTo callbacks.
type sinkRecorder struct {
	chunks    []string
	completes []string
	errs      []*generation.Error
}

func (r *sinkRecorder) OnChunk(chunk string)          { r.chunks = append(r.chunks, chunk) }
func (r *sinkRecorder) OnComplete(full string)        { r.completes = append(r.completes, full) }
func (r *sinkRecorder) OnError(err *generation.Error) { r.errs = append(r.errs, err) }
