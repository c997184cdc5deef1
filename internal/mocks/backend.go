package mocks

import (
	"context"
	"iter"
	"sync"

	"github.com/phrazzld/scry-tutor/internal/generation"
)

// MockBackend implements generation.Backend for testing.
type MockBackend struct {
	// Fn fields override the default behavior when set.
	GenerateFn      func(ctx context.Context, req generation.Request) (string, error)
	StreamFn        func(ctx context.Context, req generation.Request) iter.Seq2[string, error]
	GenerateImageFn func(ctx context.Context, req generation.ImageRequest) (*generation.Image, error)

	// Default response values. Stream yields Chunks, or Text as a single
	// chunk when Chunks is empty, followed by Err if set.
	Text   string
	Chunks []string
	Image  *generation.Image
	Err    error

	mu            sync.Mutex
	requests      []generation.Request
	imageRequests []generation.ImageRequest
}

var _ generation.Backend = (*MockBackend)(nil)

// NewMockBackendWithText creates a MockBackend that answers every text
// request with text.
func NewMockBackendWithText(text string) *MockBackend {
	return &MockBackend{Text: text}
}

// NewMockBackendWithError creates a MockBackend whose calls fail with err.
func NewMockBackendWithError(err error) *MockBackend {
	return &MockBackend{Err: err}
}

// Generate implements generation.Backend.
func (m *MockBackend) Generate(ctx context.Context, req generation.Request) (string, error) {
	m.record(req)
	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	return m.Text, nil
}

// Stream implements generation.Backend.
func (m *MockBackend) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	m.record(req)
	if m.StreamFn != nil {
		return m.StreamFn(ctx, req)
	}

	chunks := m.Chunks
	if len(chunks) == 0 && m.Text != "" {
		chunks = []string{m.Text}
	}
	return func(yield func(string, error) bool) {
		for _, c := range chunks {
			if !yield(c, nil) {
				return
			}
		}
		if m.Err != nil {
			yield("", m.Err)
		}
	}
}

// GenerateImage implements generation.Backend.
func (m *MockBackend) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	m.mu.Lock()
	m.imageRequests = append(m.imageRequests, req)
	m.mu.Unlock()

	if m.GenerateImageFn != nil {
		return m.GenerateImageFn(ctx, req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Image, nil
}

func (m *MockBackend) record(req generation.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Requests returns the text requests received so far, in order.
func (m *MockBackend) Requests() []generation.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.Request(nil), m.requests...)
}

// ImageRequests returns the image requests received so far, in order.
func (m *MockBackend) ImageRequests() []generation.ImageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]generation.ImageRequest(nil), m.imageRequests...)
}

// CallCount returns the number of text and image calls.
func (m *MockBackend) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests) + len(m.imageRequests)
}
