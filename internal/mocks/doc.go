// Package mocks provides centralized mock implementations for testing.
//
// Mocks use function fields for per-test behavior, default response values
// for the common case, and record every call for verification:
//
//	backend := mocks.NewMockBackendWithText("Hello world")
//	svc, _ := tutor.NewService(tutor.Deps{Backend: backend, ...})
//	// ...
//	assert.Equal(t, 1, backend.CallCount())
package mocks
