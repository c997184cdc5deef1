// Package events provides types and interfaces for observing finished
// generation requests.
//
// The orchestration service emits one GenerationEvent per request, whether it
// was served from the response cache, completed by the backend, failed or was
// cancelled. Handlers receive events without the service knowing who listens,
// which keeps logging and statistics out of the request path.
//
// The primary components are:
// - GenerationEvent: the record of one finished request
// - EventHandler: interface for components that can handle events
// - EventEmitter: interface for components that can emit events
// - InMemoryEventEmitter: synchronous fan-out to registered handlers
package events
