// Package gemini provides an implementation of the generation.Backend
// interface that uses Google's Gemini API for text, structured JSON and image
// generation.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the orchestration layer to Google's external Gemini AI service.
// It translates between generation.Request values and the genai client types
// without exposing the details of the external service to the core
// application.
//
// Key components:
//
// 1. Backend:
//   - Implements the generation.Backend interface
//   - Single-shot Generate, incremental Stream and GenerateImage
//   - Fails at construction with generation.ErrNotConfigured when no API key
//     is available
//
// 2. Request conversion:
//   - Prompt, optional inline image and system instruction become genai
//     contents
//   - generation.Schema becomes a genai.Schema for structured output
//
// 3. Error handling:
//   - genai.APIError codes and statuses are mapped to generation kinds
//   - Transport failures become KindNetworkFailure
//   - Safety blocks become ErrContentBlocked with a learner-facing message
//   - Nothing is retried here; retries are always user-initiated
package gemini
