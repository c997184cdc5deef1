// Package generation defines the boundary between the tutor core and the
// external AI/LLM service (Gemini) used to generate study notes, practice
// tests, flashcards, tutor chat replies and diagrams.
//
// The Backend interface is the port implemented by infrastructure adapters
// such as platform/gemini. Every failure that crosses this boundary is
// expressed as an *Error carrying one of a small set of Kinds, so UI-facing
// code has a single error path regardless of where a failure originated.
package generation
