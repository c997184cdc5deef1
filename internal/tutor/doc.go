// Package tutor is the orchestration layer between the learner-facing views
// and the AI backend.
//
// Every request follows the same path: consult the response cache, and on a
// miss pass the request gate, call the backend, relay the response, and
// write the full text to the cache once the request has completed
// successfully. Every failure leaves the service as a *generation.Error
// carrying a learner-facing message, with the single exception of caller
// cancellation, which is reported as the context error.
//
// Streaming is exposed both as an iter.Seq2 sequence of chunks (Stream) and
// as the onChunk/onComplete/onError callback contract (StreamTo). The content
// operations (Notes, PracticeTest, Flashcards, Chat, Evaluate, Diagram) build
// their prompts from the prompts package and their cache keys from
// respcache.Key.
package tutor
