// Package domain contains the study entities the tutor works with:
// curriculum coordinates, learner profiles, and the structured content the
// AI service produces (flashcards, practice questions, score reports).
// It is independent of any AI backend or storage mechanism.
package domain
