package prompts

import "github.com/phrazzld/scry-tutor/internal/domain"

// NotesData feeds the notes template.
type NotesData struct {
	Coordinates     domain.Coordinates
	ExamPreferences []string
}

// PracticeTestData feeds the practice-test template.
type PracticeTestData struct {
	Section  string
	Subject  string
	Chapters []string
	Count    int
}

// FlashcardsData feeds the flashcards template.
type FlashcardsData struct {
	Coordinates domain.Coordinates
	Count       int
}

// ChatData feeds the tutor system instruction.
type ChatData struct {
	Coordinates domain.Coordinates
	LearnerName string
}

// EvaluateData feeds the answer-sheet evaluation template.
type EvaluateData struct {
	Section    string
	Subject    string
	Questions  []domain.Question
	Answers    []domain.Answer
	TotalMarks int
}

// DiagramData feeds the diagram template.
type DiagramData struct {
	Coordinates domain.Coordinates
	Topic       string
}
