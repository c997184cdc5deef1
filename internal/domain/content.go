package domain

import (
	"fmt"
	"strings"
)

// Flashcard is a single generated flashcard.
type Flashcard struct {
	Front string   `json:"front"`
	Back  string   `json:"back"`
	Hint  string   `json:"hint,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// Validate checks that both sides are present.
func (f Flashcard) Validate() error {
	if strings.TrimSpace(f.Front) == "" {
		return fmt.Errorf("%w: flashcard front cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(f.Back) == "" {
		return fmt.Errorf("%w: flashcard back cannot be empty", ErrValidation)
	}
	return nil
}

// Question is a multiple-choice practice test question.
type Question struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
	Chapter     string   `json:"chapter,omitempty"`
	Marks       int      `json:"marks,omitempty"`
}

// Validate checks that the question has options and that the answer is one
// of them.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text cannot be empty", ErrValidation)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: question needs at least two options", ErrValidation)
	}
	for _, o := range q.Options {
		if o == q.Answer {
			return nil
		}
	}
	return fmt.Errorf("%w: answer %q is not one of the options", ErrValidation, q.Answer)
}

// MarksOrDefault returns the question's marks, counting unmarked questions
// as one.
func (q Question) MarksOrDefault() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// Answer is a learner's response to one question of a practice test.
type Answer struct {
	QuestionIndex int    `json:"question_index"`
	Response      string `json:"response"`
}

// ScoreReport is the machine-readable summary that ends a test evaluation.
type ScoreReport struct {
	Score      int      `json:"score"`
	TotalMarks int      `json:"totalMarks"`
	Strengths  []string `json:"strengths,omitempty"`
	Weaknesses []string `json:"weaknesses,omitempty"`
}

// Percent returns the score as a percentage of total marks.
func (r ScoreReport) Percent() float64 {
	if r.TotalMarks <= 0 {
		return 0
	}
	return float64(r.Score) * 100 / float64(r.TotalMarks)
}

// ChatRole is the speaker of a chat message.
type ChatRole string

// Chat roles.
const (
	RoleLearner ChatRole = "user"
	RoleTutor   ChatRole = "model"
)

// ChatMessage is one turn of a tutor conversation.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
