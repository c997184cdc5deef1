package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/events"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/normalize"
	"github.com/phrazzld/scry-tutor/internal/prompts"
	"github.com/phrazzld/scry-tutor/internal/respcache"
)

// Request kinds. They double as cache key tags.
const (
	KindNotes        = "notes"
	KindPracticeTest = "practice_test"
	KindFlashcards   = "flashcards"
	KindChat         = "chat"
	KindEvaluate     = "evaluate"
	KindDiagram      = "diagram"
)

// Item count limits for structured content.
const (
	MinItems = 1
	MaxItems = 50
)

// Fallback messages per operation.
const (
	fallbackNotes      = "Failed to generate notes. Please try again."
	fallbackTest       = "Failed to generate the practice test. Please try again."
	fallbackFlashcards = "Failed to generate flashcards. Please try again."
	fallbackChat       = "The tutor could not answer right now. Please try again."
	fallbackEvaluate   = "Failed to evaluate the answers. Please try again."
	fallbackDiagram    = "Failed to generate the diagram. Please try again."
)

const scoreReportField = "final_score_report"

// NotesInput selects the chapter to write notes for.
type NotesInput struct {
	Coordinates domain.Coordinates
	Profile     domain.Profile
}

// PracticeTestInput selects the chapters and size of a practice test.
type PracticeTestInput struct {
	Section  string
	Subject  string
	Chapters []string
	Count    int
}

// FlashcardsInput selects the chapter and number of flashcards.
type FlashcardsInput struct {
	Coordinates domain.Coordinates
	Count       int
}

// ChatInput is one learner message with the conversation so far.
type ChatInput struct {
	Coordinates domain.Coordinates
	LearnerName string
	History     []domain.ChatMessage
	Message     string
}

// EvaluateInput is a completed answer sheet.
type EvaluateInput struct {
	Section   string
	Subject   string
	Questions []domain.Question
	Answers   []domain.Answer
}

// DiagramInput describes the diagram to draw.
type DiagramInput struct {
	Coordinates domain.Coordinates
	Topic       string
}

// invalidInput reports a caller mistake with the validation text as the
// learner-facing message.
func invalidInput(err error) *generation.Error {
	return &generation.Error{Message: err.Error(), Err: err}
}

func checkCount(n int) error {
	if n < MinItems || n > MaxItems {
		return fmt.Errorf("%w: %d is outside %d..%d", domain.ErrInvalidCount, n, MinItems, MaxItems)
	}
	return nil
}

func (s *Service) render(name prompts.Name, data any) (string, error) {
	prompt, err := s.prompts.Render(name, data)
	if err != nil {
		return "", &generation.Error{Message: DefaultFallback, Err: err}
	}
	return prompt, nil
}

// failed yields a single error.
func failed(err error) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

// NotesRequest builds the streamed notes request. The cache key covers the
// curriculum coordinates and the learner's exam-preference fingerprint.
func (s *Service) NotesRequest(in NotesInput) (StreamRequest, error) {
	if err := in.Coordinates.Validate(); err != nil {
		return StreamRequest{}, invalidInput(err)
	}
	if strings.TrimSpace(in.Coordinates.Chapter) == "" {
		return StreamRequest{}, invalidInput(fmt.Errorf("%w: chapter cannot be empty", domain.ErrValidation))
	}

	prefs := domain.NormalizeSet(in.Profile.ExamPreferences, false)
	prompt, err := s.render(prompts.Notes, prompts.NotesData{
		Coordinates:     in.Coordinates,
		ExamPreferences: prefs,
	})
	if err != nil {
		return StreamRequest{}, err
	}

	key := respcache.NewKey(KindNotes, in.Coordinates).WithFingerprint(in.Profile.Fingerprint())
	return StreamRequest{
		Kind:     KindNotes,
		CacheKey: key.String(),
		Request:  generation.Request{Prompt: prompt},
		Fallback: fallbackNotes,
	}, nil
}

// Notes streams revision notes for a chapter.
func (s *Service) Notes(ctx context.Context, in NotesInput) iter.Seq2[string, error] {
	req, err := s.NotesRequest(in)
	if err != nil {
		return failed(err)
	}
	return s.Stream(ctx, req)
}

// PracticeTest generates a multiple-choice test. The chapter list is
// normalized so that the same selection in any order shares a cache entry.
func (s *Service) PracticeTest(ctx context.Context, in PracticeTestInput) ([]domain.Question, error) {
	coords := domain.Coordinates{Section: in.Section, Subject: in.Subject}
	if err := coords.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	chapters := domain.NormalizeSet(in.Chapters, false)
	if len(chapters) == 0 {
		return nil, invalidInput(fmt.Errorf("%w: select at least one chapter", domain.ErrValidation))
	}
	if err := checkCount(in.Count); err != nil {
		return nil, invalidInput(err)
	}

	prompt, err := s.render(prompts.PracticeTest, prompts.PracticeTestData{
		Section:  in.Section,
		Subject:  in.Subject,
		Chapters: chapters,
		Count:    in.Count,
	})
	if err != nil {
		return nil, err
	}

	key := respcache.NewKey(KindPracticeTest, coords).WithChapters(chapters).WithInt("count", in.Count)
	text, err := s.Generate(ctx, StreamRequest{
		Kind:     KindPracticeTest,
		CacheKey: key.String(),
		Request:  generation.Request{Prompt: prompt, JSON: true, Schema: questionsSchema},
		Fallback: fallbackTest,
		Validate: func(text string) error {
			_, err := decodeQuestions(text)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	questions, err := decodeQuestions(text)
	if err != nil {
		return nil, generation.Classify(err, fallbackTest)
	}
	return questions, nil
}

func decodeQuestions(text string) ([]domain.Question, error) {
	var questions []domain.Question
	if err := questionsValidator.Decode(text, &questions); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, malformed("no questions in response")
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, malformed("question %d: %v", i, err)
		}
	}
	return questions, nil
}

// Flashcards generates flashcards for a chapter.
func (s *Service) Flashcards(ctx context.Context, in FlashcardsInput) ([]domain.Flashcard, error) {
	if err := in.Coordinates.Validate(); err != nil {
		return nil, invalidInput(err)
	}
	if err := checkCount(in.Count); err != nil {
		return nil, invalidInput(err)
	}

	prompt, err := s.render(prompts.Flashcards, prompts.FlashcardsData{
		Coordinates: in.Coordinates,
		Count:       in.Count,
	})
	if err != nil {
		return nil, err
	}

	key := respcache.NewKey(KindFlashcards, in.Coordinates).WithInt("count", in.Count)
	text, err := s.Generate(ctx, StreamRequest{
		Kind:     KindFlashcards,
		CacheKey: key.String(),
		Request:  generation.Request{Prompt: prompt, JSON: true, Schema: flashcardsSchema},
		Fallback: fallbackFlashcards,
		Validate: func(text string) error {
			_, err := decodeFlashcards(text)
			return err
		},
	})
	if err != nil {
		return nil, err
	}

	cards, err := decodeFlashcards(text)
	if err != nil {
		return nil, generation.Classify(err, fallbackFlashcards)
	}
	return cards, nil
}

func decodeFlashcards(text string) ([]domain.Flashcard, error) {
	var cards []domain.Flashcard
	if err := flashcardsValidator.Decode(text, &cards); err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, malformed("no flashcards in response")
	}
	for i, c := range cards {
		if err := c.Validate(); err != nil {
			return nil, malformed("flashcard %d: %v", i, err)
		}
	}
	return cards, nil
}

func malformed(format string, args ...any) error {
	return generation.NewError(generation.KindMalformedResponse,
		fmt.Errorf("%w: "+format, append([]any{generation.ErrMalformedResponse}, args...)...))
}

// ChatRequest builds the streamed tutor reply. Chat is never cached.
func (s *Service) ChatRequest(in ChatInput) (StreamRequest, error) {
	if strings.TrimSpace(in.Message) == "" {
		return StreamRequest{}, invalidInput(domain.ErrEmptyContent)
	}
	if err := in.Coordinates.Validate(); err != nil {
		return StreamRequest{}, invalidInput(err)
	}

	system, err := s.render(prompts.Chat, prompts.ChatData{
		Coordinates: in.Coordinates,
		LearnerName: in.LearnerName,
	})
	if err != nil {
		return StreamRequest{}, err
	}

	history := make([]generation.Turn, 0, len(in.History))
	for _, m := range in.History {
		role := generation.RoleUser
		if m.Role == domain.RoleTutor {
			role = generation.RoleModel
		}
		history = append(history, generation.Turn{Role: role, Text: m.Text})
	}

	return StreamRequest{
		Kind: KindChat,
		Request: generation.Request{
			Prompt:            in.Message,
			SystemInstruction: system,
			History:           history,
		},
		Fallback: fallbackChat,
	}, nil
}

// Chat streams the tutor's reply to the learner's message.
func (s *Service) Chat(ctx context.Context, in ChatInput) iter.Seq2[string, error] {
	req, err := s.ChatRequest(in)
	if err != nil {
		return failed(err)
	}
	return s.Stream(ctx, req)
}

// EvaluateRequest builds the streamed answer-sheet evaluation. The response
// ends with a final_score_report object; see ParseScoreReport. Evaluations
// depend on the learner's answers and are not cached.
func (s *Service) EvaluateRequest(in EvaluateInput) (StreamRequest, error) {
	coords := domain.Coordinates{Section: in.Section, Subject: in.Subject}
	if err := coords.Validate(); err != nil {
		return StreamRequest{}, invalidInput(err)
	}
	if len(in.Questions) == 0 {
		return StreamRequest{}, invalidInput(fmt.Errorf("%w: no questions to evaluate", domain.ErrValidation))
	}
	for _, a := range in.Answers {
		if a.QuestionIndex < 0 || a.QuestionIndex >= len(in.Questions) {
			return StreamRequest{}, invalidInput(fmt.Errorf("%w: answer for unknown question %d",
				domain.ErrValidation, a.QuestionIndex))
		}
	}

	total := 0
	for _, q := range in.Questions {
		total += q.MarksOrDefault()
	}

	prompt, err := s.render(prompts.Evaluate, prompts.EvaluateData{
		Section:    in.Section,
		Subject:    in.Subject,
		Questions:  in.Questions,
		Answers:    in.Answers,
		TotalMarks: total,
	})
	if err != nil {
		return StreamRequest{}, err
	}

	return StreamRequest{
		Kind:     KindEvaluate,
		Request:  generation.Request{Prompt: prompt},
		Fallback: fallbackEvaluate,
	}, nil
}

// Evaluate streams the evaluation of an answer sheet.
func (s *Service) Evaluate(ctx context.Context, in EvaluateInput) iter.Seq2[string, error] {
	req, err := s.EvaluateRequest(in)
	if err != nil {
		return failed(err)
	}
	return s.Stream(ctx, req)
}

// ParseScoreReport reads the trailing final_score_report object of an
// evaluation. An absent or unreadable report is logged as "score
// unavailable" and reported with ok=false.
func (s *Service) ParseScoreReport(ctx context.Context, text string) (domain.ScoreReport, bool) {
	var wrapper map[string]json.RawMessage
	if normalize.DecodeTrailingReport(text, &wrapper) {
		var report domain.ScoreReport
		if raw, ok := wrapper[scoreReportField]; ok && json.Unmarshal(raw, &report) == nil {
			return report, true
		}
	}
	s.logger.WarnContext(ctx, "score unavailable",
		"kind", KindEvaluate,
		"length", len(text))
	return domain.ScoreReport{}, false
}

// Diagram generates an explanatory image. Image calls wait for the image
// cooldown instead of failing fast, and are not cached.
func (s *Service) Diagram(ctx context.Context, in DiagramInput) (*generation.Image, error) {
	if strings.TrimSpace(in.Topic) == "" {
		return nil, invalidInput(fmt.Errorf("%w: diagram topic cannot be empty", domain.ErrValidation))
	}
	if err := in.Coordinates.Validate(); err != nil {
		return nil, invalidInput(err)
	}

	prompt, err := s.render(prompts.Diagram, prompts.DiagramData{
		Coordinates: in.Coordinates,
		Topic:       in.Topic,
	})
	if err != nil {
		return nil, err
	}

	req := StreamRequest{Kind: KindDiagram, Fallback: fallbackDiagram}
	ev := s.begin(req)
	defer s.finish(ctx, ev)

	s.logger.DebugContext(ctx, "waiting for image gate", "cooldown", s.gate.ImageCooldown())
	start := time.Now()
	if err := s.gate.AwaitImage(ctx); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			s.cancel(ctx, ev)
			return nil, cerr
		}
		return nil, s.fail(ctx, ev, req, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		s.logger.InfoContext(ctx, "image gate released", "waited_ms", waited.Milliseconds())
	}

	img, err := s.backend.GenerateImage(ctx, generation.ImageRequest{Prompt: prompt})
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			s.cancel(ctx, ev)
			return nil, cerr
		}
		return nil, s.fail(ctx, ev, req, err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, s.fail(ctx, ev, req, malformed("empty image"))
	}

	ev.Outcome = events.OutcomeCompleted
	ev.Chunks, ev.Bytes = 1, len(img.Data)
	return img, nil
}

// IsCancelled reports whether err is the result of the caller cancelling
// the request rather than a generation failure.
func IsCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
