package tutor_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/tutor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var physics = domain.Coordinates{Section: "Class 11", Subject: "Physics", Chapter: "Kinematics"}

const questionsJSON = `[
  {"question": "Unit of velocity?", "options": ["m/s", "m", "s", "kg"], "answer": "m/s", "marks": 2},
  {"question": "Slope of x-t graph?", "options": ["acceleration", "velocity", "jerk", "mass"], "answer": "velocity"}
]`

func collect(t *testing.T, seq func(yield func(string, error) bool)) (string, error) {
	t.Helper()
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func TestNotes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var got generation.Request
	f.backend.On("Stream", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(generation.Request) }).
		Return(chunks("# Kinematics\n", "Motion in a line.")).Once()

	in := tutor.NotesInput{
		Coordinates: physics,
		Profile:     domain.Profile{ExamPreferences: []string{"JEE", "NEET"}},
	}
	text, err := collect(t, f.svc.Notes(ctx, in))
	require.NoError(t, err)
	assert.Equal(t, "# Kinematics\nMotion in a line.", text)
	assert.Contains(t, got.Prompt, "Kinematics")
	assert.Contains(t, got.Prompt, "JEE")

	// Same preferences in another order and case share the entry.
	in.Profile.ExamPreferences = []string{"neet ", "jee"}
	text, err = collect(t, f.svc.Notes(ctx, in))
	require.NoError(t, err)
	assert.Equal(t, "# Kinematics\nMotion in a line.", text)

	f.backend.AssertNumberOfCalls(t, "Stream", 1)
}

func TestNotesKeyDependsOnProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	a, err := f.svc.NotesRequest(tutor.NotesInput{Coordinates: physics})
	require.NoError(t, err)
	b, err := f.svc.NotesRequest(tutor.NotesInput{
		Coordinates: physics,
		Profile:     domain.Profile{ExamPreferences: []string{"JEE"}},
	})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey, b.CacheKey)

	other := physics
	other.Chapter = "Laws of Motion"
	c, err := f.svc.NotesRequest(tutor.NotesInput{Coordinates: other})
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheKey, c.CacheKey)
}

func TestNotesInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	testCases := []struct {
		name   string
		coords domain.Coordinates
	}{
		{"missing section", domain.Coordinates{Subject: "Physics", Chapter: "Kinematics"}},
		{"missing subject", domain.Coordinates{Section: "Class 11", Chapter: "Kinematics"}},
		{"missing chapter", domain.Coordinates{Section: "Class 11", Subject: "Physics"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := collect(t, f.svc.Notes(context.Background(), tutor.NotesInput{Coordinates: tc.coords}))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	f.backend.AssertNotCalled(t, "Stream", mock.Anything, mock.Anything)
}

func TestPracticeTest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var got generation.Request
	f.backend.On("Generate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(generation.Request) }).
		Return("```json\n"+questionsJSON+"\n```", nil).Once()

	in := tutor.PracticeTestInput{
		Section:  "Class 11",
		Subject:  "Physics",
		Chapters: []string{"Kinematics", "Laws of Motion"},
		Count:    2,
	}
	questions, err := f.svc.PracticeTest(ctx, in)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "m/s", questions[0].Answer)
	assert.Equal(t, 2, questions[0].Marks)
	assert.True(t, got.JSON)
	assert.NotNil(t, got.Schema)

	// Reordered chapters hit the same cache entry, without the gate.
	in.Chapters = []string{"Laws of Motion", "Kinematics", "Kinematics"}
	questions, err = f.svc.PracticeTest(ctx, in)
	require.NoError(t, err)
	assert.Len(t, questions, 2)

	f.backend.AssertNumberOfCalls(t, "Generate", 1)
}

func TestPracticeTestMalformed(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		response string
	}{
		{"not json", "Here are your questions: none"},
		{"truncated", `[{"question": "Unit?", "options": ["a", "b"]`},
		{"empty list", `[]`},
		{"answer not an option", `[{"question": "Unit?", "options": ["a", "b"], "answer": "c"}]`},
		{"wrong shape", `{"question": "Unit?"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.backend.On("Generate", mock.Anything, mock.Anything).Return(tc.response, nil).Once()

			_, err := f.svc.PracticeTest(context.Background(), tutor.PracticeTestInput{
				Section: "Class 11", Subject: "Physics", Chapters: []string{"Kinematics"}, Count: 1,
			})
			var genErr *generation.Error
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, generation.KindMalformedResponse, genErr.Kind)
			assert.Equal(t, generation.MsgMalformedResponse, genErr.Message)
			assert.Equal(t, int64(0), f.cache.Stats().Writes, "malformed output is never cached")
		})
	}
}

func TestPracticeTestInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.PracticeTest(ctx, tutor.PracticeTestInput{Section: "Class 11", Subject: "Physics", Count: 5})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.svc.PracticeTest(ctx, tutor.PracticeTestInput{
		Section: "Class 11", Subject: "Physics", Chapters: []string{"Kinematics"}, Count: 0,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCount)

	_, err = f.svc.PracticeTest(ctx, tutor.PracticeTestInput{
		Section: "Class 11", Subject: "Physics", Chapters: []string{"Kinematics"}, Count: tutor.MaxItems + 1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCount)

	f.backend.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFlashcards(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.On("Generate", mock.Anything, mock.Anything).
		Return(`Sure! [{"front": "Speed", "back": "Distance per unit time", "tags": ["basics"]}]`, nil).Once()

	cards, err := f.svc.Flashcards(context.Background(), tutor.FlashcardsInput{Coordinates: physics, Count: 1})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "Speed", cards[0].Front)
	assert.Equal(t, []string{"basics"}, cards[0].Tags)
}

func TestFlashcardsMissingBack(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.On("Generate", mock.Anything, mock.Anything).Return(`[{"front": "Speed"}]`, nil).Once()

	_, err := f.svc.Flashcards(context.Background(), tutor.FlashcardsInput{Coordinates: physics, Count: 1})
	assert.ErrorIs(t, err, generation.ErrMalformedResponse)
}

func TestChat(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var got generation.Request
	f.backend.On("Stream", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(generation.Request) }).
		Return(chunks("Velocity ", "has direction.")).Twice()

	in := tutor.ChatInput{
		Coordinates: physics,
		LearnerName: "Asha",
		History: []domain.ChatMessage{
			{Role: domain.RoleLearner, Text: "What is speed?"},
			{Role: domain.RoleTutor, Text: "Distance over time."},
		},
		Message: "And velocity?",
	}

	text, err := collect(t, f.svc.Chat(ctx, in))
	require.NoError(t, err)
	assert.Equal(t, "Velocity has direction.", text)

	assert.Equal(t, "And velocity?", got.Prompt)
	assert.Contains(t, got.SystemInstruction, "Asha")
	require.Len(t, got.History, 2)
	assert.Equal(t, generation.Turn{Role: generation.RoleUser, Text: "What is speed?"}, got.History[0])
	assert.Equal(t, generation.Turn{Role: generation.RoleModel, Text: "Distance over time."}, got.History[1])

	// Chat is never served from cache.
	f.clock.Advance(generalCooldown)
	_, err = collect(t, f.svc.Chat(ctx, in))
	require.NoError(t, err)
	f.backend.AssertNumberOfCalls(t, "Stream", 2)
}

func TestChatEmptyMessage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	_, err := collect(t, f.svc.Chat(context.Background(), tutor.ChatInput{Coordinates: physics, Message: "  "}))
	assert.ErrorIs(t, err, domain.ErrEmptyContent)
}

func TestEvaluateAndScoreReport(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var got generation.Request
	f.backend.On("Stream", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(generation.Request) }).
		Return(chunks(
			"Question 1: correct.\n",
			`{"final_score_report": {"score": 2, "totalMarks": 3, "strengths": ["units"], "verdict": {"level": "good"}}}`,
		)).Once()

	in := tutor.EvaluateInput{
		Section: "Class 11",
		Subject: "Physics",
		Questions: []domain.Question{
			{Question: "Unit of velocity?", Options: []string{"m/s", "m"}, Answer: "m/s", Marks: 2},
			{Question: "Slope of x-t graph?", Options: []string{"velocity", "mass"}, Answer: "velocity"},
		},
		Answers: []domain.Answer{{QuestionIndex: 0, Response: "m/s"}, {QuestionIndex: 1, Response: "mass"}},
	}

	text, err := collect(t, f.svc.Evaluate(ctx, in))
	require.NoError(t, err)
	assert.Contains(t, got.Prompt, `"totalMarks":3`)

	report, ok := f.svc.ParseScoreReport(ctx, text)
	require.True(t, ok)
	assert.Equal(t, 2, report.Score)
	assert.Equal(t, 3, report.TotalMarks)
	assert.Equal(t, []string{"units"}, report.Strengths)
	assert.Equal(t, int64(0), f.cache.Stats().Writes, "evaluations are not cached")
}

func TestParseScoreReportAbsent(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
	}{
		{"no json", "Well done overall."},
		{"other object", `Summary {"score": 3}`},
		{"broken report", `{"final_score_report": {"score": "three"}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			_, ok := f.svc.ParseScoreReport(context.Background(), tc.text)
			assert.False(t, ok)

			assert.NotEmpty(t, f.logs.FindByMessage("score unavailable"), "absent report should be logged")
		})
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := collect(t, f.svc.Evaluate(ctx, tutor.EvaluateInput{Section: "Class 11", Subject: "Physics"}))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = collect(t, f.svc.Evaluate(ctx, tutor.EvaluateInput{
		Section:   "Class 11",
		Subject:   "Physics",
		Questions: []domain.Question{{Question: "q", Options: []string{"a", "b"}, Answer: "a"}},
		Answers:   []domain.Answer{{QuestionIndex: 3, Response: "a"}},
	}))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDiagram(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	img := &generation.Image{MIMEType: "image/png", Data: []byte("png")}

	var got generation.ImageRequest
	f.backend.On("GenerateImage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(generation.ImageRequest) }).
		Return(img, nil).Once()

	out, err := f.svc.Diagram(context.Background(), tutor.DiagramInput{Coordinates: physics, Topic: "projectile motion"})
	require.NoError(t, err)
	assert.Equal(t, img, out)
	assert.Contains(t, got.Prompt, "projectile motion")

	recorded := f.recorder.Events()
	require.Len(t, recorded, 1)
	assert.Equal(t, tutor.KindDiagram, recorded[0].Kind)
	assert.False(t, recorded[0].Cached)
}

func TestDiagramWaitsForImageGate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.On("GenerateImage", mock.Anything, mock.Anything).
		Return(&generation.Image{MIMEType: "image/png", Data: []byte("png")}, nil).Once()

	in := tutor.DiagramInput{Coordinates: physics, Topic: "vectors"}
	_, err := f.svc.Diagram(context.Background(), in)
	require.NoError(t, err)

	// The second call must wait a full image cooldown; the deadline ends first.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.svc.Diagram(ctx, in)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, tutor.IsCancelled(err))

	f.backend.AssertNumberOfCalls(t, "GenerateImage", 1)
}

func TestDiagramFailures(t *testing.T) {
	t.Parallel()

	t.Run("empty image", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.backend.On("GenerateImage", mock.Anything, mock.Anything).Return(&generation.Image{}, nil).Once()

		_, err := f.svc.Diagram(context.Background(), tutor.DiagramInput{Coordinates: physics, Topic: "vectors"})
		assert.ErrorIs(t, err, generation.ErrMalformedResponse)
	})

	t.Run("safety block", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		blocked := &generation.Error{Message: generation.MsgContentBlocked, Err: generation.ErrContentBlocked}
		f.backend.On("GenerateImage", mock.Anything, mock.Anything).Return(nil, blocked).Once()

		_, err := f.svc.Diagram(context.Background(), tutor.DiagramInput{Coordinates: physics, Topic: "vectors"})
		var genErr *generation.Error
		require.True(t, errors.As(err, &genErr))
		assert.Equal(t, generation.MsgContentBlocked, genErr.Message)
	})

	t.Run("missing topic", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.svc.Diagram(context.Background(), tutor.DiagramInput{Coordinates: physics})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}
