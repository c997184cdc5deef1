package prompts_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var coords = domain.Coordinates{Section: "Class 10", Subject: "Physics", Chapter: "Light"}

func TestBuiltinTemplatesRender(t *testing.T) {
	t.Parallel()

	set, err := prompts.Load("")
	require.NoError(t, err)

	testCases := []struct {
		name     prompts.Name
		data     any
		contains []string
	}{
		{
			name:     prompts.Notes,
			data:     prompts.NotesData{Coordinates: coords, ExamPreferences: []string{"boards", "jee"}},
			contains: []string{"Class 10", "Physics", "Light", "boards, jee"},
		},
		{
			name: prompts.PracticeTest,
			data: prompts.PracticeTestData{
				Section: "Class 10", Subject: "Physics",
				Chapters: []string{"Electricity", "Light"}, Count: 5,
			},
			contains: []string{"exactly 5 questions", "Electricity, Light"},
		},
		{
			name:     prompts.Flashcards,
			data:     prompts.FlashcardsData{Coordinates: coords, Count: 8},
			contains: []string{"Create 8 flashcards", "Chapter: Light"},
		},
		{
			name:     prompts.Chat,
			data:     prompts.ChatData{Coordinates: coords, LearnerName: "Asha"},
			contains: []string{"helping Asha", `chapter "Light"`},
		},
		{
			name: prompts.Evaluate,
			data: prompts.EvaluateData{
				Section: "Class 10", Subject: "Physics", TotalMarks: 5,
				Questions: []domain.Question{{Question: "Define refraction.", Answer: "Bending of light", Marks: 5}},
				Answers:   []domain.Answer{{QuestionIndex: 0, Response: "Light bends"}},
			},
			contains: []string{"worth 5 marks", "1. [5 marks] Define refraction.", "1. Light bends", `"totalMarks":5`},
		},
		{
			name:     prompts.Diagram,
			data:     prompts.DiagramData{Coordinates: coords, Topic: "Total internal reflection"},
			contains: []string{`"Total internal reflection"`, "studying Light"},
		},
	}

	for _, tc := range testCases {
		t.Run(string(tc.name), func(t *testing.T) {
			t.Parallel()

			out, err := set.Render(tc.name, tc.data)
			require.NoError(t, err)
			for _, want := range tc.contains {
				assert.Contains(t, out, want)
			}
			assert.Equal(t, strings.TrimSpace(out), out)
			assert.NotContains(t, out, "<no value>")
			assert.True(t, strings.HasPrefix(set.Source(tc.name), "builtin:"))
		})
	}
}

func TestNotesWithoutPreferences(t *testing.T) {
	t.Parallel()

	out, err := prompts.MustLoad("").Render(prompts.Notes, prompts.NotesData{Coordinates: coords})
	require.NoError(t, err)
	assert.NotContains(t, out, "preparing for")
}

func TestRenderErrors(t *testing.T) {
	t.Parallel()

	set := prompts.MustLoad("")

	_, err := set.Render("missing", nil)
	assert.ErrorIs(t, err, prompts.ErrUnknownTemplate)

	// Wrong data type: the notes template references fields that do not exist.
	_, err = set.Render(prompts.Notes, struct{ Other string }{"x"})
	assert.ErrorIs(t, err, prompts.ErrRender)
}

func TestOverrideDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("Custom notes for {{.Coordinates.Chapter}}\n"), 0o600))

	set, err := prompts.Load(dir)
	require.NoError(t, err)

	out, err := set.Render(prompts.Notes, prompts.NotesData{Coordinates: coords})
	require.NoError(t, err)
	assert.Equal(t, "Custom notes for Light", out)
	assert.Equal(t, path, set.Source(prompts.Notes))

	// Templates absent from the directory fall back to the built-ins.
	assert.Equal(t, "builtin:flashcards.tmpl", set.Source(prompts.Flashcards))
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	_, err := prompts.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.ErrorIs(t, err, prompts.ErrLoad)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	_, err = prompts.Load(file)
	assert.ErrorIs(t, err, prompts.ErrLoad)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat.tmpl"), []byte("Broken {{.Coordinates"), 0o600))
	_, err = prompts.Load(dir)
	assert.ErrorIs(t, err, prompts.ErrLoad)
}
