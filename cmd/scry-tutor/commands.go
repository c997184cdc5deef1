package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/domain"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"github.com/phrazzld/scry-tutor/internal/storage"
	"github.com/phrazzld/scry-tutor/internal/tutor"
	"github.com/spf13/cobra"
)

func (f chapterFlags) coordinates() domain.Coordinates {
	return domain.Coordinates{Section: f.section, Subject: f.subject, Chapter: f.chapter}
}

// printStream writes chunks to out as they arrive and ends with a newline.
func printStream(ctx context.Context, svc *tutor.Service, req tutor.StreamRequest, out io.Writer) (string, error) {
	var full string
	err := svc.StreamTo(ctx, req, tutor.SinkFuncs{
		Chunk:    func(chunk string) { fmt.Fprint(out, chunk) },
		Complete: func(text string) {
			full = text
			fmt.Fprintln(out)
		},
	})
	return full, err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newNotesCmd(opts *rootOptions) *cobra.Command {
	var (
		coords chapterFlags
		exams  []string
	)

	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Stream revision notes for a chapter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				req, err := svc.NotesRequest(tutor.NotesInput{
					Coordinates: coords.coordinates(),
					Profile:     domain.Profile{ExamPreferences: exams},
				})
				if err != nil {
					return err
				}
				_, err = printStream(ctx, svc, req, cmd.OutOrStdout())
				return err
			})
		},
	}
	coords.register(cmd, true)
	cmd.Flags().StringSliceVar(&exams, "exam", nil, "exam the learner is preparing for (repeatable)")
	return cmd
}

func newTestCmd(opts *rootOptions) *cobra.Command {
	var (
		coords   chapterFlags
		chapters []string
		count    int
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Generate a multiple-choice practice test as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if coords.chapter != "" {
				chapters = append(chapters, coords.chapter)
			}
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				questions, err := svc.PracticeTest(ctx, tutor.PracticeTestInput{
					Section:  coords.section,
					Subject:  coords.subject,
					Chapters: chapters,
					Count:    count,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), answerSheet{
					Section:   coords.section,
					Subject:   coords.subject,
					Questions: questions,
				})
			})
		},
	}
	coords.register(cmd, false)
	cmd.Flags().StringSliceVar(&chapters, "chapters", nil, "chapters to cover (comma separated or repeated)")
	cmd.Flags().IntVar(&count, "count", 10, "number of questions")
	return cmd
}

func newFlashcardsCmd(opts *rootOptions) *cobra.Command {
	var (
		coords chapterFlags
		count  int
	)

	cmd := &cobra.Command{
		Use:   "flashcards",
		Short: "Generate flashcards for a chapter as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				cards, err := svc.Flashcards(ctx, tutor.FlashcardsInput{
					Coordinates: coords.coordinates(),
					Count:       count,
				})
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), cards)
			})
		},
	}
	coords.register(cmd, true)
	cmd.Flags().IntVar(&count, "count", 10, "number of flashcards")
	return cmd
}

func newChatCmd(opts *rootOptions) *cobra.Command {
	var (
		coords chapterFlags
		name   string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the tutor; one message per line, /quit to leave",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				return chatLoop(ctx, svc, tutor.ChatInput{
					Coordinates: coords.coordinates(),
					LearnerName: name,
				}, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	coords.register(cmd, false)
	cmd.Flags().StringVar(&name, "name", "", "learner name the tutor should use")
	return cmd
}

// chatLoop reads learner messages from in until EOF or /quit. A failed
// turn is reported and left out of the history; the conversation goes on.
func chatLoop(ctx context.Context, svc *tutor.Service, in tutor.ChatInput, r io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(r)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" {
			return nil
		}

		in.Message = line
		req, err := svc.ChatRequest(in)
		if err != nil {
			return err
		}
		reply, err := printStream(ctx, svc, req, out)
		if err != nil {
			if tutor.IsCancelled(err) {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, "tutor:", userMessage(err))
			continue
		}
		in.History = append(in.History,
			domain.ChatMessage{Role: domain.RoleLearner, Text: line},
			domain.ChatMessage{Role: domain.RoleTutor, Text: reply})
	}
}

// answerSheet is the file format shared by the test and evaluate commands.
type answerSheet struct {
	Section   string            `json:"section"`
	Subject   string            `json:"subject"`
	Questions []domain.Question `json:"questions"`
	Answers   []domain.Answer   `json:"answers,omitempty"`
}

func readAnswerSheet(path string) (answerSheet, error) {
	var sheet answerSheet
	data, err := os.ReadFile(path)
	if err != nil {
		return sheet, fmt.Errorf("read answer sheet: %w", err)
	}
	if err := json.Unmarshal(data, &sheet); err != nil {
		return sheet, fmt.Errorf("parse answer sheet %s: %w", path, err)
	}
	return sheet, nil
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var sheetPath string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a completed answer sheet and print the score",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sheet, err := readAnswerSheet(sheetPath)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				req, err := svc.EvaluateRequest(tutor.EvaluateInput{
					Section:   sheet.Section,
					Subject:   sheet.Subject,
					Questions: sheet.Questions,
					Answers:   sheet.Answers,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				text, err := printStream(ctx, svc, req, out)
				if err != nil {
					return err
				}
				report, ok := svc.ParseScoreReport(ctx, text)
				if !ok {
					fmt.Fprintln(out, "Score unavailable")
					return nil
				}
				fmt.Fprintf(out, "Score: %d/%d (%.0f%%)\n", report.Score, report.TotalMarks, report.Percent())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sheetPath, "sheet", "", "path to the answer sheet JSON")
	_ = cmd.MarkFlagRequired("sheet")
	return cmd
}

func newDiagramCmd(opts *rootOptions) *cobra.Command {
	var (
		coords chapterFlags
		topic  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "diagram",
		Short: "Generate an explanatory diagram image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				svc, err := app.service(ctx)
				if err != nil {
					return err
				}
				img, err := svc.Diagram(ctx, tutor.DiagramInput{
					Coordinates: coords.coordinates(),
					Topic:       topic,
				})
				if err != nil {
					return err
				}

				path := output
				if path == "" {
					path = "diagram" + imageExtension(img)
				}
				if err := os.WriteFile(path, img.Data, 0o644); err != nil {
					return fmt.Errorf("write diagram: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(img.Data))
				return nil
			})
		},
	}
	coords.register(cmd, false)
	cmd.Flags().StringVar(&topic, "topic", "", "what the diagram should show")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default diagram.<ext>)")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func imageExtension(img *generation.Image) string {
	if exts, err := mime.ExtensionsByType(img.MIMEType); err == nil && len(exts) > 0 {
		for _, ext := range exts {
			if ext == ".png" || ext == ".jpg" || ext == ".jpeg" {
				return ext
			}
		}
		return exts[0]
	}
	return ".png"
}

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached responses",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached responses for --session, or for every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, app *application) error {
				clearer, ok := app.store.(storage.Clearer)
				if !ok {
					return errors.New("storage driver does not support clearing")
				}
				prefix := sessionPrefix
				if app.session != "" {
					prefix = sessionNamespace(app.session)
				}
				n, err := clearer.Clear(ctx, prefix)
				if err != nil {
					return fmt.Errorf("clear cache: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d cached responses\n", n)
				return nil
			})
		},
	}

	cmd.AddCommand(clearCmd)
	return cmd
}
