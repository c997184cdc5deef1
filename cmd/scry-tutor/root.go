package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	session    string
	logLevel   string
	logFormat  string

	newBackend backendFactory
}

func newRootCmd(newBackend backendFactory) *cobra.Command {
	opts := &rootOptions{newBackend: newBackend}

	cmd := &cobra.Command{
		Use:   "scry-tutor",
		Short: "AI study companion: notes, practice tests, flashcards and a tutor chat",
		Long: `scry-tutor generates study material for a curriculum chapter with Gemini.

Responses are cached per session so repeating a request does not call the
model again. Pass --session to reuse a cache across runs with the sqlite or
redis storage drivers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.session, "session", "", "cache session name to reuse across runs")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format override (json, text)")

	cmd.AddCommand(
		newNotesCmd(opts),
		newTestCmd(opts),
		newFlashcardsCmd(opts),
		newChatCmd(opts),
		newEvaluateCmd(opts),
		newDiagramCmd(opts),
		newCacheCmd(opts),
	)
	return cmd
}

// chapterFlags are the curriculum coordinates shared by most commands.
type chapterFlags struct {
	section string
	subject string
	chapter string
}

func (f *chapterFlags) register(cmd *cobra.Command, chapterRequired bool) {
	cmd.Flags().StringVar(&f.section, "section", "", "curriculum section, e.g. \"Class 11\"")
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject name")
	cmd.Flags().StringVar(&f.chapter, "chapter", "", "chapter name")
	_ = cmd.MarkFlagRequired("section")
	_ = cmd.MarkFlagRequired("subject")
	if chapterRequired {
		_ = cmd.MarkFlagRequired("chapter")
	}
}
