package prompts

import "errors"

var (
	// ErrUnknownTemplate is returned when a template name is not registered.
	ErrUnknownTemplate = errors.New("unknown prompt template")

	// ErrRender is returned when a template fails to execute.
	ErrRender = errors.New("failed to render prompt")

	// ErrLoad is returned when a template file cannot be read or parsed.
	ErrLoad = errors.New("failed to load prompt template")
)
