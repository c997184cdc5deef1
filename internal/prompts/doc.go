// Package prompts holds the prompt templates sent to the AI backend, one per
// content type.
//
// The built-in templates are embedded in the binary. A deployment can replace
// any of them by placing a file named "<name>.tmpl" in the directory given by
// the llm.prompt_dir setting; templates not present there keep the built-in
// text. Templates use text/template with missingkey=error, so a template
// that references a field the caller did not supply fails at render time
// rather than sending "<no value>" to the model.
package prompts
