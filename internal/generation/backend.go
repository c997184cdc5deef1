package generation

import (
	"context"
	"encoding/base64"
	"iter"
)

// SchemaType names the JSON type of a Schema node. The values follow the
// OpenAPI subset understood by Gemini structured output.
type SchemaType string

// Schema node types.
const (
	TypeObject  SchemaType = "OBJECT"
	TypeArray   SchemaType = "ARRAY"
	TypeString  SchemaType = "STRING"
	TypeInteger SchemaType = "INTEGER"
	TypeNumber  SchemaType = "NUMBER"
	TypeBoolean SchemaType = "BOOLEAN"
)

// Schema describes the structured output expected from the model.
type Schema struct {
	Type        SchemaType
	Description string
	Properties  map[string]*Schema
	Items       *Schema
	Required    []string
	Enum        []string
}

// Image is an inline image payload, either sent with a prompt or produced by
// image generation.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURL renders the image as a data: URL suitable for an <img> tag.
func (i *Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Turn roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one earlier message of a multi-turn conversation.
type Turn struct {
	Role string
	Text string
}

// Request describes a single text generation call.
type Request struct {
	// Model overrides the backend's default text model when set.
	Model string

	Prompt            string
	SystemInstruction string

	// History holds earlier turns, oldest first. Prompt is sent after them
	// as the newest user turn.
	History []Turn

	// Image is optional; when set it is sent alongside the prompt.
	Image *Image

	// JSON asks the backend for an application/json response. Schema, when
	// set, constrains that response.
	JSON   bool
	Schema *Schema

	// Temperature is optional; nil keeps the backend default.
	Temperature *float32
}

// ImageRequest describes an image generation call.
type ImageRequest struct {
	Model  string
	Prompt string
}

// Backend is the port to the external AI service. Implementations return
// *Error values where they can classify a failure themselves; anything else
// is classified by Classify at the orchestration boundary.
type Backend interface {
	// Generate performs a single-shot call and returns the full response text.
	Generate(ctx context.Context, req Request) (string, error)

	// Stream returns the response as a sequence of incremental text chunks in
	// arrival order. The sequence ends after the first non-nil error.
	// Stopping iteration early aborts the underlying call.
	Stream(ctx context.Context, req Request) iter.Seq2[string, error]

	// GenerateImage produces a single image for the prompt.
	GenerateImage(ctx context.Context, req ImageRequest) (*Image, error)
}
