package gemini

import (
	"fmt"
	"strings"

	"github.com/phrazzld/scry-tutor/internal/generation"
	"google.golang.org/genai"
)

// buildContents renders the history and the prompt as genai contents. The
// optional image rides along with the prompt in the final user turn.
func buildContents(req generation.Request) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Text == "" {
			continue
		}
		role := generation.RoleUser
		if turn.Role == generation.RoleModel {
			role = generation.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: turn.Text}},
		})
	}

	parts := []*genai.Part{{Text: req.Prompt}}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
		})
	}
	return append(contents, &genai.Content{Role: generation.RoleUser, Parts: parts})
}

var schemaTypes = map[generation.SchemaType]genai.Type{
	generation.TypeObject:  genai.TypeObject,
	generation.TypeArray:   genai.TypeArray,
	generation.TypeString:  genai.TypeString,
	generation.TypeInteger: genai.TypeInteger,
	generation.TypeNumber:  genai.TypeNumber,
	generation.TypeBoolean: genai.TypeBoolean,
}

func toSchema(s *generation.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        schemaTypes[s.Type],
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Items:       toSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toSchema(p)
		}
	}
	return out
}

func malformed(format string, args ...any) error {
	return generation.NewError(generation.KindMalformedResponse,
		fmt.Errorf("%w: "+format, append([]any{generation.ErrMalformedResponse}, args...)...))
}

func contentBlocked() error {
	return &generation.Error{
		Kind:    generation.KindUnknown,
		Message: generation.MsgContentBlocked,
		Err:     generation.ErrContentBlocked,
	}
}

// responseText extracts the text of a complete response.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", malformed("nil response")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", contentBlocked()
		}
		return "", malformed("no content generated")
	}

	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", contentBlocked()
	}
	if cand.Content == nil {
		return "", malformed("empty content in response")
	}
	return partsText(cand.Content.Parts), nil
}

// chunkText extracts the incremental text of one stream response. Empty
// chunks are legal mid-stream.
func chunkText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", contentBlocked()
		}
		return "", nil
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", contentBlocked()
	}
	if cand.Content == nil {
		return "", nil
	}
	return partsText(cand.Content.Parts), nil
}

func partsText(parts []*genai.Part) string {
	var sb strings.Builder
	for _, p := range parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func firstImage(resp *genai.GenerateImagesResponse) (*generation.Image, error) {
	if resp == nil {
		return nil, malformed("nil image response")
	}
	for _, gen := range resp.GeneratedImages {
		if gen == nil || gen.Image == nil || len(gen.Image.ImageBytes) == 0 {
			continue
		}
		mime := gen.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &generation.Image{MIMEType: mime, Data: gen.Image.ImageBytes}, nil
	}
	return nil, contentBlocked()
}
