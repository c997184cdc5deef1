package gemini

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/scry-tutor/internal/config"
	"github.com/phrazzld/scry-tutor/internal/generation"
	"google.golang.org/genai"
)

// modelsAPI is the subset of *genai.Models the backend calls.
type modelsAPI interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)

	GenerateContentStream(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) iter.Seq2[*genai.GenerateContentResponse, error]

	GenerateImages(
		ctx context.Context,
		model string,
		prompt string,
		config *genai.GenerateImagesConfig,
	) (*genai.GenerateImagesResponse, error)
}

// Backend implements generation.Backend on the Gemini API.
type Backend struct {
	logger      *slog.Logger
	models      modelsAPI
	textModel   string
	imageModel  string
	temperature float32
	timeout     time.Duration
}

var _ generation.Backend = (*Backend)(nil)

// NewBackend creates a Backend from the LLM configuration.
//
// Parameters:
//   - ctx: Context for client initialization
//   - logger: A structured logger for operation logging
//   - cfg: LLM configuration containing the API key and model names
//
// Returns:
//   - A ready Backend
//   - A *generation.Error of KindNotConfigured when the API key is empty, or
//     an error wrapping generation.ErrInvalidConfig for other bad settings
func NewBackend(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Backend, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}

	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.WarnContext(ctx, "Gemini API key is not set")
		return nil, generation.NewError(generation.KindNotConfigured,
			fmt.Errorf("%w: gemini API key is empty", generation.ErrNotConfigured))
	}

	if cfg.TextModel == "" {
		return nil, fmt.Errorf("%w: text model cannot be empty", generation.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	logger.InfoContext(ctx, "Gemini backend initialized",
		"text_model", cfg.TextModel,
		"image_model", cfg.ImageModel)

	return newBackend(client.Models, logger, cfg), nil
}

func newBackend(models modelsAPI, logger *slog.Logger, cfg config.LLMConfig) *Backend {
	return &Backend{
		logger:      logger.With("component", "gemini"),
		models:      models,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		temperature: cfg.Temperature,
		timeout:     cfg.RequestTimeout,
	}
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.timeout)
}

func (b *Backend) model(override string) string {
	if override != "" {
		return override
	}
	return b.textModel
}

// Generate performs a single-shot call and returns the full response text.
func (b *Backend) Generate(ctx context.Context, req generation.Request) (string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	model := b.model(req.Model)
	start := time.Now()

	b.logger.DebugContext(ctx, "Making Gemini API call",
		"model", model,
		"prompt_length", len(req.Prompt),
		"json", req.JSON)

	resp, err := b.models.GenerateContent(ctx, model, buildContents(req), b.contentConfig(req))
	if err != nil {
		mapped := mapError(err)
		b.logger.ErrorContext(ctx, "Gemini API call failed",
			"model", model,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return "", mapped
	}

	text, err := responseText(resp)
	if err != nil {
		b.logger.WarnContext(ctx, "Gemini API returned no usable content",
			"model", model,
			"error", err)
		return "", err
	}

	b.logger.InfoContext(ctx, "Gemini API call successful",
		"model", model,
		"response_length", len(text),
		"duration_ms", time.Since(start).Milliseconds())
	return text, nil
}

// Stream returns the response as incremental text chunks. Stopping iteration
// early cancels the underlying HTTP stream.
func (b *Backend) Stream(ctx context.Context, req generation.Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := b.withTimeout(ctx)
		defer cancel()

		model := b.model(req.Model)
		start := time.Now()
		chunks := 0

		b.logger.DebugContext(ctx, "Opening Gemini stream",
			"model", model,
			"prompt_length", len(req.Prompt))

		for resp, err := range b.models.GenerateContentStream(ctx, model, buildContents(req), b.contentConfig(req)) {
			if err != nil {
				b.logger.ErrorContext(ctx, "Gemini stream failed",
					"model", model,
					"chunks", chunks,
					"error", err)
				yield("", mapError(err))
				return
			}

			chunk, err := chunkText(resp)
			if err != nil {
				b.logger.WarnContext(ctx, "Gemini stream stopped", "model", model, "error", err)
				yield("", err)
				return
			}
			if chunk == "" {
				continue
			}

			chunks++
			if !yield(chunk, nil) {
				b.logger.DebugContext(ctx, "Gemini stream abandoned by consumer",
					"model", model,
					"chunks", chunks)
				return
			}
		}

		b.logger.InfoContext(ctx, "Gemini stream complete",
			"model", model,
			"chunks", chunks,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

// GenerateImage produces a single image for the prompt.
func (b *Backend) GenerateImage(ctx context.Context, req generation.ImageRequest) (*generation.Image, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	model := req.Model
	if model == "" {
		model = b.imageModel
	}
	if model == "" {
		return nil, fmt.Errorf("%w: image model cannot be empty", generation.ErrInvalidConfig)
	}

	resp, err := b.models.GenerateImages(ctx, model, req.Prompt, nil)
	if err != nil {
		b.logger.ErrorContext(ctx, "Gemini image generation failed", "model", model, "error", err)
		return nil, mapError(err)
	}

	img, err := firstImage(resp)
	if err != nil {
		b.logger.WarnContext(ctx, "Gemini image response unusable", "model", model, "error", err)
		return nil, err
	}

	b.logger.InfoContext(ctx, "Gemini image generated",
		"model", model,
		"mime_type", img.MIMEType,
		"bytes", len(img.Data))
	return img, nil
}

func (b *Backend) contentConfig(req generation.Request) *genai.GenerateContentConfig {
	temperature := b.temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.SystemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemInstruction}},
		}
	}
	if req.JSON || req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
	}
	if req.Schema != nil {
		cfg.ResponseSchema = toSchema(req.Schema)
	}
	return cfg
}
