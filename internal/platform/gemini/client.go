package gemini

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/inkforge/inkforge/internal/config"
	"google.golang.org/genai"
)

// systemInstruction pins the generation style: closed-path black
// outlines on white, no fills, density driven by the skill level in the
// request payload.
const systemInstruction = `You are a rigid visual engine producing premium, vector-quality ` +
	`coloring pages. Absolute black (#000000) outlines on absolute white (#FFFFFF) only, ` +
	`uniform 4-6pt monolinear stroke, round caps and joins, every shape path fully closed. ` +
	`No fills, no silhouettes, no shading, no transparency. Map the "skill" field of the ` +
	`request to line density: Easy = few large regions and maximum thickness, Medium = ` +
	`moderate detail with simple patterns, Detailed = dense ornament for adult colorists. ` +
	`Output exactly one image.`

// Client calls the external generation service: synchronous streaming
// image generation and embeddings through the SDK, the asynchronous
// batch path over the REST endpoint.
type Client struct {
	logger *slog.Logger
	cfg    config.GenerationConfig

	genai *genai.Client

	// httpClient carries the batch REST calls; the SDK cannot express
	// the bounded-prefix reads the batch path needs.
	httpClient *http.Client

	// baseURL is overridable for tests; defaults to the public endpoint.
	baseURL string
}

// NewClient creates a generation client from the given configuration.
// A missing API key is a configuration error surfaced immediately,
// before any state mutation.
func NewClient(ctx context.Context, logger *slog.Logger, cfg config.GenerationConfig) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: API key cannot be empty", ErrInvalidConfig)
	}

	if cfg.ImageModel == "" {
		return nil, fmt.Errorf("%w: image model cannot be empty", ErrInvalidConfig)
	}

	sdkClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create SDK client: %v", ErrInvalidConfig, err)
	}

	return &Client{
		logger:     logger.With("component", "generation_client"),
		cfg:        cfg,
		genai:      sdkClient,
		httpClient: &http.Client{},
		baseURL:    "https://generativelanguage.googleapis.com/v1beta",
	}, nil
}

// GenerateImage issues a streaming generation call. Textual fragments
// from the stream are forwarded to onProgress (which may be nil); the
// first chunk carrying inline binary payload is returned as the result.
// A safety-block signal surfaces as ErrContentBlocked; a stream that
// ends with neither is ErrNoImage.
func (c *Client) GenerateImage(
	ctx context.Context,
	prompt string,
	referenceImages [][]byte,
	onProgress func(text string),
) ([]byte, error) {
	if prompt == "" {
		return nil, fmt.Errorf("%w: prompt cannot be empty", ErrInvalidResponse)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	parts := []*genai.Part{{Text: prompt}}
	for _, img := range referenceImages {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: "image/png", Data: img},
		})
	}

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	genConfig := &genai.GenerateContentConfig{
		Temperature:        genai.Ptr[float32](0.95),
		ResponseModalities: []string{"IMAGE", "TEXT"},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		},
	}

	c.logger.InfoContext(ctx, "starting streaming generation",
		"model", c.cfg.ImageModel,
		"prompt_length", len(prompt),
		"reference_images", len(referenceImages))

	stream := c.genai.Models.GenerateContentStream(ctx, c.cfg.ImageModel, contents, genConfig)
	return collectImage(stream, onProgress)
}

// collectImage consumes a generation stream: progress text is forwarded
// as it arrives, and the first inline-data payload wins.
func collectImage(
	stream iter.Seq2[*genai.GenerateContentResponse, error],
	onProgress func(text string),
) ([]byte, error) {
	for resp, err := range stream {
		if err != nil {
			return nil, fmt.Errorf("generation stream failed: %w", err)
		}

		if resp == nil {
			continue
		}

		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: %s", ErrContentBlocked, resp.PromptFeedback.BlockReason)
		}

		for _, cand := range resp.Candidates {
			if cand.FinishReason == genai.FinishReasonSafety {
				return nil, fmt.Errorf("%w: finish reason safety", ErrContentBlocked)
			}

			if cand.Content == nil {
				continue
			}

			for _, part := range cand.Content.Parts {
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					return part.InlineData.Data, nil
				}

				if part.Text != "" && onProgress != nil {
					onProgress(part.Text)
				}
			}
		}
	}

	return nil, ErrNoImage
}

// Embed returns a normalized fixed-dimension embedding for the given
// text using the configured embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.StatusTimeout)
	defer cancel()

	contents := []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}}}

	resp, err := c.genai.Models.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("embedding call failed: %w", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrInvalidResponse)
	}

	return resp.Embeddings[0].Values, nil
}
