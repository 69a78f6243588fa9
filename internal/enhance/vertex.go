package enhance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-page-restore/internal/config"
)

// generator is the slice of *genai.GenerativeModel the gateway uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexGateway calls Gemini models on Vertex AI.
type VertexGateway struct {
	image   generator
	ocr     generator
	prompts PromptSet
	client  *genai.Client
}

// NewVertexGateway creates the Vertex AI client and configures the image and
// OCR models.
func NewVertexGateway(ctx context.Context, cfg config.ProviderConfig) (*VertexGateway, error) {
	if cfg.Project == "" || cfg.Region == "" {
		return nil, errors.New("vertex gateway: project and region cannot be empty")
	}
	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	prompts := PromptsFromConfig(cfg)

	imageModel := client.GenerativeModel(cfg.Model)
	imageModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(prompts.System)},
	}
	imageModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](float32(cfg.Temperature)),
	}

	ocrModel := client.GenerativeModel(cfg.OCRModel)
	ocrModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexGateway{image: imageModel, ocr: ocrModel, prompts: prompts, client: client}, nil
}

// Close releases the underlying client.
func (g *VertexGateway) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Enhance sends the page and prompt and returns the first inline image of the
// answer.
func (g *VertexGateway) Enhance(ctx context.Context, req Request) (*Result, error) {
	mode, prompt := g.prompts.Build(req)

	ctx, span := otel.Tracer("enhance/VertexGateway").Start(ctx, "Enhance",
		trace.WithAttributes(
			attribute.String("enhance.mode", mode),
			attribute.String("enhance.quality", string(req.Quality)),
			attribute.Int("enhance.input_bytes", len(req.Image)),
		),
	)
	defer span.End()

	resp, err := g.image.GenerateContent(ctx, genai.Blob{MIMEType: req.MIME, Data: req.Image}, genai.Text(prompt))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		return nil, fmt.Errorf("%w: %v", ErrEnhancementFailed, err)
	}

	img, text := splitParts(resp)
	if img == nil || len(img.Data) == 0 {
		span.SetStatus(codes.Error, "no image")
		if reason := blockReason(resp); reason != "" {
			return nil, fmt.Errorf("%w: %s", ErrEnhancementEmpty, reason)
		}
		if text != "" {
			return nil, fmt.Errorf("%w: model answered with text: %s", ErrEnhancementEmpty, clip(text, 200))
		}
		return nil, ErrEnhancementEmpty
	}

	mime := img.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &Result{Data: img.Data, MIME: mime}, nil
}

// ExtractText runs OCR over a page and returns its text.
func (g *VertexGateway) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	ctx, span := otel.Tracer("enhance/VertexGateway").Start(ctx, "ExtractText")
	defer span.End()

	resp, err := g.ocr.GenerateContent(ctx, genai.Blob{MIMEType: mime, Data: image}, genai.Text(g.prompts.OCR))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("%w: %v", ErrEnhancementFailed, err)
	}
	_, text := splitParts(resp)
	return NormalizeText(text), nil
}

// splitParts returns the first inline image and the concatenated text of the
// first candidate.
func splitParts(resp *genai.GenerateContentResponse) (*genai.Blob, string) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ""
	}
	var (
		img  *genai.Blob
		text strings.Builder
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Blob:
			if img == nil {
				b := p
				img = &b
			}
		case *genai.Blob:
			if img == nil && p != nil {
				img = p
			}
		case genai.Text:
			text.WriteString(string(p))
		}
	}
	return img, strings.TrimSpace(text.String())
}

func blockReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		return "prompt blocked: " + resp.PromptFeedback.BlockReason.String()
	}
	if len(resp.Candidates) > 0 {
		switch fr := resp.Candidates[0].FinishReason; fr {
		case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist,
			genai.FinishReasonProhibitedContent, genai.FinishReasonSpii:
			return "finish reason: " + fr.String()
		}
	}
	return ""
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
