package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// ErrMissingAPIKey indicates the external capability is not configured.
var ErrMissingAPIKey = errors.New("gemini: GEMINI_API_KEY not configured")

// ErrNoImage indicates a structurally empty generation response: the model
// answered but no candidate carried inline image bytes. This is terminal at
// the invocation layer; retries are driven one level up by QC.
var ErrNoImage = errors.New("gemini: response contained no image payload")

// ImagePart is one inline image sent to or received from the model.
type ImagePart struct {
	Data []byte
	MIME string
}

// Config describes the models and throttle for a Client.
type Config struct {
	APIKey     string
	ImageModel string
	JudgeModel string
	// MaxCallsPerMinute throttles all outbound calls. Zero disables throttling.
	MaxCallsPerMinute int
}

const (
	defaultImageModel = "gemini-2.5-flash-image"
	defaultJudgeModel = "gemini-2.5-flash"
)

// Client wraps the generative model API behind the two operations the
// pipeline needs: images+text -> image, and images+text -> text.
type Client struct {
	api        *genai.Client
	imageModel string
	judgeModel string
	limiter    *rate.Limiter
}

// NewClient constructs a client. A missing API key is not fatal here so the
// server can boot without credentials; the first model call reports it.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	imageModel := normalizeModel(cfg.ImageModel, defaultImageModel)
	judgeModel := normalizeModel(cfg.JudgeModel, defaultJudgeModel)

	var limiter *rate.Limiter
	if cfg.MaxCallsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.MaxCallsPerMinute)/60.0), cfg.MaxCallsPerMinute)
	}

	c := &Client{imageModel: imageModel, judgeModel: judgeModel, limiter: limiter}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return c, nil
	}

	api, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.api = api
	return c, nil
}

// GenerateImage sends the instruction plus reference images to the image
// model and returns the single inline image payload.
func (c *Client) GenerateImage(ctx context.Context, parts []ImagePart, instruction string) (ImagePart, error) {
	resp, err := c.generate(ctx, c.imageModel, parts, instruction)
	if err != nil {
		return ImagePart{}, err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ImagePart{}, ErrNoImage
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if strings.TrimSpace(mime) == "" {
			mime = "image/png"
		}
		return ImagePart{Data: part.InlineData.Data, MIME: mime}, nil
	}
	return ImagePart{}, ErrNoImage
}

// GenerateText sends images plus an instruction to the judge model and
// returns the concatenated candidate text.
func (c *Client) GenerateText(ctx context.Context, parts []ImagePart, instruction string) (string, error) {
	resp, err := c.generate(ctx, c.judgeModel, parts, instruction)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini: response contained no candidates")
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("gemini: candidate carried no text")
	}
	return strings.Join(texts, "\n"), nil
}

func (c *Client) generate(ctx context.Context, model string, parts []ImagePart, instruction string) (*genai.GenerateContentResponse, error) {
	if c.api == nil {
		return nil, ErrMissingAPIKey
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gemini: wait for rate limiter: %w", err)
		}
	}

	content := make([]*genai.Part, 0, len(parts)+1)
	for _, p := range parts {
		content = append(content, &genai.Part{
			InlineData: &genai.Blob{Data: p.Data, MIMEType: p.MIME},
		})
	}
	content = append(content, &genai.Part{Text: instruction})

	resp, err := c.api.Models.GenerateContent(ctx, model,
		[]*genai.Content{{Role: genai.RoleUser, Parts: content}}, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}
	return resp, nil
}

func normalizeModel(model, fallback string) string {
	clean := strings.TrimPrefix(strings.TrimSpace(model), "models/")
	if clean == "" {
		return fallback
	}
	return clean
}
