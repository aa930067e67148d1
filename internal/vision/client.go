// Package vision calls an external vision model to read blood pressure values
// off monitor photos and parses its free-text responses into structured
// readings.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"bptracker/internal/config"
)

// extractionPrompt asks the model for a single JSON code block in one of the
// two shapes ExtractReading accepts.
const extractionPrompt = `Analyze this blood pressure monitor display image carefully.
The numbers appear on a digital display (light text on a darker background).
If the image is compressed or slightly unclear, do your best to read the values accurately.

Extract the following integer values only (no units):
- systolic: the systolic blood pressure (top number), usually left of "SYS" or labeled "SYS".
- diastolic: the diastolic blood pressure (bottom number), usually left of "DIA" or labeled "DIA".
- pulse: the heart rate/pulse, usually near or labeled "PUL".

Return ONLY a single JSON code block (use ` + "```json ... ```" + `). The JSON must be either the older format:
{"systolic": 120, "diastolic": 80, "pulse": 72}
or the newer format with a comment and data object and an optional explanation string:
{"comment": "Some text", "explanation": "I saw '120' to the left of 'SYS'...", "data": {"systolic": 120, "diastolic": 80, "pulse": 72}}

Include an explanation string (short, human-readable) describing where each value was read from on the image. If you are unsure of a value, return null for that field.

If you include any explanation text outside the JSON block, place it after the code block.

All numeric fields must be integers. Do not include any extra text before the code block. If you cannot read numbers at all, return JSON with all fields set to null and include an explanation.`

// Describer produces a free-text description of an image. It is the seam the
// service layer mocks in tests.
type Describer interface {
	Describe(ctx context.Context, image []byte, filename string) (string, error)
}

// Client calls an Anthropic-style messages API.
type Client struct {
	http      *resty.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

var _ Describer = (*Client)(nil)

// NewClient builds a vision API client from configuration.
func NewClient(cfg config.VisionConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vision api key is required (set VISION_API_KEY or ANTHROPIC_API_KEY)")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("vision model is required")
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(time.Duration(cfg.TimeoutSec) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("x-api-key", cfg.APIKey).
		SetHeader("anthropic-version", "2023-06-01")

	return &Client{
		http:      httpClient,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}, nil
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Describe sends the image with the extraction prompt and returns the model's
// text output. Temperature is pinned to 0 for repeatable reads; the response
// can still vary in formatting, which ExtractReading absorbs.
func (c *Client) Describe(ctx context.Context, image []byte, filename string) (string, error) {
	mediaType, err := MediaTypeForFilename(filename)
	if err != nil {
		return "", err
	}

	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentBlock{
				{
					Type: "image",
					Source: &imageSource{
						Type:      "base64",
						MediaType: mediaType,
						Data:      base64.StdEncoding.EncodeToString(image),
					},
				},
				{Type: "text", Text: extractionPrompt},
			},
		}},
	}

	c.logger.Info("calling vision model",
		zap.String("model", c.model),
		zap.String("media_type", mediaType),
		zap.Int("image_bytes", len(image)),
	)

	var out messagesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/v1/messages")
	if err != nil {
		c.logger.Error("vision model call failed", zap.Error(err))
		return "", fmt.Errorf("vision request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		c.logger.Error("vision model returned error",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("message", msg),
		)
		return "", fmt.Errorf("vision api error: %s (status %d)", msg, resp.StatusCode())
	}

	var parts []string
	for _, block := range out.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	text := strings.Join(parts, "\n")

	c.logger.Debug("vision model responded", zap.Int("text_len", len(text)))
	return text, nil
}

// ErrUnsupportedImage reports a file extension the vision API cannot accept.
var ErrUnsupportedImage = errors.New("unsupported image extension")

// MediaTypeForFilename resolves the MIME type for a monitor photo from its
// file extension.
func MediaTypeForFilename(filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png", nil
	case ".jpg", ".jpeg":
		return "image/jpeg", nil
	case ".gif":
		return "image/gif", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, filepath.Ext(filename))
	}
}
