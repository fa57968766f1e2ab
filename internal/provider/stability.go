package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultStabilityURL is the SDXL text-to-image endpoint.
const DefaultStabilityURL = "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"

// ErrStabilityKeyMissing is returned when no Stability AI key is stored.
var ErrStabilityKeyMissing = errors.New("Stability AI API key is not configured")

// KeySource yields a decrypted API key, or "" when none is configured.
type KeySource interface {
	Get(ctx context.Context) (string, error)
}

type textPrompt struct {
	Text   string  `json:"text"`
	Weight float64 `json:"weight"`
}

type stabilityRequest struct {
	TextPrompts []textPrompt `json:"text_prompts"`
	CfgScale    int          `json:"cfg_scale"`
	Height      int          `json:"height"`
	Width       int          `json:"width"`
	Samples     int          `json:"samples"`
	Steps       int          `json:"steps"`
	StylePreset string       `json:"style_preset,omitempty"`
}

type stabilityResponse struct {
	Message   string `json:"message"`
	Artifacts []struct {
		Base64 string `json:"base64"`
	} `json:"artifacts"`
}

// Stability generates images through the Stability AI REST API.
// The endpoint URL is injected from config so tests can point to a local server.
type Stability struct {
	url        string
	keys       KeySource
	httpClient *http.Client
}

func NewStability(url string, keys KeySource, timeout time.Duration) *Stability {
	if url == "" {
		url = DefaultStabilityURL
	}
	return &Stability{
		url:  url,
		keys: keys,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// stylePreset maps an image style to a Stability preset; unknown styles get none.
func stylePreset(style string) string {
	switch style {
	case "photorealistic":
		return "photographic"
	case "illustration":
		return "comic-book"
	case "3d_render":
		return "3d-model"
	case "digital_art":
		return "digital-art"
	case "watercolor":
		return "watercolor"
	}
	return ""
}

func (s *Stability) Generate(ctx context.Context, prompt, style string) (Image, error) {
	key, err := s.keys.Get(ctx)
	if err != nil {
		return Image{}, fmt.Errorf("read Stability AI key: %w", err)
	}
	if key == "" {
		return Image{}, ErrStabilityKeyMissing
	}

	body, err := json.Marshal(stabilityRequest{
		TextPrompts: []textPrompt{{Text: prompt, Weight: 1}},
		CfgScale:    7,
		Height:      1024,
		Width:       1024,
		Samples:     1,
		Steps:       30,
		StylePreset: stylePreset(style),
	})
	if err != nil {
		return Image{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Image{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Image{}, fmt.Errorf("Stability AI request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Image{}, fmt.Errorf("read response: %w", err)
	}
	var out stabilityResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		msg := out.Message
		if decodeErr != nil || msg == "" {
			msg = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return Image{}, fmt.Errorf("Stability AI error: %s", msg)
	}
	if decodeErr != nil {
		return Image{}, fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(out.Artifacts) == 0 || out.Artifacts[0].Base64 == "" {
		return Image{}, fmt.Errorf("Stability AI returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(out.Artifacts[0].Base64)
	if err != nil {
		return Image{}, fmt.Errorf("failed to decode Stability AI image: %w", err)
	}
	return Image{Data: data, MIME: "image/png"}, nil
}

// compile-time check that Stability implements ImageGenerator
var _ ImageGenerator = (*Stability)(nil)
