package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/storyforge-backend/internal/logger"
)

const (
	defaultImageModel = "gemini-2.0-flash-preview-image-generation"
	defaultTTSModel   = "gemini-2.5-flash-preview-tts"
)

// ImageResult is a generated illustration: raw bytes plus the MIME type the
// model reported for them.
type ImageResult struct {
	Data     []byte
	MimeType string
}

// SpeechResult is synthesized narration. Data is raw PCM; MimeType carries
// the sample format (typically "audio/L16;codec=pcm;rate=24000") and must be
// parsed by the caller to build a playable container.
type SpeechResult struct {
	Data     []byte
	MimeType string
}

type Client interface {
	GenerateImage(ctx context.Context, prompt string) (*ImageResult, error)
	GenerateSpeech(ctx context.Context, text string, voiceName string) (*SpeechResult, error)
}

type client struct {
	log        *logger.Logger
	genai      *genai.Client
	imageModel string
	ttsModel   string
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "GeminiClient")

	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	imageModel := strings.TrimSpace(os.Getenv("GEMINI_IMAGE_MODEL"))
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	ttsModel := strings.TrimSpace(os.Getenv("GEMINI_TTS_MODEL"))
	if ttsModel == "" {
		ttsModel = defaultTTSModel
	}

	slog.Info("Gemini client initialized", "image_model", imageModel, "tts_model", ttsModel)

	return &client{
		log:        slog,
		genai:      c,
		imageModel: imageModel,
		ttsModel:   ttsModel,
	}, nil
}

func (c *client) GenerateImage(ctx context.Context, prompt string) (*ImageResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(ctx, c.imageModel, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image generation: %w", err)
	}

	blob := firstInlineBlob(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, fmt.Errorf("gemini image generation returned no image data")
	}

	mime := blob.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return &ImageResult{Data: blob.Data, MimeType: mime}, nil
}

func (c *client) GenerateSpeech(ctx context.Context, text string, voiceName string) (*SpeechResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	temperature := float32(1)
	resp, err := c.genai.Models.GenerateContent(ctx, c.ttsModel, genai.Text(text), &genai.GenerateContentConfig{
		Temperature:        &temperature,
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini speech synthesis: %w", err)
	}

	blob := firstInlineBlob(resp)
	if blob == nil || len(blob.Data) == 0 {
		return nil, fmt.Errorf("gemini speech synthesis returned no audio data")
	}
	return &SpeechResult{Data: blob.Data, MimeType: blob.MIMEType}, nil
}

func firstInlineBlob(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}
