package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/storyforge-backend/internal/clients/gemini"
	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

// VoiceProfiles maps the client-facing voice profile keys to Gemini prebuilt
// voice names.
var VoiceProfiles = map[string]string{
	"AMERICAN_MALE":   "Puck",
	"AMERICAN_FEMALE": "Kore",
	"BRITISH_MALE":    "Algieba",
	"BRITISH_FEMALE":  "Despina",
}

// SpeechSynthesizer narrates text; satisfied by the Gemini client.
type SpeechSynthesizer interface {
	GenerateSpeech(ctx context.Context, text string, voiceName string) (*gemini.SpeechResult, error)
}

// AudiobookService turns an uploaded PDF into a narrated MP3: extract text,
// sanitize it for speech, synthesize with the selected voice profile, wrap
// the raw PCM in a WAV header and transcode to MP3.
type AudiobookService interface {
	Convert(ctx context.Context, pdfData []byte, voiceProfile string) ([]byte, error)
}

type audiobookService struct {
	log       *logger.Logger
	extractor PDFTextExtractor
	tts       SpeechSynthesizer
	media     MediaToolsService
}

func NewAudiobookService(log *logger.Logger, extractor PDFTextExtractor, tts SpeechSynthesizer, media MediaToolsService) AudiobookService {
	return &audiobookService{
		log:       log.With("service", "AudiobookService"),
		extractor: extractor,
		tts:       tts,
		media:     media,
	}
}

func (s *audiobookService) Convert(ctx context.Context, pdfData []byte, voiceProfile string) ([]byte, error) {
	voiceName, ok := VoiceProfiles[strings.ToUpper(strings.TrimSpace(voiceProfile))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown voice profile %q", types.ErrInvalidInput, voiceProfile)
	}

	raw, err := s.extractor.ExtractText(ctx, pdfData, "application/pdf")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExtractFailed, err)
	}
	clean := SanitizeForSpeech(raw)
	if clean == "" {
		return nil, fmt.Errorf("%w: no readable text in the PDF", types.ErrInvalidInput)
	}
	s.log.Info("PDF text extracted", "chars", len(clean), "tokens", CountTokens(clean, ""))

	speech, err := s.tts.GenerateSpeech(ctx, clean, voiceName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSpeechFailed, err)
	}

	wav := WrapPCMInWAV(speech.Data, speech.MimeType)
	mp3, err := s.media.ConvertWAVToMP3(ctx, wav)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrSpeechFailed, err)
	}
	s.log.Info("Audiobook converted", "voice", voiceName, "mp3_bytes", len(mp3))
	return mp3, nil
}

// pcmParams are the sample parameters parsed from a Gemini audio MIME type
// such as "audio/L16;codec=pcm;rate=24000".
type pcmParams struct {
	BitsPerSample int
	SampleRate    int
}

func parseAudioMimeType(mimeType string) pcmParams {
	p := pcmParams{BitsPerSample: 16, SampleRate: 24000}
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		lower := strings.ToLower(part)
		if strings.HasPrefix(lower, "rate=") {
			if v, err := strconv.Atoi(part[len("rate="):]); err == nil {
				p.SampleRate = v
			}
			continue
		}
		if idx := strings.Index(lower, "audio/l"); idx >= 0 {
			if v, err := strconv.Atoi(part[idx+len("audio/l"):]); err == nil {
				p.BitsPerSample = v
			}
		}
	}
	return p
}

// WrapPCMInWAV builds a canonical 44-byte RIFF/WAVE header around raw mono
// PCM so ffmpeg can read it.
func WrapPCMInWAV(pcm []byte, mimeType string) []byte {
	params := parseAudioMimeType(mimeType)

	const numChannels = 1
	bytesPerSample := params.BitsPerSample / 8
	blockAlign := numChannels * bytesPerSample
	byteRate := params.SampleRate * blockAlign
	dataSize := len(pcm)

	out := make([]byte, 0, 44+dataSize)
	out = append(out, []byte("RIFF")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+dataSize))
	out = append(out, []byte("WAVE")...)
	out = append(out, []byte("fmt ")...)
	out = binary.LittleEndian.AppendUint32(out, 16) // PCM fmt chunk size
	out = binary.LittleEndian.AppendUint16(out, 1)  // PCM format
	out = binary.LittleEndian.AppendUint16(out, numChannels)
	out = binary.LittleEndian.AppendUint32(out, uint32(params.SampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(params.BitsPerSample))
	out = append(out, []byte("data")...)
	out = binary.LittleEndian.AppendUint32(out, uint32(dataSize))
	out = append(out, pcm...)
	return out
}
