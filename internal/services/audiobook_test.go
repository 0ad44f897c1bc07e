package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/storyforge-backend/internal/clients/gemini"
	"github.com/yungbote/storyforge-backend/internal/types"
)

func TestParseAudioMimeType(t *testing.T) {
	cases := []struct {
		in       string
		wantBits int
		wantRate int
	}{
		{"audio/L16;codec=pcm;rate=24000", 16, 24000},
		{"audio/L24;rate=48000", 24, 48000},
		{"audio/L16", 16, 24000},
		{"", 16, 24000},
		{"audio/mpeg", 16, 24000},
		{"AUDIO/L16; RATE=8000", 16, 8000},
	}
	for _, tc := range cases {
		got := parseAudioMimeType(tc.in)
		if got.BitsPerSample != tc.wantBits || got.SampleRate != tc.wantRate {
			t.Fatalf("parseAudioMimeType(%q) = %+v, want bits=%d rate=%d", tc.in, got, tc.wantBits, tc.wantRate)
		}
	}
}

func TestWrapPCMInWAVHeader(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x02}, 100)
	wav := WrapPCMInWAV(pcm, "audio/L16;codec=pcm;rate=24000")

	if len(wav) != 44+len(pcm) {
		t.Fatalf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[12:16]) != "fmt " {
		t.Fatalf("bad chunk magic: %q %q %q", wav[0:4], wav[8:12], wav[12:16])
	}
	if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+len(pcm)) {
		t.Fatalf("riff size = %d, want %d", got, 36+len(pcm))
	}
	if got := binary.LittleEndian.Uint16(wav[20:22]); got != 1 {
		t.Fatalf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(wav[22:24]); got != 1 {
		t.Fatalf("channels = %d, want 1", got)
	}
	if got := binary.LittleEndian.Uint32(wav[24:28]); got != 24000 {
		t.Fatalf("sample rate = %d, want 24000", got)
	}
	if got := binary.LittleEndian.Uint32(wav[28:32]); got != 48000 {
		t.Fatalf("byte rate = %d, want 48000", got)
	}
	if got := binary.LittleEndian.Uint16(wav[34:36]); got != 16 {
		t.Fatalf("bits per sample = %d, want 16", got)
	}
	if string(wav[36:40]) != "data" {
		t.Fatalf("data chunk magic = %q", wav[36:40])
	}
	if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(len(pcm)) {
		t.Fatalf("data size = %d, want %d", got, len(pcm))
	}
	if !bytes.Equal(wav[44:], pcm) {
		t.Fatalf("pcm payload mangled")
	}
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, f.err
}

type fakeSynthesizer struct {
	gotVoice string
	err      error
}

func (f *fakeSynthesizer) GenerateSpeech(_ context.Context, _ string, voiceName string) (*gemini.SpeechResult, error) {
	f.gotVoice = voiceName
	if f.err != nil {
		return nil, f.err
	}
	return &gemini.SpeechResult{Data: []byte{0, 1, 2, 3}, MimeType: "audio/L16;rate=24000"}, nil
}

type fakeMediaTools struct{}

func (fakeMediaTools) AssertReady(context.Context) error { return nil }

func (fakeMediaTools) ConvertWAVToMP3(_ context.Context, wav []byte) ([]byte, error) {
	return append([]byte("MP3:"), wav...), nil
}

func TestAudiobookConvertVoiceProfiles(t *testing.T) {
	cases := []struct {
		profile   string
		wantVoice string
	}{
		{"AMERICAN_MALE", "Puck"},
		{"AMERICAN_FEMALE", "Kore"},
		{"BRITISH_MALE", "Algieba"},
		{"BRITISH_FEMALE", "Despina"},
		{"british_female", "Despina"},
		{" AMERICAN_MALE ", "Puck"},
	}
	for _, tc := range cases {
		tts := &fakeSynthesizer{}
		svc := NewAudiobookService(mustTestLogger(t), fakeExtractor{text: "Once upon a time."}, tts, fakeMediaTools{})
		out, err := svc.Convert(context.Background(), []byte("%PDF"), tc.profile)
		if err != nil {
			t.Fatalf("Convert(%q): %v", tc.profile, err)
		}
		if tts.gotVoice != tc.wantVoice {
			t.Fatalf("profile %q mapped to voice %q, want %q", tc.profile, tts.gotVoice, tc.wantVoice)
		}
		if len(out) == 0 {
			t.Fatalf("empty mp3 output")
		}
	}
}

func TestAudiobookConvertUnknownVoice(t *testing.T) {
	svc := NewAudiobookService(mustTestLogger(t), fakeExtractor{text: "text"}, &fakeSynthesizer{}, fakeMediaTools{})
	_, err := svc.Convert(context.Background(), []byte("%PDF"), "AUSTRALIAN_MALE")
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestAudiobookConvertExtractionFailure(t *testing.T) {
	svc := NewAudiobookService(mustTestLogger(t), fakeExtractor{err: fmt.Errorf("processor offline")}, &fakeSynthesizer{}, fakeMediaTools{})
	_, err := svc.Convert(context.Background(), []byte("%PDF"), "AMERICAN_MALE")
	if !errors.Is(err, types.ErrExtractFailed) {
		t.Fatalf("want ErrExtractFailed, got %v", err)
	}
}

func TestAudiobookConvertEmptyExtraction(t *testing.T) {
	svc := NewAudiobookService(mustTestLogger(t), fakeExtractor{text: "   \n  "}, &fakeSynthesizer{}, fakeMediaTools{})
	_, err := svc.Convert(context.Background(), []byte("%PDF"), "AMERICAN_MALE")
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestAudiobookConvertSynthesisFailure(t *testing.T) {
	tts := &fakeSynthesizer{err: fmt.Errorf("model unavailable")}
	svc := NewAudiobookService(mustTestLogger(t), fakeExtractor{text: "Once upon a time."}, tts, fakeMediaTools{})
	_, err := svc.Convert(context.Background(), []byte("%PDF"), "AMERICAN_FEMALE")
	if !errors.Is(err, types.ErrSpeechFailed) {
		t.Fatalf("want ErrSpeechFailed, got %v", err)
	}
}
