package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/yungbote/storyforge-backend/internal/logger"
)

// MediaToolsService is the glue around the ffmpeg binary, used to transcode
// synthesized WAV narration into the MP3 the client downloads.
//
// REQUIRED BINARY in the runtime image: ffmpeg.
type MediaToolsService interface {
	AssertReady(ctx context.Context) error
	ConvertWAVToMP3(ctx context.Context, wav []byte) ([]byte, error)
}

type mediaToolsService struct {
	log *logger.Logger

	ffmpegPath     string
	workRoot       string
	bitrate        string
	defaultTimeout time.Duration
}

func NewMediaToolsService(log *logger.Logger) MediaToolsService {
	return &mediaToolsService{
		log:            log.With("service", "MediaToolsService"),
		ffmpegPath:     "ffmpeg",
		workRoot:       filepath.Join(os.TempDir(), "storyforge-media"),
		bitrate:        "192k",
		defaultTimeout: 5 * time.Minute,
	}
}

func (m *mediaToolsService) AssertReady(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := exec.CommandContext(ctx, m.ffmpegPath, "-version").Run(); err != nil {
		return fmt.Errorf("ffmpeg not available (is it installed and on PATH?): %w", err)
	}
	return nil
}

func (m *mediaToolsService) ConvertWAVToMP3(ctx context.Context, wav []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, m.defaultTimeout)
	defer cancel()

	if err := os.MkdirAll(m.workRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	workDir, err := os.MkdirTemp(m.workRoot, "wav2mp3-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inPath := filepath.Join(workDir, "in.wav")
	outPath := filepath.Join(workDir, "out.mp3")
	if err := os.WriteFile(inPath, wav, 0o644); err != nil {
		return nil, fmt.Errorf("write temp wav: %w", err)
	}

	cmd := exec.CommandContext(ctx, m.ffmpegPath,
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", inPath,
		"-b:a", m.bitrate,
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg wav->mp3: %w (%s)", err, stderr.String())
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("read mp3 output: %w", err)
	}
	m.log.Debug("WAV converted to MP3", "in_bytes", len(wav), "out_bytes", len(out), "took", time.Since(start))
	return out, nil
}
