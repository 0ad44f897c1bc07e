package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/services"
	"github.com/yungbote/storyforge-backend/internal/types"
)

type AudiobookHandler struct {
	log              *logger.Logger
	audiobookService services.AudiobookService
}

func NewAudiobookHandler(log *logger.Logger, asvc services.AudiobookService) *AudiobookHandler {
	return &AudiobookHandler{
		log:              log.With("handler", "AudiobookHandler"),
		audiobookService: asvc,
	}
}

// POST /audiobook/convert
// Multipart form: voice (profile key) + pdf_file. Streams back the MP3.
func (h *AudiobookHandler) Convert(c *gin.Context) {
	voice := c.PostForm("voice")

	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		RespondDomainError(c, fmt.Errorf("%w: pdf_file is required", types.ErrInvalidInput))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		RespondDomainError(c, fmt.Errorf("%w: pdf_file exceeds %d bytes", types.ErrInvalidInput, maxUploadBytes))
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		RespondDomainError(c, fmt.Errorf("%w: could not open pdf_file: %v", types.ErrInvalidInput, err))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		RespondDomainError(c, fmt.Errorf("%w: could not read pdf_file: %v", types.ErrInvalidInput, err))
		return
	}

	mp3, err := h.audiobookService.Convert(c.Request.Context(), data, voice)
	if err != nil {
		h.log.Error("audiobook conversion failed", "voice", voice, "error", err)
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="audiobook.mp3"`)
	c.Data(http.StatusOK, "audio/mpeg", mp3)
}
