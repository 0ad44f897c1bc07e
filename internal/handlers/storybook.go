package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/services"
	"github.com/yungbote/storyforge-backend/internal/types"
)

// 20MB cap on uploaded PDFs.
const maxUploadBytes = 20 << 20

type StorybookHandler struct {
	log              *logger.Logger
	storybookService services.StorybookService
}

func NewStorybookHandler(log *logger.Logger, ssvc services.StorybookService) *StorybookHandler {
	return &StorybookHandler{
		log:              log.With("handler", "StorybookHandler"),
		storybookService: ssvc,
	}
}

type updateSceneTextRequest struct {
	Text string `json:"text"`
}

type updateDetailsRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

type updateStylesRequest struct {
	FontName string `json:"font_name"`
	FontSize int    `json:"font_size"`
}

// POST /storybook/session/start
// Multipart form: story_text or pdf_file, plus character_desc, style_desc and
// optional title/author. Responds with the full initial session snapshot.
func (h *StorybookHandler) StartSession(c *gin.Context) {
	input, err := h.parseStartForm(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	session, err := h.storybookService.StartSession(c.Request.Context(), input)
	if err != nil {
		h.log.Error("start session failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

// POST /storybook/create-and-finalize
// Same form as session start but skips the editing session entirely and
// streams back the finished PDF.
func (h *StorybookHandler) CreateAndFinalize(c *gin.Context) {
	input, err := h.parseStartForm(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	pdfBytes, err := h.storybookService.CreateAndFinalize(c.Request.Context(), input)
	if err != nil {
		h.log.Error("create-and-finalize failed", "error", err)
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="storybook.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GET /storybook/session/:id/state
func (h *StorybookHandler) GetState(c *gin.Context) {
	session, err := h.storybookService.GetState(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, session)
}

// PUT /storybook/session/:id/scene/:index
func (h *StorybookHandler) UpdateSceneText(c *gin.Context) {
	sceneIndex, err := h.sceneIndex(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	var req updateSceneTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if err := h.storybookService.UpdateSceneText(c.Request.Context(), c.Param("id"), sceneIndex, req.Text); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// POST /storybook/session/:id/scene/:index/regenerate
func (h *StorybookHandler) RegenerateSceneImage(c *gin.Context) {
	sceneIndex, err := h.sceneIndex(c)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	url, err := h.storybookService.RegenerateSceneImage(c.Request.Context(), c.Param("id"), sceneIndex)
	if err != nil {
		h.log.Error("scene regenerate failed", "session_id", c.Param("id"), "scene", sceneIndex, "error", err)
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"new_image_url": url})
}

// PUT /storybook/session/:id/details
func (h *StorybookHandler) UpdateDetails(c *gin.Context) {
	var req updateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if err := h.storybookService.UpdateDetails(c.Request.Context(), c.Param("id"), req.Title, req.Author); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// PUT /storybook/session/:id/styles
func (h *StorybookHandler) UpdateStyles(c *gin.Context) {
	var req updateStylesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_input", err)
		return
	}
	if err := h.storybookService.UpdateStyles(c.Request.Context(), c.Param("id"), req.FontName, req.FontSize); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// GET /storybook/session/:id/preview
// Renders the current snapshot without touching it, so repeated previews of
// an unchanged session return identical bytes.
func (h *StorybookHandler) Preview(c *gin.Context) {
	pdfBytes, err := h.storybookService.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

// GET /storybook/session/:id/download
// Final render plus session teardown. The ID is dead after this returns.
func (h *StorybookHandler) Download(c *gin.Context) {
	pdfBytes, err := h.storybookService.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="storybook.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

func (h *StorybookHandler) sceneIndex(c *gin.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil || idx < 0 {
		return 0, fmt.Errorf("%w: scene index %q", types.ErrOutOfRange, c.Param("index"))
	}
	return idx, nil
}

func (h *StorybookHandler) parseStartForm(c *gin.Context) (services.StartSessionInput, error) {
	input := services.StartSessionInput{
		StoryText:     c.PostForm("story_text"),
		CharacterDesc: c.PostForm("character_desc"),
		StyleDesc:     c.PostForm("style_desc"),
		Title:         c.PostForm("title"),
		Author:        c.PostForm("author"),
	}

	fileHeader, err := c.FormFile("pdf_file")
	if err != nil {
		// pdf_file is optional when story_text is present
		return input, nil
	}
	if fileHeader.Size > maxUploadBytes {
		return input, fmt.Errorf("%w: pdf_file exceeds %d bytes", types.ErrInvalidInput, maxUploadBytes)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return input, fmt.Errorf("%w: could not open pdf_file: %v", types.ErrInvalidInput, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return input, fmt.Errorf("%w: could not read pdf_file: %v", types.ErrInvalidInput, err)
	}
	input.PDFData = data
	return input, nil
}
