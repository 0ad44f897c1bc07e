package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/storyforge-backend/internal/clients/gcp"
	"github.com/yungbote/storyforge-backend/internal/clients/redis"
	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

// PDFTextExtractor pulls plain text out of an uploaded PDF.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, data []byte, mimeType string) (string, error)
}

type StartSessionInput struct {
	StoryText     string
	PDFData       []byte
	CharacterDesc string
	StyleDesc     string
	Title         string
	Author        string
}

// StorybookService owns the storybook session lifecycle: bootstrap,
// per-field edits, preview and finalize. Every mutation narrows to a single
// field path on the stored session; the scene count is fixed at creation.
type StorybookService interface {
	StartSession(ctx context.Context, input StartSessionInput) (*types.StorybookSession, error)
	CreateAndFinalize(ctx context.Context, input StartSessionInput) ([]byte, error)
	GetState(ctx context.Context, sessionID string) (*types.StorybookSession, error)
	UpdateSceneText(ctx context.Context, sessionID string, sceneIndex int, text string) error
	RegenerateSceneImage(ctx context.Context, sessionID string, sceneIndex int) (string, error)
	UpdateDetails(ctx context.Context, sessionID, title, author string) error
	UpdateStyles(ctx context.Context, sessionID, fontName string, fontSize int) error
	Preview(ctx context.Context, sessionID string) ([]byte, error)
	Finalize(ctx context.Context, sessionID string) ([]byte, error)
}

type storybookService struct {
	log       *logger.Logger
	store     redis.SessionStore
	images    SceneImageProvider
	assembler PDFAssembler
	bucket    gcp.BucketService
	extractor PDFTextExtractor
	styles    *types.StyleConfig

	sceneTokenBudget int
	imageConcurrency int
}

func NewStorybookService(
	log *logger.Logger,
	store redis.SessionStore,
	images SceneImageProvider,
	assembler PDFAssembler,
	bucket gcp.BucketService,
	extractor PDFTextExtractor,
	styles *types.StyleConfig,
) StorybookService {
	if styles == nil {
		styles = types.DefaultStyleConfig()
	}
	return &storybookService{
		log:              log.With("service", "StorybookService"),
		store:            store,
		images:           images,
		assembler:        assembler,
		bucket:           bucket,
		extractor:        extractor,
		styles:           styles,
		sceneTokenBudget: defaultSceneTokenBudget,
		imageConcurrency: 3,
	}
}

func (s *storybookService) StartSession(ctx context.Context, input StartSessionInput) (*types.StorybookSession, error) {
	session, err := s.buildSession(ctx, input)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	session.SessionID = id

	// Initial illustrations happen after Create so a long generation run
	// cannot delay the session becoming addressable; failures leave the
	// scene's image_url null for a later regenerate.
	s.generateInitialImages(ctx, session)

	if _, err := s.store.Update(ctx, id, func(stored *types.StorybookSession) error {
		for i := range stored.Scenes {
			if i < len(session.Scenes) {
				stored.Scenes[i].ImageURL = session.Scenes[i].ImageURL
			}
		}
		return nil
	}); err != nil {
		// session may have expired mid-generation; the caller still gets
		// the snapshot it asked for
		s.log.Warn("could not persist initial scene images", "session_id", id, "error", err)
	}

	return session, nil
}

func (s *storybookService) CreateAndFinalize(ctx context.Context, input StartSessionInput) ([]byte, error) {
	session, err := s.buildSession(ctx, input)
	if err != nil {
		return nil, err
	}
	session.SessionID = "oneshot"
	s.generateInitialImages(ctx, session)
	return s.assembler.Assemble(ctx, session)
}

func (s *storybookService) buildSession(ctx context.Context, input StartSessionInput) (*types.StorybookSession, error) {
	storyText := strings.TrimSpace(input.StoryText)
	if storyText == "" && len(input.PDFData) > 0 {
		if s.extractor == nil {
			return nil, fmt.Errorf("%w: no PDF extractor configured", types.ErrExtractFailed)
		}
		extracted, err := s.extractor.ExtractText(ctx, input.PDFData, "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExtractFailed, err)
		}
		storyText = strings.TrimSpace(extracted)
	}
	if storyText == "" {
		return nil, fmt.Errorf("%w: no story text provided", types.ErrInvalidInput)
	}

	sceneTexts := SegmentStory(storyText, s.sceneTokenBudget)
	if len(sceneTexts) == 0 {
		return nil, fmt.Errorf("%w: could not segment the story text", types.ErrInvalidInput)
	}

	scenes := make([]types.Scene, len(sceneTexts))
	for i, text := range sceneTexts {
		scenes[i] = types.Scene{Text: text}
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = "My Storybook"
	}
	author := strings.TrimSpace(input.Author)
	if author == "" {
		author = "Anonymous"
	}

	return &types.StorybookSession{
		Title:         title,
		Author:        author,
		CharacterDesc: input.CharacterDesc,
		StyleDesc:     input.StyleDesc,
		MasterPrompt:  BuildMasterPrompt(input.CharacterDesc, input.StyleDesc),
		Styles:        s.styles.DefaultStyles(),
		Scenes:        scenes,
	}, nil
}

func (s *storybookService) generateInitialImages(ctx context.Context, session *types.StorybookSession) {
	if s.images == nil {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.imageConcurrency)
	for i := range session.Scenes {
		g.Go(func() error {
			url, err := s.images.GenerateSceneImage(gctx, session.SessionID, i, session.MasterPrompt, session.Scenes[i].Text)
			if err != nil {
				s.log.Warn("initial scene image failed", "session_id", session.SessionID, "scene", i+1, "error", err)
				return nil
			}
			session.Scenes[i].ImageURL = &url
			return nil
		})
	}
	_ = g.Wait()
}

func (s *storybookService) GetState(ctx context.Context, sessionID string) (*types.StorybookSession, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *storybookService) UpdateSceneText(ctx context.Context, sessionID string, sceneIndex int, text string) error {
	_, err := s.store.Update(ctx, sessionID, func(session *types.StorybookSession) error {
		if !session.SceneInRange(sceneIndex) {
			return fmt.Errorf("%w: scene %d of %d", types.ErrOutOfRange, sceneIndex, len(session.Scenes))
		}
		session.Scenes[sceneIndex].Text = text
		return nil
	})
	return err
}

// RegenerateSceneImage calls the image provider first and only writes the
// session once generation succeeded, so a failed call leaves the previous
// image untouched.
func (s *storybookService) RegenerateSceneImage(ctx context.Context, sessionID string, sceneIndex int) (string, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if !session.SceneInRange(sceneIndex) {
		return "", fmt.Errorf("%w: scene %d of %d", types.ErrOutOfRange, sceneIndex, len(session.Scenes))
	}
	if s.images == nil {
		return "", fmt.Errorf("%w: no image provider configured", types.ErrGenerationFailed)
	}

	url, err := s.images.GenerateSceneImage(ctx, sessionID, sceneIndex, session.MasterPrompt, session.Scenes[sceneIndex].Text)
	if err != nil {
		return "", err
	}

	if _, err := s.store.Update(ctx, sessionID, func(stored *types.StorybookSession) error {
		if !stored.SceneInRange(sceneIndex) {
			return fmt.Errorf("%w: scene %d of %d", types.ErrOutOfRange, sceneIndex, len(stored.Scenes))
		}
		stored.Scenes[sceneIndex].ImageURL = &url
		return nil
	}); err != nil {
		return "", err
	}
	return url, nil
}

func (s *storybookService) UpdateDetails(ctx context.Context, sessionID, title, author string) error {
	if strings.TrimSpace(title) == "" || strings.TrimSpace(author) == "" {
		return fmt.Errorf("%w: title and author are both required", types.ErrInvalidInput)
	}
	_, err := s.store.Update(ctx, sessionID, func(session *types.StorybookSession) error {
		session.Title = title
		session.Author = author
		return nil
	})
	return err
}

func (s *storybookService) UpdateStyles(ctx context.Context, sessionID, fontName string, fontSize int) error {
	if err := s.styles.Validate(fontName, fontSize); err != nil {
		return err
	}
	_, err := s.store.Update(ctx, sessionID, func(session *types.StorybookSession) error {
		session.Styles = types.Styles{FontName: fontName, FontSize: fontSize}
		return nil
	})
	return err
}

func (s *storybookService) Preview(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.assembler.Assemble(ctx, session)
}

// Finalize renders the book a last time, archives the artifact and tears the
// session down. Afterwards every operation on the ID reports NotFound.
func (s *storybookService) Finalize(ctx context.Context, sessionID string) ([]byte, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pdfBytes, err := s.assembler.Assemble(ctx, session)
	if err != nil {
		return nil, err
	}

	if s.bucket != nil {
		key := fmt.Sprintf("storybook/%s/storybook.pdf", sessionID)
		if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryArtifact, key, bytes.NewReader(pdfBytes)); err != nil {
			s.log.Warn("could not archive finalized storybook (ignored)", "session_id", sessionID, "error", err)
		}
	}

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return nil, err
	}
	s.log.Info("Session finalized", "session_id", sessionID, "bytes", len(pdfBytes))
	return pdfBytes, nil
}
