package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/yungbote/storyforge-backend/internal/clients/gcp"
	"github.com/yungbote/storyforge-backend/internal/clients/gemini"
	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

// SceneImageProvider generates an illustration for one scene and publishes
// it to the scene bucket, returning the public URL the session stores.
type SceneImageProvider interface {
	GenerateSceneImage(ctx context.Context, sessionID string, sceneIndex int, masterPrompt, sceneText string) (string, error)
}

type sceneImageProvider struct {
	log    *logger.Logger
	gemini gemini.Client
	bucket gcp.BucketService
}

func NewSceneImageProvider(log *logger.Logger, geminiClient gemini.Client, bucket gcp.BucketService) SceneImageProvider {
	return &sceneImageProvider{
		log:    log.With("service", "SceneImageProvider"),
		gemini: geminiClient,
		bucket: bucket,
	}
}

func (p *sceneImageProvider) GenerateSceneImage(ctx context.Context, sessionID string, sceneIndex int, masterPrompt, sceneText string) (string, error) {
	img, err := p.gemini.GenerateImage(ctx, ScenePrompt(masterPrompt, sceneText))
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrGenerationFailed, err)
	}

	// versioned key so CDN caches never serve a stale regeneration
	key := fmt.Sprintf("storybook/%s/scene_%d/%d.png", sessionID, sceneIndex+1, time.Now().UnixNano())
	if err := p.bucket.UploadFile(ctx, gcp.BucketCategoryScene, key, bytes.NewReader(img.Data)); err != nil {
		return "", fmt.Errorf("%w: upload: %v", types.ErrGenerationFailed, err)
	}

	url := p.bucket.GetPublicURL(gcp.BucketCategoryScene, key)
	p.log.Info("Scene image generated", "session_id", sessionID, "scene", sceneIndex+1, "bytes", len(img.Data))
	return url, nil
}
