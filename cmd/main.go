package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/storyforge-backend/internal/clients/gcp"
	"github.com/yungbote/storyforge-backend/internal/clients/gemini"
	"github.com/yungbote/storyforge-backend/internal/clients/redis"
	"github.com/yungbote/storyforge-backend/internal/handlers"
	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/observability"
	"github.com/yungbote/storyforge-backend/internal/server"
	"github.com/yungbote/storyforge-backend/internal/services"
	"github.com/yungbote/storyforge-backend/internal/types"
	"github.com/yungbote/storyforge-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := utils.GetEnv("PORT", "8080", log)
	sessionTTL := utils.GetEnvAsInt("STORYBOOK_SESSION_TTL_SECONDS", 3600, log)
	stylesPath := utils.GetEnv("STORYBOOK_STYLES_CONFIG", "", log)

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "storyforge-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})

	// Style config
	styleConfig := types.DefaultStyleConfig()
	if stylesPath != "" {
		loaded, err := types.LoadStyleConfig(stylesPath)
		if err != nil {
			log.Warn("Could not load style config, using defaults", "path", stylesPath, "error", err)
		} else {
			styleConfig = loaded
		}
	}

	// Clients
	log.Info("Setting up clients from main...")
	sessionStore, err := redis.NewSessionStore(log, time.Duration(sessionTTL)*time.Second)
	if err != nil {
		log.Error("Could not init Redis session store", "error", err)
		os.Exit(1)
	}
	defer sessionStore.Close()

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService (image uploads disabled)", "error", err)
	}
	documentClient, err := gcp.NewDocument(log)
	if err != nil {
		log.Warn("Could not init Document AI (PDF extraction disabled)", "error", err)
	}
	geminiClient, err := gemini.NewClient(log)
	if err != nil {
		log.Warn("Could not init Gemini client (generation disabled)", "error", err)
	}

	// Services
	log.Info("Setting up services from main...")
	var imageProvider services.SceneImageProvider
	if geminiClient != nil && bucketService != nil {
		imageProvider = services.NewSceneImageProvider(log, geminiClient, bucketService)
	}
	assembler := services.NewPDFAssembler(log, services.NewHTTPImageFetcher(), services.NewPlaceholderRenderer(log))

	var extractor services.PDFTextExtractor
	if documentClient != nil {
		extractor = documentClient
	}

	storybookService := services.NewStorybookService(log, sessionStore, imageProvider, assembler, bucketService, extractor, styleConfig)

	mediaTools := services.NewMediaToolsService(log)
	if err := mediaTools.AssertReady(context.Background()); err != nil {
		log.Warn("Media tools unavailable (audiobook conversion disabled)", "error", err)
	}

	var audiobookHandler *handlers.AudiobookHandler
	if documentClient != nil && geminiClient != nil {
		audiobookService := services.NewAudiobookService(log, documentClient, geminiClient, mediaTools)
		audiobookHandler = handlers.NewAudiobookHandler(log, audiobookService)
	} else {
		log.Warn("Audiobook endpoints disabled (missing Document AI or Gemini client)")
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	storybookHandler := handlers.NewStorybookHandler(log, storybookService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:              log,
		StorybookHandler: storybookHandler,
		AudiobookHandler: audiobookHandler,
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn("Server shutdown error", "error", err)
	}
	if shutdownOtel != nil {
		if err := shutdownOtel(ctx); err != nil {
			log.Warn("Otel shutdown error", "error", err)
		}
	}
}
