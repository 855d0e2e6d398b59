package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/voxchat/backend/internal/audio"
	"github.com/voxchat/backend/internal/auth"
	"github.com/voxchat/backend/internal/cache"
	"github.com/voxchat/backend/internal/commands"
	"github.com/voxchat/backend/internal/composer"
	"github.com/voxchat/backend/internal/config"
	"github.com/voxchat/backend/internal/database"
	"github.com/voxchat/backend/internal/directory"
	"github.com/voxchat/backend/internal/drafts"
	"github.com/voxchat/backend/internal/giphy"
	"github.com/voxchat/backend/internal/handlers"
	"github.com/voxchat/backend/internal/logger"
	"github.com/voxchat/backend/internal/middleware"
	"github.com/voxchat/backend/internal/recorder"
	"github.com/voxchat/backend/internal/retention"
	"github.com/voxchat/backend/internal/storage"
	"github.com/voxchat/backend/internal/stream"
	"github.com/voxchat/backend/internal/telemetry"
	"github.com/voxchat/backend/internal/util"
	"github.com/voxchat/backend/internal/validation"
	"github.com/voxchat/backend/internal/websocket"
)

const serviceName = "voxchat-backend"

func main() {
	// .env is a development convenience; production uses real env vars
	_ = godotenv.Load()

	if err := logger.Initialize(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FILE")); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Close()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Log.Info("=== VoxChat backend starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	// Distributed tracing
	tracerProvider, err := telemetry.InitTracer(telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TraceSampleRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	// Deployments can mark optional infrastructure as required via
	// VOXCHAT_BACKEND_REQUIRE_* env vars; refuse to start if it's down.
	if err := validation.NewServiceValidator().ValidateServices(context.Background()); err != nil {
		logger.Log.Fatal("Required service validation failed", zap.Error(err))
	}

	// Database
	if err := database.Initialize(); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis backs draft caching, autocomplete caching and rate limits. The
	// service degrades gracefully without it.
	redisClient, err := cache.NewRedisClient(
		os.Getenv("REDIS_HOST"),
		os.Getenv("REDIS_PORT"),
		os.Getenv("REDIS_PASSWORD"),
	)
	if err != nil {
		logger.Log.Warn("Redis unavailable, caching and smart rate limits disabled", zap.Error(err))
	} else {
		defer redisClient.Close()
	}

	// Stream chat backend
	streamClient, err := stream.NewClient()
	if err != nil {
		logger.Log.Fatal("Failed to initialize Stream client", zap.Error(err))
	}

	authService := auth.NewService([]byte(cfg.JWTSecret), database.DB, streamClient)

	// S3-backed attachment storage
	s3Uploader, err := storage.NewS3Uploader(cfg.S3Region, cfg.S3Bucket, cfg.S3CDNURL)
	if err != nil {
		logger.Log.Fatal("Failed to initialize S3 uploader", zap.Error(err))
	}
	if err := s3Uploader.CheckBucketAccess(context.Background()); err != nil {
		logger.Log.Warn("S3 bucket access failed, attachment uploads will fail", zap.Error(err))
	}

	// Composer collaborators
	draftStore := drafts.NewStore(database.DB, redisClient)
	commandRegistry := commands.Default()
	gateway := stream.NewMessageGateway(streamClient, s3Uploader)

	// Voice notes go through the encode+persist pipeline; without ffmpeg the
	// pipeline ships raw WAV.
	voiceEncoder := audio.NewEncoder(cfg.RecordingDir)
	if !voiceEncoder.Available() {
		logger.Log.Warn("ffmpeg not found, voice notes will upload as raw WAV")
	}
	gateway.SetVoiceProcessor(audio.NewPipeline(voiceEncoder, s3Uploader, database.DB))

	cacheManager := middleware.NewCacheManager(redisClient)

	// Background purge of soft-deleted voice notes and abandoned drafts
	retentionSvc := retention.NewCleanupService(database.DB, s3Uploader, 1*time.Hour)
	retentionSvc.SetCache(cacheManager)
	retentionSvc.Start()
	defer retentionSvc.Stop()

	manager := composer.NewManager(composer.ManagerConfig{
		Chat:        gateway,
		Validator:   storage.NewUploadLimit(cfg.MaxAttachmentBytes),
		NewRecorder: recorder.Factory(cfg.RecordingDir, cfg.RecordingSampleRate),
		Commands:    commandRegistry,
		Drafts:      draftStore,
	})

	// WebSocket hub: composer snapshots, recording progress, typing, presence
	wsHub := websocket.NewHub()
	wsHandler := websocket.NewHandler(wsHub, authService, manager)
	wsHandler.RegisterDefaultHandlers()

	presenceManager := websocket.NewPresenceManager(wsHub, websocket.DefaultPresenceConfig())
	wsHandler.SetPresenceManager(presenceManager)
	presenceManager.Start()
	defer presenceManager.Stop()

	go wsHub.Run()

	// HTTP handlers
	h := handlers.NewHandlers(manager, authService)
	h.SetDraftStore(draftStore)
	h.SetCommandRegistry(commandRegistry)
	h.SetDirectoryResolver(directory.NewResolver(streamClient, redisClient))
	h.SetUploader(s3Uploader)
	h.SetGIFCache(cacheManager)
	h.SetWebSocketHandler(wsHandler)

	if giphyClient, err := giphy.NewClient(); err != nil {
		logger.Log.Warn("GIPHY previews disabled", zap.Error(err))
	} else {
		h.SetGiphyClient(giphyClient)
	}

	authHandlers := handlers.NewAuthHandlers(authService, streamClient, database.DB)

	r := buildRouter(cfg, h, authHandlers, authService, wsHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Log.Info("💬 VoxChat backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := wsHandler.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown incomplete", zap.Error(err))
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}
	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Log.Warn("Tracer shutdown incomplete", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}

func buildRouter(
	cfg *config.Config,
	h *handlers.Handlers,
	authHandlers *handlers.AuthHandlers,
	authService *auth.Service,
	wsHandler *websocket.Handler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CorrelationMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = util.ParseCommaList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", middleware.RateLimitSmartAuth(), authHandlers.Register)
			authGroup.GET("/me", middleware.AuthMiddleware(authService), authHandlers.Me)
			authGroup.POST("/refresh", middleware.AuthMiddleware(authService), authHandlers.RefreshToken)
		}

		authed := api.Group("")
		authed.Use(middleware.AuthMiddleware(authService))
		authed.Use(middleware.RateLimitSmartDefault())

		channel := authed.Group("/channels/:channelId/composer")
		{
			channel.POST("", h.OpenSession)
			channel.GET("", h.GetComposer)
			channel.DELETE("", h.CloseSession)
			channel.PUT("/text", h.SetText)
			channel.PUT("/picker", h.UpdatePicker)
			channel.POST("/alerts/dismiss", h.DismissAlerts)

			channel.POST("/attachments", h.AddAttachment)
			channel.DELETE("/attachments/:attachmentId", h.RemoveAttachment)
			channel.POST("/attachments/toggle", h.ToggleAttachment)
			channel.POST("/attachments/upload", middleware.RateLimitSmartVoiceUpload(), h.UploadAttachment)

			channel.POST("/send", h.SendMessage)

			channel.PUT("/command", h.SetInstantCommand)
			channel.DELETE("/command", h.ClearInstantCommand)

			channel.GET("/mentions", middleware.RateLimitSmartAutocomplete(), h.MentionAutocomplete)

			recording := channel.Group("/recording")
			{
				recording.POST("/start", h.StartRecording)
				recording.PUT("/drag", h.UpdateRecordingDrag)
				recording.POST("/preview", h.PreviewRecording)
				recording.POST("/confirm", h.ConfirmRecording)
				recording.POST("/discard", h.DiscardRecording)
			}
		}

		authed.GET("/drafts/:channelId", h.GetDraft)
		authed.DELETE("/drafts/:channelId", h.DeleteDraft)

		authed.GET("/commands", h.ListCommands)
		authed.GET("/commands/giphy/preview", h.GiphyPreview)

		ws := api.Group("/ws")
		{
			// Auth happens inside the upgrade handler (query param or header)
			ws.GET("", wsHandler.HandleWebSocket)
			ws.GET("/connect", wsHandler.HandleWebSocket)

			ws.GET("/metrics", middleware.AuthMiddleware(authService), wsHandler.HandleMetrics)
			ws.POST("/online", middleware.AuthMiddleware(authService), wsHandler.HandleOnlineStatus)
			ws.POST("/presence", middleware.AuthMiddleware(authService), wsHandler.HandlePresenceStatus)
		}
	}

	return r
}
