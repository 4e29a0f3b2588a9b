package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "docuchat/internal/app"
	"docuchat/internal/bootstrap"
	"docuchat/internal/cache"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
	"docuchat/internal/transport/http/handler"
	"docuchat/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	tenantRepo := repository.NewTenantRepository(app.MySQL)
	docRepo := repository.NewDocumentRepository(app.MySQL)
	chunkRepo := repository.NewChunkRepository(app.MySQL)
	widgetRepo := repository.NewWidgetRepository(app.MySQL)
	sessionRepo := repository.NewSessionRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	widgetCache := cache.NewWidgetCache(
		app.Redis,
		time.Duration(app.Config.Redis.WidgetTTLSeconds)*time.Second,
	)
	turnPublisher := rabbitmq.NewTurnPublisher(app.MQConn, app.Config.RabbitMQ.TurnPersistQueue)

	ingestService := appsvc.NewIngestService(docRepo, chunkRepo, app.Provider, appsvc.IngestConfig{
		ChunkSize:      app.Config.RAG.ChunkSize,
		ChunkOverlap:   app.Config.RAG.ChunkOverlap,
		EmbedBatchSize: app.Config.RAG.EmbedBatchSize,
		EmbeddingDim:   app.Config.RAG.EmbeddingDim,
		MaxUploadBytes: app.Config.RAG.MaxUploadBytes,
	})
	retriever := appsvc.NewRetriever(app.Provider, chunkRepo, app.Config.RAG.TopK, float32(app.Config.RAG.MinSimilarity))
	chatService := appsvc.NewChatService(
		widgetRepo,
		widgetCache,
		sessionRepo,
		historyCache,
		turnPublisher,
		retriever,
		app.Provider,
		app.Config.RAG.MaxContextTurns,
	)

	documentHandler := handler.NewDocumentHandler(ingestService)
	chatHandler := handler.NewChatHandler(chatService)
	widgetHandler := handler.NewWidgetHandler(chatService)

	v1 := router.Group("/api/v1")

	// Widget-facing endpoints are public; the widget embeds on third-party
	// pages with no credentials beyond the ids in the request.
	v1.POST("/chat", chatHandler.Send)
	v1.GET("/widgets/:tenantId/:widgetId", widgetHandler.Get)

	docs := v1.Group("/documents")
	docs.Use(middleware.AuthTenant(app.Config.Auth.JWTSecret, tenantRepo))
	docs.POST("", documentHandler.Upload)
	docs.GET("", documentHandler.List)
	docs.DELETE("/:id", documentHandler.Delete)

	return router
}
