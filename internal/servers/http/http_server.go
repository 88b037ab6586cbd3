package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"emrSocket/configs"
	_ "emrSocket/docs"
	"emrSocket/internal/handlers"
	"emrSocket/internal/logger"
)

type HttpServer struct {
	config        *configs.Config
	router        *gin.Engine
	restHandler   *handlers.RestHandler
	socketHandler *handlers.SocketHandler
	verifier      handlers.TokenVerifier
	log           *logger.Logger
}

func NewHttpServer(
	config *configs.Config,
	restHandler *handlers.RestHandler,
	socketHandler *handlers.SocketHandler,
	verifier handlers.TokenVerifier,
	log *logger.Logger,
) *HttpServer {
	hs := &HttpServer{
		config:        config,
		restHandler:   restHandler,
		socketHandler: socketHandler,
		verifier:      verifier,
		log:           log.With("component", "HttpServer"),
	}
	hs.initializeGin()
	hs.setupRestfulRoutes()
	hs.setupWebSocketRoutes()
	return hs
}

func (hs *HttpServer) Router() *gin.Engine {
	return hs.router
}

func (hs *HttpServer) initializeGin() {
	gin.SetMode(hs.config.Viper.GetString("server.mode"))
	hs.router = gin.New()
	hs.router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := hs.config.Viper.GetStringSlice("websocket.allowed_origins"); len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	hs.router.Use(cors.New(corsConfig))
}

func (hs *HttpServer) setupRestfulRoutes() {
	hs.router.GET("/healthz", hs.restHandler.Healthz)
	hs.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := hs.router.Group("/api")
	api.POST("/auth/login", hs.restHandler.Login)

	protected := api.Group("")
	protected.Use(handlers.MustAuthenticateMiddleware(hs.verifier))
	{
		protected.GET("/notifications", hs.restHandler.GetNotifications)
		protected.POST("/notifications", hs.restHandler.CreateNotification)
		protected.PATCH("/notifications/:id/read", hs.restHandler.MarkNotificationRead)

		protected.GET("/chat/messages", hs.restHandler.GetChatMessages)
		protected.POST("/chat/messages", hs.restHandler.SendChatMessage)
		protected.POST("/chat/attachments", hs.restHandler.UploadChatAttachment)

		protected.GET("/presence", hs.restHandler.GetOnlineUsers)
		protected.POST("/broadcasts", hs.restHandler.Broadcast)
	}
}

func (hs *HttpServer) setupWebSocketRoutes() {
	hs.router.GET("/ws", hs.socketHandler.HandleSocketRoute)
}

// Run serves until ctx is cancelled, then drains HTTP requests and closes
// every websocket connection.
func (hs *HttpServer) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", hs.config.Viper.GetInt("server.port"))
	server := &http.Server{
		Addr:              addr,
		Handler:           hs.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		hs.log.Info("HTTP server started", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	hs.log.Info("shutting down server")
	timeout := hs.config.Viper.GetDuration("server.shutdown_timeout")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	// hijacked websocket connections are not tracked by Shutdown
	if err := hs.socketHandler.Shutdown(shutdownCtx); err != nil {
		hs.log.Warn("websocket connections still open after timeout", "error", err)
	}
	hs.log.Info("server exiting")
	return nil
}
