package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"emrSocket/configs"
	"emrSocket/internal/handlers"
	"emrSocket/internal/interfaces"
	"emrSocket/internal/logger"
	"emrSocket/internal/realtime"
	"emrSocket/internal/repositories"
	"emrSocket/internal/servers/broker"
	"emrSocket/internal/servers/cache"
	"emrSocket/internal/servers/database"
	"emrSocket/internal/servers/http"
	"emrSocket/internal/services"
)

type App struct {
	config *configs.Config
	log    *logger.Logger
}

func NewApp(config *configs.Config, log *logger.Logger) *App {
	return &App{
		config: config,
		log:    log,
	}
}

func TokenOptionsFromConfig(config *configs.Config) services.TokenOptions {
	return services.TokenOptions{
		Secret:     []byte(config.Viper.GetString("jwt.secret")),
		Issuer:     config.Viper.GetString("jwt.issuer"),
		Expiration: time.Duration(config.Viper.GetInt("jwt.expiration_time")) * time.Second,
	}
}

func SocketOptionsFromConfig(config *configs.Config) handlers.SocketOptions {
	return handlers.SocketOptions{
		AllowedOrigins: config.Viper.GetStringSlice("websocket.allowed_origins"),
		SendBuffer:     config.Viper.GetInt("websocket.send_buffer"),
		MaxMessageSize: config.Viper.GetInt64("websocket.max_message_size"),
		PongWait:       config.Viper.GetDuration("websocket.pong_wait"),
		WriteWait:      config.Viper.GetDuration("websocket.write_wait"),
	}
}

func (app *App) openDB() (*gorm.DB, error) {
	db, err := database.NewDB(app.config)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// LetsGo wires every component and blocks until ctx is cancelled or one of
// the long-running parts fails.
func (app *App) LetsGo(ctx context.Context) error {
	db, err := app.openDB()
	if err != nil {
		return err
	}
	app.log.Info("database migrated")

	var (
		bus           realtime.Bus
		presenceStore interfaces.PresenceStore
		heartbeat     *repositories.PresenceRepository
	)
	switch app.config.Viper.GetString("realtime.bus") {
	case "local":
		bus = realtime.NewLocalBus()
		presenceStore = repositories.NewMemoryPresenceRepository()
	default:
		rdb, err := cache.NewRedisClient(ctx, app.config)
		if err != nil {
			return err
		}
		defer rdb.Close()
		redisBus, err := realtime.NewRedisBus(rdb, app.config.Viper.GetString("redis.channel"), app.log)
		if err != nil {
			return err
		}
		bus = redisBus
		instanceID := uuid.NewString()
		heartbeat = repositories.NewPresenceRepository(rdb, instanceID, app.config.Viper.GetDuration("presence.instance_ttl"))
		if err := heartbeat.Heartbeat(ctx); err != nil {
			return fmt.Errorf("presence heartbeat: %w", err)
		}
		presenceStore = heartbeat
		app.log.Info("presence instance registered", "instanceID", instanceID)
	}
	defer bus.Close()

	hub := realtime.NewHub(app.log)
	if err := bus.StartForwarder(ctx, func(env realtime.Envelope) { hub.Deliver(env) }); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}
	emitter, err := realtime.NewEmitter(bus, app.log)
	if err != nil {
		return err
	}

	staffRepo := repositories.NewStaffRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	chatRepo := repositories.NewChatRepository(db)

	authService := services.NewAuthenticationService(staffRepo, TokenOptionsFromConfig(app.config))
	relayService := services.NewRelayService(emitter, app.log)
	presenceService := services.NewPresenceService(presenceStore, staffRepo, app.log)
	notificationService := services.NewNotificationService(notificationRepo, staffRepo, emitter, app.log)
	chatService := services.NewChatService(chatRepo, staffRepo, emitter, app.log)
	broadcastService := services.NewBroadcastService(emitter)
	domainEventService := services.NewDomainEventService(emitter, app.log)

	var fileManager interfaces.FileManager
	bucket := app.config.Viper.GetString("minio.bucket")
	if app.config.Viper.GetBool("minio.enabled") {
		minioService, err := services.NewMinioService(ctx, app.config, bucket, app.log)
		if err != nil {
			return err
		}
		fileManager = minioService
	}
	fileManagerService := services.NewFileManagerService(fileManager, bucket)

	socketHandler := handlers.NewSocketHandler(
		ctx,
		hub,
		authService,
		relayService,
		presenceService,
		emitter,
		SocketOptionsFromConfig(app.config),
		app.log,
	)
	restHandler := handlers.NewRestHandler(
		authService,
		notificationService,
		chatService,
		presenceService,
		broadcastService,
		fileManagerService,
		app.log,
	)
	server := http.NewHttpServer(app.config, restHandler, socketHandler, authService, app.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if heartbeat != nil {
		g.Go(func() error {
			return heartbeat.Run(gctx)
		})
		g.Go(func() error {
			return presenceService.RunReaper(gctx, app.config.Viper.GetDuration("presence.reap_interval"))
		})
	}
	if app.config.Viper.GetBool("amqp.enabled") {
		consumer := broker.NewConsumer(broker.ConsumerOptionsFromConfig(app.config), domainEventService.Handle, app.log)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	}
	return g.Wait()
}
