package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"NetGuardEngine/internal/backend"
	"NetGuardEngine/internal/config"
	"NetGuardEngine/internal/engine"
	"NetGuardEngine/internal/handler"
	"NetGuardEngine/internal/logger"
	"NetGuardEngine/internal/notify"
	"NetGuardEngine/internal/server"
	"NetGuardEngine/internal/settings"
	"NetGuardEngine/internal/ws"
)

func main() {
	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// 2. Initialize Logger
	log, err := logger.New(logger.Config{
		Level:       cfg.Logging.Level,
		LogFilePath: cfg.Logging.FilePath,
		UseColors:   cfg.Logging.UseColors,
		ShowCaller:  cfg.Logging.ShowCaller,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer log.Close()

	if err := cfg.Validate(); err != nil {
		log.Fatal("Configuration validation failed: %v", err)
	}

	cfg.Print()
	log.Info("Starting NetGuard reconciliation engine")

	// 3. Backend client and settings store
	client := backend.NewClient(&cfg.Backend, log.Named("backend"))
	flags := settings.NewProvider(cfg.Settings, log.Named("settings"))

	// 4. Reconciliation engine
	eng := engine.New(cfg.Engine, client, flags, log.Named("engine"))

	// 5. Presentation hub + backend channel consumer
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	hub := ws.NewHub(log.Named("hub"))
	go hub.Run(hubCtx)
	eng.Subscribe(hub)

	consumer := ws.NewConsumer(cfg.Backend.WebSocketURL, cfg.Engine.WSReconnectDelay, hub, log.Named("ws"))
	go consumer.Run(hubCtx)

	// 6. Optional MQTT fan-out
	var mqttStatus handler.MQTTStatus
	if cfg.MQTT.Enabled {
		publisher := notify.NewMQTTPublisher(&cfg.MQTT, cfg.GetMQTTBroker(), log.Named("mqtt"))
		if err := publisher.Connect(); err != nil {
			log.Error("MQTT fan-out unavailable: %v", err)
		} else {
			eng.Subscribe(publisher)
			mqttStatus = publisher
			defer publisher.Disconnect()
		}
	}

	// 7. Start the engine loops
	eng.Start()

	// 8. HTTP surface for the presentation layer
	notificationHandler := handler.NewNotificationHandler(eng, log)
	deviceHandler := handler.NewDeviceHandler(eng, log)
	healthHandler := handler.NewHealthHandler(eng, hub, mqttStatus, 3*cfg.Engine.AlertPollInterval, log)

	srv := server.New(cfg, log)
	srv.RegisterHandlers(notificationHandler, deviceHandler, healthHandler, hub)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("Server failed: %v", err)
		}
	}()

	log.Info("Engine API ready on http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 9. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error: %v", err)
	}

	eng.Shutdown()
	stopHub()

	// Give the hub a beat to drop its clients before the process exits.
	time.Sleep(100 * time.Millisecond)

	log.Info("Shutdown complete")
}
