package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	"github.com/open-teleop/operator/domain/diagnostic"
	"github.com/open-teleop/operator/domain/media"
	"github.com/open-teleop/operator/domain/teleop"
	"github.com/open-teleop/operator/pkg/api"
	"github.com/open-teleop/operator/pkg/config"
	"github.com/open-teleop/operator/pkg/eventloop"
	customlog "github.com/open-teleop/operator/pkg/log"
	"github.com/open-teleop/operator/pkg/transport"
)

const shutdownTimeout = 5 * time.Second

var configDir string

var rootCmd = &cobra.Command{
	Use:   "operator",
	Short: "Open-Teleop operator client",
	Long:  `Drives a vehicle over its WebSocket link and serves the local operator console.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadBootstrapConfig(configDir)
		if err != nil {
			return fmt.Errorf("failed to load bootstrap config: %w", err)
		}
		return run(cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "./config",
		fmt.Sprintf("directory containing %s", config.BootstrapFileName))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run(cfg *config.Config) error {
	appLogger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger.Infof("Logger initialized (level: %s)", cfg.Logging.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(0, appLogger.WithField("component", "eventloop"))
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(loopCtx)
	}()

	// Vehicle link
	dispatcher := transport.NewDispatcher(appLogger.WithField("component", "transport"))
	vehicle := transport.NewClient(transport.Options{
		URL:                  cfg.Vehicle.URL,
		Password:             cfg.Vehicle.Password,
		ReconnectInterval:    cfg.Vehicle.ReconnectInterval(),
		MaxReconnectInterval: cfg.Vehicle.MaxReconnectInterval(),
		WriteTimeout:         cfg.Vehicle.WriteTimeout(),
		QueueSize:            cfg.Vehicle.SendQueueSize,
	}, dispatcher, appLogger.WithField("component", "transport"))

	// Observers
	hub := api.NewConsoleHub(api.DefaultClientBuffer, appLogger.WithField("component", "console"))
	diagnosticService := diagnostic.NewDiagnosticService(vehicle)
	observers := teleop.Observers{diagnosticService, hub}

	pipeline, err := newTelemetryPipeline(cfg, loop, appLogger.WithField("component", "telemetry"))
	if err != nil {
		stopLoop()
		return err
	}
	if pipeline != nil {
		observers = append(observers, pipeline.recorder)
	}

	// Domain services
	opts := teleop.Options{
		VehicleInterval:  cfg.Control.VehicleSyncInterval(),
		CameraInterval:   cfg.Control.CameraSyncInterval(),
		IdleTimeout:      cfg.Control.IdleTimeout(),
		LatencyThreshold: cfg.Latency.Threshold(),
		ProbeInterval:    cfg.Latency.ProbeInterval(),
		InitialMode:      teleop.ModeVehicle,
	}
	teleopService := teleop.NewTeleopService(loop, vehicle, vehicle, observers, appLogger.WithField("component", "teleop"), opts)
	mediaService := media.NewMediaService(loop, vehicle, hub, appLogger.WithField("component", "media"), cfg.Control.PhotoFlash())
	hub.ModeChanged(opts.InitialMode)

	dispatcher.RegisterHandlerFunc(transport.EventCommandStatus, func(data []byte) error {
		teleopService.HandleCommandStatus(data)
		return nil
	})
	dispatcher.RegisterHandlerFunc(transport.EventVideoFrame, mediaService.HandleVideoFrame)
	dispatcher.RegisterHandlerFunc(transport.EventAlbum, mediaService.HandleAlbum)
	vehicle.OnConnect(teleopService.HandleConnected)
	vehicle.OnPong(teleopService.HandleProbeAck)
	vehicle.OnDisconnect(func(err error) {
		diagnosticService.LinkDropped(err)
	})

	teleopService.Start()

	linkCtx, stopLink := context.WithCancel(context.Background())
	linkDone := make(chan struct{})
	go func() {
		defer close(linkDone)
		if err := vehicle.Run(linkCtx); err != nil {
			appLogger.Errorf("Vehicle link stopped: %v", err)
		}
	}()

	// Create a new Fiber app
	app := fiber.New(fiber.Config{
		AppName:               "Open-Teleop Operator",
		ErrorHandler:          api.ErrorHandler,
		DisableStartupMessage: true,
	})

	// Add middleware
	app.Use(logger.New())
	app.Use(recover.New())

	consoleDispatcher := api.NewConsoleDispatcher(teleopService, mediaService, appLogger.WithField("component", "console"))
	api.RegisterRoutes(app, api.Routes{
		Session:     teleopService.SessionHandler,
		Mode:        teleopService.ModeHandler,
		Diagnostics: diagnosticService.GetMetricsHandler,
		Album:       mediaService.AlbumHandler,
		Console:     api.ConsoleWebSocketHandler(hub, consoleDispatcher, appLogger.WithField("component", "console")),
		Config:      cfg,
	}, appLogger)

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
		appLogger.Infof("Operator console listening on %s", addr)
		listenErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		appLogger.Infof("Shutting down operator...")
	case err := <-listenErr:
		appLogger.Errorf("Console server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		appLogger.Warnf("Console server forced to shutdown: %v", err)
	}
	hub.Close()

	if err := teleopService.Close(shutdownCtx); err != nil {
		appLogger.Warnf("Session did not stop cleanly: %v", err)
	}
	stopLink()
	_ = vehicle.Close()
	<-linkDone

	stopLoop()
	<-loopDone

	if pipeline != nil {
		pipeline.Close()
	}

	appLogger.Infof("Operator exited properly")
	return nil
}
