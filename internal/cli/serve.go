package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"alfredoptarigan/ats-scanner/internal/handlers"
	"alfredoptarigan/ats-scanner/internal/services"
)

const (
	reportsRoute = "/reports"
	// multipart framing on top of the largest accepted file
	bodyLimitSlack = 1 << 20
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger()
	defer func() { _ = log.Sync() }()

	c, err := bootstrap(ctx, log)
	if err != nil {
		return err
	}
	log.Info("components initialized",
		zap.String("storage_driver", c.cfg.Storage.Driver),
		zap.Bool("role_index", c.index != nil),
		zap.Bool("reports", c.cfg.Report.Enabled),
	)

	registry := services.NewSessionRegistry(func(id, clientID string) *services.Workflow {
		return c.newWorkflow(id, clientID, nil)
	}, log)

	janitor := services.NewSessionJanitor(registry, c.cfg.Workflow.SessionTTL, c.cfg.Workflow.SweepInterval, nil, log)
	janitor.Start(ctx)

	var indexPinger handlers.Pinger
	if c.index != nil {
		indexPinger = c.index
	}

	app := fiber.New(fiber.Config{
		AppName:      "ATS Resume Scanner API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(c.cfg.Storage.MaxFileSize) + bodyLimitSlack,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + handlers.ClientIDHeader,
	}))

	app.Static(reportsRoute, c.storage.Dir())

	handlers.Register(app, handlers.Handlers{
		Sessions: handlers.NewSessionHandler(registry, services.NewAggregator(), reportsRoute),
		Submit:   handlers.NewSubmitHandler(registry, c.validator.MaxSize()),
		System:   handlers.NewSystemHandler(c.catalog, c.gemini, indexPinger),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("shutting down server")
		janitor.Stop()
		registry.CloseAll()
		if err := app.Shutdown(); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", c.cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("env", c.cfg.Server.Env))

	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
