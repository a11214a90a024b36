package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eyeshield/internal/app"
	"eyeshield/internal/handlers"
	"eyeshield/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New("main").Function("main")

	app, err := app.New()
	if err != nil {
		log.Er("failed to initialize app", err)
		os.Exit(1)
	}
	defer app.Close()

	server := fiber.New(fiber.Config{
		AppName:               "eyeshield",
		DisableStartupMessage: !app.Config.IsDevelopment(),
		BodyLimit:             32 * 1024 * 1024,
	})
	server.Use(recover.New())

	if err := handlers.Router(server, app); err != nil {
		log.Er("failed to register routes", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info("Shutting down server")
		if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Er("failed to shut down server", err)
		}
	}()

	address := fmt.Sprintf(":%d", app.Config.ServerPort)
	log.Info("Starting server", "address", address, "records", len(app.RecordStore.Records()))
	if err := server.Listen(address); err != nil {
		log.Er("server stopped", err)
	}
}
