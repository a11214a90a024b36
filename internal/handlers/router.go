package handlers

import (
	"errors"
	"time"

	"eyeshield/config"
	"eyeshield/internal/app"
	recordsController "eyeshield/internal/controllers/records"
	screeningController "eyeshield/internal/controllers/screening"
	usersController "eyeshield/internal/controllers/users"
	"eyeshield/internal/handlers/middleware"
	"eyeshield/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.RequestLogger())
	setupWebSocketRoute(router, app)

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewRecordsHandler(*app, api).Register()
	NewScreeningHandler(*app, api).Register()
	NewUserHandler(*app, api).Register()

	return nil
}

func setupWebSocketRoute(router fiber.Router, app *app.App) {
	router.Use("/ws", app.Middleware.WebSocketUpgrade())
	router.Get("/ws", websocket.New(func(c *websocket.Conn) {
		app.Websocket.HandleWebSocket(c)
	}))
}

func HealthHandler(router fiber.Router, config config.Config) {
	started := time.Now()
	router.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":     "success",
			"status":      "ok",
			"environment": config.GeneralEnvironment,
			"uptime":      time.Since(started).Round(time.Second).String(),
		})
	})
}

// errorStatus maps controller errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, recordsController.ErrMissingIdentifier),
		errors.Is(err, recordsController.ErrUnknownFormat),
		errors.Is(err, screeningController.ErrInvalidIntake),
		errors.Is(err, screeningController.ErrInvalidImage),
		errors.Is(err, usersController.ErrInvalidRole),
		errors.Is(err, usersController.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, usersController.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, usersController.ErrUserNotFound),
		errors.Is(err, recordsController.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, usersController.ErrUserExists):
		return fiber.StatusConflict
	case errors.Is(err, recordsController.ErrNotLoaded):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (h Handler) fail(c *fiber.Ctx, log logger.Logger, message string, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Er(message, err)
	} else {
		log.Debug(message, "error", err)
	}

	return c.Status(status).JSON(fiber.Map{"message": message, "error": err.Error()})
}
