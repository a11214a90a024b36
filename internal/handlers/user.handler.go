package handlers

import (
	"eyeshield/internal/app"
	usersController "eyeshield/internal/controllers/users"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	Handler
	controller *usersController.UsersController
}

type roleRequest struct {
	Role Role `json:"role"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

func NewUserHandler(app app.App, router fiber.Router) *UserHandler {
	log := logger.New("handlers").File("user_handler")
	return &UserHandler{
		controller: app.UsersController,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *UserHandler) Register() {
	users := h.router.Group("/users")
	users.Post("/login", h.login)
	users.Get("/activity", h.getActivity)

	users.Get("/", h.getUsers)
	users.Post("/", h.createUser)
	users.Put("/:username/role", h.updateRole)
	users.Put("/:username/password", h.resetPassword)
	users.Delete("/:username", h.deleteUser)
}

func (h *UserHandler) login(c *fiber.Ctx) error {
	log := h.log.Function("login")

	var loginRequest LoginRequest
	if err := c.BodyParser(&loginRequest); err != nil {
		log.Er("failed to parse login request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse login request"})
	}

	user, err := h.controller.Authenticate(c.Context(), loginRequest.Username, loginRequest.Password)
	if err != nil {
		return h.fail(c, log, "login failed", err)
	}

	return c.JSON(fiber.Map{"message": "success", "user": user})
}

func (h *UserHandler) getUsers(c *fiber.Ctx) error {
	log := h.log.Function("getUsers")

	users, err := h.controller.List(c.Context())
	if err != nil {
		return h.fail(c, log, "failed to get users", err)
	}
	if users == nil {
		users = []UserAccount{}
	}

	return c.JSON(fiber.Map{"message": "success", "users": users})
}

func (h *UserHandler) createUser(c *fiber.Ctx) error {
	log := h.log.Function("createUser")

	var request CreateUserRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse create user request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse create user request"})
	}

	user, err := h.controller.Create(c.Context(), request.Username, request.Password, request.Role)
	if err != nil {
		return h.fail(c, log, "failed to create user", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "user": user})
}

func (h *UserHandler) updateRole(c *fiber.Ctx) error {
	log := h.log.Function("updateRole")

	var request roleRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse role request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse role request"})
	}

	if err := h.controller.UpdateRole(c.Context(), c.Params("username"), request.Role); err != nil {
		return h.fail(c, log, "failed to update role", err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *UserHandler) resetPassword(c *fiber.Ctx) error {
	log := h.log.Function("resetPassword")

	var request passwordRequest
	if err := c.BodyParser(&request); err != nil {
		log.Er("failed to parse password request", err)
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"message": "failed to parse password request"})
	}

	if err := h.controller.ResetPassword(c.Context(), c.Params("username"), request.Password); err != nil {
		return h.fail(c, log, "failed to reset password", err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *UserHandler) deleteUser(c *fiber.Ctx) error {
	log := h.log.Function("deleteUser")

	if err := h.controller.Delete(c.Context(), c.Params("username")); err != nil {
		return h.fail(c, log, "failed to delete user", err)
	}

	return c.JSON(fiber.Map{"message": "success"})
}

func (h *UserHandler) getActivity(c *fiber.Ctx) error {
	activity := h.controller.Activity()
	if activity == nil {
		activity = []usersController.Activity{}
	}
	return c.JSON(fiber.Map{"message": "success", "activity": activity})
}
