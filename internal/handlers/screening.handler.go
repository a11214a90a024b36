package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"eyeshield/internal/app"
	screeningController "eyeshield/internal/controllers/screening"
	"eyeshield/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ScreeningHandler struct {
	Handler
	controller *screeningController.ScreeningController
	imageDir   string
}

func NewScreeningHandler(app app.App, router fiber.Router) *ScreeningHandler {
	log := logger.New("handlers").File("screening_handler")
	return &ScreeningHandler{
		controller: app.ScreeningController,
		imageDir:   app.Config.ImageDir,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *ScreeningHandler) Register() {
	h.router.Post("/screenings", h.createScreening)
	h.router.Get("/patient-ids/next", h.nextPatientID)
}

func (h *ScreeningHandler) nextPatientID(c *fiber.Ctx) error {
	log := h.log.Function("nextPatientID")

	patientID, err := h.controller.PreviewPatientID(c.Context())
	if err != nil {
		return h.fail(c, log, "failed to read next patient id", err)
	}

	return c.JSON(fiber.Map{"message": "success", "patientId": patientID})
}

func (h *ScreeningHandler) createScreening(c *fiber.Ctx) error {
	log := h.log.Function("createScreening")

	intake, err := parseIntake(c)
	if err != nil {
		return h.fail(c, log, "failed to parse screening request", err)
	}
	if _, err := h.controller.Validate(intake); err != nil {
		return h.fail(c, log, "invalid patient intake", err)
	}

	imagePath, err := h.saveImage(c)
	if err != nil {
		return h.fail(c, log, "failed to store fundus image", err)
	}

	record, err := h.controller.Screen(c.Context(), intake, imagePath)
	if err != nil {
		if removeErr := os.Remove(imagePath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Warn("failed to remove image of rejected screening", "path", imagePath, "error", removeErr)
		}
		return h.fail(c, log, "failed to save screening", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "success", "record": record})
}

func (h *ScreeningHandler) saveImage(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		return "", fmt.Errorf("%w: no image uploaded", screeningController.ErrInvalidImage)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !slices.Contains(screeningController.ImageExtension, ext) {
		return "", fmt.Errorf("%w: unsupported extension %q", screeningController.ErrInvalidImage, ext)
	}

	if err := os.MkdirAll(h.imageDir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(h.imageDir, uuid.New().String()+ext)
	if err := c.SaveFile(file, path); err != nil {
		return "", err
	}

	return path, nil
}

func parseIntake(c *fiber.Ctx) (screeningController.Intake, error) {
	intake := screeningController.Intake{
		Name:         c.FormValue("name"),
		Birthdate:    c.FormValue("birthdate"),
		Sex:          c.FormValue("sex"),
		Contact:      c.FormValue("contact"),
		Eye:          c.FormValue("eye"),
		DiabetesType: c.FormValue("diabetesType"),
		Notes:        c.FormValue("notes"),
	}

	if raw := strings.TrimSpace(c.FormValue("durationYears")); raw != "" {
		duration, err := strconv.Atoi(raw)
		if err != nil {
			return intake, fmt.Errorf("%w: durationYears %q is not a whole number", screeningController.ErrInvalidIntake, raw)
		}
		intake.DurationYears = duration
	}

	if raw := strings.TrimSpace(c.FormValue("hba1c")); raw != "" {
		hba1c, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return intake, fmt.Errorf("%w: hba1c %q is not a number", screeningController.ErrInvalidIntake, raw)
		}
		intake.HbA1c = &hba1c
	}

	if raw := strings.TrimSpace(c.FormValue("prevTreatment")); raw != "" {
		prev, err := strconv.ParseBool(raw)
		if err != nil {
			prev = strings.EqualFold(raw, "yes")
			if !prev && !strings.EqualFold(raw, "no") {
				return intake, fmt.Errorf("%w: prevTreatment %q is not yes or no", screeningController.ErrInvalidIntake, raw)
			}
		}
		intake.PrevTreatment = prev
	}

	return intake, nil
}
