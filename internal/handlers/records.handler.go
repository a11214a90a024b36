package handlers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"eyeshield/internal/app"
	recordsController "eyeshield/internal/controllers/records"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type RecordsHandler struct {
	Handler
	store     *recordsController.RecordStore
	exportDir string
}

func NewRecordsHandler(app app.App, router fiber.Router) *RecordsHandler {
	log := logger.New("handlers").File("records_handler")
	return &RecordsHandler{
		store:     app.RecordStore,
		exportDir: app.Config.ExportDir,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *RecordsHandler) Register() {
	records := h.router.Group("/records")
	records.Get("/", h.getRecords)
	records.Post("/reload", h.reloadRecords)
	records.Get("/export.csv", h.downloadExport(recordsController.FormatCSV))
	records.Get("/export.xlsx", h.downloadExport(recordsController.FormatXLSX))
	records.Post("/export", h.exportToFile)
	records.Get("/:patientId", h.getRecord)

	h.router.Get("/dashboard", h.getDashboard)
}

func (h *RecordsHandler) getRecords(c *fiber.Ctx) error {
	records := nonNil(h.store.Filter(c.Query("q")))
	return c.JSON(fiber.Map{
		"message": "success",
		"fields":  ScreeningRecordFields,
		"records": records,
		"count":   len(records),
	})
}

func (h *RecordsHandler) getRecord(c *fiber.Ctx) error {
	log := h.log.Function("getRecord")

	record, err := h.store.Get(c.Params("patientId"))
	if err != nil {
		return h.fail(c, log, "failed to get record", err)
	}

	return c.JSON(fiber.Map{"message": "success", "record": record})
}

func (h *RecordsHandler) reloadRecords(c *fiber.Ctx) error {
	log := h.log.Function("reloadRecords")

	records, err := h.store.LoadAll(c.Context())
	if err != nil {
		return h.fail(c, log, "failed to reload records", err)
	}

	return c.JSON(fiber.Map{"message": "success", "count": len(records)})
}

func (h *RecordsHandler) downloadExport(format recordsController.ExportFormat) fiber.Handler {
	return func(c *fiber.Ctx) error {
		log := h.log.Function("downloadExport")

		var buf bytes.Buffer
		if err := h.store.Export(&buf, format, h.store.Filter(c.Query("q"))); err != nil {
			return h.fail(c, log, "failed to export records", err)
		}

		contentType := contentTypeCSV
		if format == recordsController.FormatXLSX {
			contentType = contentTypeXLSX
		}
		c.Attachment(exportFileName(format, time.Now()))
		c.Set(fiber.HeaderContentType, contentType)

		return c.Send(buf.Bytes())
	}
}

func (h *RecordsHandler) exportToFile(c *fiber.Ctx) error {
	log := h.log.Function("exportToFile")

	format, err := recordsController.ParseExportFormat(c.Query("format"))
	if err != nil {
		return h.fail(c, log, "failed to export records", err)
	}

	if err := os.MkdirAll(h.exportDir, 0o755); err != nil {
		return h.fail(c, log, "failed to create export directory",
			fmt.Errorf("%w: %w", recordsController.ErrExportIOFailure, err))
	}

	records := h.store.Filter(c.Query("q"))
	path := filepath.Join(h.exportDir, exportFileName(format, time.Now()))
	if err := h.store.ExportFile(path, format, records); err != nil {
		return h.fail(c, log, "failed to export records", err)
	}

	return c.JSON(fiber.Map{"message": "success", "path": path, "count": len(records)})
}

func (h *RecordsHandler) getDashboard(c *fiber.Ctx) error {
	stats := h.store.Stats(c.QueryInt("recent", recordsController.DefaultRecentCount))
	return c.JSON(fiber.Map{"message": "success", "stats": stats})
}

func exportFileName(format recordsController.ExportFormat, now time.Time) string {
	return fmt.Sprintf("eyeshield-records-%s.%s", now.Format("20060102-150405"), format)
}

func nonNil(records []ScreeningRecord) []ScreeningRecord {
	if records == nil {
		return []ScreeningRecord{}
	}
	return records
}
