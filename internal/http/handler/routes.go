package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"bptracker/internal/model"
	"bptracker/internal/service"
	"bptracker/internal/vision"
)

type createReadingRequest struct {
	Systolic  int    `json:"systolic"`
	Diastolic int    `json:"diastolic"`
	Pulse     *int   `json:"pulse"`
	Date      string `json:"date"`
	PhotoPath string `json:"photo_path"`
}

type updateReadingRequest struct {
	Systolic  *int   `json:"systolic"`
	Diastolic *int   `json:"diastolic"`
	Pulse     *int   `json:"pulse"`
	Date      string `json:"date"`
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal; validation and persistence live in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc service.ReadingService) {
	app.Get("/openapi.yaml", OpenAPISpec())
	app.Get("/docs", SwaggerUI())

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/readings", ListReadings(svc))
	app.Post("/readings", CreateReading(svc))
	app.Post("/readings/import", ImportReadings(svc))
	app.Post("/readings/extract", ExtractReading(svc))
	app.Get("/readings/:id", GetReading(svc))
	app.Put("/readings/:id", UpdateReading(svc))
	app.Delete("/readings/:id", DeleteReading(svc))

	app.Get("/stats", GetStats(svc))
}

// OpenAPISpec serves the hand-maintained OpenAPI document.
func OpenAPISpec() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	}
}

// SwaggerUI serves a minimal Swagger UI page pointed at /openapi.yaml.
func SwaggerUI() fiber.Handler {
	return func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	}
}

// HealthCheck verifies database connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a plain 200 with no dependency checks.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// ListReadings returns readings newest-first with limit & offset.
func ListReadings(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// CreateReading records a new measurement.
func CreateReading(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createReadingRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		reading, err := svc.Add(c.UserContext(), service.AddReadingInput{
			Systolic:  req.Systolic,
			Diastolic: req.Diastolic,
			Pulse:     req.Pulse,
			Date:      req.Date,
			PhotoPath: req.PhotoPath,
		})
		if err != nil {
			if errors.Is(err, model.ErrOutOfRange) {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(reading)
	}
}

// ImportReadings bulk-loads readings from a CSV upload (multipart field: csvfile).
func ImportReadings(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("csvfile")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "csvfile is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		res, err := svc.ImportCSV(c.UserContext(), f)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// ExtractReading reads a candidate measurement off a monitor photo (multipart
// field: image). Nothing is persisted; the client confirms via POST /readings.
func ExtractReading(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("image")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "image is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()
		image, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		res, err := svc.ExtractFromImage(c.UserContext(), image, fh.Filename)
		if err != nil {
			var parseErr *vision.ParseError
			switch {
			case errors.Is(err, service.ErrEmptyFile):
				return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "image is empty")
			case errors.Is(err, vision.ErrUnsupportedImage):
				return writeError(c, fiber.StatusBadRequest, "UNSUPPORTED_IMAGE_TYPE", "unsupported image type")
			case errors.As(err, &parseErr):
				return writeError(c, fiber.StatusUnprocessableEntity, "UNREADABLE_IMAGE", "could not read a blood pressure value from the image")
			case errors.Is(err, service.ErrVisionUnavailable):
				return writeError(c, fiber.StatusBadGateway, "VISION_UNAVAILABLE", "vision service unavailable")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(res)
	}
}

// GetStats returns overall statistics and rolling window averages.
func GetStats(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := svc.Stats(c.UserContext(), time.Now())
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetReading returns a single reading by ID.
func GetReading(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		reading, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "reading not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(reading)
	}
}

// UpdateReading edits a stored reading; absent fields keep their stored values.
func UpdateReading(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req updateReadingRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}

		reading, err := svc.Update(c.UserContext(), id, service.UpdateReadingInput{
			Systolic:  req.Systolic,
			Diastolic: req.Diastolic,
			Pulse:     req.Pulse,
			Date:      req.Date,
		})
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "reading not found")
			case errors.Is(err, model.ErrOutOfRange):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.JSON(reading)
	}
}

// DeleteReading removes a reading by ID.
func DeleteReading(svc service.ReadingService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "reading not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// parseID reads the :id path parameter as a positive int64.
func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
