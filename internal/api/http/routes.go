package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-lookup/internal/logger"
	"github.com/i474232898/weather-lookup/internal/weather"
)

const (
	msgInvalidCity  = "Invalid city name. Please enter a valid city name."
	msgCityNotFound = "City not found. Please check the spelling and try again."
	msgUpstream     = "Failed to fetch weather data. Please try again later."
	msgUnexpected   = "An unexpected error occurred. Please try again later."
)

var validate = validator.New()

// Looker is the part of weather.Service the handlers need.
type Looker interface {
	Lookup(ctx context.Context, city string) (weather.Response, error)
}

// searchRequest is the POST /weather body.
type searchRequest struct {
	City string `json:"city" validate:"required,max=100"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
// requestTimeout bounds each lookup, upstream retries included; zero means no extra bound.
func RegisterRoutes(app *fiber.App, service Looker, requestTimeout time.Duration) {
	log := logger.GetLogger("http")

	search := func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidCity)
		}
		req.City = strings.TrimSpace(req.City)
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidCity)
		}

		ctx := c.UserContext()
		if requestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, requestTimeout)
			defer cancel()
		}

		resp, err := service.Lookup(ctx, req.City)
		if err != nil {
			switch {
			case errors.Is(err, weather.ErrInvalidRequest):
				return fiber.NewError(fiber.StatusBadRequest, msgInvalidCity)
			case errors.Is(err, weather.ErrCityNotFound):
				return fiber.NewError(fiber.StatusNotFound, msgCityNotFound)
			case errors.Is(err, weather.ErrUpstreamUnavailable):
				log.Warnw("weather lookup failed", "city", req.City, "error", err)
				return fiber.NewError(fiber.StatusInternalServerError, msgUpstream)
			default:
				log.Errorw("weather lookup failed unexpectedly", "city", req.City, "error", err)
				return fiber.NewError(fiber.StatusInternalServerError, msgUnexpected)
			}
		}

		return c.JSON(resp)
	}

	app.Post("/weather", search)
	app.Post("/api/weather", search)
}

// ErrorHandler renders every error as {"message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := msgUnexpected

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"message": message,
	})
}
