package httpapi

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/wxcache/weather-service/internal/stats"
	"github.com/wxcache/weather-service/internal/weather"
)

var validate = validator.New()

// Stats windows: how many recent events and how far back in storage the
// /stats endpoint looks.
const (
	statsEventLimit = 100
	statsFileWindow = 24 * time.Hour
)

// weatherQuery holds query parameters for the weather endpoint.
type weatherQuery struct {
	City string `validate:"required"`
}

// weatherResponse is the payload of a successful weather request.
type weatherResponse struct {
	Success         bool             `json:"success"`
	Data            *weather.Reading `json:"data"`
	Message         string           `json:"message"`
	Cached          bool             `json:"cached"`
	CacheAgeMinutes *float64         `json:"cache_age_minutes,omitempty"`
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service *weather.Service, aggregator *stats.Aggregator) {
	app.Get("/weather", func(c *fiber.Ctx) error {
		q := weatherQuery{City: c.Query("city")}
		if err := validate.Struct(q); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"detail": "city query parameter is required",
			})
		}

		result, err := service.GetWeather(c.Context(), q.City)
		if err != nil {
			var notFound *weather.NotFoundError
			switch {
			case errors.As(err, &notFound):
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"detail": notFound.Error(),
				})
			case errors.Is(err, weather.ErrUpstream):
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"detail": "Weather service temporarily unavailable",
				})
			default:
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"detail": "Internal server error",
				})
			}
		}

		resp := weatherResponse{
			Success: true,
			Data:    &result.Reading,
			Message: result.Message,
			Cached:  result.Cached,
		}
		if result.Cached {
			age := result.CacheAgeMinutes
			resp.CacheAgeMinutes = &age
		}
		return c.JSON(resp)
	})

	app.Get("/stats", func(c *fiber.Ctx) error {
		st, err := aggregator.Compute(c.Context(), statsEventLimit, statsFileWindow)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"detail": "Failed to retrieve statistics",
			})
		}
		return c.JSON(st)
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
}
