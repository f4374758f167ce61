package server

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"newsroom/db"
	"newsroom/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

const DefaultCacheExpiration = 30 * time.Second

// NewsStore is the read side of the news database
type NewsStore interface {
	List(ctx context.Context, filter models.Filter) ([]models.StoredItem, error)
	GetByID(ctx context.Context, id int64) (models.StoredItem, error)
	Stats(ctx context.Context) (models.Stats, error)
	Ping(ctx context.Context) error
}

type SourceLister interface {
	Sources() []models.Source
}

// Scheduler is activated by incoming API requests and reported by the health endpoint
type Scheduler interface {
	Activate()
	Started() bool
	LastResult() (models.PassResult, bool)
}

type ServerConfig struct {

	// The store news is read from
	Store NewsStore

	// The registry listed by /api/sources
	Sources SourceLister

	// Optional scheduler activated on API requests
	Scheduler Scheduler

	// Comma separated list of allowed CORS origins
	CorsOrigins string

	// How long /api/stats and /api/sources responses are cached
	CacheExpiration time.Duration
}

type errorResponse struct {
	Detail string `json:"detail"`
}

type healthResponse struct {
	Status    string             `json:"status"`
	Scheduler bool               `json:"scheduler"`
	LastPass  *models.PassResult `json:"last_pass"`
}

// Returns a fiber.App serving the news query API
func Server(config *ServerConfig) *fiber.App {
	if config.CorsOrigins == "" {
		config.CorsOrigins = "*"
	}
	if config.CacheExpiration <= 0 {
		config.CacheExpiration = DefaultCacheExpiration
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(errorResponse{Detail: err.Error()})
		},
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Debug("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.CorsOrigins,
		AllowMethods: "GET,HEAD,OPTIONS",
	}))

	app.Use(cache.New(cache.Config{
		Next: func(c *fiber.Ctx) bool {
			// Checked once the handler has run, so error responses are never stored
			if c.Method() != fiber.MethodGet || c.Response().StatusCode() != fiber.StatusOK {
				return true
			}
			// Only the slow aggregate endpoints are cached
			path := c.Path()
			return path != "/api/stats" && path != "/api/sources"
		},
		Expiration: config.CacheExpiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Request().URI().String()
		},
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api", func(c *fiber.Ctx) error {
		if config.Scheduler != nil {
			config.Scheduler.Activate()
		}
		return c.Next()
	})

	api.Get("/news", func(c *fiber.Ctx) error {
		filter, err := parseFilter(c)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"q":        filter.Query,
			"source":   filter.Source,
			"language": filter.Language,
			"limit":    filter.Limit,
			"offset":   filter.Offset,
		}).Debug("List news")

		items, err := config.Store.List(c.UserContext(), filter)
		if err != nil {
			return storageUnavailable(c, err)
		}
		return c.JSON(items)
	})

	api.Get("/news/:id", func(c *fiber.Ctx) error {
		id, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid id")
		}

		item, err := config.Store.GetByID(c.UserContext(), id)
		if errors.Is(err, db.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "News not found")
		}
		if err != nil {
			return storageUnavailable(c, err)
		}
		return c.JSON(item)
	})

	api.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := config.Store.Stats(c.UserContext())
		if err != nil {
			return storageUnavailable(c, err)
		}
		return c.JSON(stats)
	})

	api.Get("/sources", func(c *fiber.Ctx) error {
		return c.JSON(config.Sources.Sources())
	})

	api.Get("/health", func(c *fiber.Ctx) error {
		response := healthResponse{Status: "ok"}
		if config.Scheduler != nil {
			response.Scheduler = config.Scheduler.Started()
			if result, ok := config.Scheduler.LastResult(); ok {
				response.LastPass = &result
			}
		}

		if err := config.Store.Ping(c.UserContext()); err != nil {
			log.WithError(err).Warn("Health check failed")
			response.Status = "unavailable"
			return c.Status(fiber.StatusServiceUnavailable).JSON(response)
		}
		return c.JSON(response)
	})

	return app
}

// parseFilter reads the listing query. Non-numeric paging parameters are
// rejected, numeric ones are clamped by the store.
func parseFilter(c *fiber.Ctx) (models.Filter, error) {
	filter := models.NewFilter()
	filter.Query = strings.TrimSpace(c.Query("q"))
	filter.Source = c.Query("source")
	filter.Language = c.Query("language")

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid limit")
		}
		filter.Limit = limit
	}

	if v := c.Query("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return filter, fiber.NewError(fiber.StatusBadRequest, "Invalid offset")
		}
		filter.Offset = offset
	}

	return filter.Normalize(), nil
}

func storageUnavailable(c *fiber.Ctx, err error) error {
	log.WithFields(log.Fields{
		"path":  c.Path(),
		"error": err,
	}).Error("Storage unavailable")
	return c.Status(fiber.StatusServiceUnavailable).JSON(errorResponse{Detail: "storage unavailable"})
}
