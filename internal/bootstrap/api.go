package bootstrap

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"

	httpadapter "mailtriage/adapter/in/http"
	"mailtriage/config"
	"mailtriage/infra/middleware"
	"mailtriage/internal/stream"
)

// NewAPI builds the Fiber application with the full middleware stack and
// all routes registered.
func NewAPI(cfg *config.Config) (*fiber.App, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}
	log := deps.Log

	app := fiber.New(fiber.Config{
		ErrorHandler:          middleware.ErrorHandler(log),
		DisableStartupMessage: cfg.IsProduction(),
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		BodyLimit:             10 * 1024 * 1024,
	})

	app.Use(middleware.Recover(log))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	allowOrigins := strings.Join(cfg.AllowedOrigins, ",")
	if allowOrigins == "" {
		if cfg.IsProduction() {
			allowOrigins = ""
		} else {
			allowOrigins = "http://localhost:3000,http://localhost:5173"
		}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	healthHandler := httpadapter.NewHealthHandler(deps.DB, deps.Redis)
	healthHandler.Register(app)

	api := app.Group("/api")
	api.Use(middleware.RateLimit(100))
	if cfg.APIJWTSecret != "" {
		api.Use(middleware.JWTAuth(cfg.APIJWTSecret))
	} else {
		log.Warn().Msg("API_JWT_SECRET not set, API endpoints are unauthenticated")
	}

	emailHandler := httpadapter.NewEmailHandler(deps.Processor, deps.Batch, deps.ResultRepo, log)
	api.Post("/emails/process", emailHandler.ProcessEmail)
	api.Post("/emails/batch", emailHandler.ProcessBatch)
	if deps.ResultRepo != nil {
		api.Get("/emails", emailHandler.ListResults)
		api.Get("/emails/:id", emailHandler.GetResult)
		api.Get("/stats", emailHandler.Stats)
	}

	if deps.Index != nil {
		searchHandler := httpadapter.NewSearchHandler(deps.Index, log)
		api.Post("/search", searchHandler.Search)
		api.Get("/emails/:id/similar", searchHandler.FindSimilar)
		api.Delete("/emails/:id/index", searchHandler.RemoveFromIndex)
	}

	if deps.Redis != nil {
		producer := stream.NewProducer(stream.NewRedisStream(deps.Redis, stream.DefaultGroup, log))
		enqueueHandler := httpadapter.NewEnqueueHandler(producer, log)
		api.Post("/emails/enqueue", enqueueHandler.Enqueue)
	}

	return app, cleanup, nil
}
