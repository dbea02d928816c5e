package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"go.uber.org/zap"

	"schoolku_billing/internals/middlewares/logger"
)

type Options struct {
	CorsOrigins    []string
	RateLimit      int
	RequestTimeout time.Duration
	TimeZone       string
	Log            *zap.Logger
}

// SetupMiddlewares memasang middleware global dengan urutan tetap.
func SetupMiddlewares(app *fiber.App, o Options) {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	app.Use(RequestContext(o.RequestTimeout))
	app.Use(RecoveryMiddleware(o.Log))
	app.Use(logger.LoggerMiddleware(o.TimeZone))
	app.Use(CorsMiddleware(o.CorsOrigins))
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault})) // gzip
	app.Use(etag.New())                                                  // 304 caching
	app.Use(GlobalRateLimiter(o.RateLimit))
}
