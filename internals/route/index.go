// file: internals/route/index.go
package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolku_billing/internals/configs"
	billingController "schoolku_billing/internals/features/finance/billings/controller"
	"schoolku_billing/internals/features/finance/billings/repository"
	"schoolku_billing/internals/features/finance/billings/service"
	schoolkuMiddleware "schoolku_billing/internals/middlewares/auth_school"
	routeDetails "schoolku_billing/internals/route/details"
)

// Deps dirakit di main dan dibawa eksplisit ke semua route.
type Deps struct {
	Cfg     configs.Config
	DB      *gorm.DB
	Configs *repository.ConfigRepository
	Engine  *service.Engine
	Log     *zap.Logger
}

func SetupRoutes(app *fiber.App, d Deps) {
	startTime := time.Now()

	d.Log.Info("Setting up BaseRoutes...")
	BaseRoutes(app, d.DB, startTime)

	// ===================== ADMIN (per school) =====================
	d.Log.Info("Setting up ADMIN group (Auth + RoleCheck)...")
	admin := app.Group("/api/a",
		schoolkuMiddleware.AuthJWT(schoolkuMiddleware.AuthJWTOpts{
			Secret:              d.Cfg.JWTSecret,
			AllowCookieFallback: true,
		}),
		schoolkuMiddleware.IsSchoolAdmin(),
	)

	billing := billingController.NewBillingController(d.Configs, d.Engine, d.Cfg.Location(), d.Log)
	routeDetails.FinanceAdminRoutes(admin, billing)
}
