package route

import (
	"github.com/gofiber/fiber/v2"

	"schoolku_billing/internals/features/finance/billings/controller"
	"schoolku_billing/internals/middlewares"
)

/*
Admin routes (school-scoped via token).
Grup induk sudah diproteksi AuthJWT + IsSchoolAdmin().
*/
func BillingsAdminRoutes(admin fiber.Router, h *controller.BillingController) {
	// =========================
	// Billing Rules
	// =========================
	admin.Post("/billing-rules", h.CreateRule)
	admin.Get("/billing-rules", h.ListRules)

	// =========================
	// Billing Configurations
	// =========================
	cfg := admin.Group("/billing-configurations")
	cfg.Post("/", h.CreateConfiguration)
	cfg.Get("/:id", h.GetConfiguration)
	cfg.Post("/:id/generate", middlewares.GenerateRateLimiter(), h.Generate)
	cfg.Get("/:id/preview", h.Preview)

	// =========================
	// Student balance
	// =========================
	admin.Get("/students/:id/balance", h.StudentBalance)
}
