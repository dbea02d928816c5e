// file: internals/route/details/finance_routes.go
package details

import (
	"github.com/gofiber/fiber/v2"

	BillingController "schoolku_billing/internals/features/finance/billings/controller"
	BillingRoute "schoolku_billing/internals/features/finance/billings/routes"
)

func FinanceAdminRoutes(r fiber.Router, billing *BillingController.BillingController) {
	BillingRoute.BillingsAdminRoutes(r, billing)
}
