package seeds

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	billing "schoolku_billing/internals/seeds/billing"
)

// RunAllSeeds dipanggil dari main dengan flag -seed.
func RunAllSeeds(db *gorm.DB, log *zap.Logger) error {
	//* Billing demo (term, kelas, siswa, rule, konfigurasi)
	_, err := billing.SeedBillingDemoFromJSON(db, "internals/seeds/billing/data_billing_demo.json", log)
	return err
}
