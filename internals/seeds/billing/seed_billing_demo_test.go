package billing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schoolku_billing/internals/configs"
	database "schoolku_billing/internals/databases"
	billingModel "schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/repository"
	classModel "schoolku_billing/internals/features/school/classes/classes/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: configs.NewGormLogger(zaptest.NewLogger(t)),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func TestSeedBillingDemoFromJSON_Idempotent(t *testing.T) {
	db := newTestDB(t)
	log := zaptest.NewLogger(t)

	rep, err := SeedBillingDemoFromJSON(db, "data_billing_demo.json", log)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Classes)
	assert.Equal(t, 2, rep.Sections)
	assert.Equal(t, 3, rep.Students)
	assert.Equal(t, 3, rep.Rules)
	assert.Equal(t, 2, rep.Configurations)

	var classes []classModel.ClassModel
	require.NoError(t, db.Order("class_name").Find(&classes).Error)
	require.Len(t, classes, 2)
	assert.Equal(t, "kelas-5a", classes[0].ClassSlug)

	// rule_keys → rule id yang benar
	var spp billingModel.BillingConfigurationModel
	require.NoError(t, db.Where("billing_configuration_type = ?", "spp").Take(&spp).Error)
	ids, err := spp.RuleIDs()
	require.NoError(t, err)
	assert.Len(t, ids, 3)
	assert.Equal(t, rep.TermID, spp.BillingConfigurationSchoolCycleID)

	rules, err := repository.NewConfigRepository(db).GetRules(context.Background(), ids)
	require.NoError(t, err)
	assert.Len(t, rules, 3)

	again, err := SeedBillingDemoFromJSON(db, "data_billing_demo.json", log)
	require.NoError(t, err)
	assert.Equal(t, rep.TermID, again.TermID)
	assert.Zero(t, again.Classes+again.Sections+again.Students+again.Rules+again.Configurations)
}

func TestSeedBillingDemo_BadRuleKey(t *testing.T) {
	db := newTestDB(t)
	rep, err := SeedBillingDemoFromJSON(db, "data_billing_demo.json", zaptest.NewLogger(t))
	require.NoError(t, err)

	seed := DemoSeed{
		SchoolID:       rep.TermID, // school lain
		Term:           TermSeed{AcademicYear: "2025/2026", Name: "Genap", StartDate: "2025-01-06", EndDate: "2025-06-20"},
		Configurations: []ConfigSeed{{RuleKeys: []string{"tidak-ada"}}},
	}
	seed.Configurations[0].Type = "spp"
	_, err = SeedBillingDemo(context.Background(), db, seed, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "tidak-ada")
}

func TestSeedBillingDemoFromJSON_MissingFile(t *testing.T) {
	_, err := SeedBillingDemoFromJSON(newTestDB(t), "nope.json", zaptest.NewLogger(t))
	assert.Error(t, err)
}
