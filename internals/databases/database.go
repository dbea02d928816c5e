package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"schoolku_billing/internals/configs"
	billingModel "schoolku_billing/internals/features/finance/billings/model"
	termModel "schoolku_billing/internals/features/school/academics/academic_terms/model"
	sectionModel "schoolku_billing/internals/features/school/classes/class_sections/model"
	classModel "schoolku_billing/internals/features/school/classes/classes/model"
	studentModel "schoolku_billing/internals/features/school/students/model"
)

func ConnectDB(cfg configs.Config, log *zap.Logger) (*gorm.DB, error) {
	log.Info("🔌 Koneksi ke PostgreSQL...", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	// PreferSimpleProtocol: aman untuk PgBouncer (transaction pooling)
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: configs.NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	log.Info("✅ DB connected.")
	return db, nil
}

func TunePool(db *gorm.DB, workers int, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("pool tune err", zap.Error(err))
		return
	}
	// tiap worker billing pegang satu transaksi; sisakan ruang untuk request HTTP
	maxOpen := 20
	if workers+10 > maxOpen {
		maxOpen = workers + 10
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// AutoMigrate tabel billing + direktori (read model).
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&termModel.AcademicTermModel{},
		&classModel.ClassModel{},
		&sectionModel.ClassSectionModel{},
		&studentModel.SchoolStudentModel{},
		&billingModel.BillingRuleModel{},
		&billingModel.BillingConfigurationModel{},
		&billingModel.StudentBillModel{},
		&billingModel.StudentBalanceModel{},
	)
}

func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
