package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"schoolku_billing/internals/configs"
	database "schoolku_billing/internals/databases"
	"schoolku_billing/internals/features/finance/billings/model"
	termModel "schoolku_billing/internals/features/school/academics/academic_terms/model"
	sectionModel "schoolku_billing/internals/features/school/classes/class_sections/model"
	classModel "schoolku_billing/internals/features/school/classes/classes/model"
	studentModel "schoolku_billing/internals/features/school/students/model"
)

// sqlite in-memory: satu koneksi supaya semua query melihat database yang sama.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: configs.NewGormLogger(zaptest.NewLogger(t)),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// world: satu sekolah, satu term aktif, grade 5A & 6B masing-masing satu section.
type world struct {
	db     *gorm.DB
	school uuid.UUID
	term   uuid.UUID

	grade5A, grade6B uuid.UUID
	group5A, group6B uuid.UUID
}

func seedWorld(t *testing.T, db *gorm.DB) *world {
	t.Helper()
	w := &world{db: db, school: uuid.New()}

	term := termModel.AcademicTermModel{
		AcademicTermSchoolID:     w.school,
		AcademicTermAcademicYear: "2023/2024",
		AcademicTermName:         "Genap",
		AcademicTermStartDate:    day("2024-01-01"),
		AcademicTermEndDate:      day("2024-06-30"),
		AcademicTermIsActive:     true,
	}
	require.NoError(t, db.Create(&term).Error)
	w.term = term.AcademicTermID

	mkGrade := func(name, section string) (uuid.UUID, uuid.UUID) {
		c := classModel.ClassModel{ClassSchoolID: w.school, ClassName: name}
		require.NoError(t, db.Create(&c).Error)
		s := sectionModel.ClassSectionModel{ClassSectionSchoolID: w.school, ClassSectionClassID: c.ClassID, ClassSectionName: section}
		require.NoError(t, db.Create(&s).Error)
		return c.ClassID, s.ClassSectionID
	}
	w.grade5A, w.group5A = mkGrade("5A", "5A-1")
	w.grade6B, w.group6B = mkGrade("6B", "6B-1")
	return w
}

func (w *world) addStudent(t *testing.T, name string, section uuid.UUID, mut ...func(*studentModel.SchoolStudentModel)) studentModel.SchoolStudentModel {
	t.Helper()
	s := studentModel.SchoolStudentModel{
		SchoolStudentSchoolID:       w.school,
		SchoolStudentAcademicTermID: w.term,
		SchoolStudentClassSectionID: section,
		SchoolStudentName:           name,
		SchoolStudentLastName:       "Putra",
		SchoolStudentCode:           "NIS-" + name,
	}
	for _, fn := range mut {
		fn(&s)
	}
	require.NoError(t, w.db.Create(&s).Error)
	return s
}

func (w *world) addConfig(t *testing.T, mut ...func(*model.BillingConfigurationModel)) model.BillingConfigurationModel {
	t.Helper()
	m := model.BillingConfigurationModel{
		BillingConfigurationSchoolID:         w.school,
		BillingConfigurationSchoolCycleID:    w.term,
		BillingConfigurationScope:            model.BillingScopeAllStudents,
		BillingConfigurationTargetGroupIDs:   model.UUIDListJSON(nil),
		BillingConfigurationTargetGradeIDs:   model.UUIDListJSON(nil),
		BillingConfigurationTargetStudentIDs: model.UUIDListJSON(nil),
		BillingConfigurationType:             "spp",
		BillingConfigurationAmount:           dec("500"),
		BillingConfigurationRecurrence:       model.RecurrenceMonthly,
		BillingConfigurationStartDate:        day("2024-01-01"),
		BillingConfigurationEndDate:          day("2024-03-15"),
		BillingConfigurationRuleIDs:          model.UUIDListJSON(nil),
		BillingConfigurationStatus:           model.ConfigurationRequired,
	}
	for _, fn := range mut {
		fn(&m)
	}
	require.NoError(t, NewConfigRepository(w.db).CreateConfiguration(context.Background(), &m))
	return m
}
