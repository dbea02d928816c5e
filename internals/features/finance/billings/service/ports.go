package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolku_billing/internals/features/finance/billings/model"
)

/* =========================================================
   Directory (read-only): siswa, rombel (group), kelas (grade)
========================================================= */

type StudentRecord struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	LastName   string    `json:"last_name"`
	Enrollment string    `json:"enrollment"`
	GroupID    uuid.UUID `json:"group_id"`
	GroupName  string    `json:"group_name"`
	GradeID    uuid.UUID `json:"grade_id"`
	GradeName  string    `json:"grade_name"`
}

func (s StudentRecord) DisplayName() string {
	if s.LastName == "" {
		return s.Name
	}
	return s.Name + " " + s.LastName
}

type Cycle struct {
	ID        uuid.UUID
	SchoolID  uuid.UUID
	Name      string
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

// DirectoryFilter: list kosong = tidak difilter.
type DirectoryFilter struct {
	GroupIDs   []uuid.UUID
	GradeIDs   []uuid.UUID
	StudentIDs []uuid.UUID
}

type Directory interface {
	FindCycle(ctx context.Context, schoolID, cycleID uuid.UUID) (Cycle, error)
	// ListActiveStudents hanya siswa aktif yang ter-enrol di cycle tsb.
	ListActiveStudents(ctx context.Context, schoolID, cycleID uuid.UUID, f DirectoryFilter) ([]StudentRecord, error)
}

/* =========================================================
   ConfigSource: konfigurasi + rule
========================================================= */

type ConfigSource interface {
	GetConfiguration(ctx context.Context, schoolID, configurationID uuid.UUID) (model.BillingConfigurationModel, error)
	// GetRules mengembalikan rule yang ditemukan (lintas sekolah); yang hilang cukup tidak ada di hasil.
	GetRules(ctx context.Context, ids []uuid.UUID) ([]model.BillingRuleModel, error)
	// ListScheduled: konfigurasi required yang rentang tanggalnya mencakup day.
	ListScheduled(ctx context.Context, day time.Time) ([]model.BillingConfigurationModel, error)
}

/* =========================================================
   PaymentStore: satu transaksi per unit (siswa, periode)
========================================================= */

type UnitTx interface {
	// InsertOrFetch insert bill kalau key (student, configuration, due date) belum ada.
	// Kalau sudah ada, *bill diisi record lama dan created=false.
	InsertOrFetch(ctx context.Context, bill *model.StudentBillModel) (created bool, err error)
	SaveBill(ctx context.Context, bill *model.StudentBillModel) error
	IncrementBalance(ctx context.Context, schoolID, studentID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error)
}

type PaymentStore interface {
	// InTx: fn sukses = commit, error = rollback.
	InTx(ctx context.Context, fn func(tx UnitTx) error) error
	// Balance saldo siswa milik sekolah tsb (0 kalau belum ada baris saldo).
	Balance(ctx context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error)
}
