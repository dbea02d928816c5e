package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/service"
)

// ErrDuplicateBill: insert kalah balapan tanpa ON CONFLICT (harusnya tidak terjadi).
var ErrDuplicateBill = errors.New("student bill already exists")

/* =========================================================
   PaymentRepository: student_bills + student_balances
   (implements service.PaymentStore)
========================================================= */

type PaymentRepository struct {
	DB *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

var _ service.PaymentStore = (*PaymentRepository)(nil)

func (r *PaymentRepository) InTx(ctx context.Context, fn func(tx service.UnitTx) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormUnitTx{db: tx})
	})
}

func (r *PaymentRepository) Balance(ctx context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	return readBalance(r.DB.WithContext(ctx), schoolID, studentID)
}

// ListBills tagihan satu konfigurasi (urut due date, siswa).
func (r *PaymentRepository) ListBills(ctx context.Context, schoolID, configurationID uuid.UUID) ([]model.StudentBillModel, error) {
	var rows []model.StudentBillModel
	err := r.DB.WithContext(ctx).
		Where("student_bill_school_id = ? AND student_bill_configuration_id = ?", schoolID, configurationID).
		Order("student_bill_due_date ASC, student_bill_student_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return rows, nil
}

func readBalance(db *gorm.DB, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	var b model.StudentBalanceModel
	err := db.
		Where("student_balance_student_id = ? AND student_balance_school_id = ?", studentID, schoolID).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("read balance: %w", err)
	}
	return b.StudentBalanceAmount, nil
}

/* =========================================================
   gormUnitTx: satu transaksi per (siswa, periode)
========================================================= */

type gormUnitTx struct {
	db *gorm.DB
}

var billKeyColumns = []clause.Column{
	{Name: "student_bill_student_id"},
	{Name: "student_bill_configuration_id"},
	{Name: "student_bill_due_date"},
}

func (t *gormUnitTx) InsertOrFetch(ctx context.Context, bill *model.StudentBillModel) (bool, error) {
	res := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: billKeyColumns, DoNothing: true}).
		Create(bill)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, fmt.Errorf("insert student bill: %w", ErrDuplicateBill)
		}
		return false, fmt.Errorf("insert student bill: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	// key sudah ada → ambil record lama (dikunci di PostgreSQL)
	q := t.db.WithContext(ctx)
	if t.db.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var existing model.StudentBillModel
	err := q.Where(`student_bill_student_id = ? AND student_bill_configuration_id = ? AND student_bill_due_date = ?`,
		bill.StudentBillStudentID, bill.StudentBillConfigurationID, bill.StudentBillDueDate).
		Take(&existing).Error
	if err != nil {
		return false, fmt.Errorf("fetch existing student bill: %w", err)
	}
	*bill = existing
	return false, nil
}

func (t *gormUnitTx) SaveBill(ctx context.Context, bill *model.StudentBillModel) error {
	res := t.db.WithContext(ctx).
		Model(&model.StudentBillModel{}).
		Where("student_bill_id = ?", bill.StudentBillID).
		Updates(map[string]any{
			"student_bill_base_amount":   bill.StudentBillBaseAmount,
			"student_bill_total_amount":  bill.StudentBillTotalAmount,
			"student_bill_balance_delta": bill.StudentBillBalanceDelta,
			"student_bill_delinquent":    bill.StudentBillDelinquent,
			"student_bill_delinquent_at": bill.StudentBillDelinquentAt,
			"student_bill_tags":          bill.StudentBillTags,
			"student_bill_updated_at":    time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("save student bill: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("save student bill %s: %w", bill.StudentBillID, gorm.ErrRecordNotFound)
	}
	return nil
}

// IncrementBalance: upsert atomik, lalu baca saldo terbaru di transaksi yang sama.
func (t *gormUnitTx) IncrementBalance(ctx context.Context, schoolID, studentID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	row := model.StudentBalanceModel{
		StudentBalanceStudentID: studentID,
		StudentBalanceSchoolID:  schoolID,
		StudentBalanceAmount:    delta,
	}
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_balance_student_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"student_balance_amount":     gorm.Expr("student_balances.student_balance_amount + ?", delta),
				"student_balance_updated_at": time.Now(),
			}),
		}).
		Create(&row).Error
	if err != nil {
		return decimal.Zero, fmt.Errorf("increment balance: %w", err)
	}
	return readBalance(t.db.WithContext(ctx), schoolID, studentID)
}

func (t *gormUnitTx) Balance(ctx context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	return readBalance(t.db.WithContext(ctx), schoolID, studentID)
}

/* =========================================================
   PG error helper (pgx + fallback string)
========================================================= */

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "sqlstate 23505") ||
		strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint")
}
