// file: internals/features/finance/billings/model/student_bills_model.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

/* ==============================
   ENUM - status student bill
============================== */

type StudentBillStatus string

const (
	StudentBillStatusUnpaid   StudentBillStatus = "unpaid"
	StudentBillStatusPaid     StudentBillStatus = "paid"
	StudentBillStatusCanceled StudentBillStatus = "canceled"
)

/* ==============================================
   MODEL - satu obligation per (siswa, konfigurasi, due date)
   Tidak pernah dihapus oleh engine; lifecycle lewat status.
============================================== */

type StudentBillModel struct {
	StudentBillID       uuid.UUID `gorm:"column:student_bill_id;type:uuid;primaryKey" json:"student_bill_id"`
	StudentBillSchoolID uuid.UUID `gorm:"column:student_bill_school_id;type:uuid;not null;index" json:"student_bill_school_id"`

	// Idempotency key
	StudentBillStudentID       uuid.UUID `gorm:"column:student_bill_student_id;type:uuid;not null;uniqueIndex:uq_student_bill_key,priority:1" json:"student_bill_student_id"`
	StudentBillConfigurationID uuid.UUID `gorm:"column:student_bill_configuration_id;type:uuid;not null;uniqueIndex:uq_student_bill_key,priority:2;index" json:"student_bill_configuration_id"`
	StudentBillDueDate         time.Time `gorm:"column:student_bill_due_date;type:date;not null;uniqueIndex:uq_student_bill_key,priority:3" json:"student_bill_due_date"`

	// Periode (derived, disimpan sebagai snapshot)
	StudentBillPeriodIndex int       `gorm:"column:student_bill_period_index;not null;default:0" json:"student_bill_period_index"`
	StudentBillPeriodStart time.Time `gorm:"column:student_bill_period_start;type:date;not null" json:"student_bill_period_start"`
	StudentBillPeriodEnd   time.Time `gorm:"column:student_bill_period_end;type:date;not null" json:"student_bill_period_end"`

	StudentBillChargeType string `gorm:"column:student_bill_charge_type;type:varchar(60);not null" json:"student_bill_charge_type"`

	// Amount (frozen saat create)
	StudentBillBaseAmount   decimal.Decimal `gorm:"column:student_bill_base_amount;type:numeric(14,2);not null" json:"student_bill_base_amount"`
	StudentBillTotalAmount  decimal.Decimal `gorm:"column:student_bill_total_amount;type:numeric(14,2);not null" json:"student_bill_total_amount"`
	StudentBillBalanceDelta decimal.Decimal `gorm:"column:student_bill_balance_delta;type:numeric(14,2);not null" json:"student_bill_balance_delta"`

	// Status
	StudentBillStatus       StudentBillStatus `gorm:"column:student_bill_status;type:varchar(20);not null;default:'unpaid';index" json:"student_bill_status"`
	StudentBillPaidAt       *time.Time        `gorm:"column:student_bill_paid_at" json:"student_bill_paid_at,omitempty"`
	StudentBillDelinquent   bool              `gorm:"column:student_bill_delinquent;not null;default:false;index" json:"student_bill_delinquent"`
	StudentBillDelinquentAt *time.Time        `gorm:"column:student_bill_delinquent_at" json:"student_bill_delinquent_at,omitempty"`

	// Anotasi rule (discount_applied, surcharge_applied, cutoff_reached, ...)
	StudentBillTags datatypes.JSON `gorm:"column:student_bill_tags" json:"student_bill_tags,omitempty"`

	// Snapshot kelas & section untuk reporting
	StudentBillAcademicTermID           uuid.UUID  `gorm:"column:student_bill_academic_term_id;type:uuid;not null;index" json:"student_bill_academic_term_id"`
	StudentBillClassSectionID           *uuid.UUID `gorm:"column:student_bill_class_section_id;type:uuid;index" json:"student_bill_class_section_id,omitempty"`
	StudentBillClassSectionNameSnapshot *string    `gorm:"column:student_bill_class_section_name_snapshot;type:varchar(100)" json:"student_bill_class_section_name_snapshot,omitempty"`
	StudentBillClassID                  *uuid.UUID `gorm:"column:student_bill_class_id;type:uuid;index" json:"student_bill_class_id,omitempty"`
	StudentBillClassNameSnapshot        *string    `gorm:"column:student_bill_class_name_snapshot;type:varchar(120)" json:"student_bill_class_name_snapshot,omitempty"`

	StudentBillCreatedAt time.Time `gorm:"column:student_bill_created_at;not null;autoCreateTime;index" json:"student_bill_created_at"`
	StudentBillUpdatedAt time.Time `gorm:"column:student_bill_updated_at;not null;autoUpdateTime" json:"student_bill_updated_at"`
}

func (StudentBillModel) TableName() string { return "student_bills" }

func (m *StudentBillModel) BeforeCreate(tx *gorm.DB) (err error) {
	if m.StudentBillID == uuid.Nil {
		m.StudentBillID = uuid.New()
	}
	if m.StudentBillStatus == "" {
		m.StudentBillStatus = StudentBillStatusUnpaid
	}
	return nil
}

// Settled = sudah dibayar (lunas).
func (m StudentBillModel) Settled() bool {
	return m.StudentBillStatus == StudentBillStatusPaid
}

func (m StudentBillModel) TagList() []string {
	var tags []string
	if len(m.StudentBillTags) == 0 {
		return nil
	}
	_ = json.Unmarshal(m.StudentBillTags, &tags)
	return tags
}

func TagsJSON(tags []string) datatypes.JSON {
	if len(tags) == 0 {
		return datatypes.JSON("[]")
	}
	b, _ := json.Marshal(tags)
	return datatypes.JSON(b)
}

/* ==============================================
   MODEL - saldo berjalan per siswa
============================================== */

type StudentBalanceModel struct {
	StudentBalanceStudentID uuid.UUID       `gorm:"column:student_balance_student_id;type:uuid;primaryKey" json:"student_balance_student_id"`
	StudentBalanceSchoolID  uuid.UUID       `gorm:"column:student_balance_school_id;type:uuid;not null;index" json:"student_balance_school_id"`
	StudentBalanceAmount    decimal.Decimal `gorm:"column:student_balance_amount;type:numeric(14,2);not null;default:0" json:"student_balance_amount"`
	StudentBalanceUpdatedAt time.Time       `gorm:"column:student_balance_updated_at;not null;autoUpdateTime" json:"student_balance_updated_at"`
}

func (StudentBalanceModel) TableName() string { return "student_balances" }
