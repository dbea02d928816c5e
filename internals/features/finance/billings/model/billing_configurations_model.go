// file: internals/features/finance/billings/model/billing_configurations_model.go
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// =========================================================
// ENUMS
// =========================================================

type BillingScope string

const (
	BillingScopeAllStudents      BillingScope = "all_students"
	BillingScopeSpecificGroups   BillingScope = "specific_groups"
	BillingScopeSpecificGrades   BillingScope = "specific_grades"
	BillingScopeSpecificStudents BillingScope = "specific_students"
)

type Recurrence string

const (
	RecurrenceSingle     Recurrence = "single"
	RecurrenceWeekly     Recurrence = "weekly"
	RecurrenceBiweekly   Recurrence = "biweekly"
	RecurrenceMonthly    Recurrence = "monthly"
	RecurrenceBimonthly  Recurrence = "bimonthly"
	RecurrenceQuarterly  Recurrence = "quarterly"
	RecurrenceSemiannual Recurrence = "semiannual"
	RecurrenceAnnual     Recurrence = "annual"
)

type ConfigurationStatus string

const (
	ConfigurationRequired ConfigurationStatus = "required"
	ConfigurationOptional ConfigurationStatus = "optional"
	ConfigurationInactive ConfigurationStatus = "inactive"
)

// Eligible: hanya required/optional yang boleh generate tagihan baru.
func (s ConfigurationStatus) Eligible() bool {
	return s == ConfigurationRequired || s == ConfigurationOptional
}

// =========================================================
// MODEL billing_configurations
// =========================================================

type BillingConfigurationModel struct {
	BillingConfigurationID            uuid.UUID `gorm:"type:uuid;primaryKey;column:billing_configuration_id" json:"billing_configuration_id"`
	BillingConfigurationSchoolID      uuid.UUID `gorm:"type:uuid;not null;index:idx_billing_cfg_tenant,priority:1;column:billing_configuration_school_id" json:"billing_configuration_school_id"`
	BillingConfigurationSchoolCycleID uuid.UUID `gorm:"type:uuid;not null;index:idx_billing_cfg_tenant,priority:2;column:billing_configuration_school_cycle_id" json:"billing_configuration_school_cycle_id"`

	// Audience: hanya list yang sesuai scope yang dibaca
	BillingConfigurationScope            BillingScope   `gorm:"type:varchar(30);not null;column:billing_configuration_scope" json:"billing_configuration_scope"`
	BillingConfigurationTargetGroupIDs   datatypes.JSON `gorm:"column:billing_configuration_target_group_ids" json:"billing_configuration_target_group_ids,omitempty"`
	BillingConfigurationTargetGradeIDs   datatypes.JSON `gorm:"column:billing_configuration_target_grade_ids" json:"billing_configuration_target_grade_ids,omitempty"`
	BillingConfigurationTargetStudentIDs datatypes.JSON `gorm:"column:billing_configuration_target_student_ids" json:"billing_configuration_target_student_ids,omitempty"`

	// Charge terms
	BillingConfigurationType       string          `gorm:"type:varchar(60);not null;column:billing_configuration_type" json:"billing_configuration_type"`
	BillingConfigurationAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null;column:billing_configuration_amount" json:"billing_configuration_amount"`
	BillingConfigurationRecurrence Recurrence      `gorm:"type:varchar(20);not null;column:billing_configuration_recurrence" json:"billing_configuration_recurrence"`
	BillingConfigurationStartDate  time.Time       `gorm:"type:date;not null;column:billing_configuration_start_date" json:"billing_configuration_start_date"`
	BillingConfigurationEndDate    time.Time       `gorm:"type:date;not null;column:billing_configuration_end_date" json:"billing_configuration_end_date"`

	// Policy: urutan rule = urutan attach
	BillingConfigurationRuleIDs datatypes.JSON `gorm:"column:billing_configuration_rule_ids" json:"billing_configuration_rule_ids,omitempty"`

	BillingConfigurationStatus ConfigurationStatus `gorm:"type:varchar(20);not null;default:'required';index;column:billing_configuration_status" json:"billing_configuration_status"`

	// Audit
	BillingConfigurationCreatedBy *uuid.UUID     `gorm:"type:uuid;column:billing_configuration_created_by" json:"billing_configuration_created_by,omitempty"`
	BillingConfigurationUpdatedBy *uuid.UUID     `gorm:"type:uuid;column:billing_configuration_updated_by" json:"billing_configuration_updated_by,omitempty"`
	BillingConfigurationCreatedAt time.Time      `gorm:"not null;autoCreateTime;column:billing_configuration_created_at" json:"billing_configuration_created_at"`
	BillingConfigurationUpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:billing_configuration_updated_at" json:"billing_configuration_updated_at"`
	BillingConfigurationDeletedAt gorm.DeletedAt `gorm:"column:billing_configuration_deleted_at;index" json:"billing_configuration_deleted_at,omitempty"`
}

func (BillingConfigurationModel) TableName() string { return "billing_configurations" }

// BeforeCreate: set ID jika kosong
func (m *BillingConfigurationModel) BeforeCreate(tx *gorm.DB) error {
	if m.BillingConfigurationID == uuid.Nil {
		m.BillingConfigurationID = uuid.New()
	}
	if m.BillingConfigurationSchoolID == uuid.Nil {
		return fmt.Errorf("billing_configuration_school_id is required")
	}
	return nil
}

// BeforeSave: mirror CHECK constraint di SQL
func (m *BillingConfigurationModel) BeforeSave(tx *gorm.DB) error {
	m.BillingConfigurationType = strings.TrimSpace(m.BillingConfigurationType)
	if m.BillingConfigurationAmount.IsNegative() {
		return fmt.Errorf("billing_configuration_amount must be >= 0")
	}
	if m.BillingConfigurationEndDate.Before(m.BillingConfigurationStartDate) {
		return fmt.Errorf("billing_configuration_end_date must be >= billing_configuration_start_date")
	}
	if m.BillingConfigurationStatus == "" {
		m.BillingConfigurationStatus = ConfigurationRequired
	}
	return nil
}

func (m BillingConfigurationModel) TargetGroupIDs() ([]uuid.UUID, error) {
	return ParseUUIDList(m.BillingConfigurationTargetGroupIDs)
}

func (m BillingConfigurationModel) TargetGradeIDs() ([]uuid.UUID, error) {
	return ParseUUIDList(m.BillingConfigurationTargetGradeIDs)
}

func (m BillingConfigurationModel) TargetStudentIDs() ([]uuid.UUID, error) {
	return ParseUUIDList(m.BillingConfigurationTargetStudentIDs)
}

func (m BillingConfigurationModel) RuleIDs() ([]uuid.UUID, error) {
	return ParseUUIDList(m.BillingConfigurationRuleIDs)
}

// =========================================================
// JSON helpers (list UUID di kolom json/jsonb)
// =========================================================

func ParseUUIDList(j datatypes.JSON) ([]uuid.UUID, error) {
	raw := strings.TrimSpace(string(j))
	if raw == "" || raw == "null" {
		return nil, nil
	}
	var ids []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("invalid uuid list: %w", err)
	}
	return ids, nil
}

func UUIDListJSON(ids []uuid.UUID) datatypes.JSON {
	if len(ids) == 0 {
		return datatypes.JSON("[]")
	}
	b, _ := json.Marshal(ids)
	return datatypes.JSON(b)
}
