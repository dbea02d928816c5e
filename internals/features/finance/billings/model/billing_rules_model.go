// file: internals/features/finance/billings/model/billing_rules_model.go
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- ENUM rule type ---------------------------------------------------------
type BillingRuleType string

const (
	BillingRuleLateFee       BillingRuleType = "late_fee"
	BillingRuleEarlyDiscount BillingRuleType = "early_discount"
	BillingRuleCutoff        BillingRuleType = "cutoff"
)

// --- ENUM value type --------------------------------------------------------
type BillingValueType string

const (
	BillingValueFixed      BillingValueType = "fixed"
	BillingValuePercentage BillingValueType = "percentage"
)

// --- ENUM rule scope & status -----------------------------------------------
type BillingRuleScope string

const (
	BillingRuleScopeAll        BillingRuleScope = "all"         // boleh dipakai konfigurasi apa saja
	BillingRuleScopeChargeType BillingRuleScope = "charge_type" // hanya untuk type konfigurasi tertentu
)

type BillingRuleStatus string

const (
	BillingRuleActive   BillingRuleStatus = "active"
	BillingRuleInactive BillingRuleStatus = "inactive"
)

// --- MODEL billing_rules ----------------------------------------------------
type BillingRuleModel struct {
	BillingRuleID       uuid.UUID `json:"billing_rule_id" gorm:"column:billing_rule_id;type:uuid;primaryKey"`
	BillingRuleSchoolID uuid.UUID `json:"billing_rule_school_id" gorm:"column:billing_rule_school_id;type:uuid;not null;index:idx_billing_rules_tenant_type,priority:1"`

	BillingRuleName string          `json:"billing_rule_name" gorm:"column:billing_rule_name;type:varchar(120);not null"`
	BillingRuleType BillingRuleType `json:"billing_rule_type" gorm:"column:billing_rule_type;type:varchar(20);not null;index:idx_billing_rules_tenant_type,priority:2"`

	// Window (offset hari, bertanda)
	BillingRuleStartDay int `json:"billing_rule_start_day" gorm:"column:billing_rule_start_day;not null;default:0"`
	BillingRuleEndDay   int `json:"billing_rule_end_day" gorm:"column:billing_rule_end_day;not null;default:0"`

	// Nilai
	BillingRuleValueType BillingValueType `json:"billing_rule_value_type" gorm:"column:billing_rule_value_type;type:varchar(20);not null;default:'fixed'"`
	BillingRuleValue     decimal.Decimal  `json:"billing_rule_value" gorm:"column:billing_rule_value;type:numeric(14,2);not null;default:0"`

	// early_discount saja
	BillingRuleMinimumAmount decimal.NullDecimal `json:"billing_rule_minimum_amount" gorm:"column:billing_rule_minimum_amount;type:numeric(14,2)"`
	// cutoff saja
	BillingRuleCutoffAfterDays *int `json:"billing_rule_cutoff_after_days,omitempty" gorm:"column:billing_rule_cutoff_after_days"`

	BillingRuleScope      BillingRuleScope  `json:"billing_rule_scope" gorm:"column:billing_rule_scope;type:varchar(20);not null;default:'all'"`
	BillingRuleChargeType *string           `json:"billing_rule_charge_type,omitempty" gorm:"column:billing_rule_charge_type;type:varchar(60)"`
	BillingRuleStatus     BillingRuleStatus `json:"billing_rule_status" gorm:"column:billing_rule_status;type:varchar(20);not null;default:'active';index"`

	BillingRuleCreatedAt time.Time      `json:"billing_rule_created_at" gorm:"column:billing_rule_created_at;not null;autoCreateTime"`
	BillingRuleUpdatedAt time.Time      `json:"billing_rule_updated_at" gorm:"column:billing_rule_updated_at;not null;autoUpdateTime"`
	BillingRuleDeletedAt gorm.DeletedAt `json:"billing_rule_deleted_at,omitempty" gorm:"column:billing_rule_deleted_at;index"`
}

func (BillingRuleModel) TableName() string { return "billing_rules" }

func (m *BillingRuleModel) BeforeCreate(tx *gorm.DB) error {
	if m.BillingRuleID == uuid.Nil {
		m.BillingRuleID = uuid.New()
	}
	return nil
}

func (m *BillingRuleModel) BeforeSave(tx *gorm.DB) error {
	m.BillingRuleName = strings.TrimSpace(m.BillingRuleName)
	if m.BillingRuleScope == "" {
		m.BillingRuleScope = BillingRuleScopeAll
	}
	if m.BillingRuleStatus == "" {
		m.BillingRuleStatus = BillingRuleActive
	}
	if m.BillingRuleValue.IsNegative() {
		return fmt.Errorf("billing_rule_value must be >= 0")
	}
	return nil
}

// UsableBy: scope rule cocok dengan type konfigurasi?
func (m BillingRuleModel) UsableBy(chargeType string) bool {
	switch m.BillingRuleScope {
	case BillingRuleScopeChargeType:
		return m.BillingRuleChargeType != nil &&
			strings.EqualFold(strings.TrimSpace(*m.BillingRuleChargeType), strings.TrimSpace(chargeType))
	default:
		return true
	}
}
