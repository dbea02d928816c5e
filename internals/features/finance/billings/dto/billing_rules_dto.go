// file: internals/features/finance/billings/dto/billing_rules_dto.go
package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	model "schoolku_billing/internals/features/finance/billings/model"
)

/* =========================================================
   BILLING RULES - Create
   Field yang bukan milik tipe rule diabaikan saat ToModel.
========================================================= */

type BillingRuleCreateDTO struct {
	Name     string `json:"billing_rule_name" validate:"required,max=120"`
	Type     string `json:"billing_rule_type" validate:"required,oneof=late_fee early_discount cutoff"`
	StartDay int    `json:"billing_rule_start_day"`
	EndDay   int    `json:"billing_rule_end_day" validate:"gtefield=StartDay"`

	ValueType string          `json:"billing_rule_value_type" validate:"omitempty,oneof=fixed percentage"`
	Value     decimal.Decimal `json:"billing_rule_value"`

	MinimumAmount   *decimal.Decimal `json:"billing_rule_minimum_amount,omitempty"`
	CutoffAfterDays *int             `json:"billing_rule_cutoff_after_days,omitempty" validate:"omitempty,min=0"`

	Scope      string  `json:"billing_rule_scope" validate:"omitempty,oneof=all charge_type"`
	ChargeType *string `json:"billing_rule_charge_type,omitempty" validate:"required_if=Scope charge_type"`
	Status     string  `json:"billing_rule_status" validate:"omitempty,oneof=active inactive"`
}

func (in *BillingRuleCreateDTO) CheckSemantics() map[string][]string {
	errs := map[string][]string{}
	if in.Value.IsNegative() {
		errs["billing_rule_value"] = append(errs["billing_rule_value"], "must be >= 0")
	}
	if in.ValueType == string(model.BillingValuePercentage) && in.Value.GreaterThan(decimal.NewFromInt(100)) {
		errs["billing_rule_value"] = append(errs["billing_rule_value"], "percentage must be within [0,100]")
	}
	if in.MinimumAmount != nil && in.MinimumAmount.IsNegative() {
		errs["billing_rule_minimum_amount"] = append(errs["billing_rule_minimum_amount"], "must be >= 0")
	}
	if in.Type == string(model.BillingRuleCutoff) && in.CutoffAfterDays == nil {
		errs["billing_rule_cutoff_after_days"] = append(errs["billing_rule_cutoff_after_days"], "required for cutoff rule")
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func (in BillingRuleCreateDTO) ToModel(schoolID uuid.UUID) model.BillingRuleModel {
	m := model.BillingRuleModel{
		BillingRuleSchoolID:  schoolID,
		BillingRuleName:      strings.TrimSpace(in.Name),
		BillingRuleType:      model.BillingRuleType(in.Type),
		BillingRuleStartDay:  in.StartDay,
		BillingRuleEndDay:    in.EndDay,
		BillingRuleValueType: model.BillingValueType(in.ValueType),
		BillingRuleValue:     in.Value.Round(2),
		BillingRuleScope:     model.BillingRuleScope(in.Scope),
		BillingRuleStatus:    model.BillingRuleStatus(in.Status),
	}
	if m.BillingRuleValueType == "" {
		m.BillingRuleValueType = model.BillingValueFixed
	}
	if m.BillingRuleScope == model.BillingRuleScopeChargeType && in.ChargeType != nil {
		ct := strings.TrimSpace(*in.ChargeType)
		m.BillingRuleChargeType = &ct
	}

	switch m.BillingRuleType {
	case model.BillingRuleEarlyDiscount:
		if in.MinimumAmount != nil {
			m.BillingRuleMinimumAmount = decimal.NewNullDecimal(in.MinimumAmount.Round(2))
		}
	case model.BillingRuleCutoff:
		m.BillingRuleCutoffAfterDays = in.CutoffAfterDays
		// cutoff tidak punya nilai uang
		m.BillingRuleValue = decimal.Zero
	}
	return m
}

type BillingRuleResponse struct {
	BillingRuleID              uuid.UUID               `json:"billing_rule_id"`
	BillingRuleName            string                  `json:"billing_rule_name"`
	BillingRuleType            model.BillingRuleType   `json:"billing_rule_type"`
	BillingRuleStartDay        int                     `json:"billing_rule_start_day"`
	BillingRuleEndDay          int                     `json:"billing_rule_end_day"`
	BillingRuleValueType       model.BillingValueType  `json:"billing_rule_value_type"`
	BillingRuleValue           decimal.Decimal         `json:"billing_rule_value"`
	BillingRuleMinimumAmount   *decimal.Decimal        `json:"billing_rule_minimum_amount,omitempty"`
	BillingRuleCutoffAfterDays *int                    `json:"billing_rule_cutoff_after_days,omitempty"`
	BillingRuleScope           model.BillingRuleScope  `json:"billing_rule_scope"`
	BillingRuleChargeType      *string                 `json:"billing_rule_charge_type,omitempty"`
	BillingRuleStatus          model.BillingRuleStatus `json:"billing_rule_status"`
	BillingRuleCreatedAt       time.Time               `json:"billing_rule_created_at"`
}

func ToBillingRuleResponse(m model.BillingRuleModel) BillingRuleResponse {
	out := BillingRuleResponse{
		BillingRuleID:              m.BillingRuleID,
		BillingRuleName:            m.BillingRuleName,
		BillingRuleType:            m.BillingRuleType,
		BillingRuleStartDay:        m.BillingRuleStartDay,
		BillingRuleEndDay:          m.BillingRuleEndDay,
		BillingRuleValueType:       m.BillingRuleValueType,
		BillingRuleValue:           m.BillingRuleValue,
		BillingRuleCutoffAfterDays: m.BillingRuleCutoffAfterDays,
		BillingRuleScope:           m.BillingRuleScope,
		BillingRuleChargeType:      m.BillingRuleChargeType,
		BillingRuleStatus:          m.BillingRuleStatus,
		BillingRuleCreatedAt:       m.BillingRuleCreatedAt,
	}
	if m.BillingRuleMinimumAmount.Valid {
		v := m.BillingRuleMinimumAmount.Decimal
		out.BillingRuleMinimumAmount = &v
	}
	return out
}

func ToBillingRuleResponses(rows []model.BillingRuleModel) []BillingRuleResponse {
	out := make([]BillingRuleResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, ToBillingRuleResponse(r))
	}
	return out
}
