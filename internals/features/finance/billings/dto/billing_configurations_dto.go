// file: internals/features/finance/billings/dto/billing_configurations_dto.go
package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	model "schoolku_billing/internals/features/finance/billings/model"
)

const DateLayout = "2006-01-02"

////////////////////////////////////////////////////////////////////////////////
// BILLING CONFIGURATIONS - DTO
////////////////////////////////////////////////////////////////////////////////

// Create: school_id diambil dari token, bukan dari body.
// Aturan scope:
// - all_students       => semua list target diabaikan
// - specific_groups    => billing_configuration_target_group_ids WAJIB
// - specific_grades    => billing_configuration_target_grade_ids WAJIB
// - specific_students  => billing_configuration_target_student_ids WAJIB
type BillingConfigurationCreateDTO struct {
	SchoolCycleID uuid.UUID `json:"billing_configuration_school_cycle_id" validate:"required"`

	Scope            string      `json:"billing_configuration_scope" validate:"required,oneof=all_students specific_groups specific_grades specific_students"`
	TargetGroupIDs   []uuid.UUID `json:"billing_configuration_target_group_ids,omitempty"`
	TargetGradeIDs   []uuid.UUID `json:"billing_configuration_target_grade_ids,omitempty"`
	TargetStudentIDs []uuid.UUID `json:"billing_configuration_target_student_ids,omitempty"`

	Type       string          `json:"billing_configuration_type" validate:"required,max=60"`
	Amount     decimal.Decimal `json:"billing_configuration_amount"`
	Recurrence string          `json:"billing_configuration_recurrence" validate:"required,oneof=single weekly biweekly monthly bimonthly quarterly semiannual annual"`
	StartDate  string          `json:"billing_configuration_start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string          `json:"billing_configuration_end_date" validate:"required,datetime=2006-01-02"`

	RuleIDs []uuid.UUID `json:"billing_configuration_rule_ids,omitempty"`
	Status  string      `json:"billing_configuration_status" validate:"omitempty,oneof=required optional inactive"`
}

// CheckSemantics: aturan lintas field yang tidak bisa lewat tag validator.
func (in *BillingConfigurationCreateDTO) CheckSemantics() map[string][]string {
	errs := map[string][]string{}
	if in.Amount.IsNegative() {
		errs["billing_configuration_amount"] = append(errs["billing_configuration_amount"], "must be >= 0")
	}

	start, e1 := time.Parse(DateLayout, strings.TrimSpace(in.StartDate))
	end, e2 := time.Parse(DateLayout, strings.TrimSpace(in.EndDate))
	if e1 == nil && e2 == nil && end.Before(start) {
		errs["billing_configuration_end_date"] = append(errs["billing_configuration_end_date"], "must be >= start_date")
	}

	switch model.BillingScope(in.Scope) {
	case model.BillingScopeSpecificGroups:
		if len(in.TargetGroupIDs) == 0 {
			errs["billing_configuration_target_group_ids"] = append(errs["billing_configuration_target_group_ids"], "required for scope specific_groups")
		}
	case model.BillingScopeSpecificGrades:
		if len(in.TargetGradeIDs) == 0 {
			errs["billing_configuration_target_grade_ids"] = append(errs["billing_configuration_target_grade_ids"], "required for scope specific_grades")
		}
	case model.BillingScopeSpecificStudents:
		if len(in.TargetStudentIDs) == 0 {
			errs["billing_configuration_target_student_ids"] = append(errs["billing_configuration_target_student_ids"], "required for scope specific_students")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ToModel: list target yang bukan milik scope terpilih dikosongkan.
func (in BillingConfigurationCreateDTO) ToModel(schoolID uuid.UUID, actor *uuid.UUID) model.BillingConfigurationModel {
	start, _ := time.Parse(DateLayout, strings.TrimSpace(in.StartDate))
	end, _ := time.Parse(DateLayout, strings.TrimSpace(in.EndDate))

	status := model.ConfigurationStatus(in.Status)
	if status == "" {
		status = model.ConfigurationRequired
	}

	m := model.BillingConfigurationModel{
		BillingConfigurationSchoolID:      schoolID,
		BillingConfigurationSchoolCycleID: in.SchoolCycleID,
		BillingConfigurationScope:         model.BillingScope(in.Scope),
		BillingConfigurationType:          strings.TrimSpace(in.Type),
		BillingConfigurationAmount:        in.Amount.Round(2),
		BillingConfigurationRecurrence:    model.Recurrence(in.Recurrence),
		BillingConfigurationStartDate:     start,
		BillingConfigurationEndDate:       end,
		BillingConfigurationRuleIDs:       model.UUIDListJSON(in.RuleIDs),
		BillingConfigurationStatus:        status,
		BillingConfigurationCreatedBy:     actor,
		BillingConfigurationUpdatedBy:     actor,

		BillingConfigurationTargetGroupIDs:   model.UUIDListJSON(nil),
		BillingConfigurationTargetGradeIDs:   model.UUIDListJSON(nil),
		BillingConfigurationTargetStudentIDs: model.UUIDListJSON(nil),
	}
	switch m.BillingConfigurationScope {
	case model.BillingScopeSpecificGroups:
		m.BillingConfigurationTargetGroupIDs = model.UUIDListJSON(in.TargetGroupIDs)
	case model.BillingScopeSpecificGrades:
		m.BillingConfigurationTargetGradeIDs = model.UUIDListJSON(in.TargetGradeIDs)
	case model.BillingScopeSpecificStudents:
		m.BillingConfigurationTargetStudentIDs = model.UUIDListJSON(in.TargetStudentIDs)
	}
	return m
}

type BillingConfigurationResponse struct {
	BillingConfigurationID            uuid.UUID `json:"billing_configuration_id"`
	BillingConfigurationSchoolID      uuid.UUID `json:"billing_configuration_school_id"`
	BillingConfigurationSchoolCycleID uuid.UUID `json:"billing_configuration_school_cycle_id"`

	BillingConfigurationScope     model.BillingScope `json:"billing_configuration_scope"`
	BillingConfigurationTargetIDs []uuid.UUID        `json:"billing_configuration_target_ids"`

	BillingConfigurationType       string                    `json:"billing_configuration_type"`
	BillingConfigurationAmount     decimal.Decimal           `json:"billing_configuration_amount"`
	BillingConfigurationRecurrence model.Recurrence          `json:"billing_configuration_recurrence"`
	BillingConfigurationStartDate  string                    `json:"billing_configuration_start_date"`
	BillingConfigurationEndDate    string                    `json:"billing_configuration_end_date"`
	BillingConfigurationRuleIDs    []uuid.UUID               `json:"billing_configuration_rule_ids"`
	BillingConfigurationStatus     model.ConfigurationStatus `json:"billing_configuration_status"`

	BillingConfigurationCreatedAt time.Time `json:"billing_configuration_created_at"`
	BillingConfigurationUpdatedAt time.Time `json:"billing_configuration_updated_at"`
}

////////////////////////////////////////////////////////////////////////////////
// MAPPERS - Model -> DTO
////////////////////////////////////////////////////////////////////////////////

func ToBillingConfigurationResponse(m model.BillingConfigurationModel) BillingConfigurationResponse {
	var targets []uuid.UUID
	switch m.BillingConfigurationScope {
	case model.BillingScopeSpecificGroups:
		targets, _ = m.TargetGroupIDs()
	case model.BillingScopeSpecificGrades:
		targets, _ = m.TargetGradeIDs()
	case model.BillingScopeSpecificStudents:
		targets, _ = m.TargetStudentIDs()
	}
	if targets == nil {
		targets = []uuid.UUID{}
	}
	ruleIDs, _ := m.RuleIDs()
	if ruleIDs == nil {
		ruleIDs = []uuid.UUID{}
	}

	return BillingConfigurationResponse{
		BillingConfigurationID:            m.BillingConfigurationID,
		BillingConfigurationSchoolID:      m.BillingConfigurationSchoolID,
		BillingConfigurationSchoolCycleID: m.BillingConfigurationSchoolCycleID,

		BillingConfigurationScope:     m.BillingConfigurationScope,
		BillingConfigurationTargetIDs: targets,

		BillingConfigurationType:       m.BillingConfigurationType,
		BillingConfigurationAmount:     m.BillingConfigurationAmount,
		BillingConfigurationRecurrence: m.BillingConfigurationRecurrence,
		BillingConfigurationStartDate:  m.BillingConfigurationStartDate.Format(DateLayout),
		BillingConfigurationEndDate:    m.BillingConfigurationEndDate.Format(DateLayout),
		BillingConfigurationRuleIDs:    ruleIDs,
		BillingConfigurationStatus:     m.BillingConfigurationStatus,

		BillingConfigurationCreatedAt: m.BillingConfigurationCreatedAt,
		BillingConfigurationUpdatedAt: m.BillingConfigurationUpdatedAt,
	}
}

// GenerateRequestDTO body POST /billing-configurations/:id/generate (boleh kosong).
type GenerateRequestDTO struct {
	RefreshUnpaid bool   `json:"refresh_unpaid"`
	AsOf          string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

func (in GenerateRequestDTO) AsOfDate() *time.Time {
	s := strings.TrimSpace(in.AsOf)
	if s == "" {
		return nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
