package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolku_billing/internals/features/finance/billings/model"
)

// Configuration bentuk ter-validasi dari BillingConfigurationModel.
type Configuration struct {
	ID         uuid.UUID
	SchoolID   uuid.UUID
	CycleID    uuid.UUID
	Audience   Audience
	ChargeType string
	Amount     decimal.Decimal
	Recurrence model.Recurrence
	StartDate  time.Time
	EndDate    time.Time
	RuleIDs    []uuid.UUID
	Status     model.ConfigurationStatus
}

func (c Configuration) Eligible() bool { return c.Status.Eligible() }

// ConfigurationFromModel: semua pelanggaran dikumpulkan jadi satu ConfigError.
func ConfigurationFromModel(m model.BillingConfigurationModel) (Configuration, error) {
	ce := &ConfigError{ConfigurationID: m.BillingConfigurationID}

	cfg := Configuration{
		ID:         m.BillingConfigurationID,
		SchoolID:   m.BillingConfigurationSchoolID,
		CycleID:    m.BillingConfigurationSchoolCycleID,
		ChargeType: strings.TrimSpace(m.BillingConfigurationType),
		Amount:     m.BillingConfigurationAmount,
		Recurrence: m.BillingConfigurationRecurrence,
		StartDate:  DateOnly(m.BillingConfigurationStartDate),
		EndDate:    DateOnly(m.BillingConfigurationEndDate),
		Status:     m.BillingConfigurationStatus,
	}

	aud, err := AudienceFromModel(m)
	if err != nil {
		ce.add("scope", "%s", err.Error())
	}
	cfg.Audience = aud

	if cfg.CycleID == uuid.Nil {
		ce.add("school_cycle_id", "required")
	}
	if cfg.ChargeType == "" {
		ce.add("type", "required")
	}
	if cfg.Amount.IsNegative() {
		ce.add("amount", "must be >= 0")
	}
	if !ValidRecurrence(cfg.Recurrence) {
		ce.add("recurrence", "unknown recurrence %q", cfg.Recurrence)
	}
	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() {
		ce.add("start_date", "start_date and end_date are required")
	} else if cfg.EndDate.Before(cfg.StartDate) {
		ce.add("end_date", "must be >= start_date")
	}
	switch cfg.Status {
	case model.ConfigurationRequired, model.ConfigurationOptional, model.ConfigurationInactive:
	default:
		ce.add("status", "unknown status %q", cfg.Status)
	}

	ruleIDs, err := m.RuleIDs()
	if err != nil {
		ce.add("rule_ids", "%s", err.Error())
	}
	cfg.RuleIDs = ruleIDs

	if err := ce.orNil(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}
