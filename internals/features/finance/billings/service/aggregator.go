package service

import (
	"fmt"

	"schoolku_billing/internals/features/finance/billings/dto"
)

// ConfigEcho: ringkasan konfigurasi yang dinormalisasi untuk hasil.
func ConfigEcho(cfg Configuration, cycle Cycle) dto.GenerationConfig {
	scope := ""
	if cfg.Audience != nil {
		scope = string(cfg.Audience.Scope())
	}
	return dto.GenerationConfig{
		Type:        cfg.ChargeType,
		Recurrence:  string(cfg.Recurrence),
		Scope:       scope,
		Amount:      cfg.Amount,
		Status:      string(cfg.Status),
		CycleName:   cycle.Name,
		CycleStatus: cycle.Status,
		EndDate:     cfg.EndDate.Format(DateLayout),
	}
}

// BuildResult murni format; tidak menyentuh state.
func BuildResult(cfg Configuration, cycle Cycle, students, periods int, outcomes []UnitOutcome) dto.GenerationResult {
	res := dto.GenerationResult{
		Config:    ConfigEcho(cfg, cycle),
		Affected:  []dto.AffectedStudent{},
		Completed: []dto.CompletedBilling{},
		Failed:    []dto.FailedUnit{},
		Summary:   dto.GenerationSummary{Students: students, Periods: periods},
	}

	for _, o := range outcomes {
		if o.MarkedDelinquent || (o.Kind == OutcomeCreated && o.Bill.StudentBillDelinquent) {
			res.Summary.Delinquent++
		}

		switch o.Kind {
		case OutcomeCreated, OutcomeRefreshed:
			if o.Kind == OutcomeCreated {
				res.Summary.Created++
			} else {
				res.Summary.Refreshed++
			}
			res.Affected = append(res.Affected, dto.AffectedStudent{
				PaymentID:      o.Bill.StudentBillID,
				StudentID:      o.Student.ID,
				StudentName:    o.Student.DisplayName(),
				Enrollment:     o.Student.Enrollment,
				Group:          o.Student.GroupName,
				Balance:        o.Balance,
				BalanceUpdated: o.BalanceUpdated,
				DueDate:        o.Period.DueDate.Format(DateLayout),
				Amount:         o.Bill.StudentBillTotalAmount,
				Tags:           o.Bill.TagList(),
				Refreshed:      o.Kind == OutcomeRefreshed,
			})
		case OutcomeExisting:
			res.Summary.Existing++
		case OutcomeCompleted:
			res.Summary.Completed++
			res.Completed = append(res.Completed, dto.CompletedBilling{
				Student: dto.CompletedStudent{
					Name:       o.Student.Name,
					LastName:   o.Student.LastName,
					Enrollment: o.Student.Enrollment,
				},
				Billing: dto.CompletedAmount{
					Amount:      o.Bill.StudentBillBaseAmount,
					TotalAmount: o.Bill.StudentBillTotalAmount,
					PaidAt:      o.Bill.StudentBillPaidAt,
				},
			})
		case OutcomeSkipped:
			res.Summary.Skipped++
		case OutcomeFailed:
			res.Summary.Failed++
			msg := "unknown error"
			if o.Err != nil {
				msg = o.Err.Error()
			}
			res.Failed = append(res.Failed, dto.FailedUnit{
				StudentID:   o.Student.ID,
				StudentName: o.Student.DisplayName(),
				DueDate:     o.Period.DueDate.Format(DateLayout),
				Error:       msg,
			})
		}
	}

	res.Message = summaryMessage(res.Summary)
	return res
}

func summaryMessage(s dto.GenerationSummary) string {
	msg := fmt.Sprintf("%d tagihan baru dibuat untuk %d siswa (%d periode)", s.Created, s.Students, s.Periods)
	if s.Refreshed > 0 {
		msg += fmt.Sprintf(", %d diperbarui", s.Refreshed)
	}
	if s.Existing > 0 {
		msg += fmt.Sprintf(", %d sudah ada", s.Existing)
	}
	if s.Completed > 0 {
		msg += fmt.Sprintf(", %d sudah lunas", s.Completed)
	}
	if s.Failed > 0 {
		msg += fmt.Sprintf(", %d gagal", s.Failed)
	}
	return msg
}

// EmptyResult untuk run yang berhenti sebelum materialisasi (inactive / audience kosong).
func EmptyResult(cfg Configuration, cycle Cycle, message string, periods int) dto.GenerationResult {
	return dto.GenerationResult{
		Message:   message,
		Config:    ConfigEcho(cfg, cycle),
		Affected:  []dto.AffectedStudent{},
		Completed: []dto.CompletedBilling{},
		Failed:    []dto.FailedUnit{},
		Summary:   dto.GenerationSummary{Periods: periods},
	}
}
