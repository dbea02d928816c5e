package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schoolku_billing/internals/features/finance/billings/model"
)

func TestBuildResult_RoutesOutcomes(t *testing.T) {
	cfg := Configuration{
		ID: uuid.New(), ChargeType: "spp", Amount: dec("100"),
		Recurrence: model.RecurrenceSingle, Audience: SpecificGroups{GroupIDs: []uuid.UUID{uuid.New()}},
		Status: model.ConfigurationOptional, EndDate: day("2024-06-30"),
	}
	cycle := Cycle{Name: "2024/2025 Ganjil", Status: "inactive"}
	per := Period{DueDate: day("2024-07-01")}
	st := StudentRecord{ID: uuid.New(), Name: "Ahmad", Enrollment: "001", GroupName: "5A-1"}
	paidAt := time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)

	outcomes := []UnitOutcome{
		{Student: st, Period: per, Kind: OutcomeCreated, Balance: dec("100"), BalanceUpdated: true,
			Bill: model.StudentBillModel{StudentBillID: uuid.New(), StudentBillTotalAmount: dec("100"), StudentBillDelinquent: true}},
		{Student: st, Period: per, Kind: OutcomeExisting},
		{Student: st, Period: per, Kind: OutcomeCompleted,
			Bill: model.StudentBillModel{StudentBillBaseAmount: dec("100"), StudentBillTotalAmount: dec("90"), StudentBillPaidAt: &paidAt}},
		{Student: st, Period: per, Kind: OutcomeSkipped},
		{Student: st, Period: per, Kind: OutcomeFailed, Err: errors.New("timeout")},
	}

	res := BuildResult(cfg, cycle, 1, 1, outcomes)

	assert.Equal(t, "specific_groups", res.Config.Scope)
	assert.Equal(t, "optional", res.Config.Status)
	assert.Equal(t, "inactive", res.Config.CycleStatus)
	assert.Equal(t, "2024-06-30", res.Config.EndDate)

	require.Len(t, res.Affected, 1)
	assert.Equal(t, "Ahmad", res.Affected[0].StudentName)
	assert.Equal(t, "2024-07-01", res.Affected[0].DueDate)
	require.Len(t, res.Completed, 1)
	assertDecimal(t, "90", res.Completed[0].Billing.TotalAmount)
	assertDecimal(t, "100", res.Completed[0].Billing.Amount)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "timeout", res.Failed[0].Error)

	assert.Equal(t, 1, res.Summary.Created)
	assert.Equal(t, 1, res.Summary.Existing)
	assert.Equal(t, 1, res.Summary.Completed)
	assert.Equal(t, 1, res.Summary.Skipped)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.Equal(t, 1, res.Summary.Delinquent)
	assert.Contains(t, res.Message, "1 gagal")
}

func TestBuildResult_EmptySlicesNotNil(t *testing.T) {
	res := BuildResult(Configuration{Audience: AllStudents{}}, Cycle{}, 0, 0, nil)
	assert.NotNil(t, res.Affected)
	assert.NotNil(t, res.Completed)
	assert.NotNil(t, res.Failed)
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	id := uuid.New()
	unlock := k.Lock(id)
	assert.Len(t, k.locks, 1)
	unlock()
	assert.Empty(t, k.locks)
}
