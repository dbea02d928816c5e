package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/service"
	studentModel "schoolku_billing/internals/features/school/students/model"
)

func studentIDs(rs []service.StudentRecord) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

/* ==============================
   Directory
============================== */

func TestDirectory_FindCycle(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	dir := NewDirectoryRepository(w.db)

	c, err := dir.FindCycle(context.Background(), w.school, w.term)
	require.NoError(t, err)
	assert.Equal(t, "2023/2024 Genap", c.Name)
	assert.Equal(t, "active", c.Status)
	assert.True(t, c.StartDate.Equal(day("2024-01-01")))

	_, err = dir.FindCycle(context.Background(), uuid.New(), w.term)
	assert.ErrorIs(t, err, service.ErrCycleNotFound)
}

func TestDirectory_ListActiveStudents(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	dir := NewDirectoryRepository(w.db)
	ctx := context.Background()

	ahmad := w.addStudent(t, "Ahmad", w.group5A)
	budi := w.addStudent(t, "Budi", w.group5A)
	citra := w.addStudent(t, "Citra", w.group6B)
	w.addStudent(t, "Lulus", w.group5A, func(s *studentModel.SchoolStudentModel) {
		s.SchoolStudentStatus = studentModel.SchoolStudentAlumni
	})
	w.addStudent(t, "LainTerm", w.group5A, func(s *studentModel.SchoolStudentModel) {
		s.SchoolStudentAcademicTermID = uuid.New()
	})
	gone := w.addStudent(t, "Pindah", w.group6B)
	require.NoError(t, w.db.Delete(&gone).Error)

	all, err := dir.ListActiveStudents(ctx, w.school, w.term, service.DirectoryFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ahmad.SchoolStudentID, budi.SchoolStudentID, citra.SchoolStudentID}, studentIDs(all))

	byGrade, err := dir.ListActiveStudents(ctx, w.school, w.term, service.DirectoryFilter{GradeIDs: []uuid.UUID{w.grade5A}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{ahmad.SchoolStudentID, budi.SchoolStudentID}, studentIDs(byGrade))
	for _, s := range byGrade {
		assert.Equal(t, "5A", s.GradeName)
		assert.Equal(t, "5A-1", s.GroupName)
		assert.Equal(t, w.group5A, s.GroupID)
	}

	byGroup, err := dir.ListActiveStudents(ctx, w.school, w.term, service.DirectoryFilter{GroupIDs: []uuid.UUID{w.group6B}})
	require.NoError(t, err)
	require.Len(t, byGroup, 1)
	assert.Equal(t, "Citra", byGroup[0].Name)
	assert.Equal(t, "NIS-Citra", byGroup[0].Enrollment)

	byStudent, err := dir.ListActiveStudents(ctx, w.school, w.term, service.DirectoryFilter{StudentIDs: []uuid.UUID{budi.SchoolStudentID, gone.SchoolStudentID}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{budi.SchoolStudentID}, studentIDs(byStudent))

	other, err := dir.ListActiveStudents(ctx, uuid.New(), w.term, service.DirectoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

/* ==============================
   ConfigRepository
============================== */

func TestConfigRepository_GetConfigurationTenantScoped(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewConfigRepository(w.db)
	ruleID := uuid.New()
	cfg := w.addConfig(t, func(m *model.BillingConfigurationModel) {
		m.BillingConfigurationRuleIDs = model.UUIDListJSON([]uuid.UUID{ruleID})
	})

	got, err := repo.GetConfiguration(context.Background(), w.school, cfg.BillingConfigurationID)
	require.NoError(t, err)
	ids, err := got.RuleIDs()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{ruleID}, ids)
	assert.True(t, got.BillingConfigurationAmount.Equal(dec("500")))

	_, err = repo.GetConfiguration(context.Background(), uuid.New(), cfg.BillingConfigurationID)
	assert.ErrorIs(t, err, service.ErrConfigurationNotFound)
	_, err = repo.GetConfiguration(context.Background(), w.school, uuid.New())
	assert.ErrorIs(t, err, service.ErrConfigurationNotFound)
}

func TestConfigRepository_ListScheduled(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewConfigRepository(w.db)

	running := w.addConfig(t)
	w.addConfig(t, func(m *model.BillingConfigurationModel) { m.BillingConfigurationStatus = model.ConfigurationOptional })
	w.addConfig(t, func(m *model.BillingConfigurationModel) {
		m.BillingConfigurationStartDate = day("2024-04-01")
		m.BillingConfigurationEndDate = day("2024-06-30")
	})

	rows, err := repo.ListScheduled(context.Background(), day("2024-02-10"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, running.BillingConfigurationID, rows[0].BillingConfigurationID)

	// batas rentang inklusif
	rows, err = repo.ListScheduled(context.Background(), day("2024-03-15"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestConfigRepository_RulesCrud(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewConfigRepository(w.db)
	ctx := context.Background()

	late := model.BillingRuleModel{
		BillingRuleSchoolID: w.school, BillingRuleName: "Denda telat", BillingRuleType: model.BillingRuleLateFee,
		BillingRuleStartDay: 1, BillingRuleEndDay: 30, BillingRuleValueType: model.BillingValuePercentage, BillingRuleValue: dec("10"),
	}
	early := model.BillingRuleModel{
		BillingRuleSchoolID: w.school, BillingRuleName: "Diskon awal", BillingRuleType: model.BillingRuleEarlyDiscount,
		BillingRuleStartDay: 0, BillingRuleEndDay: 10, BillingRuleValueType: model.BillingValueFixed, BillingRuleValue: dec("25"),
	}
	foreign := model.BillingRuleModel{
		BillingRuleSchoolID: uuid.New(), BillingRuleName: "Milik sekolah lain", BillingRuleType: model.BillingRuleLateFee,
		BillingRuleValueType: model.BillingValueFixed, BillingRuleValue: dec("5"),
	}
	for _, r := range []*model.BillingRuleModel{&late, &early, &foreign} {
		require.NoError(t, repo.CreateRule(ctx, r))
	}
	assert.Equal(t, model.BillingRuleActive, late.BillingRuleStatus)
	assert.Equal(t, model.BillingRuleScopeAll, late.BillingRuleScope)

	mine, err := repo.ListRules(ctx, w.school, RuleFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	onlyLate, err := repo.ListRules(ctx, w.school, RuleFilter{Type: "late_fee"})
	require.NoError(t, err)
	require.Len(t, onlyLate, 1)
	assert.Equal(t, late.BillingRuleID, onlyLate[0].BillingRuleID)

	byName, err := repo.ListRules(ctx, w.school, RuleFilter{Q: "DISKON"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, early.BillingRuleID, byName[0].BillingRuleID)

	// GetRules lintas sekolah; yang tidak ada cukup hilang
	found, err := repo.GetRules(ctx, []uuid.UUID{late.BillingRuleID, foreign.BillingRuleID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := repo.GetRules(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

/* ==============================
   PaymentRepository
============================== */

func newTestBill(w *world, studentID, configID uuid.UUID, due string, total string) model.StudentBillModel {
	d := day(due)
	return model.StudentBillModel{
		StudentBillSchoolID:        w.school,
		StudentBillStudentID:       studentID,
		StudentBillConfigurationID: configID,
		StudentBillDueDate:         d,
		StudentBillPeriodStart:     d,
		StudentBillPeriodEnd:       d.AddDate(0, 1, -1),
		StudentBillChargeType:      "spp",
		StudentBillBaseAmount:      dec(total),
		StudentBillTotalAmount:     dec(total),
		StudentBillBalanceDelta:    dec(total),
		StudentBillTags:            model.TagsJSON(nil),
		StudentBillAcademicTermID:  w.term,
	}
}

func TestPaymentRepository_InsertOrFetchIsIdempotent(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewPaymentRepository(w.db)
	ctx := context.Background()
	student, cfg := uuid.New(), uuid.New()

	var firstID uuid.UUID
	require.NoError(t, repo.InTx(ctx, func(tx service.UnitTx) error {
		b := newTestBill(w, student, cfg, "2024-01-01", "500")
		created, err := tx.InsertOrFetch(ctx, &b)
		require.NoError(t, err)
		assert.True(t, created)
		firstID = b.StudentBillID
		return nil
	}))

	require.NoError(t, repo.InTx(ctx, func(tx service.UnitTx) error {
		b := newTestBill(w, student, cfg, "2024-01-01", "999")
		created, err := tx.InsertOrFetch(ctx, &b)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, firstID, b.StudentBillID)
		assert.True(t, b.StudentBillTotalAmount.Equal(dec("500")))
		assert.Equal(t, model.StudentBillStatusUnpaid, b.StudentBillStatus)
		return nil
	}))

	bills, err := repo.ListBills(ctx, w.school, cfg)
	require.NoError(t, err)
	assert.Len(t, bills, 1)
}

func TestPaymentRepository_BalanceIncrementAndRollback(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewPaymentRepository(w.db)
	ctx := context.Background()
	student := uuid.New()

	bal, err := repo.Balance(ctx, w.school, student)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())

	require.NoError(t, repo.InTx(ctx, func(tx service.UnitTx) error {
		got, err := tx.IncrementBalance(ctx, w.school, student, dec("500"))
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("500")), got.String())
		got, err = tx.IncrementBalance(ctx, w.school, student, dec("-25.5"))
		require.NoError(t, err)
		assert.True(t, got.Equal(dec("474.5")), got.String())
		return nil
	}))

	boom := errors.New("boom")
	err = repo.InTx(ctx, func(tx service.UnitTx) error {
		b := newTestBill(w, student, uuid.New(), "2024-02-01", "100")
		if _, err := tx.InsertOrFetch(ctx, &b); err != nil {
			return err
		}
		if _, err := tx.IncrementBalance(ctx, w.school, student, dec("100")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bal, err = repo.Balance(ctx, w.school, student)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("474.5")), bal.String())

	// saldo tidak bocor ke sekolah lain
	bal, err = repo.Balance(ctx, uuid.New(), student)
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestPaymentRepository_SaveBill(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	repo := NewPaymentRepository(w.db)
	ctx := context.Background()
	student, cfg := uuid.New(), uuid.New()

	require.NoError(t, repo.InTx(ctx, func(tx service.UnitTx) error {
		b := newTestBill(w, student, cfg, "2024-01-01", "500")
		if _, err := tx.InsertOrFetch(ctx, &b); err != nil {
			return err
		}
		now := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
		b.StudentBillTotalAmount = dec("550")
		b.StudentBillDelinquent = true
		b.StudentBillDelinquentAt = &now
		b.StudentBillTags = model.TagsJSON([]string{service.TagCutoffReached})
		return tx.SaveBill(ctx, &b)
	}))

	bills, err := repo.ListBills(ctx, w.school, cfg)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.True(t, bills[0].StudentBillTotalAmount.Equal(dec("550")))
	assert.True(t, bills[0].StudentBillDelinquent)
	assert.Equal(t, []string{service.TagCutoffReached}, bills[0].TagList())

	err = repo.InTx(ctx, func(tx service.UnitTx) error {
		missing := newTestBill(w, student, cfg, "2024-05-01", "1")
		missing.StudentBillID = uuid.New()
		return tx.SaveBill(ctx, &missing)
	})
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, isUniqueViolation(nil))
	assert.True(t, isUniqueViolation(errors.New(`ERROR: duplicate key value violates unique constraint "uq_student_bill_key" (SQLSTATE 23505)`)))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: student_bills.student_bill_student_id")))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

/* ==============================
   Engine end-to-end di atas gorm
============================== */

func newGormEngine(t *testing.T, w *world) *service.Engine {
	t.Helper()
	return service.NewEngine(
		NewConfigRepository(w.db),
		NewDirectoryRepository(w.db),
		NewPaymentRepository(w.db),
		service.EngineOptions{
			Workers: 4,
			Now:     func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) },
			Logger:  zaptest.NewLogger(t),
		},
	)
}

func TestEngineOnGorm_GenerateIsIdempotent(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	ahmad := w.addStudent(t, "Ahmad", w.group5A)
	w.addStudent(t, "Citra", w.group6B)
	cfg := w.addConfig(t)
	eng := newGormEngine(t, w)
	ctx := context.Background()
	req := service.GenerateRequest{SchoolID: w.school, ConfigurationID: cfg.BillingConfigurationID}

	first, err := eng.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Summary.Created)
	assert.Len(t, first.Affected, 6)
	assert.Empty(t, first.Failed)
	assert.Equal(t, "2023/2024 Genap", first.Config.CycleName)

	second, err := eng.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Summary.Created)
	assert.Equal(t, 6, second.Summary.Existing)
	assert.Empty(t, second.Affected)

	bal, err := eng.Balance(ctx, w.school, ahmad.SchoolStudentID)
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("1500")), bal.String())

	// bayar periode Januari di luar engine → run berikutnya melapor completed
	paidAt := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	require.NoError(t, w.db.Model(&model.StudentBillModel{}).
		Where("student_bill_configuration_id = ? AND student_bill_due_date = ?", cfg.BillingConfigurationID, day("2024-01-01")).
		Updates(map[string]any{"student_bill_status": model.StudentBillStatusPaid, "student_bill_paid_at": paidAt}).Error)

	third, err := eng.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Summary.Completed)
	assert.Equal(t, 4, third.Summary.Existing)
	require.Len(t, third.Completed, 2)
	assert.True(t, third.Completed[0].Billing.TotalAmount.Equal(dec("500")))

	bills, err := NewPaymentRepository(w.db).ListBills(ctx, w.school, cfg.BillingConfigurationID)
	require.NoError(t, err)
	assert.Len(t, bills, 6)
	assert.NotNil(t, bills[0].StudentBillClassNameSnapshot)
}

func TestEngineOnGorm_ScheduledRequests(t *testing.T) {
	w := seedWorld(t, newTestDB(t))
	cfg := w.addConfig(t)
	eng := newGormEngine(t, w)

	reqs, err := eng.ScheduledRequests(context.Background(), day("2024-02-01"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, cfg.BillingConfigurationID, reqs[0].ConfigurationID)
	assert.Equal(t, w.school, reqs[0].SchoolID)
}
