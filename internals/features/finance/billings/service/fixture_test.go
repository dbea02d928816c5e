package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/service"
	"schoolku_billing/internals/features/finance/billings/service/servicetest"
)

// fixture: satu sekolah, satu cycle aktif, dua grade (5A, 6B) masing-masing satu group.
type fixture struct {
	school uuid.UUID
	cycle  uuid.UUID

	grade5A, grade6B uuid.UUID
	group5A, group6B uuid.UUID

	dir    *servicetest.Directory
	cfgs   *servicetest.ConfigSource
	store  *servicetest.Store
	engine *service.Engine
}

func newFixture(t *testing.T, workers int) *fixture {
	t.Helper()
	f := &fixture{
		school:  uuid.New(),
		cycle:   uuid.New(),
		grade5A: uuid.New(),
		grade6B: uuid.New(),
		group5A: uuid.New(),
		group6B: uuid.New(),
		dir:     servicetest.NewDirectory(),
		cfgs:    servicetest.NewConfigSource(),
		store:   servicetest.NewStore(),
	}
	f.dir.AddCycle(service.Cycle{
		ID: f.cycle, SchoolID: f.school, Name: "2023/2024 Genap", Status: "active",
		StartDate: day("2024-01-01"), EndDate: day("2024-06-30"),
	})
	f.engine = service.NewEngine(f.cfgs, f.dir, f.store, service.EngineOptions{
		Workers: workers,
		Now:     func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) },
		Logger:  zaptest.NewLogger(t),
	})
	return f
}

func (f *fixture) addStudent(name string, grade5A bool) service.StudentRecord {
	s := service.StudentRecord{
		ID:         uuid.New(),
		Name:       name,
		LastName:   "Putra",
		Enrollment: "NIS-" + name,
		GroupID:    f.group6B,
		GroupName:  "6B-1",
		GradeID:    f.grade6B,
		GradeName:  "6B",
	}
	if grade5A {
		s.GroupID, s.GroupName, s.GradeID, s.GradeName = f.group5A, "5A-1", f.grade5A, "5A"
	}
	f.dir.AddStudent(servicetest.Student{StudentRecord: s, SchoolID: f.school, CycleID: f.cycle, Active: true})
	return s
}

func (f *fixture) addConfig(mut ...func(*model.BillingConfigurationModel)) model.BillingConfigurationModel {
	m := model.BillingConfigurationModel{
		BillingConfigurationSchoolID:      f.school,
		BillingConfigurationSchoolCycleID: f.cycle,
		BillingConfigurationScope:         model.BillingScopeAllStudents,
		BillingConfigurationType:          "spp",
		BillingConfigurationAmount:        dec("500"),
		BillingConfigurationRecurrence:    model.RecurrenceMonthly,
		BillingConfigurationStartDate:     day("2024-01-01"),
		BillingConfigurationEndDate:       day("2024-03-15"),
		BillingConfigurationStatus:        model.ConfigurationRequired,
	}
	for _, fn := range mut {
		fn(&m)
	}
	return f.cfgs.PutConfiguration(m)
}

func (f *fixture) addRule(typ model.BillingRuleType, mut ...func(*model.BillingRuleModel)) model.BillingRuleModel {
	return f.cfgs.PutRule(ruleModel(f.school, typ, mut...))
}

func (f *fixture) req(cfg model.BillingConfigurationModel, asOf string) service.GenerateRequest {
	r := service.GenerateRequest{SchoolID: f.school, ConfigurationID: cfg.BillingConfigurationID}
	if asOf != "" {
		d := day(asOf)
		r.AsOf = &d
	}
	return r
}

func day(s string) time.Time {
	t, err := time.Parse(service.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func ruleModel(school uuid.UUID, typ model.BillingRuleType, mut ...func(*model.BillingRuleModel)) model.BillingRuleModel {
	m := model.BillingRuleModel{
		BillingRuleID:        uuid.New(),
		BillingRuleSchoolID:  school,
		BillingRuleName:      string(typ),
		BillingRuleType:      typ,
		BillingRuleStartDay:  0,
		BillingRuleEndDay:    10,
		BillingRuleValueType: model.BillingValueFixed,
		BillingRuleValue:     dec("10"),
		BillingRuleScope:     model.BillingRuleScopeAll,
		BillingRuleStatus:    model.BillingRuleActive,
	}
	if typ == model.BillingRuleCutoff {
		d := 30
		m.BillingRuleCutoffAfterDays = &d
	}
	for _, f := range mut {
		f(&m)
	}
	return m
}
