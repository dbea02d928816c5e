// Package servicetest: implementasi in-memory port service untuk test; aman dipakai concurrent.
package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/service"
)

/* =========================================================
   Directory
========================================================= */

type Student struct {
	service.StudentRecord
	SchoolID uuid.UUID
	CycleID  uuid.UUID
	Active   bool
}

type Directory struct {
	mu       sync.RWMutex
	cycles   map[uuid.UUID]service.Cycle
	students []Student
}

func NewDirectory() *Directory {
	return &Directory{cycles: make(map[uuid.UUID]service.Cycle)}
}

func (d *Directory) AddCycle(c service.Cycle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cycles[c.ID] = c
}

func (d *Directory) AddStudent(s Student) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.students = append(d.students, s)
}

func (d *Directory) FindCycle(_ context.Context, schoolID, cycleID uuid.UUID) (service.Cycle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.cycles[cycleID]
	if !ok || c.SchoolID != schoolID {
		return service.Cycle{}, service.ErrCycleNotFound
	}
	return c, nil
}

func (d *Directory) ListActiveStudents(_ context.Context, schoolID, cycleID uuid.UUID, f service.DirectoryFilter) ([]service.StudentRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	groups, grades, students := idSet(f.GroupIDs), idSet(f.GradeIDs), idSet(f.StudentIDs)
	var out []service.StudentRecord
	for _, s := range d.students {
		if !s.Active || s.SchoolID != schoolID || s.CycleID != cycleID {
			continue
		}
		if len(groups) > 0 {
			if _, ok := groups[s.GroupID]; !ok {
				continue
			}
		}
		if len(grades) > 0 {
			if _, ok := grades[s.GradeID]; !ok {
				continue
			}
		}
		if len(students) > 0 {
			if _, ok := students[s.ID]; !ok {
				continue
			}
		}
		out = append(out, s.StudentRecord)
	}
	return out, nil
}

/* =========================================================
   ConfigSource
========================================================= */

type ConfigSource struct {
	mu      sync.RWMutex
	configs map[uuid.UUID]model.BillingConfigurationModel
	rules   map[uuid.UUID]model.BillingRuleModel
}

func NewConfigSource() *ConfigSource {
	return &ConfigSource{
		configs: make(map[uuid.UUID]model.BillingConfigurationModel),
		rules:   make(map[uuid.UUID]model.BillingRuleModel),
	}
}

func (s *ConfigSource) PutConfiguration(m model.BillingConfigurationModel) model.BillingConfigurationModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.BillingConfigurationID == uuid.Nil {
		m.BillingConfigurationID = uuid.New()
	}
	s.configs[m.BillingConfigurationID] = m
	return m
}

func (s *ConfigSource) PutRule(m model.BillingRuleModel) model.BillingRuleModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.BillingRuleID == uuid.Nil {
		m.BillingRuleID = uuid.New()
	}
	s.rules[m.BillingRuleID] = m
	return m
}

func (s *ConfigSource) GetConfiguration(_ context.Context, schoolID, id uuid.UUID) (model.BillingConfigurationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.configs[id]
	if !ok || m.BillingConfigurationSchoolID != schoolID {
		return model.BillingConfigurationModel{}, service.ErrConfigurationNotFound
	}
	return m, nil
}

func (s *ConfigSource) GetRules(_ context.Context, ids []uuid.UUID) ([]model.BillingRuleModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.BillingRuleModel, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.rules[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *ConfigSource) ListScheduled(_ context.Context, day time.Time) ([]model.BillingConfigurationModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = service.DateOnly(day)
	var out []model.BillingConfigurationModel
	for _, m := range s.configs {
		if m.BillingConfigurationStatus != model.ConfigurationRequired {
			continue
		}
		if day.Before(service.DateOnly(m.BillingConfigurationStartDate)) || day.After(service.DateOnly(m.BillingConfigurationEndDate)) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].BillingConfigurationID.String() < out[j].BillingConfigurationID.String()
	})
	return out, nil
}

/* =========================================================
   Store (PaymentStore)
   InTx memegang lock store selama fn; tulisan di-stage dan
   baru di-commit kalau fn sukses.
========================================================= */

type billKey struct {
	student uuid.UUID
	config  uuid.UUID
	due     string
}

func keyOf(b *model.StudentBillModel) billKey {
	return billKey{student: b.StudentBillStudentID, config: b.StudentBillConfigurationID, due: service.DateOnly(b.StudentBillDueDate).Format(service.DateLayout)}
}

type memBalance struct {
	schoolID uuid.UUID
	amount   decimal.Decimal
}

type Store struct {
	mu       sync.Mutex
	bills    map[billKey]model.StudentBillModel
	balances map[uuid.UUID]memBalance

	// FailFor: injeksi error per siswa (test partial failure)
	FailFor map[uuid.UUID]error
}

func NewStore() *Store {
	return &Store{
		bills:    make(map[billKey]model.StudentBillModel),
		balances: make(map[uuid.UUID]memBalance),
		FailFor:  make(map[uuid.UUID]error),
	}
}

func (s *Store) InTx(ctx context.Context, fn func(tx service.UnitTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		bills:    make(map[billKey]model.StudentBillModel),
		balances: make(map[uuid.UUID]memBalance),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for k, b := range tx.bills {
		s.bills[k] = b
	}
	for k, b := range tx.balances {
		s.balances[k] = b
	}
	return nil
}

func (s *Store) Balance(_ context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[studentID]
	if !ok || b.schoolID != schoolID {
		return decimal.Zero, nil
	}
	return b.amount, nil
}

// Bills snapshot semua record (urut due date lalu student).
func (s *Store) Bills() []model.StudentBillModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StudentBillModel, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StudentBillDueDate.Equal(out[j].StudentBillDueDate) {
			return out[i].StudentBillDueDate.Before(out[j].StudentBillDueDate)
		}
		return out[i].StudentBillStudentID.String() < out[j].StudentBillStudentID.String()
	})
	return out
}

// MarkPaid mensimulasikan proses koleksi di luar engine.
func (s *Store) MarkPaid(studentID, configurationID uuid.UUID, due time.Time, paidAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := billKey{student: studentID, config: configurationID, due: service.DateOnly(due).Format(service.DateLayout)}
	b, ok := s.bills[k]
	if !ok {
		return fmt.Errorf("bill not found")
	}
	b.StudentBillStatus = model.StudentBillStatusPaid
	b.StudentBillPaidAt = &paidAt
	s.bills[k] = b
	return nil
}

type memTx struct {
	store    *Store
	bills    map[billKey]model.StudentBillModel
	balances map[uuid.UUID]memBalance
}

func (t *memTx) lookup(k billKey) (model.StudentBillModel, bool) {
	if b, ok := t.bills[k]; ok {
		return b, true
	}
	b, ok := t.store.bills[k]
	return b, ok
}

func (t *memTx) InsertOrFetch(_ context.Context, bill *model.StudentBillModel) (bool, error) {
	if err, ok := t.store.FailFor[bill.StudentBillStudentID]; ok && err != nil {
		return false, err
	}
	k := keyOf(bill)
	if existing, ok := t.lookup(k); ok {
		*bill = existing
		return false, nil
	}
	if bill.StudentBillID == uuid.Nil {
		bill.StudentBillID = uuid.New()
	}
	now := time.Now()
	bill.StudentBillCreatedAt, bill.StudentBillUpdatedAt = now, now
	t.bills[k] = *bill
	return true, nil
}

func (t *memTx) SaveBill(_ context.Context, bill *model.StudentBillModel) error {
	k := keyOf(bill)
	if _, ok := t.lookup(k); !ok {
		return fmt.Errorf("bill %s not found", bill.StudentBillID)
	}
	bill.StudentBillUpdatedAt = time.Now()
	t.bills[k] = *bill
	return nil
}

func (t *memTx) current(studentID uuid.UUID) (memBalance, bool) {
	if b, ok := t.balances[studentID]; ok {
		return b, true
	}
	b, ok := t.store.balances[studentID]
	return b, ok
}

func (t *memTx) IncrementBalance(_ context.Context, schoolID, studentID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	b, ok := t.current(studentID)
	if !ok {
		b = memBalance{schoolID: schoolID, amount: decimal.Zero}
	}
	b.amount = b.amount.Add(delta)
	t.balances[studentID] = b
	return b.amount, nil
}

func (t *memTx) Balance(_ context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	b, ok := t.current(studentID)
	if !ok || b.schoolID != schoolID {
		return decimal.Zero, nil
	}
	return b.amount, nil
}

func idSet(in []uuid.UUID) map[uuid.UUID]struct{} {
	out := make(map[uuid.UUID]struct{}, len(in))
	for _, id := range in {
		out[id] = struct{}{}
	}
	return out
}

var (
	_ service.Directory    = (*Directory)(nil)
	_ service.ConfigSource = (*ConfigSource)(nil)
	_ service.PaymentStore = (*Store)(nil)
)
