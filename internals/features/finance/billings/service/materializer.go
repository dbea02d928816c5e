package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schoolku_billing/internals/features/finance/billings/model"
)

type OutcomeKind string

const (
	OutcomeCreated   OutcomeKind = "created"   // record baru
	OutcomeExisting  OutcomeKind = "existing"  // unpaid, amount tetap (frozen)
	OutcomeRefreshed OutcomeKind = "refreshed" // unpaid, di-reprice atas permintaan
	OutcomeCompleted OutcomeKind = "completed" // sudah lunas
	OutcomeSkipped   OutcomeKind = "skipped"   // canceled
	OutcomeFailed    OutcomeKind = "failed"
)

// Plan = satu periode + hasil evaluasi rule-nya.
type Plan struct {
	Period     Period
	Evaluation Evaluation
}

type UnitOutcome struct {
	Student          StudentRecord
	Period           Period
	Kind             OutcomeKind
	Bill             model.StudentBillModel
	Balance          decimal.Decimal
	BalanceUpdated   bool
	MarkedDelinquent bool
	Err              error
}

type MaterializeOptions struct {
	RefreshUnpaid bool
	Now           time.Time
}

/* =========================================================
   Materializer
========================================================= */

type Materializer struct {
	store   PaymentStore
	workers int
	locks   *keyedMutex
	log     *zap.Logger
}

func NewMaterializer(store PaymentStore, workers int, log *zap.Logger) *Materializer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Materializer{store: store, workers: workers, locks: newKeyedMutex(), log: log}
}

// Materialize menjalankan unit (siswa × periode) di worker pool terbatas.
// Gagal di satu unit tidak menghentikan batch; hasil berurutan siswa lalu periode.
func (m *Materializer) Materialize(ctx context.Context, cfg Configuration, students []StudentRecord, plans []Plan, opt MaterializeOptions) []UnitOutcome {
	out := make([]UnitOutcome, len(students)*len(plans))
	if len(out) == 0 {
		return out
	}
	if opt.Now.IsZero() {
		opt.Now = time.Now()
	}

	var g errgroup.Group
	g.SetLimit(m.workers)

	for si := range students {
		for pi := range plans {
			idx := si*len(plans) + pi
			st, plan := students[si], plans[pi]
			g.Go(func() error {
				out[idx] = m.unit(ctx, cfg, st, plan, opt)
				return nil
			})
		}
	}
	_ = g.Wait()
	return out
}

func (m *Materializer) unit(ctx context.Context, cfg Configuration, st StudentRecord, plan Plan, opt MaterializeOptions) (res UnitOutcome) {
	res = UnitOutcome{Student: st, Period: plan.Period}

	defer func() {
		if r := recover(); r != nil {
			res.Kind = OutcomeFailed
			res.Err = fmt.Errorf("panic: %v", r)
		}
		if res.Err != nil {
			res.Kind = OutcomeFailed
			m.log.Warn("billing unit failed",
				zap.String("configuration_id", cfg.ID.String()),
				zap.String("student_id", st.ID.String()),
				zap.String("due_date", plan.Period.DueDate.Format(DateLayout)),
				zap.Error(res.Err),
			)
		}
	}()

	// satu siswa satu unit pada satu waktu (read-or-create + saldo)
	unlock := m.locks.Lock(st.ID)
	defer unlock()

	err := m.store.InTx(ctx, func(tx UnitTx) error {
		bill := newBill(cfg, st, plan, opt.Now)
		created, err := tx.InsertOrFetch(ctx, &bill)
		if err != nil {
			return fmt.Errorf("insert or fetch bill: %w", err)
		}

		if created {
			res.Kind = OutcomeCreated
			res.Bill = bill
			return m.applyDelta(ctx, tx, cfg.SchoolID, st.ID, bill.StudentBillTotalAmount, &res)
		}

		switch bill.StudentBillStatus {
		case model.StudentBillStatusPaid:
			res.Kind = OutcomeCompleted
			res.Bill = bill
			return nil
		case model.StudentBillStatusCanceled:
			res.Kind = OutcomeSkipped
			res.Bill = bill
			return nil
		}

		// unpaid: amount frozen kecuali diminta refresh
		res.Kind = OutcomeExisting
		changed := false
		diff := decimal.Zero
		if opt.RefreshUnpaid && !bill.StudentBillTotalAmount.Equal(plan.Evaluation.Total) {
			diff = plan.Evaluation.Total.Sub(bill.StudentBillTotalAmount)
			bill.StudentBillBaseAmount = plan.Evaluation.Base
			bill.StudentBillTotalAmount = plan.Evaluation.Total
			bill.StudentBillBalanceDelta = bill.StudentBillBalanceDelta.Add(diff)
			// status delinquent sticky, tag cutoff ikut dipertahankan
			var keep []string
			if bill.StudentBillDelinquent {
				keep = []string{TagCutoffReached}
			}
			bill.StudentBillTags = model.TagsJSON(mergeTags(keep, plan.Evaluation.Tags))
			res.Kind = OutcomeRefreshed
			changed = true
		}
		if plan.Evaluation.Delinquent && !bill.StudentBillDelinquent {
			now := opt.Now
			bill.StudentBillDelinquent = true
			bill.StudentBillDelinquentAt = &now
			bill.StudentBillTags = model.TagsJSON(mergeTags(bill.TagList(), []string{TagCutoffReached}))
			res.MarkedDelinquent = true
			changed = true
		}
		if changed {
			if err := tx.SaveBill(ctx, &bill); err != nil {
				return fmt.Errorf("save bill: %w", err)
			}
		}
		res.Bill = bill
		return m.applyDelta(ctx, tx, cfg.SchoolID, st.ID, diff, &res)
	})
	if err != nil {
		res.Err = err
	}
	return res
}

// applyDelta: delta nol tidak menyentuh saldo (BalanceUpdated=false), saldo tetap dibaca.
func (m *Materializer) applyDelta(ctx context.Context, tx UnitTx, schoolID, studentID uuid.UUID, delta decimal.Decimal, res *UnitOutcome) error {
	if delta.IsZero() {
		bal, err := tx.Balance(ctx, schoolID, studentID)
		if err != nil {
			return fmt.Errorf("read balance: %w", err)
		}
		res.Balance = bal
		return nil
	}
	bal, err := tx.IncrementBalance(ctx, schoolID, studentID, delta)
	if err != nil {
		return fmt.Errorf("increment balance: %w", err)
	}
	res.Balance = bal
	res.BalanceUpdated = true
	return nil
}

func newBill(cfg Configuration, st StudentRecord, plan Plan, now time.Time) model.StudentBillModel {
	ev := plan.Evaluation
	b := model.StudentBillModel{
		StudentBillSchoolID:        cfg.SchoolID,
		StudentBillStudentID:       st.ID,
		StudentBillConfigurationID: cfg.ID,
		StudentBillDueDate:         plan.Period.DueDate,
		StudentBillPeriodIndex:     plan.Period.Index,
		StudentBillPeriodStart:     plan.Period.Start,
		StudentBillPeriodEnd:       plan.Period.End,
		StudentBillChargeType:      cfg.ChargeType,
		StudentBillBaseAmount:      ev.Base,
		StudentBillTotalAmount:     ev.Total,
		StudentBillBalanceDelta:    ev.Total,
		StudentBillStatus:          model.StudentBillStatusUnpaid,
		StudentBillTags:            model.TagsJSON(ev.Tags),
		StudentBillAcademicTermID:  cfg.CycleID,
	}
	if ev.Delinquent {
		t := now
		b.StudentBillDelinquent = true
		b.StudentBillDelinquentAt = &t
	}
	if st.GroupID != uuid.Nil {
		gid, name := st.GroupID, st.GroupName
		b.StudentBillClassSectionID = &gid
		b.StudentBillClassSectionNameSnapshot = &name
	}
	if st.GradeID != uuid.Nil {
		cid, name := st.GradeID, st.GradeName
		b.StudentBillClassID = &cid
		b.StudentBillClassNameSnapshot = &name
	}
	return b
}

func mergeTags(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := map[string]struct{}{}
	for _, t := range append(append([]string{}, base...), extra...) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

/* =========================================================
   keyedMutex: lock per siswa, entry dibuang saat tidak dipakai
========================================================= */

type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uuid.UUID]*refLock)}
}

func (k *keyedMutex) Lock(key uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
