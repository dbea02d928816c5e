package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"schoolku_billing/internals/features/finance/billings/model"
)

// Tag anotasi hasil evaluasi rule.
const (
	TagDiscountApplied      = "discount_applied"
	TagDiscountBelowMinimum = "discount_below_minimum"
	TagSurchargeApplied     = "surcharge_applied"
	TagCutoffReached        = "cutoff_reached"
)

var hundred = decimal.NewFromInt(100)

/* =========================================================
   Rule: closed variant per tipe
========================================================= */

type Rule interface {
	RuleID() uuid.UUID
	Kind() model.BillingRuleType
	isRule()
}

// Window offset hari inklusif [StartDay, EndDay].
type Window struct {
	StartDay int
	EndDay   int
}

func (w Window) Contains(day int) bool { return day >= w.StartDay && day <= w.EndDay }

type Value struct {
	Type   model.BillingValueType
	Amount decimal.Decimal
}

// Of: fixed apa adanya, percentage dari base (2 desimal).
func (v Value) Of(base decimal.Decimal) decimal.Decimal {
	if v.Type == model.BillingValuePercentage {
		return base.Mul(v.Amount).Div(hundred).Round(2)
	}
	return v.Amount
}

// LateFeeRule aktif saat (today - due) masuk window.
type LateFeeRule struct {
	ID     uuid.UUID
	Name   string
	Window Window
	Value  Value
}

// EarlyDiscountRule aktif saat (period start - today) masuk window.
type EarlyDiscountRule struct {
	ID      uuid.UUID
	Name    string
	Window  Window
	Value   Value
	Minimum *decimal.Decimal
}

// CutoffRule: belum bayar >= AfterDays sejak due → delinquent.
type CutoffRule struct {
	ID        uuid.UUID
	Name      string
	AfterDays int
}

func (r LateFeeRule) RuleID() uuid.UUID       { return r.ID }
func (r EarlyDiscountRule) RuleID() uuid.UUID { return r.ID }
func (r CutoffRule) RuleID() uuid.UUID        { return r.ID }

func (LateFeeRule) Kind() model.BillingRuleType       { return model.BillingRuleLateFee }
func (EarlyDiscountRule) Kind() model.BillingRuleType { return model.BillingRuleEarlyDiscount }
func (CutoffRule) Kind() model.BillingRuleType        { return model.BillingRuleCutoff }

func (LateFeeRule) isRule()       {}
func (EarlyDiscountRule) isRule() {}
func (CutoffRule) isRule()        {}

// RuleFromModel validasi + konversi ke variant. Field milik tipe lain diabaikan.
func RuleFromModel(m model.BillingRuleModel) (Rule, error) {
	ce := &ConfigError{}
	field := func(name string) string { return fmt.Sprintf("rules[%s].%s", m.BillingRuleID, name) }

	valueOf := func() Value {
		v := Value{Type: m.BillingRuleValueType, Amount: m.BillingRuleValue}
		switch v.Type {
		case model.BillingValueFixed, model.BillingValuePercentage:
		default:
			ce.add(field("value_type"), "unknown value type %q", v.Type)
		}
		if v.Amount.IsNegative() {
			ce.add(field("value"), "must be >= 0")
		}
		if v.Type == model.BillingValuePercentage && v.Amount.GreaterThan(hundred) {
			ce.add(field("value"), "percentage must be within [0,100]")
		}
		return v
	}
	window := func() Window {
		w := Window{StartDay: m.BillingRuleStartDay, EndDay: m.BillingRuleEndDay}
		if w.StartDay > w.EndDay {
			ce.add(field("end_day"), "must be >= start_day")
		}
		return w
	}

	var r Rule
	switch m.BillingRuleType {
	case model.BillingRuleLateFee:
		r = LateFeeRule{ID: m.BillingRuleID, Name: m.BillingRuleName, Window: window(), Value: valueOf()}
	case model.BillingRuleEarlyDiscount:
		d := EarlyDiscountRule{ID: m.BillingRuleID, Name: m.BillingRuleName, Window: window(), Value: valueOf()}
		if m.BillingRuleMinimumAmount.Valid {
			minimum := m.BillingRuleMinimumAmount.Decimal
			if minimum.IsNegative() {
				ce.add(field("minimum_amount"), "must be >= 0")
			}
			d.Minimum = &minimum
		}
		r = d
	case model.BillingRuleCutoff:
		if m.BillingRuleCutoffAfterDays == nil {
			ce.add(field("cutoff_after_days"), "required for cutoff rule")
			break
		}
		if *m.BillingRuleCutoffAfterDays < 0 {
			ce.add(field("cutoff_after_days"), "must be >= 0")
		}
		r = CutoffRule{ID: m.BillingRuleID, Name: m.BillingRuleName, AfterDays: *m.BillingRuleCutoffAfterDays}
	default:
		ce.add(field("type"), "unknown rule type %q", m.BillingRuleType)
	}

	if err := ce.orNil(); err != nil {
		return nil, err
	}
	return r, nil
}

// BindRules menyusun rule aktif sesuai urutan attach.
// Rule hilang / milik sekolah lain / scope tidak cocok → ConfigError. Rule inactive dilewati.
func BindRules(cfg Configuration, found []model.BillingRuleModel) ([]Rule, error) {
	byID := make(map[uuid.UUID]model.BillingRuleModel, len(found))
	for _, r := range found {
		byID[r.BillingRuleID] = r
	}

	ce := &ConfigError{ConfigurationID: cfg.ID}
	out := make([]Rule, 0, len(cfg.RuleIDs))
	seen := make(map[uuid.UUID]struct{}, len(cfg.RuleIDs))
	for i, id := range cfg.RuleIDs {
		f := fmt.Sprintf("rule_ids[%d]", i)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		m, ok := byID[id]
		switch {
		case !ok:
			ce.add(f, "rule %s not found", id)
			continue
		case m.BillingRuleSchoolID != cfg.SchoolID:
			ce.add(f, "rule %s belongs to another school", id)
			continue
		case !m.UsableBy(cfg.ChargeType):
			ce.add(f, "rule %s is not usable for charge type %q", id, cfg.ChargeType)
			continue
		case m.BillingRuleStatus == model.BillingRuleInactive:
			continue
		}

		r, err := RuleFromModel(m)
		if err != nil {
			if inner, ok := AsConfigError(err); ok {
				ce.Fields = append(ce.Fields, inner.Fields...)
				continue
			}
			return nil, err
		}
		out = append(out, r)
	}

	if err := ce.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}

/* =========================================================
   Rule Evaluator
========================================================= */

type AppliedRule struct {
	RuleID uuid.UUID             `json:"rule_id"`
	Type   model.BillingRuleType `json:"type"`
	Amount decimal.Decimal       `json:"amount"`
}

type Evaluation struct {
	Base       decimal.Decimal
	Total      decimal.Decimal
	Discount   decimal.Decimal
	Surcharge  decimal.Decimal
	Tags       []string
	Delinquent bool
	Applied    []AppliedRule
}

func (e *Evaluation) tag(t string) {
	for _, x := range e.Tags {
		if x == t {
			return
		}
	}
	e.Tags = append(e.Tags, t)
}

// Evaluator: today = tanggal kalender evaluasi (zona sekolah, sudah dinormalisasi).
type Evaluator struct {
	rules []Rule
	today time.Time
}

func NewEvaluator(rules []Rule, today time.Time) *Evaluator {
	return &Evaluator{rules: rules, today: DateOnly(today)}
}

func (ev *Evaluator) Today() time.Time { return ev.today }

// Evaluate: diskon dulu (floor 0), lalu surcharge, lalu cutoff (hanya anotasi).
// Rule sejenis diterapkan aditif sesuai urutan attach.
func (ev *Evaluator) Evaluate(p Period, base decimal.Decimal) Evaluation {
	out := Evaluation{Base: base, Total: base}

	daysBeforeStart := DaysBetween(ev.today, p.Start)
	daysSinceDue := DaysBetween(p.DueDate, ev.today)

	for _, r := range ev.rules {
		d, ok := r.(EarlyDiscountRule)
		if !ok || !d.Window.Contains(daysBeforeStart) {
			continue
		}
		disc := d.Value.Of(base)
		if d.Minimum != nil && disc.Abs().LessThan(*d.Minimum) {
			out.tag(TagDiscountBelowMinimum)
			continue
		}
		// tidak boleh tembus di bawah nol
		if disc.GreaterThan(out.Total) {
			disc = out.Total
		}
		out.Total = out.Total.Sub(disc)
		out.Discount = out.Discount.Add(disc)
		out.Applied = append(out.Applied, AppliedRule{RuleID: d.ID, Type: d.Kind(), Amount: disc.Neg()})
		out.tag(TagDiscountApplied)
	}

	for _, r := range ev.rules {
		l, ok := r.(LateFeeRule)
		if !ok || !l.Window.Contains(daysSinceDue) {
			continue
		}
		fee := l.Value.Of(base)
		out.Total = out.Total.Add(fee)
		out.Surcharge = out.Surcharge.Add(fee)
		out.Applied = append(out.Applied, AppliedRule{RuleID: l.ID, Type: l.Kind(), Amount: fee})
		out.tag(TagSurchargeApplied)
	}

	for _, r := range ev.rules {
		c, ok := r.(CutoffRule)
		if !ok || daysSinceDue < c.AfterDays {
			continue
		}
		out.Delinquent = true
		out.tag(TagCutoffReached)
	}

	return out
}
