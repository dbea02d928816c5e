package service

import (
	"fmt"
	"math"
	"time"

	"schoolku_billing/internals/features/finance/billings/model"
)

// batas atas jumlah periode per konfigurasi (weekly 10 tahun ~ 520)
const maxPeriods = 600

// Period hasil ekspansi recurrence; tidak pernah disimpan sendiri.
type Period struct {
	Index   int       `json:"index"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"` // inklusif
	DueDate time.Time `json:"due_date"`
	Partial bool      `json:"partial"`
}

type step struct {
	days   int
	months int
}

var recurrenceSteps = map[model.Recurrence]step{
	model.RecurrenceWeekly:     {days: 7},
	model.RecurrenceBiweekly:   {days: 14},
	model.RecurrenceMonthly:    {months: 1},
	model.RecurrenceBimonthly:  {months: 2},
	model.RecurrenceQuarterly:  {months: 3},
	model.RecurrenceSemiannual: {months: 6},
	model.RecurrenceAnnual:     {months: 12},
}

func ValidRecurrence(r model.Recurrence) bool {
	if r == model.RecurrenceSingle {
		return true
	}
	_, ok := recurrenceSteps[r]
	return ok
}

// ExpandPeriods: pure function dari (recurrence, start, end).
// Due date = awal periode; periode terakhir yang tidak penuh tetap ikut dengan End di-clamp ke end.
func ExpandPeriods(rec model.Recurrence, start, end time.Time) ([]Period, error) {
	start, end = DateOnly(start), DateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("end date %s before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}

	if rec == model.RecurrenceSingle {
		return []Period{{Index: 0, Start: start, End: end, DueDate: start}}, nil
	}

	st, ok := recurrenceSteps[rec]
	if !ok {
		return nil, fmt.Errorf("unknown recurrence %q", rec)
	}

	var out []Period
	for i := 0; ; i++ {
		ps := st.nth(start, i)
		if ps.After(end) {
			break
		}
		if i >= maxPeriods {
			return nil, fmt.Errorf("recurrence %q yields more than %d periods", rec, maxPeriods)
		}
		pe := st.nth(start, i+1).AddDate(0, 0, -1)
		partial := false
		if pe.After(end) {
			pe = end
			partial = true
		}
		out = append(out, Period{Index: i, Start: ps, End: pe, DueDate: ps, Partial: partial})
	}
	return out, nil
}

// nth dihitung dari start asli supaya tanggal 31 tidak "bergeser" ke 28 selamanya.
func (s step) nth(start time.Time, n int) time.Time {
	if s.days > 0 {
		return start.AddDate(0, 0, s.days*n)
	}
	return addMonthsClamped(start, s.months*n)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(y int, m time.Month) int {
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

/* =========================================================
   Date helpers (tanggal kalender, UTC midnight)
========================================================= */

const DateLayout = "2006-01-02"

func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateIn tanggal kalender t menurut zona sekolah.
func DateIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOnly(t.In(loc))
}

// DaysBetween b - a dalam hari kalender.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(DateOnly(b).Sub(DateOnly(a)).Hours() / 24))
}
