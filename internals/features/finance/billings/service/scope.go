package service

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"schoolku_billing/internals/features/finance/billings/model"
)

/* =========================================================
   Audience: closed variant per scope
========================================================= */

type Audience interface {
	Scope() model.BillingScope
	isAudience()
}

type AllStudents struct{}

type SpecificGroups struct{ GroupIDs []uuid.UUID }

type SpecificGrades struct{ GradeIDs []uuid.UUID }

type SpecificStudents struct{ StudentIDs []uuid.UUID }

func (AllStudents) Scope() model.BillingScope      { return model.BillingScopeAllStudents }
func (SpecificGroups) Scope() model.BillingScope   { return model.BillingScopeSpecificGroups }
func (SpecificGrades) Scope() model.BillingScope   { return model.BillingScopeSpecificGrades }
func (SpecificStudents) Scope() model.BillingScope { return model.BillingScopeSpecificStudents }

func (AllStudents) isAudience()      {}
func (SpecificGroups) isAudience()   {}
func (SpecificGrades) isAudience()   {}
func (SpecificStudents) isAudience() {}

// AudienceFromModel hanya membaca list target milik scope terpilih; list lain diabaikan.
func AudienceFromModel(m model.BillingConfigurationModel) (Audience, error) {
	switch m.BillingConfigurationScope {
	case model.BillingScopeAllStudents:
		return AllStudents{}, nil
	case model.BillingScopeSpecificGroups:
		ids, err := m.TargetGroupIDs()
		if err != nil {
			return nil, err
		}
		return SpecificGroups{GroupIDs: ids}, nil
	case model.BillingScopeSpecificGrades:
		ids, err := m.TargetGradeIDs()
		if err != nil {
			return nil, err
		}
		return SpecificGrades{GradeIDs: ids}, nil
	case model.BillingScopeSpecificStudents:
		ids, err := m.TargetStudentIDs()
		if err != nil {
			return nil, err
		}
		return SpecificStudents{StudentIDs: ids}, nil
	default:
		return nil, fmt.Errorf("unknown scope %q", m.BillingConfigurationScope)
	}
}

// TargetIDs list target dari audience (nil untuk all_students).
func TargetIDs(a Audience) []uuid.UUID {
	switch v := a.(type) {
	case SpecificGroups:
		return v.GroupIDs
	case SpecificGrades:
		return v.GradeIDs
	case SpecificStudents:
		return v.StudentIDs
	default:
		return nil
	}
}

/* =========================================================
   Scope Resolver
========================================================= */

// ResolveAudience mengubah audience jadi daftar siswa aktif di cycle, dedup & urut by id.
// Scope spesifik dengan list kosong menghasilkan set kosong tanpa error.
func ResolveAudience(ctx context.Context, dir Directory, schoolID, cycleID uuid.UUID, a Audience) ([]StudentRecord, error) {
	var (
		filter DirectoryFilter
		keep   func(StudentRecord) bool
	)

	switch v := a.(type) {
	case AllStudents:
		keep = func(StudentRecord) bool { return true }
	case SpecificGroups:
		if len(v.GroupIDs) == 0 {
			return nil, nil
		}
		set := idSet(v.GroupIDs)
		filter.GroupIDs = v.GroupIDs
		keep = func(s StudentRecord) bool { _, ok := set[s.GroupID]; return ok }
	case SpecificGrades:
		if len(v.GradeIDs) == 0 {
			return nil, nil
		}
		set := idSet(v.GradeIDs)
		filter.GradeIDs = v.GradeIDs
		keep = func(s StudentRecord) bool { _, ok := set[s.GradeID]; return ok }
	case SpecificStudents:
		if len(v.StudentIDs) == 0 {
			return nil, nil
		}
		set := idSet(v.StudentIDs)
		filter.StudentIDs = v.StudentIDs
		keep = func(s StudentRecord) bool { _, ok := set[s.ID]; return ok }
	default:
		return nil, fmt.Errorf("unsupported audience %T", a)
	}

	rows, err := dir.ListActiveStudents(ctx, schoolID, cycleID, filter)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	// directory boleh lebih longgar dari filter; saring ulang + dedup
	seen := make(map[uuid.UUID]struct{}, len(rows))
	out := make([]StudentRecord, 0, len(rows))
	for _, s := range rows {
		if !keep(s) {
			continue
		}
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out, nil
}

func idSet(ids []uuid.UUID) map[uuid.UUID]struct{} {
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
