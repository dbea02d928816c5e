package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolku_billing/internals/features/finance/billings/service"
	termModel "schoolku_billing/internals/features/school/academics/academic_terms/model"
	studentModel "schoolku_billing/internals/features/school/students/model"
)

/* =========================================================
   DirectoryRepository: read model siswa per term
   school_students → class_sections (group) → classes (grade)
========================================================= */

type DirectoryRepository struct {
	DB *gorm.DB
}

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{DB: db}
}

var _ service.Directory = (*DirectoryRepository)(nil)

func (r *DirectoryRepository) FindCycle(ctx context.Context, schoolID, cycleID uuid.UUID) (service.Cycle, error) {
	var t termModel.AcademicTermModel
	err := r.DB.WithContext(ctx).
		Where("academic_term_id = ? AND academic_term_school_id = ?", cycleID, schoolID).
		Take(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return service.Cycle{}, service.ErrCycleNotFound
	}
	if err != nil {
		return service.Cycle{}, fmt.Errorf("find cycle: %w", err)
	}
	return service.Cycle{
		ID:        t.AcademicTermID,
		SchoolID:  t.AcademicTermSchoolID,
		Name:      t.DisplayName(),
		Status:    t.Status(),
		StartDate: service.DateOnly(t.AcademicTermStartDate),
		EndDate:   service.DateOnly(t.AcademicTermEndDate),
	}, nil
}

type studentRow struct {
	StudentID  uuid.UUID `gorm:"column:student_id"`
	Name       string    `gorm:"column:name"`
	LastName   string    `gorm:"column:last_name"`
	Enrollment string    `gorm:"column:enrollment"`
	GroupID    uuid.UUID `gorm:"column:group_id"`
	GroupName  string    `gorm:"column:group_name"`
	GradeID    uuid.UUID `gorm:"column:grade_id"`
	GradeName  string    `gorm:"column:grade_name"`
}

func (r *DirectoryRepository) ListActiveStudents(ctx context.Context, schoolID, cycleID uuid.UUID, f service.DirectoryFilter) ([]service.StudentRecord, error) {
	q := r.DB.WithContext(ctx).
		Table("school_students AS ss").
		Select(`
			ss.school_student_id        AS student_id,
			ss.school_student_name      AS name,
			ss.school_student_last_name AS last_name,
			ss.school_student_code      AS enrollment,
			cs.class_section_id         AS group_id,
			cs.class_section_name       AS group_name,
			c.class_id                  AS grade_id,
			c.class_name                AS grade_name`).
		Joins("JOIN class_sections cs ON cs.class_section_id = ss.school_student_class_section_id AND cs.class_section_deleted_at IS NULL").
		Joins("JOIN classes c ON c.class_id = cs.class_section_class_id AND c.class_deleted_at IS NULL").
		Where("ss.school_student_school_id = ? AND ss.school_student_academic_term_id = ?", schoolID, cycleID).
		Where("ss.school_student_status = ?", studentModel.SchoolStudentActive).
		Where("ss.school_student_deleted_at IS NULL")

	if len(f.GroupIDs) > 0 {
		q = q.Where("cs.class_section_id IN ?", f.GroupIDs)
	}
	if len(f.GradeIDs) > 0 {
		q = q.Where("c.class_id IN ?", f.GradeIDs)
	}
	if len(f.StudentIDs) > 0 {
		q = q.Where("ss.school_student_id IN ?", f.StudentIDs)
	}

	var rows []studentRow
	if err := q.Order("ss.school_student_id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}

	out := make([]service.StudentRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, service.StudentRecord{
			ID:         r.StudentID,
			Name:       r.Name,
			LastName:   r.LastName,
			Enrollment: r.Enrollment,
			GroupID:    r.GroupID,
			GroupName:  r.GroupName,
			GradeID:    r.GradeID,
			GradeName:  r.GradeName,
		})
	}
	return out, nil
}
