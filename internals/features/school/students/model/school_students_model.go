// file: internals/features/school/students/model/school_students_model.go
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// =======================================
// ENUM & VALIDATOR
// =======================================

type SchoolStudentStatus string

const (
	SchoolStudentActive   SchoolStudentStatus = "active"
	SchoolStudentInactive SchoolStudentStatus = "inactive"
	SchoolStudentAlumni   SchoolStudentStatus = "alumni"
)

var validSchoolStudentStatus = map[SchoolStudentStatus]struct{}{
	SchoolStudentActive:   {},
	SchoolStudentInactive: {},
	SchoolStudentAlumni:   {},
}

// =======================================
// Model: school_students
// Enrolment per term: (student, academic_term, class_section)
// =======================================

type SchoolStudentModel struct {
	SchoolStudentID             uuid.UUID `gorm:"type:uuid;primaryKey;column:school_student_id" json:"school_student_id"`
	SchoolStudentSchoolID       uuid.UUID `gorm:"type:uuid;not null;index:idx_school_student_term,priority:1;column:school_student_school_id" json:"school_student_school_id"`
	SchoolStudentAcademicTermID uuid.UUID `gorm:"type:uuid;not null;index:idx_school_student_term,priority:2;column:school_student_academic_term_id" json:"school_student_academic_term_id"`
	SchoolStudentClassSectionID uuid.UUID `gorm:"type:uuid;not null;index;column:school_student_class_section_id" json:"school_student_class_section_id"`

	SchoolStudentName     string `gorm:"type:varchar(80);not null;column:school_student_name" json:"school_student_name"`
	SchoolStudentLastName string `gorm:"type:varchar(80);column:school_student_last_name" json:"school_student_last_name"`
	// NIS / kode enrolment
	SchoolStudentCode string `gorm:"type:varchar(40);index;column:school_student_code" json:"school_student_code"`

	SchoolStudentStatus SchoolStudentStatus `gorm:"type:varchar(20);not null;default:'active';column:school_student_status" json:"school_student_status"`

	SchoolStudentCreatedAt time.Time      `gorm:"not null;autoCreateTime;column:school_student_created_at" json:"school_student_created_at"`
	SchoolStudentUpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:school_student_updated_at" json:"school_student_updated_at"`
	SchoolStudentDeletedAt gorm.DeletedAt `gorm:"column:school_student_deleted_at;index" json:"school_student_deleted_at,omitempty"`
}

func (SchoolStudentModel) TableName() string { return "school_students" }

func (m *SchoolStudentModel) BeforeSave(tx *gorm.DB) error {
	if m.SchoolStudentID == uuid.Nil {
		m.SchoolStudentID = uuid.New()
	}
	if m.SchoolStudentStatus == "" {
		m.SchoolStudentStatus = SchoolStudentActive
	}
	if _, ok := validSchoolStudentStatus[m.SchoolStudentStatus]; !ok {
		return errors.New("invalid school_student_status")
	}
	m.SchoolStudentName = strings.TrimSpace(m.SchoolStudentName)
	m.SchoolStudentLastName = strings.TrimSpace(m.SchoolStudentLastName)
	return nil
}
