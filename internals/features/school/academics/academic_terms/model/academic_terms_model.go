// file: internals/features/school/academics/academic_terms/model/academic_terms_model.go
package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AcademicTermModel = school cycle (tahun ajaran/semester) yang jadi batas enrolment & billing.
type AcademicTermModel struct {
	// ============ PK & Tenant ============
	AcademicTermID       uuid.UUID `gorm:"type:uuid;primaryKey;column:academic_term_id" json:"academic_term_id"`
	AcademicTermSchoolID uuid.UUID `gorm:"type:uuid;not null;index;column:academic_term_school_id" json:"academic_term_school_id"`

	// ============ Identitas ============
	// Example academic_year: "2026/2027"
	AcademicTermAcademicYear string `gorm:"type:text;not null;column:academic_term_academic_year" json:"academic_term_academic_year"`
	// Example name: "Ganjil" | "Genap" | "Pendek"
	AcademicTermName string `gorm:"type:text;not null;column:academic_term_name" json:"academic_term_name"`

	AcademicTermStartDate time.Time `gorm:"type:date;not null;column:academic_term_start_date" json:"academic_term_start_date"`
	AcademicTermEndDate   time.Time `gorm:"type:date;not null;column:academic_term_end_date" json:"academic_term_end_date"`
	AcademicTermIsActive  bool      `gorm:"not null;default:true;column:academic_term_is_active" json:"academic_term_is_active"`

	// ============ Audit / Soft delete ============
	AcademicTermCreatedAt time.Time      `gorm:"not null;autoCreateTime;column:academic_term_created_at" json:"academic_term_created_at"`
	AcademicTermUpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:academic_term_updated_at" json:"academic_term_updated_at"`
	AcademicTermDeletedAt gorm.DeletedAt `gorm:"column:academic_term_deleted_at;index" json:"academic_term_deleted_at,omitempty"`
}

func (AcademicTermModel) TableName() string { return "academic_terms" }

// DisplayName "2026/2027 Ganjil".
func (m AcademicTermModel) DisplayName() string {
	return strings.TrimSpace(m.AcademicTermAcademicYear + " " + m.AcademicTermName)
}

// Status label untuk echo konfigurasi di hasil billing.
func (m AcademicTermModel) Status() string {
	if m.AcademicTermIsActive {
		return "active"
	}
	return "inactive"
}

// ============ Hooks: validation & light normalization ============
func (m *AcademicTermModel) BeforeSave(tx *gorm.DB) error {
	if m.AcademicTermID == uuid.Nil {
		m.AcademicTermID = uuid.New()
	}
	// Mirror CHECK: end >= start
	if m.AcademicTermEndDate.Before(m.AcademicTermStartDate) {
		return errors.New("academic_term_end_date must be >= academic_term_start_date")
	}
	m.AcademicTermAcademicYear = strings.TrimSpace(m.AcademicTermAcademicYear)
	m.AcademicTermName = strings.TrimSpace(m.AcademicTermName)
	return nil
}
