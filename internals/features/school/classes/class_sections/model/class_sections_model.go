package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClassSectionModel = rombel/group. Satu siswa ada di tepat satu section per term.
type ClassSectionModel struct {
	ClassSectionID       uuid.UUID `gorm:"type:uuid;primaryKey;column:class_section_id" json:"class_section_id"`
	ClassSectionSchoolID uuid.UUID `gorm:"type:uuid;not null;index;column:class_section_school_id" json:"class_section_school_id"`
	ClassSectionClassID  uuid.UUID `gorm:"type:uuid;not null;index:idx_sections_class;column:class_section_class_id" json:"class_section_class_id"`

	ClassSectionName string `gorm:"type:varchar(100);not null;column:class_section_name" json:"class_section_name"`
	ClassSectionSlug string `gorm:"type:varchar(160);column:class_section_slug" json:"class_section_slug"`

	ClassSectionCreatedAt time.Time      `gorm:"not null;autoCreateTime;column:class_section_created_at" json:"class_section_created_at"`
	ClassSectionUpdatedAt time.Time      `gorm:"not null;autoUpdateTime;column:class_section_updated_at" json:"class_section_updated_at"`
	ClassSectionDeletedAt gorm.DeletedAt `gorm:"column:class_section_deleted_at;index" json:"class_section_deleted_at,omitempty"`
}

func (ClassSectionModel) TableName() string { return "class_sections" }

func (m *ClassSectionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassSectionID == uuid.Nil {
		m.ClassSectionID = uuid.New()
	}
	return nil
}
