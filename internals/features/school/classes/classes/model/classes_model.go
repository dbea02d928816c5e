package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClassModel = tingkat/grade (mis. "5A"); section (group) selalu menempel ke satu class.
type ClassModel struct {
	ClassID       uuid.UUID `json:"class_id"        gorm:"column:class_id;type:uuid;primaryKey"`
	ClassSchoolID uuid.UUID `json:"class_school_id" gorm:"column:class_school_id;type:uuid;not null;index"`

	ClassName string `json:"class_name" gorm:"column:class_name;type:varchar(120);not null"`
	ClassSlug string `json:"class_slug" gorm:"column:class_slug;type:varchar(160);not null"`

	ClassCreatedAt time.Time      `json:"class_created_at" gorm:"column:class_created_at;not null;autoCreateTime"`
	ClassUpdatedAt time.Time      `json:"class_updated_at" gorm:"column:class_updated_at;not null;autoUpdateTime"`
	ClassDeletedAt gorm.DeletedAt `json:"class_deleted_at,omitempty" gorm:"column:class_deleted_at;index"`
}

func (ClassModel) TableName() string { return "classes" }

func (m *ClassModel) BeforeCreate(tx *gorm.DB) error {
	if m.ClassID == uuid.Nil {
		m.ClassID = uuid.New()
	}
	if strings.TrimSpace(m.ClassSlug) == "" {
		m.ClassSlug = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(m.ClassName), " ", "-"))
	}
	return nil
}
