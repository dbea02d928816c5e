package billing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"schoolku_billing/internals/features/finance/billings/dto"
	billingModel "schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/repository"
	"schoolku_billing/internals/features/finance/billings/service"
	termModel "schoolku_billing/internals/features/school/academics/academic_terms/model"
	sectionModel "schoolku_billing/internals/features/school/classes/class_sections/model"
	classModel "schoolku_billing/internals/features/school/classes/classes/model"
	studentModel "schoolku_billing/internals/features/school/students/model"
	helper "schoolku_billing/internals/helpers"
)

// Struktur file data_billing_demo.json
type DemoSeed struct {
	SchoolID       uuid.UUID    `json:"school_id"`
	Term           TermSeed     `json:"term"`
	Classes        []ClassSeed  `json:"classes"`
	Rules          []RuleSeed   `json:"rules"`
	Configurations []ConfigSeed `json:"configurations"`
}

type TermSeed struct {
	AcademicYear string `json:"academic_year"`
	Name         string `json:"name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

type ClassSeed struct {
	Name     string        `json:"name"`
	Sections []SectionSeed `json:"sections"`
}

type SectionSeed struct {
	Name     string        `json:"name"`
	Students []StudentSeed `json:"students"`
}

type StudentSeed struct {
	Name     string `json:"name"`
	LastName string `json:"last_name"`
	Code     string `json:"code"`
}

type RuleSeed struct {
	Key string `json:"key"`
	dto.BillingRuleCreateDTO
}

// ConfigSeed: cycle diisi dari term di atas, rule direferensikan lewat key.
type ConfigSeed struct {
	RuleKeys []string `json:"rule_keys"`
	dto.BillingConfigurationCreateDTO
}

// Report jumlah baris yang benar-benar dibuat (yang sudah ada dilewati).
type Report struct {
	TermID         uuid.UUID
	Classes        int
	Sections       int
	Students       int
	Rules          int
	Configurations int
}

func SeedBillingDemoFromJSON(db *gorm.DB, filePath string, log *zap.Logger) (Report, error) {
	log.Info("📥 Membaca file seed", zap.String("path", filePath))
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return Report{}, fmt.Errorf("read seed file: %w", err)
	}
	var seed DemoSeed
	if err := sonic.Unmarshal(raw, &seed); err != nil {
		return Report{}, fmt.Errorf("decode seed file: %w", err)
	}
	return SeedBillingDemo(context.Background(), db, seed, log)
}

// SeedBillingDemo idempotent: baris yang sudah ada (by nama/kode) dipakai ulang.
func SeedBillingDemo(ctx context.Context, db *gorm.DB, seed DemoSeed, log *zap.Logger) (Report, error) {
	var rep Report
	if seed.SchoolID == uuid.Nil {
		return rep, errors.New("seed: school_id wajib diisi")
	}
	db = db.WithContext(ctx)

	term, err := seedTerm(db, seed.SchoolID, seed.Term)
	if err != nil {
		return rep, err
	}
	rep.TermID = term.AcademicTermID

	for _, cs := range seed.Classes {
		class, err := seedClass(db, seed.SchoolID, cs.Name, &rep)
		if err != nil {
			return rep, err
		}
		for _, ss := range cs.Sections {
			section, err := seedSection(db, seed.SchoolID, class.ClassID, ss.Name, &rep)
			if err != nil {
				return rep, err
			}
			for _, st := range ss.Students {
				if err := seedStudent(db, seed.SchoolID, term.AcademicTermID, section.ClassSectionID, st, &rep); err != nil {
					return rep, err
				}
			}
		}
	}

	repo := repository.NewConfigRepository(db)
	ruleIDs := map[string]uuid.UUID{}
	for _, rs := range seed.Rules {
		id, err := seedRule(ctx, db, repo, seed.SchoolID, rs, &rep)
		if err != nil {
			return rep, err
		}
		ruleIDs[rs.Key] = id
	}

	for _, cs := range seed.Configurations {
		if err := seedConfiguration(ctx, db, repo, seed.SchoolID, term.AcademicTermID, cs, ruleIDs, &rep); err != nil {
			return rep, err
		}
	}

	log.Info("✅ Seed billing demo selesai",
		zap.String("term_id", rep.TermID.String()),
		zap.Int("classes", rep.Classes),
		zap.Int("sections", rep.Sections),
		zap.Int("students", rep.Students),
		zap.Int("rules", rep.Rules),
		zap.Int("configurations", rep.Configurations))
	return rep, nil
}

func seedTerm(db *gorm.DB, schoolID uuid.UUID, in TermSeed) (termModel.AcademicTermModel, error) {
	var m termModel.AcademicTermModel
	err := db.Where("academic_term_school_id = ? AND academic_term_academic_year = ? AND academic_term_name = ?",
		schoolID, in.AcademicYear, in.Name).Take(&m).Error
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, err
	}

	start, err := time.Parse(dto.DateLayout, in.StartDate)
	if err != nil {
		return m, fmt.Errorf("term start_date: %w", err)
	}
	end, err := time.Parse(dto.DateLayout, in.EndDate)
	if err != nil {
		return m, fmt.Errorf("term end_date: %w", err)
	}
	m = termModel.AcademicTermModel{
		AcademicTermSchoolID:     schoolID,
		AcademicTermAcademicYear: in.AcademicYear,
		AcademicTermName:         in.Name,
		AcademicTermStartDate:    start,
		AcademicTermEndDate:      end,
		AcademicTermIsActive:     true,
	}
	if err := db.Create(&m).Error; err != nil {
		return m, fmt.Errorf("insert term: %w", err)
	}
	return m, nil
}

func seedClass(db *gorm.DB, schoolID uuid.UUID, name string, rep *Report) (classModel.ClassModel, error) {
	var m classModel.ClassModel
	err := db.Where("class_school_id = ? AND class_name = ?", schoolID, name).Take(&m).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, err
	}

	slug, err := helper.GenerateUniqueSlug(db, helper.SlugScope{
		Table:            "classes",
		SlugColumn:       "class_slug",
		SoftDeleteColumn: "class_deleted_at",
		Filters:          map[string]any{"class_school_id": schoolID},
		DefaultBase:      "kelas",
	}, name)
	if err != nil {
		return m, err
	}
	m = classModel.ClassModel{ClassSchoolID: schoolID, ClassName: name, ClassSlug: slug}
	if err := db.Create(&m).Error; err != nil {
		return m, fmt.Errorf("insert class %s: %w", name, err)
	}
	rep.Classes++
	return m, nil
}

func seedSection(db *gorm.DB, schoolID, classID uuid.UUID, name string, rep *Report) (sectionModel.ClassSectionModel, error) {
	var m sectionModel.ClassSectionModel
	err := db.Where("class_section_class_id = ? AND class_section_name = ?", classID, name).Take(&m).Error
	if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, err
	}

	slug, err := helper.GenerateUniqueSlug(db, helper.SlugScope{
		Table:            "class_sections",
		SlugColumn:       "class_section_slug",
		SoftDeleteColumn: "class_section_deleted_at",
		Filters:          map[string]any{"class_section_school_id": schoolID},
		DefaultBase:      "rombel",
	}, name)
	if err != nil {
		return m, err
	}
	m = sectionModel.ClassSectionModel{
		ClassSectionSchoolID: schoolID,
		ClassSectionClassID:  classID,
		ClassSectionName:     name,
		ClassSectionSlug:     slug,
	}
	if err := db.Create(&m).Error; err != nil {
		return m, fmt.Errorf("insert section %s: %w", name, err)
	}
	rep.Sections++
	return m, nil
}

func seedStudent(db *gorm.DB, schoolID, termID, sectionID uuid.UUID, in StudentSeed, rep *Report) error {
	var n int64
	if err := db.Model(&studentModel.SchoolStudentModel{}).
		Where("school_student_school_id = ? AND school_student_academic_term_id = ? AND school_student_code = ?", schoolID, termID, in.Code).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	m := studentModel.SchoolStudentModel{
		SchoolStudentSchoolID:       schoolID,
		SchoolStudentAcademicTermID: termID,
		SchoolStudentClassSectionID: sectionID,
		SchoolStudentName:           in.Name,
		SchoolStudentLastName:       in.LastName,
		SchoolStudentCode:           in.Code,
	}
	if err := db.Create(&m).Error; err != nil {
		return fmt.Errorf("insert student %s: %w", in.Code, err)
	}
	rep.Students++
	return nil
}

func seedRule(ctx context.Context, db *gorm.DB, repo *repository.ConfigRepository, schoolID uuid.UUID, in RuleSeed, rep *Report) (uuid.UUID, error) {
	var existing billingModel.BillingRuleModel
	err := db.Where("billing_rule_school_id = ? AND billing_rule_name = ?", schoolID, in.Name).Take(&existing).Error
	if err == nil {
		return existing.BillingRuleID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return uuid.Nil, err
	}

	if errs := in.CheckSemantics(); errs != nil {
		return uuid.Nil, fmt.Errorf("rule %q: %v", in.Key, errs)
	}
	m := in.ToModel(schoolID)
	if _, err := service.RuleFromModel(m); err != nil {
		return uuid.Nil, fmt.Errorf("rule %q: %w", in.Key, err)
	}
	if err := repo.CreateRule(ctx, &m); err != nil {
		return uuid.Nil, err
	}
	rep.Rules++
	return m.BillingRuleID, nil
}

func seedConfiguration(ctx context.Context, db *gorm.DB, repo *repository.ConfigRepository, schoolID, termID uuid.UUID, in ConfigSeed, ruleIDs map[string]uuid.UUID, rep *Report) error {
	var n int64
	if err := db.Model(&billingModel.BillingConfigurationModel{}).
		Where("billing_configuration_school_id = ? AND billing_configuration_school_cycle_id = ? AND billing_configuration_type = ?", schoolID, termID, in.Type).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	in.SchoolCycleID = termID
	for _, k := range in.RuleKeys {
		id, ok := ruleIDs[k]
		if !ok {
			return fmt.Errorf("configuration %s: rule key %q tidak ada", in.Type, k)
		}
		in.RuleIDs = append(in.RuleIDs, id)
	}
	if errs := in.CheckSemantics(); errs != nil {
		return fmt.Errorf("configuration %s: %v", in.Type, errs)
	}

	m := in.ToModel(schoolID, nil)
	if _, err := service.ConfigurationFromModel(m); err != nil {
		return fmt.Errorf("configuration %s: %w", in.Type, err)
	}
	if err := repo.CreateConfiguration(ctx, &m); err != nil {
		return err
	}
	rep.Configurations++
	return nil
}
