package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"schoolku_billing/internals/features/finance/billings/model"
	"schoolku_billing/internals/features/finance/billings/service"
)

/* =========================================================
   ConfigRepository: billing_configurations + billing_rules
   (implements service.ConfigSource)
========================================================= */

type ConfigRepository struct {
	DB *gorm.DB
}

func NewConfigRepository(db *gorm.DB) *ConfigRepository {
	return &ConfigRepository{DB: db}
}

var _ service.ConfigSource = (*ConfigRepository)(nil)

func (r *ConfigRepository) GetConfiguration(ctx context.Context, schoolID, id uuid.UUID) (model.BillingConfigurationModel, error) {
	var m model.BillingConfigurationModel
	err := r.DB.WithContext(ctx).
		Where("billing_configuration_id = ? AND billing_configuration_school_id = ?", id, schoolID).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, service.ErrConfigurationNotFound
	}
	if err != nil {
		return m, fmt.Errorf("get configuration: %w", err)
	}
	return m, nil
}

// GetRules tanpa filter sekolah; kepemilikan dicek oleh BindRules.
func (r *ConfigRepository) GetRules(ctx context.Context, ids []uuid.UUID) ([]model.BillingRuleModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []model.BillingRuleModel
	if err := r.DB.WithContext(ctx).Where("billing_rule_id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get rules: %w", err)
	}
	return rows, nil
}

func (r *ConfigRepository) ListScheduled(ctx context.Context, day time.Time) ([]model.BillingConfigurationModel, error) {
	day = service.DateOnly(day)
	var rows []model.BillingConfigurationModel
	err := r.DB.WithContext(ctx).
		Where("billing_configuration_status = ?", model.ConfigurationRequired).
		Where("billing_configuration_start_date <= ? AND billing_configuration_end_date >= ?", day, day).
		Order("billing_configuration_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list scheduled configurations: %w", err)
	}
	return rows, nil
}

func (r *ConfigRepository) CreateConfiguration(ctx context.Context, m *model.BillingConfigurationModel) error {
	if err := r.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create configuration: %w", err)
	}
	return nil
}

func (r *ConfigRepository) CreateRule(ctx context.Context, m *model.BillingRuleModel) error {
	if err := r.DB.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create rule: %w", err)
	}
	return nil
}

// RuleFilter untuk list rule milik sekolah (kosong = semua).
type RuleFilter struct {
	Type   string
	Status string
	Q      string
}

func (r *ConfigRepository) ListRules(ctx context.Context, schoolID uuid.UUID, f RuleFilter) ([]model.BillingRuleModel, error) {
	q := r.DB.WithContext(ctx).
		Model(&model.BillingRuleModel{}).
		Where("billing_rule_school_id = ?", schoolID)

	if t := strings.TrimSpace(f.Type); t != "" {
		q = q.Where("billing_rule_type = ?", t)
	}
	if s := strings.TrimSpace(f.Status); s != "" {
		q = q.Where("billing_rule_status = ?", s)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		q = q.Where("LOWER(billing_rule_name) LIKE ?", "%"+strings.ToLower(s)+"%")
	}

	var rows []model.BillingRuleModel
	if err := q.Order("billing_rule_created_at ASC, billing_rule_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	return rows, nil
}
