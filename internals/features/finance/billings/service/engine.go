package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"schoolku_billing/internals/features/finance/billings/dto"
)

/* =========================================================
   Engine: scope → periode → rule → materialisasi → hasil
========================================================= */

type EngineOptions struct {
	// batas worker paralel per run
	Workers int
	// zona waktu sekolah untuk "hari ini"
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

type Engine struct {
	configs ConfigSource
	dir     Directory
	store   PaymentStore
	mat     *Materializer
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
}

func NewEngine(configs ConfigSource, dir Directory, store PaymentStore, opts EngineOptions) *Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger.Named("billing")
	return &Engine{
		configs: configs,
		dir:     dir,
		store:   store,
		mat:     NewMaterializer(store, opts.Workers, log),
		loc:     opts.Location,
		now:     opts.Now,
		log:     log,
	}
}

type GenerateRequest struct {
	SchoolID        uuid.UUID
	ConfigurationID uuid.UUID
	RefreshUnpaid   bool
	// AsOf override tanggal evaluasi (nil = hari ini di zona sekolah)
	AsOf *time.Time
	// Location zona sekolah dari request; nil = EngineOptions.Location
	Location *time.Location
}

// prepared = hasil tahap 1–3, dipakai Generate & Preview.
type prepared struct {
	cfg      Configuration
	cycle    Cycle
	periods  []Period
	students []StudentRecord
	eval     *Evaluator
}

func (e *Engine) today(req GenerateRequest) time.Time {
	if req.AsOf != nil {
		return DateOnly(*req.AsOf)
	}
	if req.Location != nil {
		return DateIn(e.now(), req.Location)
	}
	return DateIn(e.now(), e.loc)
}

func (e *Engine) load(ctx context.Context, req GenerateRequest) (Configuration, Cycle, error) {
	m, err := e.configs.GetConfiguration(ctx, req.SchoolID, req.ConfigurationID)
	if err != nil {
		return Configuration{}, Cycle{}, err
	}
	cfg, err := ConfigurationFromModel(m)
	if err != nil {
		return Configuration{}, Cycle{}, err
	}
	cycle, err := e.dir.FindCycle(ctx, cfg.SchoolID, cfg.CycleID)
	if err != nil {
		return cfg, Cycle{}, err
	}
	return cfg, cycle, nil
}

func (e *Engine) prepare(ctx context.Context, cfg Configuration, cycle Cycle, req GenerateRequest) (*prepared, error) {
	found, err := e.configs.GetRules(ctx, cfg.RuleIDs)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	rules, err := BindRules(cfg, found)
	if err != nil {
		return nil, err
	}

	periods, err := ExpandPeriods(cfg.Recurrence, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, &ConfigError{ConfigurationID: cfg.ID, Fields: []FieldError{{Field: "recurrence", Message: err.Error()}}}
	}

	students, err := ResolveAudience(ctx, e.dir, cfg.SchoolID, cfg.CycleID, cfg.Audience)
	if err != nil {
		return nil, err
	}

	return &prepared{
		cfg:      cfg,
		cycle:    cycle,
		periods:  periods,
		students: students,
		eval:     NewEvaluator(rules, e.today(req)),
	}, nil
}

// Generate: ConfigError / not-found dikembalikan sebagai error;
// kegagalan per unit masuk ke result.Failed.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (dto.GenerationResult, error) {
	started := time.Now()

	cfg, cycle, err := e.load(ctx, req)
	if err != nil {
		return dto.GenerationResult{}, err
	}

	if !cfg.Eligible() {
		e.log.Info("skip inactive configuration", zap.String("configuration_id", cfg.ID.String()))
		return EmptyResult(cfg, cycle, "Konfigurasi tidak aktif, tidak ada tagihan baru dibuat", 0), nil
	}

	p, err := e.prepare(ctx, cfg, cycle, req)
	if err != nil {
		return dto.GenerationResult{}, err
	}
	if len(p.students) == 0 {
		return EmptyResult(cfg, cycle, "Tidak ada siswa yang cocok dengan scope konfigurasi", len(p.periods)), nil
	}

	plans := make([]Plan, 0, len(p.periods))
	for _, per := range p.periods {
		plans = append(plans, Plan{Period: per, Evaluation: p.eval.Evaluate(per, cfg.Amount)})
	}

	outcomes := e.mat.Materialize(ctx, cfg, p.students, plans, MaterializeOptions{
		RefreshUnpaid: req.RefreshUnpaid,
		Now:           e.now(),
	})
	res := BuildResult(cfg, cycle, len(p.students), len(p.periods), outcomes)

	e.log.Info("billing generated",
		zap.String("configuration_id", cfg.ID.String()),
		zap.String("as_of", p.eval.Today().Format(DateLayout)),
		zap.Int("students", res.Summary.Students),
		zap.Int("periods", res.Summary.Periods),
		zap.Int("created", res.Summary.Created),
		zap.Int("existing", res.Summary.Existing),
		zap.Int("completed", res.Summary.Completed),
		zap.Int("failed", res.Summary.Failed),
		zap.Duration("took", time.Since(started)),
	)
	return res, nil
}

// Preview: tahap 1–3 saja, tanpa tulis.
func (e *Engine) Preview(ctx context.Context, req GenerateRequest) (dto.PreviewResult, error) {
	cfg, cycle, err := e.load(ctx, req)
	if err != nil {
		return dto.PreviewResult{}, err
	}
	p, err := e.prepare(ctx, cfg, cycle, req)
	if err != nil {
		return dto.PreviewResult{}, err
	}

	out := dto.PreviewResult{
		Config:         ConfigEcho(cfg, cycle),
		AsOf:           p.eval.Today().Format(DateLayout),
		Students:       len(p.students),
		Periods:        make([]dto.PreviewPeriod, 0, len(p.periods)),
		ProjectedTotal: decimal.Zero,
	}
	n := decimal.NewFromInt(int64(len(p.students)))
	for _, per := range p.periods {
		ev := p.eval.Evaluate(per, cfg.Amount)
		out.Periods = append(out.Periods, dto.PreviewPeriod{
			Index:      per.Index,
			Start:      per.Start.Format(DateLayout),
			End:        per.End.Format(DateLayout),
			DueDate:    per.DueDate.Format(DateLayout),
			Partial:    per.Partial,
			Base:       ev.Base,
			Amount:     ev.Total,
			Tags:       ev.Tags,
			Delinquent: ev.Delinquent,
		})
		if cfg.Eligible() {
			out.ProjectedTotal = out.ProjectedTotal.Add(ev.Total.Mul(n))
		}
	}
	return out, nil
}

// Balance saldo berjalan siswa (0 kalau belum pernah ditagih).
func (e *Engine) Balance(ctx context.Context, schoolID, studentID uuid.UUID) (decimal.Decimal, error) {
	return e.store.Balance(ctx, schoolID, studentID)
}

// ScheduledRequests: request generate untuk semua konfigurasi required yang sedang berjalan.
func (e *Engine) ScheduledRequests(ctx context.Context, day time.Time) ([]GenerateRequest, error) {
	rows, err := e.configs.ListScheduled(ctx, DateOnly(day))
	if err != nil {
		return nil, fmt.Errorf("list scheduled configurations: %w", err)
	}
	out := make([]GenerateRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, GenerateRequest{SchoolID: r.BillingConfigurationSchoolID, ConfigurationID: r.BillingConfigurationID})
	}
	return out, nil
}

// IsNotFound: konfigurasi atau cycle tidak ada.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrConfigurationNotFound) || errors.Is(err, ErrCycleNotFound)
}
