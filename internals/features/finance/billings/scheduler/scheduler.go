// file: internals/features/finance/billings/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"schoolku_billing/internals/features/finance/billings/dto"
	"schoolku_billing/internals/features/finance/billings/service"
)

// Generator: bagian Engine yang dipakai job terjadwal.
type Generator interface {
	ScheduledRequests(ctx context.Context, day time.Time) ([]service.GenerateRequest, error)
	Generate(ctx context.Context, req service.GenerateRequest) (dto.GenerationResult, error)
}

type Config struct {
	// Schedule format cron 5 field, mis. "30 1 * * *"
	Schedule string
	Location *time.Location
	// Parallel batas konfigurasi yang diproses bersamaan
	Parallel int
	// Timeout per run (0 = tanpa batas)
	Timeout time.Duration
	Now     func() time.Time
}

type ConfigRun struct {
	SchoolID        uuid.UUID
	ConfigurationID uuid.UUID
	Summary         dto.GenerationSummary
	Err             error
}

type RunReport struct {
	Day  time.Time
	Runs []ConfigRun
}

func (r RunReport) Failed() int {
	n := 0
	for _, run := range r.Runs {
		if run.Err != nil {
			n++
		}
	}
	return n
}

type Scheduler struct {
	gen  Generator
	cfg  Config
	cron *cron.Cron
	log  *zap.Logger
}

// New: schedule kosong tetap valid (RunOnce bisa dipanggil manual), Start jadi no-op.
func New(gen Generator, cfg Config, log *zap.Logger) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Parallel <= 0 {
		cfg.Parallel = 2
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Scheduler{gen: gen, cfg: cfg, log: log.Named("billing_cron")}

	if strings.TrimSpace(cfg.Schedule) == "" {
		return s, nil
	}

	cl := cron.PrintfLogger(zap.NewStdLog(s.log))
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := s.cron.AddFunc(cfg.Schedule, s.job); err != nil {
		return nil, fmt.Errorf("add billing cron %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

func (s *Scheduler) job() {
	ctx := context.Background()
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	if _, err := s.RunOnce(ctx); err != nil {
		s.log.Error("scheduled billing run failed", zap.Error(err))
	}
}

// RunOnce generate ulang semua konfigurasi required yang aktif hari ini.
// Gagal satu konfigurasi tidak menghentikan yang lain.
func (s *Scheduler) RunOnce(ctx context.Context) (RunReport, error) {
	day := service.DateIn(s.cfg.Now(), s.cfg.Location)
	rep := RunReport{Day: day}

	reqs, err := s.gen.ScheduledRequests(ctx, day)
	if err != nil {
		return rep, err
	}
	rep.Runs = make([]ConfigRun, len(reqs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallel)
	for i, req := range reqs {
		req.Location = s.cfg.Location
		rep.Runs[i] = ConfigRun{SchoolID: req.SchoolID, ConfigurationID: req.ConfigurationID}
		g.Go(func() error {
			res, err := s.gen.Generate(ctx, req)
			rep.Runs[i].Summary = res.Summary
			rep.Runs[i].Err = err
			if err != nil {
				s.log.Warn("scheduled generate failed",
					zap.String("configuration_id", req.ConfigurationID.String()),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info("scheduled billing run done",
		zap.String("day", day.Format(service.DateLayout)),
		zap.Int("configurations", len(reqs)),
		zap.Int("failed", rep.Failed()))
	return rep, nil
}

func (s *Scheduler) Start() {
	if s.cron == nil {
		s.log.Info("billing cron disabled (BILLING_CRON kosong)")
		return
	}
	s.log.Info("billing cron started", zap.String("schedule", s.cfg.Schedule), zap.String("tz", s.cfg.Location.String()))
	s.cron.Start()
}

// Stop menunggu job yang sedang jalan selesai (atau ctx habis).
func (s *Scheduler) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
