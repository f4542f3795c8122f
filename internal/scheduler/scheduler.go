// Package scheduler drives the three scoring phases on their cron
// schedules, loaded from a yaml job file.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/earnscope/earnscope/internal/application/pipeline"
)

// Job is one scheduled phase run.
type Job struct {
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"` // cron format, e.g. "30 16 * * 1-5"
	Phase    string `yaml:"phase"`    // post_close, pre_market, intraday
	Enabled  bool   `yaml:"enabled"`
}

// Config is the on-disk scheduler configuration.
type Config struct {
	Timezone string `yaml:"timezone"`
	Jobs     []Job  `yaml:"jobs"`
}

// LoadConfig reads the scheduler yaml file.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse scheduler YAML: %w", err)
	}
	for _, j := range cfg.Jobs {
		switch j.Phase {
		case pipeline.PhasePostClose, pipeline.PhasePreMarket, pipeline.PhaseIntraday:
		default:
			return cfg, fmt.Errorf("job %s: unknown phase %q", j.Name, j.Phase)
		}
	}
	return cfg, nil
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cfg  Config
	pipe *pipeline.Pipeline
	cron *cron.Cron
	log  zerolog.Logger
}

// New builds a scheduler in the configured timezone.
func New(cfg Config, pipe *pipeline.Pipeline, log zerolog.Logger) (*Scheduler, error) {
	loc := time.Local
	if cfg.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
		}
	}
	return &Scheduler{
		cfg:  cfg,
		pipe: pipe,
		cron: cron.New(cron.WithLocation(loc)),
		log:  log.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Start registers the enabled jobs and runs until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	registered := 0
	for _, job := range s.cfg.Jobs {
		if !job.Enabled {
			continue
		}
		job := job
		_, err := s.cron.AddFunc(job.Schedule, func() {
			s.run(ctx, job)
		})
		if err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
		}
		registered++
		s.log.Info().Str("job", job.Name).Str("schedule", job.Schedule).Str("phase", job.Phase).Msg("job registered")
	}
	if registered == 0 {
		return fmt.Errorf("no enabled jobs in scheduler config")
	}

	s.cron.Start()
	<-ctx.Done()
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	return ctx.Err()
}

func (s *Scheduler) run(ctx context.Context, job Job) {
	logger := s.log.With().Str("job", job.Name).Logger()
	logger.Info().Msg("job started")

	var err error
	now := time.Now()
	switch job.Phase {
	case pipeline.PhasePostClose:
		_, err = s.pipe.PostClose(ctx, now)
	case pipeline.PhasePreMarket:
		_, err = s.pipe.PreMarket(ctx, now)
	case pipeline.PhaseIntraday:
		_, err = s.pipe.Intraday(ctx, now)
	}
	if err != nil {
		logger.Error().Err(err).Msg("job failed")
		return
	}
	logger.Info().Msg("job finished")
}
