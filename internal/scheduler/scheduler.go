package scheduler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/daladno/upcoming/internal/domain"
	"github.com/daladno/upcoming/internal/render"
)

// AgendaSource produces one agenda per call.
type AgendaSource interface {
	Upcoming(ctx context.Context) (domain.Agenda, error)
}

type MessageSender interface {
	Send(text string) error
}

// Scheduler reruns the agenda pipeline on a cron schedule and publishes
// every result.
type Scheduler struct {
	cron     *cron.Cron
	spec     string
	source   AgendaSource
	template *render.Template
	out      io.Writer
	sender   MessageSender
	logger   zerolog.Logger
	ctx      context.Context
}

func New(spec string, location *time.Location, source AgendaSource, tmpl *render.Template, out io.Writer, logger zerolog.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	if location == nil {
		location = time.UTC
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(location)),
		spec:     spec,
		source:   source,
		template: tmpl,
		out:      out,
		logger:   logger,
		ctx:      context.Background(),
	}, nil
}

func (s *Scheduler) SetSender(sender MessageSender) {
	s.sender = sender
}

// Start registers the job and blocks until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx = ctx
	if _, err := s.cron.AddFunc(s.spec, s.tick); err != nil {
		return fmt.Errorf("add agenda job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.spec).Msg("scheduler started")

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Next returns the next planned run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	if err := s.RunOnce(s.ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduled agenda run failed")
	}
}

// RunOnce builds the agenda and publishes it to the writer and, when set,
// the sender.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	agenda, err := s.source.Upcoming(ctx)
	if err != nil {
		return fmt.Errorf("build agenda: %w", err)
	}

	if s.out != nil {
		if err := render.Write(s.out, agenda, s.template); err != nil {
			return err
		}
	}

	if s.sender != nil {
		if err := s.sender.Send(render.Message(agenda, s.template)); err != nil {
			return fmt.Errorf("send agenda: %w", err)
		}
	}
	return nil
}
