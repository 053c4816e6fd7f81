package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/daladno/upcoming/config"
	"github.com/daladno/upcoming/internal/agenda"
	"github.com/daladno/upcoming/internal/clients/caldav"
	"github.com/daladno/upcoming/internal/clients/ics"
	"github.com/daladno/upcoming/internal/notify"
	"github.com/daladno/upcoming/internal/render"
	"github.com/daladno/upcoming/internal/service"
)

// app is everything a command needs, built from the config file.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	template *render.Template
	agenda   *service.AgendaService
}

// newApp loads and checks the whole configuration, including the event
// format, before any calendar is contacted.
func newApp(cmd *cobra.Command, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.Logging.Format = flags.logFormat
	}

	logger := config.NewLogger(cfg.Logging, cmd.ErrOrStderr())

	tmpl, err := render.Parse(cfg.Display.EventFormat)
	if err != nil {
		return nil, &config.ConfigError{Field: "display.event_format", Err: err}
	}

	svc := service.NewAgendaService(buildSources(cfg, logger), service.Options{
		Calendars: cfg.Filter.Calendars,
		Interval:  cfg.Filter.Interval,
		Location:  cfg.Display.Timezone,
		Query: agenda.QueryOptions{
			Slack:           cfg.Filter.Slack,
			ExclusiveBounds: cfg.Filter.ExclusiveBounds,
		},
	}, logger)

	return &app{cfg: cfg, logger: logger, template: tmpl, agenda: svc}, nil
}

func buildSources(cfg *config.Config, logger zerolog.Logger) []service.EventSource {
	var sources []service.EventSource
	if cfg.CalDAV.URL != "" {
		sources = append(sources, caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, logger))
	}
	if len(cfg.ICS) > 0 {
		feeds := make([]ics.Feed, 0, len(cfg.ICS))
		for _, f := range cfg.ICS {
			feeds = append(feeds, ics.Feed{Name: f.Name, URL: f.URL})
		}
		sources = append(sources, ics.NewClient(feeds, logger))
	}
	return sources
}

func (a *app) telegram() (*notify.Telegram, error) {
	if !a.cfg.Telegram.Enabled() {
		return nil, &config.ConfigError{Field: "telegram", Err: errors.New("no bot token is set")}
	}
	return notify.NewTelegram(a.cfg.Telegram.Token, a.cfg.Telegram.ChatID, a.logger)
}

func (a *app) printAgenda(ctx context.Context, out io.Writer, toTelegram bool) error {
	var tg *notify.Telegram
	if toTelegram {
		var err error
		if tg, err = a.telegram(); err != nil {
			return err
		}
	}

	result, err := a.agenda.Upcoming(ctx)
	if err != nil {
		return describe(err)
	}
	if err := render.Write(out, result, a.template); err != nil {
		return err
	}
	if tg != nil {
		if err := tg.Send(render.Message(result, a.template)); err != nil {
			return fmt.Errorf("send agenda: %w", err)
		}
	}
	return nil
}

// describe turns retrieval failures into the short messages users see.
func describe(err error) error {
	var rerr *service.RetrievalError
	if !errors.As(err, &rerr) {
		return err
	}
	if errors.Is(err, caldav.ErrAccessDenied) {
		return fmt.Errorf("%s: %w", rerr.Source, caldav.ErrAccessDenied)
	}
	return fmt.Errorf("network error: %w", err)
}
