package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"Delorian/internal/model"
	"Delorian/internal/notifier"
)

// Backtester runs one backtest request.
type Backtester interface {
	Run(ctx context.Context, req model.Request) (*model.Report, error)
}

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

const sendRetries = 3

const helpText = `Available commands:
/run [symbol] [interval] [start] [end]  run a backtest (e.g. /run ETH-USD 1h 2022-06-01 2022-09-01)
/grid  show every take-profit/stop-loss cell of the last run
/help  show this message`

// Scheduler runs the configured backtest on a cron schedule and answers
// chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Backtester
	Notifier Sender
	Default  model.Request
	Ctx      context.Context

	mu     sync.Mutex
	last   *model.Report
	logger zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Backtester, sender Sender, def model.Request) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Default:  def,
		Ctx:      ctx,
		logger:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the periodic run task.
func (s *Scheduler) Register(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, s.runTask); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunNow executes the scheduled task immediately.
func (s *Scheduler) RunNow() {
	s.runTask()
}

// Last returns the most recent successful report, if any.
func (s *Scheduler) Last() *model.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) runTask() {
	s.logger.Info().Str("request", s.Default.String()).Msg("running scheduled backtest")
	report, err := s.run(s.Ctx, s.Default)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled backtest failed")
		s.trySend(notifier.FormatError(s.Default, err))
		return
	}
	s.trySend(notifier.FormatReport(report))
}

func (s *Scheduler) run(ctx context.Context, req model.Request) (*model.Report, error) {
	report, err := s.Runner.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.last = report
	s.mu.Unlock()
	return report, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/run@SomeBot" in group chats
	name, _, _ := strings.Cut(fields[0], "@")

	switch name {
	case "/run":
		req, err := ParseRunArgs(s.Default, fields[1:])
		if err != nil {
			return fmt.Sprintf("⚠️ %s\n\n%s", html.EscapeString(err.Error()), html.EscapeString(helpText))
		}
		report, err := s.run(ctx, req)
		if err != nil {
			s.logger.Warn().Err(err).Str("request", req.String()).Msg("command run failed")
			return notifier.FormatError(req, err)
		}
		return notifier.FormatReport(report)
	case "/grid":
		last := s.Last()
		if last == nil {
			return "No run yet. Use /run first."
		}
		return notifier.FormatGrid(last)
	default:
		return html.EscapeString(helpText)
	}
}

// ParseRunArgs fills a request from positional arguments
// [symbol] [interval] [start] [end], falling back to def for missing ones.
func ParseRunArgs(def model.Request, args []string) (model.Request, error) {
	req := def
	if len(args) > 4 {
		return req, fmt.Errorf("too many arguments: %d", len(args))
	}
	if len(args) > 0 {
		req.Symbol = strings.ToUpper(args[0])
	}
	if len(args) > 1 {
		iv, err := model.ParseInterval(strings.ToLower(args[1]))
		if err != nil {
			return req, err
		}
		req.Interval = iv
	}
	if len(args) > 2 {
		t, err := time.Parse(model.DateLayout, args[2])
		if err != nil {
			return req, fmt.Errorf("start date %q: want YYYY-MM-DD", args[2])
		}
		req.Start = t
	}
	if len(args) > 3 {
		t, err := time.Parse(model.DateLayout, args[3])
		if err != nil {
			return req, fmt.Errorf("end date %q: want YYYY-MM-DD", args[3])
		}
		req.End = t
	}
	if !req.Start.Before(req.End) {
		return req, fmt.Errorf("start %s must be before end %s",
			req.Start.Format(model.DateLayout), req.End.Format(model.DateLayout))
	}
	return req, nil
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
