// Package scheduler opens and closes the weekly vote on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/countvotes"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

// upper bound for a single scheduled run
const jobTimeout = 10 * time.Minute

const (
	BeginJob = "begin weekly vote"
	EndJob   = "end weekly vote"
)

type Voter interface {
	StartVoting(ctx context.Context, cs []clips.Clip, manual bool) (*voting.Vote, error)
	EndVoting(ctx context.Context, id string) (*countvotes.Result, error)
	ActiveVotings() []voting.Vote
	MinClips() int
}

type ClipSource interface {
	Window(ctx context.Context, start, end time.Time) ([]clips.Clip, error)
}

type Config struct {
	Day       time.Weekday
	StartHour int
	EndHour   int
	Location  *time.Location
	// ResultChannelID receives notices about skipped or failed runs.
	ResultChannelID string
}

type JobStatus struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next"`
	Prev     time.Time `json:"prev,omitempty"`
}

type job struct {
	name string
	spec string
	id   cron.EntryID
}

type Scheduler struct {
	cron   *cron.Cron
	voter  Voter
	clips  ClipSource
	client chat.Client
	cfg    Config
	log    *slog.Logger
	now    func() time.Time

	jobs []job
}

func New(voter Voter, source ClipSource, client chat.Client, cfg Config, log *slog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Scheduler{
		voter:  voter,
		clips:  source,
		client: client,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
	cl := cronLogger{log: log}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	if err := s.add(BeginJob, fmt.Sprintf("0 %d * * %d", cfg.StartHour, int(cfg.Day)), s.BeginWeeklyVote); err != nil {
		return nil, err
	}
	if err := s.add(EndJob, fmt.Sprintf("0 %d * * %d", cfg.EndHour, int(cfg.Day)), s.EndWeeklyVote); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scheduler) add(name, spec string, run func(context.Context) error) error {
	id, err := s.cron.AddFunc(spec, func() { s.run(name, run) })
	if err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
	}
	s.jobs = append(s.jobs, job{name: name, spec: spec, id: id})
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, j := range s.Jobs() {
		s.log.Info("job scheduled", "job", j.Name, "schedule", j.Schedule, "next", j.Next)
	}
}

// Stop halts the schedule. The returned context is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		e := s.cron.Entry(j.id)
		st := JobStatus{Name: j.name, Schedule: j.spec, Next: e.Next, Prev: e.Prev}
		if st.Next.IsZero() && e.Schedule != nil {
			st.Next = e.Schedule.Next(s.now().In(s.cfg.Location))
		}
		out = append(out, st)
	}
	return out
}

// run executes a scheduled job. Failures are logged and reported to the
// result channel; they never stop the schedule.
func (s *Scheduler) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.log.Info("running job", "job", name)
	if err := fn(ctx); err != nil {
		s.log.Error("job failed", "job", name, tint.Err(err))
		s.notify(fmt.Sprintf("❌ **Automatic vote failed**\n\nAn error occurred: %v\n\nPlease contact an administrator.", err))
	}
}

// WeekWindow is the seven days before today's midnight in loc.
func WeekWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	now = now.In(loc)
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return end.AddDate(0, 0, -7), end
}

// BeginWeeklyVote collects last week's clips and starts a vote when there
// are enough of them; otherwise it posts a notice.
func (s *Scheduler) BeginWeeklyVote(ctx context.Context) error {
	start, end := WeekWindow(s.now(), s.cfg.Location)
	cs, err := s.clips.Window(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to collect weekly clips: %w", err)
	}
	s.log.Info("weekly clips collected", "clips", len(cs), "from", start, "to", end)

	need := s.voter.MinClips()
	switch {
	case len(cs) == 0:
		s.notify("📭 **No Clip of the Week vote this week**\n\nNo clips were posted last week. Post more clips for the next vote! 🎬")
		return nil
	case len(cs) < need:
		s.notify(fmt.Sprintf("📊 **Not enough clips for a vote**\n\nOnly %d clip(s) found, at least %d needed. Post more clips for the next vote! 🎬", len(cs), need))
		return nil
	}

	_, err = s.voter.StartVoting(ctx, cs, false)
	if errors.Is(err, voting.ErrVotingActive) {
		s.log.Warn("vote already running, skipping weekly vote")
		return nil
	}
	return err
}

// EndWeeklyVote ends every running scheduled vote. Manually started votes
// are left to their own deadline.
func (s *Scheduler) EndWeeklyVote(ctx context.Context) error {
	var errs []error
	for _, v := range s.voter.ActiveVotings() {
		if v.Manual {
			continue
		}
		if _, err := s.voter.EndVoting(ctx, v.ID); err != nil {
			errs = append(errs, fmt.Errorf("vote %s: %w", v.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) notify(content string) {
	if _, err := s.client.Send(s.cfg.ResultChannelID, &discordgo.MessageSend{Content: content}); err != nil {
		s.log.Error("failed to send notice", "channel", s.cfg.ResultChannelID, tint.Err(err))
	}
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, tint.Err(err))...)
}
