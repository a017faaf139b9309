package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/countvotes"
	"github.com/Ei-genes/Clip-Of-The-Week/leaderboard"
)

const (
	// maximum concurrent clip message fetches while tallying
	fetchLimit = 4
	// wait before a deadline that failed to end its vote tries again
	retryDelay = 5 * time.Minute
)

// Recorder persists vote winners.
type Recorder interface {
	RecordWinners([]leaderboard.Winner) error
}

type Config struct {
	ChannelID string
	// ResultChannelID defaults to ChannelID.
	ResultChannelID string
	MinClips        int
	EndHour         int
	Location        *time.Location
	Emoji           string
	// PostDelay separates consecutive clip messages.
	PostDelay time.Duration
}

// Manager owns the vote lifecycle. Every state transition holds mu, so
// chat commands, scheduled jobs and deadline timers never interleave.
type Manager struct {
	client chat.Client
	board  Recorder
	votes  *Registry
	cfg    Config
	log    *slog.Logger

	now       func() time.Time
	afterFunc func(time.Duration, func()) Timer

	mu sync.Mutex
}

func NewManager(client chat.Client, board Recorder, votes *Registry, cfg Config, log *slog.Logger) *Manager {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ResultChannelID == "" {
		cfg.ResultChannelID = cfg.ChannelID
	}
	return &Manager{
		client: client,
		board:  board,
		votes:  votes,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		afterFunc: func(d time.Duration, f func()) Timer {
			return time.AfterFunc(d, f)
		},
	}
}

func (m *Manager) Registry() *Registry {
	return m.votes
}

// MinClips is the configured threshold; an unset threshold means one clip.
func (m *Manager) MinClips() int {
	return max(1, m.cfg.MinClips)
}

// EndTime is today at hour in loc, or tomorrow if that has passed.
func EndTime(now time.Time, hour int, loc *time.Location) time.Time {
	now = now.In(loc)
	end := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, loc)
	if !end.After(now) {
		end = end.AddDate(0, 0, 1)
	}
	return end
}

// StartVoting posts the vote announcement and one message per clip, in the
// given order, and schedules the vote's end. Nothing is posted when there
// are too few clips or another vote is running.
func (m *Manager) StartVoting(ctx context.Context, cs []clips.Clip, manual bool) (*Vote, error) {
	if len(cs) < m.MinClips() {
		return nil, &InsufficientClipsError{Have: len(cs), Need: m.MinClips()}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.votes.Active()) > 0 {
		return nil, ErrVotingActive
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := m.cfg.ChannelID
	start := m.now()
	end := EndTime(start, m.cfg.EndHour, m.cfg.Location)

	ann, err := m.client.Send(ch, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{announcementEmbed(len(cs), start, end, m.cfg.Emoji, manual)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to post vote announcement: %w", err)
	}

	clipIDs := make([]string, 0, len(cs))
	abort := func(err error) (*Vote, error) {
		m.discard(ch, append([]string{ann.ID}, clipIDs...))
		return nil, err
	}
	for i, c := range cs {
		if i > 0 {
			if err := m.pause(ctx); err != nil {
				return abort(err)
			}
		}
		msg, err := m.client.Send(ch, &discordgo.MessageSend{Content: ClipMessage(i, c)})
		if err != nil {
			return abort(fmt.Errorf("failed to post clip %d: %w", i+1, err))
		}
		clipIDs = append(clipIDs, msg.ID)
		if err := m.client.React(ch, msg.ID, m.cfg.Emoji); err != nil {
			return abort(fmt.Errorf("failed to seed clip %d: %w", i+1, err))
		}
	}

	v := &Vote{
		ID:             ann.ID,
		Clips:          cs,
		StartTime:      start,
		EndTime:        end,
		ChannelID:      ch,
		AnnouncementID: ann.ID,
		ClipMessageIDs: clipIDs,
		Active:         true,
		Manual:         manual,
	}
	id := v.ID
	v.timer = m.afterFunc(end.Sub(start), func() { m.expire(id) })
	m.votes.put(v)

	m.log.Info("vote started", "vote", id, "clips", len(cs), "manual", manual, "ends", end)
	s := v.snapshot()
	return &s, nil
}

// expire ends a vote at its deadline. On failure it reports to the result
// channel and tries again after retryDelay, until the vote is over.
func (m *Manager) expire(id string) {
	_, err := m.EndVoting(context.Background(), id)
	if err == nil {
		return
	}
	m.log.Error("failed to end vote at deadline", "vote", id, "retry", retryDelay, tint.Err(err))
	m.notify(fmt.Sprintf("❌ **Automatic vote end failed**\n\nAn error occurred: %v\n\nRetrying in %s.", err, retryDelay))

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.votes.lookup(id); ok && v.Active {
		m.votes.setTimer(id, m.afterFunc(retryDelay, func() { m.expire(id) }))
	}
}

// EndVoting tallies a running vote, announces the result, credits the
// winners and removes the vote messages. It does nothing for unknown or
// finished votes. A vote whose result could not be posted stays active.
func (m *Manager) EndVoting(ctx context.Context, id string) (*countvotes.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.end(ctx, id)
}

// StopVoting ends a running vote ahead of its deadline and reports whether
// there was one to stop.
func (m *Manager) StopVoting(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.votes.lookup(id); !ok || !v.Active {
		return false, nil
	}
	if _, err := m.end(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Manager) ActiveVotings() []Vote {
	return m.votes.Active()
}

func (m *Manager) IsActive(id string) bool {
	v, ok := m.votes.Get(id)
	return ok && v.Active
}

func (m *Manager) end(ctx context.Context, id string) (*countvotes.Result, error) {
	v, ok := m.votes.lookup(id)
	if !ok || !v.Active {
		m.log.Debug("vote not found or already ended", "vote", id)
		return nil, nil
	}

	artifacts, err := m.fetchArtifacts(ctx, v)
	if err != nil {
		return nil, err
	}
	res := countvotes.Count(v.Clips, artifacts, m.cfg.Emoji)
	endedAt := m.now()

	if err := m.announce(res, endedAt); err != nil {
		return nil, err
	}

	if len(res.Winners) > 0 {
		winners := make([]leaderboard.Winner, len(res.Winners))
		for i, w := range res.Winners {
			winners[i] = leaderboard.Winner{
				UserID:      w.Clip.SubmitterID,
				DisplayName: w.Clip.SubmitterName,
				Votes:       w.Votes,
			}
		}
		if err := m.board.RecordWinners(winners); err != nil {
			m.log.Error("failed to record winners", "vote", id, tint.Err(err))
		}
	}

	m.discard(v.ChannelID, append([]string{v.AnnouncementID}, v.ClipMessageIDs...))
	if v.timer != nil {
		v.timer.Stop()
	}
	m.votes.finish(id, endedAt)

	m.log.Info("vote ended", "vote", id, "winners", len(res.Winners), "votes", res.TotalVotes)
	return &res, nil
}

func (m *Manager) fetchArtifacts(ctx context.Context, v *Vote) ([]*discordgo.Message, error) {
	artifacts := make([]*discordgo.Message, len(v.ClipMessageIDs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchLimit)
	for i, mid := range v.ClipMessageIDs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			msg, err := m.client.Message(v.ChannelID, mid)
			if chat.IsUnknownMessage(err) {
				m.log.Warn("clip message is gone, counting no votes", "vote", v.ID, "message", mid)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to fetch clip message %s: %w", mid, err)
			}
			artifacts[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// announce posts the result embed and one message per winner. Only a
// failure to post the result itself is returned.
func (m *Manager) announce(res countvotes.Result, at time.Time) error {
	ch, err := m.send(&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{resultEmbed(res, at)}})
	if err != nil {
		return fmt.Errorf("failed to post vote result: %w", err)
	}

	for _, w := range res.Winners {
		if _, err := m.client.Send(ch, &discordgo.MessageSend{Content: WinnerMessage(w)}); err != nil {
			m.log.Error("failed to announce winner", "user", w.Clip.SubmitterID, tint.Err(err))
		}
	}
	return nil
}

// send posts to the result channel, or to the voting channel when the
// result channel does not exist, and returns the channel used.
func (m *Manager) send(msg *discordgo.MessageSend) (string, error) {
	ch := m.cfg.ResultChannelID
	_, err := m.client.Send(ch, msg)
	var notFound *chat.ChannelNotFoundError
	if errors.As(err, &notFound) && ch != m.cfg.ChannelID {
		m.log.Warn("result channel not found, using voting channel", "channel", ch)
		ch = m.cfg.ChannelID
		_, err = m.client.Send(ch, msg)
	}
	return ch, err
}

func (m *Manager) notify(content string) {
	if _, err := m.send(&discordgo.MessageSend{Content: content}); err != nil {
		m.log.Error("failed to send notice", tint.Err(err))
	}
}

// discard deletes vote messages, logging failures.
func (m *Manager) discard(channelID string, ids []string) {
	for _, id := range ids {
		err := m.client.Delete(channelID, id)
		switch {
		case err == nil:
		case chat.IsUnknownMessage(err):
			m.log.Debug("vote message already deleted", "message", id)
		default:
			m.log.Warn("failed to delete vote message", "message", id, tint.Err(err))
		}
	}
}

func (m *Manager) pause(ctx context.Context) error {
	if m.cfg.PostDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.cfg.PostDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
