package clips

import (
	"context"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

const DefaultPageSize = 100

// History pages backwards through a channel, newest first.
type History interface {
	History(channelID, beforeID string, limit int) ([]*discordgo.Message, error)
}

// FetchWindow returns the messages of channelID created in [start, end).
// Paging stops on an empty page or once a page reaches back before start.
func FetchWindow(ctx context.Context, h History, channelID string, start, end time.Time, pageSize int) ([]*discordgo.Message, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		msgs   []*discordgo.Message
		before string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := h.History(channelID, before, pageSize)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			if !m.Timestamp.Before(start) && m.Timestamp.Before(end) {
				msgs = append(msgs, m)
			}
		}
		oldest := page[len(page)-1]
		if oldest.Timestamp.Before(start) {
			break
		}
		before = oldest.ID
	}
	return msgs, nil
}

// Collector finds clips in the clip channel.
type Collector struct {
	history    History
	classifier *Classifier
	channelID  string
	pageSize   int
	now        func() time.Time
	log        *slog.Logger
}

func NewCollector(h History, c *Classifier, channelID string, pageSize int, log *slog.Logger) *Collector {
	return &Collector{
		history:    h,
		classifier: c,
		channelID:  channelID,
		pageSize:   pageSize,
		now:        time.Now,
		log:        log,
	}
}

func (c *Collector) Classifier() *Classifier {
	return c.classifier
}

// Messages returns the raw messages posted in the last days, up to now.
func (c *Collector) Messages(ctx context.Context, days int) ([]*discordgo.Message, error) {
	now := c.now()
	return FetchWindow(ctx, c.history, c.channelID, now.AddDate(0, 0, -days), now.Add(time.Nanosecond), c.pageSize)
}

// Since returns the clips of the last days, newest first.
func (c *Collector) Since(ctx context.Context, days int) ([]Clip, error) {
	msgs, err := c.Messages(ctx, days)
	if err != nil {
		return nil, err
	}
	clips := c.classifier.Collect(msgs)
	c.log.Info("collected clips", "days", days, "messages", len(msgs), "clips", len(clips))
	return clips, nil
}

// Window returns the clips posted in [start, end), newest first.
func (c *Collector) Window(ctx context.Context, start, end time.Time) ([]Clip, error) {
	t0 := time.Now()
	msgs, err := FetchWindow(ctx, c.history, c.channelID, start, end, c.pageSize)
	if err != nil {
		return nil, err
	}
	clips := c.classifier.Collect(msgs)
	c.log.Info("collected clips", "start", start, "end", end, "messages", len(msgs), "clips", len(clips), "took", time.Since(t0))
	return clips, nil
}
