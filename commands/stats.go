package commands

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/leaderboard"
)

const (
	colorCyan = 0x00D4FF
	// messages logged individually by testclips
	debugSample = 20
	// days listed in the clipstats breakdown
	maxDailyRows = 7
)

var statMedals = []string{"🥇", "🥈", "🥉"}

func (r *Router) clipStats(ctx context.Context, m *discordgo.Message, args []string) error {
	days := intArg(args, defaultDays)
	status := r.reply(m, fmt.Sprintf("🔍 Analysing clips from the last %d days...", days))

	cs, err := r.clips.Since(ctx, days)
	if err != nil {
		return err
	}
	embed := statsEmbed(clips.Summarize(cs, days, r.voter.MinClips(), r.cfg.Location), r.voter.MinClips(), r.now())

	if status == nil {
		_, err := r.client.Send(m.ChannelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
		return err
	}
	_, err = r.client.Edit(discordgo.NewMessageEdit(status.ChannelID, status.ID).SetContent("").SetEmbed(embed))
	return err
}

func statsEmbed(st clips.Stats, need int, now time.Time) *discordgo.MessageEmbed {
	var b strings.Builder
	fmt.Fprintf(&b, "**Period:** last %d days\n**Total clips:** %s\n**Average per day:** %.1f\n\n",
		st.Days, humanize.Comma(int64(st.Total)), st.AvgPerDay)

	if st.Total == 0 {
		b.WriteString("📭 No clips found in this period.")
	} else {
		b.WriteString("**🏆 Top posters:**\n")
		for i, s := range st.Top {
			medal := fmt.Sprintf("%d.", i+1)
			if i < len(statMedals) {
				medal = statMedals[i]
			}
			fmt.Fprintf(&b, "%s **%s** - %d clip(s)\n", medal, cmp.Or(s.Name, chat.UserMention(s.ID)), s.Count)
		}
	}

	e := &discordgo.MessageEmbed{
		Title:       "📊 Clip statistics",
		Description: b.String(),
		Color:       colorCyan,
		Timestamp:   now.Format(time.RFC3339),
	}

	if len(st.Daily) > 0 {
		dates := make([]string, 0, len(st.Daily))
		for d := range st.Daily {
			dates = append(dates, d)
		}
		// ISO dates sort chronologically
		slices.Sort(dates)
		slices.Reverse(dates)
		if len(dates) > maxDailyRows {
			dates = dates[:maxDailyRows]
		}
		lines := make([]string, len(dates))
		for i, d := range dates {
			lines[i] = fmt.Sprintf("`%s` - %d", d, st.Daily[d])
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "📅 Per day", Value: strings.Join(lines, "\n")})
	}

	ready := fmt.Sprintf("❌ Not enough clips for a vote (%d/%d)", st.Total, need)
	if st.ReadyToVote {
		ready = fmt.Sprintf("✅ Enough clips for a vote (%d/%d)", st.Total, need)
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "🗳️ Vote", Value: ready})
	return e
}

func (r *Router) showLeaderboard(_ context.Context, m *discordgo.Message, args []string) error {
	entries := r.board.Top(intArg(args, defaultTop))
	if len(entries) == 0 {
		r.reply(m, "📊 **The leaderboard is empty**\n\nNo vote has finished yet!")
		return nil
	}

	msg := chat.Reply(m, "")
	msg.Embeds = []*discordgo.MessageEmbed{leaderboard.Embed(entries, r.now())}
	_, err := r.client.Send(m.ChannelID, msg)
	return err
}

func (r *Router) testClips(ctx context.Context, m *discordgo.Message, args []string) error {
	days := intArg(args, defaultDays)

	ch, err := r.client.Channel(r.cfg.ClipChannelID)
	if err != nil {
		return err
	}
	status := r.reply(m, fmt.Sprintf("🔍 **DEBUG:** Checking clip detection in %s over the last %d days...\n\n*See the log for details!*", ch.Mention(), days))

	msgs, err := r.clips.Messages(ctx, days)
	if err != nil {
		return err
	}

	log := r.log.With("command", "testclips", "channel", ch.ID)
	classifier := r.clips.Classifier()
	for _, msg := range msgs[:min(len(msgs), debugSample)] {
		clip, ok := classifier.Classify(msg)
		if !ok {
			log.Debug("no clip", "author", clips.DisplayName(msg), "content", msg.Content, "at", msg.Timestamp)
			continue
		}
		log.Debug("clip found", "author", clips.DisplayName(msg), "kind", clip.Kind, "url", clip.URL, "at", msg.Timestamp)
	}

	cs := classifier.Collect(msgs)
	links := 0
	for _, c := range cs {
		if c.Kind == clips.LinkClip {
			links++
		}
	}
	log.Info("clip detection checked", "messages", len(msgs), "clips", len(cs))

	r.status(m, status, fmt.Sprintf("🧪 **DEBUG result:**\n\n📨 **%d** messages from the last %d days\n🎬 **%d** clips detected (%d links, %d files)\n\n*See the log for details!*",
		len(msgs), days, len(cs), links, len(cs)-links))
	return nil
}
