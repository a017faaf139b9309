package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

const alreadyRunning = "⚠️ A vote is already running! Wait until it has ended."

func (r *Router) forceVoting(ctx context.Context, m *discordgo.Message, args []string) error {
	if len(r.voter.ActiveVotings()) > 0 {
		r.reply(m, alreadyRunning)
		return nil
	}

	days := intArg(args, defaultDays)
	status := r.reply(m, fmt.Sprintf("🔍 Collecting clips from the last %d days...", days))

	cs, err := r.clips.Since(ctx, days)
	if err != nil {
		return err
	}

	need := r.voter.MinClips()
	switch {
	case len(cs) == 0:
		r.status(m, status, fmt.Sprintf("📭 No clips from the last %d days found.\n\nMake sure clips link to %s or are attached as video files.",
			days, strings.Join(r.cfg.ClipDomains, ", ")))
		return nil
	case len(cs) < need:
		r.status(m, status, fmt.Sprintf("📊 Only %d clip(s) found, at least %d needed for a vote.", len(cs), need))
		return nil
	}

	_, err = r.voter.StartVoting(ctx, cs, true)
	if errors.Is(err, voting.ErrVotingActive) {
		r.status(m, status, alreadyRunning)
		return nil
	}
	if err != nil {
		return err
	}

	r.status(m, status, fmt.Sprintf("✅ **Vote started!**\n\n📊 **%d clips** from the last %d days were found.\n🔥 Vote with reactions!\n\nHead over to %s! 🎬",
		len(cs), days, chat.ChannelMention(r.cfg.VotingChannelID)))
	return nil
}

func (r *Router) stopVoting(ctx context.Context, m *discordgo.Message, _ []string) error {
	active := r.voter.ActiveVotings()
	if len(active) == 0 {
		r.reply(m, "⚠️ No vote is running.")
		return nil
	}

	stopped := 0
	var errs []error
	for _, v := range active {
		ok, err := r.voter.StopVoting(ctx, v.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			stopped++
		}
	}
	if stopped == 0 {
		if err := errors.Join(errs...); err != nil {
			return err
		}
		r.reply(m, "❌ **Could not stop the vote**\n\nPlease try again or contact an administrator.")
		return nil
	}

	r.reply(m, fmt.Sprintf("✅ **%d vote(s) stopped!**\n\nThe results were announced and the leaderboard updated.", stopped))
	return errors.Join(errs...)
}
