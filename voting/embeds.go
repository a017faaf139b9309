package voting

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/countvotes"
)

const (
	colorOrange = 0xFF4500
	colorGold   = 0xFFD700
)

func announcementEmbed(n int, start, end time.Time, emoji string, manual bool) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: "🏆 Clip of the Week - Voting!",
		Description: fmt.Sprintf("🔥 **Voting has started!**\n\nVote for your favourite clip of the week!\n\n**%d clips** are up for the vote\n\n💥 React with %s on the clips below\n⏰ Voting ends <t:%d:F> (<t:%d:R>)",
			n, emoji, end.Unix(), end.Unix()),
		Color:     colorOrange,
		Timestamp: start.Format(time.RFC3339),
	}
	if manual {
		e.Footer = &discordgo.MessageEmbedFooter{Text: "Manually started vote"}
	}
	return e
}

// ClipMessage is the text of the n-th (zero-based) clip message of a vote.
func ClipMessage(n int, c clips.Clip) string {
	return fmt.Sprintf("**%d.** %s\n%s", n+1, chat.UserMention(c.SubmitterID), c.URL)
}

// WinnerMessage announces a winning clip with its link.
func WinnerMessage(t countvotes.Tally) string {
	return fmt.Sprintf("🏆 **Clip of the Week winner:** %s\n%s", chat.UserMention(t.Clip.SubmitterID), t.Clip.URL)
}

func submitterName(c clips.Clip) string {
	return cmp.Or(c.SubmitterName, chat.UserMention(c.SubmitterID))
}

func votesLabel(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return fmt.Sprintf("%d votes", n)
}

func resultEmbed(res countvotes.Result, end time.Time) *discordgo.MessageEmbed {
	var b strings.Builder
	switch len(res.Winners) {
	case 0:
		b.WriteString("**No winner - no votes were cast**")
	case 1:
		w := res.Winners[0]
		fmt.Fprintf(&b, "**🥇 Winner: %s**\n🔥 %s", submitterName(w.Clip), votesLabel(w.Votes))
	default:
		b.WriteString("**🥇 Winners (tie):**\n")
		for _, w := range res.Winners {
			fmt.Fprintf(&b, "• %s - 🔥 %s\n", submitterName(w.Clip), votesLabel(w.Votes))
		}
	}

	return &discordgo.MessageEmbed{
		Title:       "🏆 Clip of the Week - Winner!",
		Description: b.String(),
		Color:       colorGold,
		Timestamp:   end.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("%s across %d clips", votesLabel(res.TotalVotes), len(res.Tallies)),
		},
	}
}
