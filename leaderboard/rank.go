package leaderboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const colorGold = 0xFFD700

var medals = []string{"👑", "🥈", "🥉"}

func position(i int) string {
	if i < len(medals) {
		return medals[i]
	}
	return fmt.Sprintf("%d.", i+1)
}

// Line renders an entry at zero-based rank i.
func (e Entry) Line(i int, now time.Time) string {
	p := message.NewPrinter(language.English)

	lastWin := "never"
	if e.LastWin != nil {
		lastWin = humanize.RelTime(*e.LastWin, now, "ago", "from now")
	}
	name := e.DisplayName
	if name == "" {
		name = (&discordgo.User{ID: e.UserID}).Mention()
	}

	return p.Sprintf("%s **%s**\n🏆 %v wins | 🔥 %v votes total\n📊 ⌀ %v votes/win | 📅 %s",
		position(i), name,
		number.Decimal(e.Wins),
		number.Decimal(e.TotalVotes),
		number.Decimal(e.AvgVotes(), number.MinFractionDigits(1), number.MaxFractionDigits(1)),
		lastWin,
	)
}

// Embed renders ranked entries for the leaderboard command.
func Embed(entries []Entry, now time.Time) *discordgo.MessageEmbed {
	p := message.NewPrinter(language.English)

	lines := make([]string, len(entries))
	totalWins, totalVotes := 0, 0
	for i, e := range entries {
		lines[i] = e.Line(i, now)
		totalWins += e.Wins
		totalVotes += e.TotalVotes
	}

	return &discordgo.MessageEmbed{
		Title:       "🏆 Clip of the Week Leaderboard",
		Description: fmt.Sprintf("**Top %d**\n\n%s", len(entries), strings.Join(lines, "\n\n")),
		Color:       colorGold,
		Timestamp:   now.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: p.Sprintf("Total: %v wins • %v votes • %d players", number.Decimal(totalWins), number.Decimal(totalVotes), len(entries)),
		},
	}
}
