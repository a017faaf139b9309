package commands

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
)

const colorOrange = 0xFF4500

var commandIcons = map[string]string{
	"forcevoting": "🔥",
	"stopvoting":  "🛑",
	"clipstats":   "📊",
	"leaderboard": "🏆",
	"testclips":   "🧪",
	"help":        "❓",
}

func (r *Router) help(_ context.Context, m *discordgo.Message, _ []string) error {
	msg := chat.Reply(m, "")
	msg.Embeds = []*discordgo.MessageEmbed{r.helpEmbed()}
	_, err := r.client.Send(m.ChannelID, msg)
	return err
}

func (r *Router) helpEmbed() *discordgo.MessageEmbed {
	p := r.cfg.Prefix
	e := &discordgo.MessageEmbed{
		Title:       "🏆 Clip of the Week Bot - Commands",
		Description: fmt.Sprintf("All commands use the prefix `%s`", p),
		Color:       colorOrange,
		Timestamp:   r.now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Clip of the Week Bot • " + p},
	}

	for _, c := range r.order {
		value := c.Description
		if c.Example != "" {
			value += fmt.Sprintf("\n**Example:** `%s%s`", p, c.Example)
		}
		if c.Admin {
			value += "\n**Permission:** Admin"
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name:  strings.TrimSpace(fmt.Sprintf("%s %s%s %s", commandIcons[c.Name], p, c.Name, c.Args)),
			Value: value,
		})
	}

	emoji := cmp.Or(r.cfg.VoteEmoji, "🔥")
	how := []string{
		fmt.Sprintf("• Post links to %s or attach video files", strings.Join(r.cfg.ClipDomains, ", ")),
		"• Every week a vote runs automatically",
		fmt.Sprintf("• Vote with %s reactions", emoji),
		"• Ties produce several winners",
	}
	if r.cfg.Schedule != "" {
		how[1] = fmt.Sprintf("• Every %s a vote runs automatically", r.cfg.Schedule)
	}
	e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "🎬 How does it work?", Value: strings.Join(how, "\n")})
	return e
}
