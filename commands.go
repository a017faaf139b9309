package main

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/Ei-genes/Clip-Of-The-Week/commands"
)

const activity = "Clip of the Week 🏆"

func addHandlers(s *discordgo.Session, router *commands.Router, log *slog.Logger) {
	s.AddHandlerOnce(readyHandler(log))
	s.AddHandler(router.HandleMessageCreate)
}

func readyHandler(log *slog.Logger) func(*discordgo.Session, *discordgo.Ready) {
	return func(s *discordgo.Session, r *discordgo.Ready) {
		log.Info("bot ready", "user", r.User.String(), "guilds", len(r.Guilds))
		if err := s.UpdateWatchStatus(0, activity); err != nil {
			log.Warn("failed to set activity", tint.Err(err))
		}
	}
}
