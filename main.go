package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/commands"
	"github.com/Ei-genes/Clip-Of-The-Week/config"
	"github.com/Ei-genes/Clip-Of-The-Week/leaderboard"
	"github.com/Ei-genes/Clip-Of-The-Week/scheduler"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

const shutdownTimeout = 30 * time.Second

func main() {
	level := new(slog.LevelVar)
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.DateTime}))
	slog.SetDefault(log)

	if err := run(log, level); err != nil {
		log.Error("bot stopped", tint.Err(err))
		os.Exit(1)
	}
}

func run(log *slog.Logger, level *slog.LevelVar) error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}
	level.Set(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GCPProject != "" {
		if cfg.Token, err = fetchToken(ctx, cfg.GCPProject, cfg.TokenSecretName); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsMessageContent

	client := chat.NewSession(s)

	board, err := leaderboard.Open(cfg.DatabasePath, log.With("component", "leaderboard"))
	if err != nil {
		return err
	}
	classifier, err := clips.NewClassifier(cfg.ClipDomains, cfg.VideoExtensions)
	if err != nil {
		return err
	}
	collector := clips.NewCollector(client, classifier, cfg.ClipChannelID, cfg.HistoryPageSize, log.With("component", "clips"))

	manager := voting.NewManager(client, board, voting.NewRegistry(), voting.Config{
		ChannelID:       cfg.VotingChannelID,
		ResultChannelID: cfg.ResultChannel(),
		MinClips:        cfg.MinClips,
		EndHour:         cfg.VotingEndHour,
		Location:        cfg.Location,
		Emoji:           cfg.VoteEmoji,
		PostDelay:       cfg.PostDelay,
	}, log.With("component", "voting"))

	sched, err := scheduler.New(manager, collector, client, scheduler.Config{
		Day:             cfg.VotingDay,
		StartHour:       cfg.VotingStartHour,
		EndHour:         cfg.VotingEndHour,
		Location:        cfg.Location,
		ResultChannelID: cfg.ResultChannel(),
	}, log.With("component", "scheduler"))
	if err != nil {
		return err
	}

	router := commands.New(client, manager, collector, board, commands.Config{
		Prefix:          cfg.Prefix,
		AdminRoleID:     cfg.AdminRoleID,
		ClipChannelID:   cfg.ClipChannelID,
		VotingChannelID: cfg.VotingChannelID,
		ClipDomains:     cfg.ClipDomains,
		VoteEmoji:       cfg.VoteEmoji,
		Schedule:        fmt.Sprintf("%s %02d:00-%02d:00", cfg.VotingDay, cfg.VotingStartHour, cfg.VotingEndHour),
		Location:        cfg.Location,
	}, log.With("component", "commands"))

	addHandlers(s, router, log)

	if err := s.Open(); err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	defer s.Close()

	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	errc := make(chan error, 1)
	if cfg.Port != "" {
		srv := newStatusServer(":"+cfg.Port, manager.Registry(), sched)
		go func() {
			log.Info("status server listening", "addr", srv.Addr)
			errc <- srv.ListenAndServe()
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Warn("status server shutdown", tint.Err(err))
			}
		}()
	}

	log.Info("bot running, press Ctrl+C to exit")
	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status server: %w", err)
	}
}
