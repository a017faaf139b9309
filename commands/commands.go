// Package commands routes prefixed chat messages to bot commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"

	"github.com/Ei-genes/Clip-Of-The-Week/chat"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/leaderboard"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

const (
	defaultDays = 7
	defaultTop  = 10
	// upper bound for a single command run
	commandTimeout = 5 * time.Minute
)

type Voter interface {
	StartVoting(ctx context.Context, cs []clips.Clip, manual bool) (*voting.Vote, error)
	StopVoting(ctx context.Context, id string) (bool, error)
	ActiveVotings() []voting.Vote
	MinClips() int
}

type ClipSource interface {
	Since(ctx context.Context, days int) ([]clips.Clip, error)
	Messages(ctx context.Context, days int) ([]*discordgo.Message, error)
	Classifier() *clips.Classifier
}

type Board interface {
	Top(n int) []leaderboard.Entry
}

type Handler func(ctx context.Context, m *discordgo.Message, args []string) error

type Command struct {
	Name        string
	Args        string
	Description string
	Example     string
	Admin       bool
	Handle      Handler
}

type Config struct {
	Prefix          string
	AdminRoleID     string
	ClipChannelID   string
	VotingChannelID string
	ClipDomains     []string
	VoteEmoji       string
	// Schedule describes the weekly voting window, e.g. "Sunday 00:00-20:00".
	Schedule string
	Location *time.Location
}

type Router struct {
	client chat.Client
	voter  Voter
	clips  ClipSource
	board  Board
	cfg    Config
	log    *slog.Logger
	now    func() time.Time

	commands map[string]*Command
	order    []*Command
}

func New(client chat.Client, voter Voter, source ClipSource, board Board, cfg Config, log *slog.Logger) *Router {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	r := &Router{
		client:   client,
		voter:    voter,
		clips:    source,
		board:    board,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		commands: make(map[string]*Command),
	}

	for _, c := range []*Command{
		{Name: "forcevoting", Args: "[days]", Description: "Starts a vote over the clips of the last days", Example: "forcevoting 3", Admin: true, Handle: r.forceVoting},
		{Name: "stopvoting", Description: "Ends the running vote right now", Admin: true, Handle: r.stopVoting},
		{Name: "clipstats", Args: "[days]", Description: "Shows clip statistics, 7 days by default", Example: "clipstats 14", Handle: r.clipStats},
		{Name: "leaderboard", Args: "[top]", Description: "Shows the winner leaderboard, top 10 by default", Example: "leaderboard 20", Handle: r.showLeaderboard},
		{Name: "testclips", Args: "[days]", Description: "Checks clip detection on recent messages", Admin: true, Handle: r.testClips},
		{Name: "help", Description: "Shows this help", Handle: r.help},
	} {
		r.commands[c.Name] = c
		r.order = append(r.order, c)
	}
	return r
}

// HandleMessageCreate is the discordgo event handler.
func (r *Router) HandleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	r.Handle(ctx, m.Message)
}

// Handle runs the command in m, if any. Messages from bots are ignored.
func (r *Router) Handle(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}
	name, args, ok := r.parse(m.Content)
	if !ok {
		return
	}
	c, ok := r.commands[name]
	if !ok {
		return
	}

	log := r.log.With("command", name, "user", m.Author.ID)
	if c.Admin && !r.isAdmin(m) {
		log.Info("command refused")
		r.reply(m, "❌ You do not have permission to use this command.")
		return
	}

	log.Debug("running command", "args", args)
	if err := c.Handle(ctx, m, args); err != nil {
		log.Error("command failed", tint.Err(err))
		r.reply(m, fmt.Sprintf("❌ **Error running %s**\n\n%v", name, err))
	}
}

func (r *Router) parse(content string) (string, []string, bool) {
	rest, ok := strings.CutPrefix(content, r.cfg.Prefix)
	if !ok {
		return "", nil, false
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}

func (r *Router) isAdmin(m *discordgo.Message) bool {
	if r.cfg.AdminRoleID == "" {
		return true
	}
	return m.Member != nil && slices.Contains(m.Member.Roles, r.cfg.AdminRoleID)
}

func (r *Router) reply(m *discordgo.Message, content string) *discordgo.Message {
	sent, err := r.client.Send(m.ChannelID, chat.Reply(m, content))
	if err != nil {
		r.log.Error("failed to reply", "channel", m.ChannelID, tint.Err(err))
		return nil
	}
	return sent
}

// status edits a status message in place, or replies when there is none.
func (r *Router) status(m, status *discordgo.Message, content string) {
	if status == nil {
		r.reply(m, content)
		return
	}
	if _, err := r.client.Edit(discordgo.NewMessageEdit(status.ChannelID, status.ID).SetContent(content)); err != nil {
		r.log.Error("failed to update status message", "message", status.ID, tint.Err(err))
	}
}

// intArg parses the first argument as a positive number, falling back to def.
func intArg(args []string, def int) int {
	if len(args) == 0 {
		return def
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n <= 0 {
		return def
	}
	return n
}
