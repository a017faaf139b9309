package commands

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ei-genes/Clip-Of-The-Week/chat/chattest"
	"github.com/Ei-genes/Clip-Of-The-Week/clips"
	"github.com/Ei-genes/Clip-Of-The-Week/leaderboard"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

const (
	cmdCh     = "general"
	clipCh    = "clips"
	votingCh  = "voting"
	adminRole = "mods"
)

type fakeVoter struct {
	active   []voting.Vote
	started  [][]clips.Clip
	manual   []bool
	stopped  []string
	startErr error
	stopErr  error
}

func (f *fakeVoter) StartVoting(_ context.Context, cs []clips.Clip, manual bool) (*voting.Vote, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, cs)
	f.manual = append(f.manual, manual)
	return &voting.Vote{ID: "v1", Clips: cs, Active: true, Manual: manual}, nil
}

func (f *fakeVoter) StopVoting(_ context.Context, id string) (bool, error) {
	if f.stopErr != nil {
		return false, f.stopErr
	}
	f.stopped = append(f.stopped, id)
	return true, nil
}

func (f *fakeVoter) ActiveVotings() []voting.Vote { return f.active }

func (f *fakeVoter) MinClips() int { return 2 }

type fakeBoard []leaderboard.Entry

func (b fakeBoard) Top(n int) []leaderboard.Entry {
	return b[:min(n, len(b))]
}

type fixture struct {
	r      *Router
	client *chattest.Client
	voter  *fakeVoter
}

func newFixture(t *testing.T, board Board) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := chattest.New(cmdCh, clipCh, votingCh)
	classifier, err := clips.NewClassifier([]string{"medal.tv"}, []string{".mp4"})
	require.NoError(t, err)
	if board == nil {
		board = fakeBoard{}
	}

	f := &fixture{client: client, voter: &fakeVoter{}}
	f.r = New(client, f.voter, clips.NewCollector(client, classifier, clipCh, clips.DefaultPageSize, log), board, Config{
		Prefix:          "v!",
		AdminRoleID:     adminRole,
		ClipChannelID:   clipCh,
		VotingChannelID: votingCh,
		ClipDomains:     []string{"medal.tv"},
		VoteEmoji:       "🔥",
		Schedule:        "Sunday 00:00-20:00",
		Location:        time.UTC,
	}, log)
	return f
}

// seedClips posts n medal links from users A, B, ... an hour apart, the
// last one being the newest.
func (f *fixture) seedClips(n int) {
	for i := range n {
		f.client.Seed(clipCh, &discordgo.Message{
			Content:   "look https://medal.tv/clips/" + string(rune('a'+i)),
			Author:    &discordgo.User{ID: string(rune('A' + i)), Username: "user" + string(rune('A'+i))},
			Timestamp: time.Now().Add(-time.Duration(n-i) * time.Hour),
		})
	}
}

// run sends content as a user message and returns what the bot has posted
// in the command channel.
func (f *fixture) run(content string, roles ...string) []*discordgo.Message {
	m := f.client.Seed(cmdCh, &discordgo.Message{
		Content: content,
		Author:  &discordgo.User{ID: "caller", Username: "caller"},
		Member:  &discordgo.Member{Roles: roles},
	})
	f.r.Handle(context.Background(), m)

	var out []*discordgo.Message
	for _, msg := range f.client.Messages(cmdCh) {
		if msg.Author != nil && msg.Author.ID == chattest.BotID {
			out = append(out, msg)
		}
	}
	return out
}

func TestHandle_Ignores(t *testing.T) {
	f := newFixture(t, nil)

	for _, content := range []string{"hello", "v!", "v!unknown", "!help", "help"} {
		assert.Empty(t, f.run(content), content)
	}

	before := len(f.client.Messages(cmdCh))
	bot := f.client.Seed(cmdCh, &discordgo.Message{Content: "v!help", Author: &discordgo.User{ID: "other", Bot: true}})
	f.r.Handle(context.Background(), bot)
	f.r.Handle(context.Background(), &discordgo.Message{Content: "v!help"})
	assert.Len(t, f.client.Messages(cmdCh), before+1)
}

func TestHandle_CaseInsensitiveCommand(t *testing.T) {
	f := newFixture(t, nil)
	out := f.run("v!HELP")
	require.Len(t, out, 1)
	assert.NotEmpty(t, out[0].Embeds)
}

func TestHandle_AdminGate(t *testing.T) {
	for _, name := range []string{"forcevoting", "stopvoting", "testclips"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.voter.active = []voting.Vote{{ID: "v1", Active: true}}

			out := f.run("v!"+name, "some-other-role")
			require.Len(t, out, 1)
			assert.Contains(t, out[0].Content, "do not have permission")
			assert.Empty(t, f.voter.started)
			assert.Empty(t, f.voter.stopped)
		})
	}
}

func TestHandle_NoAdminRoleConfigured(t *testing.T) {
	f := newFixture(t, nil)
	f.r.cfg.AdminRoleID = ""
	out := f.run("v!stopvoting")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "No vote is running")
}

func TestForceVoting(t *testing.T) {
	f := newFixture(t, nil)
	f.seedClips(3)

	out := f.run("v!forcevoting 2", adminRole)

	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "✅ **Vote started!**")
	assert.Contains(t, out[0].Content, "**3 clips** from the last 2 days")
	assert.Contains(t, out[0].Content, "<#voting>")
	require.Len(t, f.voter.started, 1)
	assert.Equal(t, []bool{true}, f.voter.manual)
	// newest first
	assert.Equal(t, "C", f.voter.started[0][0].SubmitterID)
	assert.Equal(t, "A", f.voter.started[0][2].SubmitterID)
}

func TestForceVoting_NotEnoughClips(t *testing.T) {
	tests := []struct {
		clips int
		want  string
	}{
		{0, "No clips from the last 7 days found"},
		{1, "Only 1 clip(s) found, at least 2 needed"},
	}
	for _, tt := range tests {
		f := newFixture(t, nil)
		f.seedClips(tt.clips)

		out := f.run("v!forcevoting nonsense", adminRole)
		require.Len(t, out, 1)
		assert.Contains(t, out[0].Content, tt.want)
		assert.Empty(t, f.voter.started)
	}
}

func TestForceVoting_AlreadyRunning(t *testing.T) {
	f := newFixture(t, nil)
	f.voter.active = []voting.Vote{{ID: "v1", Active: true}}

	out := f.run("v!forcevoting", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "already running")

	// lost the race against the scheduler
	f = newFixture(t, nil)
	f.seedClips(2)
	f.voter.startErr = voting.ErrVotingActive
	out = f.run("v!forcevoting", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "already running")
}

func TestForceVoting_Error(t *testing.T) {
	f := newFixture(t, nil)
	f.seedClips(2)
	f.voter.startErr = errors.New("voting channel gone")

	out := f.run("v!forcevoting", adminRole)
	require.Len(t, out, 2)
	assert.Contains(t, out[1].Content, "**Error running forcevoting**")
	assert.Contains(t, out[1].Content, "voting channel gone")
}

func TestStopVoting(t *testing.T) {
	f := newFixture(t, nil)
	f.voter.active = []voting.Vote{{ID: "v1", Active: true}}

	out := f.run("v!stopvoting", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "1 vote(s) stopped")
	assert.Equal(t, []string{"v1"}, f.voter.stopped)
}

func TestStopVoting_Error(t *testing.T) {
	f := newFixture(t, nil)
	f.voter.active = []voting.Vote{{ID: "v1", Active: true}}
	f.voter.stopErr = chattest.ErrInjected

	out := f.run("v!stopvoting", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "Error running stopvoting")
}

func TestClipStats(t *testing.T) {
	f := newFixture(t, nil)
	f.seedClips(3)

	out := f.run("v!clipstats")
	require.Len(t, out, 1)
	assert.Empty(t, out[0].Content)
	require.Len(t, out[0].Embeds, 1)
	e := out[0].Embeds[0]
	assert.Contains(t, e.Description, "**Total clips:** 3")
	assert.Contains(t, e.Description, "🥇 **userC** - 1 clip(s)")
	require.NotEmpty(t, e.Fields)
	assert.Contains(t, e.Fields[len(e.Fields)-1].Value, "✅ Enough clips for a vote (3/2)")
}

func TestClipStats_Empty(t *testing.T) {
	e := statsEmbed(clips.Summarize(nil, 7, 2, time.UTC), 2, time.Now())
	assert.Contains(t, e.Description, "No clips found")
	require.Len(t, e.Fields, 1)
	assert.Contains(t, e.Fields[0].Value, "Not enough clips")
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t, nil)
	out := f.run("v!leaderboard")
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "leaderboard is empty")

	f = newFixture(t, fakeBoard{
		{UserID: "1", DisplayName: "Ann", Wins: 3, TotalVotes: 9},
		{UserID: "2", DisplayName: "Bob", Wins: 1, TotalVotes: 2},
	})
	out = f.run("v!leaderboard 1")
	require.Len(t, out, 1)
	require.Len(t, out[0].Embeds, 1)
	assert.Contains(t, out[0].Embeds[0].Description, "👑 **Ann**")
	assert.NotContains(t, out[0].Embeds[0].Description, "Bob")
}

func TestTestClips(t *testing.T) {
	f := newFixture(t, nil)
	f.seedClips(2)
	f.client.Seed(clipCh, &discordgo.Message{
		Author:      &discordgo.User{ID: "Z"},
		Attachments: []*discordgo.MessageAttachment{{Filename: "ace.MP4", URL: "https://cdn.example/ace.MP4"}},
		Timestamp:   time.Now().Add(-time.Minute),
	})
	f.client.Seed(clipCh, &discordgo.Message{Content: "gg", Author: &discordgo.User{ID: "Z"}, Timestamp: time.Now()})

	out := f.run("v!testclips 1", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "📨 **4** messages from the last 1 days")
	assert.Contains(t, out[0].Content, "🎬 **3** clips detected (2 links, 1 files)")
}

func TestTestClips_MissingChannel(t *testing.T) {
	f := newFixture(t, nil)
	f.r.cfg.ClipChannelID = "gone"

	out := f.run("v!testclips", adminRole)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Content, "channel gone not found")
}

func TestHelp(t *testing.T) {
	f := newFixture(t, nil)
	out := f.run("v!help")
	require.Len(t, out, 1)
	require.Len(t, out[0].Embeds, 1)

	e := out[0].Embeds[0]
	require.Len(t, e.Fields, 7)
	assert.Equal(t, "🔥 v!forcevoting [days]", e.Fields[0].Name)
	assert.Contains(t, e.Fields[0].Value, "**Permission:** Admin")
	assert.Contains(t, e.Fields[0].Value, "`v!forcevoting 3`")
	assert.Equal(t, "❓ v!help", e.Fields[5].Name)
	assert.Contains(t, e.Fields[6].Value, "Every Sunday 00:00-20:00")
	assert.Equal(t, "Clip of the Week Bot • v!", e.Footer.Text)
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		args []string
		want int
	}{
		{nil, 7},
		{[]string{"3"}, 3},
		{[]string{"0"}, 7},
		{[]string{"-2"}, 7},
		{[]string{"abc"}, 7},
		{[]string{"14", "extra"}, 14},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, intArg(tt.args, 7), "%v", tt.args)
	}
}
