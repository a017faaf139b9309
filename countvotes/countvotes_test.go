package countvotes

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/Ei-genes/Clip-Of-The-Week/clips"
)

const fire = "🔥"

func mkClips(ids ...string) []clips.Clip {
	var cs []clips.Clip
	for _, id := range ids {
		cs = append(cs, clips.Clip{ID: id, SubmitterID: "user-" + id})
	}
	return cs
}

func artifact(counts map[string]int) *discordgo.Message {
	m := &discordgo.Message{}
	for name, n := range counts {
		m.Reactions = append(m.Reactions, &discordgo.MessageReactions{Count: n, Emoji: &discordgo.Emoji{Name: name}})
	}
	return m
}

func winnerIDs(ts []Tally) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Clip.ID)
	}
	return out
}

func TestVotes_SubtractsSeed(t *testing.T) {
	for raw, want := range map[int]int{0: 0, 1: 0, 2: 1, 7: 6, -3: 0} {
		assert.Equal(t, want, Votes(raw), "raw %d", raw)
	}
}

func TestFromCounts_Winners(t *testing.T) {
	tests := []struct {
		name    string
		counts  []int
		winners []string
		order   []string
		total   int
	}{
		{"tie at top", []int{5, 5, 3, 0}, []string{"a", "b"}, []string{"a", "b", "c", "d"}, 13},
		{"no votes", []int{0, 0, 0}, nil, []string{"a", "b", "c"}, 0},
		{"single clip", []int{7}, []string{"a"}, []string{"a"}, 7},
		{"stable ordering", []int{1, 3, 1, 3}, []string{"b", "d"}, []string{"b", "d", "a", "c"}, 8},
		{"negative floored", []int{-2, 1}, []string{"b"}, []string{"b", "a"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := []string{"a", "b", "c", "d"}[:len(tt.counts)]
			res := FromCounts(mkClips(ids...), tt.counts)
			assert.Equal(t, tt.winners, winnerIDs(res.Winners))
			assert.Equal(t, tt.order, winnerIDs(res.Tallies))
			assert.Equal(t, tt.total, res.TotalVotes)
		})
	}
}

func TestCount_FromArtifacts(t *testing.T) {
	cs := mkClips("x", "y", "z", "w")
	artifacts := []*discordgo.Message{
		artifact(map[string]int{fire: 3, "👍": 10}),
		artifact(map[string]int{fire: 3}),
		artifact(map[string]int{fire: 2}),
		nil,
	}

	res := Count(cs, artifacts, fire)

	assert.Equal(t, []string{"x", "y"}, winnerIDs(res.Winners))
	assert.Equal(t, 2, res.Winners[0].Votes)
	assert.Equal(t, []string{"x", "y", "z", "w"}, winnerIDs(res.Tallies))
	assert.Equal(t, []int{2, 2, 1, 0}, []int{res.Tallies[0].Votes, res.Tallies[1].Votes, res.Tallies[2].Votes, res.Tallies[3].Votes})
	assert.Equal(t, 5, res.TotalVotes)
}

func TestCount_FewerArtifactsThanClips(t *testing.T) {
	res := Count(mkClips("a", "b"), []*discordgo.Message{artifact(map[string]int{fire: 1})}, fire)
	assert.Empty(t, res.Winners)
	assert.Len(t, res.Tallies, 2)
}

func TestReactionCount_CustomEmoji(t *testing.T) {
	m := &discordgo.Message{Reactions: []*discordgo.MessageReactions{
		{Count: 4, Emoji: &discordgo.Emoji{Name: "flame", ID: "123"}},
	}}
	assert.Equal(t, 4, ReactionCount(m, "flame"))
	assert.Equal(t, 4, ReactionCount(m, "flame:123"))
	assert.Equal(t, 4, ReactionCount(m, "<:flame:123>"))
	assert.Equal(t, 0, ReactionCount(m, fire))
	assert.Equal(t, 0, ReactionCount(nil, fire))
}

func TestReactionCount_AnimatedEmoji(t *testing.T) {
	m := &discordgo.Message{Reactions: []*discordgo.MessageReactions{
		{Count: 3, Emoji: &discordgo.Emoji{Name: "blaze", ID: "456", Animated: true}},
	}}
	assert.Equal(t, 3, ReactionCount(m, "<a:blaze:456>"))
	assert.Equal(t, 3, ReactionCount(m, "a:blaze:456"))
	assert.Equal(t, 3, ReactionCount(m, "blaze"))
	assert.Equal(t, 0, ReactionCount(m, "<a:blaze:789>"))
}
