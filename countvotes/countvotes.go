// Package countvotes tallies emoji-reaction votes on clip messages.
package countvotes

import (
	"cmp"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/Ei-genes/Clip-Of-The-Week/clips"
)

type Tally struct {
	Clip  clips.Clip
	Votes int
}

type Result struct {
	// Tallies are ordered by descending votes; ties keep clip order.
	Tallies    []Tally
	Winners    []Tally
	TotalVotes int
}

// Count tallies the vote emoji on each clip's message. artifacts[i] belongs
// to clips[i]; a missing or nil artifact counts as no votes.
func Count(cs []clips.Clip, artifacts []*discordgo.Message, emoji string) Result {
	counts := make([]int, len(cs))
	for i := range cs {
		if i < len(artifacts) {
			counts[i] = Votes(ReactionCount(artifacts[i], emoji))
		}
	}
	return FromCounts(cs, counts)
}

// FromCounts builds a result from vote counts already net of the bot's seed
// reaction.
func FromCounts(cs []clips.Clip, counts []int) Result {
	var res Result
	for i, c := range cs {
		n := 0
		if i < len(counts) {
			n = max(0, counts[i])
		}
		res.Tallies = append(res.Tallies, Tally{Clip: c, Votes: n})
		res.TotalVotes += n
	}
	slices.SortStableFunc(res.Tallies, func(a, b Tally) int {
		return cmp.Compare(b.Votes, a.Votes)
	})
	res.Winners = Winners(res.Tallies)
	return res
}

// Winners returns every tally sharing the top count, or none if nobody
// received a vote. Input order is kept.
func Winners(tallies []Tally) []Tally {
	top := 0
	for _, t := range tallies {
		top = max(top, t.Votes)
	}
	if top == 0 {
		return nil
	}
	var win []Tally
	for _, t := range tallies {
		if t.Votes == top {
			win = append(win, t)
		}
	}
	return win
}

// Votes converts a raw reaction count, which includes the bot's own seed
// reaction, into a vote count.
func Votes(raw int) int {
	return max(0, raw-1)
}
