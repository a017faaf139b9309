package clips

import (
	"cmp"
	"slices"
	"time"
)

const maxTopSubmitters = 10

type SubmitterStats struct {
	ID    string
	Name  string
	Count int
}

type Stats struct {
	Total       int
	Days        int
	AvgPerDay   float64
	Daily       map[string]int // keyed by YYYY-MM-DD in loc
	Top         []SubmitterStats
	ReadyToVote bool
}

// Summarize computes posting statistics over clips gathered in the last days.
func Summarize(clips []Clip, days, minClips int, loc *time.Location) Stats {
	st := Stats{
		Total:       len(clips),
		Days:        days,
		Daily:       make(map[string]int),
		ReadyToVote: len(clips) >= minClips,
	}
	if days > 0 {
		st.AvgPerDay = float64(len(clips)) / float64(days)
	}
	if loc == nil {
		loc = time.UTC
	}

	bySubmitter := make(map[string]*SubmitterStats)
	var order []string
	for _, c := range clips {
		s, ok := bySubmitter[c.SubmitterID]
		if !ok {
			s = &SubmitterStats{ID: c.SubmitterID, Name: c.SubmitterName}
			bySubmitter[c.SubmitterID] = s
			order = append(order, c.SubmitterID)
		}
		s.Count++
		st.Daily[c.CreatedAt.In(loc).Format(time.DateOnly)]++
	}

	for _, id := range order {
		st.Top = append(st.Top, *bySubmitter[id])
	}
	slices.SortStableFunc(st.Top, func(a, b SubmitterStats) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if len(st.Top) > maxTopSubmitters {
		st.Top = st.Top[:maxTopSubmitters]
	}
	return st
}
