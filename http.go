package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/lmittmann/tint"

	"github.com/Ei-genes/Clip-Of-The-Week/scheduler"
	"github.com/Ei-genes/Clip-Of-The-Week/voting"
)

type voteLister interface {
	Active() []voting.Vote
	All() []voting.Vote
}

type jobLister interface {
	Jobs() []scheduler.JobStatus
}

type voteStatus struct {
	ID        string     `json:"id"`
	Clips     int        `json:"clips"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Manual    bool       `json:"manual"`
	Active    bool       `json:"active"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

type status struct {
	ActiveVotes []voteStatus          `json:"activeVotes"`
	History     []voteStatus          `json:"history"`
	Jobs        []scheduler.JobStatus `json:"jobs"`
}

func newVoteStatus(v voting.Vote) voteStatus {
	vs := voteStatus{
		ID:        v.ID,
		Clips:     len(v.Clips),
		StartTime: v.StartTime,
		EndTime:   v.EndTime,
		Manual:    v.Manual,
		Active:    v.Active,
	}
	if !v.EndedAt.IsZero() {
		vs.EndedAt = &v.EndedAt
	}
	return vs
}

func newStatusServer(addr string, votes voteLister, jobs jobLister) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           statusHandler(votes, jobs),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func statusHandler(votes voteLister, jobs jobLister) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		st := status{ActiveVotes: []voteStatus{}, History: []voteStatus{}, Jobs: jobs.Jobs()}
		for _, v := range votes.Active() {
			st.ActiveVotes = append(st.ActiveVotes, newVoteStatus(v))
		}
		for _, v := range votes.All() {
			st.History = append(st.History, newVoteStatus(v))
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			slog.Warn("error sending status", tint.Err(err))
		}
	})
	return mux
}
