// Package voting runs clip of the week votes from announcement to results.
package voting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Ei-genes/Clip-Of-The-Week/clips"
)

var ErrVotingActive = errors.New("a vote is already running")

type InsufficientClipsError struct {
	Have int
	Need int
}

func (e *InsufficientClipsError) Error() string {
	return fmt.Sprintf("need at least %d clips for a vote, found %d", e.Need, e.Have)
}

// Timer is a pending end-of-vote callback.
type Timer interface {
	Stop() bool
}

// Vote is one voting round. The ID is the announcement message id.
type Vote struct {
	ID             string
	Clips          []clips.Clip
	StartTime      time.Time
	EndTime        time.Time
	ChannelID      string
	AnnouncementID string
	// ClipMessageIDs[i] is the message carrying Clips[i].
	ClipMessageIDs []string
	Active         bool
	Manual         bool
	EndedAt        time.Time

	timer Timer
}

func (v *Vote) snapshot() Vote {
	s := *v
	s.timer = nil
	return s
}

// Registry holds every vote started by this process.
type Registry struct {
	mu    sync.RWMutex
	votes map[string]*Vote
	order []string
}

func NewRegistry() *Registry {
	return &Registry{votes: make(map[string]*Vote)}
}

func (r *Registry) put(v *Vote) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.votes[v.ID]; !ok {
		r.order = append(r.order, v.ID)
	}
	r.votes[v.ID] = v
}

func (r *Registry) lookup(id string) (*Vote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.votes[id]
	return v, ok
}

func (r *Registry) setTimer(id string, t Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.votes[id]; ok {
		v.timer = t
	}
}

func (r *Registry) finish(id string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.votes[id]; ok {
		v.Active = false
		v.EndedAt = at
	}
}

// Get returns a copy of the vote with the given id.
func (r *Registry) Get(id string) (Vote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.votes[id]
	if !ok {
		return Vote{}, false
	}
	return v.snapshot(), true
}

// Active returns copies of the running votes, oldest first.
func (r *Registry) Active() []Vote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Vote
	for _, id := range r.order {
		if v := r.votes[id]; v.Active {
			out = append(out, v.snapshot())
		}
	}
	return out
}

// All returns copies of every vote, oldest first.
func (r *Registry) All() []Vote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Vote, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.votes[id].snapshot())
	}
	return out
}
