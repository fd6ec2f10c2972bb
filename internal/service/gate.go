package service

import (
	"sync"

	"roulette-bot/internal/model"
)

// UserSpinState is the in-memory roulette state of one user.
type UserSpinState struct {
	SpinCount        int
	PendingChallenge *model.Challenge
	InFlight         bool
}

type userState struct {
	mu sync.Mutex
	s  UserSpinState
}

// Gate tracks per-user spin state. The map lock is held only for lookup;
// each user's state has its own lock, so different users never wait on each other.
type Gate struct {
	mu    sync.Mutex
	users map[int64]*userState
}

// NewGate creates an empty gate.
func NewGate() *Gate {
	return &Gate{users: make(map[int64]*userState)}
}

func (g *Gate) state(userID int64) *userState {
	g.mu.Lock()
	defer g.mu.Unlock()

	st, ok := g.users[userID]
	if !ok {
		st = &userState{}
		g.users[userID] = st
	}
	return st
}

func (g *Gate) lookup(userID int64) *userState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.users[userID]
}

// Update runs fn with exclusive access to the user's state. fn must not block.
func (g *Gate) Update(userID int64, fn func(st *UserSpinState)) {
	st := g.state(userID)
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
}

// UpdateExisting is Update for users the gate already tracks. Unknown users
// are left untracked and false is returned.
func (g *Gate) UpdateExisting(userID int64, fn func(st *UserSpinState)) bool {
	st := g.lookup(userID)
	if st == nil {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(&st.s)
	return true
}

// Snapshot returns a copy of the user's state. Unknown users get the zero state.
func (g *Gate) Snapshot(userID int64) UserSpinState {
	var out UserSpinState
	g.UpdateExisting(userID, func(st *UserSpinState) {
		out = *st
		if st.PendingChallenge != nil {
			ch := *st.PendingChallenge
			out.PendingChallenge = &ch
		}
	})
	return out
}

// TryAcquire marks a spin in flight. It returns false if one already is.
func (g *Gate) TryAcquire(userID int64) bool {
	acquired := false
	g.Update(userID, func(st *UserSpinState) {
		if !st.InFlight {
			st.InFlight = true
			acquired = true
		}
	})
	return acquired
}

// Release clears the in-flight mark.
func (g *Gate) Release(userID int64) {
	g.Update(userID, func(st *UserSpinState) { st.InFlight = false })
}

// SpinCount returns the number of successful spins since the last solved challenge.
func (g *Gate) SpinCount(userID int64) int {
	return g.Snapshot(userID).SpinCount
}

// IncrementSpinCount adds one successful spin and returns the new count.
func (g *Gate) IncrementSpinCount(userID int64) int {
	var n int
	g.Update(userID, func(st *UserSpinState) {
		st.SpinCount++
		n = st.SpinCount
	})
	return n
}

// ResetSpinCount sets the count back to zero.
func (g *Gate) ResetSpinCount(userID int64) {
	g.Update(userID, func(st *UserSpinState) { st.SpinCount = 0 })
}

// PendingChallenge returns the user's unsolved challenge, if any.
func (g *Gate) PendingChallenge(userID int64) (model.Challenge, bool) {
	snap := g.Snapshot(userID)
	if snap.PendingChallenge == nil {
		return model.Challenge{}, false
	}
	return *snap.PendingChallenge, true
}

// SetPendingChallenge stores ch as the user's challenge, replacing any previous one.
func (g *Gate) SetPendingChallenge(userID int64, ch model.Challenge) {
	g.Update(userID, func(st *UserSpinState) { st.PendingChallenge = &ch })
}

// ClearPendingChallenge removes the user's challenge.
func (g *Gate) ClearPendingChallenge(userID int64) {
	g.Update(userID, func(st *UserSpinState) { st.PendingChallenge = nil })
}

// Stats counts tracked users, spins in flight and pending challenges.
func (g *Gate) Stats() map[string]interface{} {
	g.mu.Lock()
	states := make([]*userState, 0, len(g.users))
	for _, st := range g.users {
		states = append(states, st)
	}
	g.mu.Unlock()

	inFlight, pending := 0, 0
	for _, st := range states {
		st.mu.Lock()
		if st.s.InFlight {
			inFlight++
		}
		if st.s.PendingChallenge != nil {
			pending++
		}
		st.mu.Unlock()
	}

	return map[string]interface{}{
		"users":              len(states),
		"spins_in_flight":    inFlight,
		"pending_challenges": pending,
	}
}
