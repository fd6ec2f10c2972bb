package service

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"roulette-bot/internal/model"
)

func TestGateAcquireRelease(t *testing.T) {
	g := NewGate()

	assert.True(t, g.TryAcquire(1))
	assert.False(t, g.TryAcquire(1))
	assert.True(t, g.TryAcquire(2), "other users are independent")

	g.Release(1)
	assert.True(t, g.TryAcquire(1))
}

func TestGateConcurrentAcquireAdmitsOne(t *testing.T) {
	g := NewGate()

	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if g.TryAcquire(42) {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
}

func TestGateCountAndChallenge(t *testing.T) {
	g := NewGate()

	assert.Equal(t, 0, g.SpinCount(5))
	assert.Equal(t, 1, g.IncrementSpinCount(5))
	assert.Equal(t, 2, g.IncrementSpinCount(5))
	g.ResetSpinCount(5)
	assert.Equal(t, 0, g.SpinCount(5))

	_, ok := g.PendingChallenge(5)
	assert.False(t, ok)

	g.SetPendingChallenge(5, model.Challenge{Question: "1+1=?", Answer: 2})
	ch, ok := g.PendingChallenge(5)
	assert.True(t, ok)
	assert.Equal(t, 2, ch.Answer)

	g.ClearPendingChallenge(5)
	_, ok = g.PendingChallenge(5)
	assert.False(t, ok)
}

func TestGateSnapshotIsCopy(t *testing.T) {
	g := NewGate()
	g.SetPendingChallenge(1, model.Challenge{Question: "2+2=?", Answer: 4})

	snap := g.Snapshot(1)
	snap.PendingChallenge.Answer = 0

	ch, _ := g.PendingChallenge(1)
	assert.Equal(t, 4, ch.Answer)
}

func TestGateStats(t *testing.T) {
	g := NewGate()
	g.TryAcquire(1)
	g.SetPendingChallenge(2, model.Challenge{Question: "1+1=?", Answer: 2})

	stats := g.Stats()
	assert.Equal(t, 2, stats["users"])
	assert.Equal(t, 1, stats["spins_in_flight"])
	assert.Equal(t, 1, stats["pending_challenges"])
}

func TestGateReadsDoNotTrackUnknownUsers(t *testing.T) {
	g := NewGate()

	assert.Equal(t, UserSpinState{}, g.Snapshot(9))
	assert.Equal(t, 0, g.SpinCount(9))
	_, ok := g.PendingChallenge(9)
	assert.False(t, ok)
	assert.False(t, g.UpdateExisting(9, func(st *UserSpinState) { st.SpinCount = 3 }))
	assert.Equal(t, 0, g.Stats()["users"])

	g.IncrementSpinCount(9)
	assert.True(t, g.UpdateExisting(9, func(st *UserSpinState) { st.SpinCount = 3 }))
	assert.Equal(t, 3, g.SpinCount(9))
	assert.Equal(t, 1, g.Stats()["users"])
}
