package frontier

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wdshin/Concuerror/internal/lid"
	"github.com/wdshin/Concuerror/internal/schedule"
)

func TestNew_SeedInCurrent(t *testing.T) {
	s := New(schedule.Empty())

	cur, next := s.Len()
	assert.Equal(t, 1, cur)
	assert.Equal(t, 0, next)

	p, ok := s.PeekAny()
	require.True(t, ok)
	assert.True(t, p.IsEmpty())

	p, ok = s.LoadOne()
	require.True(t, ok)
	assert.True(t, p.IsEmpty())

	_, ok = s.LoadOne()
	assert.False(t, ok)
	_, ok = s.PeekAny()
	assert.False(t, ok)
}

func TestSave_GoesToNext(t *testing.T) {
	s := New(schedule.Empty())
	assert.True(t, s.Save(schedule.Of("P1", "P1.1")))

	cur, next := s.Len()
	assert.Equal(t, 1, cur)
	assert.Equal(t, 1, next)
	assert.Equal(t, 2, s.Pending())
}

func TestSave_Duplicates(t *testing.T) {
	seed := schedule.Of("P1")
	s := New(seed)

	p := schedule.Of("P1", "P1.1")
	assert.True(t, s.Save(p))
	assert.False(t, s.Save(schedule.Of("P1", "P1.1")), "already in next")
	assert.False(t, s.Save(seed), "already in current")

	_, next := s.Len()
	assert.Equal(t, 1, next)

	s.Swap()
	loaded, ok := s.LoadOne()
	require.True(t, ok)
	assert.True(t, loaded.Equal(seed))

	loaded, ok = s.LoadOne()
	require.True(t, ok)
	assert.True(t, loaded.Equal(p))

	assert.False(t, s.Save(p), "explored earlier in the session")
	assert.False(t, s.Save(seed), "explored earlier in the session")
}

func TestSwap(t *testing.T) {
	s := New(schedule.Empty())
	_, ok := s.LoadOne()
	require.True(t, ok)

	s.Save(schedule.Of("P1", "P2"))
	s.Save(schedule.Of("P1", "P1.10"))
	s.Save(schedule.Of("P1", "P1.2"))

	s.Swap()
	cur, next := s.Len()
	assert.Equal(t, 3, cur)
	assert.Equal(t, 0, next)

	var got []string
	for {
		p, ok := s.LoadOne()
		if !ok {
			break
		}
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"P1,P1.2", "P1,P1.10", "P1,P2"}, got)
}

func TestSwap_EmptyNext(t *testing.T) {
	s := New(schedule.Empty())
	s.LoadOne()
	s.Swap()

	cur, next := s.Len()
	assert.Equal(t, 0, cur)
	assert.Equal(t, 0, next)
}

func TestNoPathInBothGenerations(t *testing.T) {
	s := New(schedule.Empty())
	s.Save(schedule.Of("P1"))
	s.Swap()

	// P1 is now current; saving it again must not put it in next.
	assert.False(t, s.Save(schedule.Of("P1")))
	_, next := s.Len()
	assert.Equal(t, 0, next)
}

func TestSave_Concurrent(t *testing.T) {
	s := New(schedule.Empty())

	const n = 64
	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every path is saved twice; exactly one save wins.
			p := schedule.Of(lid.Root(1), lid.Root(1).Child(i%(n/2)+1))
			if s.Save(p) {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, n/2, accepted)
	_, next := s.Len()
	assert.Equal(t, n/2, next)
}
