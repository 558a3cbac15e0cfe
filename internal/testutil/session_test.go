package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedSessionID_ReturnsSameID(t *testing.T) {
	gen := FixedSessionID("session-123")

	assert.Equal(t, "session-123", gen.Generate())
	assert.Equal(t, "session-123", gen.Generate())
}

func TestFixedSessionID_EmptyDefault(t *testing.T) {
	assert.Equal(t, DefaultSessionID, FixedSessionID("").Generate())
}

func TestFixedSessionID_ThreadSafe(t *testing.T) {
	gen := FixedSessionID("shared")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "shared", gen.Generate())
			}
		}()
	}
	wg.Wait()
}
