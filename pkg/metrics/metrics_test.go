package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountersConcurrentIncrement(t *testing.T) {
	var c Counters
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.ConnectionAccepted()
			c.TurnProcessed()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	assert.Equal(t, uint64(100), snap.ConnectionsAccepted)
	assert.Equal(t, uint64(100), snap.TurnsProcessed)
	assert.Equal(t, uint64(0), snap.TurnsRejected)
}

func TestSnapshotIndependentOfLiveCounters(t *testing.T) {
	var c Counters
	c.ConnectionAccepted()
	snap := c.Snapshot()
	c.ConnectionAccepted()
	assert.Equal(t, uint64(1), snap.ConnectionsAccepted)
	assert.Equal(t, uint64(2), c.Snapshot().ConnectionsAccepted)
}
