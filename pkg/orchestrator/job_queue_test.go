package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobQueuePutGetFIFO(t *testing.T) {
	q := NewJobQueue(4)
	require.NoError(t, q.Put(Job{SID: 1}))
	require.NoError(t, q.Put(Job{SID: 2}))

	job, err := q.Get(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), job.SID)

	job, err = q.Get(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), job.SID)
}

func TestJobQueueDropsOldestWhenFull(t *testing.T) {
	q := NewJobQueue(2)
	require.NoError(t, q.Put(Job{SID: 1}))
	require.NoError(t, q.Put(Job{SID: 2}))
	require.NoError(t, q.Put(Job{SID: 3})) // evicts SID 1

	job, err := q.Get(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), job.SID)

	job, err = q.Get(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), job.SID)
}

func TestJobQueueGetTimesOutWhenEmpty(t *testing.T) {
	q := NewJobQueue(4)
	_, err := q.Get(10 * time.Millisecond)
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestJobQueueCloseDrainsThenErrors(t *testing.T) {
	q := NewJobQueue(4)
	require.NoError(t, q.Put(Job{SID: 1}))
	q.Close()

	job, err := q.Get(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), job.SID)

	_, err = q.Get(time.Second)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestJobQueuePutAfterCloseErrors(t *testing.T) {
	q := NewJobQueue(4)
	q.Close()
	err := q.Put(Job{SID: 1})
	assert.ErrorIs(t, err, ErrQueueClosed)
}
