package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(0)

	tr.Queued("j1", "ingest:document")

	job, ok := tr.Get("j1")
	require.True(t, ok)
	require.Equal(t, StatusQueued, job.Status)

	require.Equal(t, 1, tr.Started("j1", "ingest:document"))
	tr.Finished("j1", nil, errors.New("timeout"), false)

	job, _ = tr.Get("j1")
	require.Equal(t, StatusRetrying, job.Status)
	require.Equal(t, "timeout", job.Error)

	require.Equal(t, 2, tr.Started("j1", "ingest:document"))
	tr.Finished("j1", Outcome{"doc1": true}, nil, true)

	job, _ = tr.Get("j1")
	require.Equal(t, StatusSucceeded, job.Status)
	require.Equal(t, 2, job.Attempts)
	require.Empty(t, job.Error)
	require.Equal(t, map[string]bool{"doc1": true}, job.Outcomes)
}

func TestTrackerFinalFailure(t *testing.T) {
	tr := NewTracker(0)
	tr.Queued("j1", "ingest:batch")
	tr.Started("j1", "ingest:batch")
	tr.Finished("j1", Outcome{"a": true, "b": false}, errors.New("index write failed"), true)

	job, _ := tr.Get("j1")
	require.Equal(t, StatusFailed, job.Status)
	require.False(t, job.Outcomes["b"])
}

func TestTrackerRetention(t *testing.T) {
	tr := NewTracker(2)
	tr.Queued("a", "x")
	tr.Queued("b", "x")
	tr.Queued("c", "x")

	_, ok := tr.Get("a")
	require.False(t, ok)
	_, ok = tr.Get("c")
	require.True(t, ok)
}

func TestTrackerRetentionKeepsJobsInFlight(t *testing.T) {
	tr := NewTracker(2)

	tr.Queued("a", "x")
	tr.Started("a", "x")

	tr.Queued("b", "x")
	tr.Started("b", "x")
	tr.Finished("b", nil, nil, true)

	tr.Queued("c", "x")

	job, ok := tr.Get("a")
	require.True(t, ok)
	require.Equal(t, StatusRunning, job.Status)

	_, ok = tr.Get("b")
	require.False(t, ok)

	_, ok = tr.Get("c")
	require.True(t, ok)

	// nothing finished: the oldest goes
	tr.Queued("d", "x")
	_, ok = tr.Get("a")
	require.False(t, ok)

	// a job first seen by a worker counts against the bound too
	tr.Started("e", "x")
	_, ok = tr.Get("c")
	require.False(t, ok)
	_, ok = tr.Get("e")
	require.True(t, ok)
}

func TestTrackerGetReturnsCopy(t *testing.T) {
	tr := NewTracker(0)
	tr.Queued("j1", "x")
	tr.Started("j1", "x")
	tr.Finished("j1", Outcome{"doc": true}, nil, true)

	job, _ := tr.Get("j1")
	job.Outcomes["doc"] = false

	again, _ := tr.Get("j1")
	require.True(t, again.Outcomes["doc"])
}
