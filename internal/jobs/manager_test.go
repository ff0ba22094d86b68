package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokscribe/tokscribe/internal/jobs"
	"github.com/tokscribe/tokscribe/internal/testutil"
)

func TestJobManager_RunJobLifecycle(t *testing.T) {
	jm := jobs.NewManager()

	release := make(chan struct{})
	jm.Register("slow", "Slow task", func(ctx jobs.JobContext) {
		<-release
	})

	require.NoError(t, jm.RunJob("slow", nil))

	statuses := jm.GetStatus()
	require.Len(t, statuses, 1)
	assert.Equal(t, "running", statuses[0].Status)

	// Only one maintenance task may run at a time.
	err := jm.RunJob("slow", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	close(release)
	testutil.WaitFor(t, time.Second, func() bool {
		return jm.GetStatus()[0].Status == "success"
	})
	assert.False(t, jm.GetStatus()[0].EndTime.IsZero())
}

func TestJobManager_UnknownJob(t *testing.T) {
	jm := jobs.NewManager()
	err := jm.RunJob("nope", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestJobManager_PanicIsRecorded(t *testing.T) {
	jm := jobs.NewManager()
	jm.Register("boom", "Panicking task", func(ctx jobs.JobContext) {
		panic("kaboom")
	})

	require.NoError(t, jm.RunJob("boom", nil))
	testutil.WaitFor(t, time.Second, func() bool {
		return jm.GetStatus()[0].Status == "failed"
	})
	assert.Contains(t, jm.GetStatus()[0].Message, "kaboom")

	// The manager accepts new work after a panic.
	jm.Register("ok", "Fine task", func(ctx jobs.JobContext) {})
	require.NoError(t, jm.RunJob("ok", nil))
}

func TestJobManager_StatusKeepsRegistrationOrder(t *testing.T) {
	jm := jobs.NewManager()
	jm.Register("b", "B", func(ctx jobs.JobContext) {})
	jm.Register("a", "A", func(ctx jobs.JobContext) {})

	statuses := jm.GetStatus()
	require.Len(t, statuses, 2)
	assert.Equal(t, "b", statuses[0].ID)
	assert.Equal(t, "a", statuses[1].ID)
	assert.Equal(t, "idle", statuses[0].Status)
}
