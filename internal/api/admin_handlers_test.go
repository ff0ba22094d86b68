package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokscribe/tokscribe/internal/jobs"
	"github.com/tokscribe/tokscribe/internal/testutil"
)

func TestGetAdminJobsStatus(t *testing.T) {
	_, srv := newTestServer(t)

	var statuses []jobs.JobStatus
	code := getJSON(t, srv.URL+"/api/admin/jobs/status", &statuses)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, statuses, 1)
	assert.Equal(t, jobs.RegistryPruneJobID, statuses[0].ID)
	assert.Equal(t, "idle", statuses[0].Status)
}

func TestRunAdminJob(t *testing.T) {
	_, srv := newTestServer(t)

	code := postJSON(t, srv.URL+"/api/admin/jobs/run", map[string]string{"job_id": jobs.RegistryPruneJobID}, nil)
	assert.Equal(t, http.StatusAccepted, code)

	// The trigger is asynchronous; wait for the manager to settle.
	testutil.WaitFor(t, time.Second, func() bool {
		var statuses []jobs.JobStatus
		if getJSON(t, srv.URL+"/api/admin/jobs/status", &statuses) != http.StatusOK {
			return false
		}
		return len(statuses) == 1 && statuses[0].Status == "success"
	})

	code = postJSON(t, srv.URL+"/api/admin/jobs/run", map[string]string{"job_id": "bogus"}, nil)
	assert.Equal(t, http.StatusConflict, code)
}
